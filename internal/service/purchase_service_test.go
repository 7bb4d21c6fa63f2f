package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"vouchermart/coupon-market/internal/service"
)

func TestExecutePurchase_Success(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	slot := env.seedSlot(t, defaultTiers(), 3)
	userID := env.seedUser(t, "500")

	receipt, err := env.purchase.ExecutePurchase(ctx, userID, slot.ID, 3)
	require.NoError(t, err)

	// 3 coupons at 100 each: wallet 500 -> 200, stock 3 -> 0.
	assert.True(t, receipt.TotalPrice.Equal(dec("300")), "total price %s", receipt.TotalPrice)
	assert.True(t, receipt.UnitPrice.Equal(dec("100")))
	assert.Len(t, receipt.Codes, 3)
	assert.NotEmpty(t, receipt.OrderNumber)
	assert.True(t, env.walletBalance(t, userID).Equal(dec("200")))

	after := env.slotStock(t, slot.ID)
	assert.Equal(t, 0, after.AvailableStock)
	assert.Equal(t, 3, after.TotalSold)

	// The delivered codes are the exact claimed rows.
	stored, err := env.purchase.GetPurchaseCodes(ctx, receipt.OrderID)
	require.NoError(t, err)
	assert.ElementsMatch(t, receipt.Codes, stored)

	// A follow-up request for one more must fail: the shelf is empty.
	_, err = env.purchase.ExecutePurchase(ctx, userID, slot.ID, 1)
	assert.ErrorIs(t, err, service.ErrInsufficientStock)
}

func TestExecutePurchase_BulkTierPricing(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	slot := env.seedSlot(t, defaultTiers(), 12)
	userID := env.seedUser(t, "2000")

	receipt, err := env.purchase.ExecutePurchase(ctx, userID, slot.ID, 10)
	require.NoError(t, err)

	// 10 units hit the bulk tier: 10 x 90 = 900.
	assert.True(t, receipt.UnitPrice.Equal(dec("90")))
	assert.True(t, receipt.TotalPrice.Equal(dec("900")))
	assert.True(t, env.walletBalance(t, userID).Equal(dec("1100")))
}

func TestExecutePurchase_InsufficientFunds(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	slot := env.seedSlot(t, defaultTiers(), 5)
	userID := env.seedUser(t, "50")

	// Balance 50 cannot cover the 100 unit price.
	_, err := env.purchase.ExecutePurchase(ctx, userID, slot.ID, 1)
	assert.ErrorIs(t, err, service.ErrInsufficientFunds)

	// Nothing moved: wallet intact, no coupon claimed.
	assert.True(t, env.walletBalance(t, userID).Equal(dec("50")))
	after := env.slotStock(t, slot.ID)
	assert.Equal(t, 5, after.AvailableStock)
	assert.Equal(t, 0, after.TotalSold)
}

func TestExecutePurchase_InsufficientStock(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	slot := env.seedSlot(t, defaultTiers(), 2)
	userID := env.seedUser(t, "1000")

	_, err := env.purchase.ExecutePurchase(ctx, userID, slot.ID, 3)
	assert.ErrorIs(t, err, service.ErrInsufficientStock)

	// The debit rolled back with the allocation.
	assert.True(t, env.walletBalance(t, userID).Equal(dec("1000")))
}

func TestExecutePurchase_Validation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	slot := env.seedSlot(t, defaultTiers(), 1)
	userID := env.seedUser(t, "1000")

	_, err := env.purchase.ExecutePurchase(ctx, userID, slot.ID, 0)
	assert.ErrorIs(t, err, service.ErrInvalidQuantity)

	_, err = env.purchase.ExecutePurchase(ctx, userID, uuid.New(), 1)
	assert.ErrorIs(t, err, service.ErrSlotNotFound)
}

func TestExecutePurchase_UnpublishedSlot(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	slot, err := env.catalog.CreateSlot(ctx, slotDraft(), defaultTiers())
	require.NoError(t, err)
	userID := env.seedUser(t, "1000")

	_, err = env.purchase.ExecutePurchase(ctx, userID, slot.ID, 1)
	assert.ErrorIs(t, err, service.ErrSlotUnpublished)
}

func TestExecutePurchase_BlockedUser(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	slot := env.seedSlot(t, defaultTiers(), 1)
	userID := env.seedUser(t, "1000")

	_, err := env.pool.Exec(ctx, "UPDATE user_profiles SET is_blocked = TRUE WHERE user_id = $1", userID)
	require.NoError(t, err)

	_, err = env.purchase.ExecutePurchase(ctx, userID, slot.ID, 1)
	assert.ErrorIs(t, err, service.ErrUserBlocked)
}

func TestExecutePurchase_ConcurrentOversell(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	// 10 coupons, 50 buyers with ample funds: exactly 10 may win.
	initialStock := 10
	buyers := 50

	slot := env.seedSlot(t, defaultTiers(), initialStock)

	userIDs := make([]uuid.UUID, buyers)
	for i := range userIDs {
		userIDs[i] = env.seedUser(t, "1000")
	}

	results := make(chan error, buyers)
	var g errgroup.Group
	for i := 0; i < buyers; i++ {
		i := i
		g.Go(func() error {
			_, err := env.purchase.ExecutePurchase(ctx, userIDs[i], slot.ID, 1)
			results <- err
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(results)

	successes, stockFails := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, service.ErrInsufficientStock):
			stockFails++
		}
	}
	assert.Equal(t, initialStock, successes, "every coupon sold exactly once")
	assert.Equal(t, buyers-initialStock, stockFails)

	after := env.slotStock(t, slot.ID)
	assert.Equal(t, 0, after.AvailableStock)
	assert.Equal(t, initialStock, after.TotalSold)

	// Every coupon belongs to at most one purchase.
	var doubleClaims int
	err := env.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM (
			SELECT purchase_id FROM coupons
			WHERE slot_id = $1 AND purchase_id IS NOT NULL
			GROUP BY purchase_id HAVING COUNT(*) <> 1
		) conflicts`, slot.ID).Scan(&doubleClaims)
	require.NoError(t, err)
	assert.Zero(t, doubleClaims)
}

func TestExecutePurchase_ConcurrentSameUserNoDoubleSpend(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	// Balance covers exactly one purchase; two racing requests must not
	// both pass the balance check.
	slot := env.seedSlot(t, defaultTiers(), 10)
	userID := env.seedUser(t, "150")

	results := make(chan error, 2)
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			_, err := env.purchase.ExecutePurchase(ctx, userID, slot.ID, 1)
			results <- err
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, service.ErrInsufficientFunds)
		}
	}
	assert.Equal(t, 1, successes)
	assert.True(t, env.walletBalance(t, userID).Equal(dec("50")))
}

func TestExecutePurchase_PriceIntegrity(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	slot := env.seedSlot(t, defaultTiers(), 5)
	userID := env.seedUser(t, "1000")

	receipt, err := env.purchase.ExecutePurchase(ctx, userID, slot.ID, 4)
	require.NoError(t, err)

	// total_price is always unit_price x quantity as stored, regardless of
	// anything the caller might have hinted.
	var storedUnit, storedTotal string
	err = env.pool.QueryRow(ctx,
		"SELECT unit_price::text, total_price::text FROM purchases WHERE id = $1",
		receipt.OrderID).Scan(&storedUnit, &storedTotal)
	require.NoError(t, err)
	assert.True(t, dec(storedTotal).Equal(dec(storedUnit).Mul(dec("4"))))
}
