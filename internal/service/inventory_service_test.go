package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vouchermart/coupon-market/internal/service"
)

func TestUploadCoupons_SkipsDuplicates(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	slot := env.seedSlot(t, defaultTiers(), 0)

	codes := []string{"GIFT-0001", "GIFT-0002", "GIFT-0003"}
	result, err := env.inventory.UploadCoupons(ctx, slot.ID, codes)
	require.NoError(t, err)
	assert.Equal(t, service.UploadResult{Requested: 3, Inserted: 3, Skipped: 0}, result)

	after := env.slotStock(t, slot.ID)
	assert.Equal(t, 3, after.AvailableStock)
	assert.Equal(t, 3, after.TotalUploaded)

	// Re-uploading the same file changes nothing.
	result, err = env.inventory.UploadCoupons(ctx, slot.ID, codes)
	require.NoError(t, err)
	assert.Equal(t, service.UploadResult{Requested: 3, Inserted: 0, Skipped: 3}, result)

	after = env.slotStock(t, slot.ID)
	assert.Equal(t, 3, after.AvailableStock)
	assert.Equal(t, 3, after.TotalUploaded)

	// A mixed batch only counts the new codes.
	result, err = env.inventory.UploadCoupons(ctx, slot.ID, []string{"GIFT-0003", "GIFT-0004"})
	require.NoError(t, err)
	assert.Equal(t, service.UploadResult{Requested: 2, Inserted: 1, Skipped: 1}, result)
}

func TestUploadCoupons_UnknownSlot(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.inventory.UploadCoupons(context.Background(), uuid.New(), []string{"GIFT-0001"})
	assert.ErrorIs(t, err, service.ErrSlotNotFound)
}

func TestDeleteCoupon_Unsold(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	slot := env.seedSlot(t, defaultTiers(), 3)

	var couponID uuid.UUID
	err := env.pool.QueryRow(ctx,
		"SELECT id FROM coupons WHERE slot_id = $1 AND is_sold = FALSE LIMIT 1", slot.ID).Scan(&couponID)
	require.NoError(t, err)

	// Removing an unsold code shrinks both counters.
	result, err := env.inventory.DeleteCoupon(ctx, couponID)
	require.NoError(t, err)
	assert.False(t, result.RevokedSoldCoupon)

	after := env.slotStock(t, slot.ID)
	assert.Equal(t, 2, after.AvailableStock)
	assert.Equal(t, 2, after.TotalUploaded)
}

func TestDeleteCoupon_SoldRevokesAccess(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	slot := env.seedSlot(t, defaultTiers(), 2)
	userID := env.seedUser(t, "500")

	receipt, err := env.purchase.ExecutePurchase(ctx, userID, slot.ID, 1)
	require.NoError(t, err)

	var couponID uuid.UUID
	err = env.pool.QueryRow(ctx,
		"SELECT id FROM coupons WHERE purchase_id = $1", receipt.OrderID).Scan(&couponID)
	require.NoError(t, err)

	result, err := env.inventory.DeleteCoupon(ctx, couponID)
	require.NoError(t, err)
	assert.True(t, result.RevokedSoldCoupon)

	// A sold code was already off the shelf: only total_uploaded moves.
	after := env.slotStock(t, slot.ID)
	assert.Equal(t, 1, after.AvailableStock)
	assert.Equal(t, 1, after.TotalUploaded)
	assert.Equal(t, 1, after.TotalSold)

	// The buyer's order now has no codes behind it.
	codes, err := env.purchase.GetPurchaseCodes(ctx, receipt.OrderID)
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestDeleteCoupon_Unknown(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.inventory.DeleteCoupon(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrCouponNotFound)
}

func TestReconcileStock_HealsDrift(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	slotA := env.seedSlot(t, defaultTiers(), 4)
	slotB := env.seedSlot(t, defaultTiers(), 2)

	// Simulate counter drift from a write that bypassed the service layer.
	_, err := env.pool.Exec(ctx,
		"UPDATE slots SET available_stock = 99 WHERE id = $1", slotA.ID)
	require.NoError(t, err)

	corrected, err := env.inventory.ReconcileStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, corrected[slotA.ID])
	assert.Equal(t, 2, corrected[slotB.ID])

	assert.Equal(t, 4, env.slotStock(t, slotA.ID).AvailableStock)
	assert.Equal(t, 2, env.slotStock(t, slotB.ID).AvailableStock)
}

func TestReconcileStock_CountsUnsoldOnly(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	slot := env.seedSlot(t, defaultTiers(), 5)
	userID := env.seedUser(t, "500")

	_, err := env.purchase.ExecutePurchase(ctx, userID, slot.ID, 2)
	require.NoError(t, err)

	corrected, err := env.inventory.ReconcileStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, corrected[slot.ID])
}

func TestUploadCoupons_LargeBatch(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	slot := env.seedSlot(t, defaultTiers(), 0)

	codes := make([]string, 200)
	for i := range codes {
		codes[i] = fmt.Sprintf("BULK-%04d", i+1)
	}

	result, err := env.inventory.UploadCoupons(ctx, slot.ID, codes)
	require.NoError(t, err)
	assert.Equal(t, 200, result.Inserted)
	assert.Equal(t, 200, env.slotStock(t, slot.ID).AvailableStock)
}
