package service_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"vouchermart/coupon-market/internal/model"
	"vouchermart/coupon-market/internal/repository"
	"vouchermart/coupon-market/internal/service"
)

// testEnv bundles the store and services against a real database. These are
// integration tests: they are skipped unless DATABASE_URL points at a
// disposable Postgres.
type testEnv struct {
	pool      *pgxpool.Pool
	store     *repository.Store
	wallet    *service.WalletService
	purchase  *service.PurchaseService
	topup     *service.TopupService
	inventory *service.InventoryService
	catalog   *service.CatalogService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err, "connect to database")
	require.NoError(t, pool.Ping(ctx), "ping database")
	t.Cleanup(pool.Close)

	store := repository.NewStore(pool)
	require.NoError(t, store.Migrate(ctx), "run migrations")

	// Truncate tables to ensure clean state. Order matters due to FKs.
	tables := []string{"ledger_entries", "coupons", "purchases", "topups", "pricing_tiers", "slots", "user_profiles"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoErrorf(t, err, "truncate table %s", table)
	}

	wallet := service.NewWalletService(store)
	return &testEnv{
		pool:      pool,
		store:     store,
		wallet:    wallet,
		purchase:  service.NewPurchaseService(store),
		topup:     service.NewTopupService(store, wallet),
		inventory: service.NewInventoryService(store),
		catalog:   service.NewCatalogService(store),
	}
}

func intPtr(v int) *int { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seedSlot creates a published slot with the given tiers and uploads codes
// VCH-0001..VCH-<n>.
func (e *testEnv) seedSlot(t *testing.T, tiers []model.PricingTier, stock int) model.Slot {
	t.Helper()
	ctx := context.Background()

	slot, err := e.catalog.CreateSlot(ctx, model.Slot{
		Name:        "Amazon 500 voucher",
		Description: "test slot",
		IsPublished: true,
	}, tiers)
	require.NoError(t, err)

	if stock > 0 {
		codes := make([]string, stock)
		for i := range codes {
			codes[i] = fmt.Sprintf("VCH-%s-%04d", slot.ID.String()[:8], i+1)
		}
		result, err := e.inventory.UploadCoupons(ctx, slot.ID, codes)
		require.NoError(t, err)
		require.Equal(t, stock, result.Inserted)
	}
	return slot
}

// seedUser creates a wallet profile funded via an admin credit.
func (e *testEnv) seedUser(t *testing.T, balance string) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	if balance != "0" {
		_, err := e.wallet.AdjustBalance(context.Background(), userID, dec(balance), service.AdjustDirectionAdd, "test seed")
		require.NoError(t, err)
	} else {
		_, err := e.wallet.GetBalance(context.Background(), userID)
		require.NoError(t, err)
	}
	return userID
}

func (e *testEnv) walletBalance(t *testing.T, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	profile, err := e.wallet.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return profile.WalletBalance
}

func (e *testEnv) slotStock(t *testing.T, slotID uuid.UUID) model.Slot {
	t.Helper()
	slot, err := e.catalog.GetSlot(context.Background(), slotID)
	require.NoError(t, err)
	return slot
}

// slotDraft is an unpublished slot payload.
func slotDraft() model.Slot {
	return model.Slot{
		Name:        "Draft voucher",
		Description: "not yet published",
		IsPublished: false,
	}
}

// defaultTiers: 1-9 at 100, 10+ at 90.
func defaultTiers() []model.PricingTier {
	return []model.PricingTier{
		{MinQuantity: 1, MaxQuantity: intPtr(9), UnitPrice: dec("100"), Label: "standard"},
		{MinQuantity: 10, MaxQuantity: nil, UnitPrice: dec("90"), Label: "bulk"},
	}
}
