package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vouchermart/coupon-market/internal/logger"
	"vouchermart/coupon-market/internal/model"
	"vouchermart/coupon-market/internal/pricing"
	"vouchermart/coupon-market/internal/repository"
)

const (
	maxPurchaseAttempts = 3
	retryBackoff        = 50 * time.Millisecond
)

type PurchaseService struct {
	store *repository.Store
}

func NewPurchaseService(store *repository.Store) *PurchaseService {
	return &PurchaseService{store: store}
}

// ExecutePurchase buys quantity codes from a slot against the user's wallet,
// all inside one database transaction: resolve the tier price, debit the
// wallet, claim the coupon rows, record the purchase and bump the counters.
// Any failure rolls the whole thing back; serialization conflicts are retried
// a bounded number of times before surfacing as ErrTransient.
func (s *PurchaseService) ExecutePurchase(ctx context.Context, userID, slotID uuid.UUID, quantity int) (model.PurchaseReceipt, error) {
	if quantity < 1 {
		return model.PurchaseReceipt{}, ErrInvalidQuantity
	}

	var receipt model.PurchaseReceipt
	var err error
	for attempt := 1; attempt <= maxPurchaseAttempts; attempt++ {
		receipt, err = s.executeOnce(ctx, userID, slotID, quantity)
		if err == nil || !repository.IsSerializationFailure(err) {
			return receipt, err
		}
		logger.Log.Warn("purchase transaction conflict, retrying",
			zap.String("userID", userID.String()),
			zap.String("slotID", slotID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-time.After(time.Duration(attempt) * retryBackoff):
		case <-ctx.Done():
			return model.PurchaseReceipt{}, ctx.Err()
		}
	}
	return model.PurchaseReceipt{}, fmt.Errorf("%w: %s", ErrTransient, err)
}

func (s *PurchaseService) executeOnce(ctx context.Context, userID, slotID uuid.UUID, quantity int) (model.PurchaseReceipt, error) {
	var receipt model.PurchaseReceipt

	err := s.store.RunAtomic(ctx, func(ctx context.Context) error {
		if err := s.store.EnsureProfile(ctx, userID); err != nil {
			return err
		}

		// Lock order is wallet row, then slot row, then coupon rows.
		// Every write path holds to it, so concurrent purchases cannot
		// deadlock against each other.
		profile, err := s.store.GetProfileForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if profile.IsBlocked {
			return ErrUserBlocked
		}

		slot, err := s.store.GetSlotForUpdate(ctx, slotID)
		if err != nil {
			if errors.Is(err, repository.ErrSlotNotFound) {
				return ErrSlotNotFound
			}
			return err
		}
		if !slot.IsPublished {
			return ErrSlotUnpublished
		}

		tiers, err := s.store.GetSlotTiers(ctx, slotID)
		if err != nil {
			return err
		}
		unitPrice, _, err := pricing.ResolveTier(tiers, quantity)
		if err != nil {
			logger.Log.Error("tier resolution failed",
				zap.String("slotID", slotID.String()), zap.Error(err))
			return fmt.Errorf("%w: %s", ErrConfiguration, err)
		}
		totalPrice := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))

		if profile.WalletBalance.LessThan(totalPrice) {
			return ErrInsufficientFunds
		}
		if slot.AvailableStock < quantity {
			return ErrInsufficientStock
		}

		purchaseID := uuid.New()

		// Debit first; an allocation failure below rolls it back with
		// everything else.
		newBalance, err := s.store.ApplyBalanceDelta(ctx, userID, totalPrice.Neg())
		if err != nil {
			return err
		}
		if err := s.store.InsertLedgerEntry(ctx, model.LedgerEntry{
			ID:        uuid.New(),
			UserID:    userID,
			Amount:    totalPrice.Neg(),
			EventKind: model.LedgerEventPurchase,
			EventID:   purchaseID,
		}); err != nil {
			return err
		}

		// Claim the coupon rows. The counter check above is only a fast
		// path; the locked rows are the ground truth, re-verified here.
		claimed, err := s.store.LockUnsoldCoupons(ctx, slotID, quantity)
		if err != nil {
			return err
		}
		if len(claimed) < quantity {
			return ErrInsufficientStock
		}

		purchase := model.Purchase{
			ID:          purchaseID,
			OrderNumber: newOrderNumber(),
			UserID:      userID,
			SlotID:      slotID,
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			TotalPrice:  totalPrice,
			Status:      model.PurchaseStatusCompleted,
		}
		if err := s.store.InsertPurchase(ctx, purchase); err != nil {
			return err
		}

		couponIDs := make([]uuid.UUID, len(claimed))
		codes := make([]string, len(claimed))
		for i, c := range claimed {
			couponIDs[i] = c.ID
			codes[i] = c.Code
		}
		sold, err := s.store.MarkCouponsSold(ctx, couponIDs, userID, purchaseID, time.Now().UTC())
		if err != nil {
			return err
		}
		if sold != quantity {
			return ErrInsufficientStock
		}

		if err := s.store.AdjustSlotCounters(ctx, slotID, -quantity, 0, quantity); err != nil {
			return err
		}
		if err := s.store.BumpSpendTotals(ctx, userID, totalPrice, quantity); err != nil {
			return err
		}

		receipt = model.PurchaseReceipt{
			OrderID:     purchaseID,
			OrderNumber: purchase.OrderNumber,
			Codes:       codes,
			UnitPrice:   unitPrice,
			TotalPrice:  totalPrice,
			NewBalance:  newBalance,
		}
		return nil
	})
	if err != nil {
		return model.PurchaseReceipt{}, err
	}

	logger.Log.Info("purchase completed",
		zap.String("orderNumber", receipt.OrderNumber),
		zap.String("userID", userID.String()),
		zap.String("slotID", slotID.String()),
		zap.Int("quantity", quantity),
		zap.String("totalPrice", receipt.TotalPrice.String()))
	return receipt, nil
}

// ListPurchases returns the user's purchase history, newest first.
func (s *PurchaseService) ListPurchases(ctx context.Context, userID uuid.UUID, filter repository.ListFilter) ([]model.Purchase, error) {
	return s.store.ListPurchases(ctx, userID, filter)
}

// GetPurchaseCodes returns the codes delivered with a purchase.
func (s *PurchaseService) GetPurchaseCodes(ctx context.Context, purchaseID uuid.UUID) ([]string, error) {
	return s.store.GetPurchaseCodes(ctx, purchaseID)
}

// newOrderNumber builds a human-readable order number: VM-YYYYMMDD-XXXXXX.
func newOrderNumber() string {
	suffix := strings.ToUpper(uuid.New().String()[:6])
	return fmt.Sprintf("VM-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
