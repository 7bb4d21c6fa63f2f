package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vouchermart/coupon-market/internal/logger"
	"vouchermart/coupon-market/internal/model"
	"vouchermart/coupon-market/internal/repository"
)

// Adjustment directions for AdjustBalance.
const (
	AdjustDirectionAdd    = "add"
	AdjustDirectionDeduct = "deduct"
)

type WalletService struct {
	store *repository.Store
}

func NewWalletService(store *repository.Store) *WalletService {
	return &WalletService{store: store}
}

// GetBalance returns the user's wallet profile, creating it lazily.
func (s *WalletService) GetBalance(ctx context.Context, userID uuid.UUID) (model.UserProfile, error) {
	if err := s.store.EnsureProfile(ctx, userID); err != nil {
		return model.UserProfile{}, err
	}
	return s.store.GetProfile(ctx, userID)
}

// AdjustBalance applies a manual admin credit or debit. The mutation goes
// through the same ledger path as every other balance change and additionally
// writes an audit topup record so the adjustment shows up in the transaction
// history.
func (s *WalletService) AdjustBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, direction, reason string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	delta := amount
	paymentMethod := model.PaymentMethodAdminCredit
	if direction == AdjustDirectionDeduct {
		delta = amount.Neg()
		paymentMethod = model.PaymentMethodAdminDebit
	} else if direction != AdjustDirectionAdd {
		return decimal.Zero, fmt.Errorf("unknown adjustment direction %q", direction)
	}

	var newBalance decimal.Decimal
	err := s.store.RunAtomic(ctx, func(ctx context.Context) error {
		if err := s.store.EnsureProfile(ctx, userID); err != nil {
			return err
		}
		profile, err := s.store.GetProfileForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if delta.IsNegative() && profile.WalletBalance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		adjustmentID := uuid.New()
		newBalance, err = s.applyLedgered(ctx, userID, delta, model.LedgerEventAdjust, adjustmentID)
		if err != nil {
			return err
		}

		// Audit record: admin adjustments appear as settled topups with an
		// admin payment method.
		return s.store.InsertTopup(ctx, model.Topup{
			ID:            adjustmentID,
			UserID:        userID,
			TransactionID: "adm-" + adjustmentID.String(),
			Amount:        amount,
			Status:        model.TopupStatusSuccess,
			PaymentMethod: paymentMethod,
		})
	})
	if err != nil {
		return decimal.Zero, err
	}

	logger.Log.Info("balance adjusted",
		zap.String("userID", userID.String()),
		zap.String("direction", direction),
		zap.String("amount", amount.String()),
		zap.String("reason", reason))
	return newBalance, nil
}

// applyLedgered moves the balance and appends the ledger row in one step.
// A duplicate (kind, event) pair aborts before the balance moves, which is
// what makes replays of the same event safe.
func (s *WalletService) applyLedgered(ctx context.Context, userID uuid.UUID, delta decimal.Decimal, eventKind string, eventID uuid.UUID) (decimal.Decimal, error) {
	err := s.store.InsertLedgerEntry(ctx, model.LedgerEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    delta,
		EventKind: eventKind,
		EventID:   eventID,
	})
	if err != nil {
		return decimal.Zero, err
	}
	return s.store.ApplyBalanceDelta(ctx, userID, delta)
}
