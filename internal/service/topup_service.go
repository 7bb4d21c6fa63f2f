package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vouchermart/coupon-market/internal/logger"
	"vouchermart/coupon-market/internal/model"
	"vouchermart/coupon-market/internal/repository"
)

// Settlement outcomes reported by the payment gateway.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

var ErrTopupNotFound = errors.New("topup not found")

type TopupService struct {
	store  *repository.Store
	wallet *WalletService
}

func NewTopupService(store *repository.Store, wallet *WalletService) *TopupService {
	return &TopupService{store: store, wallet: wallet}
}

// CreateTopup records a pending wallet funding request keyed by the gateway
// transaction id.
func (s *TopupService) CreateTopup(ctx context.Context, userID uuid.UUID, transactionID string, amount decimal.Decimal, paymentMethod string) (model.Topup, error) {
	if !amount.IsPositive() {
		return model.Topup{}, ErrInvalidAmount
	}

	topup := model.Topup{
		ID:            uuid.New(),
		UserID:        userID,
		TransactionID: transactionID,
		Amount:        amount,
		Status:        model.TopupStatusPending,
		PaymentMethod: paymentMethod,
	}

	err := s.store.RunAtomic(ctx, func(ctx context.Context) error {
		if err := s.store.EnsureProfile(ctx, userID); err != nil {
			return err
		}
		if err := s.store.InsertTopup(ctx, topup); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrDuplicateTransaction
			}
			return err
		}
		return nil
	})
	if err != nil {
		return model.Topup{}, err
	}
	return topup, nil
}

// SettleTopup applies the gateway's terminal outcome for a pending topup.
// Success credits the wallet exactly once; failed has no ledger effect.
// A replayed callback for an already-settled topup with the same outcome is
// a no-op, not an error; conflicting outcomes are rejected.
func (s *TopupService) SettleTopup(ctx context.Context, transactionID, outcome string) error {
	if outcome != OutcomeSuccess && outcome != OutcomeFailed {
		return ErrInvalidStateTransition
	}

	return s.store.RunAtomic(ctx, func(ctx context.Context) error {
		topup, err := s.store.GetTopupForUpdate(ctx, transactionID)
		if err != nil {
			if errors.Is(err, repository.ErrTopupNotFound) {
				return ErrTopupNotFound
			}
			return err
		}

		if !topup.CanSettle() {
			// Duplicate delivery of the same outcome already happened:
			// treat as success without touching the wallet again.
			if topup.Status == outcome {
				logger.Log.Info("duplicate topup settlement ignored",
					zap.String("transactionID", transactionID),
					zap.String("outcome", outcome))
				return nil
			}
			return ErrInvalidStateTransition
		}

		now := time.Now().UTC()
		switched, err := s.store.TransitionTopup(ctx, topup.ID, model.TopupStatusPending, outcome, &now)
		if err != nil {
			return err
		}
		if !switched {
			// Lost the race to a concurrent settlement after the lock
			// check; nothing left to do.
			return nil
		}

		if outcome == OutcomeSuccess {
			if _, err := s.wallet.applyLedgered(ctx, topup.UserID, topup.Amount, model.LedgerEventTopup, topup.ID); err != nil {
				if errors.Is(err, repository.ErrDuplicateLedgerEvent) {
					return nil
				}
				return err
			}
			logger.Log.Info("topup credited",
				zap.String("transactionID", transactionID),
				zap.String("userID", topup.UserID.String()),
				zap.String("amount", topup.Amount.String()))
		}
		return nil
	})
}

// RefundTopup moves a successful topup to refunded and credits the wallet a
// second time. The original credit added the funds; this one models handing
// the money back while the status records that the gateway payment was
// reversed. Only success -> refunded is allowed, so the second credit can
// happen at most once.
func (s *TopupService) RefundTopup(ctx context.Context, topupID uuid.UUID, reason string) error {
	return s.store.RunAtomic(ctx, func(ctx context.Context) error {
		topup, err := s.store.GetTopupByIDForUpdate(ctx, topupID)
		if err != nil {
			if errors.Is(err, repository.ErrTopupNotFound) {
				return ErrTopupNotFound
			}
			return err
		}
		if !topup.CanRefund() {
			return ErrInvalidStateTransition
		}

		refunded, err := s.store.MarkTopupRefunded(ctx, topupID, reason, time.Now().UTC())
		if err != nil {
			return err
		}
		if !refunded {
			return ErrInvalidStateTransition
		}

		if _, err := s.wallet.applyLedgered(ctx, topup.UserID, topup.Amount, model.LedgerEventRefund, topup.ID); err != nil {
			if errors.Is(err, repository.ErrDuplicateLedgerEvent) {
				return nil
			}
			return err
		}

		logger.Log.Info("topup refunded",
			zap.String("topupID", topupID.String()),
			zap.String("reason", reason),
			zap.String("amount", topup.Amount.String()))
		return nil
	})
}

// ListTopups returns the user's topup history, newest first.
func (s *TopupService) ListTopups(ctx context.Context, userID uuid.UUID, filter repository.ListFilter) ([]model.Topup, error) {
	return s.store.ListTopups(ctx, userID, filter)
}
