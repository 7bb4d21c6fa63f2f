package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"vouchermart/coupon-market/internal/model"
)

var (
	ErrProfileNotFound = errors.New("user profile not found")

	// ErrDuplicateLedgerEvent means a ledger entry for this (kind, event)
	// pair already exists: the balance effect was applied before.
	ErrDuplicateLedgerEvent = errors.New("ledger event already applied")
)

// EnsureProfile creates the wallet profile if it does not exist yet.
// Idempotent; safe to call on every request.
func (s *Store) EnsureProfile(ctx context.Context, userID uuid.UUID) error {
	_, err := s.getExecutor(ctx).Exec(ctx, `
		INSERT INTO user_profiles (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return fmt.Errorf("failed to ensure profile: %w", err)
	}
	return nil
}

// GetProfileForUpdate locks the wallet row for the surrounding transaction.
// All balance checks and mutations happen under this lock, which is what
// serializes concurrent spends by the same user.
func (s *Store) GetProfileForUpdate(ctx context.Context, userID uuid.UUID) (model.UserProfile, error) {
	return s.scanProfile(ctx, `
		SELECT user_id, wallet_balance, is_blocked, total_spent, total_purchased, created_at
		FROM user_profiles WHERE user_id = $1 FOR UPDATE`, userID)
}

func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (model.UserProfile, error) {
	return s.scanProfile(ctx, `
		SELECT user_id, wallet_balance, is_blocked, total_spent, total_purchased, created_at
		FROM user_profiles WHERE user_id = $1`, userID)
}

func (s *Store) scanProfile(ctx context.Context, query string, userID uuid.UUID) (model.UserProfile, error) {
	var p model.UserProfile
	err := s.getExecutor(ctx).QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.WalletBalance, &p.IsBlocked, &p.TotalSpent, &p.TotalPurchased, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.UserProfile{}, ErrProfileNotFound
		}
		return model.UserProfile{}, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// ApplyBalanceDelta moves the wallet balance by delta (negative for debits)
// and returns the new balance. Callers must hold the profile row lock and
// have verified the balance themselves; the database CHECK is a backstop.
func (s *Store) ApplyBalanceDelta(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.getExecutor(ctx).QueryRow(ctx, `
		UPDATE user_profiles
		SET wallet_balance = wallet_balance + $1
		WHERE user_id = $2
		RETURNING wallet_balance`, delta, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrProfileNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to apply balance delta: %w", err)
	}
	return balance, nil
}

// BumpSpendTotals increments the monotonic purchase counters.
func (s *Store) BumpSpendTotals(ctx context.Context, userID uuid.UUID, spent decimal.Decimal, purchased int) error {
	_, err := s.getExecutor(ctx).Exec(ctx, `
		UPDATE user_profiles
		SET total_spent = total_spent + $1, total_purchased = total_purchased + $2
		WHERE user_id = $3`, spent, purchased, userID)
	if err != nil {
		return fmt.Errorf("failed to bump spend totals: %w", err)
	}
	return nil
}

// InsertLedgerEntry appends the audit row for one balance mutation. The
// unique (event_kind, event_id) index rejects replays of the same event;
// those surface as ErrDuplicateLedgerEvent so callers can turn them into
// no-ops instead of double-applying.
func (s *Store) InsertLedgerEntry(ctx context.Context, entry model.LedgerEntry) error {
	tag, err := s.getExecutor(ctx).Exec(ctx, `
		INSERT INTO ledger_entries (id, user_id, amount, event_kind, event_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_kind, event_id) DO NOTHING`,
		entry.ID, entry.UserID, entry.Amount, entry.EventKind, entry.EventID)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateLedgerEvent
	}
	return nil
}
