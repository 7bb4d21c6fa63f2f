package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"vouchermart/coupon-market/internal/model"
)

var ErrTopupNotFound = errors.New("topup not found")

func (s *Store) InsertTopup(ctx context.Context, t model.Topup) error {
	_, err := s.getExecutor(ctx).Exec(ctx, `
		INSERT INTO topups (id, user_id, transaction_id, amount, status, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.UserID, t.TransactionID, t.Amount, t.Status, t.PaymentMethod)
	if err != nil {
		return fmt.Errorf("failed to insert topup: %w", err)
	}
	return nil
}

// GetTopupForUpdate locks the topup row by the external gateway transaction
// id, serializing duplicate webhook deliveries for the same payment.
func (s *Store) GetTopupForUpdate(ctx context.Context, transactionID string) (model.Topup, error) {
	return s.scanTopup(ctx, `
		SELECT id, user_id, transaction_id, amount, status, payment_method, verified_at, refunded_at, refund_reason, created_at
		FROM topups WHERE transaction_id = $1 FOR UPDATE`, transactionID)
}

// GetTopupByIDForUpdate locks the topup row by internal id, for refunds.
func (s *Store) GetTopupByIDForUpdate(ctx context.Context, topupID uuid.UUID) (model.Topup, error) {
	return s.scanTopup(ctx, `
		SELECT id, user_id, transaction_id, amount, status, payment_method, verified_at, refunded_at, refund_reason, created_at
		FROM topups WHERE id = $1 FOR UPDATE`, topupID)
}

func (s *Store) scanTopup(ctx context.Context, query string, arg any) (model.Topup, error) {
	var t model.Topup
	err := s.getExecutor(ctx).QueryRow(ctx, query, arg).Scan(
		&t.ID, &t.UserID, &t.TransactionID, &t.Amount, &t.Status, &t.PaymentMethod,
		&t.VerifiedAt, &t.RefundedAt, &t.RefundReason, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Topup{}, ErrTopupNotFound
		}
		return model.Topup{}, fmt.Errorf("failed to get topup: %w", err)
	}
	return t, nil
}

// TransitionTopup moves a topup from one status to another. The WHERE guard
// on the current status is the de-duplication mechanism for replayed gateway
// callbacks: a transition whose precondition no longer holds affects zero
// rows and returns false.
func (s *Store) TransitionTopup(ctx context.Context, topupID uuid.UUID, fromStatus, toStatus string, verifiedAt *time.Time) (bool, error) {
	tag, err := s.getExecutor(ctx).Exec(ctx, `
		UPDATE topups
		SET status = $1, verified_at = COALESCE($2, verified_at)
		WHERE id = $3 AND status = $4`,
		toStatus, verifiedAt, topupID, fromStatus)
	if err != nil {
		return false, fmt.Errorf("failed to transition topup: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkTopupRefunded transitions success -> refunded, recording when and why.
func (s *Store) MarkTopupRefunded(ctx context.Context, topupID uuid.UUID, reason string, refundedAt time.Time) (bool, error) {
	tag, err := s.getExecutor(ctx).Exec(ctx, `
		UPDATE topups
		SET status = $1, refunded_at = $2, refund_reason = $3
		WHERE id = $4 AND status = $5`,
		model.TopupStatusRefunded, refundedAt, reason, topupID, model.TopupStatusSuccess)
	if err != nil {
		return false, fmt.Errorf("failed to mark topup refunded: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListTopups returns a user's topups newest first, narrowed by the filter.
func (s *Store) ListTopups(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]model.Topup, error) {
	where, args := filter.WithSearchColumn("transaction_id").Build("user_id = $1", userID)
	query := `
		SELECT id, user_id, transaction_id, amount, status, payment_method, verified_at, refunded_at, refund_reason, created_at
		FROM topups WHERE ` + where + ` ORDER BY created_at DESC`

	rows, err := s.getExecutor(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list topups: %w", err)
	}
	defer rows.Close()

	var topups []model.Topup
	for rows.Next() {
		var t model.Topup
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.TransactionID, &t.Amount, &t.Status, &t.PaymentMethod,
			&t.VerifiedAt, &t.RefundedAt, &t.RefundReason, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan topup: %w", err)
		}
		topups = append(topups, t)
	}
	return topups, rows.Err()
}
