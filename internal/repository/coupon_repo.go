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

var ErrCouponNotFound = errors.New("coupon not found")

// ClaimedCoupon is one row claimed by LockUnsoldCoupons.
type ClaimedCoupon struct {
	ID   uuid.UUID
	Code string
}

// LockUnsoldCoupons locks up to limit unsold coupon rows for the slot.
// SKIP LOCKED lets concurrent purchases against the same slot proceed on
// disjoint rows instead of queueing or deadlocking; the caller must check
// that the full requested quantity came back before claiming.
func (s *Store) LockUnsoldCoupons(ctx context.Context, slotID uuid.UUID, limit int) ([]ClaimedCoupon, error) {
	rows, err := s.getExecutor(ctx).Query(ctx, `
		SELECT id, code FROM coupons
		WHERE slot_id = $1 AND is_sold = FALSE
		ORDER BY id
		LIMIT $2
		FOR UPDATE SKIP LOCKED`, slotID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to lock coupons: %w", err)
	}
	defer rows.Close()

	var claimed []ClaimedCoupon
	for rows.Next() {
		var c ClaimedCoupon
		if err := rows.Scan(&c.ID, &c.Code); err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		claimed = append(claimed, c)
	}
	return claimed, rows.Err()
}

// MarkCouponsSold flips the locked rows to sold. The is_sold = FALSE guard
// makes the count authoritative: anything already sold is not re-claimed.
func (s *Store) MarkCouponsSold(ctx context.Context, couponIDs []uuid.UUID, userID, purchaseID uuid.UUID, soldAt time.Time) (int, error) {
	tag, err := s.getExecutor(ctx).Exec(ctx, `
		UPDATE coupons
		SET is_sold = TRUE, sold_to = $1, sold_at = $2, purchase_id = $3
		WHERE id = ANY($4) AND is_sold = FALSE`,
		userID, soldAt, purchaseID, couponIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to mark coupons sold: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// InsertCoupons bulk-uploads codes for a slot, ignoring codes that already
// exist anywhere (upload is an idempotent upsert). Returns how many rows were
// actually inserted.
func (s *Store) InsertCoupons(ctx context.Context, slotID uuid.UUID, codes []string) (int, error) {
	exec := s.getExecutor(ctx)
	inserted := 0
	for _, code := range codes {
		tag, err := exec.Exec(ctx, `
			INSERT INTO coupons (id, slot_id, code)
			VALUES ($1, $2, $3)
			ON CONFLICT (code) DO NOTHING`,
			uuid.New(), slotID, code)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert coupon: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (s *Store) GetCoupon(ctx context.Context, couponID uuid.UUID) (model.Coupon, error) {
	return s.scanCoupon(ctx, `
		SELECT id, slot_id, code, is_sold, sold_to, sold_at, purchase_id, created_at
		FROM coupons WHERE id = $1`, couponID)
}

// GetCouponForUpdate locks a single coupon row, for the admin delete path.
// Callers must already hold the slot row lock so the lock order matches the
// purchase path (slot before coupons).
func (s *Store) GetCouponForUpdate(ctx context.Context, couponID uuid.UUID) (model.Coupon, error) {
	return s.scanCoupon(ctx, `
		SELECT id, slot_id, code, is_sold, sold_to, sold_at, purchase_id, created_at
		FROM coupons WHERE id = $1 FOR UPDATE`, couponID)
}

func (s *Store) scanCoupon(ctx context.Context, query string, couponID uuid.UUID) (model.Coupon, error) {
	var c model.Coupon
	err := s.getExecutor(ctx).QueryRow(ctx, query, couponID).Scan(
		&c.ID, &c.SlotID, &c.Code, &c.IsSold, &c.SoldTo, &c.SoldAt, &c.PurchaseID, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Coupon{}, ErrCouponNotFound
		}
		return model.Coupon{}, fmt.Errorf("failed to get coupon: %w", err)
	}
	return c, nil
}

func (s *Store) DeleteCoupon(ctx context.Context, couponID uuid.UUID) error {
	tag, err := s.getExecutor(ctx).Exec(ctx, `DELETE FROM coupons WHERE id = $1`, couponID)
	if err != nil {
		return fmt.Errorf("failed to delete coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCouponNotFound
	}
	return nil
}

// GetPurchaseCodes returns the codes delivered with a completed purchase.
func (s *Store) GetPurchaseCodes(ctx context.Context, purchaseID uuid.UUID) ([]string, error) {
	rows, err := s.getExecutor(ctx).Query(ctx, `
		SELECT code FROM coupons WHERE purchase_id = $1 ORDER BY id`, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
