package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"vouchermart/coupon-market/internal/model"
)

var ErrSlotNotFound = errors.New("slot not found")

// GetSlotForUpdate locks the slot row for the duration of the surrounding
// transaction and returns it. The lock serializes counter updates per slot.
func (s *Store) GetSlotForUpdate(ctx context.Context, slotID uuid.UUID) (model.Slot, error) {
	return s.scanSlot(ctx, `
		SELECT id, name, description, is_published, available_stock, total_uploaded, total_sold, expiry_date, created_at
		FROM slots WHERE id = $1 FOR UPDATE`, slotID)
}

func (s *Store) GetSlot(ctx context.Context, slotID uuid.UUID) (model.Slot, error) {
	return s.scanSlot(ctx, `
		SELECT id, name, description, is_published, available_stock, total_uploaded, total_sold, expiry_date, created_at
		FROM slots WHERE id = $1`, slotID)
}

func (s *Store) scanSlot(ctx context.Context, query string, slotID uuid.UUID) (model.Slot, error) {
	var slot model.Slot
	err := s.getExecutor(ctx).QueryRow(ctx, query, slotID).Scan(
		&slot.ID, &slot.Name, &slot.Description, &slot.IsPublished,
		&slot.AvailableStock, &slot.TotalUploaded, &slot.TotalSold,
		&slot.ExpiryDate, &slot.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Slot{}, ErrSlotNotFound
		}
		return model.Slot{}, fmt.Errorf("failed to get slot: %w", err)
	}
	return slot, nil
}

// GetSlotTiers returns the slot's tiers ordered by min_quantity ascending,
// the order the pricing resolver expects.
func (s *Store) GetSlotTiers(ctx context.Context, slotID uuid.UUID) ([]model.PricingTier, error) {
	rows, err := s.getExecutor(ctx).Query(ctx, `
		SELECT id, slot_id, min_quantity, max_quantity, unit_price, label
		FROM pricing_tiers WHERE slot_id = $1 ORDER BY min_quantity ASC`, slotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pricing tiers: %w", err)
	}
	defer rows.Close()

	var tiers []model.PricingTier
	for rows.Next() {
		var t model.PricingTier
		if err := rows.Scan(&t.ID, &t.SlotID, &t.MinQuantity, &t.MaxQuantity, &t.UnitPrice, &t.Label); err != nil {
			return nil, fmt.Errorf("failed to scan pricing tier: %w", err)
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

func (s *Store) ListPublishedSlots(ctx context.Context) ([]model.Slot, error) {
	rows, err := s.getExecutor(ctx).Query(ctx, `
		SELECT id, name, description, is_published, available_stock, total_uploaded, total_sold, expiry_date, created_at
		FROM slots WHERE is_published = TRUE ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var slots []model.Slot
	for rows.Next() {
		var slot model.Slot
		if err := rows.Scan(
			&slot.ID, &slot.Name, &slot.Description, &slot.IsPublished,
			&slot.AvailableStock, &slot.TotalUploaded, &slot.TotalSold,
			&slot.ExpiryDate, &slot.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (s *Store) CreateSlot(ctx context.Context, slot model.Slot) error {
	_, err := s.getExecutor(ctx).Exec(ctx, `
		INSERT INTO slots (id, name, description, is_published, expiry_date)
		VALUES ($1, $2, $3, $4, $5)`,
		slot.ID, slot.Name, slot.Description, slot.IsPublished, slot.ExpiryDate)
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}
	return nil
}

// ReplaceTiers swaps a slot's tier set wholesale: delete all, insert new.
// Tiers are never partially patched.
func (s *Store) ReplaceTiers(ctx context.Context, slotID uuid.UUID, tiers []model.PricingTier) error {
	exec := s.getExecutor(ctx)
	if _, err := exec.Exec(ctx, `DELETE FROM pricing_tiers WHERE slot_id = $1`, slotID); err != nil {
		return fmt.Errorf("failed to clear pricing tiers: %w", err)
	}
	for _, t := range tiers {
		if _, err := exec.Exec(ctx, `
			INSERT INTO pricing_tiers (id, slot_id, min_quantity, max_quantity, unit_price, label)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			t.ID, slotID, t.MinQuantity, t.MaxQuantity, t.UnitPrice, t.Label); err != nil {
			return fmt.Errorf("failed to insert pricing tier: %w", err)
		}
	}
	return nil
}

// AdjustSlotCounters applies deltas to the denormalized stock counters.
// Callers must hold the slot row lock or be inside the transaction that
// mutates the coupon rows the counters summarize.
func (s *Store) AdjustSlotCounters(ctx context.Context, slotID uuid.UUID, stockDelta, uploadedDelta, soldDelta int) error {
	_, err := s.getExecutor(ctx).Exec(ctx, `
		UPDATE slots
		SET available_stock = available_stock + $1,
		    total_uploaded = total_uploaded + $2,
		    total_sold = total_sold + $3
		WHERE id = $4`,
		stockDelta, uploadedDelta, soldDelta, slotID)
	if err != nil {
		return fmt.Errorf("failed to adjust slot counters: %w", err)
	}
	return nil
}

// RecountSlotStock recomputes available_stock from the coupon rows and
// returns the corrected value. Used by reconciliation to heal counter drift.
func (s *Store) RecountSlotStock(ctx context.Context, slotID uuid.UUID) (int, error) {
	var stock int
	err := s.getExecutor(ctx).QueryRow(ctx, `
		UPDATE slots
		SET available_stock = (SELECT COUNT(*) FROM coupons WHERE slot_id = $1 AND is_sold = FALSE)
		WHERE id = $1
		RETURNING available_stock`, slotID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrSlotNotFound
		}
		return 0, fmt.Errorf("failed to recount slot stock: %w", err)
	}
	return stock, nil
}

// ListSlotIDs returns every slot id, for reconciliation sweeps.
func (s *Store) ListSlotIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.getExecutor(ctx).Query(ctx, `SELECT id FROM slots`)
	if err != nil {
		return nil, fmt.Errorf("failed to list slot ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan slot id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
