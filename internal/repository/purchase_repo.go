package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"vouchermart/coupon-market/internal/model"
)

func (s *Store) InsertPurchase(ctx context.Context, p model.Purchase) error {
	_, err := s.getExecutor(ctx).Exec(ctx, `
		INSERT INTO purchases (id, order_number, user_id, slot_id, quantity, unit_price, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.OrderNumber, p.UserID, p.SlotID, p.Quantity, p.UnitPrice, p.TotalPrice, p.Status)
	if err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}
	return nil
}

// ListPurchases returns a user's purchases newest first, narrowed by the
// filter. Filter dimensions translate to bound parameters, never string
// interpolation.
func (s *Store) ListPurchases(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]model.Purchase, error) {
	where, args := filter.WithSearchColumn("order_number").Build("user_id = $1", userID)
	query := `
		SELECT id, order_number, user_id, slot_id, quantity, unit_price, total_price, status, created_at
		FROM purchases WHERE ` + where + ` ORDER BY created_at DESC`

	rows, err := s.getExecutor(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []model.Purchase
	for rows.Next() {
		var p model.Purchase
		if err := rows.Scan(
			&p.ID, &p.OrderNumber, &p.UserID, &p.SlotID, &p.Quantity,
			&p.UnitPrice, &p.TotalPrice, &p.Status, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}
