package repository

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS slots (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		is_published BOOLEAN NOT NULL DEFAULT FALSE,
		available_stock INT NOT NULL DEFAULT 0,
		total_uploaded INT NOT NULL DEFAULT 0,
		total_sold INT NOT NULL DEFAULT 0,
		expiry_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS pricing_tiers (
		id UUID PRIMARY KEY,
		slot_id UUID NOT NULL REFERENCES slots(id) ON DELETE CASCADE,
		min_quantity INT NOT NULL CHECK (min_quantity >= 1),
		max_quantity INT,
		unit_price DECIMAL(12, 2) NOT NULL CHECK (unit_price >= 0),
		label VARCHAR(100) NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		user_id UUID PRIMARY KEY,
		wallet_balance DECIMAL(12, 2) NOT NULL DEFAULT 0.00 CHECK (wallet_balance >= 0),
		is_blocked BOOLEAN NOT NULL DEFAULT FALSE,
		total_spent DECIMAL(12, 2) NOT NULL DEFAULT 0.00,
		total_purchased INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS purchases (
		id UUID PRIMARY KEY,
		order_number VARCHAR(32) UNIQUE NOT NULL,
		user_id UUID NOT NULL REFERENCES user_profiles(user_id),
		slot_id UUID NOT NULL REFERENCES slots(id),
		quantity INT NOT NULL CHECK (quantity >= 1),
		unit_price DECIMAL(12, 2) NOT NULL,
		total_price DECIMAL(12, 2) NOT NULL,
		status VARCHAR(20) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS coupons (
		id UUID PRIMARY KEY,
		slot_id UUID NOT NULL REFERENCES slots(id) ON DELETE CASCADE,
		code VARCHAR(255) UNIQUE NOT NULL,
		is_sold BOOLEAN NOT NULL DEFAULT FALSE,
		sold_to UUID,
		sold_at TIMESTAMPTZ,
		purchase_id UUID REFERENCES purchases(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_coupons_slot_unsold
		ON coupons (slot_id) WHERE is_sold = FALSE;`,
	`CREATE TABLE IF NOT EXISTS topups (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES user_profiles(user_id),
		transaction_id VARCHAR(255) UNIQUE NOT NULL,
		amount DECIMAL(12, 2) NOT NULL CHECK (amount > 0),
		status VARCHAR(20) NOT NULL,
		payment_method VARCHAR(50) NOT NULL DEFAULT '',
		verified_at TIMESTAMPTZ,
		refunded_at TIMESTAMPTZ,
		refund_reason TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES user_profiles(user_id),
		amount DECIMAL(12, 2) NOT NULL,
		event_kind VARCHAR(20) NOT NULL,
		event_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (event_kind, event_id)
	);`,
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
