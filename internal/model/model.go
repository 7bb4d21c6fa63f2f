package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase statuses.
const (
	PurchaseStatusCompleted = "completed"
	PurchaseStatusFailed    = "failed"
	PurchaseStatusRefunded  = "refunded"
)

// Topup statuses.
const (
	TopupStatusPending  = "pending"
	TopupStatusSuccess  = "success"
	TopupStatusFailed   = "failed"
	TopupStatusRefunded = "refunded"
)

// Payment methods recorded on audit topups for manual admin adjustments.
const (
	PaymentMethodAdminCredit = "admin_credit"
	PaymentMethodAdminDebit  = "admin_debit"
)

// Ledger entry event kinds. Together with the event id they form the
// idempotency key for a balance mutation.
const (
	LedgerEventPurchase = "purchase"
	LedgerEventTopup    = "topup"
	LedgerEventRefund   = "refund"
	LedgerEventAdjust   = "adjustment"
)

// Slot is a sellable coupon product line. AvailableStock, TotalUploaded and
// TotalSold are caches over the coupon rows and are only ever mutated in the
// same transaction as the rows they summarize.
type Slot struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	Name           string        `json:"name" db:"name"`
	Description    string        `json:"description" db:"description"`
	IsPublished    bool          `json:"is_published" db:"is_published"`
	AvailableStock int           `json:"available_stock" db:"available_stock"`
	TotalUploaded  int           `json:"total_uploaded" db:"total_uploaded"`
	TotalSold      int           `json:"total_sold" db:"total_sold"`
	ExpiryDate     *time.Time    `json:"expiry_date,omitempty" db:"expiry_date"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	Tiers          []PricingTier `json:"tiers,omitempty" db:"-"`
}

// PricingTier maps a quantity range to a unit price. MaxQuantity nil means
// unbounded. Tiers for a slot are stored sorted by MinQuantity ascending and
// replaced wholesale on edit.
type PricingTier struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	SlotID      uuid.UUID       `json:"slot_id" db:"slot_id"`
	MinQuantity int             `json:"min_quantity" db:"min_quantity"`
	MaxQuantity *int            `json:"max_quantity,omitempty" db:"max_quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Label       string          `json:"label" db:"label"`
}

// Contains reports whether quantity falls inside the tier's range.
func (t PricingTier) Contains(quantity int) bool {
	if quantity < t.MinQuantity {
		return false
	}
	return t.MaxQuantity == nil || quantity <= *t.MaxQuantity
}

// Coupon is one redeemable code. A coupon is claimed at most once: IsSold
// flips true together with SoldTo/SoldAt/PurchaseID and never flips back.
type Coupon struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	SlotID     uuid.UUID  `json:"slot_id" db:"slot_id"`
	Code       string     `json:"code" db:"code"`
	IsSold     bool       `json:"is_sold" db:"is_sold"`
	SoldTo     *uuid.UUID `json:"sold_to,omitempty" db:"sold_to"`
	SoldAt     *time.Time `json:"sold_at,omitempty" db:"sold_at"`
	PurchaseID *uuid.UUID `json:"purchase_id,omitempty" db:"purchase_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// UserProfile holds a user's wallet. Balance never goes below zero;
// TotalSpent and TotalPurchased are monotonically non-decreasing.
type UserProfile struct {
	UserID         uuid.UUID       `json:"user_id" db:"user_id"`
	WalletBalance  decimal.Decimal `json:"wallet_balance" db:"wallet_balance"`
	IsBlocked      bool            `json:"is_blocked" db:"is_blocked"`
	TotalSpent     decimal.Decimal `json:"total_spent" db:"total_spent"`
	TotalPurchased int             `json:"total_purchased" db:"total_purchased"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Purchase is the immutable record of one completed buy transaction.
type Purchase struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderNumber string          `json:"order_number" db:"order_number"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	SlotID      uuid.UUID       `json:"slot_id" db:"slot_id"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price" db:"total_price"`
	Status      string          `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Topup is a wallet funding request tied to an external payment-gateway
// transaction id.
type Topup struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        uuid.UUID       `json:"user_id" db:"user_id"`
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Status        string          `json:"status" db:"status"`
	PaymentMethod string          `json:"payment_method" db:"payment_method"`
	VerifiedAt    *time.Time      `json:"verified_at,omitempty" db:"verified_at"`
	RefundedAt    *time.Time      `json:"refunded_at,omitempty" db:"refunded_at"`
	RefundReason  *string         `json:"refund_reason,omitempty" db:"refund_reason"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// CanSettle reports whether the topup may transition to success or failed.
// Only pending topups settle; anything else is a state-machine violation.
func (t Topup) CanSettle() bool {
	return t.Status == TopupStatusPending
}

// CanRefund reports whether the topup may transition to refunded.
func (t Topup) CanRefund() bool {
	return t.Status == TopupStatusSuccess
}

// LedgerEntry is one append-only balance mutation. The (EventKind, EventID)
// pair is unique, which is what makes Credit/Debit replays detectable.
type LedgerEntry struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    uuid.UUID       `json:"user_id" db:"user_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	EventKind string          `json:"event_kind" db:"event_kind"`
	EventID   uuid.UUID       `json:"event_id" db:"event_id"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// PurchaseReceipt is what ExecutePurchase hands back to the caller: the order
// plus the exact codes claimed for it.
type PurchaseReceipt struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Codes       []string        `json:"codes"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	NewBalance  decimal.Decimal `json:"new_balance"`
}
