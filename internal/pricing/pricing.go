package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"vouchermart/coupon-market/internal/model"
)

var (
	// ErrNoTiers means the slot has no pricing configured at all.
	ErrNoTiers = errors.New("slot has no pricing tiers")

	// ErrOverlappingTiers means the stored tier set is corrupt (admin data
	// error, not user error). Callers must treat this as fatal for the
	// operation, never default a price.
	ErrOverlappingTiers = errors.New("pricing tiers overlap")
)

// ResolveTier picks the tier covering quantity and returns its unit price.
//
// Tiers are expected pre-sorted by MinQuantity ascending; the non-overlap
// precondition is re-checked here and violations fail fast. Quantities below
// the lowest tier's minimum (or above every bounded tier without an unbounded
// tail) fall back to the first tier's unit price: the first tier is the base
// price of the slot.
func ResolveTier(tiers []model.PricingTier, quantity int) (decimal.Decimal, *model.PricingTier, error) {
	if len(tiers) == 0 {
		return decimal.Zero, nil, ErrNoTiers
	}
	if quantity < 1 {
		return decimal.Zero, nil, fmt.Errorf("quantity must be at least 1, got %d", quantity)
	}
	if err := validate(tiers); err != nil {
		return decimal.Zero, nil, err
	}

	for i := range tiers {
		if tiers[i].Contains(quantity) {
			return tiers[i].UnitPrice, &tiers[i], nil
		}
	}

	// Base-price fallback: no tier covers the quantity, charge the first
	// tier's price.
	return tiers[0].UnitPrice, nil, nil
}

func validate(tiers []model.PricingTier) error {
	for i, t := range tiers {
		if t.MinQuantity < 1 {
			return fmt.Errorf("%w: tier %q has min_quantity %d", ErrOverlappingTiers, t.Label, t.MinQuantity)
		}
		if t.MaxQuantity != nil && *t.MaxQuantity < t.MinQuantity {
			return fmt.Errorf("%w: tier %q has max_quantity %d below min_quantity %d",
				ErrOverlappingTiers, t.Label, *t.MaxQuantity, t.MinQuantity)
		}
		if t.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: tier %q has negative unit price", ErrOverlappingTiers, t.Label)
		}
		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if t.MinQuantity < prev.MinQuantity {
			return fmt.Errorf("%w: tiers not sorted by min_quantity", ErrOverlappingTiers)
		}
		// The previous tier must be bounded and end before this one starts.
		if prev.MaxQuantity == nil || *prev.MaxQuantity >= t.MinQuantity {
			return fmt.Errorf("%w: tier %q overlaps tier %q", ErrOverlappingTiers, prev.Label, t.Label)
		}
	}
	return nil
}
