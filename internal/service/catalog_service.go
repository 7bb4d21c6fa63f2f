package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"vouchermart/coupon-market/internal/model"
	"vouchermart/coupon-market/internal/pricing"
	"vouchermart/coupon-market/internal/repository"
)

// CatalogService covers the storefront reads and the thin admin slot setup.
type CatalogService struct {
	store *repository.Store
}

func NewCatalogService(store *repository.Store) *CatalogService {
	return &CatalogService{store: store}
}

func (s *CatalogService) ListPublishedSlots(ctx context.Context) ([]model.Slot, error) {
	return s.store.ListPublishedSlots(ctx)
}

// GetSlot returns a slot with its tiers attached.
func (s *CatalogService) GetSlot(ctx context.Context, slotID uuid.UUID) (model.Slot, error) {
	slot, err := s.store.GetSlot(ctx, slotID)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return model.Slot{}, ErrSlotNotFound
		}
		return model.Slot{}, err
	}
	tiers, err := s.store.GetSlotTiers(ctx, slotID)
	if err != nil {
		return model.Slot{}, err
	}
	slot.Tiers = tiers
	return slot, nil
}

// CreateSlot creates a slot and its initial tier set in one transaction.
// The tier set is validated as a whole before anything is written; it is
// replaced wholesale on later edits too.
func (s *CatalogService) CreateSlot(ctx context.Context, slot model.Slot, tiers []model.PricingTier) (model.Slot, error) {
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	for i := range tiers {
		if tiers[i].ID == uuid.Nil {
			tiers[i].ID = uuid.New()
		}
		tiers[i].SlotID = slot.ID
	}
	if len(tiers) > 0 {
		// Probe with the lowest min to reuse the resolver's validation.
		if _, _, err := pricing.ResolveTier(tiers, tiers[0].MinQuantity); err != nil {
			return model.Slot{}, ErrConfiguration
		}
	}

	err := s.store.RunAtomic(ctx, func(ctx context.Context) error {
		if err := s.store.CreateSlot(ctx, slot); err != nil {
			return err
		}
		return s.store.ReplaceTiers(ctx, slot.ID, tiers)
	})
	if err != nil {
		return model.Slot{}, err
	}
	return slot, nil
}

// ReplaceTiers swaps a slot's tier set wholesale after validating it.
func (s *CatalogService) ReplaceTiers(ctx context.Context, slotID uuid.UUID, tiers []model.PricingTier) error {
	for i := range tiers {
		if tiers[i].ID == uuid.Nil {
			tiers[i].ID = uuid.New()
		}
		tiers[i].SlotID = slotID
	}
	if len(tiers) > 0 {
		if _, _, err := pricing.ResolveTier(tiers, tiers[0].MinQuantity); err != nil {
			return ErrConfiguration
		}
	}
	return s.store.RunAtomic(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetSlotForUpdate(ctx, slotID); err != nil {
			if errors.Is(err, repository.ErrSlotNotFound) {
				return ErrSlotNotFound
			}
			return err
		}
		return s.store.ReplaceTiers(ctx, slotID, tiers)
	})
}
