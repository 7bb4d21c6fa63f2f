package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vouchermart/coupon-market/internal/logger"
	"vouchermart/coupon-market/internal/repository"
)

var ErrCouponNotFound = errors.New("coupon not found")

const reconcileConcurrency = 4

type InventoryService struct {
	store *repository.Store
}

func NewInventoryService(store *repository.Store) *InventoryService {
	return &InventoryService{store: store}
}

// UploadResult reports how a bulk upload landed.
type UploadResult struct {
	Requested int `json:"requested"`
	Inserted  int `json:"inserted"`
	Skipped   int `json:"skipped"`
}

// UploadCoupons bulk-adds codes to a slot. Codes that already exist anywhere
// are skipped, not errors, so re-uploading the same file is harmless. The
// inserts and the counter bump share one transaction.
func (s *InventoryService) UploadCoupons(ctx context.Context, slotID uuid.UUID, codes []string) (UploadResult, error) {
	var result UploadResult
	err := s.store.RunAtomic(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetSlotForUpdate(ctx, slotID); err != nil {
			if errors.Is(err, repository.ErrSlotNotFound) {
				return ErrSlotNotFound
			}
			return err
		}

		inserted, err := s.store.InsertCoupons(ctx, slotID, codes)
		if err != nil {
			return err
		}
		if err := s.store.AdjustSlotCounters(ctx, slotID, inserted, inserted, 0); err != nil {
			return err
		}

		result = UploadResult{
			Requested: len(codes),
			Inserted:  inserted,
			Skipped:   len(codes) - inserted,
		}
		return nil
	})
	if err != nil {
		return UploadResult{}, err
	}

	logger.Log.Info("coupons uploaded",
		zap.String("slotID", slotID.String()),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// DeleteResult reports a coupon deletion. RevokedSoldCoupon flags that the
// deleted coupon had already been delivered to a customer: the delete went
// through, but the customer lost access to a code they paid for.
type DeleteResult struct {
	RevokedSoldCoupon bool `json:"revoked_sold_coupon"`
}

// DeleteCoupon hard-deletes one coupon. Unsold deletes also shrink the
// slot's stock counters; sold deletes leave the counters alone (the code was
// already off the shelf) but are flagged so the caller can warn the admin.
func (s *InventoryService) DeleteCoupon(ctx context.Context, couponID uuid.UUID) (DeleteResult, error) {
	var result DeleteResult
	err := s.store.RunAtomic(ctx, func(ctx context.Context) error {
		// Unlocked read to learn the slot, then slot lock before coupon
		// lock, matching the purchase path's lock order.
		peek, err := s.store.GetCoupon(ctx, couponID)
		if err != nil {
			if errors.Is(err, repository.ErrCouponNotFound) {
				return ErrCouponNotFound
			}
			return err
		}
		if _, err := s.store.GetSlotForUpdate(ctx, peek.SlotID); err != nil {
			return err
		}

		coupon, err := s.store.GetCouponForUpdate(ctx, couponID)
		if err != nil {
			if errors.Is(err, repository.ErrCouponNotFound) {
				return ErrCouponNotFound
			}
			return err
		}
		if err := s.store.DeleteCoupon(ctx, couponID); err != nil {
			return err
		}

		if coupon.IsSold {
			result.RevokedSoldCoupon = true
			logger.Log.Warn("deleted a sold coupon, customer access revoked",
				zap.String("couponID", couponID.String()),
				zap.Any("purchaseID", coupon.PurchaseID))
			return s.store.AdjustSlotCounters(ctx, coupon.SlotID, 0, -1, 0)
		}
		return s.store.AdjustSlotCounters(ctx, coupon.SlotID, -1, -1, 0)
	})
	if err != nil {
		return DeleteResult{}, err
	}
	return result, nil
}

// ReconcileStock recomputes available_stock from the coupon rows for every
// slot, healing any counter drift from writes that bypassed the transaction
// boundary. Slots are recounted a few at a time.
func (s *InventoryService) ReconcileStock(ctx context.Context) (map[uuid.UUID]int, error) {
	ids, err := s.store.ListSlotIDs(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	corrected := make(map[uuid.UUID]int, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			stock, err := s.store.RecountSlotStock(ctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			corrected[id] = stock
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Log.Info("stock reconciled", zap.Int("slots", len(corrected)))
	return corrected, nil
}
