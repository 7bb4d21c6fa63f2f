package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vouchermart/coupon-market/internal/model"
	"vouchermart/coupon-market/internal/service"
)

type AdminHandler struct {
	catalog   *service.CatalogService
	inventory *service.InventoryService
	wallet    *service.WalletService
	topup     *service.TopupService
}

func NewAdminHandler(catalog *service.CatalogService, inventory *service.InventoryService, wallet *service.WalletService, topup *service.TopupService) *AdminHandler {
	return &AdminHandler{
		catalog:   catalog,
		inventory: inventory,
		wallet:    wallet,
		topup:     topup,
	}
}

type TierRequest struct {
	MinQuantity int             `json:"min_quantity"`
	MaxQuantity *int            `json:"max_quantity,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Label       string          `json:"label"`
}

type CreateSlotRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	IsPublished bool          `json:"is_published"`
	ExpiryDate  *time.Time    `json:"expiry_date,omitempty"`
	Tiers       []TierRequest `json:"tiers"`
}

func (h *AdminHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	var req CreateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	slot, err := h.catalog.CreateSlot(r.Context(), model.Slot{
		Name:        req.Name,
		Description: req.Description,
		IsPublished: req.IsPublished,
		ExpiryDate:  req.ExpiryDate,
	}, tiersFromRequest(req.Tiers))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

func (h *AdminHandler) ReplaceTiers(w http.ResponseWriter, r *http.Request) {
	slotID, err := uuid.Parse(chi.URLParam(r, "slotID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot id")
		return
	}

	var req []TierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.catalog.ReplaceTiers(r.Context(), slotID, tiersFromRequest(req)); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "replaced"})
}

func tiersFromRequest(reqs []TierRequest) []model.PricingTier {
	tiers := make([]model.PricingTier, len(reqs))
	for i, t := range reqs {
		tiers[i] = model.PricingTier{
			MinQuantity: t.MinQuantity,
			MaxQuantity: t.MaxQuantity,
			UnitPrice:   t.UnitPrice,
			Label:       t.Label,
		}
	}
	return tiers
}

type UploadCouponsRequest struct {
	Codes []string `json:"codes"`
}

func (h *AdminHandler) UploadCoupons(w http.ResponseWriter, r *http.Request) {
	slotID, err := uuid.Parse(chi.URLParam(r, "slotID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot id")
		return
	}

	var req UploadCouponsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Codes) == 0 {
		writeError(w, http.StatusBadRequest, "codes are required")
		return
	}

	result, err := h.inventory.UploadCoupons(r.Context(), slotID, req.Codes)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	couponID, err := uuid.Parse(chi.URLParam(r, "couponID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid coupon id")
		return
	}

	result, err := h.inventory.DeleteCoupon(r.Context(), couponID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type RefundRequest struct {
	Reason string `json:"reason"`
}

func (h *AdminHandler) RefundTopup(w http.ResponseWriter, r *http.Request) {
	topupID, err := uuid.Parse(chi.URLParam(r, "topupID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid topup id")
		return
	}

	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.topup.RefundTopup(r.Context(), topupID, req.Reason); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refunded"})
}

type AdjustBalanceRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Direction string          `json:"direction"` // add | deduct
	Reason    string          `json:"reason,omitempty"`
}

func (h *AdminHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req AdjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Direction != service.AdjustDirectionAdd && req.Direction != service.AdjustDirectionDeduct {
		writeError(w, http.StatusBadRequest, "direction must be add or deduct")
		return
	}

	newBalance, err := h.wallet.AdjustBalance(r.Context(), userID, req.Amount, req.Direction, req.Reason)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"new_balance": newBalance.String()})
}

func (h *AdminHandler) ReconcileStock(w http.ResponseWriter, r *http.Request) {
	corrected, err := h.inventory.ReconcileStock(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	out := make(map[string]int, len(corrected))
	for id, stock := range corrected {
		out[id.String()] = stock
	}
	writeJSON(w, http.StatusOK, out)
}
