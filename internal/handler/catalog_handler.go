package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vouchermart/coupon-market/internal/model"
	"vouchermart/coupon-market/internal/service"
)

type CatalogHandler struct {
	svc *service.CatalogService
}

func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

func (h *CatalogHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.svc.ListPublishedSlots(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if slots == nil {
		slots = []model.Slot{}
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *CatalogHandler) GetSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := uuid.Parse(chi.URLParam(r, "slotID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot id")
		return
	}

	slot, err := h.svc.GetSlot(r.Context(), slotID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}
