package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vouchermart/coupon-market/internal/repository"
	"vouchermart/coupon-market/internal/service"
)

type PurchaseHandler struct {
	svc *service.PurchaseService
}

func NewPurchaseHandler(svc *service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{svc: svc}
}

type PurchaseRequest struct {
	UserID   uuid.UUID `json:"user_id"`
	SlotID   uuid.UUID `json:"slot_id"`
	Quantity int       `json:"quantity"` // defaults to 1 if 0
}

func (h *PurchaseHandler) ExecutePurchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == uuid.Nil || req.SlotID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "user_id and slot_id are required")
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	receipt, err := h.svc.ExecutePurchase(r.Context(), req.UserID, req.SlotID, quantity)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *PurchaseHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	purchases, err := h.svc.ListPurchases(r.Context(), userID, filter)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, purchases)
}

// filterFromQuery reads the shared listing filter dimensions:
// ?status=...&search=...&from=RFC3339&to=RFC3339
func filterFromQuery(r *http.Request) (repository.ListFilter, error) {
	filter := repository.ListFilter{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return repository.ListFilter{}, err
		}
		filter.From = &t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return repository.ListFilter{}, err
		}
		filter.To = &t
	}
	return filter, nil
}
