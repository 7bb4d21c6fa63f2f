package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vouchermart/coupon-market/internal/service"
)

type TopupHandler struct {
	svc *service.TopupService
}

func NewTopupHandler(svc *service.TopupService) *TopupHandler {
	return &TopupHandler{svc: svc}
}

type CreateTopupRequest struct {
	UserID        uuid.UUID       `json:"user_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
}

func (h *TopupHandler) CreateTopup(w http.ResponseWriter, r *http.Request) {
	var req CreateTopupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == uuid.Nil || req.TransactionID == "" {
		writeError(w, http.StatusBadRequest, "user_id and transaction_id are required")
		return
	}

	topup, err := h.svc.CreateTopup(r.Context(), req.UserID, req.TransactionID, req.Amount, req.PaymentMethod)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, topup)
}

// SettleRequest is the gateway's terminal outcome signal. Signature checks
// and gateway protocol detail live at the boundary, not here.
type SettleRequest struct {
	TransactionID string `json:"transaction_id"`
	Outcome       string `json:"outcome"`
}

func (h *TopupHandler) SettleTopup(w http.ResponseWriter, r *http.Request) {
	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TransactionID == "" {
		writeError(w, http.StatusBadRequest, "transaction_id is required")
		return
	}

	if err := h.svc.SettleTopup(r.Context(), req.TransactionID, req.Outcome); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "settled"})
}

func (h *TopupHandler) ListTopups(w http.ResponseWriter, r *http.Request) {
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

	topups, err := h.svc.ListTopups(r.Context(), userID, filter)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topups)
}
