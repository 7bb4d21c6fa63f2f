package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"vouchermart/coupon-market/internal/logger"
	"vouchermart/coupon-market/internal/service"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// respondError maps the service error taxonomy onto HTTP statuses. Business
// errors pass their message through so the storefront can show an actionable
// reason; anything unrecognized is logged and masked as a 500.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSlotNotFound),
		errors.Is(err, service.ErrTopupNotFound),
		errors.Is(err, service.ErrCouponNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUserBlocked):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrSlotUnpublished),
		errors.Is(err, service.ErrInvalidStateTransition),
		errors.Is(err, service.ErrDuplicateTransaction):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrTransient):
		writeError(w, http.StatusServiceUnavailable, "temporary conflict, please retry")
	default:
		logger.Log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
