package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handler struct {
	router *chi.Mux

	catalog  *CatalogHandler
	purchase *PurchaseHandler
	wallet   *WalletHandler
	topup    *TopupHandler
	admin    *AdminHandler
}

func NewHandler(catalog *CatalogHandler, purchase *PurchaseHandler, wallet *WalletHandler, topup *TopupHandler, admin *AdminHandler) *Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	h := &Handler{
		router:   router,
		catalog:  catalog,
		purchase: purchase,
		wallet:   wallet,
		topup:    topup,
		admin:    admin,
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	h.router.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthCheck)

		// Storefront
		r.Get("/slots", h.catalog.ListSlots)
		r.Get("/slots/{slotID}", h.catalog.GetSlot)
		r.Post("/purchases", h.purchase.ExecutePurchase)
		r.Get("/users/{userID}/purchases", h.purchase.ListPurchases)
		r.Get("/users/{userID}/balance", h.wallet.GetBalance)

		// Topups: created from the app, settled by the gateway callback.
		r.Post("/topups", h.topup.CreateTopup)
		r.Post("/topups/settle", h.topup.SettleTopup)
		r.Get("/users/{userID}/topups", h.topup.ListTopups)

		// Back office
		r.Route("/admin", func(r chi.Router) {
			r.Post("/slots", h.admin.CreateSlot)
			r.Put("/slots/{slotID}/tiers", h.admin.ReplaceTiers)
			r.Post("/slots/{slotID}/coupons", h.admin.UploadCoupons)
			r.Delete("/coupons/{couponID}", h.admin.DeleteCoupon)
			r.Post("/topups/{topupID}/refund", h.admin.RefundTopup)
			r.Post("/users/{userID}/balance", h.admin.AdjustBalance)
			r.Post("/reconcile-stock", h.admin.ReconcileStock)
		})
	})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
