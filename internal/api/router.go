package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Cheertaboi/coupon-service/internal/api/handlers"
	"github.com/Cheertaboi/coupon-service/internal/api/middleware"
)

// NewRouter builds the HTTP router for the coupon-service
func NewRouter(svc handlers.CouponService, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	couponHandler := handlers.NewCouponHandler(svc, logger)

	// Checkout-facing coupon endpoints
	r.Route("/coupons", func(r chi.Router) {
		r.Post("/applicable", couponHandler.GetApplicableCoupons)
		r.Post("/best", couponHandler.BestCoupon)
		r.Post("/validate", couponHandler.ValidateCoupon)
		r.Post("/redeem", couponHandler.RedeemCoupon)
	})

	// Admin endpoints
	r.Route("/admin", func(r chi.Router) {
		r.Post("/coupons", couponHandler.CreateCoupon)
		r.Get("/coupons/{code}", couponHandler.GetCoupon)
		r.Post("/coupons/sweep", couponHandler.SweepStatuses)
	})

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
