package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type CouponService interface {
	Apply(ctx context.Context, code string) (domain.CouponApplication, error)
	Remove()
	Active() (domain.CouponApplication, bool)
}

type CouponHandler struct {
	coupons CouponService
	timeout time.Duration
	logger  *slog.Logger
}

func NewCouponHandler(coupons CouponService, timeout time.Duration, logger *slog.Logger) *CouponHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CouponHandler{coupons: coupons, timeout: timeout, logger: logger}
}

type ApplyCouponRequestDTO struct {
	Code string `json:"code"`
}

type CouponResponseDTO struct {
	Active   bool   `json:"active"`
	Code     string `json:"code,omitempty"`
	Discount string `json:"discount"`
}

func couponResponse(app domain.CouponApplication, active bool) CouponResponseDTO {
	return CouponResponseDTO{Active: active, Code: app.Code, Discount: app.Discount.StringFixed(2)}
}

// POST /api/v1/coupon
func (h *CouponHandler) Apply(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ApplyCouponRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	app, err := h.coupons.Apply(ctx, req.Code)
	if err != nil {
		h.logger.Warn("apply coupon failed", "request_id", getRequestID(r.Context()), "error", err)
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, couponResponse(app, true))
}

// DELETE /api/v1/coupon
func (h *CouponHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.coupons.Remove()
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/coupon
func (h *CouponHandler) Get(w http.ResponseWriter, r *http.Request) {
	app, ok := h.coupons.Active()
	respondJSON(w, http.StatusOK, couponResponse(app, ok))
}
