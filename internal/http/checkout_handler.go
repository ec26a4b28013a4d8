package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
)

type CheckoutService interface {
	Prepare(ctx context.Context) (*checkout.Summary, error)
	Submit(ctx context.Context, summary *checkout.Summary, form checkout.Form) (*checkout.Result, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	timeout  time.Duration
	logger   *slog.Logger
}

func NewCheckoutHandler(svc CheckoutService, timeout time.Duration, logger *slog.Logger) *CheckoutHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutHandler{checkout: svc, timeout: timeout, logger: logger}
}

// GET /api/v1/checkout
func (h *CheckoutHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	summary, err := h.checkout.Prepare(ctx)
	if err != nil {
		h.logger.Warn("checkout summary failed", "request_id", getRequestID(r.Context()), "error", err)
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// POST /api/v1/checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var form checkout.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// Totals are recomputed from a fresh snapshot; the client never sends them.
	summary, err := h.checkout.Prepare(ctx)
	if err != nil {
		h.logger.Warn("checkout summary failed", "request_id", getRequestID(r.Context()), "error", err)
		handleError(w, err)
		return
	}

	result, err := h.checkout.Submit(ctx, summary, form)
	if err != nil {
		h.logger.Warn("place order failed", "request_id", getRequestID(r.Context()), "error", err)
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}
