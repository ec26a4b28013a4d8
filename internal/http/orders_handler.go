package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type OrdersAPI interface {
	ListOrders(ctx context.Context) ([]domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

type Session interface {
	Authenticated() bool
}

type OrdersHandler struct {
	orders  OrdersAPI
	session Session
	timeout time.Duration
	logger  *slog.Logger
}

func NewOrdersHandler(orders OrdersAPI, session Session, timeout time.Duration, logger *slog.Logger) *OrdersHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrdersHandler{orders: orders, session: session, timeout: timeout, logger: logger}
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if !h.session.Authenticated() {
		handleError(w, domain.ErrUnauthenticated)
		return
	}

	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		h.logger.Warn("list orders failed", "request_id", getRequestID(r.Context()), "error", err)
		handleError(w, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if !h.session.Authenticated() {
		handleError(w, domain.ErrUnauthenticated)
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "order_id"))
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id is required")
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		h.logger.Warn("get order failed", "request_id", getRequestID(r.Context()), "order_id", orderID, "error", err)
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
