package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cartsync"
	"github.com/go-chi/chi/v5"
)

type CartStore interface {
	FetchPage(ctx context.Context, page int) (cartsync.View, error)
	AddItem(ctx context.Context, productID string) error
	UpdateQuantity(ctx context.Context, productID string, quantity int) error
	RemoveItem(ctx context.Context, productID string) error
	Clear(ctx context.Context) error
	View() cartsync.View
}

type CartHandler struct {
	store   CartStore
	timeout time.Duration
	logger  *slog.Logger
}

func NewCartHandler(store CartStore, timeout time.Duration, logger *slog.Logger) *CartHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CartHandler{
		store:   store,
		timeout: timeout,
		logger:  logger,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

// GET /api/v1/cart?page=N
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			respondError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
			return
		}
		page = p
	}

	view, err := h.store.FetchPage(ctx, page)
	if err != nil {
		h.fail(r, "get cart", err)
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.store.AddItem(ctx, req.ProductID); err != nil {
		h.fail(r, "add item", err)
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.store.View())
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity is required")
		return
	}

	if err := h.store.UpdateQuantity(ctx, productID, *req.Quantity); err != nil {
		h.fail(r, "update quantity", err)
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.store.View())
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.RemoveItem(ctx, chi.URLParam(r, "product_id")); err != nil {
		h.fail(r, "remove item", err)
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.store.View())
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.Clear(ctx); err != nil {
		h.fail(r, "clear cart", err)
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.store.View())
}

func (h *CartHandler) fail(r *http.Request, op string, err error) {
	h.logger.Warn(op+" failed", "request_id", getRequestID(r.Context()), "error", err)
}
