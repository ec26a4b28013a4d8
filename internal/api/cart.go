package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type cartPageResponse struct {
	Data       []domain.CartItem `json:"data"`
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
	TotalItems *int              `json:"totalItems"`
	Subtotal   decimal.Decimal   `json:"subtotal"`
}

type checkoutResponse struct {
	Data []domain.CartItem `json:"data"`
}

type addItemRequest struct {
	ProductID string `json:"productId"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// GetCartPage fetches one page of the server cart (GET /cart?page=N).
func (c *Client) GetCartPage(ctx context.Context, page int) (*domain.CartPage, error) {
	var resp cartPageResponse
	path := fmt.Sprintf("/cart?page=%d", page)
	if err := c.do(ctx, http.MethodGet, path, "cart.get", nil, &resp); err != nil {
		return nil, err
	}

	cp := &domain.CartPage{
		Items:      resp.Data,
		Page:       resp.Page,
		TotalPages: resp.TotalPages,
		Subtotal:   resp.Subtotal,
	}
	switch {
	case resp.TotalItems != nil:
		cp.TotalItems = *resp.TotalItems
	case resp.TotalPages > 1:
		// Other pages are not in hand; count lines from the full cart.
		snapshot, err := c.GetCheckoutSnapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("count cart items: %w", err)
		}
		cp.TotalItems = len(snapshot.Items)
	}
	if cp.Items == nil {
		cp.Items = []domain.CartItem{}
	}
	if cp.Page == 0 {
		cp.Page = page
	}
	cp.Normalize()
	return cp, nil
}

// GetCheckoutSnapshot fetches the unpaginated cart (GET /cart/checkout).
func (c *Client) GetCheckoutSnapshot(ctx context.Context) (*domain.CheckoutSnapshot, error) {
	var resp checkoutResponse
	if err := c.do(ctx, http.MethodGet, "/cart/checkout", "cart.checkout", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		resp.Data = []domain.CartItem{}
	}
	return &domain.CheckoutSnapshot{Items: resp.Data}, nil
}

func (c *Client) AddCartItem(ctx context.Context, productID string) error {
	return c.do(ctx, http.MethodPost, "/cart", "cart.add", addItemRequest{ProductID: productID}, nil)
}

func (c *Client) UpdateCartItem(ctx context.Context, productID string, quantity int) error {
	path := "/cart/" + url.PathEscape(productID)
	return c.do(ctx, http.MethodPut, path, "cart.update", updateQuantityRequest{Quantity: quantity}, nil)
}

func (c *Client) RemoveCartItem(ctx context.Context, productID string) error {
	path := "/cart/" + url.PathEscape(productID)
	return c.do(ctx, http.MethodDelete, path, "cart.remove", nil, nil)
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/cart", "cart.clear", nil, nil)
}
