package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type createOrderRequest struct {
	ShippingAddress string  `json:"shippingAddress"`
	PaymentMethod   string  `json:"paymentMethod"`
	TotalPrice      float64 `json:"totalPrice"`
	CouponCode      string  `json:"couponCode,omitempty"`
}

type createOrderResponse struct {
	Data struct {
		ID string `json:"_id"`
	} `json:"data"`
	SessionID string `json:"sessionId"`
}

type ordersResponse struct {
	Data []domain.Order `json:"data"`
}

type orderResponse struct {
	Data domain.Order `json:"data"`
}

// CreateOrder submits draft. idempotencyKey lets the server drop duplicate
// submissions of the same checkout attempt.
func (c *Client) CreateOrder(ctx context.Context, draft domain.OrderDraft, idempotencyKey string) (*domain.OrderResult, error) {
	req := createOrderRequest{
		ShippingAddress: draft.ShippingAddress,
		PaymentMethod:   draft.PaymentMethod.String(),
		TotalPrice:      draft.TotalPrice.InexactFloat64(),
		CouponCode:      draft.CouponCode,
	}

	var resp createOrderResponse
	if err := c.do(ctx, http.MethodPost, "/orders", "orders.create", req, &resp, withIdempotencyKey(idempotencyKey)); err != nil {
		return nil, err
	}
	if resp.Data.ID == "" && resp.SessionID == "" {
		return nil, errors.New("create order: response carries neither order id nor session id")
	}
	return &domain.OrderResult{OrderID: resp.Data.ID, SessionID: resp.SessionID}, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var resp ordersResponse
	if err := c.do(ctx, http.MethodGet, "/orders", "orders.list", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		resp.Data = []domain.Order{}
	}
	return resp.Data, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var resp orderResponse
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), "orders.get", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}
