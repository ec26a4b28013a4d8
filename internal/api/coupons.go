package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

type applyCouponRequest struct {
	CouponCode string `json:"couponCode"`
}

type CouponResult struct {
	Discount decimal.Decimal `json:"discount"`
	Message  string          `json:"message"`
}

// ApplyCoupon validates code against the current cart on the server.
func (c *Client) ApplyCoupon(ctx context.Context, code string) (*CouponResult, error) {
	var resp CouponResult
	if err := c.do(ctx, http.MethodPost, "/coupons/apply-coupon", "coupons.apply", applyCouponRequest{CouponCode: code}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
