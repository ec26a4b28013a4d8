package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CheckoutSnapshot is the full, unpaginated cart fetched for checkout.
type CheckoutSnapshot struct {
	Items []CartItem `json:"items"`
}

func (s CheckoutSnapshot) Subtotal() decimal.Decimal {
	return SumItems(s.Items)
}

func (s CheckoutSnapshot) Empty() bool {
	return len(s.Items) == 0
}

// CouponApplication is the currently active discount code.
type CouponApplication struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentOnline PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentOnline
}

func (m PaymentMethod) String() string {
	return string(m)
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", &ValidationError{Field: "paymentMethod", Message: "payment method is required"}
	}
	m := PaymentMethod(strings.ToLower(trimmed))
	if !m.Valid() {
		return "", &ValidationError{Field: "paymentMethod", Message: fmt.Sprintf("unsupported payment method %q", s)}
	}
	return m, nil
}

// OrderDraft is the client-assembled payload for a new order.
type OrderDraft struct {
	ShippingAddress string
	PaymentMethod   PaymentMethod
	TotalPrice      decimal.Decimal
	CouponCode      string
}

// OrderResult carries either a confirmed order id (cash) or a payment
// session id (online).
type OrderResult struct {
	OrderID   string
	SessionID string
}

// Total computes subtotal - discount + shipping. The discount is clamped to
// [0, subtotal].
func Total(subtotal, discount, shipping decimal.Decimal) decimal.Decimal {
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return subtotal.Sub(discount).Add(shipping)
}
