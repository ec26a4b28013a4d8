package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MinAddressLength = 3

	confirmationPath = "/order-confirmation/"

	msgLoginRequired  = "Please log in to check out"
	msgLoadFailed     = "Could not load your cart for checkout, please try again"
	msgOrderPlaced    = "Order placed successfully"
	msgRedirecting    = "Redirecting to payment"
	msgCheckoutFailed = "Something went wrong while placing your order, please try again"
)

// ErrIncompleteOrder reports an order response that lacks the identifier the
// chosen payment method needs.
var ErrIncompleteOrder = errors.New("incomplete order response")

type OrderAPI interface {
	GetCheckoutSnapshot(ctx context.Context) (*domain.CheckoutSnapshot, error)
	CreateOrder(ctx context.Context, draft domain.OrderDraft, idempotencyKey string) (*domain.OrderResult, error)
}

type ProfileAPI interface {
	GetProfile(ctx context.Context) (*api.Profile, error)
	UpdateAddresses(ctx context.Context, addresses []string) error
}

type Coupons interface {
	Active() (domain.CouponApplication, bool)
	Clear()
}

// Cart is the local cart representation dropped after a cash order.
type Cart interface {
	Reset(ctx context.Context)
}

type Session interface {
	Authenticated() bool
}

// Summary is the request-scoped composition shown on the checkout page.
type Summary struct {
	Items          []domain.CartItem `json:"items"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	Discount       decimal.Decimal   `json:"discount"`
	Shipping       decimal.Decimal   `json:"shipping"`
	Total          decimal.Decimal   `json:"total"`
	CouponCode     string            `json:"coupon_code,omitempty"`
	SavedAddresses []string          `json:"saved_addresses"`
}

type Form struct {
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"payment_method"`
}

type Result struct {
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	OrderID       string               `json:"order_id,omitempty"`
	SessionID     string               `json:"session_id,omitempty"`
	NavigateTo    string               `json:"navigate_to"`
	Total         decimal.Decimal      `json:"total"`
	CartCleared   bool                 `json:"cart_cleared"`
}

type Orchestrator struct {
	orders   OrderAPI
	profiles ProfileAPI
	coupons  Coupons
	cart     Cart
	session  Session
	shipping decimal.Decimal
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Deps struct {
	Orders   OrderAPI
	Profiles ProfileAPI
	Coupons  Coupons
	Cart     Cart
	Session  Session
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

func NewOrchestrator(d Deps, shipping decimal.Decimal) *Orchestrator {
	if d.Notifier == nil {
		d.Notifier = notify.Discard{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Orchestrator{
		orders:   d.Orders,
		profiles: d.Profiles,
		coupons:  d.Coupons,
		cart:     d.Cart,
		session:  d.Session,
		shipping: shipping,
		notifier: d.Notifier,
		metrics:  d.Metrics,
		logger:   d.Logger,
	}
}

// Prepare fetches the full checkout snapshot and computes the totals.
func (o *Orchestrator) Prepare(ctx context.Context) (*Summary, error) {
	if !o.session.Authenticated() {
		o.notifier.Notify(notify.LoginRequired(msgLoginRequired))
		return nil, domain.ErrUnauthenticated
	}

	snapshot, err := o.orders.GetCheckoutSnapshot(ctx)
	if err != nil {
		o.logger.Error("checkout snapshot failed", "error", err)
		o.notifier.Notify(notify.Error(notify.CodeCheckoutFailed, msgLoadFailed))
		return nil, fmt.Errorf("fetch checkout snapshot: %w", err)
	}

	summary := &Summary{
		Items:          snapshot.Items,
		Subtotal:       snapshot.Subtotal(),
		Shipping:       o.shipping,
		SavedAddresses: []string{},
	}
	o.applyCoupon(summary)

	profile, err := o.profiles.GetProfile(ctx)
	if err != nil {
		o.logger.Warn("saved addresses unavailable", "error", err)
	} else if profile.Addresses != nil {
		summary.SavedAddresses = profile.Addresses
	}
	return summary, nil
}

func (o *Orchestrator) applyCoupon(s *Summary) {
	s.Discount = decimal.Zero
	s.CouponCode = ""
	if app, ok := o.coupons.Active(); ok {
		s.Discount = app.Discount
		s.CouponCode = app.Code
	}
	if s.Discount.GreaterThan(s.Subtotal) {
		s.Discount = s.Subtotal
	}
	s.Total = domain.Total(s.Subtotal, s.Discount, s.Shipping)
}

// Submit validates form and places the order for summary. Nothing is sent
// when validation fails or the snapshot is empty.
func (o *Orchestrator) Submit(ctx context.Context, summary *Summary, form Form) (*Result, error) {
	if !o.session.Authenticated() {
		o.notifier.Notify(notify.LoginRequired(msgLoginRequired))
		return nil, domain.ErrUnauthenticated
	}

	address := strings.TrimSpace(form.ShippingAddress)
	if utf8.RuneCountInString(address) < MinAddressLength {
		return nil, &domain.ValidationError{Field: "shippingAddress", Message: "must be at least 3 characters"}
	}
	method, err := domain.ParsePaymentMethod(form.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if summary == nil || len(summary.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	// The coupon may have changed since Prepare.
	o.applyCoupon(summary)

	if !slices.Contains(summary.SavedAddresses, address) {
		o.saveAddress(ctx, summary.SavedAddresses, address)
	}

	draft := domain.OrderDraft{
		ShippingAddress: address,
		PaymentMethod:   method,
		TotalPrice:      summary.Total,
		CouponCode:      summary.CouponCode,
	}
	res, err := o.orders.CreateOrder(ctx, draft, uuid.NewString())
	if err == nil {
		err = matchesMethod(method, res)
	}
	o.metrics.CheckoutSubmission(method.String(), err)
	if err != nil {
		o.logger.Error("order submission failed", "payment_method", method, "error", err)
		o.notifier.Notify(notify.Error(notify.CodeCheckoutFailed, msgCheckoutFailed))
		return nil, fmt.Errorf("create order: %w", err)
	}

	result := &Result{PaymentMethod: method, Total: summary.Total}
	switch method {
	case domain.PaymentCash:
		result.OrderID = res.OrderID
		result.NavigateTo = confirmationPath + res.OrderID
		result.CartCleared = true
		o.cart.Reset(ctx)
		o.coupons.Clear()
		o.notifier.Notify(notify.Success(notify.CodeOrderPlaced, msgOrderPlaced))
	case domain.PaymentOnline:
		// The cart is emptied once the payment provider confirms.
		result.SessionID = res.SessionID
		result.NavigateTo = res.SessionID
		o.notifier.Notify(notify.Info(notify.CodePaymentRedirect, msgRedirecting))
	}

	o.logger.Info("order submitted", "payment_method", method, "order_id", res.OrderID, "total", summary.Total.String())
	return result, nil
}

// matchesMethod checks that res carries the identifier method needs: an order
// id for cash, a payment session id for online.
func matchesMethod(method domain.PaymentMethod, res *domain.OrderResult) error {
	if res == nil {
		return ErrIncompleteOrder
	}
	switch method {
	case domain.PaymentCash:
		if res.OrderID == "" {
			return fmt.Errorf("%w: cash order without order id", ErrIncompleteOrder)
		}
	case domain.PaymentOnline:
		if res.SessionID == "" {
			return fmt.Errorf("%w: online order without payment session", ErrIncompleteOrder)
		}
	}
	return nil
}

// saveAddress appends address to the profile. Failure does not block the
// order.
func (o *Orchestrator) saveAddress(ctx context.Context, saved []string, address string) {
	addresses := append(slices.Clone(saved), address)
	if err := o.profiles.UpdateAddresses(ctx, addresses); err != nil {
		o.logger.Warn("saving new shipping address failed", "error", err)
	}
}
