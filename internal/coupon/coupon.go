package coupon

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/shopspring/decimal"
)

const (
	MinCodeLength = 3

	msgApplied  = "Coupon applied"
	msgInvalid  = "Invalid coupon"
	msgRemoved  = "Coupon removed"
	msgTooShort = "coupon code must be at least 3 characters"
)

type CouponAPI interface {
	ApplyCoupon(ctx context.Context, code string) (*api.CouponResult, error)
}

// Service tracks the single active coupon of the checkout session.
type Service struct {
	api      CouponAPI
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu     sync.RWMutex
	active *domain.CouponApplication
}

func NewService(couponAPI CouponAPI, notifier notify.Notifier, m *metrics.Metrics, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if m == nil {
		m = metrics.Nop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: couponAPI, notifier: notifier, metrics: m, logger: logger}
}

// Apply validates code locally, then against the server. A successful
// application replaces any previous one; a rejected code keeps it.
func (s *Service) Apply(ctx context.Context, code string) (domain.CouponApplication, error) {
	code = strings.TrimSpace(code)
	if utf8.RuneCountInString(code) < MinCodeLength {
		return domain.CouponApplication{}, &domain.ValidationError{Field: "couponCode", Message: msgTooShort}
	}

	res, err := s.api.ApplyCoupon(ctx, code)
	s.metrics.CouponApplication(err)
	if err != nil {
		msg := api.Message(err)
		if msg == "" {
			msg = msgInvalid
		}
		s.logger.Warn("coupon rejected", "code", code, "error", err)
		s.notifier.Notify(notify.Error(notify.CodeCouponRejected, msg))
		return domain.CouponApplication{}, fmt.Errorf("apply coupon %s: %w", code, err)
	}

	discount := res.Discount
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	app := domain.CouponApplication{Code: code, Discount: discount}

	s.mu.Lock()
	s.active = &app
	s.mu.Unlock()

	msg := res.Message
	if msg == "" {
		msg = msgApplied
	}
	s.notifier.Notify(notify.Success(notify.CodeCouponApplied, msg))
	return app, nil
}

// Remove drops the active coupon, if any.
func (s *Service) Remove() {
	s.mu.Lock()
	had := s.active != nil
	s.active = nil
	s.mu.Unlock()

	if had {
		s.notifier.Notify(notify.Info(notify.CodeCouponRemoved, msgRemoved))
	}
}

// Clear drops the active coupon silently, after checkout or logout.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
}

func (s *Service) Active() (domain.CouponApplication, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return domain.CouponApplication{}, false
	}
	return *s.active, true
}

// Discount is the active discount amount, zero without a coupon.
func (s *Service) Discount() decimal.Decimal {
	app, ok := s.Active()
	if !ok {
		return decimal.Zero
	}
	return app.Discount
}
