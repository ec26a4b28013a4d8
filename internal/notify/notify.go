package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Kind string

const (
	KindSuccess         Kind = "success"
	KindInfo            Kind = "info"
	KindError           Kind = "error"
	KindUnauthenticated Kind = "unauthenticated"
)

// Codes used by the cart, coupon and checkout cores.
const (
	CodeItemAdded       = "cart_item_added"
	CodeCartUpdated     = "cart_updated"
	CodeCartCleared     = "cart_cleared"
	CodeLoginRequired   = "login_required"
	CodeCartFailed      = "cart_failed"
	CodeCouponApplied   = "coupon_applied"
	CodeCouponRejected  = "coupon_rejected"
	CodeCouponRemoved   = "coupon_removed"
	CodeOrderPlaced     = "order_placed"
	CodePaymentRedirect = "payment_redirect"
	CodeCheckoutFailed  = "checkout_failed"
	CodePaymentReceived = "payment_received"
	CodeSessionExpired  = "session_expired"
)

type Notification struct {
	Kind    Kind      `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier delivers user-visible notifications. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// Feed keeps the most recent notifications for the presentation layer and
// logs every one of them.
type Feed struct {
	mu     sync.Mutex
	items  []Notification
	limit  int
	logger *slog.Logger
}

func NewFeed(limit int, logger *slog.Logger) *Feed {
	if limit <= 0 {
		limit = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{limit: limit, logger: logger}
}

func (f *Feed) Notify(n Notification) {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	level := slog.LevelInfo
	if n.Kind == KindError {
		level = slog.LevelWarn
	}
	f.logger.Log(context.Background(), level, "notification", "kind", n.Kind, "code", n.Code, "message", n.Message)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, n)
	if len(f.items) > f.limit {
		f.items = f.items[len(f.items)-f.limit:]
	}
}

// Drain returns pending notifications oldest first and empties the feed.
func (f *Feed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.items
	f.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func Success(code, message string) Notification {
	return Notification{Kind: KindSuccess, Code: code, Message: message}
}

func Info(code, message string) Notification {
	return Notification{Kind: KindInfo, Code: code, Message: message}
}

func Error(code, message string) Notification {
	return Notification{Kind: KindError, Code: code, Message: message}
}

func LoginRequired(message string) Notification {
	return Notification{Kind: KindUnauthenticated, Code: CodeLoginRequired, Message: message}
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(Notification) {}
