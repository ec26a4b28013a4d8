package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/cartsync"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/coupon"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/fjod/go_cart/storefront/internal/session"
)

const (
	msgSessionExpired  = "Your session has expired, please log in again"
	msgPaymentReceived = "Payment received, thank you for your order"
)

// App owns every long-lived component of the storefront. Handlers and
// listeners receive it explicitly instead of reaching for globals.
type App struct {
	Session  *session.Session
	Client   *api.Client
	Queries  *cache.Queries
	Feed     *notify.Feed
	Metrics  *metrics.Metrics
	Cart     *cartsync.Store
	Coupons  *coupon.Service
	Checkout *checkout.Orchestrator

	logger  *slog.Logger
	closers []func() error
}

// Options carries the infrastructure App is built on.
type Options struct {
	Backend   cache.Backend
	Metrics   *metrics.Metrics
	Transport http.RoundTripper
	Logger    *slog.Logger
}

func New(cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Nop()
	}
	backend := opts.Backend
	if backend == nil {
		backend = cache.NewMemoryCache(cfg.CacheTTL)
	}

	sess := session.New()
	if cfg.SessionToken != "" {
		if err := sess.Login(cfg.SessionToken); err != nil {
			return nil, fmt.Errorf("session login: %w", err)
		}
	}

	client := api.NewClient(api.Options{
		BaseURL:      cfg.APIBaseURL,
		CookieName:   cfg.SessionCookie,
		Timeout:      cfg.RequestTimeout,
		RateLimitRPS: cfg.RateLimitRPS,
		RateBurst:    cfg.RateBurst,
		Transport:    opts.Transport,
		Metrics:      m,
		Logger:       logger.With("component", "api"),
	}, sess)

	feed := notify.NewFeed(cfg.NotificationBuffer, logger.With("component", "notify"))
	queries := cache.NewQueries(backend, logger.With("component", "cache"))
	store := cartsync.NewStore(client, sess, queries, feed, m, logger.With("component", "cart"))
	coupons := coupon.NewService(client, feed, m, logger.With("component", "coupon"))
	orchestrator := checkout.NewOrchestrator(checkout.Deps{
		Orders:   client,
		Profiles: client,
		Coupons:  coupons,
		Cart:     store,
		Session:  sess,
		Notifier: feed,
		Metrics:  m,
		Logger:   logger.With("component", "checkout"),
	}, cfg.ShippingPrice)

	a := &App{
		Session:  sess,
		Client:   client,
		Queries:  queries,
		Feed:     feed,
		Metrics:  m,
		Cart:     store,
		Coupons:  coupons,
		Checkout: orchestrator,
		logger:   logger,
	}
	sess.OnExpire(a.sessionExpired)
	return a, nil
}

// Reset drops the local cart and coupon state.
func (a *App) Reset(ctx context.Context) {
	a.Cart.Reset(ctx)
	a.Coupons.Clear()
}

func (a *App) sessionExpired() {
	a.logger.Warn("session expired")
	a.Reset(context.Background())
	a.Feed.Notify(notify.Notification{
		Kind:    notify.KindUnauthenticated,
		Code:    notify.CodeSessionExpired,
		Message: msgSessionExpired,
	})
}

// PaymentCompleted handles an out-of-band payment confirmation. It reports
// whether the event belonged to the current session user.
func (a *App) PaymentCompleted(ctx context.Context, userID, orderID string) bool {
	if userID == "" || userID != a.Session.UserID() {
		return false
	}
	a.Reset(ctx)
	a.Feed.Notify(notify.Success(notify.CodePaymentReceived, msgPaymentReceived))
	a.logger.Info("payment completed", "user_id", userID, "order_id", orderID)
	return true
}

// OnClose registers fn to run when the App is closed. Closers run in reverse
// registration order.
func (a *App) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
