package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/fjod/go_cart/storefront/internal/state"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Notifications interface {
	Drain() []notify.Notification
}

// NewRouter exposes the storefront cores over HTTP.
func NewRouter(app *state.App, timeout time.Duration, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	cartHandler := NewCartHandler(app.Cart, timeout, logger)
	couponHandler := NewCouponHandler(app.Coupons, timeout, logger)
	checkoutHandler := NewCheckoutHandler(app.Checkout, timeout, logger)
	ordersHandler := NewOrdersHandler(app.Client, app.Session, timeout, logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", app.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})
		r.Route("/coupon", func(r chi.Router) {
			r.Get("/", couponHandler.Get)
			r.Post("/", couponHandler.Apply)
			r.Delete("/", couponHandler.Remove)
		})
		r.Get("/checkout", checkoutHandler.GetSummary)
		r.Post("/checkout", checkoutHandler.PlaceOrder)
		r.Get("/orders", ordersHandler.ListOrders)
		r.Get("/orders/{order_id}", ordersHandler.GetOrder)
		r.Get("/notifications", NotificationsHandler(app.Feed))
	})

	return otelhttp.NewHandler(r, "storefront")
}

// NotificationsHandler drains feed. GET /api/v1/notifications
func NotificationsHandler(feed Notifications) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, feed.Drain())
	}
}
