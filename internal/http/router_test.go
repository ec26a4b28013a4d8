package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cartsync"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/fjod/go_cart/storefront/internal/state"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeShop is a single-page in-memory shop API.
type fakeShop struct {
	mu      sync.Mutex
	items   map[string]int
	order   []string
	orders  []map[string]any
	profile []string
}

func (s *fakeShop) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		data := s.lines()
		writeJSON(w, map[string]any{"data": data, "page": 1, "totalPages": 1, "totalItems": len(data)})
	})
	mux.HandleFunc("GET /cart/checkout", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, map[string]any{"data": s.lines()})
	})
	mux.HandleFunc("POST /cart", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProductID string `json:"productId"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.items[req.ProductID]; !ok {
			s.order = append(s.order, req.ProductID)
		}
		s.items[req.ProductID]++
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.orders = append(s.orders, req)
		s.items = map[string]int{}
		s.order = nil
		writeJSON(w, map[string]any{"data": map[string]any{"_id": "ord-1"}})
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, map[string]any{"data": map[string]any{"addresses": s.profile}})
	})
	mux.HandleFunc("PUT /users/me", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Addresses []string `json:"addresses"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.profile = req.Addresses
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func (s *fakeShop) lines() []map[string]any {
	data := []map[string]any{}
	for _, id := range s.order {
		data = append(data, map[string]any{
			"_id":      "line-" + id,
			"product":  map[string]any{"_id": id, "title": "Item " + id, "price": "100"},
			"quantity": s.items[id],
		})
	}
	return data
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func setupRouter(t *testing.T, loggedIn bool) (http.Handler, *fakeShop) {
	t.Helper()
	shop := &fakeShop{items: map[string]int{}}
	srv := httptest.NewServer(shop.handler())
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.APIBaseURL = srv.URL
	cfg.RateLimitRPS = 0
	if loggedIn {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
			UserID:           "u-1",
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		}).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		cfg.SessionToken = token
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := state.New(cfg, state.Options{Metrics: metrics.New(prometheus.NewRegistry()), Logger: logger})
	require.NoError(t, err)
	return NewRouter(app, 5*time.Second, logger), shop
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, httptest.NewRequest(method, path, reader))
	return recorder
}

func TestRouter_Health(t *testing.T) {
	h, _ := setupRouter(t, false)
	recorder := serve(t, h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())
	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
}

func TestRouter_AnonymousCartIsEmpty(t *testing.T) {
	h, _ := setupRouter(t, false)

	recorder := serve(t, h, "GET", "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	var view cartsync.View
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&view))
	assert.Empty(t, view.Page.Items)

	recorder = serve(t, h, "POST", "/api/v1/cart/items", `{"product_id":"p1"}`)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = serve(t, h, "GET", "/api/v1/notifications", "")
	var notes []notify.Notification
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&notes))
	require.Len(t, notes, 1)
	assert.Equal(t, notify.KindUnauthenticated, notes[0].Kind)
}

func TestRouter_CashCheckoutFlow(t *testing.T) {
	h, shop := setupRouter(t, true)

	recorder := serve(t, h, "POST", "/api/v1/cart/items", `{"product_id":"p1"}`)
	require.Equal(t, http.StatusCreated, recorder.Code)
	var view cartsync.View
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&view))
	require.Len(t, view.Page.Items, 1)
	assert.Equal(t, 1, view.TotalItems)

	recorder = serve(t, h, "GET", "/api/v1/checkout", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	var summary checkout.Summary
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&summary))
	assert.Equal(t, "150", summary.Total.String())

	recorder = serve(t, h, "POST", "/api/v1/checkout", `{"shipping_address":"12 Rose Lane","payment_method":"cash"}`)
	require.Equal(t, http.StatusCreated, recorder.Code)
	var result checkout.Result
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&result))
	assert.Equal(t, "/order-confirmation/ord-1", result.NavigateTo)

	shop.mu.Lock()
	assert.Equal(t, []string{"12 Rose Lane"}, shop.profile)
	require.Len(t, shop.orders, 1)
	assert.EqualValues(t, 150, shop.orders[0]["totalPrice"])
	shop.mu.Unlock()

	recorder = serve(t, h, "GET", "/api/v1/cart", "")
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&view))
	assert.Empty(t, view.Page.Items)
}

func TestRouter_CheckoutEmptyCart(t *testing.T) {
	h, _ := setupRouter(t, true)
	recorder := serve(t, h, "POST", "/api/v1/checkout", `{"shipping_address":"12 Rose Lane","payment_method":"cash"}`)
	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestRouter_Metrics(t *testing.T) {
	h, _ := setupRouter(t, true)
	serve(t, h, "POST", "/api/v1/cart/items", `{"product_id":"p1"}`)

	recorder := serve(t, h, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, strings.Contains(recorder.Body.String(), "storefront_cart_mutations_total"))
}
