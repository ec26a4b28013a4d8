package cartsync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/shopspring/decimal"
)

// fakeCartAPI keeps an ordered server-side cart and paginates it.
type fakeCartAPI struct {
	mu       sync.Mutex
	items    []domain.CartItem
	pageSize int
	calls    []string

	addErr    error
	updateErr error
	removeErr error
	getErr    error
	clearErr  error

	// onGet runs before every page fetch returns, outside the lock.
	onGet func(page int)
	// updateDelay widens the window for overlapping updates.
	updateDelay time.Duration
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeCartAPI(pageSize int, productIDs ...string) *fakeCartAPI {
	f := &fakeCartAPI{pageSize: pageSize}
	for _, id := range productIDs {
		f.items = append(f.items, cartItem(id, 1))
	}
	return f
}

func cartItem(productID string, qty int) domain.CartItem {
	return domain.CartItem{
		ID:       "line-" + productID,
		Product:  domain.Product{ID: productID, Title: "Gift " + productID, Price: decimal.NewFromInt(100)},
		Quantity: qty,
	}
}

func (f *fakeCartAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeCartAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeCartAPI) GetCartPage(_ context.Context, page int) (*domain.CartPage, error) {
	f.record(fmt.Sprintf("get:%d", page))
	if f.onGet != nil {
		f.onGet(page)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	total := len(f.items)
	totalPages := (total + f.pageSize - 1) / f.pageSize
	start := (page - 1) * f.pageSize
	end := start + f.pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	p := &domain.CartPage{
		Items:      append([]domain.CartItem{}, f.items[start:end]...),
		Page:       page,
		TotalPages: totalPages,
		TotalItems: total,
	}
	p.Normalize()
	return p, nil
}

func (f *fakeCartAPI) AddCartItem(_ context.Context, productID string) error {
	f.record("add:" + productID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	for i := range f.items {
		if f.items[i].Product.ID == productID {
			f.items[i].Quantity++
			return nil
		}
	}
	f.items = append(f.items, cartItem(productID, 1))
	return nil
}

func (f *fakeCartAPI) UpdateCartItem(_ context.Context, productID string, quantity int) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxInFlight.Load()
		if n <= max || f.maxInFlight.CompareAndSwap(max, n) {
			break
		}
	}
	if f.updateDelay > 0 {
		time.Sleep(f.updateDelay)
	}

	f.record(fmt.Sprintf("update:%s:%d", productID, quantity))
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.items {
		if f.items[i].Product.ID == productID {
			f.items[i].Quantity = quantity
			return nil
		}
	}
	return fmt.Errorf("item not found")
}

func (f *fakeCartAPI) RemoveCartItem(_ context.Context, productID string) error {
	f.record("remove:" + productID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	for i, item := range f.items {
		if item.Product.ID == productID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("item not found")
}

func (f *fakeCartAPI) ClearCart(context.Context) error {
	f.record("clear")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.items = nil
	return nil
}

type fakeSession struct {
	authenticated bool
	userID        string
}

func (s fakeSession) Authenticated() bool { return s.authenticated }
func (s fakeSession) UserID() string      { return s.userID }

type recorder struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (r *recorder) Notify(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) Codes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, n := range r.got {
		out = append(out, n.Code)
	}
	return out
}

func (r *recorder) Last() notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.got) == 0 {
		return notify.Notification{}
	}
	return r.got[len(r.got)-1]
}

func newTestStore(fake *fakeCartAPI, authenticated bool) (*Store, *recorder) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := &recorder{}
	queries := cache.NewQueries(cache.NewMemoryCache(time.Minute), logger)
	s := NewStore(fake, fakeSession{authenticated: authenticated, userID: "u1"}, queries, rec, nil, logger)
	return s, rec
}
