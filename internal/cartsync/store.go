package cartsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/notify"
)

const (
	msgItemAdded     = "Product added to your cart"
	msgCartUpdated   = "Cart updated"
	msgCartCleared   = "Your cart is now empty"
	msgLoginRequired = "Please log in to manage your cart"
	msgCartFailed    = "Could not update your cart, please try again"
	msgLoadFailed    = "Could not load your cart, please try again"
)

// CartAPI is the slice of the shop API the store mutates the cart through.
type CartAPI interface {
	GetCartPage(ctx context.Context, page int) (*domain.CartPage, error)
	AddCartItem(ctx context.Context, productID string) error
	UpdateCartItem(ctx context.Context, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, productID string) error
	ClearCart(ctx context.Context) error
}

type Session interface {
	Authenticated() bool
	UserID() string
}

// View is a read-only copy of the store state.
type View struct {
	Page        domain.CartPage `json:"page"`
	CurrentPage int             `json:"current_page"`
	TotalItems  int             `json:"total_items"`
	Loading     bool            `json:"loading"`
}

// Store is the single owner of the in-memory cart page and the only
// component allowed to mutate cart contents. Local state changes only after
// the server confirms a mutation and the page has been refetched.
type Store struct {
	api      CartAPI
	session  Session
	queries  *cache.Queries
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger

	keys *keyedMutex

	mu         sync.RWMutex
	page       domain.CartPage
	current    int
	totalItems int
	pending    int
	issued     uint64 // last refetch sequence handed out
	applied    uint64 // sequence of the refetch currently shown
	owner      string // user whose cart is held
}

func NewStore(cartAPI CartAPI, session Session, queries *cache.Queries, notifier notify.Notifier, m *metrics.Metrics, logger *slog.Logger) *Store {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if m == nil {
		m = metrics.Nop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		api:      cartAPI,
		session:  session,
		queries:  queries,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		keys:     newKeyedMutex(),
		page:     emptyPage(1),
		current:  1,
	}
}

func emptyPage(page int) domain.CartPage {
	return domain.CartPage{Items: []domain.CartItem{}, Page: page}
}

// View returns a copy of the current state.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{
		Page:        s.page.Clone(),
		CurrentPage: s.current,
		TotalItems:  s.totalItems,
		Loading:     s.pending > 0,
	}
}

func (s *Store) CurrentPage() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalItems
}

// FetchPage loads page from the server and makes it the current page.
// Without an authenticated session it returns an empty view and does not
// touch the network.
func (s *Store) FetchPage(ctx context.Context, page int) (View, error) {
	if page < 1 {
		page = 1
	}
	if !s.session.Authenticated() {
		return View{Page: emptyPage(1), CurrentPage: 1}, nil
	}

	s.begin()
	defer s.end()

	if _, err := s.refetch(ctx, page); err != nil {
		s.logger.Error("cart fetch failed", "page", page, "error", err)
		s.notifier.Notify(notify.Error(notify.CodeCartFailed, messageOr(err, msgLoadFailed)))
		return s.View(), fmt.Errorf("fetch cart page %d: %w", page, err)
	}
	return s.View(), nil
}

// AddItem adds one unit of productID and refreshes the current page.
func (s *Store) AddItem(ctx context.Context, productID string) error {
	productID, err := s.guard(productID, "add")
	if err != nil {
		return err
	}

	unlock, err := s.keys.Lock(ctx, productID)
	if err != nil {
		return s.fail("add", productID, err)
	}
	defer unlock()
	s.begin()
	defer s.end()

	if err := s.api.AddCartItem(ctx, productID); err != nil {
		return s.fail("add", productID, err)
	}

	s.invalidate(ctx)
	s.refresh(ctx, s.CurrentPage())
	s.metrics.CartMutation("add", nil)
	s.notifier.Notify(notify.Success(notify.CodeItemAdded, msgItemAdded))
	return nil
}

// RemoveItem deletes the line of productID. When that empties a page other
// than the first, the page pointer moves back by one.
func (s *Store) RemoveItem(ctx context.Context, productID string) error {
	productID, err := s.guard(productID, "remove")
	if err != nil {
		return err
	}

	unlock, err := s.keys.Lock(ctx, productID)
	if err != nil {
		return s.fail("remove", productID, err)
	}
	defer unlock()
	s.begin()
	defer s.end()

	return s.remove(ctx, productID)
}

func (s *Store) remove(ctx context.Context, productID string) error {
	if err := s.api.RemoveCartItem(ctx, productID); err != nil {
		return s.fail("remove", productID, err)
	}
	s.invalidate(ctx)

	page := s.refresh(ctx, s.CurrentPage())
	if page != nil && page.Page > 1 && page.Empty() {
		page = s.refresh(ctx, page.Page-1)
	}

	s.metrics.CartMutation("remove", nil)
	if page != nil && page.Empty() {
		s.notifier.Notify(notify.Success(notify.CodeCartCleared, msgCartCleared))
	} else {
		s.notifier.Notify(notify.Success(notify.CodeCartUpdated, msgCartUpdated))
	}
	return nil
}

// UpdateQuantity sets the quantity of productID. A quantity of zero removes
// the line.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity < 0 {
		return &domain.ValidationError{Field: "quantity", Message: "must not be negative"}
	}
	productID, err := s.guard(productID, "update")
	if err != nil {
		return err
	}

	unlock, err := s.keys.Lock(ctx, productID)
	if err != nil {
		return s.fail("update", productID, err)
	}
	defer unlock()
	s.begin()
	defer s.end()

	if quantity == 0 {
		return s.remove(ctx, productID)
	}

	if err := s.api.UpdateCartItem(ctx, productID, quantity); err != nil {
		return s.fail("update", productID, err)
	}

	s.invalidate(ctx)
	s.refresh(ctx, s.CurrentPage())
	s.metrics.CartMutation("update", nil)
	s.notifier.Notify(notify.Success(notify.CodeCartUpdated, msgCartUpdated))
	return nil
}

// Clear empties the whole server cart.
func (s *Store) Clear(ctx context.Context) error {
	if !s.session.Authenticated() {
		s.metrics.CartMutation("clear", domain.ErrUnauthenticated)
		s.notifier.Notify(notify.LoginRequired(msgLoginRequired))
		return domain.ErrUnauthenticated
	}

	s.begin()
	defer s.end()

	if err := s.api.ClearCart(ctx); err != nil {
		return s.fail("clear", "", err)
	}

	s.invalidate(ctx)
	s.refresh(ctx, 1)
	s.metrics.CartMutation("clear", nil)
	s.notifier.Notify(notify.Success(notify.CodeCartCleared, msgCartCleared))
	return nil
}

// Reset forgets local state without a network call. Refetches still in
// flight are discarded when they land.
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	s.page = emptyPage(1)
	s.current = 1
	s.totalItems = 0
	s.applied = s.issued
	owner := s.owner
	s.owner = ""
	s.mu.Unlock()

	s.queries.Invalidate(ctx, cartTag(owner))
}

// guard applies the local preconditions shared by item mutations.
func (s *Store) guard(productID, op string) (string, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return "", &domain.ValidationError{Field: "productId", Message: "is required"}
	}
	if !s.session.Authenticated() {
		s.metrics.CartMutation(op, domain.ErrUnauthenticated)
		s.notifier.Notify(notify.LoginRequired(msgLoginRequired))
		return "", domain.ErrUnauthenticated
	}
	return productID, nil
}

func (s *Store) fail(op, productID string, err error) error {
	s.logger.Error("cart mutation failed", "op", op, "product_id", productID, "error", err)
	s.metrics.CartMutation(op, err)
	s.notifier.Notify(notify.Error(notify.CodeCartFailed, messageOr(err, msgCartFailed)))
	if productID == "" {
		return fmt.Errorf("%s cart: %w", op, err)
	}
	return fmt.Errorf("%s cart item %s: %w", op, productID, err)
}

// refresh refetches page after a confirmed mutation. The mutation already
// happened server-side, so a failed refetch is logged and reported as nil.
func (s *Store) refresh(ctx context.Context, page int) *domain.CartPage {
	p, err := s.refetch(ctx, page)
	if err != nil {
		s.logger.Warn("cart refetch after mutation failed", "page", page, "error", err)
		return nil
	}
	return p
}

// refetch loads page and applies it unless a newer refetch already landed.
func (s *Store) refetch(ctx context.Context, page int) (*domain.CartPage, error) {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	uid := s.session.UserID()
	p, err := s.load(ctx, uid, page)
	if err != nil {
		return nil, err
	}
	// The cart shrank under the pointer; show the last page instead.
	if p.OutOfRange() {
		page = p.LastPage()
		if p, err = s.load(ctx, uid, page); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.applied {
		s.logger.Debug("dropping stale cart page", "page", page, "seq", seq, "applied", s.applied)
		return p, nil
	}
	s.applied = seq
	s.owner = uid
	s.page = p.Clone()
	s.current = p.Page
	s.totalItems = p.TotalItems
	return p, nil
}

func (s *Store) load(ctx context.Context, uid string, page int) (*domain.CartPage, error) {
	key := fmt.Sprintf("cart:%s:page:%d", uid, page)
	return cache.Fetch(ctx, s.queries, key, []string{cartTag(uid)}, func(ctx context.Context) (*domain.CartPage, error) {
		return s.api.GetCartPage(ctx, page)
	})
}

func (s *Store) invalidate(ctx context.Context) {
	s.queries.Invalidate(ctx, cartTag(s.session.UserID()))
}

func (s *Store) begin() {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
}

func (s *Store) end() {
	s.mu.Lock()
	s.pending--
	s.mu.Unlock()
}

func cartTag(userID string) string {
	return "cart:" + userID
}

func messageOr(err error, fallback string) string {
	if errors.Is(err, context.Canceled) {
		return fallback
	}
	if msg := api.Message(err); msg != "" {
		return msg
	}
	return fallback
}
