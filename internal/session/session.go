package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMalformedToken = errors.New("malformed session token")

// Claims are read from the session cookie issued by the shop API. The
// signature is verified server-side; the client only needs identity and
// expiry.
type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Session holds the cookie-based credentials of the current user.
type Session struct {
	mu       sync.RWMutex
	token    string
	claims   Claims
	now      func() time.Time
	onExpire []func()
}

func New() *Session {
	return &Session{now: time.Now}
}

// Login stores token after decoding its claims.
func (s *Session) Login(token string) error {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.claims = claims
	return nil
}

// Logout drops the credentials without running expiry hooks.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.claims = Claims{}
}

// Expire drops the credentials and runs the registered expiry hooks.
func (s *Session) Expire() {
	s.mu.Lock()
	hadToken := s.token != ""
	s.token = ""
	s.claims = Claims{}
	hooks := append([]func(){}, s.onExpire...)
	s.mu.Unlock()

	if !hadToken {
		return
	}
	for _, h := range hooks {
		h()
	}
}

// OnExpire registers fn to run when the server reports an expired session.
func (s *Session) OnExpire(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = append(s.onExpire, fn)
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return false
	}
	if s.claims.ExpiresAt != nil && !s.now().Before(s.claims.ExpiresAt.Time) {
		return false
	}
	return true
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims.UserID
}
