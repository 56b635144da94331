package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/booking"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/model"
	"github.com/ariefcatur/go-storefront/internal/orders"
)

// Backend is everything a session talks to on the remote API.
type Backend interface {
	orders.Backend
	booking.Backend
	cart.ProductSource
	User(ctx context.Context, token string, id int64) (model.User, error)
	ForgetProduct(id int64)
}

// Session is the whole application state of one UI session. Stores are
// created once and shared by every request carrying the same session id.
type Session struct {
	ID     string
	Tokens *auth.TokenStore
	Cart   *cart.Cart
	Orders *orders.Store

	bookings map[model.Kind]*booking.Store
	backend  Backend

	mu       sync.RWMutex
	user     *model.User
	lastSeen time.Time
}

func (s *Session) Bookings(kind model.Kind) (*booking.Store, error) {
	b, ok := s.bookings[kind]
	if !ok {
		return nil, fmt.Errorf("unknown booking kind %q", kind)
	}
	return b, nil
}

// SignIn stores a new token. Anything loaded with the previous identity is
// dropped.
func (s *Session) SignIn(token string) {
	prev := s.Tokens.Claims().UserID
	s.Tokens.Set(token)
	if s.Tokens.Claims().UserID != prev {
		s.resetIdentity()
	}
}

func (s *Session) SignOut() {
	s.Tokens.Clear()
	s.resetIdentity()
}

func (s *Session) resetIdentity() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	s.Orders.Reset()
	for _, b := range s.bookings {
		b.Reset()
	}
}

// LoadUser fetches the profile of a user with the session token and keeps it
// when it is the signed-in user.
func (s *Session) LoadUser(ctx context.Context, id int64) (model.User, error) {
	tok, err := s.Tokens.Token()
	if err != nil {
		return model.User{}, err
	}
	u, err := s.backend.User(ctx, tok, id)
	if err != nil {
		return model.User{}, fmt.Errorf("load user %d: %w", id, err)
	}
	if id == s.Tokens.Claims().UserID {
		s.mu.Lock()
		s.user = &u
		s.mu.Unlock()
	}
	return u, nil
}

func (s *Session) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

func (s *Session) IsAdmin() bool {
	return s.Tokens.Claims().HasRole("admin")
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}
