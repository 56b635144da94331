package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/booking"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/model"
	"github.com/ariefcatur/go-storefront/internal/orders"
)

var ErrInvalidSessionID = errors.New("invalid session id")

type Publisher interface {
	PublishEvent(ctx context.Context, key []byte, env events.Envelope) error
}

// Registry owns the live sessions and applies pushed events to all of them.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	backend  Backend
	carts    cart.Persister
	policy   cart.Policy
	pub      Publisher
	producer string
	log      *slog.Logger
	now      func() time.Time
}

type Option func(*Registry)

func WithPolicy(p cart.Policy) Option {
	return func(r *Registry) { r.policy = p }
}

// WithPublisher makes the order and booking stores announce the changes
// they make.
func WithPublisher(p Publisher, producer string) Option {
	return func(r *Registry) {
		r.pub = p
		r.producer = producer
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

func NewRegistry(b Backend, carts cart.Persister, opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		backend:  b,
		carts:    carts,
		policy:   cart.PolicyRemove,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Session returns the session for id, creating it and restoring its saved
// cart on first use.
func (r *Registry) Session(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > 128 {
		return nil, ErrInvalidSessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.touch(r.now())
		return s, nil
	}

	c, err := cart.Open(ctx, id, r.carts, cart.WithPolicy(r.policy))
	if err != nil {
		// start with an empty cart; the next mutation overwrites the bad copy
		r.log.Error("restore cart", "session_id", id, "error", err)
	}

	tokens := auth.NewTokenStore()
	var orderOpts []orders.Option
	var bookingOpts []booking.Option
	orderOpts = append(orderOpts, orders.WithLogger(r.log))
	bookingOpts = append(bookingOpts, booking.WithLogger(r.log))
	if r.pub != nil {
		orderOpts = append(orderOpts, orders.WithPublisher(r.pub, r.producer))
		bookingOpts = append(bookingOpts, booking.WithPublisher(r.pub, r.producer))
	}

	s := &Session{
		ID:     id,
		Tokens: tokens,
		Cart:   c,
		Orders: orders.NewStore(r.backend, tokens, c, orderOpts...),
		bookings: map[model.Kind]*booking.Store{
			model.KindCourse:  booking.NewStore(model.KindCourse, r.backend, tokens, bookingOpts...),
			model.KindService: booking.NewStore(model.KindService, r.backend, tokens, bookingOpts...),
		},
		backend:  r.backend,
		lastSeen: r.now(),
	}
	r.sessions[id] = s
	r.log.Debug("session created", "session_id", id)
	return s, nil
}

func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Drop(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Expire forgets sessions idle for longer than idle. Their carts stay in the
// persister and come back on the next request.
func (r *Registry) Expire(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

func (r *Registry) all() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
