package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/model"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

type Backend interface {
	UserOrders(ctx context.Context, token string) ([]model.Order, error)
	OrdersByStatus(ctx context.Context, token string, q model.OrderQuery) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, token string, id int64, status model.OrderStatus) (model.Order, error)
	DeleteOrder(ctx context.Context, token string, id int64) (string, error)
	UploadOrderProof(ctx context.Context, token string, id int64, name string, r io.Reader) (string, error)
}

type TokenSource interface {
	Token() (string, error)
}

// StockRestorer gives the line items of a deleted order back to the cart.
type StockRestorer interface {
	RestoreStock(ctx context.Context, lines []model.LineItem) error
}

type Publisher interface {
	PublishEvent(ctx context.Context, key []byte, env events.Envelope) error
}

// Store is the order list of one session. Every backend call needs a token;
// failures are kept as a display string until the next successful call.
type Store struct {
	mu        sync.RWMutex
	orders    []model.Order
	errMsg    string
	newOrders int

	// stamps of the last status change issued per order; older responses
	// are discarded when they arrive after a newer one was sent
	seq  map[int64]uint64
	next uint64

	backend  Backend
	tokens   TokenSource
	stock    StockRestorer
	pub      Publisher
	producer string
	log      *slog.Logger
}

type Option func(*Store)

func WithPublisher(p Publisher, producer string) Option {
	return func(s *Store) {
		s.pub = p
		s.producer = producer
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func NewStore(b Backend, tokens TokenSource, stock StockRestorer, opts ...Option) *Store {
	s := &Store{
		seq:     make(map[int64]uint64),
		backend: b,
		tokens:  tokens,
		stock:   stock,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) token() (string, error) {
	t, err := s.tokens.Token()
	if err != nil {
		s.fail(err)
		return "", err
	}
	return t, nil
}

func (s *Store) fail(err error) {
	s.mu.Lock()
	s.errMsg = err.Error()
	s.mu.Unlock()
}

func (s *Store) replace(orders []model.Order) {
	s.mu.Lock()
	s.orders = append([]model.Order(nil), orders...)
	s.errMsg = ""
	s.mu.Unlock()
}

// FetchOwn loads the orders of the signed-in user.
func (s *Store) FetchOwn(ctx context.Context) ([]model.Order, error) {
	tok, err := s.token()
	if err != nil {
		return nil, err
	}
	orders, err := s.backend.UserOrders(ctx, tok)
	if err != nil {
		s.fail(err)
		return nil, fmt.Errorf("fetch user orders: %w", err)
	}
	s.replace(orders)
	return orders, nil
}

// FetchByStatus loads the admin listing for one status.
func (s *Store) FetchByStatus(ctx context.Context, q model.OrderQuery) ([]model.Order, error) {
	tok, err := s.token()
	if err != nil {
		return nil, err
	}
	orders, err := s.backend.OrdersByStatus(ctx, tok, q)
	if err != nil {
		s.fail(err)
		return nil, fmt.Errorf("fetch orders by status: %w", err)
	}
	s.replace(orders)
	return orders, nil
}

// ChangeStatus asks the backend to move an order to status and patches the
// local copy with the server answer, unless a newer change for the same
// order was issued in the meantime.
func (s *Store) ChangeStatus(ctx context.Context, id int64, status model.OrderStatus) (model.Order, error) {
	tok, err := s.token()
	if err != nil {
		return model.Order{}, err
	}

	s.mu.Lock()
	if from, ok := s.knownStatus(id); ok && !model.CanTransition(from, status) {
		s.mu.Unlock()
		err := fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, status)
		s.fail(err)
		return model.Order{}, err
	}
	stamp := s.stamp(id)
	s.mu.Unlock()

	updated, err := s.backend.UpdateOrderStatus(ctx, tok, id, status)

	s.mu.Lock()
	current := s.seq[id] == stamp
	if err != nil {
		if current {
			s.errMsg = err.Error()
		}
		s.mu.Unlock()
		return model.Order{}, fmt.Errorf("change order %d status: %w", id, err)
	}
	if !current {
		s.mu.Unlock()
		s.log.Debug("stale order status response dropped", "order_id", id, "status", status)
		return updated, nil
	}
	if updated.ID == 0 {
		updated.ID = id
	}
	if updated.Status == "" {
		updated.Status = status
	}
	if i := s.indexOf(id); i >= 0 {
		s.orders[i] = merge(s.orders[i], updated)
		updated = s.orders[i]
	}
	s.errMsg = ""
	s.mu.Unlock()

	s.publish(ctx, events.EventOrderStatusChanged, id, events.OrderStatusChangedPayload{
		OrderID:   events.FlexInt(id),
		NewStatus: string(updated.Status),
	})
	return updated, nil
}

// Delete removes the order on the backend and locally, then returns its line
// items to the cart stock. The two steps are independent: a failed stock
// rollback is logged and does not undo the deletion.
func (s *Store) Delete(ctx context.Context, id int64) (string, error) {
	tok, err := s.token()
	if err != nil {
		return "", err
	}
	msg, err := s.backend.DeleteOrder(ctx, tok, id)
	if err != nil {
		s.fail(err)
		return "", fmt.Errorf("delete order %d: %w", id, err)
	}

	s.mu.Lock()
	var lines []model.LineItem
	if i := s.indexOf(id); i >= 0 {
		lines = s.orders[i].Items
		s.orders = append(s.orders[:i], s.orders[i+1:]...)
	}
	delete(s.seq, id)
	s.errMsg = ""
	s.mu.Unlock()

	if len(lines) > 0 && s.stock != nil {
		if err := s.stock.RestoreStock(ctx, lines); err != nil {
			s.log.Error("restore cart stock after order delete", "order_id", id, "error", err)
		}
	}
	s.publish(ctx, events.EventOrderDeleted, id, events.OrderDeletedPayload{OrderID: events.FlexInt(id), Items: lines})
	return msg, nil
}

// AttachProof uploads a payment receipt for the order.
func (s *Store) AttachProof(ctx context.Context, id int64, name string, r io.Reader) (string, error) {
	tok, err := s.token()
	if err != nil {
		return "", err
	}
	url, err := s.backend.UploadOrderProof(ctx, tok, id, name, r)
	if err != nil {
		s.fail(err)
		return "", fmt.Errorf("upload proof for order %d: %w", id, err)
	}
	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.orders[i].ProofURL = url
	}
	s.errMsg = ""
	s.mu.Unlock()
	return url, nil
}

func (s *Store) publish(ctx context.Context, eventType string, id int64, payload any) {
	if s.pub == nil {
		return
	}
	key := strconv.FormatInt(id, 10)
	env, err := events.New(eventType, s.producer, key, payload)
	if err == nil {
		err = s.pub.PublishEvent(ctx, events.PartitionKey("order", key), env)
	}
	if err != nil {
		s.log.Error("publish order event", "event_type", eventType, "order_id", id, "error", err)
	}
}

// stamp must be called with mu held.
// knownStatus returns the normalised local status of an order. Orders that
// are not loaded, or whose status is empty or outside the transition table,
// report false and are left to the backend to judge.
func (s *Store) knownStatus(id int64) (model.OrderStatus, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return "", false
	}
	st, err := model.ParseOrderStatus(string(s.orders[i].Status))
	if err != nil {
		return "", false
	}
	return st, true
}

func (s *Store) stamp(id int64) uint64 {
	s.next++
	s.seq[id] = s.next
	return s.next
}

func (s *Store) indexOf(id int64) int {
	for i := range s.orders {
		if s.orders[i].ID == id {
			return i
		}
	}
	return -1
}

// merge overlays the non-empty fields of the server copy on the local one;
// status endpoints often answer with a partial order.
func merge(local, server model.Order) model.Order {
	out := local
	out.Status = server.Status
	if !server.Date.IsZero() {
		out.Date = server.Date
	}
	if !server.Total.IsZero() {
		out.Total = server.Total
	}
	if len(server.Items) > 0 {
		out.Items = server.Items
	}
	if server.ProofURL != "" {
		out.ProofURL = server.ProofURL
	}
	if server.Customer != (model.Customer{}) {
		out.Customer = server.Customer
	}
	if server.Shipping != (model.Shipping{}) {
		out.Shipping = server.Shipping
	}
	return out
}
