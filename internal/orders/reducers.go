package orders

import "github.com/ariefcatur/go-storefront/internal/model"

func (s *Store) Orders() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

func (s *Store) Order(id int64) (model.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.orders[i], true
	}
	return model.Order{}, false
}

// Err is the message of the last failed call, or "" after a success.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// Reset forgets every loaded order and the unseen-orders counter.
func (s *Store) Reset() {
	s.mu.Lock()
	s.orders = nil
	s.errMsg = ""
	s.newOrders = 0
	s.seq = make(map[int64]uint64)
	s.mu.Unlock()
}

// SetStatus patches an order from a push event. It also outdates any status
// request still in flight for that order.
func (s *Store) SetStatus(id int64, status model.OrderStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.stamp(id)
	s.orders[i].Status = status
	return true
}

// Add appends an order pushed by the backend, replacing a copy with the same id.
func (s *Store) Add(o model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(o.ID); i >= 0 {
		s.orders[i] = o
		return
	}
	s.orders = append(s.orders, o)
}

func (s *Store) Remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.orders = append(s.orders[:i], s.orders[i+1:]...)
	delete(s.seq, id)
	return true
}

func (s *Store) NewCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newOrders
}

func (s *Store) IncrementNew() {
	s.mu.Lock()
	s.newOrders++
	s.mu.Unlock()
}

func (s *Store) ResetNew() { s.SetNew(0) }

func (s *Store) SetNew(n int) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	s.newOrders = n
	s.mu.Unlock()
}
