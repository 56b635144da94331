package cart

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string][]Item
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]Item)}
}

func (m *MemoryStore) Load(_ context.Context, key string) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := m.carts[key]
	out := make([]Item, len(items))
	copy(out, items)
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, key string, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Item, len(items))
	copy(cp, items)
	m.carts[key] = cp
	return nil
}
