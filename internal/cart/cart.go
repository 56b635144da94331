package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/ariefcatur/go-storefront/internal/model"
	"github.com/shopspring/decimal"
)

// Persister stores a whole cart as one JSON list under one key.
type Persister interface {
	Load(ctx context.Context, key string) ([]Item, error)
	Save(ctx context.Context, key string, items []Item) error
}

// Cart is the cart of one session. Every mutation is applied in memory and
// then the full list is written through the Persister; the error a mutation
// returns is always a persistence error.
type Cart struct {
	mu     sync.Mutex
	key    string
	items  []Item
	store  Persister
	policy Policy
}

type Option func(*Cart)

func WithPolicy(p Policy) Option {
	return func(c *Cart) { c.policy = p }
}

func New(key string, store Persister, opts ...Option) *Cart {
	c := &Cart{key: key, store: store, policy: PolicyRemove}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open creates the cart and restores whatever was saved under key.
func Open(ctx context.Context, key string, store Persister, opts ...Option) (*Cart, error) {
	c := New(key, store, opts...)
	items, err := store.Load(ctx, key)
	if err != nil {
		return c, fmt.Errorf("load cart %s: %w", key, err)
	}
	c.items = normalize(items)
	return c, nil
}

func (c *Cart) Key() string { return c.key }

func (c *Cart) Policy() Policy { return c.policy }

// mutate runs fn under the lock and persists when fn reports a change.
func (c *Cart) mutate(ctx context.Context, fn func() bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !fn() {
		return nil
	}
	if err := c.store.Save(ctx, c.key, c.snapshot()); err != nil {
		return fmt.Errorf("save cart %s: %w", c.key, err)
	}
	return nil
}

func (c *Cart) indexOf(id int64) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.items = append(c.items[:i], c.items[i+1:]...)
}

func (c *Cart) snapshot() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Add puts one product line in the cart. Items without stock are ignored; an
// item already in the cart gains one unit while under its stock.
func (c *Cart) Add(ctx context.Context, it Item) error {
	return c.mutate(ctx, func() bool {
		if i := c.indexOf(it.ID); i >= 0 {
			cur := &c.items[i]
			if cur.Stock > 0 && cur.Quantity < cur.Stock {
				cur.Quantity++
				return true
			}
			return false
		}
		if it.Stock <= 0 {
			return false
		}
		it.Quantity = clamp(it.Quantity, 1, it.Stock)
		c.items = append(c.items, it)
		return true
	})
}

func (c *Cart) Increment(ctx context.Context, id int64) error {
	return c.mutate(ctx, func() bool {
		i := c.indexOf(id)
		if i < 0 || c.items[i].Quantity >= c.items[i].Stock {
			return false
		}
		c.items[i].Quantity++
		return true
	})
}

func (c *Cart) Decrement(ctx context.Context, id int64) error {
	return c.mutate(ctx, func() bool {
		i := c.indexOf(id)
		if i < 0 || c.items[i].Quantity <= 1 {
			return false
		}
		c.items[i].Quantity--
		return true
	})
}

func (c *Cart) Remove(ctx context.Context, id int64) error {
	return c.mutate(ctx, func() bool {
		i := c.indexOf(id)
		if i < 0 {
			return false
		}
		c.removeAt(i)
		return true
	})
}

func (c *Cart) Clear(ctx context.Context) error {
	return c.mutate(ctx, func() bool {
		c.items = nil
		return true
	})
}

// Replace swaps the whole list, dropping lines that break the stock invariant.
func (c *Cart) Replace(ctx context.Context, items []Item) error {
	return c.mutate(ctx, func() bool {
		c.items = normalize(items)
		return true
	})
}

// SetStock records a new stock figure for one item.
func (c *Cart) SetStock(ctx context.Context, id int64, stock int) error {
	return c.mutate(ctx, func() bool {
		i := c.indexOf(id)
		if i < 0 {
			return false
		}
		c.items[i].Stock = stock
		if stock <= 0 {
			c.removeAt(i)
			return true
		}
		if c.items[i].Quantity > stock {
			c.items[i].Quantity = stock
		}
		return true
	})
}

// SyncProduct refreshes an item from a product update. Blank name, image,
// zero price and a missing stock keep the cart's value. An item with no stock
// left is removed; one whose quantity exceeds the new stock is handled by the
// cart policy.
func (c *Cart) SyncProduct(ctx context.Context, p model.ProductUpdate) error {
	return c.mutate(ctx, func() bool {
		i := c.indexOf(p.ID)
		if i < 0 {
			return false
		}
		c.syncAt(i, p)
		return true
	})
}

func (c *Cart) syncAt(i int, p model.ProductUpdate) {
	it := &c.items[i]
	if p.Name != "" {
		it.Name = p.Name
	}
	if p.ImageURL != "" {
		it.ImageURL = p.ImageURL
	}
	if !p.Price.IsZero() {
		it.Price = p.Price
	}
	if p.Stock != nil {
		it.Stock = *p.Stock
	}

	switch {
	case it.Stock <= 0:
		c.removeAt(i)
	case it.Quantity > it.Stock && c.policy == PolicyClamp:
		it.Quantity = it.Stock
	case it.Quantity > it.Stock:
		c.removeAt(i)
	}
}

// ApplyCompletedOrder takes purchased quantities out of the stock of matching
// items, lowering quantities to the remaining stock.
func (c *Cart) ApplyCompletedOrder(ctx context.Context, lines []model.LineItem) error {
	return c.mutate(ctx, func() bool {
		changed := false
		for _, l := range lines {
			i := c.indexOf(l.ProductID)
			if i < 0 {
				continue
			}
			changed = true
			c.items[i].Stock -= l.Quantity
			if c.items[i].Stock <= 0 {
				c.removeAt(i)
				continue
			}
			if c.items[i].Quantity > c.items[i].Stock {
				c.items[i].Quantity = c.items[i].Stock
			}
		}
		return changed
	})
}

// RestoreStock gives the quantities of a deleted order back to the stock of
// matching cart items.
func (c *Cart) RestoreStock(ctx context.Context, lines []model.LineItem) error {
	return c.mutate(ctx, func() bool {
		changed := false
		for _, l := range lines {
			if i := c.indexOf(l.ProductID); i >= 0 && l.Quantity > 0 {
				c.items[i].Stock += l.Quantity
				changed = true
			}
		}
		return changed
	})
}

func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Cart) Get(id int64) (Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	return Item{}, false
}

func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Count is the number of units in the cart.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func normalize(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Stock <= 0 {
			continue
		}
		it.Quantity = clamp(it.Quantity, 1, it.Stock)
		out = append(out, it)
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
