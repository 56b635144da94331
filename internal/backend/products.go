package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/model"
	"golang.org/x/sync/errgroup"
)

// Product returns the product, served from cache while fresh.
func (c *Client) Product(ctx context.Context, id int64) (model.Product, error) {
	c.cacheMu.RLock()
	data, ok := c.products[id]
	if ok && time.Now().Before(data.expiry) {
		c.cacheMu.RUnlock()
		return data.product, nil
	}
	c.cacheMu.RUnlock()

	var p model.Product
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/productos/%d", id), "", nil, &p); err != nil {
		return model.Product{}, err
	}
	if c.config.ProductTTL > 0 {
		c.cacheMu.Lock()
		c.products[id] = cachedProduct{product: p, expiry: time.Now().Add(c.config.ProductTTL)}
		c.cacheMu.Unlock()
	}
	return p, nil
}

// Products fetches several products concurrently; any failure fails the call.
func (c *Client) Products(ctx context.Context, ids []int64) ([]model.Product, error) {
	out := make([]model.Product, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, id := range ids {
		g.Go(func() error {
			p, err := c.Product(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to fetch product %d: %w", id, err)
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ForgetProduct drops a cached product, e.g. after a stock push.
func (c *Client) ForgetProduct(id int64) {
	c.cacheMu.Lock()
	delete(c.products, id)
	c.cacheMu.Unlock()
}

func (c *Client) User(ctx context.Context, token string, id int64) (model.User, error) {
	var u model.User
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d", id), token, nil, &u)
	return u, err
}
