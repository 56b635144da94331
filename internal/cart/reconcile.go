package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront/internal/model"
	"golang.org/x/sync/errgroup"
)

type ProductSource interface {
	Product(ctx context.Context, id int64) (model.Product, error)
}

const reconcileFanout = 4

// Reconcile refetches every product in the cart and syncs each item with the
// server copy. Items whose fetch failed are left untouched and the failures
// are returned joined.
func (c *Cart) Reconcile(ctx context.Context, src ProductSource) error {
	items := c.Items()
	if len(items) == 0 {
		return nil
	}

	products := make([]*model.Product, len(items))
	errs := make([]error, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileFanout)
	for i, it := range items {
		g.Go(func() error {
			p, err := src.Product(gctx, it.ID)
			if err != nil {
				errs[i] = fmt.Errorf("product %d: %w", it.ID, err)
				return nil
			}
			products[i] = &p
			return nil
		})
	}
	_ = g.Wait()

	saveErr := c.mutate(ctx, func() bool {
		changed := false
		for _, p := range products {
			if p == nil {
				continue
			}
			if i := c.indexOf(p.ID); i >= 0 {
				c.syncAt(i, p.Update())
				changed = true
			}
		}
		return changed
	})
	return errors.Join(append(errs, saveErr)...)
}
