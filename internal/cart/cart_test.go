package cart

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id int64, qty, stock int) Item {
	return Item{ID: id, Name: "p", Price: decimal.NewFromInt(100), Quantity: qty, Stock: stock}
}

func newCart(t *testing.T, items ...Item) (*Cart, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	c := New("s1", store)
	require.NoError(t, c.Replace(context.Background(), items))
	return c, store
}

type failingStore struct{ MemoryStore }

func (f *failingStore) Save(context.Context, string, []Item) error { return errors.New("disk full") }

func TestAdd_ZeroStockNeverChangesCart(t *testing.T) {
	c, _ := newCart(t, item(1, 1, 3))
	before := c.Items()

	require.NoError(t, c.Add(context.Background(), item(2, 1, 0)))
	assert.Equal(t, before, c.Items())
}

func TestAdd_ExistingIncrementsUpToStock(t *testing.T) {
	c, _ := newCart(t, item(1, 1, 2))
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, item(1, 1, 2)))
	require.NoError(t, c.Add(ctx, item(1, 1, 2)))

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, 2, got.Quantity)
}

func TestAdd_NewItemQuantityClamped(t *testing.T) {
	c, _ := newCart(t)
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, item(1, 9, 4)))
	require.NoError(t, c.Add(ctx, item(2, 0, 4)))

	a, _ := c.Get(1)
	b, _ := c.Get(2)
	assert.Equal(t, 4, a.Quantity)
	assert.Equal(t, 1, b.Quantity)
}

func TestIncrementDecrement_Clamped(t *testing.T) {
	c, _ := newCart(t, item(1, 1, 2))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Increment(ctx, 1))
	}
	got, _ := c.Get(1)
	assert.Equal(t, 2, got.Quantity)

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Decrement(ctx, 1))
	}
	got, _ = c.Get(1)
	assert.Equal(t, 1, got.Quantity)

	assert.NoError(t, c.Increment(ctx, 99))
}

func TestRemoveAndClear(t *testing.T) {
	c, store := newCart(t, item(1, 1, 2), item(2, 1, 2))
	ctx := context.Background()

	require.NoError(t, c.Remove(ctx, 1))
	assert.Len(t, c.Items(), 1)

	require.NoError(t, c.Clear(ctx))
	assert.Empty(t, c.Items())

	saved, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestSyncProduct_StockZeroRemoves(t *testing.T) {
	c, _ := newCart(t, item(1, 1, 5))

	require.NoError(t, c.SyncProduct(context.Background(), model.Product{ID: 1, Stock: 0}.Update()))
	_, ok := c.Get(1)
	assert.False(t, ok)
}

func TestSyncProduct_OverStockDefaultRemoves(t *testing.T) {
	c, _ := newCart(t, item(1, 2, 5))

	require.NoError(t, c.SyncProduct(context.Background(), model.Product{ID: 1, Stock: 1}.Update()))
	_, ok := c.Get(1)
	assert.False(t, ok)
}

func TestSyncProduct_OverStockClampPolicy(t *testing.T) {
	store := NewMemoryStore()
	c := New("s1", store, WithPolicy(PolicyClamp))
	ctx := context.Background()
	require.NoError(t, c.Replace(ctx, []Item{item(1, 2, 5)}))

	require.NoError(t, c.SyncProduct(ctx, model.Product{ID: 1, Stock: 1}.Update()))
	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, 1, got.Quantity)
	assert.Equal(t, 1, got.Stock)
}

func TestSyncProduct_KeepsBlankFields(t *testing.T) {
	it := item(1, 1, 5)
	it.ImageURL = "/img/a.jpg"
	c, _ := newCart(t, it)

	require.NoError(t, c.SyncProduct(context.Background(), model.Product{ID: 1, Name: "Nuevo", Stock: 3}.Update()))
	got, _ := c.Get(1)
	assert.Equal(t, "Nuevo", got.Name)
	assert.Equal(t, "/img/a.jpg", got.ImageURL)
	assert.True(t, decimal.NewFromInt(100).Equal(got.Price))
	assert.Equal(t, 3, got.Stock)
}

func TestSyncProduct_PriceOnlyKeepsStock(t *testing.T) {
	c, _ := newCart(t, item(1, 1, 5))

	var u model.ProductUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"precio":"150"}`), &u))
	require.NoError(t, c.SyncProduct(context.Background(), u))

	got, ok := c.Get(1)
	require.True(t, ok, "an update without stock must not empty the line")
	assert.Equal(t, 5, got.Stock)
	assert.Equal(t, 1, got.Quantity)
	assert.True(t, decimal.NewFromInt(150).Equal(got.Price))
}

func TestApplyCompletedOrder(t *testing.T) {
	c, _ := newCart(t, item(1, 3, 5), item(2, 1, 1), item(3, 1, 10))

	require.NoError(t, c.ApplyCompletedOrder(context.Background(), []model.LineItem{
		{ProductID: 1, Quantity: 3},
		{ProductID: 2, Quantity: 1},
		{ProductID: 42, Quantity: 1},
	}))

	a, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, 2, a.Stock)
	assert.Equal(t, 2, a.Quantity)

	_, ok = c.Get(2)
	assert.False(t, ok)

	b, _ := c.Get(3)
	assert.Equal(t, 10, b.Stock)
}

func TestRestoreStock(t *testing.T) {
	c, _ := newCart(t, item(1, 1, 2))

	require.NoError(t, c.RestoreStock(context.Background(), []model.LineItem{{ProductID: 1, Quantity: 3}}))
	got, _ := c.Get(1)
	assert.Equal(t, 5, got.Stock)
	assert.Equal(t, 1, got.Quantity)
}

func TestSetStock(t *testing.T) {
	c, _ := newCart(t, item(1, 4, 5), item(2, 1, 5))
	ctx := context.Background()

	require.NoError(t, c.SetStock(ctx, 1, 2))
	got, _ := c.Get(1)
	assert.Equal(t, 2, got.Quantity)

	require.NoError(t, c.SetStock(ctx, 2, 0))
	_, ok := c.Get(2)
	assert.False(t, ok)
}

func TestTotalsAndCount(t *testing.T) {
	a := item(1, 2, 5)
	a.Price = decimal.RequireFromString("10.50")
	b := item(2, 1, 5)
	b.Price = decimal.RequireFromString("4.25")
	c, _ := newCart(t, a, b)

	assert.Equal(t, 3, c.Count())
	assert.True(t, decimal.RequireFromString("25.25").Equal(c.Total()))
}

func TestReplace_Normalizes(t *testing.T) {
	c, _ := newCart(t, item(1, 7, 3), item(2, 1, 0), item(3, -1, 2))

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)
}

func TestMutation_AppliesInMemoryEvenWhenSaveFails(t *testing.T) {
	c := New("s1", &failingStore{})
	err := c.Add(context.Background(), item(1, 1, 3))

	assert.ErrorContains(t, err, "disk full")
	_, ok := c.Get(1)
	assert.True(t, ok)
}

func TestOpen_RestoresSavedCart(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "s1", []Item{item(1, 2, 4)}))

	c, err := Open(ctx, "s1", store)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Count())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	assert.NoError(t, err)
	assert.Equal(t, PolicyRemove, p)

	p, err = ParsePolicy("clamp")
	assert.NoError(t, err)
	assert.Equal(t, PolicyClamp, p)

	_, err = ParsePolicy("ignore")
	assert.Error(t, err)
}
