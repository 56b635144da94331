package cart

import (
	"fmt"

	"github.com/ariefcatur/go-storefront/internal/model"
	"github.com/shopspring/decimal"
)

type Item struct {
	ID       int64           `json:"id"`
	Name     string          `json:"nombre"`
	Price    decimal.Decimal `json:"precio"`
	Quantity int             `json:"cantidad"`
	Stock    int             `json:"stock"`
	ImageURL string          `json:"imagen_url,omitempty"`
}

func (it Item) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// FromProduct builds a cart line for one unit of p.
func FromProduct(p model.Product) Item {
	return Item{ID: p.ID, Name: p.Name, Price: p.Price, Quantity: 1, Stock: p.Stock, ImageURL: p.ImageURL}
}

// Policy decides what a stock sync does with an item whose quantity now
// exceeds the reported stock.
type Policy string

const (
	// PolicyRemove drops the item from the cart.
	PolicyRemove Policy = "remove"
	// PolicyClamp keeps the item with its quantity lowered to the stock.
	PolicyClamp Policy = "clamp"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyRemove, PolicyClamp:
		return Policy(s), nil
	case "":
		return PolicyRemove, nil
	}
	return "", fmt.Errorf("unknown over-stock policy %q", s)
}
