package model

import "github.com/shopspring/decimal"

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"nombre"`
	Price       decimal.Decimal `json:"precio"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"imagen_url,omitempty"`
	Description string          `json:"descripcion,omitempty"`
}

// ProductUpdate is a partial product as pushed by the backend. A nil Stock
// means the event did not carry one.
type ProductUpdate struct {
	ID       int64           `json:"id"`
	Name     string          `json:"nombre,omitempty"`
	Price    decimal.Decimal `json:"precio"`
	Stock    *int            `json:"stock,omitempty"`
	ImageURL string          `json:"imagen_url,omitempty"`
}

// Update turns a full product into an update that sets every field.
func (p Product) Update() ProductUpdate {
	stock := p.Stock
	return ProductUpdate{ID: p.ID, Name: p.Name, Price: p.Price, Stock: &stock, ImageURL: p.ImageURL}
}

type User struct {
	ID    int64    `json:"id"`
	Name  string   `json:"nombre"`
	Email string   `json:"email"`
	Phone string   `json:"telefono,omitempty"`
	Roles []string `json:"roles,omitempty"`
}
