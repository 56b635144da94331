package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type LineItem struct {
	ProductID int64           `json:"producto_id"`
	Name      string          `json:"nombre"`
	Quantity  int             `json:"cantidad"`
	Price     decimal.Decimal `json:"precio"`
	ImageURL  string          `json:"imagen_url,omitempty"`
}

type Customer struct {
	Name  string `json:"nombre"`
	Email string `json:"email"`
	Phone string `json:"telefono,omitempty"`
}

// Shipping uses "provincia" for the region so it does not collide with the
// order's "estado" status field.
type Shipping struct {
	Address    string `json:"direccion,omitempty"`
	City       string `json:"ciudad,omitempty"`
	Province   string `json:"provincia,omitempty"`
	PostalCode string `json:"codigo_postal,omitempty"`
	Country    string `json:"pais,omitempty"`
	Method     string `json:"metodo_envio,omitempty"`
}

type Order struct {
	ID    int64           `json:"id"`
	Date  Timestamp       `json:"fecha"`
	Total decimal.Decimal `json:"total"`
	Customer
	Items []LineItem `json:"details"`
	Shipping
	ProofURL string      `json:"comprobante_pago,omitempty"`
	Status   OrderStatus `json:"estado"`
}

// UnmarshalJSON accepts line items under either "details" or "detalles";
// different backend endpoints use different keys.
func (o *Order) UnmarshalJSON(b []byte) error {
	type alias Order
	aux := struct {
		*alias
		Detalles []LineItem `json:"detalles"`
	}{alias: (*alias)(o)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if len(o.Items) == 0 && len(aux.Detalles) > 0 {
		o.Items = aux.Detalles
	}
	return nil
}

// OrderQuery filters the admin order listing.
type OrderQuery struct {
	Status OrderStatus
	Sort   string // asc | desc
	From   Timestamp
	To     Timestamp
}

const queryDateLayout = "2006-01-02"

// DateRange reports the range as backend query values; both bounds must be
// set or neither is sent.
func (q OrderQuery) DateRange() (from, to string, ok bool) {
	if q.From.IsZero() || q.To.IsZero() {
		return "", "", false
	}
	return q.From.Format(queryDateLayout), q.To.Format(queryDateLayout), true
}
