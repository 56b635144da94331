package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/go-storefront/internal/model"
	"github.com/google/uuid"
)

const (
	EventRoleRevoked               = "roleRevoked"
	EventAvailabilityChanged       = "availabilityChanged"
	EventServiceDescriptionChanged = "serviceDescriptionChanged"
	EventReservationStatusChanged  = "reservationStatusChanged"
	EventOrderCreated              = "newOrder"
	EventOrderStatusChanged        = "orderStatusChanged"
	EventOrderDeleted              = "orderDeleted"
	EventProductStockChanged       = "productStockChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// New wraps payload in a v1 envelope.
func New(eventType, producer, correlationID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       b,
	}, nil
}

// Frame is what the backend socket sends: an event name and its data.
type Frame struct {
	ID    string          `json:"id,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Envelope converts a socket frame; frames without an id get a fresh one.
func (f Frame) Envelope(producer string) Envelope {
	id := f.ID
	if id == "" {
		id = uuid.NewString()
	}
	return Envelope{
		EventID:      id,
		EventType:    f.Event,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     producer,
		Payload:      f.Data,
	}
}

// FlexInt decodes ids the backend sends either as numbers or as strings.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("decode id %q: %w", s, err)
		}
		*f = FlexInt(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*f = FlexInt(n)
	return nil
}

type RoleRevokedPayload struct {
	UserID   FlexInt `json:"userId"`
	RoleName string  `json:"roleName"`
}

type AvailabilityChangedPayload struct {
	AvailabilityID FlexInt `json:"availabilityId"`
	NewStatus      string  `json:"newStatus"`
}

type ServiceDescriptionChangedPayload struct {
	ServiceID      FlexInt `json:"serviceId"`
	NewDescription string  `json:"newDescription"`
}

type ReservationStatusChangedPayload struct {
	Kind          model.Kind `json:"kind,omitempty"`
	ReservationID FlexInt    `json:"reservationId"`
	NewStatus     string     `json:"newStatus"`
}

type OrderCreatedPayload = model.Order

type OrderStatusChangedPayload struct {
	OrderID   FlexInt `json:"orderId"`
	NewStatus string  `json:"newStatus"`
}

type OrderDeletedPayload struct {
	OrderID FlexInt          `json:"orderId"`
	Items   []model.LineItem `json:"items,omitempty"`
}

type ProductStockChangedPayload = model.ProductUpdate

// Decode unmarshals the payload of e into T.
func Decode[T any](e Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(e.Payload, &t); err != nil {
		return t, fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	return t, nil
}
