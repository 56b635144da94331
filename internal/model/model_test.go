package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_DecodesEitherLineItemKey(t *testing.T) {
	withDetails := `{"id":7,"fecha":"2024-05-01T10:00:00.000Z","total":"1500.50","nombre":"Ana","email":"ana@example.com",
		"details":[{"producto_id":3,"nombre":"Taza","cantidad":2,"precio":750.25}],"estado":"Aprobado","provincia":"Cordoba"}`
	withDetalles := `{"id":8,"fecha":"2024-05-02 09:30:00","total":10,"detalles":[{"producto_id":4,"cantidad":1,"precio":10}],"estado":"activo"}`

	var a, b Order
	require.NoError(t, json.Unmarshal([]byte(withDetails), &a))
	require.NoError(t, json.Unmarshal([]byte(withDetalles), &b))

	assert.Equal(t, int64(7), a.ID)
	assert.Equal(t, "Ana", a.Name)
	assert.Equal(t, "Cordoba", a.Province)
	assert.Equal(t, OrderApproved, a.Status)
	require.Len(t, a.Items, 1)
	assert.Equal(t, 2, a.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("1500.50").Equal(a.Total))
	assert.Equal(t, 2024, a.Date.Year())

	require.Len(t, b.Items, 1)
	assert.Equal(t, int64(4), b.Items[0].ProductID)
	assert.Equal(t, 9, b.Date.Hour())
}

func TestTimestamp_NullAndEmpty(t *testing.T) {
	var r Reservation
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"fecha_reserva":null,"fecha_inicio":"","fecha_fin":"2024-06-01"}`), &r))
	assert.True(t, r.BookedAt.IsZero())
	assert.True(t, r.Start.IsZero())
	assert.Equal(t, time.June, r.End.Month())

	b, err := json.Marshal(r.BookedAt)
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestTimestamp_RejectsGarbage(t *testing.T) {
	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestParseOrderStatus(t *testing.T) {
	cases := map[string]OrderStatus{
		"Aprobado":   OrderApproved,
		"approved":   OrderApproved,
		"COMPLETADO": OrderCompleted,
		" pending ":  OrderPending,
		"activo":     OrderActive,
	}
	for in, want := range cases {
		got, err := ParseOrderStatus(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseOrderStatus("shipped")
	assert.Error(t, err)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(OrderApproved, OrderCompleted))
	assert.True(t, CanTransition(OrderCompleted, OrderCompleted))
	assert.False(t, CanTransition(OrderCompleted, OrderPending))
	assert.False(t, CanTransition(OrderPending, OrderCompleted))
}

func TestOrderQuery_DateRangeNeedsBothBounds(t *testing.T) {
	from := NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	to := NewTimestamp(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))

	_, _, ok := OrderQuery{From: from}.DateRange()
	assert.False(t, ok)

	f, tt, ok := OrderQuery{From: from, To: to}.DateRange()
	assert.True(t, ok)
	assert.Equal(t, "2024-01-01", f)
	assert.Equal(t, "2024-01-31", tt)
}

func TestSlot_CalendarEvent(t *testing.T) {
	ev := Slot{ID: 5, Status: SlotBooked}.CalendarEvent()
	assert.Equal(t, "Reservado", ev.Title)

	ev = Slot{ID: 6}.CalendarEvent()
	assert.Equal(t, "Disponible", ev.Title)
	assert.Equal(t, SlotAvailable, ev.Status)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("cursos")
	assert.NoError(t, err)
	assert.Equal(t, KindCourse, k)
	_, err = ParseKind("rooms")
	assert.Error(t, err)
}
