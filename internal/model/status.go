package model

import (
	"fmt"
	"strings"
)

type OrderStatus string

const (
	OrderActive    OrderStatus = "activo"
	OrderPending   OrderStatus = "pendiente"
	OrderApproved  OrderStatus = "Aprobado"
	OrderCompleted OrderStatus = "Completado"
)

// Completed orders are final; everything else may still move forward or back
// to pending while payment is being checked.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderPending:   {OrderActive: true, OrderApproved: true},
	OrderActive:    {OrderPending: true, OrderApproved: true, OrderCompleted: true},
	OrderApproved:  {OrderPending: true, OrderCompleted: true},
	OrderCompleted: {},
}

func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return true
	}
	return validNext[from][to]
}

var orderAliases = map[string]OrderStatus{
	"activo":     OrderActive,
	"active":     OrderActive,
	"pendiente":  OrderPending,
	"pending":    OrderPending,
	"aprobado":   OrderApproved,
	"approved":   OrderApproved,
	"completado": OrderCompleted,
	"completed":  OrderCompleted,
}

// ParseOrderStatus accepts the backend spelling in any case plus the English names.
func ParseOrderStatus(s string) (OrderStatus, error) {
	if st, ok := orderAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pendiente"
	ReservationCompleted ReservationStatus = "completada"
)

func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pendiente", "pending":
		return ReservationPending, nil
	case "completada", "completado", "completed":
		return ReservationCompleted, nil
	}
	return "", fmt.Errorf("unknown reservation status %q", s)
}

type SlotStatus string

const (
	SlotAvailable SlotStatus = "disponible"
	SlotBooked    SlotStatus = "reservado"
)

func ParseSlotStatus(s string) (SlotStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disponible", "available":
		return SlotAvailable, nil
	case "reservado", "booked", "reserved":
		return SlotBooked, nil
	}
	return "", fmt.Errorf("unknown slot status %q", s)
}
