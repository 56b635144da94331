package app

import (
	"context"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/model"
	"github.com/ariefcatur/go-storefront/internal/realtime"
)

var (
	_ realtime.Target = (*Registry)(nil)
	_ Backend         = (*backend.Client)(nil)
)

// RevokeRole signs out the sessions of userID when their admin role is
// revoked.
func (r *Registry) RevokeRole(_ context.Context, userID int64, role string) {
	if role != "admin" {
		return
	}
	for _, s := range r.all() {
		if userID != 0 && s.Tokens.Claims().UserID == userID {
			s.SignOut()
			r.log.Info("admin role revoked, session signed out", "session_id", s.ID, "user_id", userID)
		}
	}
}

func (r *Registry) SetSlotStatus(_ context.Context, slotID int64, status model.SlotStatus) {
	for _, s := range r.all() {
		for _, b := range s.bookings {
			b.ApplySlotStatus(slotID, status)
		}
	}
}

func (r *Registry) SetServiceDescription(_ context.Context, serviceID int64, description string) {
	for _, s := range r.all() {
		s.bookings[model.KindService].ApplyDescription(serviceID, description)
	}
}

// SetReservationStatus patches reservations of kind, or of every kind when
// the event did not say.
func (r *Registry) SetReservationStatus(_ context.Context, kind model.Kind, id int64, status model.ReservationStatus) {
	for _, s := range r.all() {
		for k, b := range s.bookings {
			if kind == "" || kind == k {
				b.ApplyReservationStatus(id, status)
			}
		}
	}
}

func (r *Registry) SetOrderStatus(_ context.Context, id int64, status model.OrderStatus) {
	for _, s := range r.all() {
		s.Orders.SetStatus(id, status)
	}
}

// AddOrder shows a new order to admins, bumping their unseen counter, and
// to the session of the customer who placed it.
func (r *Registry) AddOrder(_ context.Context, o model.Order) {
	for _, s := range r.all() {
		if s.IsAdmin() {
			s.Orders.Add(o)
			s.Orders.IncrementNew()
			continue
		}
		if u, ok := s.User(); ok && u.Email != "" && strings.EqualFold(u.Email, o.Email) {
			s.Orders.Add(o)
		}
	}
}

func (r *Registry) RemoveOrder(_ context.Context, id int64) {
	for _, s := range r.all() {
		s.Orders.Remove(id)
	}
}

// SyncProduct drops the cached product and syncs every cart holding it.
func (r *Registry) SyncProduct(ctx context.Context, p model.ProductUpdate) {
	r.backend.ForgetProduct(p.ID)
	for _, s := range r.all() {
		if _, ok := s.Cart.Get(p.ID); !ok {
			continue
		}
		if err := s.Cart.SyncProduct(ctx, p); err != nil {
			r.log.Error("sync cart product", "session_id", s.ID, "product_id", p.ID, "error", err)
		}
	}
}
