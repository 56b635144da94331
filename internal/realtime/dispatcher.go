package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/model"
)

// Target receives decoded push events. The app registry implements it by
// fanning each call out to every live session.
type Target interface {
	RevokeRole(ctx context.Context, userID int64, role string)
	SetSlotStatus(ctx context.Context, slotID int64, status model.SlotStatus)
	SetServiceDescription(ctx context.Context, serviceID int64, description string)
	SetReservationStatus(ctx context.Context, kind model.Kind, id int64, status model.ReservationStatus)
	SetOrderStatus(ctx context.Context, id int64, status model.OrderStatus)
	AddOrder(ctx context.Context, o model.Order)
	RemoveOrder(ctx context.Context, id int64)
	SyncProduct(ctx context.Context, p model.ProductUpdate)
}

type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
}

type Dispatcher struct {
	target Target
	dedup  Deduper
	log    *slog.Logger
}

func NewDispatcher(t Target, dedup Deduper, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{target: t, dedup: dedup, log: log}
}

// Handle applies one event. Duplicates are skipped when a deduper is set; a
// failing deduper lets the event through. Unknown event types are ignored.
func (d *Dispatcher) Handle(ctx context.Context, env events.Envelope) error {
	if d.dedup != nil && env.EventID != "" {
		first, err := d.dedup.FirstSeen(ctx, env.EventID)
		if err != nil {
			d.log.Warn("event dedup unavailable", "event_id", env.EventID, "error", err)
		} else if !first {
			d.log.Debug("duplicate event skipped", "event_id", env.EventID, "event_type", env.EventType)
			return nil
		}
	}

	switch env.EventType {
	case events.EventRoleRevoked:
		p, err := events.Decode[events.RoleRevokedPayload](env)
		if err != nil {
			return err
		}
		d.target.RevokeRole(ctx, int64(p.UserID), p.RoleName)

	case events.EventAvailabilityChanged:
		p, err := events.Decode[events.AvailabilityChangedPayload](env)
		if err != nil {
			return err
		}
		status, err := model.ParseSlotStatus(p.NewStatus)
		if err != nil {
			return fmt.Errorf("%s: %w", env.EventType, err)
		}
		d.target.SetSlotStatus(ctx, int64(p.AvailabilityID), status)

	case events.EventServiceDescriptionChanged:
		p, err := events.Decode[events.ServiceDescriptionChangedPayload](env)
		if err != nil {
			return err
		}
		d.target.SetServiceDescription(ctx, int64(p.ServiceID), p.NewDescription)

	case events.EventReservationStatusChanged:
		p, err := events.Decode[events.ReservationStatusChangedPayload](env)
		if err != nil {
			return err
		}
		status, err := model.ParseReservationStatus(p.NewStatus)
		if err != nil {
			return fmt.Errorf("%s: %w", env.EventType, err)
		}
		d.target.SetReservationStatus(ctx, p.Kind, int64(p.ReservationID), status)

	case events.EventOrderCreated:
		o, err := events.Decode[events.OrderCreatedPayload](env)
		if err != nil {
			return err
		}
		d.target.AddOrder(ctx, o)

	case events.EventOrderStatusChanged:
		p, err := events.Decode[events.OrderStatusChangedPayload](env)
		if err != nil {
			return err
		}
		status, err := model.ParseOrderStatus(p.NewStatus)
		if err != nil {
			return fmt.Errorf("%s: %w", env.EventType, err)
		}
		d.target.SetOrderStatus(ctx, int64(p.OrderID), status)

	case events.EventOrderDeleted:
		p, err := events.Decode[events.OrderDeletedPayload](env)
		if err != nil {
			return err
		}
		d.target.RemoveOrder(ctx, int64(p.OrderID))

	case events.EventProductStockChanged:
		p, err := events.Decode[events.ProductStockChangedPayload](env)
		if err != nil {
			return err
		}
		d.target.SyncProduct(ctx, p)

	default:
		d.log.Debug("unhandled event", "event_type", env.EventType)
	}
	return nil
}
