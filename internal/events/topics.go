package events

import (
	"encoding/json"
	"strconv"
)

const (
	// Backend push events relayed from the socket plus changes made through
	// this service, consumed by every API replica.
	TopicPush = "storefront.push"
)

// PartitionKey = entity:id, so all events of one order, slot or product keep
// their order.
func PartitionKey(entity, id string) []byte { return []byte(entity + ":" + id) }

// KeyFor derives the partition key of a pushed event from its payload. Events
// without a recognizable id are keyed by their type.
func KeyFor(e Envelope) []byte {
	var ids struct {
		ID             FlexInt `json:"id"`
		OrderID        FlexInt `json:"orderId"`
		AvailabilityID FlexInt `json:"availabilityId"`
		ServiceID      FlexInt `json:"serviceId"`
		ReservationID  FlexInt `json:"reservationId"`
		UserID         FlexInt `json:"userId"`
	}
	_ = json.Unmarshal(e.Payload, &ids)

	var entity string
	var id FlexInt
	switch e.EventType {
	case EventOrderStatusChanged, EventOrderDeleted:
		entity, id = "order", ids.OrderID
	case EventOrderCreated:
		entity, id = "order", ids.ID
	case EventProductStockChanged:
		entity, id = "product", ids.ID
	case EventAvailabilityChanged:
		entity, id = "slot", ids.AvailabilityID
	case EventServiceDescriptionChanged:
		entity, id = "service", ids.ServiceID
	case EventReservationStatusChanged:
		entity, id = "reservation", ids.ReservationID
	case EventRoleRevoked:
		entity, id = "user", ids.UserID
	}
	if entity == "" || id == 0 {
		return PartitionKey("event", e.EventType)
	}
	return PartitionKey(entity, strconv.FormatInt(int64(id), 10))
}
