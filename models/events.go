package models

import (
	"context"

	"github.com/flowplatform/flow_backend/config"
)

// EntityEvent describes a committed mutation on a watchable aggregate.
type EntityEvent struct {
	Action      EventAction
	EntityType  EntityType
	EntityId    string
	DisplayName string
}

// EntityEventProcessor reacts to entity events synchronously, after the
// mutation's transaction has committed. Processor failures are logged and
// never fail the originating mutation.
type EntityEventProcessor interface {
	Name() string
	Process(ctx context.Context, event EntityEvent) error
}

var entityEventProcessors []EntityEventProcessor

// RegisterEntityEventProcessor wires a processor into the event bus. Called
// from server bootstrap before any request is served.
func RegisterEntityEventProcessor(p EntityEventProcessor) {
	entityEventProcessors = append(entityEventProcessors, p)
}

func emitEntityEvent(ctx context.Context, action EventAction, entityType EntityType, entityId string, displayName string) {
	event := EntityEvent{
		Action:      action,
		EntityType:  entityType,
		EntityId:    entityId,
		DisplayName: displayName,
	}
	for _, p := range entityEventProcessors {
		if err := p.Process(ctx, event); err != nil {
			config.LogError(config.GetLogger(), "models", "emitEntityEvent", p.Name(), event, err)
		}
	}
}

// WatcherNotificationProcessor queues an outbox notification for every
// watcher of the mutated entity.
type WatcherNotificationProcessor struct{}

func (WatcherNotificationProcessor) Name() string { return "watcher-notification" }

func (WatcherNotificationProcessor) Process(ctx context.Context, event EntityEvent) error {
	watchers, err := watchersOf(ctx, event.EntityType, event.EntityId)
	if err != nil {
		return err
	}
	if len(watchers) == 0 {
		return nil
	}

	verb := "Updated"
	if event.Action == EventActionPostDelete {
		verb = "Deleted"
	}
	subject := string(event.EntityType) + " " + verb + ": " + event.DisplayName

	actorId := currentUserId(ctx)
	for _, w := range watchers {
		// the actor does not get notified about their own change
		if w.UserId == actorId {
			continue
		}
		if err := queueNotification(ctx, w.UserId, subject, event); err != nil {
			return err
		}
	}
	return nil
}

// notifyOrderShipped recomputes the parent order's header status from the
// shipped state of its fulfillment orders.
func notifyOrderShipped(ctx context.Context, fo *FulfillmentOrder) {
	if err := recomputeOrderHeaderStatus(ctx, fo.OrderId); err != nil {
		config.LogError(config.GetLogger(), "models", "notifyOrderShipped", fo.OrderId, nil, err)
	}
}

func recomputeOrderHeaderStatus(ctx context.Context, orderId string) error {
	db := dbFrom(ctx)

	var fulfillmentOrders []*FulfillmentOrder
	if err := db.Preload("LineItems").
		Where("order_id = ? AND status <> ?", orderId, FulfillmentStatusCancelled).
		Find(&fulfillmentOrders).Error; err != nil {
		return err
	}
	if len(fulfillmentOrders) == 0 {
		return nil
	}

	anyShipped := false
	allShipped := true
	for _, fo := range fulfillmentOrders {
		for _, li := range fo.LineItems {
			if li.ShippedQty.IsPositive() {
				anyShipped = true
			}
			if li.ShippedQty.LessThan(li.OrderedQty) {
				allShipped = false
			}
		}
	}

	status := OrderHeaderStatusNone
	switch {
	case anyShipped && allShipped:
		status = OrderHeaderStatusShipped
	case anyShipped:
		status = OrderHeaderStatusPartiallyShipped
	default:
		return nil
	}

	var order Order
	if err := db.First(&order, "id = ?", orderId).Error; err != nil {
		return err
	}
	// invoiced is the final header state; shipment never regresses it
	if order.HeaderStatus == OrderHeaderStatusInvoiced {
		return nil
	}
	return db.Model(&Order{}).Where("id = ?", orderId).
		Update("header_status", status).Error
}
