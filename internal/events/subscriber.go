package events

import (
	"context"

	"opsdash_backend/platform/logger"
)

// RegisterAuditSubscriber attaches a structured-log subscriber for every
// domain event so that order and production activity shows up in the
// application log stream.
func RegisterAuditSubscriber(bus Bus, log *logger.Logger) {
	audit := HandlerFunc(func(ctx context.Context, e Event) error {
		switch ev := e.(type) {
		case OrderCreated:
			log.Info("order created",
				"event", ev.EventName(),
				"order_id", ev.OrderID,
				"batch_no", ev.BatchNo,
				"item_count", ev.ItemCount,
				"actor_id", ev.ActorID,
			)
		case OrderUpdated:
			log.Info("order updated",
				"event", ev.EventName(),
				"order_id", ev.OrderID,
				"item_count", ev.ItemCount,
				"actor_id", ev.ActorID,
			)
		case OrderDeleted:
			log.Info("order deleted",
				"event", ev.EventName(),
				"order_id", ev.OrderID,
				"actor_id", ev.ActorID,
			)
		case ItemsApproved:
			log.Info("items approved for production",
				"event", ev.EventName(),
				"order_id", ev.OrderID,
				"product_count", len(ev.ProductIDs),
				"actor_id", ev.ActorID,
			)
		case ProductionStarted:
			log.Info("production started",
				"event", ev.EventName(),
				"product_id", ev.ProductID,
				"order_id", ev.OrderID,
				"actor_id", ev.ActorID,
			)
		case StageAdvanced:
			log.Info("production stage advanced",
				"event", ev.EventName(),
				"product_id", ev.ProductID,
				"from_stage", ev.FromStage,
				"to_stage", ev.ToStage,
				"actor_id", ev.ActorID,
			)
		case ProductionCompleted:
			log.Info("production completed",
				"event", ev.EventName(),
				"product_id", ev.ProductID,
				"order_id", ev.OrderID,
				"actor_id", ev.ActorID,
			)
		case ProductionCancelled:
			log.Info("production cancelled",
				"event", ev.EventName(),
				"product_id", ev.ProductID,
				"order_id", ev.OrderID,
				"actor_id", ev.ActorID,
			)
		default:
			log.Info("domain event", "event", e.EventName())
		}
		return nil
	})

	for _, name := range []string{
		OrderCreated{}.EventName(),
		OrderUpdated{}.EventName(),
		OrderDeleted{}.EventName(),
		ItemsApproved{}.EventName(),
		ProductionStarted{}.EventName(),
		StageAdvanced{}.EventName(),
		ProductionCompleted{}.EventName(),
		ProductionCancelled{}.EventName(),
	} {
		bus.Subscribe(name, audit)
	}
}
