// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"opsdash_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Order Domain Events
// =============================================================================

// OrderCreated is published when a production order is successfully assembled.
type OrderCreated struct {
	BaseEvent
	OrderID     uuid.UUID  `json:"orderId"`
	QuotationID *uuid.UUID `json:"quotationId,omitempty"`
	BatchNo     string     `json:"batchNo"`
	ItemCount   int        `json:"itemCount"`
	ActorID     uuid.UUID  `json:"actorId"`
}

func (e OrderCreated) EventName() string { return "orders.created" }

// OrderUpdated is published when an order's commitments are re-assembled.
type OrderUpdated struct {
	BaseEvent
	OrderID   uuid.UUID `json:"orderId"`
	ItemCount int       `json:"itemCount"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (e OrderUpdated) EventName() string { return "orders.updated" }

// OrderDeleted is published when a pending order is removed.
type OrderDeleted struct {
	BaseEvent
	OrderID uuid.UUID `json:"orderId"`
	ActorID uuid.UUID `json:"actorId"`
}

func (e OrderDeleted) EventName() string { return "orders.deleted" }

// ItemsApproved is published when order items are promoted to production
// products (approve-all or approve-single).
type ItemsApproved struct {
	BaseEvent
	OrderID    uuid.UUID   `json:"orderId"`
	ProductIDs []uuid.UUID `json:"productIds"`
	ActorID    uuid.UUID   `json:"actorId"`
}

func (e ItemsApproved) EventName() string { return "production.items.approved" }

// =============================================================================
// Production Domain Events
// =============================================================================

// ProductionStarted is published when a production product enters IN_PROGRESS.
type ProductionStarted struct {
	BaseEvent
	ProductID uuid.UUID `json:"productId"`
	OrderID   uuid.UUID `json:"orderId"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (e ProductionStarted) EventName() string { return "production.started" }

// StageAdvanced is published on every intermediate stage transition.
type StageAdvanced struct {
	BaseEvent
	ProductID uuid.UUID `json:"productId"`
	FromStage string    `json:"fromStage"`
	ToStage   string    `json:"toStage"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (e StageAdvanced) EventName() string { return "production.stage.advanced" }

// ProductionCompleted is published when a production product completes.
type ProductionCompleted struct {
	BaseEvent
	ProductID uuid.UUID `json:"productId"`
	OrderID   uuid.UUID `json:"orderId"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (e ProductionCompleted) EventName() string { return "production.completed" }

// ProductionCancelled is published when a production product is cancelled,
// releasing its commitment back to the quotation's pool.
type ProductionCancelled struct {
	BaseEvent
	ProductID uuid.UUID `json:"productId"`
	OrderID   uuid.UUID `json:"orderId"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (e ProductionCancelled) EventName() string { return "production.cancelled" }
