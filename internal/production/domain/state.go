// Package domain holds the production item state machine: the named
// transitions between coarse production statuses and the derivation of an
// order's aggregate status. All functions are pure; persistence and log
// assembly live in the service and repository layers.
package domain

import (
	"fmt"
	"strings"

	"opsdash_backend/platform/apperr"
)

// Status is the coarse production status of a promoted line item.
type Status int

const (
	StatusNotStarted Status = 0
	StatusInProgress Status = 1
	StatusComplete   Status = 2
	StatusCancelled  Status = 3
)

// String returns the UI label for a status.
func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "Not Started"
	case StatusInProgress:
		return "In Progress"
	case StatusComplete:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Synthetic stage names written by the coarse transitions. Intermediate
// stage names are free-form and configurable per workflow, so they are not
// enumerated here.
const (
	StageOrderCreated      = "Order Created"
	StageInProduction      = "In Production"
	StageOutFromProduction = "Out from Production"
)

// OrderStatus is the aggregate status of a production order, derived from
// its items' production statuses.
type OrderStatus int

const (
	OrderStatusPending    OrderStatus = 0
	OrderStatusInProgress OrderStatus = 1
	OrderStatusCompleted  OrderStatus = 2
)

// String returns the UI label for an order status.
func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "Pending"
	case OrderStatusInProgress:
		return "In Progress"
	case OrderStatusCompleted:
		return "Completed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// TransitionDetails names the rejected move in error responses.
type TransitionDetails struct {
	CurrentStatus string `json:"currentStatus"`
	Action        string `json:"action"`
}

func invalidTransition(action string, from Status) *apperr.Error {
	return apperr.Conflict(fmt.Sprintf("cannot %s from status %q", action, from.String())).
		WithDetails(TransitionDetails{CurrentStatus: from.String(), Action: action})
}

// Start validates the start-production transition.
// Legal only from NOT_STARTED; the resulting log row runs from the synthetic
// "Order Created" stage to "In Production".
func Start(current Status) (Status, error) {
	if current != StatusNotStarted {
		return current, invalidTransition("start production", current)
	}
	return StatusInProgress, nil
}

// Advance validates an intermediate stage move. It is legal only while
// IN_PROGRESS and does not change the coarse status; the stage name is
// free-form but must be non-empty.
func Advance(current Status, toStage string) error {
	if current != StatusInProgress {
		return invalidTransition("advance stage", current)
	}
	if strings.TrimSpace(toStage) == "" {
		return apperr.Validation("stage name is required")
	}
	return nil
}

// Complete validates the complete-production transition.
// Legal only from IN_PROGRESS; the final log row ends at
// "Out from Production".
func Complete(current Status) (Status, error) {
	if current != StatusInProgress {
		return current, invalidTransition("complete production", current)
	}
	return StatusComplete, nil
}

// Cancel validates the cancel transition. A completed product cannot be
// cancelled, and cancellation is never rolled back.
func Cancel(current Status) (Status, error) {
	if current != StatusNotStarted && current != StatusInProgress {
		return current, invalidTransition("cancel production", current)
	}
	return StatusCancelled, nil
}

// DeriveOrderStatus computes the aggregate order status from the statuses of
// its promoted items. totalItems is the number of order items; items not yet
// promoted count as work not started.
//
//   - no active (non-cancelled) products, or all active NOT_STARTED → Pending
//   - every item promoted and every active product COMPLETE → Completed
//   - anything else → In Progress
func DeriveOrderStatus(totalItems int, products []Status) OrderStatus {
	active := 0
	started := 0
	completed := 0
	for _, s := range products {
		if s == StatusCancelled {
			continue
		}
		active++
		if s != StatusNotStarted {
			started++
		}
		if s == StatusComplete {
			completed++
		}
	}

	if active == 0 || started == 0 {
		return OrderStatusPending
	}
	if len(products) >= totalItems && completed == active {
		return OrderStatusCompleted
	}
	return OrderStatusInProgress
}
