package service

import (
	"fmt"
	"time"

	"opsdash_backend/internal/orders/reconcile"
	"opsdash_backend/internal/orders/repository"
	"opsdash_backend/internal/orders/transport"
	"opsdash_backend/internal/quotations/catalog"
	"opsdash_backend/platform/apperr"

	"github.com/google/uuid"
)

// Pure submission assembly and validation. Everything here is deterministic
// and side-effect free so the rejection rules can be tested without storage.

const dateFormat = time.DateOnly

// orderDates holds the parsed header dates of a submission.
type orderDates struct {
	Commencement time.Time
	Delivery     time.Time
}

// parseOrderDates validates the order-level dates.
func parseOrderDates(commencement, delivery string) (orderDates, error) {
	c, err := parseDate("commencementDate", commencement)
	if err != nil {
		return orderDates{}, err
	}
	d, err := parseDate("deliveryDate", delivery)
	if err != nil {
		return orderDates{}, err
	}
	if d.Before(c) {
		return orderDates{}, apperr.Validation("delivery date cannot be before the commencement date")
	}
	return orderDates{Commencement: c, Delivery: d}, nil
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, apperr.Validation(fmt.Sprintf("%s is required", field))
	}
	t, err := time.Parse(dateFormat, value)
	if err != nil {
		return time.Time{}, apperr.Validation(fmt.Sprintf("%s must be a valid %s date", field, dateFormat))
	}
	return t, nil
}

// assembleItems converts submitted lines into staged inserts. Lines with a
// non-positive production quantity are unselected rows from the order form
// and are dropped; at least one selected line must survive. Per-item dates
// are required and must be ordered.
func assembleItems(orderID uuid.UUID, reqItems []transport.OrderItemRequest, now time.Time) ([]repository.ItemInsert, error) {
	items := make([]repository.ItemInsert, 0, len(reqItems))
	for _, ri := range reqItems {
		if ri.ProductionQty <= 0 {
			continue
		}

		key := catalog.KeyOf(ri.ProductID, ri.Group)
		start, err := parseDate("startDate", ri.StartDate)
		if err != nil {
			return nil, itemError(err, key)
		}
		end, err := parseDate("endDate", ri.EndDate)
		if err != nil {
			return nil, itemError(err, key)
		}
		if end.Before(start) {
			return nil, itemError(apperr.Validation("end date cannot be before the start date"), key)
		}

		items = append(items, repository.ItemInsert{
			OrderItem: repository.OrderItem{
				ID:            uuid.New(),
				OrderID:       orderID,
				ProductID:     key.ProductID,
				GroupName:     key.Group,
				ProductName:   ri.Name,
				Model:         ri.Model,
				UniqueCode:    ri.UniqueCode,
				OriginalQty:   ri.OriginalQty,
				ProductionQty: ri.ProductionQty,
				Size:          ri.Size,
				Document:      ri.Document,
				StartDate:     start,
				EndDate:       end,
				CreatedAt:     now,
			},
			Approve:  ri.Approve || ri.StartNow,
			StartNow: ri.StartNow,
		})
	}

	if len(items) == 0 {
		return nil, apperr.Validation("at least one item must have a positive production quantity")
	}
	return items, nil
}

// itemError annotates a validation error with the offending line item key.
func itemError(err error, key catalog.Key) error {
	if e, ok := err.(*apperr.Error); ok {
		return e.WithDetails(key)
	}
	return err
}

// checkCommitments is the optimistic pre-check against a fresh snapshot:
// every staged item's key-level requested quantity must fit within what the
// quotation still has remaining. The first violating key rejects the whole
// submission. The same rule runs again inside the write transaction.
func checkCommitments(items []repository.ItemInsert, quoted map[catalog.Key]int, snapshot reconcile.Snapshot) error {
	requested := make(map[catalog.Key]int, len(items))
	for _, it := range items {
		requested[catalog.KeyOf(it.ProductID, it.GroupName)] += it.ProductionQty
	}

	for _, it := range items {
		key := catalog.KeyOf(it.ProductID, it.GroupName)
		remaining := reconcile.Remaining(quoted[key], snapshot.Committed(key))
		if requested[key] > remaining {
			return apperr.Conflict("requested quantity exceeds the remaining quotation balance").
				WithDetails(transport.CommitmentExceededDetails{
					ProductID: key.ProductID,
					Group:     key.Group,
					Requested: requested[key],
					Remaining: remaining,
				})
		}
	}
	return nil
}
