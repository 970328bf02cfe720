package repository

import (
	"opsdash_backend/internal/production/domain"
	"opsdash_backend/platform/apperr"
)

// mutationGuard decides whether an order may be re-assembled or deleted.
// Both require a pending order with no promoted products: production
// products own the append-only stage log, and a cancelled product is the
// tombstone that keeps its key from being re-committed, so neither may be
// destroyed by replacing or removing the order's items. An order whose
// products were all cancelled derives back to pending but stays immutable;
// the caller creates a new order instead.
func mutationGuard(status, products int, action string) error {
	if status != int(domain.OrderStatusPending) {
		return apperr.Conflict("order is in production and cannot be " + action)
	}
	if products > 0 {
		return apperr.Conflict("order has production products and cannot be " + action)
	}
	return nil
}
