// Package transport defines request and response DTOs for the orders module.
package transport

import (
	"time"

	"opsdash_backend/internal/orders/reconcile"

	"github.com/google/uuid"
)

// OrderItemRequest is one line of an order submission. Dates use the
// YYYY-MM-DD wire format. Items with a non-positive production quantity are
// treated as unselected lines and dropped before validation.
type OrderItemRequest struct {
	ProductID     int64  `json:"productId" validate:"required"`
	Group         string `json:"group"`
	Name          string `json:"name"`
	Model         string `json:"model"`
	UniqueCode    string `json:"uniqueCode"`
	OriginalQty   int    `json:"originalQty" validate:"min=0"`
	ProductionQty int    `json:"productionQty"`
	Size          string `json:"size"`
	Document      string `json:"document"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	Approve       bool   `json:"approve"`
	StartNow      bool   `json:"startNow"`
}

// CreateOrderRequest is the create-order payload. QuotationID is optional:
// self-quoted orders carry their own lines and reconcile against nothing.
type CreateOrderRequest struct {
	QuotationID      *uuid.UUID         `json:"quotationId"`
	BatchNo          string             `json:"batchNo" validate:"required"`
	CustomerName     string             `json:"customerName" validate:"required"`
	CommencementDate string             `json:"commencementDate" validate:"required"`
	DeliveryDate     string             `json:"deliveryDate" validate:"required"`
	Items            []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateOrderRequest replaces the order header and its whole item set.
// The quotation link is immutable after creation.
type UpdateOrderRequest struct {
	BatchNo          string             `json:"batchNo" validate:"required"`
	CustomerName     string             `json:"customerName" validate:"required"`
	CommencementDate string             `json:"commencementDate" validate:"required"`
	DeliveryDate     string             `json:"deliveryDate" validate:"required"`
	Items            []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ListOrdersRequest contains query parameters for listing orders.
type ListOrdersRequest struct {
	Search   string `form:"search"`
	Status   *int   `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// CommitmentExceededDetails names the first over-committed line of a rejected
// submission so the client can correct and resubmit.
type CommitmentExceededDetails struct {
	ProductID int64  `json:"productId"`
	Group     string `json:"group"`
	Requested int    `json:"requested"`
	Remaining int    `json:"remaining"`
}

// OrderItemResponse is one persisted order item, with its promoted
// production product when one exists.
type OrderItemResponse struct {
	ID                  uuid.UUID  `json:"id"`
	ProductID           int64      `json:"productId"`
	Group               string     `json:"group"`
	Name                string     `json:"name"`
	Model               string     `json:"model"`
	UniqueCode          string     `json:"uniqueCode"`
	OriginalQty         int        `json:"originalQty"`
	ProductionQty       int        `json:"productionQty"`
	Size                string     `json:"size"`
	Document            string     `json:"document"`
	StartDate           string     `json:"startDate"`
	EndDate             string     `json:"endDate"`
	ProductionProductID *uuid.UUID `json:"productionProductId,omitempty"`
	ProductionStatus    *string    `json:"productionStatus,omitempty"`
}

// OrderResponse is the full order detail. Reconciliation is populated on the
// detail endpoint for quotation-backed orders; it reflects a snapshot taken
// at load time with this order's own commitments excluded.
type OrderResponse struct {
	ID               uuid.UUID           `json:"id"`
	QuotationID      *uuid.UUID          `json:"quotationId,omitempty"`
	BatchNo          string              `json:"batchNo"`
	CustomerName     string              `json:"customerName"`
	CommencementDate string              `json:"commencementDate"`
	DeliveryDate     string              `json:"deliveryDate"`
	Status           int                 `json:"status"`
	StatusLabel      string              `json:"statusLabel"`
	Items            []OrderItemResponse `json:"items"`
	Reconciliation   []reconcile.Row     `json:"reconciliation,omitempty"`
	CatalogWarning   string              `json:"catalogWarning,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// OrderSummary is the list-view projection of an order.
type OrderSummary struct {
	ID           uuid.UUID  `json:"id"`
	QuotationID  *uuid.UUID `json:"quotationId,omitempty"`
	BatchNo      string     `json:"batchNo"`
	CustomerName string     `json:"customerName"`
	Status       int        `json:"status"`
	StatusLabel  string     `json:"statusLabel"`
	ItemCount    int        `json:"itemCount"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// OrderListResponse is the paginated order list.
type OrderListResponse struct {
	Items      []OrderSummary `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}
