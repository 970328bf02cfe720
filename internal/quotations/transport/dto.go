// Package transport defines request/response DTOs for the quotations module.
package transport

import (
	"encoding/json"
	"time"

	"opsdash_backend/internal/orders/reconcile"
	"opsdash_backend/internal/quotations/catalog"

	"github.com/google/uuid"
)

// CreateQuotationRequest creates a quotation with its serialized line list.
// Quotations are immutable once issued; there is no update request.
type CreateQuotationRequest struct {
	BatchNo      string          `json:"batchNo" validate:"required"`
	CustomerName string          `json:"customerName" validate:"required"`
	Items        json.RawMessage `json:"items" validate:"required"`
}

// ListQuotationsRequest filters the paginated quotation list.
type ListQuotationsRequest struct {
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// QuotationSummary is one row of the quotation list.
type QuotationSummary struct {
	ID           uuid.UUID `json:"id"`
	BatchNo      string    `json:"batchNo"`
	CustomerName string    `json:"customerName"`
	LineCount    int       `json:"lineCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// QuotationListResponse is the paginated quotation list.
type QuotationListResponse struct {
	Items      []QuotationSummary `json:"items"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	TotalPages int                `json:"totalPages"`
}

// QuotationResponse is the full quotation detail with parsed lines.
// CatalogWarning is set when the stored line payload could not be parsed;
// the quotation is then served with zero lines rather than failing.
type QuotationResponse struct {
	ID             uuid.UUID          `json:"id"`
	BatchNo        string             `json:"batchNo"`
	CustomerName   string             `json:"customerName"`
	Lines          []catalog.LineItem `json:"lines"`
	CatalogWarning string             `json:"catalogWarning,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// ReconciliationRequest carries the optional order exclusion for edit flows.
type ReconciliationRequest struct {
	ExcludeOrderID *uuid.UUID `form:"excludeOrderId"`
}

// ReconciliationResponse is the per-line remaining-allotment view rendered
// when a quotation is selected for a new or edited production order.
type ReconciliationResponse struct {
	QuotationID    uuid.UUID       `json:"quotationId"`
	TakenAt        time.Time       `json:"takenAt"`
	Rows           []reconcile.Row `json:"rows"`
	CatalogWarning string          `json:"catalogWarning,omitempty"`
}
