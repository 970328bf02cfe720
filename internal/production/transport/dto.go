// Package transport defines request and response DTOs for the production module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// ListProductsRequest contains query parameters for listing production
// products.
type ListProductsRequest struct {
	Search   string `form:"search"`
	Status   *int   `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// ApproveItemRequest optionally starts production in the same move that
// promotes the item.
type ApproveItemRequest struct {
	StartNow bool `json:"startNow"`
}

// StageRequest advances a product to a free-form intermediate stage.
type StageRequest struct {
	Stage  string `json:"stage" validate:"required"`
	Remark string `json:"remark"`
}

// ProductResponse is one production product with its order context.
type ProductResponse struct {
	ID            uuid.UUID `json:"id"`
	OrderID       uuid.UUID `json:"orderId"`
	BatchNo       string    `json:"batchNo"`
	CustomerName  string    `json:"customerName"`
	ProductID     int64     `json:"productId"`
	Group         string    `json:"group"`
	ProductName   string    `json:"productName"`
	ProductionQty int       `json:"productionQty"`
	Status        int       `json:"status"`
	StatusLabel   string    `json:"statusLabel"`
	CurrentStage  string    `json:"currentStage"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ProductListResponse is the paginated production product list.
type ProductListResponse struct {
	Items      []ProductResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// ApproveAllResponse reports the products created by an approve-all.
type ApproveAllResponse struct {
	OrderID    uuid.UUID   `json:"orderId"`
	ProductIDs []uuid.UUID `json:"productIds"`
}

// LogResponse is one append-only stage transition record.
type LogResponse struct {
	ID        uuid.UUID  `json:"id"`
	FromStage string     `json:"fromStage"`
	ToStage   string     `json:"toStage"`
	Remark    string     `json:"remark,omitempty"`
	ActorID   *uuid.UUID `json:"actorId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
