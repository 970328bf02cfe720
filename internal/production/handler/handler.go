package handler

import (
	"context"
	"net/http"

	"opsdash_backend/internal/production/service"
	"opsdash_backend/internal/production/transport"
	"opsdash_backend/platform/httpkit"
	"opsdash_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for production products.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new production handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterProductionRoutes registers the production product routes.
func (h *Handler) RegisterProductionRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/start", h.Start)
	rg.POST("/:id/stage", h.Advance)
	rg.POST("/:id/complete", h.Complete)
	rg.POST("/:id/cancel", h.Cancel)
	rg.GET("/:id/logs", h.Logs)
}

// RegisterApprovalRoutes registers the order-item approval routes, mounted
// under /orders.
func (h *Handler) RegisterApprovalRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/approve", h.ApproveAll)
	rg.POST("/:id/items/:itemId/approve", h.ApproveItem)
}

// List handles GET /api/v1/production
func (h *Handler) List(c *gin.Context) {
	var req transport.ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// GetByID handles GET /api/v1/production/:id
func (h *Handler) GetByID(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), productID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// ApproveAll handles POST /api/v1/orders/:id/approve
func (h *Handler) ApproveAll(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.ApproveAll(c.Request.Context(), orderID, id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// ApproveItem handles POST /api/v1/orders/:id/items/:itemId/approve
func (h *Handler) ApproveItem(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.ApproveItemRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}

	result, err := h.svc.ApproveItem(c.Request.Context(), orderID, itemID, req.StartNow, id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// Start handles POST /api/v1/production/:id/start
func (h *Handler) Start(c *gin.Context) {
	h.transition(c, h.svc.Start)
}

// Complete handles POST /api/v1/production/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	h.transition(c, h.svc.Complete)
}

// Cancel handles POST /api/v1/production/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, h.svc.Cancel)
}

// Advance handles POST /api/v1/production/:id/stage
func (h *Handler) Advance(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Advance(c.Request.Context(), productID, req, id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Logs handles GET /api/v1/production/:id/logs
func (h *Handler) Logs(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.Logs(c.Request.Context(), productID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) transition(c *gin.Context, op func(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*transport.ProductResponse, error)) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := op(c.Request.Context(), productID, id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
