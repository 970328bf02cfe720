// Package orders provides the production-orders domain module: order
// assembly against quotation commitments and the commitment ledger itself.
package orders

import (
	"opsdash_backend/internal/events"
	apphttp "opsdash_backend/internal/http"
	"opsdash_backend/internal/orders/handler"
	"opsdash_backend/internal/orders/repository"
	"opsdash_backend/internal/orders/service"
	"opsdash_backend/platform/logger"
	"opsdash_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the orders domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new orders module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "orders"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// SetQuotationReader injects the quotations-side line reader.
func (m *Module) SetQuotationReader(r service.QuotationReader) {
	m.service.SetQuotationReader(r)
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	orders := ctx.Protected.Group("/orders")
	m.handler.RegisterRoutes(orders)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
