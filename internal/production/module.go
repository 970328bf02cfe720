// Package production provides the production domain module: item approval,
// the per-item status state machine and the append-only stage log.
package production

import (
	"opsdash_backend/internal/events"
	apphttp "opsdash_backend/internal/http"
	"opsdash_backend/internal/production/handler"
	"opsdash_backend/internal/production/repository"
	"opsdash_backend/internal/production/service"
	"opsdash_backend/platform/logger"
	"opsdash_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the production domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new production module with all dependencies wired.
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
	return "production"
}

// RegisterRoutes registers the module's routes. Approval routes live under
// /orders because they act on order items; the rest under /production.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterApprovalRoutes(ctx.Protected.Group("/orders"))
	m.handler.RegisterProductionRoutes(ctx.Protected.Group("/production"))
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
