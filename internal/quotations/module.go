// Package quotations provides the quotations domain module: the read-only
// source of truth for quoted line items and the reconciliation view.
package quotations

import (
	apphttp "opsdash_backend/internal/http"
	"opsdash_backend/internal/quotations/handler"
	"opsdash_backend/internal/quotations/repository"
	"opsdash_backend/internal/quotations/service"
	"opsdash_backend/platform/logger"
	"opsdash_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the quotations domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new quotations module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "quotations"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// SetCommitmentSource injects the orders-side commitment reader.
func (m *Module) SetCommitmentSource(src service.CommitmentSource) {
	m.service.SetCommitmentSource(src)
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	quotations := ctx.Protected.Group("/quotations")
	m.handler.RegisterRoutes(quotations)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
