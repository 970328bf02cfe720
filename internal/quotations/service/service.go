// Package service implements quotation reads, catalog parsing and the
// reconciliation view served when a quotation is selected for an order.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"opsdash_backend/internal/orders/reconcile"
	"opsdash_backend/internal/quotations/catalog"
	"opsdash_backend/internal/quotations/repository"
	"opsdash_backend/internal/quotations/transport"
	"opsdash_backend/platform/apperr"
	"opsdash_backend/platform/logger"

	"github.com/google/uuid"
)

const catalogWarningMsg = "stored line items could not be parsed; quotation served with zero lines"

// CommitmentSource reports prior commitments against a quotation. It is
// implemented by the orders module and injected at composition time; the
// rows must be aggregated fresh on every call, never cached.
type CommitmentSource interface {
	PreviousCommitments(ctx context.Context, quotationID uuid.UUID, excludeOrderID *uuid.UUID) ([]reconcile.CommitmentRow, error)
}

// Service provides quotation business logic.
type Service struct {
	repo        *repository.Repository
	log         *logger.Logger
	commitments CommitmentSource
}

// New creates a new quotations service.
func New(repo *repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// SetCommitmentSource injects the orders-side commitment reader
// (breaks the module dependency cycle).
func (s *Service) SetCommitmentSource(src CommitmentSource) {
	s.commitments = src
}

// Create validates and stores a new quotation. Unlike legacy rows, payloads
// written through this service must parse; malformed input is rejected here
// so the degrade-to-empty path only ever applies to reads.
func (s *Service) Create(ctx context.Context, req transport.CreateQuotationRequest) (*transport.QuotationResponse, error) {
	lines, err := catalog.Parse(req.Items)
	if err != nil {
		return nil, apperr.Validation("items is not a well-formed line item list")
	}

	now := time.Now()
	q := repository.Quotation{
		ID:           uuid.New(),
		BatchNo:      req.BatchNo,
		CustomerName: req.CustomerName,
		Items:        req.Items,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, &q); err != nil {
		return nil, err
	}

	return &transport.QuotationResponse{
		ID:           q.ID,
		BatchNo:      q.BatchNo,
		CustomerName: q.CustomerName,
		Lines:        lines,
		CreatedAt:    q.CreatedAt,
		UpdatedAt:    q.UpdatedAt,
	}, nil
}

// GetByID returns a quotation with its parsed lines. A malformed stored
// payload degrades to zero lines with a warning instead of failing.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.QuotationResponse, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	lines, warning := s.parseLines(q)
	return &transport.QuotationResponse{
		ID:             q.ID,
		BatchNo:        q.BatchNo,
		CustomerName:   q.CustomerName,
		Lines:          lines,
		CatalogWarning: warning,
		CreatedAt:      q.CreatedAt,
		UpdatedAt:      q.UpdatedAt,
	}, nil
}

// Lines returns the parsed line items for a quotation, degrading a
// malformed payload to zero lines. The boolean reports whether the payload
// was degraded. Used by the orders module when assembling an order.
func (s *Service) Lines(ctx context.Context, id uuid.UUID) ([]catalog.LineItem, bool, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	lines, warning := s.parseLines(q)
	return lines, warning != "", nil
}

// List returns the paginated quotation list.
func (s *Service) List(ctx context.Context, req transport.ListQuotationsRequest) (*transport.QuotationListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	result, err := s.repo.List(ctx, repository.ListParams{
		Search:   req.Search,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, err
	}

	items := make([]transport.QuotationSummary, 0, len(result.Items))
	for _, q := range result.Items {
		lines, _ := s.parseLines(&q)
		items = append(items, transport.QuotationSummary{
			ID:           q.ID,
			BatchNo:      q.BatchNo,
			CustomerName: q.CustomerName,
			LineCount:    len(lines),
			CreatedAt:    q.CreatedAt,
		})
	}

	return &transport.QuotationListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// Delete removes a quotation that has no production orders.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Reconciliation joins the quotation's lines with a fresh commitment
// snapshot, excluding excludeOrderID so an order can be re-edited without
// double-counting its own prior commitment.
func (s *Service) Reconciliation(ctx context.Context, id uuid.UUID, excludeOrderID *uuid.UUID) (*transport.ReconciliationResponse, error) {
	if s.commitments == nil {
		return nil, apperr.Internal("commitment source not configured")
	}

	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, warning := s.parseLines(q)

	rows, err := s.commitments.PreviousCommitments(ctx, id, excludeOrderID)
	if err != nil {
		return nil, fmt.Errorf("resolve prior commitments: %w", err)
	}

	snapshot := reconcile.NewSnapshot(&q.ID, rows)
	return &transport.ReconciliationResponse{
		QuotationID:    q.ID,
		TakenAt:        snapshot.TakenAt,
		Rows:           reconcile.Reconcile(lines, snapshot),
		CatalogWarning: warning,
	}, nil
}

func (s *Service) parseLines(q *repository.Quotation) ([]catalog.LineItem, string) {
	lines, err := catalog.Parse(q.Items)
	if err != nil {
		if errors.Is(err, catalog.ErrMalformedCatalog) && s.log != nil {
			s.log.CatalogWarning(q.ID.String(), err)
		}
		return []catalog.LineItem{}, catalogWarningMsg
	}
	return lines, ""
}
