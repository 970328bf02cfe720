// Package service implements order assembly against quotation commitments:
// the optimistic pre-check on submission, the fresh snapshot on every load,
// and the mapping to transport views. The hard enforcement lives in the
// repository's serializable check-and-commit transaction.
package service

import (
	"context"
	"fmt"
	"time"

	"opsdash_backend/internal/events"
	"opsdash_backend/internal/orders/reconcile"
	"opsdash_backend/internal/orders/repository"
	"opsdash_backend/internal/orders/transport"
	"opsdash_backend/internal/production/domain"
	"opsdash_backend/internal/quotations/catalog"
	"opsdash_backend/platform/apperr"
	"opsdash_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// QuotationReader supplies parsed quotation lines. It is implemented by the
// quotations module and injected at composition time. The boolean reports a
// degraded (malformed) stored catalog.
type QuotationReader interface {
	Lines(ctx context.Context, id uuid.UUID) ([]catalog.LineItem, bool, error)
}

// Service provides order business logic.
type Service struct {
	repo       *repository.Repository
	quotations QuotationReader
	bus        events.Bus
	log        *logger.Logger
}

// New creates a new orders service.
func New(repo *repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// SetQuotationReader injects the quotations-side line reader
// (breaks the module dependency cycle).
func (s *Service) SetQuotationReader(r QuotationReader) {
	s.quotations = r
}

// PreviousCommitments reports the aggregated commitments against a
// quotation, always read fresh. It satisfies the quotations module's
// CommitmentSource.
func (s *Service) PreviousCommitments(ctx context.Context, quotationID uuid.UUID, excludeOrderID *uuid.UUID) ([]reconcile.CommitmentRow, error) {
	return s.repo.PreviousCommitments(ctx, quotationID, excludeOrderID)
}

// Create assembles and persists a new order. For quotation-backed orders a
// fresh snapshot is resolved and every line is pre-checked against its
// remaining quantity before the write; the repository re-checks inside the
// transaction, so a race between the two surfaces as CommitmentExceeded.
func (s *Service) Create(ctx context.Context, req transport.CreateOrderRequest, actorID uuid.UUID) (*transport.OrderResponse, error) {
	dates, err := parseOrderDates(req.CommencementDate, req.DeliveryDate)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	orderID := uuid.New()
	items, err := assembleItems(orderID, req.Items, now)
	if err != nil {
		return nil, err
	}

	quoted, err := s.precheck(ctx, req.QuotationID, nil, items)
	if err != nil {
		return nil, err
	}

	order := repository.Order{
		ID:               orderID,
		QuotationID:      req.QuotationID,
		BatchNo:          req.BatchNo,
		CustomerName:     req.CustomerName,
		CommencementDate: dates.Commencement,
		DeliveryDate:     dates.Delivery,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.CreateWithItems(ctx, &order, items, quoted, actorID); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.OrderCreated{
		BaseEvent:   events.NewBaseEvent(),
		OrderID:     order.ID,
		QuotationID: order.QuotationID,
		BatchNo:     order.BatchNo,
		ItemCount:   len(items),
		ActorID:     actorID,
	})

	return s.GetByID(ctx, order.ID)
}

// Update replaces the order header and item set. The order's own prior
// commitment is excluded from the snapshot, so resubmitting unchanged
// quantities always passes.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateOrderRequest, actorID uuid.UUID) (*transport.OrderResponse, error) {
	existing, _, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	dates, err := parseOrderDates(req.CommencementDate, req.DeliveryDate)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	items, err := assembleItems(id, req.Items, now)
	if err != nil {
		return nil, err
	}

	quoted, err := s.precheck(ctx, existing.QuotationID, &id, items)
	if err != nil {
		return nil, err
	}

	order := repository.Order{
		ID:               id,
		QuotationID:      existing.QuotationID,
		BatchNo:          req.BatchNo,
		CustomerName:     req.CustomerName,
		CommencementDate: dates.Commencement,
		DeliveryDate:     dates.Delivery,
		CreatedAt:        existing.CreatedAt,
		UpdatedAt:        now,
	}

	if err := s.repo.UpdateWithItems(ctx, &order, items, quoted, actorID); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.OrderUpdated{
		BaseEvent: events.NewBaseEvent(),
		OrderID:   id,
		ItemCount: len(items),
		ActorID:   actorID,
	})

	return s.GetByID(ctx, id)
}

// precheck resolves a fresh snapshot and runs the optimistic commitment
// check. It returns the quoted quantities per key for the repository's
// in-transaction re-check. Self-quoted orders skip the check entirely.
func (s *Service) precheck(ctx context.Context, quotationID *uuid.UUID, excludeOrderID *uuid.UUID, items []repository.ItemInsert) (map[catalog.Key]int, error) {
	if quotationID == nil {
		return nil, nil
	}
	if s.quotations == nil {
		return nil, apperr.Internal("quotation reader not configured")
	}

	lines, _, err := s.quotations.Lines(ctx, *quotationID)
	if err != nil {
		return nil, err
	}
	quoted := catalog.QuotedQuantities(lines)

	rows, err := s.repo.PreviousCommitments(ctx, *quotationID, excludeOrderID)
	if err != nil {
		return nil, fmt.Errorf("resolve prior commitments: %w", err)
	}
	snapshot := reconcile.NewSnapshot(quotationID, rows)

	if err := checkCommitments(items, quoted, snapshot); err != nil {
		if e, ok := err.(*apperr.Error); ok && s.log != nil {
			if d, ok := e.Details.(transport.CommitmentExceededDetails); ok {
				s.log.CommitmentRejected(quotationID.String(), d.ProductID, d.Group, d.Requested, d.Remaining)
			}
		}
		return nil, err
	}
	return quoted, nil
}

// GetByID returns the order detail. For quotation-backed orders the
// quotation lines and a fresh commitment snapshot (excluding this order)
// are loaded in parallel and joined into the reconciliation view.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.OrderResponse, error) {
	order, items, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &transport.OrderResponse{
		ID:               order.ID,
		QuotationID:      order.QuotationID,
		BatchNo:          order.BatchNo,
		CustomerName:     order.CustomerName,
		CommencementDate: order.CommencementDate.Format(dateFormat),
		DeliveryDate:     order.DeliveryDate.Format(dateFormat),
		Status:           order.Status,
		StatusLabel:      domain.OrderStatus(order.Status).String(),
		Items:            mapItems(items),
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}

	if order.QuotationID != nil && s.quotations != nil {
		var (
			lines    []catalog.LineItem
			degraded bool
			rows     []reconcile.CommitmentRow
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			lines, degraded, err = s.quotations.Lines(gctx, *order.QuotationID)
			return err
		})
		g.Go(func() error {
			var err error
			rows, err = s.repo.PreviousCommitments(gctx, *order.QuotationID, &order.ID)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		snapshot := reconcile.NewSnapshot(order.QuotationID, rows)
		resp.Reconciliation = reconcile.Reconcile(lines, snapshot)
		if degraded {
			resp.CatalogWarning = "quotation line items could not be parsed; reconciliation reflects zero lines"
		}
	}

	return resp, nil
}

// List returns the paginated order list.
func (s *Service) List(ctx context.Context, req transport.ListOrdersRequest) (*transport.OrderListResponse, error) {
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
		Status:   req.Status,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, err
	}

	items := make([]transport.OrderSummary, 0, len(result.Items))
	for _, row := range result.Items {
		items = append(items, transport.OrderSummary{
			ID:           row.ID,
			QuotationID:  row.QuotationID,
			BatchNo:      row.BatchNo,
			CustomerName: row.CustomerName,
			Status:       row.Status,
			StatusLabel:  domain.OrderStatus(row.Status).String(),
			ItemCount:    row.ItemCount,
			CreatedAt:    row.CreatedAt,
		})
	}

	return &transport.OrderListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// Delete removes a pending order, releasing its commitments.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.OrderDeleted{
		BaseEvent: events.NewBaseEvent(),
		OrderID:   id,
		ActorID:   actorID,
	})
	return nil
}

func mapItems(items []repository.OrderItem) []transport.OrderItemResponse {
	out := make([]transport.OrderItemResponse, 0, len(items))
	for _, it := range items {
		resp := transport.OrderItemResponse{
			ID:                  it.ID,
			ProductID:           it.ProductID,
			Group:               it.GroupName,
			Name:                it.ProductName,
			Model:               it.Model,
			UniqueCode:          it.UniqueCode,
			OriginalQty:         it.OriginalQty,
			ProductionQty:       it.ProductionQty,
			Size:                it.Size,
			Document:            it.Document,
			StartDate:           it.StartDate.Format(dateFormat),
			EndDate:             it.EndDate.Format(dateFormat),
			ProductionProductID: it.ProductionProductID,
		}
		if it.ProductionStatus != nil {
			label := domain.Status(*it.ProductionStatus).String()
			resp.ProductionStatus = &label
		}
		out = append(out, resp)
	}
	return out
}
