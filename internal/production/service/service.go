// Package service implements production lifecycle operations: item approval,
// the coarse status transitions with their stage log rows, and the
// append-only transition history. Transition legality is decided by the
// domain state machine; this layer wires it to storage and events.
package service

import (
	"context"

	"opsdash_backend/internal/events"
	"opsdash_backend/internal/production/domain"
	"opsdash_backend/internal/production/repository"
	"opsdash_backend/internal/production/transport"
	"opsdash_backend/platform/apperr"
	"opsdash_backend/platform/logger"

	"github.com/google/uuid"
)

// Service provides production business logic.
type Service struct {
	repo *repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

// New creates a new production service.
func New(repo *repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// GetByID returns one production product.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.ProductResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapProduct(p), nil
}

// List returns the paginated production product list.
func (s *Service) List(ctx context.Context, req transport.ListProductsRequest) (*transport.ProductListResponse, error) {
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

	items := make([]transport.ProductResponse, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, *mapProduct(&result.Items[i]))
	}

	return &transport.ProductListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// ApproveAll promotes every unapproved item of the order to a production
// product at NOT_STARTED.
func (s *Service) ApproveAll(ctx context.Context, orderID uuid.UUID, actorID uuid.UUID) (*transport.ApproveAllResponse, error) {
	created, err := s.repo.ApproveAll(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.ItemsApproved{
		BaseEvent:  events.NewBaseEvent(),
		OrderID:    orderID,
		ProductIDs: created,
		ActorID:    actorID,
	})

	return &transport.ApproveAllResponse{OrderID: orderID, ProductIDs: created}, nil
}

// ApproveItem promotes a single order item, optionally starting production
// in the same move.
func (s *Service) ApproveItem(ctx context.Context, orderID, itemID uuid.UUID, startNow bool, actorID uuid.UUID) (*transport.ProductResponse, error) {
	productID, err := s.repo.ApproveItem(ctx, orderID, itemID, startNow, actorID)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.ItemsApproved{
		BaseEvent:  events.NewBaseEvent(),
		OrderID:    orderID,
		ProductIDs: []uuid.UUID{productID},
		ActorID:    actorID,
	})
	if startNow {
		s.bus.Publish(ctx, events.ProductionStarted{
			BaseEvent: events.NewBaseEvent(),
			ProductID: productID,
			OrderID:   orderID,
			ActorID:   actorID,
		})
	}

	return s.GetByID(ctx, productID)
}

// Start moves a product from NOT_STARTED to IN_PROGRESS and writes the
// first log row.
func (s *Service) Start(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*transport.ProductResponse, error) {
	p, _, err := s.transition(ctx, id, "start production", repository.Transition{
		Apply:   domain.Start,
		ToStage: domain.StageInProduction,
		ActorID: actorID,
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.ProductionStarted{
		BaseEvent: events.NewBaseEvent(),
		ProductID: p.ID,
		OrderID:   p.OrderID,
		ActorID:   actorID,
	})
	return p, nil
}

// Advance records an intermediate stage move. The coarse status is
// unchanged; only the log grows.
func (s *Service) Advance(ctx context.Context, id uuid.UUID, req transport.StageRequest, actorID uuid.UUID) (*transport.ProductResponse, error) {
	p, fromStage, err := s.transition(ctx, id, "advance stage", repository.Transition{
		Apply: func(current domain.Status) (domain.Status, error) {
			if err := domain.Advance(current, req.Stage); err != nil {
				return current, err
			}
			return current, nil
		},
		ToStage: req.Stage,
		Remark:  req.Remark,
		ActorID: actorID,
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.StageAdvanced{
		BaseEvent: events.NewBaseEvent(),
		ProductID: p.ID,
		FromStage: fromStage,
		ToStage:   req.Stage,
		ActorID:   actorID,
	})
	return p, nil
}

// Complete moves a product from IN_PROGRESS to COMPLETE with the final
// log row.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*transport.ProductResponse, error) {
	p, _, err := s.transition(ctx, id, "complete production", repository.Transition{
		Apply:   domain.Complete,
		ToStage: domain.StageOutFromProduction,
		ActorID: actorID,
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.ProductionCompleted{
		BaseEvent: events.NewBaseEvent(),
		ProductID: p.ID,
		OrderID:   p.OrderID,
		ActorID:   actorID,
	})
	return p, nil
}

// Cancel permanently cancels a product, releasing its committed quantity
// back to the quotation's pool.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*transport.ProductResponse, error) {
	p, _, err := s.transition(ctx, id, "cancel production", repository.Transition{
		Apply:   domain.Cancel,
		ToStage: domain.StatusCancelled.String(),
		ActorID: actorID,
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.ProductionCancelled{
		BaseEvent: events.NewBaseEvent(),
		ProductID: p.ID,
		OrderID:   p.OrderID,
		ActorID:   actorID,
	})
	return p, nil
}

// Logs returns the product's transition history, oldest first.
func (s *Service) Logs(ctx context.Context, id uuid.UUID) ([]transport.LogResponse, error) {
	logs, err := s.repo.Logs(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make([]transport.LogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, transport.LogResponse{
			ID:        l.ID,
			FromStage: l.FromStage,
			ToStage:   l.ToStage,
			Remark:    l.Remark,
			ActorID:   l.ActorID,
			CreatedAt: l.CreatedAt,
		})
	}
	return out, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, action string, tr repository.Transition) (*transport.ProductResponse, string, error) {
	p, fromStage, err := s.repo.Transition(ctx, id, tr)
	if err != nil {
		if e, ok := err.(*apperr.Error); ok && s.log != nil {
			if d, ok := e.Details.(domain.TransitionDetails); ok {
				s.log.TransitionRejected(id.String(), d.CurrentStatus, action)
			}
		}
		return nil, "", err
	}
	return mapProduct(p), fromStage, nil
}

func mapProduct(p *repository.Product) *transport.ProductResponse {
	return &transport.ProductResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		BatchNo:       p.BatchNo,
		CustomerName:  p.CustomerName,
		ProductID:     p.ProductID,
		Group:         p.GroupName,
		ProductName:   p.ProductName,
		ProductionQty: p.ProductionQty,
		Status:        int(p.Status),
		StatusLabel:   p.Status.String(),
		CurrentStage:  p.CurrentStage,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
