package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"opsdash_backend/internal/production/domain"
	"opsdash_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Domain Models ─────────────────────────────────────────────────────────────

// Product is the database model for a promoted order item under production,
// joined with its order header and originating item.
type Product struct {
	ID            uuid.UUID     `db:"id"`
	OrderID       uuid.UUID     `db:"order_id"`
	BatchNo       string        `db:"batch_no"`
	CustomerName  string        `db:"customer_name"`
	ProductID     int64         `db:"product_id"`
	GroupName     string        `db:"group_name"`
	ProductName   string        `db:"product_name"`
	ProductionQty int           `db:"production_qty"`
	Status        domain.Status `db:"status"`
	CurrentStage  string
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Log is one append-only stage transition record.
type Log struct {
	ID        uuid.UUID  `db:"id"`
	ProductID uuid.UUID  `db:"production_product_id"`
	FromStage string     `db:"from_stage"`
	ToStage   string     `db:"to_stage"`
	Remark    string     `db:"remark"`
	ActorID   *uuid.UUID `db:"actor_id"`
	CreatedAt time.Time  `db:"created_at"`
}

// Transition describes one validated status move to persist. Apply runs
// inside the transaction against the row-locked current status, so a race
// between two callers is decided by the state machine, not by timing.
type Transition struct {
	Apply   func(current domain.Status) (domain.Status, error)
	ToStage string
	Remark  string
	ActorID uuid.UUID
}

// ListParams contains parameters for listing production products.
type ListParams struct {
	Search   string
	Status   *int
	Page     int
	PageSize int
}

// ListResult contains the paginated result of listing production products.
type ListResult struct {
	Items      []Product
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// ── Repository ────────────────────────────────────────────────────────────────

const (
	productNotFoundMsg = "production product not found"
	orderNotFoundMsg   = "order not found"
)

// Repository provides database operations for production products and the
// stage transition log.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new production repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productSelect = `
	SELECT p.id, p.order_id, o.batch_no, o.customer_name, p.product_id,
	       p.group_name, COALESCE(i.product_name, ''), COALESCE(i.production_qty, 0),
	       p.status, p.created_at, p.updated_at
	FROM production_products p
	JOIN production_orders o ON o.id = p.order_id
	LEFT JOIN production_order_items i
	  ON i.order_id = p.order_id
	 AND i.product_id = p.product_id
	 AND i.group_name = p.group_name`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.OrderID, &p.BatchNo, &p.CustomerName, &p.ProductID,
		&p.GroupName, &p.ProductName, &p.ProductionQty,
		&p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(productNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to scan production product: %w", err)
	}
	return &p, nil
}

// GetByID retrieves a production product with its current stage.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, productSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, err
	}

	stage, err := lastStage(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	p.CurrentStage = stage
	return p, nil
}

// List retrieves production products with search, status filter and
// pagination.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	var searchParam interface{}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}

	baseQuery := `
		FROM production_products p
		JOIN production_orders o ON o.id = p.order_id
		LEFT JOIN production_order_items i
		  ON i.order_id = p.order_id
		 AND i.product_id = p.product_id
		 AND i.group_name = p.group_name
		WHERE ($1::text IS NULL OR o.batch_no ILIKE $1 OR o.customer_name ILIKE $1
		       OR i.product_name ILIKE $1)
		  AND ($2::int IS NULL OR p.status = $2)
	`
	args := []interface{}{searchParam, params.Status}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count production products: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	selectQuery := `
		SELECT p.id, p.order_id, o.batch_no, o.customer_name, p.product_id,
		       p.group_name, COALESCE(i.product_name, ''), COALESCE(i.production_qty, 0),
		       p.status, p.created_at, p.updated_at
		` + baseQuery + `
		ORDER BY p.created_at DESC
		LIMIT $3 OFFSET $4`

	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list production products: %w", err)
	}
	defer rows.Close()

	var items []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.OrderID, &p.BatchNo, &p.CustomerName, &p.ProductID,
			&p.GroupName, &p.ProductName, &p.ProductionQty,
			&p.Status, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan production product: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate production products: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Transition applies a validated status move atomically: the product row is
// locked, the state machine runs against the locked status, and the status
// update, the log append and the parent order's derived status all land in
// one transaction. A rejected move changes nothing and writes no log row.
// The returned string is the stage the product left, for event payloads.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, tr Transition) (*Product, string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		orderID uuid.UUID
		current domain.Status
	)
	err = tx.QueryRow(ctx,
		`SELECT order_id, status FROM production_products WHERE id = $1 FOR UPDATE`, id,
	).Scan(&orderID, &current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperr.NotFound(productNotFoundMsg)
		}
		return nil, "", fmt.Errorf("failed to lock production product: %w", err)
	}

	next, err := tr.Apply(current)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	if next != current {
		if _, err := tx.Exec(ctx,
			`UPDATE production_products SET status = $2, updated_at = $3 WHERE id = $1`,
			id, int(next), now,
		); err != nil {
			return nil, "", fmt.Errorf("failed to update production product: %w", err)
		}
	}

	fromStage, err := lastStage(ctx, tx, id)
	if err != nil {
		return nil, "", err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO production_logs
			(id, production_product_id, from_stage, to_stage, remark, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), id, fromStage, tr.ToStage, tr.Remark, tr.ActorID, now,
	); err != nil {
		return nil, "", fmt.Errorf("failed to insert production log: %w", err)
	}

	if err := refreshOrderStatus(ctx, tx, orderID, now); err != nil {
		return nil, "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to commit transition: %w", err)
	}

	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return p, fromStage, nil
}

// ApproveAll promotes every item of the order that has no production product
// yet. New products start at NOT_STARTED.
func (r *Repository) ApproveAll(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM production_orders WHERE id = $1)`, orderID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check order: %w", err)
	}
	if !exists {
		return nil, apperr.NotFound(orderNotFoundMsg)
	}

	rows, err := tx.Query(ctx, `
		SELECT DISTINCT i.product_id, i.group_name
		FROM production_order_items i
		WHERE i.order_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM production_products p
			WHERE p.order_id = i.order_id
			  AND p.product_id = i.product_id
			  AND p.group_name = i.group_name
		  )`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unapproved items: %w", err)
	}

	type key struct {
		productID int64
		group     string
	}
	var pending []key
	for rows.Next() {
		var k key
		if err := rows.Scan(&k.productID, &k.group); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan unapproved item: %w", err)
		}
		pending = append(pending, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unapproved items: %w", err)
	}

	if len(pending) == 0 {
		return nil, apperr.Conflict("order has no items left to approve")
	}

	now := time.Now()
	created := make([]uuid.UUID, 0, len(pending))
	for _, k := range pending {
		productID := uuid.New()
		if _, err := tx.Exec(ctx, `
			INSERT INTO production_products
				(id, order_id, product_id, group_name, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			productID, orderID, k.productID, k.group, int(domain.StatusNotStarted), now, now,
		); err != nil {
			return nil, fmt.Errorf("failed to insert production product: %w", err)
		}
		created = append(created, productID)
	}

	if err := refreshOrderStatus(ctx, tx, orderID, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit approval: %w", err)
	}
	return created, nil
}

// ApproveItem promotes a single order item. With startNow the product enters
// IN_PROGRESS immediately and the first log row is written in the same
// transaction.
func (r *Repository) ApproveItem(ctx context.Context, orderID, itemID uuid.UUID, startNow bool, actorID uuid.UUID) (uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		pid   int64
		group string
	)
	err = tx.QueryRow(ctx,
		`SELECT product_id, group_name FROM production_order_items
		 WHERE id = $1 AND order_id = $2`, itemID, orderID,
	).Scan(&pid, &group)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, apperr.NotFound("order item not found")
		}
		return uuid.Nil, fmt.Errorf("failed to get order item: %w", err)
	}

	var approved bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM production_products
			WHERE order_id = $1 AND product_id = $2 AND group_name = $3
		)`, orderID, pid, group,
	).Scan(&approved); err != nil {
		return uuid.Nil, fmt.Errorf("failed to check existing product: %w", err)
	}
	if approved {
		return uuid.Nil, apperr.Conflict("item is already approved for production")
	}

	status := domain.StatusNotStarted
	if startNow {
		status = domain.StatusInProgress
	}

	now := time.Now()
	productID := uuid.New()
	if _, err := tx.Exec(ctx, `
		INSERT INTO production_products
			(id, order_id, product_id, group_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		productID, orderID, pid, group, int(status), now, now,
	); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert production product: %w", err)
	}

	if startNow {
		if _, err := tx.Exec(ctx, `
			INSERT INTO production_logs
				(id, production_product_id, from_stage, to_stage, remark, actor_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), productID, domain.StageOrderCreated, domain.StageInProduction,
			"", actorID, now,
		); err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert production log: %w", err)
		}
	}

	if err := refreshOrderStatus(ctx, tx, orderID, now); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit approval: %w", err)
	}
	return productID, nil
}

// Logs returns the product's stage transitions in creation order. The log
// is append-only; rows are never mutated or deleted.
func (r *Repository) Logs(ctx context.Context, productID uuid.UUID) ([]Log, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM production_products WHERE id = $1)`, productID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check production product: %w", err)
	}
	if !exists {
		return nil, apperr.NotFound(productNotFoundMsg)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, production_product_id, from_stage, to_stage, remark, actor_id, created_at
		FROM production_logs
		WHERE production_product_id = $1
		ORDER BY created_at, id`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list production logs: %w", err)
	}
	defer rows.Close()

	var logs []Log
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.ProductID, &l.FromStage, &l.ToStage, &l.Remark, &l.ActorID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan production log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate production logs: %w", err)
	}
	return logs, nil
}

// rowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// lastStage returns the product's current stage: the to_stage of its most
// recent log row, or the synthetic initial stage when no transition has
// happened yet.
func lastStage(ctx context.Context, q rowQuerier, productID uuid.UUID) (string, error) {
	var stage string
	err := q.QueryRow(ctx, `
		SELECT to_stage FROM production_logs
		WHERE production_product_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, productID,
	).Scan(&stage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StageOrderCreated, nil
		}
		return "", fmt.Errorf("failed to get last stage: %w", err)
	}
	return stage, nil
}

// refreshOrderStatus recomputes the parent order's derived status from its
// item count and product statuses.
func refreshOrderStatus(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, now time.Time) error {
	var totalItems int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM production_order_items WHERE order_id = $1`, orderID,
	).Scan(&totalItems); err != nil {
		return fmt.Errorf("failed to count order items: %w", err)
	}

	rows, err := tx.Query(ctx,
		`SELECT status FROM production_products WHERE order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("failed to list product statuses: %w", err)
	}

	var statuses []domain.Status
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan product status: %w", err)
		}
		statuses = append(statuses, domain.Status(s))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate product statuses: %w", err)
	}

	derived := domain.DeriveOrderStatus(totalItems, statuses)
	if _, err := tx.Exec(ctx,
		`UPDATE production_orders SET status = $2, updated_at = $3 WHERE id = $1`,
		orderID, int(derived), now,
	); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return nil
}
