package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"opsdash_backend/internal/orders/reconcile"
	"opsdash_backend/internal/orders/transport"
	"opsdash_backend/internal/production/domain"
	"opsdash_backend/internal/quotations/catalog"
	"opsdash_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Domain Models ─────────────────────────────────────────────────────────────

// Order is the database model for a production order header.
type Order struct {
	ID               uuid.UUID  `db:"id"`
	QuotationID      *uuid.UUID `db:"quotation_id"`
	BatchNo          string     `db:"batch_no"`
	CustomerName     string     `db:"customer_name"`
	CommencementDate time.Time  `db:"commencement_date"`
	DeliveryDate     time.Time  `db:"delivery_date"`
	Status           int        `db:"status"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// OrderItem is the database model for one committed line of an order.
// ProductionProductID and ProductionStatus are populated from the joined
// promoted product when one exists.
type OrderItem struct {
	ID                  uuid.UUID  `db:"id"`
	OrderID             uuid.UUID  `db:"order_id"`
	ProductID           int64      `db:"product_id"`
	GroupName           string     `db:"group_name"`
	ProductName         string     `db:"product_name"`
	Model               string     `db:"model"`
	UniqueCode          string     `db:"unique_code"`
	OriginalQty         int        `db:"original_qty"`
	ProductionQty       int        `db:"production_qty"`
	Size                string     `db:"size"`
	Document            string     `db:"document"`
	StartDate           time.Time  `db:"start_date"`
	EndDate             time.Time  `db:"end_date"`
	CreatedAt           time.Time  `db:"created_at"`
	ProductionProductID *uuid.UUID `db:"production_product_id"`
	ProductionStatus    *int       `db:"production_status"`
}

// ItemInsert is an order item staged for a check-and-commit write, plus the
// caller's approval flags.
type ItemInsert struct {
	OrderItem
	Approve  bool
	StartNow bool
}

// ListParams contains parameters for listing orders.
type ListParams struct {
	Search   string
	Status   *int
	Page     int
	PageSize int
}

// ListRow is one order in a paginated list, with its item count.
type ListRow struct {
	Order
	ItemCount int
}

// ListResult contains the paginated result of listing orders.
type ListResult struct {
	Items      []ListRow
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// ── Repository ────────────────────────────────────────────────────────────────

const orderNotFoundMsg = "order not found"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so commitment sums
// can be read outside and inside the check-and-commit transaction with the
// same query.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository provides database operations for production orders.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new orders repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// commitmentSumsQuery aggregates committed production quantity per
// (product_id, trimmed group_name) across all items of the quotation's
// orders. Items whose promoted product was cancelled release their
// commitment and are excluded.
const commitmentSumsQuery = `
	SELECT i.product_id, btrim(i.group_name), COALESCE(SUM(i.production_qty), 0)
	FROM production_order_items i
	JOIN production_orders o ON o.id = i.order_id
	WHERE o.quotation_id = $1
	  AND ($2::uuid IS NULL OR o.id <> $2)
	  AND NOT EXISTS (
		SELECT 1 FROM production_products p
		WHERE p.order_id = i.order_id
		  AND p.product_id = i.product_id
		  AND btrim(p.group_name) = btrim(i.group_name)
		  AND p.status = $3
	  )
	GROUP BY i.product_id, btrim(i.group_name)`

// PreviousCommitments sums committed quantities per line item key for a
// quotation, excluding excludeOrderID when set. Always a fresh read.
func (r *Repository) PreviousCommitments(ctx context.Context, quotationID uuid.UUID, excludeOrderID *uuid.UUID) ([]reconcile.CommitmentRow, error) {
	return commitmentSums(ctx, r.pool, quotationID, excludeOrderID)
}

func commitmentSums(ctx context.Context, q querier, quotationID uuid.UUID, excludeOrderID *uuid.UUID) ([]reconcile.CommitmentRow, error) {
	rows, err := q.Query(ctx, commitmentSumsQuery, quotationID, excludeOrderID, int(domain.StatusCancelled))
	if err != nil {
		return nil, fmt.Errorf("failed to query commitment sums: %w", err)
	}
	defer rows.Close()

	var result []reconcile.CommitmentRow
	for rows.Next() {
		var row reconcile.CommitmentRow
		if err := rows.Scan(&row.ProductID, &row.Group, &row.Qty); err != nil {
			return nil, fmt.Errorf("failed to scan commitment sum: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate commitment sums: %w", err)
	}
	return result, nil
}

// CreateWithItems persists the order and its items atomically. For
// quotation-backed orders the per-key commitment sums are re-checked inside
// a serializable transaction against the quoted quantities; this is the hard
// enforcement point, reached after the service's optimistic pre-check.
// Items flagged Approve are promoted to production products; StartNow
// additionally starts production and writes the first log row.
func (r *Repository) CreateWithItems(ctx context.Context, order *Order, items []ItemInsert, quoted map[catalog.Key]int, actorID uuid.UUID) error {
	return r.writeWithItems(ctx, order, items, quoted, actorID, false)
}

// UpdateWithItems replaces the order header and its whole item set in one
// serializable transaction, re-checking commitments with the order's own
// prior commitment excluded. Re-assembly requires a pending order with no
// promoted products; see mutationGuard.
func (r *Repository) UpdateWithItems(ctx context.Context, order *Order, items []ItemInsert, quoted map[catalog.Key]int, actorID uuid.UUID) error {
	return r.writeWithItems(ctx, order, items, quoted, actorID, true)
}

func (r *Repository) writeWithItems(ctx context.Context, order *Order, items []ItemInsert, quoted map[catalog.Key]int, actorID uuid.UUID, replace bool) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if replace {
		var status, products int
		err := tx.QueryRow(ctx, `
			SELECT o.status,
			       (SELECT COUNT(*) FROM production_products p WHERE p.order_id = o.id)
			FROM production_orders o WHERE o.id = $1 FOR UPDATE`, order.ID,
		).Scan(&status, &products)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound(orderNotFoundMsg)
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if err := mutationGuard(status, products, "re-assembled"); err != nil {
			return err
		}
	}

	if order.QuotationID != nil {
		var exclude *uuid.UUID
		if replace {
			exclude = &order.ID
		}
		if err := checkCommitmentsTx(ctx, tx, *order.QuotationID, exclude, items, quoted); err != nil {
			return err
		}
	}

	// Aggregate status reflects any items started immediately on submission.
	statuses := make([]domain.Status, 0, len(items))
	for _, it := range items {
		if !it.Approve && !it.StartNow {
			continue
		}
		if it.StartNow {
			statuses = append(statuses, domain.StatusInProgress)
		} else {
			statuses = append(statuses, domain.StatusNotStarted)
		}
	}
	order.Status = int(domain.DeriveOrderStatus(len(items), statuses))

	if replace {
		if _, err := tx.Exec(ctx,
			`DELETE FROM production_order_items WHERE order_id = $1`, order.ID,
		); err != nil {
			return fmt.Errorf("failed to clear order items: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE production_orders
			SET batch_no = $2, customer_name = $3, commencement_date = $4,
			    delivery_date = $5, status = $6, updated_at = $7
			WHERE id = $1`,
			order.ID, order.BatchNo, order.CustomerName, order.CommencementDate,
			order.DeliveryDate, order.Status, order.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
	} else {
		if _, err := tx.Exec(ctx, `
			INSERT INTO production_orders
				(id, quotation_id, batch_no, customer_name, commencement_date,
				 delivery_date, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			order.ID, order.QuotationID, order.BatchNo, order.CustomerName,
			order.CommencementDate, order.DeliveryDate, order.Status,
			order.CreatedAt, order.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
	}

	for i := range items {
		it := &items[i]
		if _, err := tx.Exec(ctx, `
			INSERT INTO production_order_items
				(id, order_id, product_id, group_name, product_name, model,
				 unique_code, original_qty, production_qty, size, document,
				 start_date, end_date, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			it.ID, order.ID, it.ProductID, it.GroupName, it.ProductName, it.Model,
			it.UniqueCode, it.OriginalQty, it.ProductionQty, it.Size, it.Document,
			it.StartDate, it.EndDate, it.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}

		if it.Approve || it.StartNow {
			if err := promoteItemTx(ctx, tx, order.ID, it, actorID); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

// checkCommitmentsTx is the server-side re-check: committed sums are read
// inside the serializable transaction and every staged item must fit within
// its key's remaining quantity. The first violation rejects the whole write.
func checkCommitmentsTx(ctx context.Context, tx pgx.Tx, quotationID uuid.UUID, excludeOrderID *uuid.UUID, items []ItemInsert, quoted map[catalog.Key]int) error {
	committedRows, err := commitmentSums(ctx, tx, quotationID, excludeOrderID)
	if err != nil {
		return err
	}

	committed := make(map[catalog.Key]int, len(committedRows))
	for _, row := range committedRows {
		committed[catalog.KeyOf(row.ProductID, row.Group)] += row.Qty
	}

	requested := make(map[catalog.Key]int, len(items))
	for _, it := range items {
		requested[catalog.KeyOf(it.ProductID, it.GroupName)] += it.ProductionQty
	}

	for _, it := range items {
		key := catalog.KeyOf(it.ProductID, it.GroupName)
		remaining := reconcile.Remaining(quoted[key], committed[key])
		if requested[key] > remaining {
			return apperr.Conflict("requested quantity exceeds the remaining quotation balance").
				WithDetails(transport.CommitmentExceededDetails{
					ProductID: key.ProductID,
					Group:     key.Group,
					Requested: requested[key],
					Remaining: remaining,
				})
		}
	}
	return nil
}

func promoteItemTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, it *ItemInsert, actorID uuid.UUID) error {
	status := domain.StatusNotStarted
	if it.StartNow {
		status = domain.StatusInProgress
	}

	productID := uuid.New()
	now := time.Now()
	if _, err := tx.Exec(ctx, `
		INSERT INTO production_products
			(id, order_id, product_id, group_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		productID, orderID, it.ProductID, it.GroupName, int(status), now, now,
	); err != nil {
		return fmt.Errorf("failed to insert production product: %w", err)
	}

	if it.StartNow {
		if _, err := tx.Exec(ctx, `
			INSERT INTO production_logs
				(id, production_product_id, from_stage, to_stage, remark, actor_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), productID, domain.StageOrderCreated, domain.StageInProduction,
			"", actorID, now,
		); err != nil {
			return fmt.Errorf("failed to insert production log: %w", err)
		}
	}
	return nil
}

// GetByID retrieves an order with its items. Each item carries its promoted
// production product, when one exists.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, []OrderItem, error) {
	var o Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, quotation_id, batch_no, customer_name, commencement_date,
		       delivery_date, status, created_at, updated_at
		FROM production_orders WHERE id = $1`, id,
	).Scan(
		&o.ID, &o.QuotationID, &o.BatchNo, &o.CustomerName, &o.CommencementDate,
		&o.DeliveryDate, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperr.NotFound(orderNotFoundMsg)
		}
		return nil, nil, fmt.Errorf("failed to get order: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, i.group_name, i.product_name,
		       i.model, i.unique_code, i.original_qty, i.production_qty,
		       i.size, i.document, i.start_date, i.end_date, i.created_at,
		       p.id, p.status
		FROM production_order_items i
		LEFT JOIN production_products p
		  ON p.order_id = i.order_id
		 AND p.product_id = i.product_id
		 AND p.group_name = i.group_name
		WHERE i.order_id = $1
		ORDER BY i.created_at, i.id`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.GroupName, &it.ProductName,
			&it.Model, &it.UniqueCode, &it.OriginalQty, &it.ProductionQty,
			&it.Size, &it.Document, &it.StartDate, &it.EndDate, &it.CreatedAt,
			&it.ProductionProductID, &it.ProductionStatus,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate order items: %w", err)
	}

	return &o, items, nil
}

// List retrieves orders with search, status filter and pagination.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	var searchParam interface{}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}

	baseQuery := `
		FROM production_orders o
		WHERE ($1::text IS NULL OR o.batch_no ILIKE $1 OR o.customer_name ILIKE $1)
		  AND ($2::int IS NULL OR o.status = $2)
	`
	args := []interface{}{searchParam, params.Status}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	selectQuery := `
		SELECT o.id, o.quotation_id, o.batch_no, o.customer_name,
		       o.commencement_date, o.delivery_date, o.status,
		       o.created_at, o.updated_at,
		       (SELECT COUNT(*) FROM production_order_items i WHERE i.order_id = o.id)
		` + baseQuery + `
		ORDER BY o.created_at DESC
		LIMIT $3 OFFSET $4`

	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var items []ListRow
	for rows.Next() {
		var row ListRow
		if err := rows.Scan(
			&row.ID, &row.QuotationID, &row.BatchNo, &row.CustomerName,
			&row.CommencementDate, &row.DeliveryDate, &row.Status,
			&row.CreatedAt, &row.UpdatedAt, &row.ItemCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Delete removes a pending order with no promoted products; see
// mutationGuard.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status, products int
	err = tx.QueryRow(ctx, `
		SELECT o.status,
		       (SELECT COUNT(*) FROM production_products p WHERE p.order_id = o.id)
		FROM production_orders o WHERE o.id = $1 FOR UPDATE`, id,
	).Scan(&status, &products)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(orderNotFoundMsg)
		}
		return fmt.Errorf("failed to lock order: %w", err)
	}
	if err := mutationGuard(status, products, "deleted"); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM production_orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}
