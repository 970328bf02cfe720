package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"opsdash_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Domain Models ─────────────────────────────────────────────────────────────

// Quotation is the database model for a quotation header with its serialized
// line list. The items payload is preserved byte-for-byte; parsing happens in
// the catalog package.
type Quotation struct {
	ID           uuid.UUID `db:"id"`
	BatchNo      string    `db:"batch_no"`
	CustomerName string    `db:"customer_name"`
	Items        []byte    `db:"items"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// ListParams contains parameters for listing quotations.
type ListParams struct {
	Search   string
	Page     int
	PageSize int
}

// ListResult contains the paginated result of listing quotations.
type ListResult struct {
	Items      []Quotation
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// ── Repository ────────────────────────────────────────────────────────────────

const quotationNotFoundMsg = "quotation not found"

// Repository provides database operations for quotations.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new quotations repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a quotation.
func (r *Repository) Create(ctx context.Context, q *Quotation) error {
	query := `
		INSERT INTO quotations (id, batch_no, customer_name, items, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.pool.Exec(ctx, query,
		q.ID, q.BatchNo, q.CustomerName, q.Items, q.CreatedAt, q.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert quotation: %w", err)
	}
	return nil
}

// GetByID retrieves a quotation by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Quotation, error) {
	var q Quotation
	query := `
		SELECT id, batch_no, customer_name, items, created_at, updated_at
		FROM quotations WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&q.ID, &q.BatchNo, &q.CustomerName, &q.Items, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(quotationNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}
	return &q, nil
}

// Delete removes a quotation. Quotations referenced by production orders
// cannot be deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	var refs int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM production_orders WHERE quotation_id = $1`, id,
	).Scan(&refs); err != nil {
		return fmt.Errorf("failed to count quotation references: %w", err)
	}
	if refs > 0 {
		return apperr.Conflict("quotation has production orders and cannot be deleted")
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM quotations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete quotation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(quotationNotFoundMsg)
	}
	return nil
}

// List retrieves quotations with search and pagination.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	var searchParam interface{}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}

	baseQuery := `
		FROM quotations
		WHERE ($1::text IS NULL OR batch_no ILIKE $1 OR customer_name ILIKE $1)
	`
	args := []interface{}{searchParam}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count quotations: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	selectQuery := `
		SELECT id, batch_no, customer_name, items, created_at, updated_at
		` + baseQuery + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}
	defer rows.Close()

	var items []Quotation
	for rows.Next() {
		var q Quotation
		if err := rows.Scan(&q.ID, &q.BatchNo, &q.CustomerName, &q.Items, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quotation: %w", err)
		}
		items = append(items, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotations: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}
