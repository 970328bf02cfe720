// Package reconcile computes remaining allocatable quantity per quoted line
// given all existing commitments. It is the single authority for the
// "completed / partial / available" classification and for the client-side
// quantity clamp; the hard enforcement lives in the order repository's
// check-and-commit transaction.
package reconcile

import (
	"time"

	"opsdash_backend/internal/quotations/catalog"

	"github.com/google/uuid"
)

// Availability classifies a quoted line against its prior commitments.
type Availability string

const (
	// AvailabilityAvailable means nothing has been committed yet.
	AvailabilityAvailable Availability = "AVAILABLE"
	// AvailabilityPartial means some, but not all, quantity is committed.
	AvailabilityPartial Availability = "PARTIAL"
	// AvailabilityComplete means the quoted quantity is fully committed
	// elsewhere; the UI disables input for the line.
	AvailabilityComplete Availability = "COMPLETE"
)

// CommitmentRow is one aggregated prior commitment as reported by storage.
type CommitmentRow struct {
	ProductID int64
	Group     string
	Qty       int
}

// Snapshot is the committed-quantity view of a quotation at a point in time.
// It is resolved fresh on every quotation selection, order load and
// submission; snapshots are never cached across those events.
type Snapshot struct {
	QuotationID *uuid.UUID
	TakenAt     time.Time
	committed   map[catalog.Key]int
}

// NewSnapshot folds aggregated commitment rows into a snapshot.
// Group values pass through catalog.KeyOf so stored whitespace cannot
// split a key. A nil quotation id yields an empty snapshot: self-quoted
// orders have no shared pool to reconcile against.
func NewSnapshot(quotationID *uuid.UUID, rows []CommitmentRow) Snapshot {
	s := Snapshot{
		QuotationID: quotationID,
		TakenAt:     time.Now(),
		committed:   make(map[catalog.Key]int, len(rows)),
	}
	if quotationID == nil {
		return s
	}
	for _, row := range rows {
		s.committed[catalog.KeyOf(row.ProductID, row.Group)] += row.Qty
	}
	return s
}

// Committed returns the total quantity already committed for the key.
func (s Snapshot) Committed(key catalog.Key) int {
	return s.committed[key]
}

// Remaining computes the quantity still allocatable for a line.
func Remaining(quoted, committed int) int {
	if committed >= quoted {
		return 0
	}
	return quoted - committed
}

// Classify maps quoted and committed quantities to an Availability.
func Classify(quoted, committed int) Availability {
	switch {
	case committed >= quoted:
		return AvailabilityComplete
	case committed > 0:
		return AvailabilityPartial
	default:
		return AvailabilityAvailable
	}
}

// ClampRequest coerces a requested quantity into [0, remaining].
// The clamp is silent: it is a UX guard, not a validation boundary.
func ClampRequest(requested, remaining int) int {
	if requested < 0 {
		return 0
	}
	if requested > remaining {
		return remaining
	}
	return requested
}

// Row is the per-line reconciliation view rendered by order forms.
type Row struct {
	RowID        int          `json:"rowId"`
	Key          catalog.Key  `json:"key"`
	Name         string       `json:"name"`
	Model        string       `json:"model"`
	UniqueCode   string       `json:"uniqueCode"`
	Size         string       `json:"size"`
	Document     string       `json:"document"`
	Quoted       int          `json:"quoted"`
	Committed    int          `json:"committed"`
	Remaining    int          `json:"remaining"`
	Availability Availability `json:"availability"`
}

// Reconcile joins parsed quotation lines with a commitment snapshot.
// Duplicate keys within the quotation share one committed pool, so the
// quoted quantity is accumulated per key before classification and each
// row reports the key-level figures.
func Reconcile(lines []catalog.LineItem, snapshot Snapshot) []Row {
	quoted := catalog.QuotedQuantities(lines)

	rows := make([]Row, 0, len(lines))
	for _, line := range lines {
		keyQuoted := quoted[line.Key]
		committed := snapshot.Committed(line.Key)
		rows = append(rows, Row{
			RowID:        line.RowID,
			Key:          line.Key,
			Name:         line.Name,
			Model:        line.Model,
			UniqueCode:   line.UniqueCode,
			Size:         line.Size,
			Document:     line.Document,
			Quoted:       keyQuoted,
			Committed:    committed,
			Remaining:    Remaining(keyQuoted, committed),
			Availability: Classify(keyQuoted, committed),
		})
	}
	return rows
}
