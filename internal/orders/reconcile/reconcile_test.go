package reconcile

import (
	"testing"

	"opsdash_backend/internal/quotations/catalog"

	"github.com/google/uuid"
)

func TestRemaining(t *testing.T) {
	tests := []struct {
		quoted    int
		committed int
		want      int
	}{
		{50, 0, 50},
		{50, 30, 20},
		{50, 50, 0},
		{50, 60, 0}, // over-committed data must never go negative
		{0, 0, 0},
	}

	for _, tc := range tests {
		if got := Remaining(tc.quoted, tc.committed); got != tc.want {
			t.Errorf("Remaining(%d, %d) = %d, want %d", tc.quoted, tc.committed, got, tc.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		quoted    int
		committed int
		want      Availability
	}{
		{50, 0, AvailabilityAvailable},
		{50, 30, AvailabilityPartial},
		{50, 50, AvailabilityComplete},
		{50, 60, AvailabilityComplete},
		{0, 0, AvailabilityComplete},
	}

	for _, tc := range tests {
		if got := Classify(tc.quoted, tc.committed); got != tc.want {
			t.Errorf("Classify(%d, %d) = %s, want %s", tc.quoted, tc.committed, got, tc.want)
		}
	}
}

func TestClampRequest(t *testing.T) {
	tests := []struct {
		requested int
		remaining int
		want      int
	}{
		{-5, 20, 0},
		{999, 20, 20},
		{20, 20, 20},
		{7, 20, 7},
		{0, 20, 0},
	}

	for _, tc := range tests {
		if got := ClampRequest(tc.requested, tc.remaining); got != tc.want {
			t.Errorf("ClampRequest(%d, %d) = %d, want %d", tc.requested, tc.remaining, got, tc.want)
		}
	}
}

func TestNewSnapshotFoldsAndTrims(t *testing.T) {
	qid := uuid.New()
	rows := []CommitmentRow{
		{ProductID: 10, Group: "A", Qty: 20},
		{ProductID: 10, Group: " A ", Qty: 10}, // stored whitespace, same key
		{ProductID: 11, Group: "A", Qty: 5},
	}

	snap := NewSnapshot(&qid, rows)
	if got := snap.Committed(catalog.KeyOf(10, "A")); got != 30 {
		t.Errorf("expected 30 committed for (10, A), got %d", got)
	}
	if got := snap.Committed(catalog.KeyOf(11, "A")); got != 5 {
		t.Errorf("expected 5 committed for (11, A), got %d", got)
	}
	if got := snap.Committed(catalog.KeyOf(10, "a")); got != 0 {
		t.Errorf("case-sensitive matching violated: got %d for (10, a)", got)
	}
}

func TestNewSnapshotNilQuotationIsEmpty(t *testing.T) {
	snap := NewSnapshot(nil, []CommitmentRow{{ProductID: 1, Group: "A", Qty: 9}})
	if got := snap.Committed(catalog.KeyOf(1, "A")); got != 0 {
		t.Fatalf("self-quoted orders reconcile against nothing, got committed %d", got)
	}
}

// Re-resolving with the same rows and no intervening writes must yield
// identical committed totals.
func TestSnapshotIdempotence(t *testing.T) {
	qid := uuid.New()
	rows := []CommitmentRow{
		{ProductID: 10, Group: "A", Qty: 20},
		{ProductID: 12, Group: "B", Qty: 4},
	}

	first := NewSnapshot(&qid, rows)
	second := NewSnapshot(&qid, rows)

	for _, key := range []catalog.Key{catalog.KeyOf(10, "A"), catalog.KeyOf(12, "B"), catalog.KeyOf(99, "C")} {
		if first.Committed(key) != second.Committed(key) {
			t.Errorf("snapshot not idempotent for %v: %d vs %d", key, first.Committed(key), second.Committed(key))
		}
	}
}

func TestReconcileRows(t *testing.T) {
	qid := uuid.New()
	lines := []catalog.LineItem{
		{RowID: 0, Key: catalog.KeyOf(10, "A"), Name: "Door", Qty: 50},
		{RowID: 1, Key: catalog.KeyOf(11, "A"), Name: "Frame", Qty: 10},
		{RowID: 2, Key: catalog.KeyOf(12, "B"), Name: "Panel", Qty: 5},
	}
	snap := NewSnapshot(&qid, []CommitmentRow{
		{ProductID: 10, Group: "A", Qty: 50},
		{ProductID: 11, Group: "A", Qty: 4},
	})

	rows := Reconcile(lines, snap)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if rows[0].Availability != AvailabilityComplete || rows[0].Remaining != 0 {
		t.Errorf("fully committed line: got %s remaining %d", rows[0].Availability, rows[0].Remaining)
	}
	if rows[1].Availability != AvailabilityPartial || rows[1].Remaining != 6 {
		t.Errorf("partially committed line: got %s remaining %d", rows[1].Availability, rows[1].Remaining)
	}
	if rows[2].Availability != AvailabilityAvailable || rows[2].Remaining != 5 {
		t.Errorf("untouched line: got %s remaining %d", rows[2].Availability, rows[2].Remaining)
	}
}

func TestReconcileAccumulatesDuplicateKeys(t *testing.T) {
	qid := uuid.New()
	lines := []catalog.LineItem{
		{RowID: 0, Key: catalog.KeyOf(10, "A"), Qty: 30},
		{RowID: 1, Key: catalog.KeyOf(10, "A"), Qty: 20},
	}
	snap := NewSnapshot(&qid, []CommitmentRow{{ProductID: 10, Group: "A", Qty: 45}})

	rows := Reconcile(lines, snap)
	for _, row := range rows {
		if row.Quoted != 50 {
			t.Errorf("row %d: quoted must accumulate per key, got %d", row.RowID, row.Quoted)
		}
		if row.Remaining != 5 {
			t.Errorf("row %d: expected remaining 5, got %d", row.RowID, row.Remaining)
		}
		if row.Availability != AvailabilityPartial {
			t.Errorf("row %d: expected PARTIAL, got %s", row.RowID, row.Availability)
		}
	}
}
