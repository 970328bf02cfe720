package service

import (
	"strings"
	"testing"
	"time"

	"opsdash_backend/internal/orders/reconcile"
	"opsdash_backend/internal/orders/repository"
	"opsdash_backend/internal/orders/transport"
	"opsdash_backend/internal/quotations/catalog"
	"opsdash_backend/platform/apperr"

	"github.com/google/uuid"
)

func reqItem(productID int64, group string, qty int) transport.OrderItemRequest {
	return transport.OrderItemRequest{
		ProductID:     productID,
		Group:         group,
		ProductionQty: qty,
		StartDate:     "2026-09-01",
		EndDate:       "2026-09-15",
	}
}

func stagedItem(productID int64, group string, qty int) repository.ItemInsert {
	return repository.ItemInsert{
		OrderItem: repository.OrderItem{
			ProductID:     productID,
			GroupName:     group,
			ProductionQty: qty,
		},
	}
}

func snapshotOf(rows ...reconcile.CommitmentRow) reconcile.Snapshot {
	id := uuid.New()
	return reconcile.NewSnapshot(&id, rows)
}

func TestParseOrderDates(t *testing.T) {
	tests := []struct {
		name         string
		commencement string
		delivery     string
		wantErr      bool
	}{
		{"valid range", "2026-09-01", "2026-10-01", false},
		{"same day", "2026-09-01", "2026-09-01", false},
		{"delivery before commencement", "2026-10-01", "2026-09-01", true},
		{"missing commencement", "", "2026-10-01", true},
		{"missing delivery", "2026-09-01", "", true},
		{"garbage date", "not-a-date", "2026-10-01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseOrderDates(tt.commencement, tt.delivery)
			if tt.wantErr {
				if !apperr.Is(err, apperr.KindValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAssembleItemsDropsUnselectedLines(t *testing.T) {
	items, err := assembleItems(uuid.New(), []transport.OrderItemRequest{
		reqItem(10, "A", 5),
		reqItem(11, "A", 0),
		reqItem(12, "A", -3),
	}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 staged item, got %d", len(items))
	}
	if items[0].ProductID != 10 || items[0].ProductionQty != 5 {
		t.Errorf("wrong staged item: %+v", items[0].OrderItem)
	}
}

func TestAssembleItemsRejectsAllZeroQuantities(t *testing.T) {
	_, err := assembleItems(uuid.New(), []transport.OrderItemRequest{
		reqItem(10, "A", 0),
		reqItem(11, "A", -1),
	}, time.Now())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAssembleItemsTrimsGroup(t *testing.T) {
	items, err := assembleItems(uuid.New(), []transport.OrderItemRequest{
		reqItem(10, "  Frames  ", 2),
	}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items[0].GroupName != "Frames" {
		t.Errorf("expected trimmed group, got %q", items[0].GroupName)
	}
}

func TestAssembleItemsDateValidation(t *testing.T) {
	tests := []struct {
		name string
		item transport.OrderItemRequest
	}{
		{"missing start date", transport.OrderItemRequest{ProductID: 10, ProductionQty: 1, EndDate: "2026-09-15"}},
		{"missing end date", transport.OrderItemRequest{ProductID: 10, ProductionQty: 1, StartDate: "2026-09-01"}},
		{"end before start", transport.OrderItemRequest{ProductID: 10, ProductionQty: 1, StartDate: "2026-09-15", EndDate: "2026-09-01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := assembleItems(uuid.New(), []transport.OrderItemRequest{tt.item}, time.Now())
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			e := err.(*apperr.Error)
			key, ok := e.Details.(catalog.Key)
			if !ok {
				t.Fatalf("expected key details, got %T", e.Details)
			}
			if key.ProductID != 10 {
				t.Errorf("details name wrong key: %+v", key)
			}
		})
	}
}

func TestCheckCommitmentsWithinRemaining(t *testing.T) {
	quoted := map[catalog.Key]int{catalog.KeyOf(10, "A"): 10}
	snap := snapshotOf(reconcile.CommitmentRow{ProductID: 10, Group: "A", Qty: 6})

	err := checkCommitments([]repository.ItemInsert{stagedItem(10, "A", 4)}, quoted, snap)
	if err != nil {
		t.Fatalf("expected request against exact remaining to pass, got %v", err)
	}
}

func TestCheckCommitmentsExceedsRemaining(t *testing.T) {
	quoted := map[catalog.Key]int{catalog.KeyOf(10, "A"): 10}
	snap := snapshotOf(reconcile.CommitmentRow{ProductID: 10, Group: "A", Qty: 6})

	err := checkCommitments([]repository.ItemInsert{stagedItem(10, "A", 5)}, quoted, snap)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	d, ok := err.(*apperr.Error).Details.(transport.CommitmentExceededDetails)
	if !ok {
		t.Fatalf("expected exceeded details, got %T", err.(*apperr.Error).Details)
	}
	if d.ProductID != 10 || d.Group != "A" || d.Requested != 5 || d.Remaining != 4 {
		t.Errorf("wrong details: %+v", d)
	}
}

// One over-committed line rejects the whole submission even when the other
// lines fit.
func TestCheckCommitmentsAllOrNothing(t *testing.T) {
	quoted := map[catalog.Key]int{
		catalog.KeyOf(10, "A"): 10,
		catalog.KeyOf(11, "A"): 3,
	}
	snap := snapshotOf(reconcile.CommitmentRow{ProductID: 11, Group: "A", Qty: 3})

	err := checkCommitments([]repository.ItemInsert{
		stagedItem(10, "A", 2),
		stagedItem(11, "A", 1),
	}, quoted, snap)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	d := err.(*apperr.Error).Details.(transport.CommitmentExceededDetails)
	if d.ProductID != 11 || d.Remaining != 0 {
		t.Errorf("wrong details: %+v", d)
	}
}

// Duplicate keys within one submission share the key's remaining pool.
func TestCheckCommitmentsAggregatesDuplicateKeys(t *testing.T) {
	quoted := map[catalog.Key]int{catalog.KeyOf(10, "A"): 5}
	snap := snapshotOf()

	err := checkCommitments([]repository.ItemInsert{
		stagedItem(10, "A", 3),
		stagedItem(10, "A", 3),
	}, quoted, snap)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for aggregated request of 6 against 5, got %v", err)
	}
}

// A key absent from the quotation has zero quoted quantity, so any positive
// request for it is rejected.
func TestCheckCommitmentsUnknownKey(t *testing.T) {
	quoted := map[catalog.Key]int{catalog.KeyOf(10, "A"): 5}
	snap := snapshotOf()

	err := checkCommitments([]repository.ItemInsert{stagedItem(99, "A", 1)}, quoted, snap)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	d := err.(*apperr.Error).Details.(transport.CommitmentExceededDetails)
	if d.Remaining != 0 {
		t.Errorf("expected remaining 0 for unknown key, got %d", d.Remaining)
	}
}

// Group matching at the check is trim-insensitive and case-sensitive, the
// same rule the catalog applies.
func TestCheckCommitmentsKeyMatchingRule(t *testing.T) {
	quoted := map[catalog.Key]int{catalog.KeyOf(10, "Frames"): 5}
	snap := snapshotOf()

	if err := checkCommitments([]repository.ItemInsert{stagedItem(10, "  Frames ", 5)}, quoted, snap); err != nil {
		t.Fatalf("trimmed group should match quoted key, got %v", err)
	}

	err := checkCommitments([]repository.ItemInsert{stagedItem(10, "frames", 5)}, quoted, snap)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("case-different group must not share the quoted pool, got %v", err)
	}
}

// Re-submitting an order's own quantities passes when its prior commitment
// is excluded from the snapshot, and fails when it is not.
func TestCheckCommitmentsExcludeSelfOnEdit(t *testing.T) {
	quoted := map[catalog.Key]int{catalog.KeyOf(10, "A"): 10}
	items := []repository.ItemInsert{stagedItem(10, "A", 10)}

	withSelf := snapshotOf(reconcile.CommitmentRow{ProductID: 10, Group: "A", Qty: 10})
	if err := checkCommitments(items, quoted, withSelf); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict when own commitment is still counted, got %v", err)
	}

	withoutSelf := snapshotOf()
	if err := checkCommitments(items, quoted, withoutSelf); err != nil {
		t.Fatalf("expected resubmission to pass with self excluded, got %v", err)
	}
}

func TestCheckCommitmentsMessageNamesBalance(t *testing.T) {
	quoted := map[catalog.Key]int{catalog.KeyOf(10, "A"): 1}
	err := checkCommitments([]repository.ItemInsert{stagedItem(10, "A", 2)}, quoted, snapshotOf())
	if err == nil || !strings.Contains(err.Error(), "remaining") {
		t.Fatalf("expected message naming the remaining balance, got %v", err)
	}
}
