package repository

import (
	"strings"
	"testing"

	"opsdash_backend/internal/production/domain"
	"opsdash_backend/platform/apperr"
)

func TestMutationGuard(t *testing.T) {
	tests := []struct {
		name     string
		status   domain.OrderStatus
		products int
		wantErr  bool
	}{
		{"pending without products", domain.OrderStatusPending, 0, false},
		{"pending with an active product", domain.OrderStatusPending, 1, true},
		// All products cancelled derives the order back to pending, but the
		// cancelled products and their log rows must survive.
		{"pending with cancelled products only", domain.OrderStatusPending, 2, true},
		{"in progress", domain.OrderStatusInProgress, 1, true},
		{"completed", domain.OrderStatusCompleted, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mutationGuard(int(tt.status), tt.products, "re-assembled")
			if tt.wantErr {
				if !apperr.Is(err, apperr.KindConflict) {
					t.Fatalf("expected conflict, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestMutationGuardNamesAction(t *testing.T) {
	err := mutationGuard(int(domain.OrderStatusPending), 1, "deleted")
	if err == nil || !strings.Contains(err.Error(), "deleted") {
		t.Fatalf("expected message naming the rejected action, got %v", err)
	}
}
