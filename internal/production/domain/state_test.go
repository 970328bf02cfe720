package domain

import (
	"testing"

	"opsdash_backend/platform/apperr"
)

func TestStart(t *testing.T) {
	tests := []struct {
		from    Status
		want    Status
		wantErr bool
	}{
		{StatusNotStarted, StatusInProgress, false},
		{StatusInProgress, StatusInProgress, true},
		{StatusComplete, StatusComplete, true},
		{StatusCancelled, StatusCancelled, true},
	}

	for _, tc := range tests {
		got, err := Start(tc.from)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Start from %s: expected InvalidTransition", tc.from)
			} else if !apperr.Is(err, apperr.KindConflict) {
				t.Errorf("Start from %s: expected conflict kind, got %v", tc.from, err)
			}
			if got != tc.from {
				t.Errorf("Start from %s: rejected transition must not change state, got %s", tc.from, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Start from %s: unexpected error %v", tc.from, err)
		}
		if got != tc.want {
			t.Errorf("Start from %s = %s, want %s", tc.from, got, tc.want)
		}
	}
}

func TestComplete(t *testing.T) {
	if _, err := Complete(StatusNotStarted); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("Complete on NOT_STARTED must fail with InvalidTransition, got %v", err)
	}
	if _, err := Complete(StatusCancelled); err == nil {
		t.Error("Complete on CANCELLED must fail")
	}
	got, err := Complete(StatusInProgress)
	if err != nil || got != StatusComplete {
		t.Errorf("Complete(IN_PROGRESS) = %s, %v; want COMPLETE, nil", got, err)
	}
}

func TestAdvance(t *testing.T) {
	if err := Advance(StatusNotStarted, "Raw Material Gathering"); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("advance on NOT_STARTED must fail with InvalidTransition, got %v", err)
	}
	if err := Advance(StatusComplete, "Raw Material Gathering"); err == nil {
		t.Error("advance on COMPLETE must fail")
	}
	if err := Advance(StatusInProgress, "  "); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("blank stage must fail validation, got %v", err)
	}
	if err := Advance(StatusInProgress, "Raw Material Gathering"); err != nil {
		t.Errorf("legal advance rejected: %v", err)
	}
}

func TestCancel(t *testing.T) {
	for _, from := range []Status{StatusNotStarted, StatusInProgress} {
		got, err := Cancel(from)
		if err != nil || got != StatusCancelled {
			t.Errorf("Cancel(%s) = %s, %v; want CANCELLED, nil", from, got, err)
		}
	}
	for _, from := range []Status{StatusComplete, StatusCancelled} {
		if _, err := Cancel(from); !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("Cancel(%s) must fail with InvalidTransition, got %v", from, err)
		}
	}
}

func TestDeriveOrderStatus(t *testing.T) {
	tests := []struct {
		name       string
		totalItems int
		products   []Status
		want       OrderStatus
	}{
		{"no products", 3, nil, OrderStatusPending},
		{"approved but not started", 3, []Status{StatusNotStarted, StatusNotStarted}, OrderStatusPending},
		{"one started", 3, []Status{StatusInProgress, StatusNotStarted}, OrderStatusInProgress},
		{"some complete, items unpromoted", 3, []Status{StatusComplete}, OrderStatusInProgress},
		{"all items promoted and complete", 2, []Status{StatusComplete, StatusComplete}, OrderStatusCompleted},
		{"complete plus cancelled", 2, []Status{StatusComplete, StatusCancelled}, OrderStatusCompleted},
		{"all cancelled", 2, []Status{StatusCancelled, StatusCancelled}, OrderStatusPending},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveOrderStatus(tc.totalItems, tc.products); got != tc.want {
				t.Fatalf("DeriveOrderStatus(%d, %v) = %s, want %s", tc.totalItems, tc.products, got, tc.want)
			}
		})
	}
}
