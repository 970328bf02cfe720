package events

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	platformevents "opsdash_backend/platform/events"
	"opsdash_backend/platform/logger"

	"github.com/google/uuid"
)

type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) find(msg string) (slog.Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if r.Message == msg {
			return r, true
		}
	}
	return slog.Record{}, false
}

func attrValue(r slog.Record, key string) (string, bool) {
	var value string
	found := false
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			value = a.Value.String()
			found = true
			return false
		}
		return true
	})
	return value, found
}

// The audit trail must name both ends of a stage move.
func TestAuditSubscriberLogsStageEndpoints(t *testing.T) {
	handler := &recordingHandler{}
	log := &logger.Logger{Logger: slog.New(handler)}

	bus := platformevents.NewInMemoryBus(log)
	RegisterAuditSubscriber(bus, log)

	err := bus.PublishSync(context.Background(), StageAdvanced{
		BaseEvent: NewBaseEvent(),
		ProductID: uuid.New(),
		FromStage: "In Production",
		ToStage:   "Quality Check",
		ActorID:   uuid.New(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	record, ok := handler.find("production stage advanced")
	if !ok {
		t.Fatal("expected a stage-advanced log record")
	}
	if from, ok := attrValue(record, "from_stage"); !ok || from != "In Production" {
		t.Errorf("expected from_stage %q, got %q", "In Production", from)
	}
	if to, ok := attrValue(record, "to_stage"); !ok || to != "Quality Check" {
		t.Errorf("expected to_stage %q, got %q", "Quality Check", to)
	}
}

func TestAuditSubscriberCoversOrderLifecycle(t *testing.T) {
	handler := &recordingHandler{}
	log := &logger.Logger{Logger: slog.New(handler)}

	bus := platformevents.NewInMemoryBus(log)
	RegisterAuditSubscriber(bus, log)

	orderID := uuid.New()
	if err := bus.PublishSync(context.Background(), OrderCreated{
		BaseEvent: NewBaseEvent(),
		OrderID:   orderID,
		BatchNo:   "B-100",
		ItemCount: 2,
		ActorID:   uuid.New(),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	record, ok := handler.find("order created")
	if !ok {
		t.Fatal("expected an order-created log record")
	}
	if batch, ok := attrValue(record, "batch_no"); !ok || batch != "B-100" {
		t.Errorf("expected batch_no %q, got %q", "B-100", batch)
	}
}
