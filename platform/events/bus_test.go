package events

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishFansOutToAllHandlers(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	calls := 0

	wg.Add(2)
	handler := HandlerFunc(func(ctx context.Context, e Event) error {
		mu.Lock()
		calls++
		mu.Unlock()
		wg.Done()
		return nil
	})
	bus.Subscribe("test.event", handler)
	bus.Subscribe("test.event", handler)

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "test.event"})
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls)
	}
}

func TestPublishIgnoresUnsubscribedEvents(t *testing.T) {
	bus := NewInMemoryBus(nil)
	bus.Subscribe("other.event", HandlerFunc(func(ctx context.Context, e Event) error {
		t.Error("handler for a different event must not run")
		return nil
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "test.event"})
	if err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "test.event"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPublishSyncReturnsFirstError(t *testing.T) {
	bus := NewInMemoryBus(nil)

	first := errors.New("first failure")
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, e Event) error {
		return first
	}))
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, e Event) error {
		return errors.New("second failure")
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "test.event"})
	if !errors.Is(err, first) {
		t.Fatalf("expected first handler error, got %v", err)
	}
}

func TestPublishSyncRunsAllHandlersDespiteFailures(t *testing.T) {
	bus := NewInMemoryBus(nil)

	ran := false
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, e Event) error {
		return errors.New("boom")
	}))
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, e Event) error {
		ran = true
		return nil
	}))

	_ = bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "test.event"})
	if !ran {
		t.Fatal("later handlers must still run after an earlier failure")
	}
}
