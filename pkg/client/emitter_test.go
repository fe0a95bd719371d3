package client

import (
	"context"
	"errors"
	"testing"

	"ex-otogi-gateway/pkg/gateway"

	"github.com/google/go-cmp/cmp"
)

func subscribeTest(t *testing.T, emitter *EventEmitter, spec gateway.SubscriptionSpec, listener gateway.Listener) gateway.Subscription {
	t.Helper()

	sub, err := emitter.Subscribe(context.Background(), spec, listener)
	if err != nil {
		t.Fatalf("subscribe %s failed: %v", spec.Name, err)
	}

	return sub
}

// TestEmitterDeliversInSubscriptionOrder verifies ordering and event filters.
func TestEmitterDeliversInSubscriptionOrder(t *testing.T) {
	t.Parallel()

	emitter := NewEmitter(nil)
	var calls []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		subscribeTest(t, emitter, gateway.SubscriptionSpec{Name: name}, func(context.Context, *gateway.Event) error {
			calls = append(calls, name)
			return nil
		})
	}
	subscribeTest(t, emitter, gateway.SubscriptionSpec{
		Name:   "filtered",
		Events: []gateway.EventName{gateway.EventGuildDelete},
	}, func(context.Context, *gateway.Event) error {
		calls = append(calls, "filtered")
		return nil
	})

	if err := emitter.Emit(context.Background(), &gateway.Event{Name: gateway.EventGuildCreate}); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	if diff := cmp.Diff([]string{"first", "second", "third"}, calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

// TestEmitterListenerFaultsBecomeErrorEvents verifies listener errors and
// panics are re-emitted without interrupting delivery.
func TestEmitterListenerFaultsBecomeErrorEvents(t *testing.T) {
	t.Parallel()

	emitter := NewEmitter(nil)
	var faults []*gateway.ListenerError
	emitter.onFault = func(err *gateway.ListenerError) {
		faults = append(faults, err)
	}

	var received []error
	subscribeTest(t, emitter, gateway.SubscriptionSpec{
		Name:   "errors",
		Events: []gateway.EventName{gateway.EventError},
	}, func(_ context.Context, event *gateway.Event) error {
		err, _ := gateway.Arg[error](event, 0)
		received = append(received, err)
		panic("error listener exploded")
	})
	subscribeTest(t, emitter, gateway.SubscriptionSpec{Name: "failing"}, func(_ context.Context, event *gateway.Event) error {
		if event.Name == gateway.EventError {
			return nil
		}
		return errors.New("listener failed")
	})
	delivered := false
	subscribeTest(t, emitter, gateway.SubscriptionSpec{
		Name:   "healthy",
		Events: []gateway.EventName{gateway.EventMessageCreate},
	}, func(context.Context, *gateway.Event) error {
		delivered = true
		return nil
	})

	if err := emitter.Emit(context.Background(), &gateway.Event{Name: gateway.EventMessageCreate, ShardID: 2}); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	if !delivered {
		t.Fatal("healthy listener skipped after a failing one")
	}
	if len(received) != 1 {
		t.Fatalf("error events = %d, want 1", len(received))
	}
	var listenerErr *gateway.ListenerError
	if !errors.As(received[0], &listenerErr) {
		t.Fatalf("error = %v, want *ListenerError", received[0])
	}
	if listenerErr.Subscription != "failing" || listenerErr.Event != gateway.EventMessageCreate {
		t.Fatalf("listener error = %+v", listenerErr)
	}
	if len(faults) != 2 {
		t.Fatalf("faults = %d, want listener fault and error listener fault", len(faults))
	}
}

func TestEmitterSubscriptionCloseInsideListener(t *testing.T) {
	t.Parallel()

	emitter := NewEmitter(nil)
	calls := 0
	var sub gateway.Subscription
	sub = subscribeTest(t, emitter, gateway.SubscriptionSpec{}, func(context.Context, *gateway.Event) error {
		calls++
		return sub.Close()
	})
	if sub.Name() != "subscription-1" {
		t.Fatalf("default name = %q, want subscription-1", sub.Name())
	}

	for range 2 {
		if err := emitter.Emit(context.Background(), &gateway.Event{Name: gateway.EventReady}); err != nil {
			t.Fatalf("emit failed: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if err := sub.Close(); !errors.Is(err, gateway.ErrSubscriptionClosed) {
		t.Fatalf("second close = %v, want ErrSubscriptionClosed", err)
	}
}

func TestEmitterClosedRejectsUse(t *testing.T) {
	t.Parallel()

	emitter := NewEmitter(nil)
	if err := emitter.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if err := emitter.Emit(context.Background(), &gateway.Event{Name: gateway.EventReady}); !errors.Is(err, gateway.ErrEmitterClosed) {
		t.Fatalf("emit error = %v, want ErrEmitterClosed", err)
	}
	_, err := emitter.Subscribe(context.Background(), gateway.SubscriptionSpec{Name: "late"}, func(context.Context, *gateway.Event) error {
		return nil
	})
	if !errors.Is(err, gateway.ErrEmitterClosed) {
		t.Fatalf("subscribe error = %v, want ErrEmitterClosed", err)
	}
}
