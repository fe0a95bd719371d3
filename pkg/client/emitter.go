package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"ex-otogi-gateway/pkg/gateway"
)

// EventEmitter is the synchronous gateway.Emitter implementation.
//
// Listeners run on the emitting goroutine in subscription order. A failing
// listener never stops delivery to the others: its error or panic is
// re-emitted as gateway.EventError carrying a *gateway.ListenerError. Faults
// raised while delivering EventError itself are only logged.
type EventEmitter struct {
	mu            sync.RWMutex
	nextID        int64
	closed        bool
	subscriptions map[int64]*emitterSubscription
	logger        *slog.Logger
	onFault       func(*gateway.ListenerError)
}

// NewEmitter creates an emitter that logs unrecoverable listener faults to logger.
func NewEmitter(logger *slog.Logger) *EventEmitter {
	if logger == nil {
		logger = slog.Default()
	}

	return &EventEmitter{
		subscriptions: make(map[int64]*emitterSubscription),
		logger:        logger,
	}
}

// Emit delivers event to every matching subscription.
func (e *EventEmitter) Emit(ctx context.Context, event *gateway.Event) error {
	if event == nil {
		return fmt.Errorf("emit: nil event")
	}

	subs, err := e.snapshotSubscriptions()
	if err != nil {
		return fmt.Errorf("emit %s: %w", event.Name, err)
	}

	for _, sub := range subs {
		if sub.closed.Load() || !sub.spec.Matches(event.Name) {
			continue
		}
		if err := sub.deliver(ctx, event); err != nil {
			e.reportFault(ctx, sub, event, err)
		}
	}

	return nil
}

// Subscribe registers listener for events accepted by spec.
func (e *EventEmitter) Subscribe(
	ctx context.Context,
	spec gateway.SubscriptionSpec,
	listener gateway.Listener,
) (gateway.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", spec.Name, err)
	}
	if listener == nil {
		return nil, fmt.Errorf("subscribe %s: nil listener", spec.Name)
	}

	subID := atomic.AddInt64(&e.nextID, 1)
	if spec.Name == "" {
		spec.Name = fmt.Sprintf("subscription-%d", subID)
	}
	spec.Events = slices.Clone(spec.Events)
	sub := &emitterSubscription{
		id:       subID,
		spec:     spec,
		listener: listener,
		emitter:  e,
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, fmt.Errorf("subscribe %s: %w", spec.Name, gateway.ErrEmitterClosed)
	}
	e.subscriptions[subID] = sub

	return sub, nil
}

// Close drops every subscription and rejects further use.
func (e *EventEmitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	for _, sub := range e.subscriptions {
		sub.closed.Store(true)
	}
	e.subscriptions = make(map[int64]*emitterSubscription)

	return nil
}

// snapshotSubscriptions returns subscriptions ordered by registration.
func (e *EventEmitter) snapshotSubscriptions() ([]*emitterSubscription, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, gateway.ErrEmitterClosed
	}

	subs := make([]*emitterSubscription, 0, len(e.subscriptions))
	for _, sub := range e.subscriptions {
		subs = append(subs, sub)
	}
	slices.SortFunc(subs, func(left, right *emitterSubscription) int {
		return int(left.id - right.id)
	})

	return subs, nil
}

func (e *EventEmitter) unsubscribe(sub *emitterSubscription) error {
	e.mu.Lock()
	_, found := e.subscriptions[sub.id]
	delete(e.subscriptions, sub.id)
	e.mu.Unlock()

	if !sub.closed.CompareAndSwap(false, true) || !found {
		return fmt.Errorf("close subscription %s: %w", sub.spec.Name, gateway.ErrSubscriptionClosed)
	}

	return nil
}

// reportFault converts a listener failure into an EventError emission.
func (e *EventEmitter) reportFault(ctx context.Context, sub *emitterSubscription, event *gateway.Event, err error) {
	listenerErr := &gateway.ListenerError{
		Subscription: sub.spec.Name,
		Event:        event.Name,
		Err:          err,
	}
	if e.onFault != nil {
		e.onFault(listenerErr)
	}

	if event.Name == gateway.EventError {
		e.logger.ErrorContext(ctx, "gateway error listener fault",
			"subscription", sub.spec.Name,
			"error", err,
		)
		return
	}

	emitErr := e.Emit(ctx, &gateway.Event{
		Name:    gateway.EventError,
		ShardID: event.ShardID,
		Args:    []any{listenerErr},
	})
	if emitErr != nil && !errors.Is(emitErr, gateway.ErrEmitterClosed) {
		e.logger.ErrorContext(ctx, "gateway listener fault not delivered",
			"subscription", sub.spec.Name,
			"event", string(event.Name),
			"error", errors.Join(err, emitErr),
		)
	}
}

// emitterSubscription is one registered listener.
type emitterSubscription struct {
	id       int64
	spec     gateway.SubscriptionSpec
	listener gateway.Listener
	closed   atomic.Bool
	emitter  *EventEmitter
}

// Name returns the subscription name.
func (s *emitterSubscription) Name() string {
	return s.spec.Name
}

// Close stops delivery. It is safe to call from inside the listener.
func (s *emitterSubscription) Close() error {
	return s.emitter.unsubscribe(s)
}

func (s *emitterSubscription) deliver(ctx context.Context, event *gateway.Event) error {
	scope := fmt.Sprintf("subscription %s", s.spec.Name)

	return runGuarded(ctx, s.emitter.logger, scope, func() error {
		return s.listener(ctx, event)
	})
}
