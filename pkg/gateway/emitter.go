package gateway

import (
	"context"
	"slices"
)

// Listener reacts to one emitted event.
//
// Listeners run synchronously on the dispatch goroutine. Entities passed in
// Args keep changing as later frames arrive; clone them to keep a snapshot.
type Listener func(ctx context.Context, event *Event) error

// SubscriptionSpec configures one listener registration.
type SubscriptionSpec struct {
	// Name identifies the subscription in error reports.
	Name string
	// Events filters delivery. Empty means every event.
	Events []EventName
}

// Matches reports whether the spec accepts the event name.
func (s SubscriptionSpec) Matches(name EventName) bool {
	if len(s.Events) == 0 {
		return true
	}

	return slices.Contains(s.Events, name)
}

// Subscription controls an active listener registration.
type Subscription interface {
	// Name returns the subscription identifier.
	Name() string
	// Close stops delivery to this subscription.
	Close() error
}

// Emitter is the application-facing publish point.
type Emitter interface {
	// Emit delivers an event to every matching listener synchronously.
	Emit(ctx context.Context, event *Event) error
	// Subscribe registers a listener.
	Subscribe(ctx context.Context, spec SubscriptionSpec, listener Listener) (Subscription, error)
	// Close drops all subscriptions and rejects further use.
	Close() error
}
