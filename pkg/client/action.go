package client

import (
	"context"

	"ex-otogi-gateway/pkg/gateway"
)

// Action reconciles one dispatch tag against the cache.
//
// Actions hold no per-frame state; everything a run needs is local to Run.
type Action interface {
	Run(ctx context.Context, client *Client, frame gateway.Frame) error
}

// ActionFunc adapts a function to Action. It serves plural and one-off
// actions that do not fit the reconcile templates.
type ActionFunc func(ctx context.Context, client *Client, frame gateway.Frame) error

// Run calls f.
func (f ActionFunc) Run(ctx context.Context, client *Client, frame gateway.Frame) error {
	return f(ctx, client, frame)
}

// Reconciler is the check, build, cache template for upsert-style tags.
//
// Check runs first. A hit is patched in place with Data and emitted as
// Updated with a pre-patch clone. Only a miss reaches Build; a built entity
// goes through Cache and is emitted as Created. Empty event names suppress
// emission. When Created equals Updated the created emission carries a nil
// previous argument so listeners see one shape.
type Reconciler[T gateway.Model[T]] struct {
	// Before runs ahead of Check on every frame.
	Before func(client *Client, frame gateway.Frame)
	// Check locates the cached entity.
	Check func(client *Client, frame gateway.Frame) (T, bool)
	// Build constructs a new entity when Check missed. Nil means no build.
	Build func(client *Client, frame gateway.Frame) (T, bool)
	// Cache places a built entity into its stores.
	Cache func(client *Client, frame gateway.Frame, entity T)
	// After runs on the resulting entity of either path before emission.
	After func(client *Client, frame gateway.Frame, entity T)
	// Data selects the patch payload. Nil means the frame payload.
	Data func(frame gateway.Frame) gateway.Payload

	Updated gateway.EventName
	Created gateway.EventName
}

// Run executes the template for one frame.
func (r Reconciler[T]) Run(ctx context.Context, client *Client, frame gateway.Frame) error {
	if r.Before != nil {
		r.Before(client, frame)
	}

	if existing, ok := r.Check(client, frame); ok {
		previous := existing.Clone()
		existing.Patch(r.data(frame))
		if r.After != nil {
			r.After(client, frame, existing)
		}
		if r.Updated == "" {
			return nil
		}
		return client.emit(ctx, frame, r.Updated, existing, previous)
	}

	if r.Build == nil {
		return nil
	}
	built, ok := r.Build(client, frame)
	if !ok {
		return nil
	}
	if r.Cache != nil {
		r.Cache(client, frame, built)
	}
	if r.After != nil {
		r.After(client, frame, built)
	}

	switch {
	case r.Created == "":
		return nil
	case r.Created == r.Updated:
		var previous T
		return client.emit(ctx, frame, r.Created, built, previous)
	default:
		return client.emit(ctx, frame, r.Created, built)
	}
}

func (r Reconciler[T]) data(frame gateway.Frame) gateway.Payload {
	if r.Data == nil {
		return frame.Payload
	}

	return r.Data(frame)
}

// Remover is the deletion template: Check locates the entity, Evict removes
// it from every owning store, then the entity is marked deleted and emitted.
type Remover[T gateway.Model[T]] struct {
	// Before runs ahead of Check on every frame.
	Before func(client *Client, frame gateway.Frame)
	// Check locates the cached entity.
	Check func(client *Client, frame gateway.Frame) (T, bool)
	// Evict removes the entity from its stores.
	Evict func(client *Client, frame gateway.Frame, entity T)

	Deleted gateway.EventName
}

// Run executes the template for one frame.
func (r Remover[T]) Run(ctx context.Context, client *Client, frame gateway.Frame) error {
	if r.Before != nil {
		r.Before(client, frame)
	}

	entity, ok := r.Check(client, frame)
	if !ok {
		return nil
	}
	if r.Evict != nil {
		r.Evict(client, frame, entity)
	}
	entity.MarkDeleted()

	if r.Deleted == "" {
		return nil
	}

	return client.emit(ctx, frame, r.Deleted, entity)
}
