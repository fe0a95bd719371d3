package client

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"ex-otogi-gateway/pkg/gateway"
)

// Router maps dispatch tags to exactly one action each.
type Router struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		actions: make(map[string]Action),
	}
}

// Register binds action to tag.
func (r *Router) Register(tag string, action Action) error {
	if tag == "" {
		return fmt.Errorf("register action: empty tag")
	}
	if action == nil {
		return fmt.Errorf("register action %s: nil action", tag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[tag]; exists {
		return fmt.Errorf("register action %s: %w", tag, gateway.ErrActionAlreadyRegistered)
	}
	r.actions[tag] = action

	return nil
}

// Unregister removes the action bound to tag and reports whether one existed.
func (r *Router) Unregister(tag string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[tag]; !exists {
		return false
	}
	delete(r.actions, tag)

	return true
}

// replace swaps the action for tag, removing previousTag when it differs.
func (r *Router) replace(previousTag string, tag string, action Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tag != previousTag {
		if _, exists := r.actions[tag]; exists {
			return fmt.Errorf("replace action %s: %w", tag, gateway.ErrActionAlreadyRegistered)
		}
		delete(r.actions, previousTag)
	}
	r.actions[tag] = action

	return nil
}

// Action returns the action bound to tag.
func (r *Router) Action(tag string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	action, exists := r.actions[tag]

	return action, exists
}

// Tags returns every bound tag in sorted order.
func (r *Router) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.actions))
}

// Route runs the action bound to frame.Tag.
//
// Unknown tags are ignored. Action errors and panics are emitted as
// gateway.EventError and never returned; only context cancellation is.
func (r *Router) Route(ctx context.Context, client *Client, frame gateway.Frame) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("route %s: %w", frame.Tag, err)
	}

	started := time.Now()
	action, found := r.Action(frame.Tag)
	if !found {
		client.logger.DebugContext(ctx, "gateway unknown dispatch",
			"tag", frame.Tag,
			"shard_id", frame.ShardID,
		)
		client.metrics.observeFrame(frame.Tag, outcomeUnknown, time.Since(started))
		return nil
	}

	spanCtx, span := startFrameSpan(ctx, client.tracer, frame)
	scope := fmt.Sprintf("action %s", frame.Tag)
	err := runGuarded(spanCtx, client.logger, scope, func() error {
		return action.Run(spanCtx, client, frame)
	})
	if err == nil {
		endFrameSpan(span, outcomeHandled, nil)
		client.metrics.observeFrame(frame.Tag, outcomeHandled, time.Since(started))
		return nil
	}

	endFrameSpan(span, outcomeFault, err)
	client.metrics.observeFrame(frame.Tag, outcomeFault, time.Since(started))
	client.reportActionFault(ctx, frame, err)

	return nil
}
