package gateway

import (
	"context"
	"fmt"
)

// Frame is one inbound dispatch delivered by a shard.
type Frame struct {
	// Tag is the dispatch event name, for example GUILD_MEMBER_ADD.
	Tag string
	// ShardID identifies the shard connection that delivered the frame.
	ShardID int
	// Sequence is the transport sequence number when known.
	Sequence int64
	// Payload is the raw dispatch data object.
	Payload Payload
}

// Validate checks that the frame can be routed.
func (f Frame) Validate() error {
	if f.Tag == "" {
		return fmt.Errorf("%w: missing tag", ErrInvalidFrame)
	}
	if !f.Payload.Valid() {
		return fmt.Errorf("%w: %s payload is not valid json", ErrInvalidFrame, f.Tag)
	}

	return nil
}

// FrameHandler consumes one inbound frame.
type FrameHandler func(ctx context.Context, frame Frame) error

// FrameSource streams frames into the dispatch loop.
type FrameSource interface {
	// Consume runs the frame loop until context cancellation, source exhaustion, or fatal error.
	Consume(ctx context.Context, handler FrameHandler) error
}

// ChannelSource reads frames from a channel.
type ChannelSource struct {
	// Frames is the owned input stream consumed by the source loop.
	Frames <-chan Frame
}

// Consume forwards channel frames until closure or cancellation.
func (s ChannelSource) Consume(ctx context.Context, handler FrameHandler) error {
	if handler == nil {
		return fmt.Errorf("channel source: nil handler")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-s.Frames:
			if !ok {
				return nil
			}
			if err := handler(ctx, frame); err != nil {
				return fmt.Errorf("channel source handle frame %s: %w", frame.Tag, err)
			}
		}
	}
}
