package gateway

import "errors"

var (
	// ErrInvalidFrame indicates that a dispatch frame does not carry a tag or payload.
	ErrInvalidFrame = errors.New("gateway: invalid frame")
	// ErrActionAlreadyRegistered indicates that a dispatch tag already has an action.
	ErrActionAlreadyRegistered = errors.New("gateway: action already registered")
	// ErrPieceAlreadyLoaded indicates duplicate piece loading by name.
	ErrPieceAlreadyLoaded = errors.New("gateway: piece already loaded")
	// ErrPieceNotFound indicates a piece lookup miss.
	ErrPieceNotFound = errors.New("gateway: piece not found")
	// ErrChannelKindRegistered indicates duplicate channel constructor registration.
	ErrChannelKindRegistered = errors.New("gateway: channel kind already registered")
	// ErrSubscriptionClosed indicates that a subscription is no longer active.
	ErrSubscriptionClosed = errors.New("gateway: subscription closed")
	// ErrEmitterClosed indicates emission or subscription after emitter shutdown.
	ErrEmitterClosed = errors.New("gateway: emitter closed")
	// ErrShardNotFound indicates that no shard is attached for a shard id.
	ErrShardNotFound = errors.New("gateway: shard not found")
	// ErrUnknownGuild indicates that a guild is not present in the cache.
	ErrUnknownGuild = errors.New("gateway: unknown guild")
	// ErrMemberRequestTimeout indicates that a member chunk sequence stalled.
	ErrMemberRequestTimeout = errors.New("gateway: member request timed out")
)
