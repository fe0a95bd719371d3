package gateway

// Entity is any cacheable object with a stable platform identity.
type Entity interface {
	// ID returns the immutable identity.
	ID() string
	// Deleted reports whether the entity was removed from its owning stores.
	Deleted() bool
	// MarkDeleted flags the entity as removed so held references can observe it.
	MarkDeleted()
}

// Model is an Entity that supports partial in-place updates and snapshots.
//
// T is the concrete pointer type, so Patch and Clone stay typed.
type Model[T any] interface {
	Entity
	// Patch applies keys present in raw and returns the receiver.
	Patch(raw Payload) T
	// Clone returns a shallow snapshot used as previous state before a patch.
	Clone() T
}
