// Package model defines the cacheable gateway entities.
//
// Every entity is patched in place from partial payloads: keys absent from a
// payload leave fields untouched, keys present with null reset them. Entities
// reference each other by id only; the client resolves ids through its stores.
package model

import (
	"strconv"
	"time"

	"ex-otogi-gateway/pkg/gateway"
	"ex-otogi-gateway/pkg/store"
)

// Store collection names reported to eviction callbacks.
const (
	CollectionMembers     = "members"
	CollectionPresences   = "presences"
	CollectionMessages    = "messages"
	CollectionRoles       = "roles"
	CollectionEmojis      = "emojis"
	CollectionVoiceStates = "voice_states"
	CollectionInvites     = "invites"
	CollectionBans        = "bans"
	CollectionReactions   = "reactions"
	CollectionChannels    = "guild_channels"
)

type base struct {
	id      string
	deleted bool
}

// ID returns the platform identity.
func (b *base) ID() string {
	return b.id
}

// Deleted reports whether the entity was removed from its stores.
func (b *base) Deleted() bool {
	return b.deleted
}

// MarkDeleted flags the entity as removed.
func (b *base) MarkDeleted() {
	b.deleted = true
}

// Caching configures stores owned by entities, such as guild members or
// channel messages.
type Caching struct {
	// Enabled gates insertion of newly built entities.
	Enabled bool
	// MemberLimit bounds each guild member store.
	MemberLimit int
	// PresenceLimit bounds each guild presence store.
	PresenceLimit int
	// MessageLimit bounds each channel message store.
	MessageLimit int
	// OnEvict observes capacity evictions per collection.
	OnEvict func(collection string, id string)
}

// DefaultCaching enables caching with unbounded member and presence stores
// and a bounded per-channel message store.
func DefaultCaching() Caching {
	return Caching{
		Enabled:      true,
		MessageLimit: 200,
	}
}

// StoreOptions returns the store options for one owned collection.
func (c Caching) StoreOptions(collection string, limit int) []store.Option {
	options := []store.Option{
		store.WithCaching(c.Enabled),
		store.WithLimit(limit),
	}
	if c.OnEvict != nil {
		onEvict := c.OnEvict
		options = append(options, store.WithOnEvict(func(id string) {
			onEvict(collection, id)
		}))
	}

	return options
}

func patchString(raw gateway.Payload, key string, target *string) {
	if raw.Has(key) {
		*target = raw.String(key)
	}
}

func patchBool(raw gateway.Payload, key string, target *bool) {
	if raw.Has(key) {
		*target = raw.Bool(key)
	}
}

func patchInt(raw gateway.Payload, key string, target *int) {
	if raw.Has(key) {
		*target = int(raw.Int(key))
	}
}

func patchStrings(raw gateway.Payload, key string, target *[]string) {
	if raw.Has(key) {
		*target = raw.Strings(key)
	}
}

func patchTime(raw gateway.Payload, key string, target *time.Time) {
	if !raw.Has(key) {
		return
	}
	parsed, ok := raw.Time(key)
	if !ok {
		*target = time.Time{}
		return
	}
	*target = parsed
}

// patchPermissions reads a permission bit set serialized as a decimal string.
func patchPermissions(raw gateway.Payload, key string, target *uint64) {
	if !raw.Has(key) {
		return
	}
	parsed, err := strconv.ParseUint(raw.String(key), 10, 64)
	if err != nil {
		*target = 0
		return
	}
	*target = parsed
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	return append([]string(nil), values...)
}
