package model

import (
	"slices"

	"ex-otogi-gateway/pkg/gateway"
)

// Emoji is a custom guild emoji.
type Emoji struct {
	base

	GuildID       string
	Name          string
	Animated      bool
	Managed       bool
	RequireColons bool
	Available     bool
	Roles         []string
}

// NewEmoji returns an emoji factory bound to one guild.
func NewEmoji(guildID string) func(raw gateway.Payload) *Emoji {
	return func(raw gateway.Payload) *Emoji {
		emoji := &Emoji{
			base:      base{id: raw.String("id")},
			GuildID:   guildID,
			Available: true,
		}

		return emoji.Patch(raw)
	}
}

// Patch applies present keys.
func (e *Emoji) Patch(raw gateway.Payload) *Emoji {
	patchString(raw, "name", &e.Name)
	patchBool(raw, "animated", &e.Animated)
	patchBool(raw, "managed", &e.Managed)
	patchBool(raw, "require_colons", &e.RequireColons)
	patchBool(raw, "available", &e.Available)
	patchStrings(raw, "roles", &e.Roles)

	return e
}

// Clone returns a shallow snapshot.
func (e *Emoji) Clone() *Emoji {
	cloned := *e

	return &cloned
}

// Equal reports whether raw describes the same emoji state. Keys absent from
// raw compare as their current values.
func (e *Emoji) Equal(raw gateway.Payload) bool {
	candidate := e.Clone().Patch(raw)
	if raw.String("id") != "" && raw.String("id") != e.id {
		return false
	}

	return candidate.Name == e.Name &&
		candidate.Animated == e.Animated &&
		candidate.Managed == e.Managed &&
		candidate.RequireColons == e.RequireColons &&
		candidate.Available == e.Available &&
		slices.Equal(candidate.Roles, e.Roles)
}

// Identifier returns the reaction token for this emoji.
func (e *Emoji) Identifier() string {
	return e.Name + ":" + e.id
}
