package model

import (
	"slices"
	"time"

	"ex-otogi-gateway/pkg/gateway"
)

// Member is a user's membership in one guild. The user itself lives in the
// client user store and is referenced by UserID.
type Member struct {
	base

	GuildID      string
	Nick         string
	Roles        []string
	JoinedAt     time.Time
	PremiumSince time.Time
	Deaf         bool
	Mute         bool
	Pending      bool
}

// MemberKey derives member ids from the nested user object.
func MemberKey(raw gateway.Payload) string {
	return raw.String("user.id")
}

// NewMember returns a member factory bound to one guild.
func NewMember(guildID string) func(raw gateway.Payload) *Member {
	return func(raw gateway.Payload) *Member {
		member := &Member{
			base:    base{id: MemberKey(raw)},
			GuildID: guildID,
		}

		return member.Patch(raw)
	}
}

// UserID returns the referenced user id.
func (m *Member) UserID() string {
	return m.id
}

// Patch applies present keys.
func (m *Member) Patch(raw gateway.Payload) *Member {
	patchString(raw, "nick", &m.Nick)
	patchStrings(raw, "roles", &m.Roles)
	patchTime(raw, "joined_at", &m.JoinedAt)
	patchTime(raw, "premium_since", &m.PremiumSince)
	patchBool(raw, "deaf", &m.Deaf)
	patchBool(raw, "mute", &m.Mute)
	patchBool(raw, "pending", &m.Pending)

	return m
}

// Clone returns a shallow snapshot.
func (m *Member) Clone() *Member {
	cloned := *m

	return &cloned
}

// HasRole reports whether the member holds roleID.
func (m *Member) HasRole(roleID string) bool {
	return slices.Contains(m.Roles, roleID)
}
