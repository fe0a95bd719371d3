package model

import (
	"time"

	"ex-otogi-gateway/pkg/gateway"
)

// Invite is a guild invite code.
type Invite struct {
	base

	GuildID   string
	ChannelID string
	InviterID string
	MaxAge    int
	MaxUses   int
	Uses      int
	Temporary bool
	CreatedAt time.Time
}

// InviteKey derives invite ids from the invite code.
func InviteKey(raw gateway.Payload) string {
	return raw.String("code")
}

// NewInvite builds an invite from a raw invite object.
func NewInvite(raw gateway.Payload) *Invite {
	invite := &Invite{base: base{id: InviteKey(raw)}}

	return invite.Patch(raw)
}

// Code returns the invite code.
func (i *Invite) Code() string {
	return i.id
}

// Patch applies present keys.
func (i *Invite) Patch(raw gateway.Payload) *Invite {
	patchString(raw, "guild_id", &i.GuildID)
	patchString(raw, "channel_id", &i.ChannelID)
	if raw.Has("inviter") {
		i.InviterID = raw.String("inviter.id")
	}
	patchInt(raw, "max_age", &i.MaxAge)
	patchInt(raw, "max_uses", &i.MaxUses)
	patchInt(raw, "uses", &i.Uses)
	patchBool(raw, "temporary", &i.Temporary)
	patchTime(raw, "created_at", &i.CreatedAt)

	return i
}

// Clone returns a shallow snapshot.
func (i *Invite) Clone() *Invite {
	cloned := *i

	return &cloned
}

// ExpiresAt returns when the invite expires, or zero when it never does.
func (i *Invite) ExpiresAt() time.Time {
	if i.MaxAge <= 0 || i.CreatedAt.IsZero() {
		return time.Time{}
	}

	return i.CreatedAt.Add(time.Duration(i.MaxAge) * time.Second)
}
