package model

import "ex-otogi-gateway/pkg/gateway"

// Ban records a banned user in one guild.
type Ban struct {
	base

	GuildID string
	Reason  string
}

// NewBan returns a ban factory bound to one guild.
func NewBan(guildID string) func(raw gateway.Payload) *Ban {
	return func(raw gateway.Payload) *Ban {
		ban := &Ban{
			base:    base{id: MemberKey(raw)},
			GuildID: guildID,
		}

		return ban.Patch(raw)
	}
}

// UserID returns the banned user id.
func (b *Ban) UserID() string {
	return b.id
}

// Patch applies present keys.
func (b *Ban) Patch(raw gateway.Payload) *Ban {
	patchString(raw, "reason", &b.Reason)

	return b
}

// Clone returns a shallow snapshot.
func (b *Ban) Clone() *Ban {
	cloned := *b

	return &cloned
}
