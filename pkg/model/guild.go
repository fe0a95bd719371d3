package model

import (
	"time"

	"ex-otogi-gateway/pkg/gateway"
	"ex-otogi-gateway/pkg/store"
)

// Guild is a community server and the owner of its per-guild stores.
//
// Channels are shared with the client channel store; the guild store holds
// the same instances. Users are not owned: members reference them by id.
type Guild struct {
	base

	Name            string
	Icon            string
	OwnerID         string
	AFKChannelID    string
	SystemChannelID string
	Unavailable     bool
	Large           bool
	MemberCount     int
	PremiumTier     int
	ShardID         int
	JoinedAt        time.Time
	Features        []string

	Roles       *store.Store[*Role]
	Members     *store.Store[*Member]
	Channels    *store.Store[Channel]
	Emojis      *store.Store[*Emoji]
	Presences   *store.Store[*Presence]
	VoiceStates *store.Store[*VoiceState]
	Invites     *store.Store[*Invite]
	Bans        *store.Store[*Ban]
}

// NewGuild returns a guild factory whose owned stores follow caching.
func NewGuild(caching Caching) func(raw gateway.Payload) *Guild {
	return func(raw gateway.Payload) *Guild {
		id := raw.String("id")
		guild := &Guild{
			base: base{id: id},
			Roles: store.New(NewRole(id),
				caching.StoreOptions(CollectionRoles, 0)...),
			Members: store.New(NewMember(id),
				append(caching.StoreOptions(CollectionMembers, caching.MemberLimit), store.WithKey(MemberKey))...),
			Channels: store.New[Channel](nil,
				caching.StoreOptions(CollectionChannels, 0)...),
			Emojis: store.New(NewEmoji(id),
				caching.StoreOptions(CollectionEmojis, 0)...),
			Presences: store.New(NewPresence(id),
				append(caching.StoreOptions(CollectionPresences, caching.PresenceLimit), store.WithKey(MemberKey))...),
			VoiceStates: store.New(NewVoiceState(id),
				append(caching.StoreOptions(CollectionVoiceStates, 0), store.WithKey(VoiceStateKey))...),
			Invites: store.New(NewInvite,
				append(caching.StoreOptions(CollectionInvites, 0), store.WithKey(InviteKey))...),
			Bans: store.New(NewBan(id),
				append(caching.StoreOptions(CollectionBans, 0), store.WithKey(MemberKey))...),
		}

		return guild.Patch(raw)
	}
}

// Patch applies present keys. Nested roles, emojis, members, presences and
// voice states are upserted into the owned stores; channels are placed by
// the client because they are shared with its channel store.
func (g *Guild) Patch(raw gateway.Payload) *Guild {
	patchString(raw, "name", &g.Name)
	patchString(raw, "icon", &g.Icon)
	patchString(raw, "owner_id", &g.OwnerID)
	patchString(raw, "afk_channel_id", &g.AFKChannelID)
	patchString(raw, "system_channel_id", &g.SystemChannelID)
	patchBool(raw, "unavailable", &g.Unavailable)
	patchBool(raw, "large", &g.Large)
	patchInt(raw, "member_count", &g.MemberCount)
	patchInt(raw, "premium_tier", &g.PremiumTier)
	patchTime(raw, "joined_at", &g.JoinedAt)
	patchStrings(raw, "features", &g.Features)

	if g.Roles != nil {
		for _, role := range raw.Objects("roles") {
			g.Roles.Ensure(role)
		}
	}
	if g.Emojis != nil {
		for _, emoji := range raw.Objects("emojis") {
			g.Emojis.Ensure(emoji)
		}
	}
	if g.Members != nil {
		for _, member := range raw.Objects("members") {
			g.Members.Ensure(member)
		}
	}
	if g.Presences != nil {
		for _, presence := range raw.Objects("presences") {
			g.Presences.Ensure(presence)
		}
	}
	if g.VoiceStates != nil {
		for _, state := range raw.Objects("voice_states") {
			g.VoiceStates.Ensure(state)
		}
	}

	return g
}

// Clone returns a shallow snapshot. Owned stores are shared.
func (g *Guild) Clone() *Guild {
	cloned := *g
	cloned.Features = cloneStrings(g.Features)

	return &cloned
}

// Available reports whether the guild is reachable.
func (g *Guild) Available() bool {
	return !g.Unavailable
}

// Owner returns the owning member when cached.
func (g *Guild) Owner() (*Member, bool) {
	if g.OwnerID == "" {
		return nil, false
	}

	return g.Members.Get(g.OwnerID)
}
