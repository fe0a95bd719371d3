package client

import (
	"context"

	"ex-otogi-gateway/pkg/gateway"
	"ex-otogi-gateway/pkg/model"
)

func presenceUpdateAction() Action {
	return Reconciler[*model.Presence]{
		Before: func(c *Client, frame gateway.Frame) {
			if frame.Payload.Has("user.username") {
				c.ensureUser(frame.Payload, "user")
			}
		},
		Check: func(c *Client, frame gateway.Frame) (*model.Presence, bool) {
			guild, found := c.guild(frame, "guild_id")
			if !found {
				return nil, false
			}
			return guild.Presences.Get(model.MemberKey(frame.Payload))
		},
		Build: func(c *Client, frame gateway.Frame) (*model.Presence, bool) {
			guild, found := c.guild(frame, "guild_id")
			if !found {
				return nil, false
			}
			return model.NewPresence(guild.ID())(frame.Payload), true
		},
		Cache: func(c *Client, frame gateway.Frame, presence *model.Presence) {
			if guild, found := c.guild(frame, "guild_id"); found && guild.Presences.CacheEnabled() {
				guild.Presences.Set(presence.ID(), presence)
			}
		},
		Updated: gateway.EventPresenceUpdate,
		Created: gateway.EventPresenceUpdate,
	}
}

// handleUserUpdate replaces the session user with a new instance.
func handleUserUpdate(ctx context.Context, c *Client, frame gateway.Frame) error {
	id := frame.Payload.String("id")
	if id == "" {
		return nil
	}
	previous, cached := c.users.Get(id)
	if !cached {
		if self, ok := c.Self(); ok && self.ID() == id {
			previous, cached = self, true
		}
	}

	user := model.NewUser(frame.Payload)
	if c.caching.Enabled || cached {
		c.users.Set(id, user)
	}
	if c.isSelf(id) {
		c.setSelf(user)
	}
	if !cached {
		return nil
	}

	return c.emit(ctx, frame, gateway.EventUserUpdate, user, previous)
}

// voiceStateUpdateAction tracks voice connections. A state without a channel
// means the user left voice; it is evicted and marked deleted.
func voiceStateUpdateAction() Action {
	guildOf := func(c *Client, frame gateway.Frame) (*model.Guild, bool) {
		return c.guild(frame, "guild_id")
	}

	return Reconciler[*model.VoiceState]{
		Before: func(c *Client, frame gateway.Frame) {
			guild, found := guildOf(c, frame)
			if !found {
				return
			}
			if member, hasMember := frame.Payload.Object("member"); hasMember {
				c.ensureUser(member, "user")
				guild.Members.Ensure(member)
			}
		},
		Check: func(c *Client, frame gateway.Frame) (*model.VoiceState, bool) {
			guild, found := guildOf(c, frame)
			if !found {
				return nil, false
			}
			return guild.VoiceStates.Get(model.VoiceStateKey(frame.Payload))
		},
		Build: func(c *Client, frame gateway.Frame) (*model.VoiceState, bool) {
			guild, found := guildOf(c, frame)
			if !found {
				return nil, false
			}
			return model.NewVoiceState(guild.ID())(frame.Payload), true
		},
		Cache: func(c *Client, frame gateway.Frame, state *model.VoiceState) {
			if guild, found := guildOf(c, frame); found && guild.VoiceStates.CacheEnabled() {
				guild.VoiceStates.Set(state.ID(), state)
			}
		},
		After: func(c *Client, frame gateway.Frame, state *model.VoiceState) {
			if state.Connected() {
				return
			}
			if guild, found := guildOf(c, frame); found && guild.VoiceStates.Delete(state.ID()) {
				state.MarkDeleted()
			}
		},
		Updated: gateway.EventVoiceStateUpdate,
		Created: gateway.EventVoiceStateUpdate,
	}
}

func handleVoiceServerUpdate(ctx context.Context, c *Client, frame gateway.Frame) error {
	return c.emit(ctx, frame, gateway.EventVoiceServerUpdate, frame.Payload)
}

func inviteCreateAction() Action {
	return Reconciler[*model.Invite]{
		Before: func(c *Client, frame gateway.Frame) {
			c.ensureUser(frame.Payload, "inviter")
		},
		Check: func(c *Client, frame gateway.Frame) (*model.Invite, bool) {
			guild, found := c.guild(frame, "guild_id")
			if !found {
				return nil, false
			}
			return guild.Invites.Get(model.InviteKey(frame.Payload))
		},
		Build: func(c *Client, frame gateway.Frame) (*model.Invite, bool) {
			if _, found := c.guild(frame, "guild_id"); !found {
				return nil, false
			}
			return model.NewInvite(frame.Payload), true
		},
		Cache: func(c *Client, frame gateway.Frame, invite *model.Invite) {
			if guild, found := c.guild(frame, "guild_id"); found && guild.Invites.CacheEnabled() {
				guild.Invites.Set(invite.ID(), invite)
			}
		},
		Created: gateway.EventInviteCreate,
	}
}

func inviteDeleteAction() Action {
	return Remover[*model.Invite]{
		Check: func(c *Client, frame gateway.Frame) (*model.Invite, bool) {
			guild, found := c.guild(frame, "guild_id")
			if !found {
				return nil, false
			}
			return guild.Invites.Get(model.InviteKey(frame.Payload))
		},
		Evict: func(c *Client, frame gateway.Frame, invite *model.Invite) {
			if guild, found := c.guild(frame, "guild_id"); found {
				guild.Invites.Delete(invite.ID())
			}
		},
		Deleted: gateway.EventInviteDelete,
	}
}
