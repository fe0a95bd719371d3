package client

import (
	"context"
	"fmt"

	"ex-otogi-gateway/pkg/gateway"
	"ex-otogi-gateway/pkg/model"
)

// handleReady records the session user and placeholder guilds.
func handleReady(ctx context.Context, c *Client, frame gateway.Frame) error {
	self, ok := c.ensureUser(frame.Payload, "user")
	if !ok {
		return fmt.Errorf("ready: missing session user")
	}
	c.setSelf(self)
	if !c.users.Has(self.ID()) {
		c.users.Set(self.ID(), self)
	}

	for _, placeholder := range frame.Payload.Objects("guilds") {
		guild := c.guilds.Ensure(placeholder)
		guild.Unavailable = true
		guild.ShardID = frame.ShardID
	}

	return c.emit(ctx, frame, gateway.EventReady, self)
}

// handleGuildCreate caches a new guild or brings back an unavailable one.
func handleGuildCreate(ctx context.Context, c *Client, frame gateway.Frame) error {
	raw := frame.Payload
	guild, exists := c.guilds.Get(raw.String("id"))

	if raw.Bool("unavailable") {
		if !exists {
			guild = c.guilds.Ensure(raw)
		}
		guild.Unavailable = true
		guild.ShardID = frame.ShardID
		return c.emit(ctx, frame, gateway.EventGuildUnavailable, guild)
	}

	if exists {
		wasUnavailable := guild.Unavailable
		guild.Patch(raw)
		guild.Unavailable = false
		guild.ShardID = frame.ShardID
		c.placeGuildContents(guild, raw)
		if !wasUnavailable {
			return nil
		}
		return c.emit(ctx, frame, gateway.EventGuildAvailable, guild)
	}

	guild = c.guilds.Ensure(raw)
	guild.ShardID = frame.ShardID
	c.placeGuildContents(guild, raw)

	return c.emit(ctx, frame, gateway.EventGuildCreate, guild)
}

// placeGuildContents upserts the guild's channels and the users its members
// and presences reference.
func (c *Client) placeGuildContents(guild *model.Guild, raw gateway.Payload) {
	for _, channelRaw := range raw.Objects("channels") {
		scoped, err := channelRaw.WithString("guild_id", guild.ID())
		if err != nil {
			scoped = channelRaw
		}
		channel := c.channels.Ensure(scoped)
		if c.caching.Enabled {
			guild.Channels.Set(channel.ID(), channel)
		}
	}
	for _, member := range raw.Objects("members") {
		c.ensureUser(member, "user")
	}
	for _, presence := range raw.Objects("presences") {
		if presence.Has("user.username") {
			c.ensureUser(presence, "user")
		}
	}
}

func guildUpdateAction() Action {
	return Reconciler[*model.Guild]{
		Check: func(c *Client, frame gateway.Frame) (*model.Guild, bool) {
			return c.guild(frame, "id")
		},
		Updated: gateway.EventGuildUpdate,
	}
}

// handleGuildDelete marks an outage or removes a guild the session left.
func handleGuildDelete(ctx context.Context, c *Client, frame gateway.Frame) error {
	guild, found := c.guild(frame, "id")
	if !found {
		return nil
	}

	if frame.Payload.Bool("unavailable") {
		guild.Unavailable = true
		return c.emit(ctx, frame, gateway.EventGuildUnavailable, guild)
	}

	guild.Channels.Each(func(id string, channel model.Channel) bool {
		c.channels.Delete(id)
		channel.MarkDeleted()
		return true
	})
	guild.Channels.Clear()
	c.guilds.Delete(guild.ID())
	guild.MarkDeleted()

	return c.emit(ctx, frame, gateway.EventGuildDelete, guild)
}

func handleGuildIntegrationsUpdate(ctx context.Context, c *Client, frame gateway.Frame) error {
	guild, found := c.guild(frame, "guild_id")
	if !found {
		return nil
	}

	return c.emit(ctx, frame, gateway.EventGuildIntegrationsUpdate, guild)
}

func handleGuildBanAdd(ctx context.Context, c *Client, frame gateway.Frame) error {
	guild, found := c.guild(frame, "guild_id")
	if !found {
		return nil
	}
	user, ok := c.ensureUser(frame.Payload, "user")
	if !ok {
		return nil
	}
	guild.Bans.Ensure(frame.Payload)

	return c.emit(ctx, frame, gateway.EventGuildBanAdd, guild, user)
}

func handleGuildBanRemove(ctx context.Context, c *Client, frame gateway.Frame) error {
	guild, found := c.guild(frame, "guild_id")
	if !found {
		return nil
	}
	user, ok := c.ensureUser(frame.Payload, "user")
	if !ok {
		return nil
	}
	if ban, banned := guild.Bans.Get(user.ID()); banned {
		guild.Bans.Delete(user.ID())
		ban.MarkDeleted()
	}

	return c.emit(ctx, frame, gateway.EventGuildBanRemove, guild, user)
}

// handleGuildEmojisUpdate diffs the full emoji list against the cache.
func handleGuildEmojisUpdate(ctx context.Context, c *Client, frame gateway.Frame) error {
	guild, found := c.guild(frame, "guild_id")
	if !found {
		return nil
	}

	seen := make(map[string]struct{})
	for _, raw := range frame.Payload.Objects("emojis") {
		id := raw.String("id")
		seen[id] = struct{}{}

		existing, cached := guild.Emojis.Get(id)
		if !cached {
			emoji := model.NewEmoji(guild.ID())(raw)
			if c.caching.Enabled {
				guild.Emojis.Set(id, emoji)
			}
			if err := c.emit(ctx, frame, gateway.EventEmojiCreate, emoji); err != nil {
				return err
			}
			continue
		}
		if existing.Equal(raw) {
			continue
		}
		previous := existing.Clone()
		existing.Patch(raw)
		if err := c.emit(ctx, frame, gateway.EventEmojiUpdate, existing, previous); err != nil {
			return err
		}
	}

	for _, emoji := range guild.Emojis.Values() {
		if _, kept := seen[emoji.ID()]; kept {
			continue
		}
		guild.Emojis.Delete(emoji.ID())
		emoji.MarkDeleted()
		if err := c.emit(ctx, frame, gateway.EventEmojiDelete, emoji); err != nil {
			return err
		}
	}

	return nil
}
