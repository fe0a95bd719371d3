package client

import (
	"context"

	"ex-otogi-gateway/pkg/gateway"
	"ex-otogi-gateway/pkg/model"
)

func checkChannel(c *Client, frame gateway.Frame) (model.Channel, bool) {
	return c.channels.Get(frame.Payload.String("id"))
}

func channelCreateAction() Action {
	return Reconciler[model.Channel]{
		Check: checkChannel,
		Build: func(c *Client, frame gateway.Frame) (model.Channel, bool) {
			if frame.Payload.String("guild_id") != "" {
				if _, found := c.guild(frame, "guild_id"); !found {
					return nil, false
				}
			}
			return c.buildChannel(frame.Payload), true
		},
		Cache: func(c *Client, _ gateway.Frame, channel model.Channel) {
			c.cacheChannel(channel)
		},
		Created: gateway.EventChannelCreate,
	}
}

// handleChannelUpdate patches the cached channel, or rebuilds it as the new
// kind when the channel type changed.
func handleChannelUpdate(ctx context.Context, c *Client, frame gateway.Frame) error {
	existing, found := checkChannel(c, frame)
	if !found {
		return nil
	}

	raw := frame.Payload
	if raw.Has("type") && model.ChannelType(raw.Int("type")) != existing.Type() {
		replacement := c.buildChannel(raw)
		c.evictChannel(existing)
		c.cacheChannel(replacement)
		return c.emit(ctx, frame, gateway.EventChannelUpdate, replacement, existing)
	}

	previous := existing.Clone()
	existing.Patch(raw)

	return c.emit(ctx, frame, gateway.EventChannelUpdate, existing, previous)
}

func channelDeleteAction() Action {
	return Remover[model.Channel]{
		Check: checkChannel,
		Evict: func(c *Client, _ gateway.Frame, channel model.Channel) {
			c.evictChannel(channel)
		},
		Deleted: gateway.EventChannelDelete,
	}
}

func handleChannelPinsUpdate(ctx context.Context, c *Client, frame gateway.Frame) error {
	channel, found := c.channels.Get(frame.Payload.String("channel_id"))
	if !found {
		return nil
	}

	pinnedAt, _ := frame.Payload.Time("last_pin_timestamp")
	if text, ok := channel.(model.TextBased); ok {
		text.SetLastPinAt(pinnedAt)
	}

	return c.emit(ctx, frame, gateway.EventChannelPinsUpdate, channel, pinnedAt)
}

func handleTypingStart(ctx context.Context, c *Client, frame gateway.Frame) error {
	channel, found := c.channels.Get(frame.Payload.String("channel_id"))
	if !found {
		return nil
	}

	if guild, ok := c.guild(frame, "guild_id"); ok {
		if member, hasMember := frame.Payload.Object("member"); hasMember {
			c.ensureUser(member, "user")
			guild.Members.Ensure(member)
		}
	}

	return c.emit(ctx, frame, gateway.EventTypingStart, channel, frame.Payload.String("user_id"))
}

func handleWebhooksUpdate(ctx context.Context, c *Client, frame gateway.Frame) error {
	channel, found := c.channels.Get(frame.Payload.String("channel_id"))
	if !found {
		return nil
	}

	return c.emit(ctx, frame, gateway.EventWebhooksUpdate, channel)
}
