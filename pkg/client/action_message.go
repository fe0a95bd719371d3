package client

import (
	"context"

	"ex-otogi-gateway/pkg/gateway"
	"ex-otogi-gateway/pkg/model"
)

func checkMessage(c *Client, frame gateway.Frame) (*model.Message, bool) {
	return c.message(frame.Payload.String("channel_id"), frame.Payload.String("id"))
}

// upsertAuthor caches the message author and, in guilds, the author's member.
func upsertAuthor(c *Client, frame gateway.Frame) {
	raw := frame.Payload
	if raw.Has("webhook_id") {
		return
	}
	c.ensureUser(raw, "author")

	guild, found := c.guild(frame, "guild_id")
	if !found {
		return
	}
	member, hasMember := raw.Object("member")
	author, hasAuthor := raw.Object("author")
	if !hasMember || !hasAuthor {
		return
	}
	merged, err := member.With("user", author)
	if err != nil {
		return
	}
	guild.Members.Ensure(merged)
}

func messageCreateAction() Action {
	return Reconciler[*model.Message]{
		Before: upsertAuthor,
		Check:  checkMessage,
		Build: func(c *Client, frame gateway.Frame) (*model.Message, bool) {
			if _, found := c.textChannel(frame.Payload.String("channel_id")); !found {
				return nil, false
			}
			return model.NewMessage(frame.Payload), true
		},
		Cache: func(c *Client, frame gateway.Frame, message *model.Message) {
			channel, found := c.textChannel(message.ChannelID)
			if !found {
				return
			}
			channel.SetLastMessageID(message.ID())
			if channel.Messages().CacheEnabled() {
				channel.Messages().Set(message.ID(), message)
			}
		},
		Created: gateway.EventMessageCreate,
	}
}

func messageUpdateAction() Action {
	return Reconciler[*model.Message]{
		Check:   checkMessage,
		Updated: gateway.EventMessageUpdate,
	}
}

func messageDeleteAction() Action {
	return Remover[*model.Message]{
		Check: checkMessage,
		Evict: func(c *Client, _ gateway.Frame, message *model.Message) {
			if channel, found := c.textChannel(message.ChannelID); found {
				channel.Messages().Delete(message.ID())
			}
		},
		Deleted: gateway.EventMessageDelete,
	}
}

// handleMessageDeleteBulk removes every cached message in ids and emits once.
func handleMessageDeleteBulk(ctx context.Context, c *Client, frame gateway.Frame) error {
	channel, found := c.textChannel(frame.Payload.String("channel_id"))
	if !found {
		return nil
	}

	ids := frame.Payload.Strings("ids")
	deleted := make([]*model.Message, 0, len(ids))
	for _, id := range ids {
		message, cached := channel.Messages().Get(id)
		if !cached {
			continue
		}
		channel.Messages().Delete(id)
		message.MarkDeleted()
		deleted = append(deleted, message)
	}

	return c.emit(ctx, frame, gateway.EventMessageDeleteBulk, deleted)
}
