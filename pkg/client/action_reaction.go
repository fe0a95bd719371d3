package client

import (
	"context"

	"ex-otogi-gateway/pkg/gateway"
	"ex-otogi-gateway/pkg/model"
)

func reactionMessage(c *Client, frame gateway.Frame) (*model.Message, bool) {
	return c.message(frame.Payload.String("channel_id"), frame.Payload.String("message_id"))
}

// handleReactionAdd creates the reaction lazily and counts each user once.
func handleReactionAdd(ctx context.Context, c *Client, frame gateway.Frame) error {
	message, found := reactionMessage(c, frame)
	if !found {
		return nil
	}

	if guild, ok := c.guild(frame, "guild_id"); ok {
		if member, hasMember := frame.Payload.Object("member"); hasMember {
			c.ensureUser(member, "user")
			guild.Members.Ensure(member)
		}
	}

	userID := frame.Payload.String("user_id")
	reaction := message.Reactions.Ensure(frame.Payload)
	if !reaction.AddUser(userID, c.isSelf(userID)) {
		return nil
	}

	return c.emit(ctx, frame, gateway.EventMessageReactionAdd, reaction, userID)
}

// handleReactionRemove uncounts a user and drops the reaction once its count
// reaches zero.
func handleReactionRemove(ctx context.Context, c *Client, frame gateway.Frame) error {
	message, found := reactionMessage(c, frame)
	if !found {
		return nil
	}
	reaction, cached := message.Reactions.Get(model.ReactionKey(frame.Payload))
	if !cached {
		return nil
	}

	userID := frame.Payload.String("user_id")
	if !reaction.RemoveUser(userID, c.isSelf(userID)) {
		return nil
	}
	if reaction.Count <= 0 {
		message.Reactions.Delete(reaction.ID())
		reaction.MarkDeleted()
	}

	return c.emit(ctx, frame, gateway.EventMessageReactionRemove, reaction, userID)
}

func handleReactionRemoveAll(ctx context.Context, c *Client, frame gateway.Frame) error {
	message, found := reactionMessage(c, frame)
	if !found {
		return nil
	}

	message.Reactions.Each(func(_ string, reaction *model.Reaction) bool {
		reaction.MarkDeleted()
		return true
	})
	message.Reactions.Clear()

	return c.emit(ctx, frame, gateway.EventMessageReactionRemoveAll, message)
}

func handleReactionRemoveEmoji(ctx context.Context, c *Client, frame gateway.Frame) error {
	message, found := reactionMessage(c, frame)
	if !found {
		return nil
	}
	reaction, cached := message.Reactions.Get(model.ReactionKey(frame.Payload))
	if !cached {
		return nil
	}
	message.Reactions.Delete(reaction.ID())
	reaction.MarkDeleted()

	return c.emit(ctx, frame, gateway.EventMessageReactionRemoveEmoji, reaction)
}
