package client

import (
	"context"

	"ex-otogi-gateway/pkg/gateway"
	"ex-otogi-gateway/pkg/model"
)

func checkMember(c *Client, frame gateway.Frame) (*model.Member, bool) {
	guild, found := c.guild(frame, "guild_id")
	if !found {
		return nil, false
	}

	return guild.Members.Get(model.MemberKey(frame.Payload))
}

func memberAddAction() Action {
	return Reconciler[*model.Member]{
		Before: func(c *Client, frame gateway.Frame) {
			c.ensureUser(frame.Payload, "user")
		},
		Check: checkMember,
		Build: func(c *Client, frame gateway.Frame) (*model.Member, bool) {
			guild, found := c.guild(frame, "guild_id")
			if !found {
				return nil, false
			}
			return model.NewMember(guild.ID())(frame.Payload), true
		},
		// Cache only runs for members Check missed, so a redelivered add
		// leaves the count alone.
		Cache: func(c *Client, frame gateway.Frame, member *model.Member) {
			guild, found := c.guild(frame, "guild_id")
			if !found {
				return
			}
			guild.MemberCount++
			if guild.Members.CacheEnabled() {
				guild.Members.Set(member.ID(), member)
			}
		},
		Created: gateway.EventGuildMemberAdd,
	}
}

// memberRemoveAction decrements the member count before the lookup, so the
// count moves even when the member was never cached.
func memberRemoveAction() Action {
	return Remover[*model.Member]{
		Before: func(c *Client, frame gateway.Frame) {
			if guild, found := c.guild(frame, "guild_id"); found {
				guild.MemberCount--
			}
		},
		Check: checkMember,
		Evict: func(c *Client, frame gateway.Frame, member *model.Member) {
			if guild, found := c.guild(frame, "guild_id"); found {
				guild.Members.Delete(member.ID())
			}
		},
		Deleted: gateway.EventGuildMemberRemove,
	}
}

func memberUpdateAction() Action {
	return Reconciler[*model.Member]{
		Before: func(c *Client, frame gateway.Frame) {
			c.ensureUser(frame.Payload, "user")
		},
		Check:   checkMember,
		Updated: gateway.EventGuildMemberUpdate,
	}
}

// handleGuildMembersChunk upserts one chunk, emits it once and hands it to a
// pending FetchMembers call with the same nonce.
func handleGuildMembersChunk(ctx context.Context, c *Client, frame gateway.Frame) error {
	guild, found := c.guild(frame, "guild_id")
	if !found {
		return nil
	}

	raws := frame.Payload.Objects("members")
	members := make([]*model.Member, 0, len(raws))
	for _, raw := range raws {
		c.ensureUser(raw, "user")
		members = append(members, guild.Members.Ensure(raw))
	}
	for _, presence := range frame.Payload.Objects("presences") {
		guild.Presences.Ensure(presence)
	}

	info := gateway.ChunkInfo{
		Index:    int(frame.Payload.Int("chunk_index")),
		Count:    int(frame.Payload.Int("chunk_count")),
		Nonce:    frame.Payload.String("nonce"),
		NotFound: frame.Payload.Strings("not_found"),
	}
	err := c.emit(ctx, frame, gateway.EventGuildMembersChunk, members, guild, info)
	c.chunks.feed(members, info)

	return err
}
