package client

import (
	"context"

	"ex-otogi-gateway/pkg/gateway"
	"ex-otogi-gateway/pkg/model"
)

func roleData(frame gateway.Frame) gateway.Payload {
	role, _ := frame.Payload.Object("role")

	return role
}

func roleCreateAction() Action {
	return Reconciler[*model.Role]{
		Check: func(c *Client, frame gateway.Frame) (*model.Role, bool) {
			guild, found := c.guild(frame, "guild_id")
			if !found {
				return nil, false
			}
			return guild.Roles.Get(frame.Payload.String("role.id"))
		},
		Build: func(c *Client, frame gateway.Frame) (*model.Role, bool) {
			guild, found := c.guild(frame, "guild_id")
			if !found {
				return nil, false
			}
			return model.NewRole(guild.ID())(roleData(frame)), true
		},
		Cache: func(c *Client, frame gateway.Frame, role *model.Role) {
			if guild, found := c.guild(frame, "guild_id"); found && c.caching.Enabled {
				guild.Roles.Set(role.ID(), role)
			}
		},
		Data:    roleData,
		Created: gateway.EventRoleCreate,
	}
}

// handleRoleUpdate replaces the cached role with a new instance. Holders of
// the previous instance keep a stale snapshot.
func handleRoleUpdate(ctx context.Context, c *Client, frame gateway.Frame) error {
	guild, found := c.guild(frame, "guild_id")
	if !found {
		return nil
	}
	previous, cached := guild.Roles.Get(frame.Payload.String("role.id"))
	if !cached {
		return nil
	}

	role := model.NewRole(guild.ID())(roleData(frame))
	guild.Roles.Set(role.ID(), role)

	return c.emit(ctx, frame, gateway.EventRoleUpdate, role, previous)
}

func roleDeleteAction() Action {
	return Remover[*model.Role]{
		Check: func(c *Client, frame gateway.Frame) (*model.Role, bool) {
			guild, found := c.guild(frame, "guild_id")
			if !found {
				return nil, false
			}
			return guild.Roles.Get(frame.Payload.String("role_id"))
		},
		Evict: func(c *Client, frame gateway.Frame, role *model.Role) {
			if guild, found := c.guild(frame, "guild_id"); found {
				guild.Roles.Delete(role.ID())
			}
		},
		Deleted: gateway.EventRoleDelete,
	}
}
