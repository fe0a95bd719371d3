package model

import "ex-otogi-gateway/pkg/gateway"

// Role is a guild permission group.
type Role struct {
	base

	GuildID     string
	Name        string
	Color       int
	Hoist       bool
	Position    int
	Permissions uint64
	Managed     bool
	Mentionable bool
}

// NewRole returns a role factory bound to one guild.
func NewRole(guildID string) func(raw gateway.Payload) *Role {
	return func(raw gateway.Payload) *Role {
		role := &Role{
			base:    base{id: raw.String("id")},
			GuildID: guildID,
		}

		return role.Patch(raw)
	}
}

// Patch applies present keys.
func (r *Role) Patch(raw gateway.Payload) *Role {
	patchString(raw, "name", &r.Name)
	patchInt(raw, "color", &r.Color)
	patchBool(raw, "hoist", &r.Hoist)
	patchInt(raw, "position", &r.Position)
	patchPermissions(raw, "permissions", &r.Permissions)
	patchBool(raw, "managed", &r.Managed)
	patchBool(raw, "mentionable", &r.Mentionable)

	return r
}

// Clone returns a shallow snapshot.
func (r *Role) Clone() *Role {
	cloned := *r

	return &cloned
}

// Has reports whether every bit in permission is granted.
func (r *Role) Has(permission uint64) bool {
	return r.Permissions&permission == permission
}
