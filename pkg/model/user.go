package model

import "ex-otogi-gateway/pkg/gateway"

// User is a platform account.
type User struct {
	base

	Username      string
	Discriminator string
	GlobalName    string
	Avatar        string
	Bot           bool
	System        bool
	PublicFlags   int
}

// NewUser builds a user from a raw user object.
func NewUser(raw gateway.Payload) *User {
	user := &User{base: base{id: raw.String("id")}}

	return user.Patch(raw)
}

// Patch applies present keys.
func (u *User) Patch(raw gateway.Payload) *User {
	patchString(raw, "username", &u.Username)
	patchString(raw, "discriminator", &u.Discriminator)
	patchString(raw, "global_name", &u.GlobalName)
	patchString(raw, "avatar", &u.Avatar)
	patchBool(raw, "bot", &u.Bot)
	patchBool(raw, "system", &u.System)
	patchInt(raw, "public_flags", &u.PublicFlags)

	return u
}

// Clone returns a shallow snapshot.
func (u *User) Clone() *User {
	cloned := *u

	return &cloned
}

// Tag returns the display handle.
func (u *User) Tag() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}

	return u.Username + "#" + u.Discriminator
}

// IsPartial reports whether the user was built from an id-only reference.
func (u *User) IsPartial() bool {
	return u.Username == ""
}
