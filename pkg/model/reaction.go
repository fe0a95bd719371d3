package model

import (
	"slices"

	"ex-otogi-gateway/pkg/gateway"
)

// ReactionEmoji identifies the emoji of a reaction. ID is empty for unicode
// emoji.
type ReactionEmoji struct {
	ID       string
	Name     string
	Animated bool
}

// Identifier returns the id for custom emoji and the name otherwise.
func (e ReactionEmoji) Identifier() string {
	if e.ID != "" {
		return e.ID
	}

	return e.Name
}

// Reaction aggregates one emoji's reactions on one message.
//
// Count moves in step with the set of known reacting users. Users that
// reacted before the message was cached are counted but not known.
type Reaction struct {
	base

	MessageID string
	ChannelID string
	Emoji     ReactionEmoji
	Count     int
	Me        bool

	users map[string]struct{}
}

// ReactionKey derives reaction ids from the nested emoji object.
func ReactionKey(raw gateway.Payload) string {
	if id := raw.String("emoji.id"); id != "" {
		return id
	}

	return raw.String("emoji.name")
}

// NewReaction returns a reaction factory bound to one message.
func NewReaction(messageID string, channelID string) func(raw gateway.Payload) *Reaction {
	return func(raw gateway.Payload) *Reaction {
		reaction := &Reaction{
			base:      base{id: ReactionKey(raw)},
			MessageID: messageID,
			ChannelID: channelID,
			users:     make(map[string]struct{}),
		}

		return reaction.Patch(raw)
	}
}

// Patch applies present keys.
func (r *Reaction) Patch(raw gateway.Payload) *Reaction {
	if emoji, ok := raw.Object("emoji"); ok {
		r.Emoji = ReactionEmoji{
			ID:       emoji.String("id"),
			Name:     emoji.String("name"),
			Animated: emoji.Bool("animated"),
		}
	}
	patchInt(raw, "count", &r.Count)
	patchBool(raw, "me", &r.Me)

	return r
}

// Clone returns a snapshot with its own user set.
func (r *Reaction) Clone() *Reaction {
	cloned := *r
	cloned.users = make(map[string]struct{}, len(r.users))
	for userID := range r.users {
		cloned.users[userID] = struct{}{}
	}

	return &cloned
}

// AddUser records userID as reacting. It reports false when the user was
// already known, in which case the count is unchanged.
func (r *Reaction) AddUser(userID string, self bool) bool {
	if r.users == nil {
		r.users = make(map[string]struct{})
	}
	if _, known := r.users[userID]; known {
		return false
	}
	r.users[userID] = struct{}{}
	r.Count++
	if self {
		r.Me = true
	}

	return true
}

// RemoveUser drops userID from the reaction. Unknown users still decrement the
// count while it exceeds the number of known users.
func (r *Reaction) RemoveUser(userID string, self bool) bool {
	_, known := r.users[userID]
	if !known && r.Count <= len(r.users) {
		return false
	}
	delete(r.users, userID)
	if r.Count > 0 {
		r.Count--
	}
	if self {
		r.Me = false
	}

	return true
}

// HasUser reports whether userID is a known reacting user.
func (r *Reaction) HasUser(userID string) bool {
	_, known := r.users[userID]

	return known
}

// Users returns known reacting user ids in sorted order.
func (r *Reaction) Users() []string {
	users := make([]string, 0, len(r.users))
	for userID := range r.users {
		users = append(users, userID)
	}
	slices.Sort(users)

	return users
}
