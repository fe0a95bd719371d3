package model

import (
	"time"

	"ex-otogi-gateway/pkg/gateway"
	"ex-otogi-gateway/pkg/store"
)

// Attachment is one file attached to a message.
type Attachment struct {
	ID          string
	Filename    string
	ContentType string
	URL         string
	Size        int64
}

// Message is one channel message. Author and channel are referenced by id.
type Message struct {
	base

	ChannelID       string
	GuildID         string
	AuthorID        string
	WebhookID       string
	Content         string
	Nonce           string
	Type            int
	Timestamp       time.Time
	EditedAt        time.Time
	TTS             bool
	MentionEveryone bool
	Pinned          bool
	Mentions        []string
	MentionRoles    []string
	Attachments     []Attachment
	Embeds          []gateway.Payload

	// Reactions holds the aggregated reactions keyed by emoji identifier.
	Reactions *store.Store[*Reaction]
}

// NewMessage builds a message from a raw message object.
func NewMessage(raw gateway.Payload) *Message {
	message := &Message{
		base:      base{id: raw.String("id")},
		ChannelID: raw.String("channel_id"),
	}
	message.Reactions = store.New(
		NewReaction(message.id, message.ChannelID),
		store.WithKey(ReactionKey),
	)

	return message.Patch(raw)
}

// Patch applies present keys. A present reactions array replaces the
// aggregated reactions.
func (m *Message) Patch(raw gateway.Payload) *Message {
	patchString(raw, "guild_id", &m.GuildID)
	if raw.Has("author") {
		m.AuthorID = raw.String("author.id")
	}
	patchString(raw, "webhook_id", &m.WebhookID)
	patchString(raw, "content", &m.Content)
	patchString(raw, "nonce", &m.Nonce)
	patchInt(raw, "type", &m.Type)
	patchTime(raw, "timestamp", &m.Timestamp)
	patchTime(raw, "edited_timestamp", &m.EditedAt)
	patchBool(raw, "tts", &m.TTS)
	patchBool(raw, "mention_everyone", &m.MentionEveryone)
	patchBool(raw, "pinned", &m.Pinned)
	if raw.Has("mentions") {
		m.Mentions = objectIDs(raw.Objects("mentions"))
	}
	patchStrings(raw, "mention_roles", &m.MentionRoles)
	if raw.Has("attachments") {
		objects := raw.Objects("attachments")
		attachments := make([]Attachment, 0, len(objects))
		for _, object := range objects {
			attachments = append(attachments, Attachment{
				ID:          object.String("id"),
				Filename:    object.String("filename"),
				ContentType: object.String("content_type"),
				URL:         object.String("url"),
				Size:        object.Int("size"),
			})
		}
		m.Attachments = attachments
	}
	if raw.Has("embeds") {
		m.Embeds = raw.Objects("embeds")
	}
	if raw.Has("reactions") && m.Reactions != nil {
		m.Reactions.Clear()
		for _, reaction := range raw.Objects("reactions") {
			m.Reactions.Ensure(reaction)
		}
	}

	return m
}

// Clone returns a shallow snapshot. The reaction store is shared.
func (m *Message) Clone() *Message {
	cloned := *m
	cloned.Mentions = cloneStrings(m.Mentions)
	cloned.MentionRoles = cloneStrings(m.MentionRoles)

	return &cloned
}

// Edited reports whether the message carries an edit timestamp.
func (m *Message) Edited() bool {
	return !m.EditedAt.IsZero()
}

func objectIDs(objects []gateway.Payload) []string {
	ids := make([]string, 0, len(objects))
	for _, object := range objects {
		if id := object.String("id"); id != "" {
			ids = append(ids, id)
		}
	}

	return ids
}
