package gateway

import "fmt"

// EventName identifies an application-facing event.
type EventName string

const (
	// EventReady is emitted once the session user is known. Args: (*model.User).
	EventReady EventName = "ready"
	// EventError is emitted for action and listener faults. Args: (error).
	EventError EventName = "error"
	// EventDebug carries diagnostic text. Args: (string).
	EventDebug EventName = "debug"

	// EventGuildCreate is emitted when a new guild is cached. Args: (guild).
	EventGuildCreate EventName = "guildCreate"
	// EventGuildUpdate is emitted when guild settings change. Args: (guild, previous).
	EventGuildUpdate EventName = "guildUpdate"
	// EventGuildDelete is emitted when the session leaves a guild. Args: (guild).
	EventGuildDelete EventName = "guildDelete"
	// EventGuildAvailable is emitted when an unavailable guild comes back. Args: (guild).
	EventGuildAvailable EventName = "guildAvailable"
	// EventGuildUnavailable is emitted when a guild becomes unavailable. Args: (guild).
	EventGuildUnavailable EventName = "guildUnavailable"
	// EventGuildIntegrationsUpdate is a notification. Args: (guild).
	EventGuildIntegrationsUpdate EventName = "guildIntegrationsUpdate"
	// EventGuildBanAdd is emitted when a user is banned. Args: (guild, user).
	EventGuildBanAdd EventName = "guildBanAdd"
	// EventGuildBanRemove is emitted when a ban is lifted. Args: (guild, user).
	EventGuildBanRemove EventName = "guildBanRemove"

	// EventRoleCreate is emitted for a new role. Args: (role).
	EventRoleCreate EventName = "roleCreate"
	// EventRoleUpdate is emitted with a replaced role. Args: (role, previous).
	EventRoleUpdate EventName = "roleUpdate"
	// EventRoleDelete is emitted for a removed role. Args: (role).
	EventRoleDelete EventName = "roleDelete"

	// EventGuildMemberAdd is emitted when a member joins. Args: (member).
	EventGuildMemberAdd EventName = "guildMemberAdd"
	// EventGuildMemberUpdate is emitted when a member changes. Args: (member, previous).
	EventGuildMemberUpdate EventName = "guildMemberUpdate"
	// EventGuildMemberRemove is emitted when a cached member leaves. Args: (member).
	EventGuildMemberRemove EventName = "guildMemberRemove"
	// EventGuildMembersChunk is emitted once per member chunk. Args: ([]*member, guild, ChunkInfo).
	EventGuildMembersChunk EventName = "guildMembersChunk"

	// EventEmojiCreate is emitted for a new guild emoji. Args: (emoji).
	EventEmojiCreate EventName = "emojiCreate"
	// EventEmojiUpdate is emitted for a changed guild emoji. Args: (emoji, previous).
	EventEmojiUpdate EventName = "emojiUpdate"
	// EventEmojiDelete is emitted for a removed guild emoji. Args: (emoji).
	EventEmojiDelete EventName = "emojiDelete"

	// EventChannelCreate is emitted for a new channel. Args: (channel).
	EventChannelCreate EventName = "channelCreate"
	// EventChannelUpdate is emitted for a changed channel. Args: (channel, previous).
	EventChannelUpdate EventName = "channelUpdate"
	// EventChannelDelete is emitted for a removed channel. Args: (channel).
	EventChannelDelete EventName = "channelDelete"
	// EventChannelPinsUpdate is a notification. Args: (channel, time.Time).
	EventChannelPinsUpdate EventName = "channelPinsUpdate"
	// EventWebhooksUpdate is a notification. Args: (channel).
	EventWebhooksUpdate EventName = "webhookUpdate"
	// EventTypingStart is a notification. Args: (channel, userID string).
	EventTypingStart EventName = "typingStart"

	// EventMessageCreate is emitted for a new message. Args: (message).
	EventMessageCreate EventName = "message"
	// EventMessageUpdate is emitted for an edited message. Args: (message, previous).
	EventMessageUpdate EventName = "messageUpdate"
	// EventMessageDelete is emitted for a removed message. Args: (message).
	EventMessageDelete EventName = "messageDelete"
	// EventMessageDeleteBulk is emitted once per bulk deletion. Args: ([]*message).
	EventMessageDeleteBulk EventName = "messageDeleteBulk"

	// EventMessageReactionAdd is emitted when a user reacts. Args: (reaction, userID string).
	EventMessageReactionAdd EventName = "messageReactionAdd"
	// EventMessageReactionRemove is emitted when a user unreacts. Args: (reaction, userID string).
	EventMessageReactionRemove EventName = "messageReactionRemove"
	// EventMessageReactionRemoveAll is emitted when all reactions are cleared. Args: (message).
	EventMessageReactionRemoveAll EventName = "messageReactionRemoveAll"
	// EventMessageReactionRemoveEmoji is emitted when one emoji is cleared. Args: (reaction).
	EventMessageReactionRemoveEmoji EventName = "messageReactionRemoveEmoji"

	// EventPresenceUpdate is emitted for presence changes. Args: (presence, previous or nil).
	EventPresenceUpdate EventName = "presenceUpdate"
	// EventUserUpdate is emitted with a replaced user. Args: (user, previous).
	EventUserUpdate EventName = "userUpdate"
	// EventVoiceStateUpdate is emitted for voice changes. Args: (state, previous or nil).
	EventVoiceStateUpdate EventName = "voiceStateUpdate"
	// EventVoiceServerUpdate is a notification. Args: (Payload).
	EventVoiceServerUpdate EventName = "voiceServerUpdate"

	// EventInviteCreate is emitted for a new invite. Args: (invite).
	EventInviteCreate EventName = "inviteCreate"
	// EventInviteDelete is emitted for a removed invite. Args: (invite).
	EventInviteDelete EventName = "inviteDelete"
)

// Event is one application-facing emission.
//
// Args holds the positional payload documented on each EventName.
type Event struct {
	// Name selects the event and the shape of Args.
	Name EventName
	// ShardID identifies the shard whose frame produced the event.
	ShardID int
	// Args holds positional arguments.
	Args []any
}

// Arg returns the positional argument at index converted to T.
func Arg[T any](event *Event, index int) (T, bool) {
	var zero T
	if event == nil || index < 0 || index >= len(event.Args) {
		return zero, false
	}

	typed, ok := event.Args[index].(T)

	return typed, ok
}

// ChunkInfo describes one member chunk within a member request sequence.
type ChunkInfo struct {
	// Index is the zero-based chunk position.
	Index int
	// Count is the total number of chunks in the sequence.
	Count int
	// Nonce correlates the chunk with a member request.
	Nonce string
	// NotFound lists requested user ids that do not exist.
	NotFound []string
}

// Last reports whether the chunk closes its sequence.
func (c ChunkInfo) Last() bool {
	return c.Index+1 >= c.Count
}

// ActionError describes a fault raised while an action handled a frame.
type ActionError struct {
	Tag     string
	ShardID int
	Err     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s on shard %d: %v", e.Tag, e.ShardID, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// ListenerError describes a fault raised by an event listener.
type ListenerError struct {
	Subscription string
	Event        EventName
	Err          error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %s on %s: %v", e.Subscription, e.Event, e.Err)
}

func (e *ListenerError) Unwrap() error {
	return e.Err
}
