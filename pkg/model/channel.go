package model

import (
	"slices"
	"time"

	"ex-otogi-gateway/pkg/gateway"
	"ex-otogi-gateway/pkg/store"
)

// ChannelType is the platform channel kind.
type ChannelType int

const (
	ChannelGuildText       ChannelType = 0
	ChannelDM              ChannelType = 1
	ChannelGuildVoice      ChannelType = 2
	ChannelGroupDM         ChannelType = 3
	ChannelGuildCategory   ChannelType = 4
	ChannelGuildNews       ChannelType = 5
	ChannelGuildStore      ChannelType = 6
	ChannelGuildStageVoice ChannelType = 13
	ChannelGuildForum      ChannelType = 15
)

// Channel is any channel kind. Capabilities are discovered through the
// GuildBased, TextBased and VoiceBased traits.
type Channel interface {
	gateway.Model[Channel]
	// Type returns the channel kind.
	Type() ChannelType
	// Name returns the display name, empty for direct messages.
	Name() string
}

// GuildBased is implemented by channels that belong to a guild.
type GuildBased interface {
	Channel
	GuildID() string
	ParentID() string
	Position() int
	Overwrites() []PermissionOverwrite
}

// TextBased is implemented by channels that carry messages.
type TextBased interface {
	Channel
	Messages() *store.Store[*Message]
	LastMessageID() string
	SetLastMessageID(id string)
	LastPinAt() time.Time
	SetLastPinAt(at time.Time)
}

// VoiceBased is implemented by channels users can connect to.
type VoiceBased interface {
	Channel
	Bitrate() int
	UserLimit() int
}

// PermissionOverwrite adjusts permissions for one role or member.
type PermissionOverwrite struct {
	ID    string
	Type  int
	Allow uint64
	Deny  uint64
}

type channelCore struct {
	base

	kind ChannelType
	name string
}

func newChannelCore(raw gateway.Payload) channelCore {
	return channelCore{
		base: base{id: raw.String("id")},
		kind: ChannelType(raw.Int("type")),
	}
}

func (c *channelCore) Type() ChannelType {
	return c.kind
}

func (c *channelCore) Name() string {
	return c.name
}

func (c *channelCore) patch(raw gateway.Payload) {
	patchString(raw, "name", &c.name)
}

type guildPart struct {
	guildID    string
	parentID   string
	position   int
	overwrites []PermissionOverwrite
}

func (g *guildPart) GuildID() string {
	return g.guildID
}

func (g *guildPart) ParentID() string {
	return g.parentID
}

func (g *guildPart) Position() int {
	return g.position
}

func (g *guildPart) Overwrites() []PermissionOverwrite {
	return slices.Clone(g.overwrites)
}

func (g *guildPart) patch(raw gateway.Payload) {
	patchString(raw, "guild_id", &g.guildID)
	patchString(raw, "parent_id", &g.parentID)
	patchInt(raw, "position", &g.position)
	if raw.Has("permission_overwrites") {
		objects := raw.Objects("permission_overwrites")
		overwrites := make([]PermissionOverwrite, 0, len(objects))
		for _, object := range objects {
			overwrite := PermissionOverwrite{
				ID:   object.String("id"),
				Type: int(object.Int("type")),
			}
			patchPermissions(object, "allow", &overwrite.Allow)
			patchPermissions(object, "deny", &overwrite.Deny)
			overwrites = append(overwrites, overwrite)
		}
		g.overwrites = overwrites
	}
}

func (g *guildPart) clone() {
	g.overwrites = slices.Clone(g.overwrites)
}

type textPart struct {
	messages      *store.Store[*Message]
	lastMessageID string
	lastPinAt     time.Time
}

func newTextPart(caching Caching) textPart {
	return textPart{
		messages: store.New(
			NewMessage,
			caching.StoreOptions(CollectionMessages, caching.MessageLimit)...,
		),
	}
}

func (t *textPart) Messages() *store.Store[*Message] {
	return t.messages
}

func (t *textPart) LastMessageID() string {
	return t.lastMessageID
}

func (t *textPart) SetLastMessageID(id string) {
	t.lastMessageID = id
}

func (t *textPart) LastPinAt() time.Time {
	return t.lastPinAt
}

func (t *textPart) SetLastPinAt(at time.Time) {
	t.lastPinAt = at
}

func (t *textPart) patch(raw gateway.Payload) {
	patchString(raw, "last_message_id", &t.lastMessageID)
	patchTime(raw, "last_pin_timestamp", &t.lastPinAt)
}

type voicePart struct {
	bitrate   int
	userLimit int
	rtcRegion string
}

func (v *voicePart) Bitrate() int {
	return v.bitrate
}

func (v *voicePart) UserLimit() int {
	return v.userLimit
}

func (v *voicePart) patch(raw gateway.Payload) {
	patchInt(raw, "bitrate", &v.bitrate)
	patchInt(raw, "user_limit", &v.userLimit)
	patchString(raw, "rtc_region", &v.rtcRegion)
}

// TextChannel is a guild text or announcement channel.
type TextChannel struct {
	channelCore
	guildPart
	textPart

	Topic            string
	NSFW             bool
	RateLimitPerUser int
}

// NewTextChannel builds a guild text channel.
func NewTextChannel(raw gateway.Payload, caching Caching) Channel {
	channel := &TextChannel{
		channelCore: newChannelCore(raw),
		textPart:    newTextPart(caching),
	}

	return channel.Patch(raw)
}

// Patch applies present keys.
func (c *TextChannel) Patch(raw gateway.Payload) Channel {
	c.channelCore.patch(raw)
	c.guildPart.patch(raw)
	c.textPart.patch(raw)
	patchString(raw, "topic", &c.Topic)
	patchBool(raw, "nsfw", &c.NSFW)
	patchInt(raw, "rate_limit_per_user", &c.RateLimitPerUser)

	return c
}

// Clone returns a shallow snapshot. The message store is shared.
func (c *TextChannel) Clone() Channel {
	cloned := *c
	cloned.guildPart.clone()

	return &cloned
}

// DMChannel is a direct or group message channel.
type DMChannel struct {
	channelCore
	textPart

	RecipientIDs []string
	OwnerID      string
}

// NewDMChannel builds a direct message channel.
func NewDMChannel(raw gateway.Payload, caching Caching) Channel {
	channel := &DMChannel{
		channelCore: newChannelCore(raw),
		textPart:    newTextPart(caching),
	}

	return channel.Patch(raw)
}

// Patch applies present keys.
func (c *DMChannel) Patch(raw gateway.Payload) Channel {
	c.channelCore.patch(raw)
	c.textPart.patch(raw)
	if raw.Has("recipients") {
		c.RecipientIDs = objectIDs(raw.Objects("recipients"))
	}
	patchString(raw, "owner_id", &c.OwnerID)

	return c
}

// Clone returns a shallow snapshot. The message store is shared.
func (c *DMChannel) Clone() Channel {
	cloned := *c
	cloned.RecipientIDs = cloneStrings(c.RecipientIDs)

	return &cloned
}

// VoiceChannel is a guild voice or stage channel.
type VoiceChannel struct {
	channelCore
	guildPart
	voicePart
}

// NewVoiceChannel builds a guild voice channel.
func NewVoiceChannel(raw gateway.Payload, _ Caching) Channel {
	channel := &VoiceChannel{channelCore: newChannelCore(raw)}

	return channel.Patch(raw)
}

// Patch applies present keys.
func (c *VoiceChannel) Patch(raw gateway.Payload) Channel {
	c.channelCore.patch(raw)
	c.guildPart.patch(raw)
	c.voicePart.patch(raw)

	return c
}

// Clone returns a shallow snapshot.
func (c *VoiceChannel) Clone() Channel {
	cloned := *c
	cloned.guildPart.clone()

	return &cloned
}

// RTCRegion returns the voice region override, empty for automatic.
func (c *VoiceChannel) RTCRegion() string {
	return c.rtcRegion
}

// CategoryChannel groups guild channels.
type CategoryChannel struct {
	channelCore
	guildPart
}

// NewCategoryChannel builds a guild category.
func NewCategoryChannel(raw gateway.Payload, _ Caching) Channel {
	channel := &CategoryChannel{channelCore: newChannelCore(raw)}

	return channel.Patch(raw)
}

// Patch applies present keys.
func (c *CategoryChannel) Patch(raw gateway.Payload) Channel {
	c.channelCore.patch(raw)
	c.guildPart.patch(raw)

	return c
}

// Clone returns a shallow snapshot.
func (c *CategoryChannel) Clone() Channel {
	cloned := *c
	cloned.guildPart.clone()

	return &cloned
}

// GenericChannel holds channels of kinds without a registered constructor.
type GenericChannel struct {
	channelCore
	guildPart

	// Raw keeps the last payload for fields the generic shape does not map.
	Raw gateway.Payload
}

// NewGenericChannel builds a channel of an unrecognized kind.
func NewGenericChannel(raw gateway.Payload, _ Caching) Channel {
	channel := &GenericChannel{channelCore: newChannelCore(raw)}

	return channel.Patch(raw)
}

// Patch applies present keys.
func (c *GenericChannel) Patch(raw gateway.Payload) Channel {
	c.channelCore.patch(raw)
	c.guildPart.patch(raw)
	c.Raw = raw

	return c
}

// Clone returns a shallow snapshot.
func (c *GenericChannel) Clone() Channel {
	cloned := *c
	cloned.guildPart.clone()

	return &cloned
}
