package model

import "ex-otogi-gateway/pkg/gateway"

// VoiceState is a user's voice connection inside one guild.
type VoiceState struct {
	base

	GuildID    string
	ChannelID  string
	SessionID  string
	Deaf       bool
	Mute       bool
	SelfDeaf   bool
	SelfMute   bool
	SelfStream bool
	SelfVideo  bool
	Suppress   bool
}

// VoiceStateKey derives voice state ids from user_id.
func VoiceStateKey(raw gateway.Payload) string {
	return raw.String("user_id")
}

// NewVoiceState returns a voice state factory bound to one guild.
func NewVoiceState(guildID string) func(raw gateway.Payload) *VoiceState {
	return func(raw gateway.Payload) *VoiceState {
		state := &VoiceState{
			base:    base{id: VoiceStateKey(raw)},
			GuildID: guildID,
		}

		return state.Patch(raw)
	}
}

// UserID returns the referenced user id.
func (v *VoiceState) UserID() string {
	return v.id
}

// Connected reports whether the user is in a voice channel.
func (v *VoiceState) Connected() bool {
	return v.ChannelID != ""
}

// Patch applies present keys.
func (v *VoiceState) Patch(raw gateway.Payload) *VoiceState {
	patchString(raw, "channel_id", &v.ChannelID)
	patchString(raw, "session_id", &v.SessionID)
	patchBool(raw, "deaf", &v.Deaf)
	patchBool(raw, "mute", &v.Mute)
	patchBool(raw, "self_deaf", &v.SelfDeaf)
	patchBool(raw, "self_mute", &v.SelfMute)
	patchBool(raw, "self_stream", &v.SelfStream)
	patchBool(raw, "self_video", &v.SelfVideo)
	patchBool(raw, "suppress", &v.Suppress)

	return v
}

// Clone returns a shallow snapshot.
func (v *VoiceState) Clone() *VoiceState {
	cloned := *v

	return &cloned
}
