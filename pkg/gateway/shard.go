package gateway

import "context"

// Opcode identifies a gateway packet type.
type Opcode int

const (
	// OpDispatch carries a dispatch frame.
	OpDispatch Opcode = 0
	// OpHeartbeat keeps the connection alive.
	OpHeartbeat Opcode = 1
	// OpIdentify starts a new session.
	OpIdentify Opcode = 2
	// OpPresenceUpdate updates the session presence.
	OpPresenceUpdate Opcode = 3
	// OpVoiceStateUpdate joins, moves, or leaves voice channels.
	OpVoiceStateUpdate Opcode = 4
	// OpResume resumes a previous session.
	OpResume Opcode = 6
	// OpReconnect asks the client to reconnect.
	OpReconnect Opcode = 7
	// OpRequestGuildMembers requests member chunks for a guild.
	OpRequestGuildMembers Opcode = 8
	// OpInvalidSession reports an invalid session.
	OpInvalidSession Opcode = 9
	// OpHello carries the heartbeat interval.
	OpHello Opcode = 10
	// OpHeartbeatAck acknowledges a heartbeat.
	OpHeartbeatAck Opcode = 11
)

// Shard is the send capability of one transport connection partition.
type Shard interface {
	// ID returns the shard index.
	ID() int
	// Send writes one packet with the given opcode and data.
	Send(ctx context.Context, op Opcode, data any) error
}

// RequestGuildMembers is the op 8 data object.
type RequestGuildMembers struct {
	GuildID   string   `json:"guild_id"`
	Query     *string  `json:"query,omitempty"`
	Limit     int      `json:"limit"`
	Presences bool     `json:"presences,omitempty"`
	UserIDs   []string `json:"user_ids,omitempty"`
	Nonce     string   `json:"nonce,omitempty"`
}
