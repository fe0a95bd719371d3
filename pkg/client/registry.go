package client

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"unicode"

	"ex-otogi-gateway/pkg/gateway"
)

// Piece is a named, loadable action binding.
type Piece struct {
	// Name identifies the piece, for example GuildMemberAdd.
	Name string
	// Tag overrides the dispatch tag derived from Name.
	Tag string
	// Action handles frames carrying Tag.
	Action Action
}

// DispatchTag returns Tag, or the tag derived from Name when Tag is empty.
func (p Piece) DispatchTag() string {
	if p.Tag != "" {
		return p.Tag
	}

	return TagFromName(p.Name)
}

// TagFromName converts a CamelCase piece name into its dispatch tag:
// GuildMemberAdd becomes GUILD_MEMBER_ADD.
func TagFromName(name string) string {
	runes := []rune(name)
	var builder strings.Builder
	builder.Grow(len(runes) + 4)
	for idx, current := range runes {
		if idx > 0 && unicode.IsUpper(current) {
			previous := runes[idx-1]
			nextLower := idx+1 < len(runes) && unicode.IsLower(runes[idx+1])
			if unicode.IsLower(previous) || unicode.IsDigit(previous) || (unicode.IsUpper(previous) && nextLower) {
				builder.WriteByte('_')
			}
		}
		builder.WriteRune(unicode.ToUpper(current))
	}

	return builder.String()
}

// Registry tracks loaded pieces and keeps the router in step with them.
type Registry struct {
	mu     sync.Mutex
	router *Router
	pieces map[string]Piece
}

// NewRegistry creates a registry that binds pieces on router.
func NewRegistry(router *Router) *Registry {
	return &Registry{
		router: router,
		pieces: make(map[string]Piece),
	}
}

// Load binds every piece. It fails without binding any piece when a name or
// tag is already taken.
func (r *Registry) Load(pieces ...Piece) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make(map[string]struct{}, len(pieces))
	tags := make(map[string]struct{}, len(pieces))
	for _, piece := range pieces {
		if err := validatePiece(piece); err != nil {
			return err
		}
		if _, exists := r.pieces[piece.Name]; exists {
			return fmt.Errorf("load piece %s: %w", piece.Name, gateway.ErrPieceAlreadyLoaded)
		}
		if _, exists := names[piece.Name]; exists {
			return fmt.Errorf("load piece %s: %w", piece.Name, gateway.ErrPieceAlreadyLoaded)
		}
		tag := piece.DispatchTag()
		if _, exists := tags[tag]; exists {
			return fmt.Errorf("load piece %s: tag %s: %w", piece.Name, tag, gateway.ErrActionAlreadyRegistered)
		}
		if _, exists := r.router.Action(tag); exists {
			return fmt.Errorf("load piece %s: tag %s: %w", piece.Name, tag, gateway.ErrActionAlreadyRegistered)
		}
		names[piece.Name] = struct{}{}
		tags[tag] = struct{}{}
	}

	for idx, piece := range pieces {
		if err := r.router.Register(piece.DispatchTag(), piece.Action); err != nil {
			for _, loaded := range pieces[:idx] {
				r.router.Unregister(loaded.DispatchTag())
				delete(r.pieces, loaded.Name)
			}
			return fmt.Errorf("load piece %s: %w", piece.Name, err)
		}
		r.pieces[piece.Name] = piece
	}

	return nil
}

// Unload removes a piece and its router binding.
func (r *Registry) Unload(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	piece, exists := r.pieces[name]
	if !exists {
		return fmt.Errorf("unload piece %s: %w", name, gateway.ErrPieceNotFound)
	}
	r.router.Unregister(piece.DispatchTag())
	delete(r.pieces, name)

	return nil
}

// Reload swaps a loaded piece for a new definition with the same name. The
// router never observes the tag unbound.
func (r *Registry) Reload(piece Piece) error {
	if err := validatePiece(piece); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.pieces[piece.Name]
	if !exists {
		return fmt.Errorf("reload piece %s: %w", piece.Name, gateway.ErrPieceNotFound)
	}
	if err := r.router.replace(current.DispatchTag(), piece.DispatchTag(), piece.Action); err != nil {
		return fmt.Errorf("reload piece %s: %w", piece.Name, err)
	}
	r.pieces[piece.Name] = piece

	return nil
}

// Piece returns a loaded piece by name.
func (r *Registry) Piece(name string) (Piece, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	piece, exists := r.pieces[name]

	return piece, exists
}

// Pieces returns loaded pieces sorted by name.
func (r *Registry) Pieces() []Piece {
	r.mu.Lock()
	defer r.mu.Unlock()

	pieces := make([]Piece, 0, len(r.pieces))
	for _, name := range slices.Sorted(maps.Keys(r.pieces)) {
		pieces = append(pieces, r.pieces[name])
	}

	return pieces
}

func validatePiece(piece Piece) error {
	if piece.Name == "" {
		return fmt.Errorf("piece: empty name")
	}
	if piece.Action == nil {
		return fmt.Errorf("piece %s: nil action", piece.Name)
	}

	return nil
}

// BuiltinPieces returns the standard action table.
func BuiltinPieces() []Piece {
	return []Piece{
		{Name: "Ready", Action: ActionFunc(handleReady)},
		{Name: "GuildCreate", Action: ActionFunc(handleGuildCreate)},
		{Name: "GuildUpdate", Action: guildUpdateAction()},
		{Name: "GuildDelete", Action: ActionFunc(handleGuildDelete)},
		{Name: "GuildIntegrationsUpdate", Action: ActionFunc(handleGuildIntegrationsUpdate)},
		{Name: "GuildBanAdd", Action: ActionFunc(handleGuildBanAdd)},
		{Name: "GuildBanRemove", Action: ActionFunc(handleGuildBanRemove)},
		{Name: "GuildEmojisUpdate", Action: ActionFunc(handleGuildEmojisUpdate)},
		{Name: "GuildRoleCreate", Action: roleCreateAction()},
		{Name: "GuildRoleUpdate", Action: ActionFunc(handleRoleUpdate)},
		{Name: "GuildRoleDelete", Action: roleDeleteAction()},
		{Name: "GuildMemberAdd", Action: memberAddAction()},
		{Name: "GuildMemberRemove", Action: memberRemoveAction()},
		{Name: "GuildMemberUpdate", Action: memberUpdateAction()},
		{Name: "GuildMembersChunk", Action: ActionFunc(handleGuildMembersChunk)},
		{Name: "ChannelCreate", Action: channelCreateAction()},
		{Name: "ChannelUpdate", Action: ActionFunc(handleChannelUpdate)},
		{Name: "ChannelDelete", Action: channelDeleteAction()},
		{Name: "ChannelPinsUpdate", Action: ActionFunc(handleChannelPinsUpdate)},
		{Name: "TypingStart", Action: ActionFunc(handleTypingStart)},
		{Name: "WebhooksUpdate", Action: ActionFunc(handleWebhooksUpdate)},
		{Name: "MessageCreate", Action: messageCreateAction()},
		{Name: "MessageUpdate", Action: messageUpdateAction()},
		{Name: "MessageDelete", Action: messageDeleteAction()},
		{Name: "MessageDeleteBulk", Action: ActionFunc(handleMessageDeleteBulk)},
		{Name: "MessageReactionAdd", Action: ActionFunc(handleReactionAdd)},
		{Name: "MessageReactionRemove", Action: ActionFunc(handleReactionRemove)},
		{Name: "MessageReactionRemoveAll", Action: ActionFunc(handleReactionRemoveAll)},
		{Name: "MessageReactionRemoveEmoji", Action: ActionFunc(handleReactionRemoveEmoji)},
		{Name: "PresenceUpdate", Action: presenceUpdateAction()},
		{Name: "UserUpdate", Action: ActionFunc(handleUserUpdate)},
		{Name: "VoiceStateUpdate", Action: voiceStateUpdateAction()},
		{Name: "VoiceServerUpdate", Action: ActionFunc(handleVoiceServerUpdate)},
		{Name: "InviteCreate", Action: inviteCreateAction()},
		{Name: "InviteDelete", Action: inviteDeleteAction()},
	}
}
