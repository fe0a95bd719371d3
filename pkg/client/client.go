// Package client reconciles gateway dispatch frames against an in-memory
// entity cache and emits normalized application events.
//
// A Client owns the top-level stores (users, guilds, channels), a Router that
// maps each dispatch tag to one Action, and the Emitter listeners subscribe to.
// Frames from any number of shards are serialized through Dispatch.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ex-otogi-gateway/pkg/gateway"
	"ex-otogi-gateway/pkg/model"
	"ex-otogi-gateway/pkg/store"

	"go.opentelemetry.io/otel/trace"
)

// Client collections reported to eviction metrics.
const (
	CollectionUsers    = "users"
	CollectionGuilds   = "guilds"
	CollectionChannels = "channels"
)

// Client is the cache arena and dispatch loop.
type Client struct {
	logger  *slog.Logger
	emitter gateway.Emitter
	router  *Router
	pieces  *Registry
	kinds   *model.ChannelKinds
	caching model.Caching
	metrics *metrics
	tracer  trace.Tracer

	chunkIdleTimeout time.Duration
	chunks           *chunkCollectors

	users    *store.Store[*model.User]
	guilds   *store.Store[*model.Guild]
	channels *store.Store[model.Channel]

	dispatchMu sync.Mutex

	stateMu sync.RWMutex
	self    *model.User
	shards  map[int]gateway.Shard
}

// New creates a client and loads the builtin action table.
func New(options ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, option := range options {
		option(&cfg)
	}
	if err := cfg.cache.Validate(); err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}

	collectors, err := newMetrics(cfg.registerer)
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}

	kinds := model.NewChannelKinds()
	for kind, constructor := range cfg.channelKinds {
		if err := kinds.Register(kind, constructor); err != nil {
			return nil, fmt.Errorf("new client: %w", err)
		}
	}

	caching := cfg.cache.Caching()
	caching.OnEvict = collectors.observeEviction

	emitter := cfg.emitter
	if emitter == nil {
		defaultEmitter := NewEmitter(cfg.logger)
		defaultEmitter.onFault = func(listenerErr *gateway.ListenerError) {
			collectors.observeListenerFault(string(listenerErr.Event))
		}
		emitter = defaultEmitter
	}

	router := NewRouter()
	c := &Client{
		logger:           cfg.logger,
		emitter:          emitter,
		router:           router,
		pieces:           NewRegistry(router),
		kinds:            kinds,
		caching:          caching,
		metrics:          collectors,
		tracer:           cfg.tracerProvider.Tracer(tracerName),
		chunkIdleTimeout: cfg.cache.MemberChunkIdleTimeout,
		chunks:           newChunkCollectors(),
		shards:           make(map[int]gateway.Shard),
	}
	c.users = store.New(model.NewUser,
		caching.StoreOptions(CollectionUsers, cfg.cache.UserCacheLimit)...)
	c.guilds = store.New(model.NewGuild(caching),
		caching.StoreOptions(CollectionGuilds, 0)...)
	c.channels = store.New(c.buildChannel,
		caching.StoreOptions(CollectionChannels, 0)...)

	if cfg.builtins {
		if err := c.pieces.Load(BuiltinPieces()...); err != nil {
			return nil, fmt.Errorf("new client: load builtin actions: %w", err)
		}
	}
	if len(cfg.pieces) > 0 {
		if err := c.pieces.Load(cfg.pieces...); err != nil {
			return nil, fmt.Errorf("new client: load pieces: %w", err)
		}
	}

	return c, nil
}

// Emitter returns the event surface.
func (c *Client) Emitter() gateway.Emitter {
	return c.emitter
}

// Subscribe registers listener on the client emitter.
func (c *Client) Subscribe(
	ctx context.Context,
	spec gateway.SubscriptionSpec,
	listener gateway.Listener,
) (gateway.Subscription, error) {
	return c.emitter.Subscribe(ctx, spec, listener)
}

// Router returns the dispatch router.
func (c *Client) Router() *Router {
	return c.router
}

// Pieces returns the piece registry.
func (c *Client) Pieces() *Registry {
	return c.pieces
}

// ChannelKinds returns the channel constructor registry.
func (c *Client) ChannelKinds() *model.ChannelKinds {
	return c.kinds
}

// Users returns the user store.
func (c *Client) Users() *store.Store[*model.User] {
	return c.users
}

// Guilds returns the guild store.
func (c *Client) Guilds() *store.Store[*model.Guild] {
	return c.guilds
}

// Channels returns the channel store. Guild channels are also reachable
// through their guild.
func (c *Client) Channels() *store.Store[model.Channel] {
	return c.channels
}

// Self returns the session user once READY was handled.
func (c *Client) Self() (*model.User, bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	return c.self, c.self != nil
}

func (c *Client) setSelf(user *model.User) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	c.self = user
}

func (c *Client) isSelf(userID string) bool {
	self, ok := c.Self()

	return ok && userID != "" && self.ID() == userID
}

// AttachShard makes shard available for outbound requests such as FetchMembers.
func (c *Client) AttachShard(shard gateway.Shard) {
	if shard == nil {
		return
	}

	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	c.shards[shard.ID()] = shard
}

// DetachShard removes the shard with id.
func (c *Client) DetachShard(id int) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	delete(c.shards, id)
}

// Shard returns the attached shard with id.
func (c *Client) Shard(id int) (gateway.Shard, error) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	shard, found := c.shards[id]
	if !found {
		return nil, fmt.Errorf("shard %d: %w", id, gateway.ErrShardNotFound)
	}

	return shard, nil
}

// Dispatch routes one frame. Calls are serialized, so frames from several
// shards form a single logical dispatch loop.
func (c *Client) Dispatch(ctx context.Context, frame gateway.Frame) error {
	if err := frame.Validate(); err != nil {
		c.metrics.observeFrame(frame.Tag, outcomeInvalid, 0)
		c.logger.WarnContext(ctx, "gateway dropped frame",
			"tag", frame.Tag,
			"shard_id", frame.ShardID,
			"error", err,
		)
		return nil
	}

	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	return c.router.Route(ctx, c, frame)
}

// Run drains source through Dispatch until the source stops or ctx ends.
func (c *Client) Run(ctx context.Context, source gateway.FrameSource) error {
	if source == nil {
		return fmt.Errorf("run client: nil frame source")
	}

	err := source.Consume(ctx, c.Dispatch)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run client: %w", err)
	}

	return nil
}

// Close stops event delivery and aborts pending member requests.
func (c *Client) Close() error {
	c.chunks.abortAll()
	if err := c.emitter.Close(); err != nil {
		return fmt.Errorf("close client: %w", err)
	}

	return nil
}

// emit publishes one event attributed to frame's shard.
func (c *Client) emit(ctx context.Context, frame gateway.Frame, name gateway.EventName, args ...any) error {
	if err := c.emitter.Emit(ctx, &gateway.Event{
		Name:    name,
		ShardID: frame.ShardID,
		Args:    args,
	}); err != nil {
		return fmt.Errorf("emit %s: %w", name, err)
	}

	return nil
}

// reportActionFault emits an action failure as gateway.EventError.
func (c *Client) reportActionFault(ctx context.Context, frame gateway.Frame, err error) {
	actionErr := &gateway.ActionError{
		Tag:     frame.Tag,
		ShardID: frame.ShardID,
		Err:     err,
	}
	c.logger.DebugContext(ctx, "gateway action fault",
		"tag", frame.Tag,
		"shard_id", frame.ShardID,
		"error", err,
	)
	if emitErr := c.emit(ctx, frame, gateway.EventError, actionErr); emitErr != nil {
		c.logger.ErrorContext(ctx, "gateway action fault not delivered",
			"tag", frame.Tag,
			"error", errors.Join(actionErr, emitErr),
		)
	}
}

func (c *Client) buildChannel(raw gateway.Payload) model.Channel {
	return c.kinds.Build(raw, c.caching)
}

// guild resolves the guild referenced by key in frame's payload.
func (c *Client) guild(frame gateway.Frame, key string) (*model.Guild, bool) {
	guildID := frame.Payload.String(key)
	if guildID == "" {
		return nil, false
	}

	return c.guilds.Get(guildID)
}

// textChannel resolves a cached channel that carries messages.
func (c *Client) textChannel(channelID string) (model.TextBased, bool) {
	channel, found := c.channels.Get(channelID)
	if !found {
		return nil, false
	}
	text, ok := channel.(model.TextBased)

	return text, ok
}

// message resolves a cached message by channel and id.
func (c *Client) message(channelID string, messageID string) (*model.Message, bool) {
	channel, found := c.textChannel(channelID)
	if !found {
		return nil, false
	}

	return channel.Messages().Get(messageID)
}

// ensureUser upserts the user object at key when it carries an id.
func (c *Client) ensureUser(raw gateway.Payload, key string) (*model.User, bool) {
	userRaw, ok := raw.Object(key)
	if !ok || userRaw.String("id") == "" {
		return nil, false
	}

	return c.users.Ensure(userRaw), true
}

// cacheChannel places channel into the client store and, for guild
// channels, into the owning guild.
func (c *Client) cacheChannel(channel model.Channel) {
	if !c.caching.Enabled {
		return
	}
	c.channels.Set(channel.ID(), channel)
	guildChannel, ok := channel.(model.GuildBased)
	if !ok {
		return
	}
	if guild, found := c.guilds.Get(guildChannel.GuildID()); found {
		guild.Channels.Set(channel.ID(), channel)
	}
}

// evictChannel removes channel from every store that holds it.
func (c *Client) evictChannel(channel model.Channel) {
	c.channels.Delete(channel.ID())
	guildChannel, ok := channel.(model.GuildBased)
	if !ok {
		return
	}
	if guild, found := c.guilds.Get(guildChannel.GuildID()); found {
		guild.Channels.Delete(channel.ID())
	}
}
