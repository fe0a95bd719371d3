package client

import (
	"log/slog"
	"time"

	"ex-otogi-gateway/pkg/gateway"
	"ex-otogi-gateway/pkg/model"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// config stores resolved client settings after option application.
type config struct {
	cache          Config
	logger         *slog.Logger
	emitter        gateway.Emitter
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
	builtins       bool
	pieces         []Piece
	channelKinds   map[model.ChannelType]model.ChannelConstructor
}

// Option mutates client construction configuration.
type Option func(*config)

// defaultConfig returns production defaults.
func defaultConfig() config {
	return config{
		cache:          DefaultConfig(),
		logger:         slog.Default(),
		tracerProvider: otel.GetTracerProvider(),
		builtins:       true,
		channelKinds:   make(map[model.ChannelType]model.ChannelConstructor),
	}
}

// WithConfig replaces the cache configuration.
func WithConfig(cfg Config) Option {
	return func(c *config) {
		c.cache = cfg
	}
}

// WithCacheEnabled toggles insertion of newly built entities.
func WithCacheEnabled(enabled bool) Option {
	return func(c *config) {
		c.cache.CacheEnabled = enabled
	}
}

// WithMemberChunkIdleTimeout configures how long FetchMembers waits between chunks.
func WithMemberChunkIdleTimeout(timeout time.Duration) Option {
	return func(c *config) {
		if timeout > 0 {
			c.cache.MemberChunkIdleTimeout = timeout
		}
	}
}

// WithLogger configures the logger used for dispatch diagnostics and fault reports.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEmitter replaces the default synchronous emitter.
func WithEmitter(emitter gateway.Emitter) Option {
	return func(c *config) {
		if emitter != nil {
			c.emitter = emitter
		}
	}
}

// WithMetricsRegisterer registers dispatch collectors on registerer.
func WithMetricsRegisterer(registerer prometheus.Registerer) Option {
	return func(c *config) {
		c.registerer = registerer
	}
}

// WithTracerProvider configures the provider used for dispatch spans.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(c *config) {
		if provider != nil {
			c.tracerProvider = provider
		}
	}
}

// WithoutBuiltinActions skips loading the builtin action table.
func WithoutBuiltinActions() Option {
	return func(c *config) {
		c.builtins = false
	}
}

// WithPieces loads additional pieces after the builtin table.
func WithPieces(pieces ...Piece) Option {
	return func(c *config) {
		c.pieces = append(c.pieces, pieces...)
	}
}

// WithChannelKind registers a constructor for a channel type. Registering a
// builtin kind makes New fail with gateway.ErrChannelKindRegistered.
func WithChannelKind(kind model.ChannelType, constructor model.ChannelConstructor) Option {
	return func(c *config) {
		c.channelKinds[kind] = constructor
	}
}
