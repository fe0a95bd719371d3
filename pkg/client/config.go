package client

import (
	"fmt"
	"time"

	"ex-otogi-gateway/pkg/model"

	"github.com/caarlos0/env/v11"
)

const (
	defaultMessageCacheLimit      = 200
	defaultMemberChunkIdleTimeout = 2 * time.Minute
)

// Config is the cache configuration surface. Limits of zero or less mean
// unbounded.
type Config struct {
	// CacheEnabled gates insertion of newly built entities into every store.
	CacheEnabled bool `env:"GATEWAY_CACHE_ENABLED" envDefault:"true"`
	// MessageCacheLimit bounds each text channel's message store.
	MessageCacheLimit int `env:"GATEWAY_MESSAGE_CACHE_LIMIT" envDefault:"200"`
	// MemberCacheLimit bounds each guild's member store.
	MemberCacheLimit int `env:"GATEWAY_MEMBER_CACHE_LIMIT" envDefault:"0"`
	// UserCacheLimit bounds the client user store.
	UserCacheLimit int `env:"GATEWAY_USER_CACHE_LIMIT" envDefault:"0"`
	// PresenceCacheLimit bounds each guild's presence store.
	PresenceCacheLimit int `env:"GATEWAY_PRESENCE_CACHE_LIMIT" envDefault:"0"`
	// MemberChunkIdleTimeout aborts member requests that receive no chunk for
	// this long.
	MemberChunkIdleTimeout time.Duration `env:"GATEWAY_MEMBER_CHUNK_IDLE_TIMEOUT" envDefault:"2m"`
}

// DefaultConfig returns the configuration used when no Config is supplied.
func DefaultConfig() Config {
	return Config{
		CacheEnabled:           true,
		MessageCacheLimit:      defaultMessageCacheLimit,
		MemberChunkIdleTimeout: defaultMemberChunkIdleTimeout,
	}
}

// LoadConfig reads Config from the process environment.
func LoadConfig() (Config, error) {
	return parseConfig(env.Options{})
}

// LoadConfigFrom reads Config from the supplied variables instead of the
// process environment.
func LoadConfigFrom(environment map[string]string) (Config, error) {
	return parseConfig(env.Options{Environment: environment})
}

func parseConfig(options env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, options); err != nil {
		return Config{}, fmt.Errorf("parse gateway config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks configuration consistency.
func (c Config) Validate() error {
	if c.MemberChunkIdleTimeout <= 0 {
		return fmt.Errorf("validate gateway config: member chunk idle timeout must be > 0")
	}

	return nil
}

// Caching converts the configuration into entity store settings.
func (c Config) Caching() model.Caching {
	return model.Caching{
		Enabled:       c.CacheEnabled,
		MemberLimit:   c.MemberCacheLimit,
		PresenceLimit: c.PresenceCacheLimit,
		MessageLimit:  c.MessageCacheLimit,
	}
}
