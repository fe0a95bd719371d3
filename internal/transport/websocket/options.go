package websocket

import (
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	gws "github.com/gorilla/websocket"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	defaultInitialBackoff   = time.Second
	defaultMaxBackoff       = 2 * time.Minute
	defaultClientName       = "ex-otogi-gateway"
)

// config stores resolved shard settings after option application.
type config struct {
	logger           *slog.Logger
	dialer           *gws.Dialer
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	newBackoff       func() backoff.BackOff
	clientName       string
}

// Option mutates shard construction configuration.
type Option func(*config)

func defaultConfig() config {
	return config{
		logger:           slog.Default(),
		dialer:           gws.DefaultDialer,
		handshakeTimeout: defaultHandshakeTimeout,
		writeTimeout:     defaultWriteTimeout,
		newBackoff: func() backoff.BackOff {
			policy := backoff.NewExponentialBackOff()
			policy.InitialInterval = defaultInitialBackoff
			policy.MaxInterval = defaultMaxBackoff
			policy.MaxElapsedTime = 0
			return policy
		},
		clientName: defaultClientName,
	}
}

// WithLogger configures connection lifecycle logging.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(dialer *gws.Dialer) Option {
	return func(cfg *config) {
		if dialer != nil {
			cfg.dialer = dialer
		}
	}
}

// WithHandshakeTimeout bounds the wait for the hello packet.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		if timeout > 0 {
			cfg.handshakeTimeout = timeout
		}
	}
}

// WithWriteTimeout bounds packet writes without a context deadline.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		if timeout > 0 {
			cfg.writeTimeout = timeout
		}
	}
}

// WithBackoff configures the reconnect policy. newBackoff is called once per
// Consume; a policy returning backoff.Stop ends Consume with an error.
func WithBackoff(newBackoff func() backoff.BackOff) Option {
	return func(cfg *config) {
		if newBackoff != nil {
			cfg.newBackoff = newBackoff
		}
	}
}

// WithClientName sets the identify properties browser and device names.
func WithClientName(name string) Option {
	return func(cfg *config) {
		if name != "" {
			cfg.clientName = name
		}
	}
}
