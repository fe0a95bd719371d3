package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
	"time"

	"ex-otogi-gateway/internal/transport/websocket"
	"ex-otogi-gateway/pkg/client"
	"ex-otogi-gateway/pkg/gateway"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const metricsPath = "/metrics"

type appConfig struct {
	URL             string        `env:"GATEWAY_URL" envDefault:"wss://gateway.discord.gg/?v=10&encoding=json"`
	Token           string        `env:"GATEWAY_TOKEN,required,unset"`
	Intents         int           `env:"GATEWAY_INTENTS" envDefault:"513"`
	Shards          int           `env:"GATEWAY_SHARDS" envDefault:"1"`
	LogLevel        string        `env:"GATEWAY_LOG_LEVEL" envDefault:"info"`
	MetricsAddr     string        `env:"GATEWAY_METRICS_ADDR" envDefault:":9090"`
	ShutdownTimeout time.Duration `env:"GATEWAY_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Cache           client.Config

	logLevel slog.Level
}

func run() error {
	cfg, err := loadAppConfig(nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.logLevel}))
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gatewayClient, err := client.New(
		client.WithConfig(cfg.Cache),
		client.WithLogger(logger),
		client.WithMetricsRegisterer(registry),
	)
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}
	defer func() {
		if closeErr := gatewayClient.Close(); closeErr != nil {
			logger.Error("close client failed", "error", closeErr)
		}
	}()

	shards, err := buildShards(logger, cfg)
	if err != nil {
		return err
	}
	for _, shard := range shards {
		gatewayClient.AttachShard(shard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := gatewayClient.Subscribe(ctx, gateway.SubscriptionSpec{Name: "gatewaycat"}, logEvents(logger)); err != nil {
		return fmt.Errorf("subscribe event log: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, shard := range shards {
		group.Go(func() error {
			return gatewayClient.Run(groupCtx, shard)
		})
	}
	if cfg.MetricsAddr != "" {
		serveMetrics(groupCtx, group, logger, registry, cfg)
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run gateway: %w", err)
	}

	return nil
}

// loadAppConfig reads the process environment when environment is nil.
func loadAppConfig(environment map[string]string) (appConfig, error) {
	var cfg appConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return appConfig{}, fmt.Errorf("parse environment: %w", err)
	}

	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return appConfig{}, fmt.Errorf("GATEWAY_LOG_LEVEL: %w", err)
	}
	cfg.logLevel = level

	if cfg.Shards < 1 {
		return appConfig{}, fmt.Errorf("GATEWAY_SHARDS: %d must be positive", cfg.Shards)
	}
	if cfg.ShutdownTimeout <= 0 {
		return appConfig{}, fmt.Errorf("GATEWAY_SHUTDOWN_TIMEOUT: %s must be positive", cfg.ShutdownTimeout)
	}
	if err := cfg.Cache.Validate(); err != nil {
		return appConfig{}, err
	}

	return cfg, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported level %q", raw)
	}
}

func buildShards(logger *slog.Logger, cfg appConfig) ([]*websocket.Shard, error) {
	shards := make([]*websocket.Shard, 0, cfg.Shards)
	for id := 0; id < cfg.Shards; id++ {
		shard, err := websocket.New(websocket.Config{
			URL:        cfg.URL,
			Token:      cfg.Token,
			Intents:    cfg.Intents,
			ShardID:    id,
			ShardCount: cfg.Shards,
		}, websocket.WithLogger(logger.With("component", "shard")))
		if err != nil {
			return nil, fmt.Errorf("build shard %d: %w", id, err)
		}
		shards = append(shards, shard)
	}

	return shards, nil
}

func serveMetrics(
	ctx context.Context,
	group *errgroup.Group,
	logger *slog.Logger,
	registry *prometheus.Registry,
	cfg appConfig,
) {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	server := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	group.Go(func() error {
		logger.Info("metrics server listening", "addr", cfg.MetricsAddr, "path", metricsPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve metrics: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	})
}

// logEvents logs every emitted event with a short description of its args.
func logEvents(logger *slog.Logger) gateway.Listener {
	return func(ctx context.Context, event *gateway.Event) error {
		logger.InfoContext(ctx, "gateway event",
			"event", event.Name,
			"shard_id", event.ShardID,
			"args", describeArgs(event.Args),
		)
		return nil
	}
}

type identified interface {
	ID() string
}

func describeArgs(args []any) []string {
	described := make([]string, 0, len(args))
	for _, arg := range args {
		switch value := arg.(type) {
		case nil:
			described = append(described, "nil")
		case identified:
			if isNilPointer(value) {
				described = append(described, fmt.Sprintf("%T(nil)", value))
				continue
			}
			described = append(described, fmt.Sprintf("%T(%s)", value, value.ID()))
		case error:
			described = append(described, value.Error())
		default:
			described = append(described, fmt.Sprintf("%T", value))
		}
	}

	return described
}

func isNilPointer(value any) bool {
	reflected := reflect.ValueOf(value)
	return reflected.Kind() == reflect.Pointer && reflected.IsNil()
}
