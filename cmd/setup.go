package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"locksmith/config"
	"locksmith/internal/dlock"
	"locksmith/internal/pubsub"
	"locksmith/internal/store"
)

// newLogger creates the JSON logger used by every command
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// setupTracing installs a stdout span exporter when enabled.
// The returned function flushes and stops the provider.
func setupTracing(enabled bool) (func(context.Context) error, error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint(), stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// newLocker connects to the lock store, registers the scripts and returns the lock
func newLocker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (dlock.DistributedLock, error) {
	redisStore, err := store.NewRedisStoreFromURL(cfg.RedisURL, cfg.TraceStdout)
	if err != nil {
		return nil, err
	}

	if err := redisStore.Ping(ctx); err != nil {
		_ = redisStore.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	if err := redisStore.Load(ctx); err != nil {
		_ = redisStore.Close()
		return nil, err
	}

	return dlock.NewStoreLock(redisStore,
		dlock.WithPrefix(cfg.KeyPrefix),
		dlock.WithLogger(logger),
	), nil
}

// newEventEmitter returns nil when no kafka brokers are configured
func newEventEmitter(cfg *config.Config, logger *slog.Logger) (*pubsub.EventEmitter, error) {
	if !cfg.EventsEnabled() {
		return nil, nil
	}

	publisher, err := pubsub.NewKafkaWatermillPublisher(logger, cfg.KafkaBrokers)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	return pubsub.NewEventEmitter(publisher, cfg.EventsTopic), nil
}
