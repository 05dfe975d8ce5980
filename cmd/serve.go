package cmd

/*
Copyright © 2024 Ganeshdip Dumbare <ganeshdip.dumbare@gmail.com>
*/

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"locksmith/config"
	"locksmith/internal/api/rest"
	"locksmith/internal/metrics"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lock REST API server",
	Long: `This command connects to Redis and starts the REST API server.
Locks can be acquired, released, extended and inspected over HTTP.
Prometheus metrics are served on /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Create logger instance first for early logging
		logger := newLogger(slog.LevelDebug)

		logger.Info("Starting locksmith",
			"version", Version,
			"command", "serve",
		)

		// Load the configuration with detailed logging
		config, err := config.LoadConfig()
		if err != nil {
			logger.Error("Failed to load configuration",
				"error", err,
				"error_type", fmt.Sprintf("%T", err),
			)
			os.Exit(1)
		}

		// Switch to the configured level once the configuration is known
		logger = newLogger(config.LogLevel)
		gin.SetMode(config.GinMode)

		logger.Info("Configuration loaded",
			"server_port", config.ServerPort,
			"key_prefix", config.KeyPrefix,
			"lock_ttl", config.LockTTL,
			"events_enabled", config.EventsEnabled(),
			"trace_stdout", config.TraceStdout,
		)

		shutdownTracing, err := setupTracing(config.TraceStdout)
		if err != nil {
			logger.Error("Failed to set up tracing", "error", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(ctx); err != nil {
				logger.Warn("Failed to flush traces", "error", err)
			}
		}()

		// Create distributed lock
		locker, err := newLocker(cmd.Context(), config, logger)
		if err != nil {
			logger.Error("Failed to create distributed lock",
				"error", err,
			)
			os.Exit(1)
		}
		defer locker.Close()

		// Create metrics
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		recorder := metrics.NewRecorder(registry)

		opts := []rest.ApiOption{rest.WithMetrics(registry, recorder)}

		// Create publisher
		events, err := newEventEmitter(config, logger)
		if err != nil {
			logger.Error("Failed to create publisher",
				"error", err,
				"kafka_brokers", config.KafkaBrokers,
			)
			os.Exit(1)
		}
		if events != nil {
			defer events.Close(context.Background())
			opts = append(opts, rest.WithEvents(events))
		}

		// Create a new rest api instance
		api, err := rest.NewApi(logger, config.ServerPort, locker, rest.LockDefaults{
			TTL:                  config.LockTTL,
			Wait:                 config.RetryWait,
			AcquireWarnThreshold: config.AcquireWarnThreshold,
		}, opts...)
		if err != nil {
			logger.Error("Failed to create new rest api",
				"error", err,
				"server_port", config.ServerPort,
			)
			os.Exit(1)
		}

		// Start the rest server
		if err := api.StartServer(); err != nil {
			logger.Error("Server stopped with error", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
