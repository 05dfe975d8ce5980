package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"locksmith/internal/dlock"
	"locksmith/internal/metrics"
	"locksmith/internal/pubsub"
)

const (
	nilArgErr   = "nil %v not allowed"
	emptyArgErr = "empty %v not allowed"
)

//go:generate go run github.com/swaggo/swag/cmd/swag@v1.8.12 init -g rest.go -o ../../../docs

// @title Locksmith distributed lock API
// @version 1.0
// @description HTTP access to Redis backed distributed locks
// @description
// @description Endpoints:
// @description - POST /locks/{resource}: Acquire a lock
// @description - DELETE /locks/{resource}: Release a lock
// @description - PUT /locks/{resource}/ttl: Extend a lock
// @description - GET /locks/{resource}: Inspect a lock
// @description - GET /health: Check service health

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// RestApi defines methods to handle rest server
type RestApi interface {
	StartServer() error
}

// LockDefaults are applied to requests that omit lock parameters
type LockDefaults struct {
	TTL  time.Duration
	Wait time.Duration

	// AcquireWarnThreshold marks acquisitions slower than it in metrics
	AcquireWarnThreshold time.Duration
}

// ApiOption configures optional api features
type ApiOption func(*apiDetails)

// WithMetrics records lock outcomes on rec and serves gatherer on /metrics
func WithMetrics(gatherer prometheus.Gatherer, rec *metrics.Recorder) ApiOption {
	return func(api *apiDetails) {
		api.gatherer = gatherer
		api.metrics = rec
	}
}

type apiDetails struct {
	logger   *slog.Logger
	server   *http.Server
	locker   dlock.DistributedLock
	defaults LockDefaults
	gatherer prometheus.Gatherer
	metrics  *metrics.Recorder
	events   *pubsub.EventEmitter
}

// WithEvents publishes lock lifecycle events for api driven transitions
func WithEvents(emitter *pubsub.EventEmitter) ApiOption {
	return func(api *apiDetails) {
		api.events = emitter
	}
}

// NewApi creates new api instance, otherwise returns error
func NewApi(logger *slog.Logger, port string, locker dlock.DistributedLock, defaults LockDefaults, opts ...ApiOption) (RestApi, error) {
	if logger == nil {
		return nil, fmt.Errorf(nilArgErr, "logger")
	}

	if port == "" {
		return nil, fmt.Errorf(emptyArgErr, "port")
	}

	if locker == nil {
		return nil, fmt.Errorf(nilArgErr, "locker")
	}

	if defaults.TTL <= 0 {
		return nil, fmt.Errorf(emptyArgErr, "default lock ttl")
	}

	api := &apiDetails{
		logger:   logger,
		locker:   locker,
		defaults: defaults,
	}
	for _, opt := range opts {
		opt(api)
	}

	// Ensure correct server address format
	serverAddr := port
	if !strings.Contains(serverAddr, ":") {
		serverAddr = ":" + serverAddr
	}

	api.server = &http.Server{
		Addr:              serverAddr,
		Handler:           api.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return api, nil
}

// StartServer starts the rest server
// it listens for a kill signal to stop the server gracefully
func (api *apiDetails) StartServer() error {
	// Create channel for server errors
	serverErrChan := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		api.logger.Info("Starting server",
			"address", api.server.Addr,
		)
		if err := api.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("server listen error: %w", err)
		}
	}()

	// Create a channel to receive OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	// Wait for either server error or shutdown signal
	select {
	case err := <-serverErrChan:
		api.logger.Error("Server startup failed", "error", err)
		return err
	case sig := <-stop:
		api.logger.Info("Shutdown signal received",
			"signal", sig,
		)

		// Create a context with timeout for graceful shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Shutdown HTTP server
		if err := api.server.Shutdown(ctx); err != nil {
			api.logger.Error("Server shutdown failed", "error", err)
			return err
		}

		api.logger.Info("Server stopped")
	}

	return nil
}
