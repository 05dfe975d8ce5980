package dlock

import (
	"context"
	"log/slog"
	"time"
)

// keySuffix is appended to every resource name to form the store key
const keySuffix = ":lock"

// DistributedLock represents an interface for distributed locking
//
//go:generate go run go.uber.org/mock/mockgen@latest -source=dlock.go -destination=../../mocks/mock_dlock.go -package=mocks
type DistributedLock interface {
	// MakeKey returns the store key used for resource
	MakeKey(resource string) string

	// Lock makes a single attempt to acquire the lock.
	// A lock held by someone else is reported as acquired=false, not as an error.
	Lock(ctx context.Context, resource string, ttl time.Duration) (token string, acquired bool, err error)

	// Unlock releases the lock if token still owns it.
	// It returns 1 if the lock was released and 0 otherwise.
	Unlock(ctx context.Context, resource, token string) (int64, error)

	// Touch resets the lock expiry to ttl if token still owns it.
	// It returns 1 if the lease was extended and 0 otherwise.
	Touch(ctx context.Context, resource, token string, ttl time.Duration) (int64, error)

	// Optimistic retries Lock up to maxAttempts times, waiting between attempts
	Optimistic(ctx context.Context, resource string, ttl time.Duration, maxAttempts int, wait time.Duration) (string, error)

	// Inspect reports whether the lock is held and for how long
	Inspect(ctx context.Context, resource string) (State, error)

	// Close releases the underlying store connection
	Close() error
}

// State is a point in time view of a lock, for observers only
type State struct {
	Resource string
	Key      string
	Held     bool
	TTL      time.Duration
}

// LockOption allows configuring lock behavior
type LockOption func(*lockConfig)

type lockConfig struct {
	prefix    string
	tokenFunc func() string
	logger    *slog.Logger
}

// WithPrefix sets a namespace prepended to every lock key
func WithPrefix(prefix string) LockOption {
	return func(cfg *lockConfig) {
		cfg.prefix = prefix
	}
}

// WithTokenFunc overrides the ownership token generator
func WithTokenFunc(fn func() string) LockOption {
	return func(cfg *lockConfig) {
		if fn != nil {
			cfg.tokenFunc = fn
		}
	}
}

// WithLogger sets the logger used for retry diagnostics
func WithLogger(logger *slog.Logger) LockOption {
	return func(cfg *lockConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// MakeKey derives the store key for resource under prefix
func MakeKey(prefix, resource string) string {
	return prefix + resource + keySuffix
}
