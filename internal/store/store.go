package store

import (
	"context"
	"time"
)

const (
	// NoExpiry is returned by RemainingTTL for a key that exists without an expiry
	NoExpiry time.Duration = -1

	// Missing is returned by RemainingTTL for an absent key
	Missing time.Duration = -2
)

// Store defines the atomic key-value operations the lock protocol is built on
//
//go:generate go run go.uber.org/mock/mockgen@latest -source=store.go -destination=../../mocks/mock_store.go -package=mocks
type Store interface {
	// SetIfAbsent writes value under key with the given expiry only if key is absent.
	// It reports whether the write happened.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// CompareAndDelete deletes key if its value equals value, atomically on the server.
	// It returns 1 if the key was deleted and 0 otherwise.
	CompareAndDelete(ctx context.Context, key, value string) (int64, error)

	// CompareAndExtend sets the expiry of key to ttl if its value equals value,
	// atomically on the server. It returns 1 on success and 0 otherwise.
	CompareAndExtend(ctx context.Context, key, value string, ttl time.Duration) (int64, error)

	// RemainingTTL returns the time left before key expires in a single read.
	// It returns Missing if the key is absent and NoExpiry if it never expires.
	RemainingTTL(ctx context.Context, key string) (time.Duration, error)

	// Close releases the underlying connection
	Close() error
}
