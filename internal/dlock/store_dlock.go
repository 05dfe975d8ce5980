package dlock

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"locksmith/internal/store"
)

// storeLock implements DistributedLock on top of a store.Store
type storeLock struct {
	store  store.Store
	prefix string
	token  func() string
	logger *slog.Logger
}

// NewStoreLock creates a new lock primitive sharing the given store connection
func NewStoreLock(s store.Store, opts ...LockOption) *storeLock {
	cfg := &lockConfig{
		tokenFunc: uuid.NewString,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &storeLock{
		store:  s,
		prefix: cfg.prefix,
		token:  cfg.tokenFunc,
		logger: cfg.logger,
	}
}

func (l *storeLock) MakeKey(resource string) string {
	return MakeKey(l.prefix, resource)
}

// Lock attempts to acquire the lock once
func (l *storeLock) Lock(ctx context.Context, resource string, ttl time.Duration) (string, bool, error) {
	if err := validateResource(resource); err != nil {
		return "", false, err
	}
	if err := validateTTL(ttl); err != nil {
		return "", false, err
	}

	key := l.MakeKey(resource)
	token := l.token()

	acquired, err := l.store.SetIfAbsent(ctx, key, token, ttl)
	if err != nil {
		return "", false, &StoreError{Op: "lock", Key: key, Err: err}
	}
	if !acquired {
		return "", false, nil
	}
	return token, true, nil
}

// Unlock releases the lock if token still owns it
func (l *storeLock) Unlock(ctx context.Context, resource, token string) (int64, error) {
	if err := validateResource(resource); err != nil {
		return 0, err
	}
	if err := validateToken(token); err != nil {
		return 0, err
	}

	key := l.MakeKey(resource)
	n, err := l.store.CompareAndDelete(ctx, key, token)
	if err != nil {
		return 0, &StoreError{Op: "unlock", Key: key, Err: err}
	}
	return n, nil
}

// Touch extends the lease if token still owns it
func (l *storeLock) Touch(ctx context.Context, resource, token string, ttl time.Duration) (int64, error) {
	if err := validateResource(resource); err != nil {
		return 0, err
	}
	if err := validateToken(token); err != nil {
		return 0, err
	}
	if err := validateTTL(ttl); err != nil {
		return 0, err
	}

	key := l.MakeKey(resource)
	n, err := l.store.CompareAndExtend(ctx, key, token, ttl)
	if err != nil {
		return 0, &StoreError{Op: "touch", Key: key, Err: err}
	}
	return n, nil
}

// Optimistic polls Lock at a fixed interval until it wins or runs out of attempts.
// Cancelling ctx stops the polling, but an attempt already sent to the store
// may still take the lock, which then lives until its ttl runs out.
func (l *storeLock) Optimistic(ctx context.Context, resource string, ttl time.Duration, maxAttempts int, wait time.Duration) (string, error) {
	if maxAttempts < 1 {
		return "", invalidArgument("maxAttempts must be at least 1, got %d", maxAttempts)
	}
	if wait < 0 {
		return "", invalidArgument("wait must not be negative, got %s", wait)
	}

	for attempt := 1; ; attempt++ {
		token, acquired, err := l.Lock(ctx, resource, ttl)
		if err != nil {
			return "", err
		}
		if acquired {
			return token, nil
		}
		if attempt >= maxAttempts {
			break
		}

		l.logger.Debug("Lock is held elsewhere, retrying",
			"resource", resource,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"wait", wait,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	return "", &UnobtainableError{
		Resource:    resource,
		TTL:         ttl,
		MaxAttempts: maxAttempts,
		Wait:        wait,
	}
}

// Inspect reads the lock entry without touching it
func (l *storeLock) Inspect(ctx context.Context, resource string) (State, error) {
	if err := validateResource(resource); err != nil {
		return State{}, err
	}

	key := l.MakeKey(resource)
	state := State{Resource: resource, Key: key}

	ttl, err := l.store.RemainingTTL(ctx, key)
	if err != nil {
		return state, &StoreError{Op: "ttl", Key: key, Err: err}
	}
	if ttl == store.Missing {
		return state, nil
	}
	state.Held = true
	state.TTL = ttl
	return state, nil
}

// Close closes the shared store connection
func (l *storeLock) Close() error {
	return l.store.Close()
}
