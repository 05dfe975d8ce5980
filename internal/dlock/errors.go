package dlock

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidArgument is returned for malformed input, before the store is contacted
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLockUnobtainable matches every UnobtainableError
	ErrLockUnobtainable = errors.New("lock unobtainable")
)

// StoreError wraps a failure of the underlying store
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// UnobtainableError is returned by Optimistic once every attempt found the lock held
type UnobtainableError struct {
	Resource    string
	TTL         time.Duration
	MaxAttempts int
	Wait        time.Duration
}

func (e *UnobtainableError) Error() string {
	return fmt.Sprintf("unable to obtain lock for %q after %d attempts (ttl=%s, wait=%s)",
		e.Resource, e.MaxAttempts, e.TTL, e.Wait)
}

func (e *UnobtainableError) Is(target error) bool {
	return target == ErrLockUnobtainable
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
