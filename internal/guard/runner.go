package guard

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"locksmith/internal/dlock"
	"locksmith/internal/metrics"
	"locksmith/internal/pubsub"
)

const nilArgErr = "nil %v not allowed"

var tracer = otel.Tracer("locksmith/internal/guard")

// Runner executes units of work while holding a distributed lock
type Runner struct {
	locker  dlock.DistributedLock
	logger  Logger
	cfg     Config
	metrics *metrics.Recorder
	events  *pubsub.EventEmitter
}

// NewRunner creates a Runner acquiring locks through locker
func NewRunner(locker dlock.DistributedLock, logger Logger, opts ...Option) (*Runner, error) {
	if locker == nil {
		return nil, fmt.Errorf(nilArgErr, "locker")
	}
	if logger == nil {
		return nil, fmt.Errorf(nilArgErr, "logger")
	}

	r := &Runner{
		locker: locker,
		logger: logger,
	}
	r.cfg.setDefaults()
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Do runs fn while holding the lock on resource. See Run.
func (r *Runner) Do(ctx context.Context, resource string, ttl time.Duration, fn func(context.Context) error, opts ...RunOption) error {
	_, err := run(ctx, r, callerOf(2), resource, ttl, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, opts...)
	return err
}

// Quit closes the store connection behind the lock
func (r *Runner) Quit() error {
	return r.locker.Close()
}

// Run acquires the lock on resource, runs fn and releases the lock.
//
// If the lock cannot be acquired fn is never called and the acquisition error
// is returned. Otherwise the lock is released on every exit path of fn, panics
// included, before fn's result or error is returned. When fn fails and the
// release fails too, fn's error wins and the release failure is logged. When
// only the release fails, the result is returned along with a *ReleaseError.
func Run[T any](ctx context.Context, r *Runner, resource string, ttl time.Duration, fn func(context.Context) (T, error), opts ...RunOption) (T, error) {
	return run(ctx, r, callerOf(2), resource, ttl, fn, opts...)
}

func run[T any](ctx context.Context, r *Runner, caller, resource string, ttl time.Duration, fn func(context.Context) (T, error), opts ...RunOption) (T, error) {
	var zero T

	settings := runSettings{maxAttempts: r.cfg.MaxAttempts, wait: r.cfg.Wait}
	for _, opt := range opts {
		opt(&settings)
	}

	ctx, span := tracer.Start(ctx, "guard.acquire_and_run", trace.WithAttributes(
		attribute.String("dlock.resource", resource),
		attribute.Int64("dlock.ttl_ms", ttl.Milliseconds()),
	))
	defer span.End()

	key := r.locker.MakeKey(resource)
	start := time.Now()
	r.logger.Debug("lock acquisition starting",
		"resource", resource,
		"key", key,
		"caller", caller,
		"max_attempts", settings.maxAttempts,
		"wait", settings.wait,
	)

	token, err := r.locker.Optimistic(ctx, resource, ttl, settings.maxAttempts, settings.wait)
	acquireElapsed := time.Since(start)
	if err != nil {
		r.logger.Error("lock acquisition failed",
			"resource", resource,
			"key", key,
			"caller", caller,
			"elapsed", acquireElapsed,
			"error", err,
		)
		if errors.Is(err, dlock.ErrLockUnobtainable) {
			r.metrics.ObserveAcquire(metrics.OutcomeUnobtainable, acquireElapsed, false)
			r.emit(ctx, pubsub.EventUnobtainable, resource, key, acquireElapsed)
		} else {
			r.metrics.ObserveAcquire(metrics.OutcomeError, acquireElapsed, false)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock acquisition failed")
		return zero, err
	}

	slowAcquire := acquireElapsed > r.cfg.AcquireWarnThreshold
	if slowAcquire {
		r.logger.Warn("lock acquisition exceeded threshold",
			"resource", resource,
			"key", key,
			"caller", caller,
			"elapsed", acquireElapsed,
			"threshold", r.cfg.AcquireWarnThreshold,
		)
	} else {
		r.logger.Debug("lock acquired",
			"resource", resource,
			"key", key,
			"caller", caller,
			"elapsed", acquireElapsed,
		)
	}
	r.metrics.ObserveAcquire(metrics.OutcomeAcquired, acquireElapsed, slowAcquire)
	r.emit(ctx, pubsub.EventAcquired, resource, key, acquireElapsed)
	span.AddEvent("lock acquired")

	acquiredAt := time.Now()
	l := lease{resource: resource, key: key, token: token, ttl: ttl, caller: caller}
	result, err := runLocked(ctx, r, l, settings.keepAlive, fn)

	held := time.Since(acquiredAt)
	slowTask := held > r.cfg.ExecWarnThreshold
	if slowTask {
		r.logger.Warn("task exceeded threshold",
			"resource", resource,
			"key", key,
			"caller", caller,
			"elapsed", held,
			"threshold", r.cfg.ExecWarnThreshold,
		)
	}
	r.metrics.ObserveHold(held, slowTask)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

// runLocked calls fn and releases the lock from a deferred scope so the
// release also happens when fn panics
func runLocked[T any](ctx context.Context, r *Runner, l lease, keepAlive time.Duration, fn func(context.Context) (T, error)) (result T, err error) {
	stopRenewal := func() {}
	if keepAlive > 0 {
		stopRenewal = r.renew(ctx, l, keepAlive)
	}

	defer func() {
		stopRenewal()
		releaseErr := r.release(ctx, l.caller, l.resource, l.key, l.token, err)
		if releaseErr != nil && err == nil {
			err = &ReleaseError{Resource: l.resource, Err: releaseErr}
		}
	}()

	return fn(ctx)
}

// lease identifies a held lock for renewal and release
type lease struct {
	resource string
	key      string
	token    string
	ttl      time.Duration
	caller   string
}

// renew touches the lock every interval until the returned stop function is called
// or the lease turns out to be lost. stop waits for the renewal loop to exit.
func (r *Runner) renew(ctx context.Context, l lease, interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			n, err := r.locker.Touch(ctx, l.resource, l.token, l.ttl)
			switch {
			case ctx.Err() != nil:
				return
			case err != nil:
				r.logger.Warn("lock renewal failed",
					"resource", l.resource,
					"key", l.key,
					"caller", l.caller,
					"error", err,
				)
			case n == 0:
				r.logger.Warn("lock lost during work",
					"resource", l.resource,
					"key", l.key,
					"caller", l.caller,
				)
				return
			default:
				r.logger.Debug("lock renewed",
					"resource", l.resource,
					"key", l.key,
					"ttl", l.ttl,
				)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (r *Runner) release(ctx context.Context, caller, resource, key, token string, workErr error) error {
	// the caller's context may already be done; the lock must still be released
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.ReleaseTimeout)
	defer cancel()

	start := time.Now()
	n, err := r.locker.Unlock(releaseCtx, resource, token)
	r.metrics.ObserveRelease(n == 1, err)

	switch {
	case err != nil:
		args := []any{
			"resource", resource,
			"key", key,
			"caller", caller,
			"error", err,
		}
		if workErr != nil {
			args = append(args, "work_error", workErr)
		}
		r.logger.Error("lock release failed", args...)
		return err
	case n == 0:
		r.logger.Warn("lock lost before release",
			"resource", resource,
			"key", key,
			"caller", caller,
		)
	default:
		r.logger.Debug("lock released",
			"resource", resource,
			"key", key,
			"caller", caller,
			"elapsed", time.Since(start),
		)
		r.emit(ctx, pubsub.EventReleased, resource, key, time.Since(start))
	}
	return nil
}

func (r *Runner) emit(ctx context.Context, typ pubsub.EventType, resource, key string, elapsed time.Duration) {
	if r.events == nil {
		return
	}
	event := pubsub.LockEvent{
		Type:      typ,
		Resource:  resource,
		Key:       key,
		At:        time.Now().UTC(),
		ElapsedMs: elapsed.Milliseconds(),
	}
	if err := r.events.Emit(context.WithoutCancel(ctx), event); err != nil {
		r.logger.Warn("lock event publish failed",
			"resource", resource,
			"type", string(typ),
			"error", err,
		)
	}
}

func callerOf(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
