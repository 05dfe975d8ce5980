package guard

import (
	"time"

	"locksmith/internal/metrics"
	"locksmith/internal/pubsub"
)

const (
	DefaultMaxAttempts          = 1000
	DefaultWait                 = 10 * time.Millisecond
	DefaultAcquireWarnThreshold = time.Second
	DefaultExecWarnThreshold    = 5 * time.Second
	DefaultReleaseTimeout       = 5 * time.Second
)

// Config holds the runner defaults; zero fields fall back to the Default constants
type Config struct {
	// MaxAttempts bounds the optimistic acquisition
	MaxAttempts int

	// Wait is the pause between acquisition attempts
	Wait time.Duration

	// AcquireWarnThreshold is the acquisition latency above which a warning is logged
	AcquireWarnThreshold time.Duration

	// ExecWarnThreshold is the lock hold time above which a warning is logged
	ExecWarnThreshold time.Duration

	// ReleaseTimeout bounds the unlock call made after the work returns
	ReleaseTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Wait <= 0 {
		c.Wait = DefaultWait
	}
	if c.AcquireWarnThreshold <= 0 {
		c.AcquireWarnThreshold = DefaultAcquireWarnThreshold
	}
	if c.ExecWarnThreshold <= 0 {
		c.ExecWarnThreshold = DefaultExecWarnThreshold
	}
	if c.ReleaseTimeout <= 0 {
		c.ReleaseTimeout = DefaultReleaseTimeout
	}
}

// Option configures a Runner
type Option func(*Runner)

// WithConfig overrides the runner defaults
func WithConfig(cfg Config) Option {
	return func(r *Runner) {
		cfg.setDefaults()
		r.cfg = cfg
	}
}

// WithMetrics records acquisition and hold latencies on rec
func WithMetrics(rec *metrics.Recorder) Option {
	return func(r *Runner) {
		r.metrics = rec
	}
}

// WithEvents publishes lock lifecycle events through emitter
func WithEvents(emitter *pubsub.EventEmitter) Option {
	return func(r *Runner) {
		r.events = emitter
	}
}

// RunOption overrides the acquisition parameters of a single call
type RunOption func(*runSettings)

type runSettings struct {
	maxAttempts int
	wait        time.Duration
	keepAlive   time.Duration
}

// WithMaxAttempts sets how many acquisition attempts a call makes
func WithMaxAttempts(n int) RunOption {
	return func(s *runSettings) {
		s.maxAttempts = n
	}
}

// WithKeepAlive extends the lease by its ttl every interval while the work runs.
// A zero interval, the default, leaves the lease alone.
func WithKeepAlive(interval time.Duration) RunOption {
	return func(s *runSettings) {
		s.keepAlive = interval
	}
}

// WithWait sets the pause between acquisition attempts of a call
func WithWait(d time.Duration) RunOption {
	return func(s *runSettings) {
		s.wait = d
	}
}
