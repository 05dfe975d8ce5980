// Package metrics exposes prometheus instruments for lock acquisition and
// protected execution.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "dlock"

	// LabelOutcome distinguishes how an acquisition attempt ended
	LabelOutcome = "outcome"

	OutcomeAcquired     = "acquired"
	OutcomeUnobtainable = "unobtainable"
	OutcomeError        = "error"
)

// Recorder groups the lock instruments so they can be registered on any registry
type Recorder struct {
	acquisitions    *prometheus.CounterVec
	releases        *prometheus.CounterVec
	acquireDuration prometheus.Histogram
	holdDuration    prometheus.Histogram
	slowAcquires    prometheus.Counter
	slowTasks       prometheus.Counter
}

// NewRecorder creates the lock instruments and registers them on reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisitions_total",
			Help:      "Total number of lock acquisitions by outcome",
		}, []string{LabelOutcome}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "releases_total",
			Help:      "Total number of lock releases by outcome",
		}, []string{LabelOutcome}),
		acquireDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "acquire_duration_seconds",
			Help:      "Time spent waiting for a lock",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		holdDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "hold_duration_seconds",
			Help:      "Time a lock was held while running protected work",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		slowAcquires: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slow_acquisitions_total",
			Help:      "Acquisitions slower than the configured threshold",
		}),
		slowTasks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slow_tasks_total",
			Help:      "Protected tasks slower than the configured threshold",
		}),
	}

	reg.MustRegister(r.acquisitions, r.releases, r.acquireDuration, r.holdDuration, r.slowAcquires, r.slowTasks)
	return r
}

// ObserveAcquire records the outcome and latency of an acquisition
func (r *Recorder) ObserveAcquire(outcome string, elapsed time.Duration, slow bool) {
	if r == nil {
		return
	}
	r.acquisitions.WithLabelValues(outcome).Inc()
	if outcome == OutcomeAcquired {
		r.acquireDuration.Observe(elapsed.Seconds())
	}
	if slow {
		r.slowAcquires.Inc()
	}
}

// ObserveRelease records a release; released is false when the lease was already lost
func (r *Recorder) ObserveRelease(released bool, err error) {
	if r == nil {
		return
	}
	switch {
	case err != nil:
		r.releases.WithLabelValues(OutcomeError).Inc()
	case released:
		r.releases.WithLabelValues("released").Inc()
	default:
		r.releases.WithLabelValues("lost").Inc()
	}
}

// ObserveHold records how long protected work kept the lock
func (r *Recorder) ObserveHold(elapsed time.Duration, slow bool) {
	if r == nil {
		return
	}
	r.holdDuration.Observe(elapsed.Seconds())
	if slow {
		r.slowTasks.Inc()
	}
}
