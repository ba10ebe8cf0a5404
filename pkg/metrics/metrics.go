// Package metrics provides Prometheus metrics for consolidation runs. Batch
// runs are short lived, so metrics are pushed to a Pushgateway at the end of
// a run instead of being scraped.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/agentstation/speakerpool/pkg/errors"
)

// Artifact outcome label values.
const (
	OutcomeProcessed   = "processed"
	OutcomeEmpty       = "empty"
	OutcomeInvalid     = "invalid"
	OutcomeUnmatched   = "unmatched"
	OutcomeFetchFailed = "fetch_failed"
)

// Run result label values.
const (
	ResultOK     = "ok"
	ResultDryRun = "dry_run"
	ResultFailed = "failed"
)

// Run is what a consolidation run reports.
type Run struct {
	Result        string
	Duration      time.Duration
	Speakers      int
	Artifacts     map[string]int
	Cleared       int
	ClearFailures int
	Wrote         bool
}

// Manager owns the consolidation collectors.
type Manager struct {
	namespace   string
	subsystem   string
	buckets     []float64
	constLabels prometheus.Labels
	registry    *prometheus.Registry

	runs           *prometheus.CounterVec
	artifacts      *prometheus.CounterVec
	cleared        prometheus.Counter
	clearFailures  prometheus.Counter
	canonicalWrite prometheus.Counter
	duration       prometheus.Histogram
	lastSuccess    prometheus.Gauge
	speakers       prometheus.Gauge
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the metric namespace.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		m.namespace = namespace
	}
}

// WithRegistry registers the collectors on r instead of a fresh registry.
func WithRegistry(r *prometheus.Registry) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// WithConstLabels adds labels to every collector.
func WithConstLabels(labels map[string]string) Option {
	return func(m *Manager) {
		m.constLabels = labels
	}
}

// WithBuckets sets the run duration histogram buckets in seconds.
func WithBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// NewManager creates the collectors on their own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "speakerpool",
		subsystem: "consolidation",
		buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "runs_total",
		Help:        "Consolidation runs by result",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.artifacts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "artifacts_total",
		Help:        "Delta artifacts seen by outcome",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.cleared = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "artifacts_cleared_total",
		Help:        "Consumed delta artifacts overwritten with the empty sentinel",
		ConstLabels: m.constLabels,
	})

	m.clearFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "clear_failures_total",
		Help:        "Consumed delta artifacts that could not be cleared",
		ConstLabels: m.constLabels,
	})

	m.canonicalWrite = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "canonical_writes_total",
		Help:        "Writes of the canonical collection",
		ConstLabels: m.constLabels,
	})

	m.duration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_duration_seconds",
		Help:        "Duration of consolidation runs",
		Buckets:     m.buckets,
		ConstLabels: m.constLabels,
	})

	m.lastSuccess = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_success_timestamp_seconds",
		Help:        "Unix time of the last run that did not fail",
		ConstLabels: m.constLabels,
	})

	m.speakers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "speakers",
		Help:        "Speakers in the canonical collection after the last run",
		ConstLabels: m.constLabels,
	})
}

// Registry returns the registry the collectors live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records one run. It is safe on a nil Manager.
func (m *Manager) ObserveRun(r Run) {
	if m == nil {
		return
	}
	result := r.Result
	if result == "" {
		result = ResultOK
	}
	m.runs.WithLabelValues(result).Inc()
	m.duration.Observe(r.Duration.Seconds())

	for outcome, n := range r.Artifacts {
		if n > 0 {
			m.artifacts.WithLabelValues(outcome).Add(float64(n))
		}
	}
	m.cleared.Add(float64(r.Cleared))
	m.clearFailures.Add(float64(r.ClearFailures))
	if r.Wrote {
		m.canonicalWrite.Inc()
	}
	if result != ResultFailed {
		m.lastSuccess.SetToCurrentTime()
		m.speakers.Set(float64(r.Speakers))
	}
}

// Push sends the registry to a Pushgateway under job.
func (m *Manager) Push(ctx context.Context, url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	if job == "" {
		job = m.namespace + "_" + m.subsystem
	}
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return errors.WrapResource("push", "metrics", url, err)
	}
	return nil
}
