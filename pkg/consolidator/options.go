package consolidator

import (
	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/agentstation/speakerpool/pkg/blob"
	"github.com/agentstation/speakerpool/pkg/metrics"
)

type options struct {
	layout  blob.Layout
	dryRun  bool
	now     func() utc.Time
	logger  *zerolog.Logger
	metrics *metrics.Manager
	runID   string
}

func defaultOptions() *options {
	return &options{
		layout: blob.DefaultLayout(),
		now:    utc.Now,
	}
}

// Option configures a Consolidator.
type Option func(*options)

// WithLayout sets the canonical key and delta prefix.
func WithLayout(layout blob.Layout) Option {
	return func(o *options) {
		o.layout = layout.WithDefaults()
	}
}

// WithDryRun computes the merge without writing anything.
func WithDryRun(dryRun bool) Option {
	return func(o *options) {
		o.dryRun = dryRun
	}
}

// WithClock overrides the time source for lastModified stamps.
func WithClock(now func() utc.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger. The context logger is used otherwise.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records each run on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}
