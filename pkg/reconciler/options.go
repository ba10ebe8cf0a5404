package reconciler

import (
	"github.com/agentstation/utc"
)

// options configures a single merge.
type options struct {
	target   Target
	key      string
	create   bool
	artifact string
	now      func() utc.Time
}

func defaultOptions() *options {
	return &options{
		target: ByID,
		now:    utc.Now,
	}
}

// Option configures a merge.
type Option func(*options)

func newOptions(opts ...Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithTarget sets the identity field used to locate the record.
func WithTarget(target Target) Option {
	return func(o *options) {
		o.target = target
	}
}

// WithKey supplies the identity value explicitly, for example one resolved from
// the artifact name. When empty the value is read from the patch.
func WithKey(key string) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithCreate allows appending a new record when nothing matches.
func WithCreate(create bool) Option {
	return func(o *options) {
		o.create = create
	}
}

// WithArtifact names the artifact being merged, for error context.
func WithArtifact(name string) Option {
	return func(o *options) {
		o.artifact = name
	}
}

// WithClock overrides the time source used for lastModified and createdDate.
func WithClock(now func() utc.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
