package appcontext

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/speakerpool"
	"github.com/agentstation/speakerpool/internal/auth"
	"github.com/agentstation/speakerpool/internal/notify"
	"github.com/agentstation/speakerpool/pkg/consolidator"
	"github.com/agentstation/speakerpool/pkg/errors"
	"github.com/agentstation/speakerpool/pkg/identity"
	"github.com/agentstation/speakerpool/pkg/metrics"
)

// Mock provides a mock implementation of Interface for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
type Mock struct {
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	PrincipalFunc    func(ctx context.Context) (identity.Principal, *auth.Status)
	SessionFunc      func(ctx context.Context, admin bool) (*speakerpool.Session, error)
	ConsolidatorFunc func(ctx context.Context, dryRun bool) (*consolidator.Consolidator, error)
	MetricsFunc      func() *metrics.Manager
	PushMetricsFunc  func(ctx context.Context) error
	NotifierFunc     func() (notify.Notifier, error)
	VersionFunc      func() string
}

var _ Interface = (*Mock)(nil)

// Logger returns a logger using the mock function or a nop logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns the format using the mock function or "table".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "table"
}

// Principal returns a principal using the mock function or a missing credential.
func (m *Mock) Principal(ctx context.Context) (identity.Principal, *auth.Status) {
	if m.PrincipalFunc != nil {
		return m.PrincipalFunc(ctx)
	}
	return identity.Principal{}, &auth.Status{State: auth.StateMissing, Summary: "No bearer token configured"}
}

// Session returns a session using the mock function or an error.
func (m *Mock) Session(ctx context.Context, admin bool) (*speakerpool.Session, error) {
	if m.SessionFunc != nil {
		return m.SessionFunc(ctx, admin)
	}
	return nil, errors.NewConfigError("mock", "no session configured", nil)
}

// Consolidator returns a consolidator using the mock function or an error.
func (m *Mock) Consolidator(ctx context.Context, dryRun bool) (*consolidator.Consolidator, error) {
	if m.ConsolidatorFunc != nil {
		return m.ConsolidatorFunc(ctx, dryRun)
	}
	return nil, errors.NewConfigError("mock", "no consolidator configured", nil)
}

// Metrics returns a manager using the mock function or nil.
func (m *Mock) Metrics() *metrics.Manager {
	if m.MetricsFunc != nil {
		return m.MetricsFunc()
	}
	return nil
}

// PushMetrics calls the mock function or does nothing.
func (m *Mock) PushMetrics(ctx context.Context) error {
	if m.PushMetricsFunc != nil {
		return m.PushMetricsFunc(ctx)
	}
	return nil
}

// Notifier returns a notifier using the mock function or a noop notifier.
func (m *Mock) Notifier() (notify.Notifier, error) {
	if m.NotifierFunc != nil {
		return m.NotifierFunc()
	}
	return notify.New(notify.Config{}, m.Logger())
}

// Version returns the version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}
