// Package appcontext provides the shared application context interface
// used by all commands, so command packages depend on an interface instead
// of the concrete App.
package appcontext

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/speakerpool"
	"github.com/agentstation/speakerpool/internal/auth"
	"github.com/agentstation/speakerpool/internal/notify"
	"github.com/agentstation/speakerpool/pkg/consolidator"
	"github.com/agentstation/speakerpool/pkg/identity"
	"github.com/agentstation/speakerpool/pkg/metrics"
)

// Interface defines what commands need from the application.
//
// Thread Safety: All methods must be safe for concurrent access.
type Interface interface {
	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// Principal returns the signed-in principal and the credential status it
	// was derived from. Configured principal.name and principal.email win
	// over token claims.
	Principal(ctx context.Context) (identity.Principal, *auth.Status)

	// Session creates an unloaded live session on the configured backend.
	// admin requests elevated mode; a token carrying the admin role grants
	// it as well.
	Session(ctx context.Context, admin bool) (*speakerpool.Session, error)

	// Consolidator creates the batch job on the configured backend.
	Consolidator(ctx context.Context, dryRun bool) (*consolidator.Consolidator, error)

	// Metrics returns the metrics manager shared by every run.
	Metrics() *metrics.Manager

	// PushMetrics sends the metrics to the configured Pushgateway. It is a
	// no-op when none is configured.
	PushMetrics(ctx context.Context) error

	// Notifier returns the configured report notifier.
	Notifier() (notify.Notifier, error)

	// Version returns the application version string.
	Version() string
}
