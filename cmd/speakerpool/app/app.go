// Package app provides the application context and dependency management
// for the speakerpool CLI: configuration, logging, the storage backend and
// the services built on it.
package app

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/speakerpool"
	"github.com/agentstation/speakerpool/internal/appcontext"
	"github.com/agentstation/speakerpool/internal/auth"
	"github.com/agentstation/speakerpool/internal/blob/files"
	"github.com/agentstation/speakerpool/internal/blob/httpstore"
	"github.com/agentstation/speakerpool/internal/blob/memory"
	"github.com/agentstation/speakerpool/internal/blob/postgres"
	"github.com/agentstation/speakerpool/internal/notify"
	"github.com/agentstation/speakerpool/pkg/blob"
	"github.com/agentstation/speakerpool/pkg/consolidator"
	"github.com/agentstation/speakerpool/pkg/errors"
	"github.com/agentstation/speakerpool/pkg/identity"
	"github.com/agentstation/speakerpool/pkg/metrics"
)

// App holds the CLI's configuration and lazily built dependencies.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	mu       sync.Mutex
	backend  blob.Backend
	db       *postgres.Store
	metrics  *metrics.Manager
	notifier notify.Notifier
}

var _ appcontext.Interface = (*App)(nil)

// New creates an App with configuration loaded from the environment.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Credentials returns the bearer credential chain: auth.token first, then
// the variable named by auth.token_env.
func (a *App) Credentials() auth.CredentialProvider {
	return auth.Chain{
		auth.StaticToken(a.config.Auth.Token),
		auth.EnvToken{Var: a.config.Auth.TokenEnv},
	}
}

// Principal implements appcontext.Interface.
func (a *App) Principal(ctx context.Context) (identity.Principal, *auth.Status) {
	checker := auth.NewChecker(auth.NewVerifier(a.config.Auth.JWTSecret), a.config.Auth.AdminRole)
	status := checker.Check(ctx, a.Credentials())

	var p identity.Principal
	if status.Principal != nil {
		p = *status.Principal
	}
	if a.config.Principal.Name != "" {
		p.Name = a.config.Principal.Name
	}
	if a.config.Principal.Email != "" {
		p.Email = a.config.Principal.Email
	}
	return p, status
}

// Backend returns the configured storage backend, opening it on first use.
func (a *App) Backend(ctx context.Context) (blob.Backend, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.backend != nil {
		return a.backend, nil
	}

	backend, err := a.openBackend(ctx)
	if err != nil {
		return nil, err
	}
	a.backend = backend
	return backend, nil
}

func (a *App) openBackend(ctx context.Context) (blob.Backend, error) {
	cfg := a.config.Storage
	a.logger.Debug().Str("backend", cfg.Backend).Msg("Opening storage backend")

	switch cfg.Backend {
	case BackendHTTP, "":
		return httpstore.New(cfg.URL,
			httpstore.WithAdminURL(cfg.AdminURL),
			httpstore.WithCredentials(a.Credentials()),
			httpstore.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			httpstore.WithProtectedReads(cfg.ProtectedReads))
	case BackendFiles:
		return files.New(cfg.Dir)
	case BackendMemory:
		return memory.New(nil), nil
	case BackendPostgres:
		db, err := postgres.Open(ctx, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		return db, nil
	default:
		return nil, errors.NewConfigError("storage", "unknown backend "+cfg.Backend+": must be one of http, files, memory, postgres", nil)
	}
}

// Session implements appcontext.Interface.
func (a *App) Session(ctx context.Context, admin bool) (*speakerpool.Session, error) {
	backend, err := a.Backend(ctx)
	if err != nil {
		return nil, err
	}
	principal, status := a.Principal(ctx)
	admin = admin || status.Admin
	if admin {
		a.logger.Debug().Str("principal", principal.Name).Msg("Session runs in admin mode")
	}

	opts := []speakerpool.Option{
		speakerpool.WithPrincipal(principal),
		speakerpool.WithAdmin(admin),
		speakerpool.WithLayout(a.config.Layout),
		speakerpool.WithLogger(a.logger),
	}
	if hasAssets(backend) {
		opts = append(opts, speakerpool.WithAssets(backend))
	} else {
		a.logger.Debug().Msg("No admin endpoint configured, reading deltas with plain GET")
	}
	return speakerpool.NewSession(backend, opts...), nil
}

// assetEndpoint is implemented by backends whose Asset-Path scheme depends
// on configuration.
type assetEndpoint interface {
	HasAssetEndpoint() bool
}

// hasAssets reports whether backend can serve GetAsset and PutAsset.
func hasAssets(backend blob.Backend) bool {
	if ae, ok := backend.(assetEndpoint); ok {
		return ae.HasAssetEndpoint()
	}
	return true
}

// Consolidator implements appcontext.Interface.
func (a *App) Consolidator(ctx context.Context, dryRun bool) (*consolidator.Consolidator, error) {
	backend, err := a.Backend(ctx)
	if err != nil {
		return nil, err
	}
	return consolidator.New(backend,
		consolidator.WithLayout(a.config.Layout),
		consolidator.WithDryRun(dryRun),
		consolidator.WithLogger(a.logger),
		consolidator.WithMetrics(a.Metrics()),
	), nil
}

// Metrics implements appcontext.Interface.
func (a *App) Metrics() *metrics.Manager {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.metrics == nil {
		a.metrics = metrics.NewManager()
	}
	return a.metrics
}

// PushMetrics implements appcontext.Interface.
func (a *App) PushMetrics(ctx context.Context) error {
	url := a.config.Metrics.Pushgateway
	if url == "" {
		return nil
	}
	if err := a.Metrics().Push(ctx, url, a.config.Metrics.Job); err != nil {
		return err
	}
	a.logger.Debug().Str("url", url).Msg("Pushed metrics")
	return nil
}

// Notifier implements appcontext.Interface.
func (a *App) Notifier() (notify.Notifier, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.notifier != nil {
		return a.notifier, nil
	}
	n, err := notify.New(a.config.Notify, a.logger)
	if err != nil {
		return nil, err
	}
	a.notifier = n
	return n, nil
}

// Shutdown releases the backend.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return errors.WrapResource("close", "database", "postgres", err)
		}
		a.db = nil
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithBackend sets the storage backend (useful for testing).
func WithBackend(backend blob.Backend) Option {
	return func(a *App) error {
		a.backend = backend
		return nil
	}
}
