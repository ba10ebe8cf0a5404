package speakerpool

import (
	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/agentstation/speakerpool/pkg/blob"
	"github.com/agentstation/speakerpool/pkg/identity"
	"github.com/agentstation/speakerpool/pkg/logging"
	"github.com/agentstation/speakerpool/pkg/speakers"
)

// config holds the session settings.
type config struct {
	principal   identity.Principal
	admin       bool
	assets      blob.AssetGateway
	layout      blob.Layout
	now         func() utc.Time
	logger      *zerolog.Logger
	changeHooks []speakers.ChangeHook
}

func newConfig(opts ...Option) *config {
	c := &config{
		layout: blob.DefaultLayout(),
		now:    utc.Now,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Option configures a Session.
type Option func(*config)

// WithPrincipal sets the signed-in user. A zero principal skips self resolution.
func WithPrincipal(p identity.Principal) Option {
	return func(c *config) {
		c.principal = p
	}
}

// WithAdmin enables elevated mode: every pending delta is merged on load and
// Publish is allowed.
func WithAdmin(admin bool) Option {
	return func(c *config) {
		c.admin = admin
	}
}

// WithAssets sets the gateway for the Asset-Path addressing scheme. Admin
// loads fetch artifacts through it and Publish writes through it.
func WithAssets(assets blob.AssetGateway) Option {
	return func(c *config) {
		c.assets = assets
	}
}

// WithLayout sets the canonical key and delta prefix.
func WithLayout(layout blob.Layout) Option {
	return func(c *config) {
		c.layout = layout.WithDefaults()
	}
}

// WithClock overrides the time source for record stamps.
func WithClock(now func() utc.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithChangeHook registers a hook on the record store once it is created.
func WithChangeHook(hook speakers.ChangeHook) Option {
	return func(c *config) {
		if hook != nil {
			c.changeHooks = append(c.changeHooks, hook)
		}
	}
}
