// Package speakerpool runs a live reconciliation session over the speaker
// pool: it loads the canonical collection, finds the signed-in principal's
// own record, overlays their pending edit and, in admin mode, every pending
// delta, and then serves the merged roster.
package speakerpool

import (
	"sync"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/agentstation/speakerpool/pkg/blob"
	"github.com/agentstation/speakerpool/pkg/errors"
	"github.com/agentstation/speakerpool/pkg/identity"
	"github.com/agentstation/speakerpool/pkg/speakers"
)

// ErrNotLoaded is returned by operations that need a loaded session.
var ErrNotLoaded = errors.New("session not loaded")

// State is a step of the session load.
type State int

// Session states in the order Load walks through them.
const (
	StateIdle State = iota
	StateLoadCanonical
	StateResolveSelf
	StateMergeOwnDelta
	StateMergeAllDeltas
	StateReady
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadCanonical:
		return "load-canonical"
	case StateResolveSelf:
		return "resolve-self"
	case StateMergeOwnDelta:
		return "merge-own-delta"
	case StateMergeAllDeltas:
		return "merge-all-deltas"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session owns one record store for the lifetime of a signed-in visit.
type Session struct {
	mu      sync.RWMutex
	gateway blob.Gateway
	config  *config
	hooks   *hooks

	state   State
	history []State
	store   *speakers.Store
	self    identity.Resolution
}

// NewSession creates a session over gateway. Nothing is fetched until Load.
func NewSession(gateway blob.Gateway, opts ...Option) *Session {
	return &Session{
		gateway: gateway,
		config:  newConfig(opts...),
		hooks:   newHooks(),
		state:   StateIdle,
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// History returns every state entered so far, in order.
func (s *Session) History() []State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]State(nil), s.history...)
}

// Store returns the record store, or nil until the canonical collection loaded.
func (s *Session) Store() *speakers.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// Self returns the principal's resolution against the store.
func (s *Session) Self() identity.Resolution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.self.Speaker == nil {
		return s.self
	}
	return identity.Resolution{Match: s.self.Match, Speaker: s.self.Speaker.Copy()}
}

// Principal returns the configured principal.
func (s *Session) Principal() identity.Principal {
	return s.config.principal
}

// Admin reports whether the session runs in elevated mode.
func (s *Session) Admin() bool {
	return s.config.admin
}

// Layout returns the key layout in use.
func (s *Session) Layout() blob.Layout {
	return s.config.layout
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.history = append(s.history, to)
	s.mu.Unlock()

	s.logger().Debug().Stringer("from", from).Stringer("to", to).Msg("Session state changed")
	s.hooks.triggerState(from, to)
}

func (s *Session) loaded() (*speakers.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, ErrNotLoaded
	}
	return s.store, nil
}

func (s *Session) now() utc.Time {
	return s.config.now()
}

func (s *Session) logger() *zerolog.Logger {
	return s.config.logger
}
