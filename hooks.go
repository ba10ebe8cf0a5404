package speakerpool

import (
	"sync"

	"github.com/agentstation/speakerpool/pkg/speakers"
)

// Hook function types for session events
type (
	// SpeakerAddedHook is called when a record is appended to the store
	SpeakerAddedHook func(speaker speakers.Speaker)

	// SpeakerUpdatedHook is called when a record is replaced in the store
	SpeakerUpdatedHook func(old, new speakers.Speaker)

	// StateHook is called on every session state transition
	StateHook func(from, to State)
)

// hooks manages session callbacks
type hooks struct {
	mu               sync.RWMutex
	onSpeakerAdded   []SpeakerAddedHook
	onSpeakerUpdated []SpeakerUpdatedHook
	onState          []StateHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnSpeakerAdded registers a callback for appended records
func (s *Session) OnSpeakerAdded(fn SpeakerAddedHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onSpeakerAdded = append(s.hooks.onSpeakerAdded, fn)
}

// OnSpeakerUpdated registers a callback for replaced records
func (s *Session) OnSpeakerUpdated(fn SpeakerUpdatedHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onSpeakerUpdated = append(s.hooks.onSpeakerUpdated, fn)
}

// OnStateChange registers a callback for state transitions
func (s *Session) OnStateChange(fn StateHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onState = append(s.hooks.onState, fn)
}

// triggerChange fans a store change out to the speaker hooks
func (h *hooks) triggerChange(change speakers.Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch change.Kind {
	case speakers.Added:
		for _, hook := range h.onSpeakerAdded {
			hook(*change.After)
		}
	case speakers.Updated:
		for _, hook := range h.onSpeakerUpdated {
			hook(*change.Before, *change.After)
		}
	}
}

func (h *hooks) triggerState(from, to State) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onState {
		hook(from, to)
	}
}
