package reconciler

import (
	"github.com/agentstation/speakerpool/pkg/speakers"
)

// Mode names a merge function.
type Mode string

// Merge modes.
const (
	ModeFieldOverlay Mode = "field-overlay"
	ModeFullReplace  Mode = "full-replace"
)

// String returns the mode name.
func (m Mode) String() string {
	return string(m)
}

// Target selects which identity field locates the record to merge into.
type Target int

const (
	// ByID matches on the internal id.
	ByID Target = iota
	// ByUniqueID matches on the shareable unique id.
	ByUniqueID
)

// Field returns the JSON name of the identity field.
func (t Target) Field() string {
	if t == ByUniqueID {
		return "uniqueId"
	}
	return "id"
}

// String returns a human readable name.
func (t Target) String() string {
	if t == ByUniqueID {
		return "by-uniqueId"
	}
	return "by-id"
}

// Store is the part of the record store the merge functions need.
type Store interface {
	FindByID(id string) (*speakers.Speaker, bool)
	FindByUniqueID(uniqueID string) (*speakers.Speaker, bool)
	Upsert(record *speakers.Speaker) (speakers.Change, error)
	NextID() string
	NewUniqueID() (string, error)
}

var _ Store = (*speakers.Store)(nil)
