package reconciler

import (
	"github.com/agentstation/speakerpool/pkg/speakers"
)

// Outcome classifies what a merge did.
type Outcome int

const (
	// Skipped means the delta was the empty sentinel.
	Skipped Outcome = iota
	// Rejected means the delta could not be applied, usually for lack of identity.
	Rejected
	// Missed means no record matched and creation was not allowed.
	Missed
	// Updated means an existing record was merged.
	Updated
	// Created means a new record was appended.
	Created
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Rejected:
		return "rejected"
	case Missed:
		return "missed"
	case Updated:
		return "updated"
	case Created:
		return "created"
	default:
		return "unknown"
	}
}

// Result describes one merge.
type Result struct {
	Outcome Outcome
	Mode    Mode
	Target  Target
	// Key is the identity value the delta was matched on.
	Key string
	// Record is the merged record for accepted merges.
	Record *speakers.Speaker
	// Err explains why a merge was not accepted.
	Err error
}

// Accepted reports whether the store was changed.
func (r *Result) Accepted() bool {
	return r.Outcome == Updated || r.Outcome == Created
}
