package consolidator

import (
	"fmt"
	"strings"
	"time"
)

// Result describes one consolidation run. The key slices keep listing order.
type Result struct {
	RunID  string `json:"runId" yaml:"runId"`
	DryRun bool   `json:"dryRun" yaml:"dryRun"`

	Started  time.Time     `json:"started" yaml:"started"`
	Duration time.Duration `json:"duration" yaml:"duration"`

	// Listed counts the delta artifacts found under the prefix.
	Listed int `json:"listed" yaml:"listed"`

	Processed   []string `json:"processed" yaml:"processed"`
	Empty       []string `json:"empty" yaml:"empty"`
	Invalid     []string `json:"invalid" yaml:"invalid"`
	Unmatched   []string `json:"unmatched" yaml:"unmatched"`
	FetchFailed []string `json:"fetchFailed" yaml:"fetchFailed"`

	Cleared     []string `json:"cleared" yaml:"cleared"`
	ClearFailed []string `json:"clearFailed" yaml:"clearFailed"`

	CanonicalWritten bool `json:"canonicalWritten" yaml:"canonicalWritten"`
	// Speakers is the size of the canonical collection after the run.
	Speakers int `json:"speakers" yaml:"speakers"`
}

// Summary renders the run on one line.
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: listed=%d processed=%d empty=%d invalid=%d unmatched=%d fetch_failed=%d cleared=%d clear_failed=%d canonical_written=%t",
		r.RunID, r.Listed, len(r.Processed), len(r.Empty), len(r.Invalid), len(r.Unmatched),
		len(r.FetchFailed), len(r.Cleared), len(r.ClearFailed), r.CanonicalWritten)
	if r.DryRun {
		b.WriteString(" (dry run)")
	}
	return b.String()
}

// Report renders a multi-line report listing the keys of every non-empty bucket.
func (r *Result) Report() string {
	var b strings.Builder
	b.WriteString(r.Summary())
	b.WriteString("\n")
	section := func(title string, keys []string) {
		if len(keys) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s (%d):\n", title, len(keys))
		for _, k := range keys {
			fmt.Fprintf(&b, "  - %s\n", k)
		}
	}
	section("Processed", r.Processed)
	section("Unmatched (left in place)", r.Unmatched)
	section("Invalid (left in place)", r.Invalid)
	section("Fetch failed", r.FetchFailed)
	section("Clear failed", r.ClearFailed)
	return b.String()
}

// NeedsAttention reports whether an operator should look at the run.
func (r *Result) NeedsAttention() bool {
	return len(r.Unmatched) > 0 || len(r.Invalid) > 0 || len(r.FetchFailed) > 0 || len(r.ClearFailed) > 0
}
