package speakers

import (
	"regexp"
	"slices"
	"strings"
)

// unknownCompany groups speakers without a company.
const unknownCompany = "Unknown"

var topicSeparators = regexp.MustCompile(`[,.;]`)

// Stats summarizes a roster.
type Stats struct {
	Total      int            `json:"total" yaml:"total"`
	Internal   int            `json:"internal" yaml:"internal"`
	External   int            `json:"external" yaml:"external"`
	ByCompany  map[string]int `json:"byCompany" yaml:"byCompany"`
	ByLanguage map[string]int `json:"byLanguage" yaml:"byLanguage"`
	Topics     map[string]int `json:"topics" yaml:"topics"`
}

// ComputeStats counts a roster the way the dashboard shows it.
func ComputeStats(records []Speaker) Stats {
	st := Stats{
		Total:      len(records),
		ByCompany:  make(map[string]int),
		ByLanguage: make(map[string]int),
		Topics:     make(map[string]int),
	}
	for i := range records {
		r := &records[i]
		if r.Internal {
			st.Internal++
		}
		if r.External {
			st.External++
		}

		company := r.Company
		if company == "" {
			company = unknownCompany
		}
		st.ByCompany[company]++

		for lang, speaks := range r.Languages {
			if speaks {
				st.ByLanguage[lang]++
			}
		}
		for _, topic := range SplitTopics(r.Topics) {
			st.Topics[topic]++
		}
	}
	return st
}

// SplitTopics splits free-text topics on commas, periods and semicolons.
func SplitTopics(topics string) []string {
	var out []string
	for _, t := range topicSeparators.Split(topics, -1) {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Companies returns the sorted distinct non-empty companies.
func Companies(records []Speaker) []string {
	seen := make(map[string]struct{})
	for i := range records {
		if c := records[i].Company; c != "" {
			seen[c] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Languages returns the sorted distinct languages appearing in any record.
func Languages(records []Speaker) []string {
	seen := make(map[string]struct{})
	for i := range records {
		for lang := range records[i].Languages {
			seen[lang] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Availability filters on the internal and external flags.
type Availability int

const (
	// AnyAvailability keeps every speaker.
	AnyAvailability Availability = iota
	// InternalOnly keeps speakers available for internal events.
	InternalOnly
	// ExternalOnly keeps speakers available for external events.
	ExternalOnly
)

// Criteria selects speakers from a roster.
type Criteria struct {
	// Query matches bio, topics, recent presentations, context, name or company.
	Query string
	// Topic matches topics only.
	Topic string
	// Languages keeps speakers that speak at least one of them. Speakers
	// without any language data always pass.
	Languages    []string
	Availability Availability
}

// Search returns the records matching the criteria, in order. Matching is a
// case-insensitive substring test.
func Search(records []Speaker, c Criteria) []Speaker {
	query := strings.ToLower(strings.TrimSpace(c.Query))
	topic := strings.ToLower(strings.TrimSpace(c.Topic))

	var out []Speaker
	for i := range records {
		r := &records[i]
		switch c.Availability {
		case InternalOnly:
			if !r.Internal {
				continue
			}
		case ExternalOnly:
			if !r.External {
				continue
			}
		}
		if len(c.Languages) > 0 && len(r.Languages) > 0 && !slices.ContainsFunc(c.Languages, r.Speaks) {
			continue
		}
		if topic != "" && r.Topics != "" && !strings.Contains(strings.ToLower(r.Topics), topic) {
			continue
		}
		if query != "" && !matchesAny(query, r.Bio, r.Topics, r.RecentPresentations, r.Context, r.Name, r.Company) {
			continue
		}
		out = append(out, *r.Copy())
	}
	return out
}

func matchesAny(query string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}
