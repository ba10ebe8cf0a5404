package output

import (
	"cmp"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/agentstation/speakerpool/pkg/speakers"
)

// IsTable reports whether format renders as a table.
func IsTable(format Format) bool {
	switch format {
	case FormatTable, FormatWide, "":
		return true
	default:
		return false
	}
}

// SpeakersToData renders a roster as table rows. Wide adds contact and
// availability columns.
func SpeakersToData(records []speakers.Speaker, wide bool) Data {
	headers := []string{"UNIQUE ID", "NAME", "COMPANY", "TOPICS"}
	if wide {
		headers = append(headers, "EMAIL", "LANGUAGES", "INTERNAL", "EXTERNAL", "LAST MODIFIED")
	}

	rows := make([][]string, 0, len(records))
	for i := range records {
		r := &records[i]
		row := []string{r.UniqueID, r.Name, r.Company, truncate(r.Topics, 40)}
		if wide {
			row = append(row,
				r.EmailAddress,
				strings.Join(spokenLanguages(r), ","),
				yesNo(r.Internal),
				yesNo(r.External),
				r.LastModified,
			)
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows}
}

// StatsToData renders roster statistics as a two column table, most
// frequent entries first within each section.
func StatsToData(st speakers.Stats) Data {
	rows := [][]string{
		{"Total", strconv.Itoa(st.Total)},
		{"Internal", strconv.Itoa(st.Internal)},
		{"External", strconv.Itoa(st.External)},
	}
	rows = append(rows, counted("Company", st.ByCompany)...)
	rows = append(rows, counted("Language", st.ByLanguage)...)
	rows = append(rows, counted("Topic", st.Topics)...)
	return Data{
		Headers:         []string{"METRIC", "COUNT"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// Write formats data to w, using table when format renders as one.
func Write(w io.Writer, format Format, data any, table Data) error {
	if IsTable(format) {
		return NewFormatter(format).Format(w, table)
	}
	return NewFormatter(format).Format(w, data)
}

func counted(label string, m map[string]int) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(m[b], m[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{label + ": " + k, strconv.Itoa(m[k])})
	}
	return rows
}

func spokenLanguages(r *speakers.Speaker) []string {
	var out []string
	for lang, speaks := range r.Languages {
		if speaks {
			out = append(out, lang)
		}
	}
	slices.Sort(out)
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
