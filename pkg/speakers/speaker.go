// Package speakers holds the speaker record model, the typed delta patch and
// the ordered in-memory record store the reconciliation core mutates.
package speakers

import (
	"bytes"
	"encoding/json"
	"maps"
	"time"

	"github.com/agentstation/utc"
)

// Speaker is one entry of the canonical collection.
//
// Keys the model does not know about are kept in Extra and written back
// unchanged, so a round trip never drops a key the model does not own. Known
// keys are normalized on write: empty strings and empty language maps are
// omitted, internal and external are always written.
type Speaker struct {
	ID                  string          `json:"id,omitempty"`
	UniqueID            string          `json:"uniqueId,omitempty"`
	Name                string          `json:"name"`
	EmailAddress        string          `json:"emailAddress,omitempty"`
	Company             string          `json:"company,omitempty"`
	Topics              string          `json:"topics,omitempty"`
	Bio                 string          `json:"bio,omitempty"`
	RecentPresentations string          `json:"recentPresentations,omitempty"`
	Context             string          `json:"context,omitempty"`
	ImageURL            string          `json:"imageUrl,omitempty"`
	LinkedInURL         string          `json:"linkedInUrl,omitempty"`
	Languages           map[string]bool `json:"languages,omitempty"`
	Internal            bool            `json:"internal"`
	External            bool            `json:"external"`
	CreatedDate         string          `json:"createdDate,omitempty"`
	LastModified        string          `json:"lastModified,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// speakerAlias drops the custom codec methods.
type speakerAlias Speaker

// Speaks reports whether the speaker speaks the language. Absent entries are false.
func (s *Speaker) Speaks(language string) bool {
	return s.Languages[language]
}

// Copy returns a deep copy of the speaker.
func (s *Speaker) Copy() *Speaker {
	if s == nil {
		return nil
	}
	c := *s
	if s.Languages != nil {
		c.Languages = maps.Clone(s.Languages)
	}
	if s.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}

// Touch stamps LastModified with the given time.
func (s *Speaker) Touch(now utc.Time) {
	s.LastModified = Timestamp(now)
}

// Timestamp renders t the way createdDate and lastModified are stored.
func Timestamp(t utc.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// MarshalJSON writes the known fields followed by any preserved extra keys.
func (s Speaker) MarshalJSON() ([]byte, error) {
	known, err := marshalNoEscape(speakerAlias(s))
	if err != nil || len(s.Extra) == 0 {
		return known, err
	}

	fields := make(map[string]json.RawMessage, len(s.Extra)+16)
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range s.Extra {
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}
	return marshalNoEscape(fields)
}

// marshalNoEscape marshals v without HTML escaping, so values such as
// "Bob & Co" are stored as written.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON reads the known fields and keeps the rest in Extra.
func (s *Speaker) UnmarshalJSON(data []byte) error {
	var alias speakerAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for k := range fields {
		if knownKeys[k] {
			delete(fields, k)
		}
	}
	if len(fields) > 0 {
		alias.Extra = fields
	}

	*s = Speaker(alias)
	return nil
}

// knownKeys are the JSON keys owned by Speaker's typed fields.
var knownKeys = map[string]bool{
	"id":                  true,
	"uniqueId":            true,
	"name":                true,
	"emailAddress":        true,
	"company":             true,
	"topics":              true,
	"bio":                 true,
	"recentPresentations": true,
	"context":             true,
	"imageUrl":            true,
	"linkedInUrl":         true,
	"languages":           true,
	"internal":            true,
	"external":            true,
	"createdDate":         true,
	"lastModified":        true,
}
