package speakers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/agentstation/speakerpool/pkg/errors"
)

// Patch is a partial speaker record as found in a delta artifact.
//
// A nil field was absent from the artifact body. A JSON null is present and
// clears the field to its zero value.
type Patch struct {
	ID                  *string
	UniqueID            *string
	Name                *string
	EmailAddress        *string
	Company             *string
	Topics              *string
	Bio                 *string
	RecentPresentations *string
	Context             *string
	ImageURL            *string
	LinkedInURL         *string
	Languages           *map[string]bool
	Internal            *bool
	External            *bool
	CreatedDate         *string
	LastModified        *string

	Extra map[string]json.RawMessage
}

// DecodePatch parses an artifact body. Blank bodies and a literal null decode
// to the empty patch.
func DecodePatch(data []byte) (*Patch, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &Patch{}, nil
	}

	var p Patch
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, errors.WrapParse("json", "", err)
	}
	return &p, nil
}

// IsEmpty reports whether the patch is the {} sentinel.
func (p *Patch) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.ID == nil && p.UniqueID == nil && p.Name == nil && p.EmailAddress == nil &&
		p.Company == nil && p.Topics == nil && p.Bio == nil && p.RecentPresentations == nil &&
		p.Context == nil && p.ImageURL == nil && p.LinkedInURL == nil && p.Languages == nil &&
		p.Internal == nil && p.External == nil && p.CreatedDate == nil && p.LastModified == nil &&
		len(p.Extra) == 0
}

// IDValue returns the id carried by the patch, or "".
func (p *Patch) IDValue() string {
	return deref(p.ID)
}

// UniqueIDValue returns the uniqueId carried by the patch, or "".
func (p *Patch) UniqueIDValue() string {
	return deref(p.UniqueID)
}

// ApplyTo copies every present field onto s. Absent fields are left untouched.
func (p *Patch) ApplyTo(s *Speaker) {
	setString(&s.ID, p.ID)
	setString(&s.UniqueID, p.UniqueID)
	setString(&s.Name, p.Name)
	setString(&s.EmailAddress, p.EmailAddress)
	setString(&s.Company, p.Company)
	setString(&s.Topics, p.Topics)
	setString(&s.Bio, p.Bio)
	setString(&s.RecentPresentations, p.RecentPresentations)
	setString(&s.Context, p.Context)
	setString(&s.ImageURL, p.ImageURL)
	setString(&s.LinkedInURL, p.LinkedInURL)
	setString(&s.CreatedDate, p.CreatedDate)
	setString(&s.LastModified, p.LastModified)
	if p.Languages != nil {
		s.Languages = maps.Clone(*p.Languages)
	}
	if p.Internal != nil {
		s.Internal = *p.Internal
	}
	if p.External != nil {
		s.External = *p.External
	}
	if len(p.Extra) > 0 {
		if s.Extra == nil {
			s.Extra = make(map[string]json.RawMessage, len(p.Extra))
		}
		for k, v := range p.Extra {
			s.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
}

// Record builds a fresh speaker holding only the patch's fields.
func (p *Patch) Record() *Speaker {
	s := &Speaker{}
	p.ApplyTo(s)
	return s
}

// PatchFrom returns a patch that sets every field of s.
func PatchFrom(s *Speaker) *Patch {
	c := s.Copy()
	langs := c.Languages
	return &Patch{
		ID:                  &c.ID,
		UniqueID:            &c.UniqueID,
		Name:                &c.Name,
		EmailAddress:        &c.EmailAddress,
		Company:             &c.Company,
		Topics:              &c.Topics,
		Bio:                 &c.Bio,
		RecentPresentations: &c.RecentPresentations,
		Context:             &c.Context,
		ImageURL:            &c.ImageURL,
		LinkedInURL:         &c.LinkedInURL,
		Languages:           &langs,
		Internal:            &c.Internal,
		External:            &c.External,
		CreatedDate:         &c.CreatedDate,
		LastModified:        &c.LastModified,
		Extra:               c.Extra,
	}
}

// UnmarshalJSON records which keys were present in the body.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*p = Patch{}
	for key, raw := range fields {
		var err error
		switch key {
		case "id":
			p.ID, err = decodeField[string](raw)
		case "uniqueId":
			p.UniqueID, err = decodeField[string](raw)
		case "name":
			p.Name, err = decodeField[string](raw)
		case "emailAddress":
			p.EmailAddress, err = decodeField[string](raw)
		case "company":
			p.Company, err = decodeField[string](raw)
		case "topics":
			p.Topics, err = decodeField[string](raw)
		case "bio":
			p.Bio, err = decodeField[string](raw)
		case "recentPresentations":
			p.RecentPresentations, err = decodeField[string](raw)
		case "context":
			p.Context, err = decodeField[string](raw)
		case "imageUrl":
			p.ImageURL, err = decodeField[string](raw)
		case "linkedInUrl":
			p.LinkedInURL, err = decodeField[string](raw)
		case "languages":
			p.Languages, err = decodeField[map[string]bool](raw)
		case "internal":
			p.Internal, err = decodeField[bool](raw)
		case "external":
			p.External, err = decodeField[bool](raw)
		case "createdDate":
			p.CreatedDate, err = decodeField[string](raw)
		case "lastModified":
			p.LastModified, err = decodeField[string](raw)
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]json.RawMessage)
			}
			p.Extra[key] = raw
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	return nil
}

// MarshalJSON writes only the present fields.
func (p Patch) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, 16+len(p.Extra))
	for k, v := range p.Extra {
		fields[k] = v
	}
	put := func(key string, present bool, v any) {
		if present {
			fields[key] = v
		}
	}
	put("id", p.ID != nil, p.ID)
	put("uniqueId", p.UniqueID != nil, p.UniqueID)
	put("name", p.Name != nil, p.Name)
	put("emailAddress", p.EmailAddress != nil, p.EmailAddress)
	put("company", p.Company != nil, p.Company)
	put("topics", p.Topics != nil, p.Topics)
	put("bio", p.Bio != nil, p.Bio)
	put("recentPresentations", p.RecentPresentations != nil, p.RecentPresentations)
	put("context", p.Context != nil, p.Context)
	put("imageUrl", p.ImageURL != nil, p.ImageURL)
	put("linkedInUrl", p.LinkedInURL != nil, p.LinkedInURL)
	put("languages", p.Languages != nil, p.Languages)
	put("internal", p.Internal != nil, p.Internal)
	put("external", p.External != nil, p.External)
	put("createdDate", p.CreatedDate != nil, p.CreatedDate)
	put("lastModified", p.LastModified != nil, p.LastModified)
	return json.Marshal(fields)
}

// decodeField decodes a present value; null yields a pointer to the zero value.
func decodeField[T any](raw json.RawMessage) (*T, error) {
	v := new(T)
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return v, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, err
	}
	return v, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// String returns a pointer to s, for building patches in code.
func String(s string) *string { return &s }

// Bool returns a pointer to b, for building patches in code.
func Bool(b bool) *bool { return &b }
