// Package identity maps a signed-in principal to a speaker record and a delta
// artifact to the speaker it targets.
package identity

import (
	"path"
	"strings"

	"github.com/agentstation/speakerpool/pkg/errors"
	"github.com/agentstation/speakerpool/pkg/speakers"
)

// Principal is the signed-in user as described by the credential provider.
type Principal struct {
	// Name is the display name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Email is the verified email claim.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	// Login is the raw sign-in string, which is often an email address.
	Login string `json:"login,omitempty" yaml:"login,omitempty"`
	// Roles granted by the identity provider.
	Roles []string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// IsZero reports whether the principal carries nothing to match on.
func (p Principal) IsZero() bool {
	return p.Name == "" && p.Email == "" && p.Login == ""
}

// HasRole reports whether the principal was granted role, ignoring case.
func (p Principal) HasRole(role string) bool {
	if role == "" {
		return false
	}
	want := speakers.Fold(role)
	for _, r := range p.Roles {
		if speakers.Fold(r) == want {
			return true
		}
	}
	return false
}

// Match names the resolver step that found the speaker.
type Match string

// Resolver steps, in the order they are tried.
const (
	MatchName       Match = "name"
	MatchEmailClaim Match = "email-claim"
	MatchLogin      Match = "login"
	MatchNone       Match = "none"
)

// Resolution is the outcome of resolving a principal. A miss is a valid state:
// the principal is not registered yet and may self-register.
type Resolution struct {
	Match   Match
	Speaker *speakers.Speaker
}

// Registered reports whether a speaker was found.
func (r Resolution) Registered() bool {
	return r.Speaker != nil
}

// Lookup is the part of the record store the resolver needs.
type Lookup interface {
	FindByName(name string, caseInsensitive bool) (*speakers.Speaker, bool)
	FindByEmail(email string) (*speakers.Speaker, bool)
}

// Resolver finds a principal's own speaker record.
type Resolver struct {
	store Lookup
}

// NewResolver creates a resolver over the store.
func NewResolver(store Lookup) *Resolver {
	return &Resolver{store: store}
}

// Resolve tries name, then the email claim, then the raw login. The first hit wins.
func (r *Resolver) Resolve(p Principal) Resolution {
	if s, ok := r.store.FindByName(strings.TrimSpace(p.Name), true); ok {
		return Resolution{Match: MatchName, Speaker: s}
	}
	if s, ok := r.store.FindByEmail(p.Email); ok {
		return Resolution{Match: MatchEmailClaim, Speaker: s}
	}
	if s, ok := r.store.FindByEmail(p.Login); ok {
		return Resolution{Match: MatchLogin, Speaker: s}
	}
	return Resolution{Match: MatchNone}
}

// KeyFromName derives the filename key of an artifact: the basename without ".json".
func KeyFromName(objectName string) string {
	return strings.TrimSuffix(path.Base(objectName), ".json")
}

// ResolveArtifact returns the unique id a delta artifact targets. The uniqueId
// declared in the body wins over the filename. A body carrying neither id nor
// uniqueId cannot be attributed and is rejected.
func ResolveArtifact(objectName string, patch *speakers.Patch) (string, error) {
	if patch.IDValue() == "" && patch.UniqueIDValue() == "" {
		return "", &errors.ValidationError{
			Field:   "uniqueId",
			Value:   objectName,
			Message: "artifact carries neither id nor uniqueId",
			Err:     errors.ErrInvalidArtifact,
		}
	}
	if uid := patch.UniqueIDValue(); uid != "" {
		return uid, nil
	}
	if key := KeyFromName(objectName); key != "" && key != "." && key != "/" {
		return key, nil
	}
	return "", &errors.ValidationError{
		Field:   "uniqueId",
		Value:   objectName,
		Message: "artifact key has no usable name",
		Err:     errors.ErrInvalidArtifact,
	}
}
