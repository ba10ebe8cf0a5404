// Package blob defines the key/value persistence contract the reconciliation
// core talks to, and the well known keys of the speaker pool layout.
package blob

import (
	"context"
	"path"
	"strings"
)

// Object is one entry of a listing.
type Object struct {
	Name string `json:"name"`
}

// IsFolder reports whether the entry is a folder marker.
func (o Object) IsFolder() bool {
	return strings.HasSuffix(o.Name, "/")
}

// Gateway is a blob store with GET, PUT and LIST. Get reports a missing key
// with an error satisfying errors.IsNotFound.
type Gateway interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error
	List(ctx context.Context, prefix string) ([]Object, error)
}

// AssetGateway is the elevated addressing scheme where the key travels in an
// Asset-Path header instead of the URL.
type AssetGateway interface {
	GetAsset(ctx context.Context, key string) ([]byte, error)
	PutAsset(ctx context.Context, key string, body []byte) error
}

// Backend is a store reachable through both addressing schemes.
type Backend interface {
	Gateway
	AssetGateway
}

// Default keys of the speaker pool layout.
const (
	DefaultCanonicalKey = "conclusion-assets/Sprekerpool.json"
	DefaultDeltaPrefix  = "conclusion-assets/deltas/"
)

// Layout names the canonical key and the delta area.
type Layout struct {
	CanonicalKey string `json:"canonical_key" yaml:"canonical_key" mapstructure:"canonical_key"`
	DeltaPrefix  string `json:"delta_prefix" yaml:"delta_prefix" mapstructure:"delta_prefix"`
}

// DefaultLayout returns the standard speaker pool layout.
func DefaultLayout() Layout {
	return Layout{
		CanonicalKey: DefaultCanonicalKey,
		DeltaPrefix:  DefaultDeltaPrefix,
	}
}

// WithDefaults fills empty fields from DefaultLayout and makes sure the delta
// prefix ends with a slash.
func (l Layout) WithDefaults() Layout {
	def := DefaultLayout()
	if l.CanonicalKey == "" {
		l.CanonicalKey = def.CanonicalKey
	}
	if l.DeltaPrefix == "" {
		l.DeltaPrefix = def.DeltaPrefix
	}
	if !strings.HasSuffix(l.DeltaPrefix, "/") {
		l.DeltaPrefix += "/"
	}
	return l
}

// DeltaKey returns the artifact key for a speaker's unique id.
func (l Layout) DeltaKey(uniqueID string) string {
	return l.DeltaPrefix + uniqueID + ".json"
}

// IsDelta reports whether an object is a delta artifact: under the prefix,
// not a folder marker and not the prefix itself.
func (l Layout) IsDelta(o Object) bool {
	return strings.HasPrefix(o.Name, l.DeltaPrefix) && o.Name != l.DeltaPrefix && !o.IsFolder()
}

// Deltas filters a listing down to delta artifacts, keeping listing order.
func (l Layout) Deltas(objects []Object) []Object {
	out := make([]Object, 0, len(objects))
	for _, o := range objects {
		if l.IsDelta(o) {
			out = append(out, o)
		}
	}
	return out
}

// CleanKey normalizes a key to a slash separated path without a leading slash.
func CleanKey(key string) string {
	if key == "" {
		return ""
	}
	trailing := strings.HasSuffix(key, "/")
	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if trailing && cleaned != "" {
		cleaned += "/"
	}
	return cleaned
}
