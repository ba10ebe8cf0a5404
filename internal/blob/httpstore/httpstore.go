// Package httpstore is a blob gateway for object storage reached over HTTP.
//
// Objects live under a base URL (typically a pre-authenticated request URL):
// GET and PUT of base+key, and GET of base for a listing shaped like
// {"objects":[{"name":"..."}]}. Elevated calls go to a separate admin
// endpoint that takes the key in an Asset-Path header.
package httpstore

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentstation/speakerpool/internal/auth"
	"github.com/agentstation/speakerpool/internal/transport"
	"github.com/agentstation/speakerpool/pkg/blob"
	"github.com/agentstation/speakerpool/pkg/errors"
)

// AssetPathHeader carries the object key on admin endpoint calls.
const AssetPathHeader = "Asset-Path"

const storeName = "object storage"

// Store talks to object storage over HTTP.
type Store struct {
	base           string
	adminURL       string
	client         *transport.Client
	protectedReads bool
}

var (
	_ blob.Gateway      = (*Store)(nil)
	_ blob.AssetGateway = (*Store)(nil)
)

type config struct {
	adminURL       string
	credentials    auth.CredentialProvider
	httpClient     *http.Client
	protectedReads bool
}

// Option configures a Store.
type Option func(*config)

// WithAdminURL sets the endpoint used for Asset-Path calls.
func WithAdminURL(u string) Option {
	return func(c *config) {
		c.adminURL = u
	}
}

// WithCredentials sets the bearer credential provider.
func WithCredentials(p auth.CredentialProvider) Option {
	return func(c *config) {
		c.credentials = p
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

// WithProtectedReads requires a credential for Get and List as well.
func WithProtectedReads(enabled bool) Option {
	return func(c *config) {
		c.protectedReads = enabled
	}
}

// New creates a store for baseURL.
func New(baseURL string, opts ...Option) (*Store, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := validateURL("storage.url", baseURL); err != nil {
		return nil, err
	}
	if cfg.adminURL != "" {
		if err := validateURL("storage.admin_url", cfg.adminURL); err != nil {
			return nil, err
		}
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &Store{
		base:     baseURL,
		adminURL: cfg.adminURL,
		client: transport.New(cfg.credentials,
			transport.WithHTTPClient(cfg.httpClient),
			transport.WithName(storeName)),
		protectedReads: cfg.protectedReads,
	}, nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &errors.ConfigError{Component: "httpstore", Message: field + " must be an absolute URL", Err: err}
	}
	return nil
}

// objectURL appends the escaped key to the base URL, keeping slashes.
func (s *Store) objectURL(key string) string {
	segments := strings.Split(blob.CleanKey(key), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.base + strings.Join(segments, "/")
}

// Get fetches an object.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	req, err := transport.NewRequest(ctx, http.MethodGet, s.objectURL(key), nil)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, req, s.protectedReads)
}

// Put writes an object.
func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	req, err := transport.NewRequest(ctx, http.MethodPut, s.objectURL(key), bytes.NewReader(body))
	if err != nil {
		return err
	}
	_, err = s.send(ctx, req, true)
	return err
}

type listing struct {
	Objects []blob.Object `json:"objects"`
}

// List returns the objects whose names start with prefix, in listing order.
func (s *Store) List(ctx context.Context, prefix string) ([]blob.Object, error) {
	u := s.base
	if prefix != "" {
		u += "?" + url.Values{"prefix": {prefix}}.Encode()
	}
	req, err := transport.NewRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(ctx, req, s.protectedReads)
	if err != nil {
		return nil, err
	}

	var l listing
	if err := transport.DecodeResponse(storeName, resp, &l); err != nil {
		return nil, err
	}

	out := make([]blob.Object, 0, len(l.Objects))
	for _, o := range l.Objects {
		if strings.HasPrefix(o.Name, prefix) {
			out = append(out, o)
		}
	}
	return out, nil
}

// HasAssetEndpoint reports whether an admin endpoint is configured, so the
// Asset-Path calls can succeed.
func (s *Store) HasAssetEndpoint() bool {
	return s.adminURL != ""
}

// GetAsset fetches an object through the admin endpoint.
func (s *Store) GetAsset(ctx context.Context, key string) ([]byte, error) {
	req, err := s.assetRequest(ctx, http.MethodGet, key, nil)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, req, true)
}

// PutAsset writes an object through the admin endpoint.
func (s *Store) PutAsset(ctx context.Context, key string, body []byte) error {
	req, err := s.assetRequest(ctx, http.MethodPut, key, body)
	if err != nil {
		return err
	}
	_, err = s.send(ctx, req, true)
	return err
}

func (s *Store) assetRequest(ctx context.Context, method, key string, body []byte) (*http.Request, error) {
	if s.adminURL == "" {
		return nil, errors.NewConfigError("httpstore", "admin endpoint not configured", nil)
	}
	var req *http.Request
	var err error
	if body != nil {
		req, err = transport.NewRequest(ctx, method, s.adminURL, bytes.NewReader(body))
	} else {
		req, err = transport.NewRequest(ctx, method, s.adminURL, nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set(AssetPathHeader, key)
	return req, nil
}

func (s *Store) send(ctx context.Context, req *http.Request, protected bool) ([]byte, error) {
	resp, err := s.client.Do(ctx, req, protected)
	if err != nil {
		return nil, err
	}
	return transport.ReadResponse(storeName, resp)
}
