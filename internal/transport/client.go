// Package transport is the HTTP plumbing under the object storage gateway:
// credential application, protected-call preconditions and response decoding.
package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/agentstation/speakerpool/internal/auth"
	"github.com/agentstation/speakerpool/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = 30 * time.Second

// Client provides HTTP client functionality with authentication.
type Client struct {
	http        *http.Client
	auth        Authenticator
	credentials auth.CredentialProvider
	name        string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithAuthenticator replaces the default bearer authenticator.
func WithAuthenticator(a Authenticator) Option {
	return func(cl *Client) {
		if a != nil {
			cl.auth = a
		}
	}
}

// WithName sets the store name used in errors.
func WithName(name string) Option {
	return func(cl *Client) {
		cl.name = name
	}
}

// New creates a transport client that takes tokens from credentials.
func New(credentials auth.CredentialProvider, opts ...Option) *Client {
	c := &Client{
		http:        &http.Client{Timeout: DefaultHTTPTimeout},
		auth:        &BearerAuth{},
		credentials: credentials,
		name:        "http",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the store name used in errors.
func (c *Client) Name() string {
	return c.name
}

// Token returns the current credential, or "" when none is configured.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c.credentials == nil {
		return "", nil
	}
	token, err := c.credentials.Token(ctx)
	if err != nil {
		return "", &errors.AuthenticationError{
			Store:   c.name,
			Method:  "bearer",
			Message: "failed to retrieve credential",
			Err:     err,
		}
	}
	return token, nil
}

// Do sends req. A protected request without a credential fails with
// ErrCredentialRequired before anything is sent.
func (c *Client) Do(ctx context.Context, req *http.Request, protected bool) (*http.Response, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" && protected {
		return nil, &errors.AuthenticationError{
			Store:   c.name,
			Method:  "bearer",
			Message: "no credential for " + req.Method + " request",
			Err:     errors.ErrCredentialRequired,
		}
	}
	if token != "" {
		c.auth.Apply(req, token)
	}

	req.Header.Set("Accept", "application/json")
	if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return nil, errors.WrapResource(req.Method, "object", req.URL.Redacted(), err)
	}
	return resp, nil
}

// NewRequest builds a request, wrapping construction failures.
func NewRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.WrapResource("create", "request", method+" "+url, err)
	}
	return req, nil
}
