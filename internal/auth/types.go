// Package auth supplies bearer credentials to the persistence gateways and
// derives the signed-in principal from a token's claims.
package auth

import (
	"context"
	"os"
	"strings"
)

// CredentialProvider returns the bearer token for remote calls. An empty
// token with a nil error means no credential is available.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

// Token implements CredentialProvider.
func (t StaticToken) Token(_ context.Context) (string, error) {
	return strings.TrimSpace(string(t)), nil
}

// EnvToken reads the bearer token from an environment variable on every call.
type EnvToken struct {
	Var string
}

// Token implements CredentialProvider.
func (e EnvToken) Token(_ context.Context) (string, error) {
	if e.Var == "" {
		return "", nil
	}
	return strings.TrimSpace(os.Getenv(e.Var)), nil
}

// TokenFunc adapts a function to CredentialProvider.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements CredentialProvider.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Chain tries each provider in order and returns the first non-empty token.
type Chain []CredentialProvider

// Token implements CredentialProvider.
func (c Chain) Token(ctx context.Context) (string, error) {
	for _, p := range c {
		if p == nil {
			continue
		}
		token, err := p.Token(ctx)
		if err != nil {
			return "", err
		}
		if token != "" {
			return token, nil
		}
	}
	return "", nil
}

// State represents how usable the configured credential is.
type State int

const (
	// StateConfigured means a credential is present and its claims parse.
	StateConfigured State = iota
	// StateMissing means no credential is configured.
	StateMissing
	// StateInvalid means a credential is present but could not be used.
	StateInvalid
	// StateOpaque means a credential is present but is not a JWT.
	StateOpaque
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateMissing:
		return "missing"
	case StateInvalid:
		return "invalid"
	case StateOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}
