package auth

import (
	"context"

	"github.com/agentstation/speakerpool/pkg/identity"
)

// Status describes the configured credential. No network calls are made to
// build it.
type Status struct {
	State     State               `json:"state" yaml:"state"`
	Summary   string              `json:"summary" yaml:"summary"`
	Principal *identity.Principal `json:"principal,omitempty" yaml:"principal,omitempty"`
	Admin     bool                `json:"admin" yaml:"admin"`
}

// Checker inspects a credential provider.
type Checker struct {
	verifier  *Verifier
	adminRole string
}

// NewChecker creates a checker. adminRole is the role that grants elevated mode.
func NewChecker(verifier *Verifier, adminRole string) *Checker {
	if verifier == nil {
		verifier = NewVerifier("")
	}
	return &Checker{verifier: verifier, adminRole: adminRole}
}

// Check fetches a token from the provider and reports on it.
func (c *Checker) Check(ctx context.Context, provider CredentialProvider) *Status {
	if provider == nil {
		return &Status{State: StateMissing, Summary: "No credential provider configured"}
	}

	token, err := provider.Token(ctx)
	if err != nil {
		return &Status{State: StateInvalid, Summary: "Credential provider failed: " + err.Error()}
	}
	if token == "" {
		return &Status{State: StateMissing, Summary: "No bearer token configured"}
	}
	if !IsJWT(token) {
		return &Status{State: StateOpaque, Summary: "Opaque bearer token configured"}
	}

	principal, err := c.verifier.Principal(token)
	if err != nil {
		return &Status{State: StateInvalid, Summary: err.Error()}
	}
	return &Status{
		State:     StateConfigured,
		Summary:   "Token claims read",
		Principal: &principal,
		Admin:     principal.HasRole(c.adminRole),
	}
}
