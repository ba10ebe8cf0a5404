package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agentstation/speakerpool/pkg/errors"
	"github.com/agentstation/speakerpool/pkg/identity"
)

// tokenClaims are the identity provider claims the principal is built from.
type tokenClaims struct {
	jwt.RegisteredClaims
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	PreferredUsername string   `json:"preferred_username"`
	UPN               string   `json:"upn"`
	Roles             []string `json:"roles"`
}

// Verifier turns a token into a principal.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a verifier. With a secret, HS256 signatures and
// expiry are checked. Without one the claims are read unverified, which is
// what a client does with a token its identity provider already vetted.
func NewVerifier(secret string) *Verifier {
	v := &Verifier{}
	if secret != "" {
		v.secret = []byte(secret)
	}
	return v
}

// Principal parses the token and maps its claims onto a principal.
func (v *Verifier) Principal(token string) (identity.Principal, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return identity.Principal{}, errors.ErrCredentialRequired
	}

	claims := &tokenClaims{}
	var err error
	if v.secret != nil {
		_, err = jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
			return v.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	} else {
		_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	}
	if err != nil {
		return identity.Principal{}, errors.NewAuthenticationError("token", "jwt", "could not read token claims", err)
	}

	login := claims.PreferredUsername
	if login == "" {
		login = claims.UPN
	}
	if login == "" {
		login = claims.Subject
	}
	return identity.Principal{
		Name:  claims.Name,
		Email: claims.Email,
		Login: login,
		Roles: claims.Roles,
	}, nil
}

// PrincipalFromToken reads a principal from a token without verifying it.
func PrincipalFromToken(token string) (identity.Principal, error) {
	return NewVerifier("").Principal(token)
}

// IsJWT reports whether the token has the three dot separated JWT segments.
func IsJWT(token string) bool {
	return strings.Count(strings.TrimSpace(token), ".") == 2
}
