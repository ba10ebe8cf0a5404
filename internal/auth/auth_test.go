package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/speakerpool/pkg/errors"
)

func signed(t *testing.T, secret string, claims tokenClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func testClaims() tokenClaims {
	now := time.Now()
	return tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Name:              "Ann Smith",
		Email:             "ann@example.com",
		PreferredUsername: "asmith@corp.example.com",
		Roles:             []string{"Admin"},
	}
}

func TestStaticAndEnvTokens(t *testing.T) {
	ctx := context.Background()

	tok, err := StaticToken("  abc ").Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	t.Setenv("SPEAKERPOOL_TEST_TOKEN", "from-env")
	tok, err = EnvToken{Var: "SPEAKERPOOL_TEST_TOKEN"}.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)

	tok, err = EnvToken{}.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	chain := Chain{nil, StaticToken(""), StaticToken("second")}
	tok, err := chain.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", tok)

	failing := Chain{TokenFunc(func(context.Context) (string, error) { return "", assert.AnError })}
	_, err = failing.Token(ctx)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestVerifierWithSecret(t *testing.T) {
	v := NewVerifier("s3cret")

	p, err := v.Principal("Bearer " + signed(t, "s3cret", testClaims()))
	require.NoError(t, err)
	assert.Equal(t, "Ann Smith", p.Name)
	assert.Equal(t, "ann@example.com", p.Email)
	assert.Equal(t, "asmith@corp.example.com", p.Login)
	assert.True(t, p.HasRole("admin"))

	_, err = v.Principal(signed(t, "other", testClaims()))
	require.Error(t, err)
	assert.True(t, errors.IsCredentialError(err))

	expired := testClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	_, err = v.Principal(signed(t, "s3cret", expired))
	assert.True(t, errors.IsCredentialError(err))
}

func TestPrincipalFromTokenUnverified(t *testing.T) {
	claims := testClaims()
	claims.PreferredUsername = ""
	claims.UPN = "ann@upn.example.com"

	p, err := PrincipalFromToken(signed(t, "anything", claims))
	require.NoError(t, err)
	assert.Equal(t, "ann@upn.example.com", p.Login)

	_, err = PrincipalFromToken("")
	assert.ErrorIs(t, err, errors.ErrCredentialRequired)

	_, err = PrincipalFromToken("not.a.jwt")
	assert.True(t, errors.IsCredentialError(err))
}

func TestChecker(t *testing.T) {
	ctx := context.Background()
	c := NewChecker(nil, "admin")

	tests := []struct {
		name     string
		provider CredentialProvider
		state    State
		admin    bool
	}{
		{name: "no provider", provider: nil, state: StateMissing},
		{name: "empty token", provider: StaticToken(""), state: StateMissing},
		{name: "opaque", provider: StaticToken("opaque-token"), state: StateOpaque},
		{name: "jwt", provider: StaticToken(signed(t, "k", testClaims())), state: StateConfigured, admin: true},
		{name: "garbage jwt", provider: StaticToken("a.b.c"), state: StateInvalid},
		{name: "provider error", provider: TokenFunc(func(context.Context) (string, error) {
			return "", assert.AnError
		}), state: StateInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := c.Check(ctx, tt.provider)
			assert.Equal(t, tt.state, st.State, st.Summary)
			assert.Equal(t, tt.admin, st.Admin)
			if tt.state == StateConfigured {
				require.NotNil(t, st.Principal)
				assert.Equal(t, "Ann Smith", st.Principal.Name)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "configured", StateConfigured.String())
	assert.Equal(t, "opaque", StateOpaque.String())
	assert.Equal(t, "unknown", State(99).String())
}
