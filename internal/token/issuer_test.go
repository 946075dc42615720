package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpaqueToken(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)

	tok, err := issuer.NewOpaqueToken()
	require.NoError(t, err)
	assert.Len(t, tok, 64, "32 random bytes hex-encoded")
	assert.Regexp(t, "^[0-9a-f]{64}$", tok)

	other, err := issuer.NewOpaqueToken()
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}

func TestIssueAndValidateSession(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)

	signed, err := issuer.IssueSession("64f1a2b3c4d5e6f7a8b9c0d1", "user")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := issuer.ValidateSession(signed)
	require.NoError(t, err)
	assert.Equal(t, "64f1a2b3c4d5e6f7a8b9c0d1", claims.UserID)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "64f1a2b3c4d5e6f7a8b9c0d1", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestValidateSession_Expired(t *testing.T) {
	issuer := NewIssuer("test-secret", -time.Minute)

	signed, err := issuer.IssueSession("64f1a2b3c4d5e6f7a8b9c0d1", "user")
	require.NoError(t, err)

	_, err = issuer.ValidateSession(signed)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestValidateSession_WrongSecret(t *testing.T) {
	signed, err := NewIssuer("secret-a", time.Hour).IssueSession("64f1a2b3c4d5e6f7a8b9c0d1", "user")
	require.NoError(t, err)

	_, err = NewIssuer("secret-b", time.Hour).ValidateSession(signed)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestValidateSession_Garbage(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)

	for _, raw := range []string{"", "not-a-jwt", "aaaa.bbbb.cccc"} {
		_, err := issuer.ValidateSession(raw)
		assert.ErrorIs(t, err, ErrInvalidCredential, "raw=%q", raw)
	}
}

func TestValidateSession_Tampered(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)

	signed, err := issuer.IssueSession("64f1a2b3c4d5e6f7a8b9c0d1", "user")
	require.NoError(t, err)

	tampered := signed[:len(signed)-4] + "xxxx"
	_, err = issuer.ValidateSession(tampered)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}
