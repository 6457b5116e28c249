package elevation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewJwtTokenIssuer("test-secret", "simple-mfa", "session-layer")

	tv, err := issuer.IssueElevationToken("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, tv.Token)

	token, err := issuer.ParseToken(tv.Token)
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(*Claims)
	require.True(t, ok)
	assert.True(t, claims.MfaVerified)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "simple-mfa", claims.Issuer)
}

func TestExpiryDefaultsToFifteenMinutes(t *testing.T) {
	issuer := NewJwtTokenIssuer("test-secret", "simple-mfa", "session-layer")

	tv, err := issuer.IssueElevationToken("user-123")
	require.NoError(t, err)

	remaining := time.Until(tv.ExpiresAt)
	assert.Greater(t, remaining, 14*time.Minute)
	assert.LessOrEqual(t, remaining, 15*time.Minute)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	issuer := NewJwtTokenIssuer("test-secret", "simple-mfa", "session-layer")
	other := NewJwtTokenIssuer("other-secret", "simple-mfa", "session-layer")

	tv, err := issuer.IssueElevationToken("user-123")
	require.NoError(t, err)

	_, err = other.ParseToken(tv.Token)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	issuer := NewJwtTokenIssuer("test-secret", "simple-mfa", "session-layer",
		WithExpiry(-1*time.Minute))

	tv, err := issuer.IssueElevationToken("user-123")
	require.NoError(t, err)

	_, err = issuer.ParseToken(tv.Token)
	assert.Error(t, err)
}
