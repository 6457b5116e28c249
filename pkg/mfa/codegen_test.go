package mfa

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTotpKey(t *testing.T) {
	key, err := GenerateTotpKey("simple-mfa", "user@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, key.Secret)
	assert.Contains(t, key.OtpauthURL, "otpauth://totp/")
	assert.Contains(t, key.OtpauthURL, "simple-mfa")
}

func TestGenerateChallengeCodeRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateChallengeCode()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestGenerateBackupCodes(t *testing.T) {
	codes, err := GenerateBackupCodes(10)
	require.NoError(t, err)
	require.Len(t, codes, 10)

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.Len(t, code, 8)
		assert.Regexp(t, "^[0-9a-f]{8}$", code)
		assert.False(t, seen[code], "backup codes must be distinct")
		seen[code] = true
	}
}

func TestGenerateBackupCodesDefaultsCount(t *testing.T) {
	codes, err := GenerateBackupCodes(0)
	require.NoError(t, err)
	assert.Len(t, codes, DefaultBackupCodeCount)
}

func TestGenerateChallengeIDUnique(t *testing.T) {
	a, err := GenerateChallengeID()
	require.NoError(t, err)
	b, err := GenerateChallengeID()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
