package mfa

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/pquerna/otp/totp"
)

const (
	// DefaultBackupCodeCount is the number of recovery codes issued per setup
	DefaultBackupCodeCount = 10

	// backupCodeBytes yields 8 hex characters per code
	backupCodeBytes = 4
)

// TotpKey is the provisioning artifact returned once at setup time
type TotpKey struct {
	Secret     string
	OtpauthURL string
}

// GenerateTotpKey creates a fresh shared secret plus the otpauth URL a
// client can render as a QR code for authenticator apps
func GenerateTotpKey(issuer, accountName string) (TotpKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
	})
	if err != nil {
		slog.Error("Failed to generate totp secret", "accountName", accountName, "issuer", issuer, "error", err)
		return TotpKey{}, err
	}
	return TotpKey{Secret: key.Secret(), OtpauthURL: key.URL()}, nil
}

// GenerateChallengeCode draws a 6-digit code uniformly from
// [100000, 999999]
func GenerateChallengeCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate challenge code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// GenerateBackupCodes creates count single-use recovery codes, each 8 hex
// characters (32 bits of entropy)
func GenerateBackupCodes(count int) ([]string, error) {
	if count <= 0 {
		count = DefaultBackupCodeCount
	}

	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		buf := make([]byte, backupCodeBytes)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}
		codes = append(codes, hex.EncodeToString(buf))
	}
	return codes, nil
}

// GenerateChallengeID creates an opaque random challenge identifier
func GenerateChallengeID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate challenge id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
