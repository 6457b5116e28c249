package mfa

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Settings is the durable MFA record, one per user. The TOTP secret is
// stored as provisioned; backup codes are stored only as bcrypt hashes.
type Settings struct {
	UserID           uuid.UUID
	TotpSecret       string
	TotpEnabled      bool
	SmsConfigured    bool
	SmsEnabled       bool
	EmailConfigured  bool
	EmailEnabled     bool
	PhoneNumber      string
	BackupCodeHashes []string
	CreatedAt        time.Time
	LastUsedAt       time.Time
	LastUsedAtValid  bool
}

// MethodConfigured reports whether setup provisioned a method, regardless
// of the enabled flag. For totp the secret itself is the evidence; for the
// out-of-band methods setup records which ones were requested.
func (s Settings) MethodConfigured(method Method) bool {
	switch method {
	case MethodTOTP:
		return s.TotpSecret != ""
	case MethodSMS:
		return s.SmsConfigured
	case MethodEmail:
		return s.EmailConfigured
	default:
		return false
	}
}

// MethodEnabled reports whether a method is active for the user
func (s Settings) MethodEnabled(method Method) bool {
	switch method {
	case MethodTOTP:
		return s.TotpEnabled && s.TotpSecret != ""
	case MethodSMS:
		return s.SmsEnabled
	case MethodEmail:
		return s.EmailEnabled
	default:
		return false
	}
}

// SetMethodEnabledParams represents parameters for toggling a method flag
type SetMethodEnabledParams struct {
	UserID  uuid.UUID
	Method  Method
	Enabled bool
	// ExpectedTotpSecret, when non-nil, makes the write conditional: the
	// repository refuses with ErrConcurrentUpdate if the stored secret no
	// longer matches. Enable-time code validation proves possession of
	// one specific secret, so the flag write must not land on a rotated
	// one.
	ExpectedTotpSecret *string
}

// SettingsRepository defines the storage collaborator for MFA settings.
//
// ConsumeBackupCode must be atomic per user: when two callers submit the
// same valid code concurrently, exactly one observes true.
type SettingsRepository interface {
	// Get returns the settings for a user, or ErrSettingsNotFound
	Get(ctx context.Context, userID uuid.UUID) (Settings, error)

	// Upsert creates or fully replaces the settings for a user
	Upsert(ctx context.Context, settings Settings) error

	// SetMethodEnabled flips a single method flag without touching the
	// underlying secret or codes
	SetMethodEnabled(ctx context.Context, params SetMethodEnabledParams) error

	// UpdateLastUsed records a successful verification timestamp
	UpdateLastUsed(ctx context.Context, userID uuid.UUID, at time.Time) error

	// ConsumeBackupCode removes the backup code matching the submitted
	// plaintext, returning whether a match was found and consumed.
	// Returns ErrSettingsNotFound when no settings exist for the user.
	ConsumeBackupCode(ctx context.Context, userID uuid.UUID, code string) (bool, error)

	// ClearAll disables every method, erases the TOTP secret and empties
	// the backup code set for a user
	ClearAll(ctx context.Context, userID uuid.UUID) error
}
