package mfa

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemorySettingsRepository implements SettingsRepository using in-memory
// storage. The write lock makes backup-code consumption atomic per store,
// which satisfies the per-user contract.
type InMemorySettingsRepository struct {
	mu       sync.RWMutex
	settings map[uuid.UUID]Settings
	hasher   BackupCodeHasher
}

// NewInMemorySettingsRepository creates a new in-memory settings repository
func NewInMemorySettingsRepository(hasher BackupCodeHasher) *InMemorySettingsRepository {
	if hasher == nil {
		hasher = &BcryptHasher{}
	}
	return &InMemorySettingsRepository{
		settings: make(map[uuid.UUID]Settings),
		hasher:   hasher,
	}
}

// Get retrieves the settings for a user
func (r *InMemorySettingsRepository) Get(ctx context.Context, userID uuid.UUID) (Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.settings[userID]
	if !ok {
		return Settings{}, ErrSettingsNotFound
	}
	return copySettings(s), nil
}

// Upsert creates or replaces the settings for a user
func (r *InMemorySettingsRepository) Upsert(ctx context.Context, settings Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings[settings.UserID] = copySettings(settings)
	return nil
}

// SetMethodEnabled flips a single method flag
func (r *InMemorySettingsRepository) SetMethodEnabled(ctx context.Context, params SetMethodEnabledParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.settings[params.UserID]
	if !ok {
		return ErrSettingsNotFound
	}
	if params.ExpectedTotpSecret != nil && s.TotpSecret != *params.ExpectedTotpSecret {
		return ErrConcurrentUpdate
	}

	switch params.Method {
	case MethodTOTP:
		s.TotpEnabled = params.Enabled
	case MethodSMS:
		s.SmsEnabled = params.Enabled
	case MethodEmail:
		s.EmailEnabled = params.Enabled
	default:
		return ErrInvalidMethod
	}

	r.settings[params.UserID] = s
	return nil
}

// UpdateLastUsed records a successful verification timestamp
func (r *InMemorySettingsRepository) UpdateLastUsed(ctx context.Context, userID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.settings[userID]
	if !ok {
		return ErrSettingsNotFound
	}

	s.LastUsedAt = at
	s.LastUsedAtValid = true
	r.settings[userID] = s
	return nil
}

// ConsumeBackupCode removes the backup code matching the submitted
// plaintext under the write lock, so at most one concurrent caller can
// consume a given code
func (r *InMemorySettingsRepository) ConsumeBackupCode(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.settings[userID]
	if !ok {
		return false, ErrSettingsNotFound
	}

	for i, hash := range s.BackupCodeHashes {
		match, err := r.hasher.Verify(code, hash)
		if err != nil {
			return false, err
		}
		if match {
			s.BackupCodeHashes = append(s.BackupCodeHashes[:i], s.BackupCodeHashes[i+1:]...)
			r.settings[userID] = s
			return true, nil
		}
	}
	return false, nil
}

// ClearAll disables every method and erases secrets and backup codes
func (r *InMemorySettingsRepository) ClearAll(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.settings[userID]
	if !ok {
		return ErrSettingsNotFound
	}

	s.TotpEnabled = false
	s.SmsConfigured = false
	s.SmsEnabled = false
	s.EmailConfigured = false
	s.EmailEnabled = false
	s.TotpSecret = ""
	s.BackupCodeHashes = nil
	r.settings[userID] = s
	return nil
}

func copySettings(s Settings) Settings {
	out := s
	out.BackupCodeHashes = make([]string, len(s.BackupCodeHashes))
	copy(out.BackupCodeHashes, s.BackupCodeHashes)
	return out
}
