package mfa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSettingsRepository implements SettingsRepository using PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE mfa_settings (
//	    user_id          UUID PRIMARY KEY,
//	    totp_secret      TEXT NOT NULL DEFAULT '',
//	    totp_enabled     BOOLEAN NOT NULL DEFAULT FALSE,
//	    sms_configured   BOOLEAN NOT NULL DEFAULT FALSE,
//	    sms_enabled      BOOLEAN NOT NULL DEFAULT FALSE,
//	    email_configured BOOLEAN NOT NULL DEFAULT FALSE,
//	    email_enabled    BOOLEAN NOT NULL DEFAULT FALSE,
//	    phone_number     TEXT NOT NULL DEFAULT '',
//	    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    last_used_at     TIMESTAMPTZ
//	);
//
//	CREATE TABLE mfa_backup_codes (
//	    user_id   UUID NOT NULL REFERENCES mfa_settings(user_id) ON DELETE CASCADE,
//	    code_hash TEXT NOT NULL
//	);
//	CREATE INDEX mfa_backup_codes_user_idx ON mfa_backup_codes(user_id);
type PostgresSettingsRepository struct {
	pool   *pgxpool.Pool
	hasher BackupCodeHasher
}

// NewPostgresSettingsRepository creates a new PostgreSQL-based settings
// repository
func NewPostgresSettingsRepository(pool *pgxpool.Pool, hasher BackupCodeHasher) *PostgresSettingsRepository {
	if hasher == nil {
		hasher = &BcryptHasher{}
	}
	return &PostgresSettingsRepository{pool: pool, hasher: hasher}
}

// Get retrieves the settings for a user
func (r *PostgresSettingsRepository) Get(ctx context.Context, userID uuid.UUID) (Settings, error) {
	var s Settings
	var lastUsedAt *time.Time

	row := r.pool.QueryRow(ctx, `
		SELECT user_id, totp_secret, totp_enabled, sms_configured, sms_enabled,
		       email_configured, email_enabled, phone_number, created_at, last_used_at
		FROM mfa_settings WHERE user_id = $1`, userID)
	err := row.Scan(&s.UserID, &s.TotpSecret, &s.TotpEnabled, &s.SmsConfigured,
		&s.SmsEnabled, &s.EmailConfigured, &s.EmailEnabled, &s.PhoneNumber,
		&s.CreatedAt, &lastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, ErrSettingsNotFound
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to get mfa settings: %w", err)
	}
	if lastUsedAt != nil {
		s.LastUsedAt = *lastUsedAt
		s.LastUsedAtValid = true
	}

	rows, err := r.pool.Query(ctx, `
		SELECT code_hash FROM mfa_backup_codes WHERE user_id = $1`, userID)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to get backup codes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return Settings{}, fmt.Errorf("failed to scan backup code: %w", err)
		}
		s.BackupCodeHashes = append(s.BackupCodeHashes, hash)
	}
	if err := rows.Err(); err != nil {
		return Settings{}, fmt.Errorf("failed to read backup codes: %w", err)
	}

	return s, nil
}

// Upsert creates or replaces the settings for a user, backup codes included
func (r *PostgresSettingsRepository) Upsert(ctx context.Context, settings Settings) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var lastUsedAt *time.Time
	if settings.LastUsedAtValid {
		lastUsedAt = &settings.LastUsedAt
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO mfa_settings (user_id, totp_secret, totp_enabled, sms_configured,
		                          sms_enabled, email_configured, email_enabled,
		                          phone_number, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
		    totp_secret = EXCLUDED.totp_secret,
		    totp_enabled = EXCLUDED.totp_enabled,
		    sms_configured = EXCLUDED.sms_configured,
		    sms_enabled = EXCLUDED.sms_enabled,
		    email_configured = EXCLUDED.email_configured,
		    email_enabled = EXCLUDED.email_enabled,
		    phone_number = EXCLUDED.phone_number,
		    last_used_at = EXCLUDED.last_used_at`,
		settings.UserID, settings.TotpSecret, settings.TotpEnabled, settings.SmsConfigured,
		settings.SmsEnabled, settings.EmailConfigured, settings.EmailEnabled,
		settings.PhoneNumber, settings.CreatedAt, lastUsedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert mfa settings: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM mfa_backup_codes WHERE user_id = $1`, settings.UserID)
	if err != nil {
		return fmt.Errorf("failed to clear backup codes: %w", err)
	}
	for _, hash := range settings.BackupCodeHashes {
		_, err = tx.Exec(ctx, `
			INSERT INTO mfa_backup_codes (user_id, code_hash) VALUES ($1, $2)`,
			settings.UserID, hash)
		if err != nil {
			return fmt.Errorf("failed to insert backup code: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// SetMethodEnabled flips a single method flag
func (r *PostgresSettingsRepository) SetMethodEnabled(ctx context.Context, params SetMethodEnabledParams) error {
	var column string
	switch params.Method {
	case MethodTOTP:
		column = "totp_enabled"
	case MethodSMS:
		column = "sms_enabled"
	case MethodEmail:
		column = "email_enabled"
	default:
		return ErrInvalidMethod
	}

	query := fmt.Sprintf(`UPDATE mfa_settings SET %s = $1 WHERE user_id = $2`, column)
	args := []interface{}{params.Enabled, params.UserID}
	if params.ExpectedTotpSecret != nil {
		query += ` AND totp_secret = $3`
		args = append(args, *params.ExpectedTotpSecret)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update method flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if params.ExpectedTotpSecret == nil {
			return ErrSettingsNotFound
		}
		var exists bool
		err := r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM mfa_settings WHERE user_id = $1)`, params.UserID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check mfa settings: %w", err)
		}
		if exists {
			return ErrConcurrentUpdate
		}
		return ErrSettingsNotFound
	}
	return nil
}

// UpdateLastUsed records a successful verification timestamp
func (r *PostgresSettingsRepository) UpdateLastUsed(ctx context.Context, userID uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE mfa_settings SET last_used_at = $1 WHERE user_id = $2`, at, userID)
	if err != nil {
		return fmt.Errorf("failed to update last used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSettingsNotFound
	}
	return nil
}

// ConsumeBackupCode removes the backup code matching the submitted
// plaintext. The row lock taken by FOR UPDATE serializes concurrent
// consumption of the same user's codes.
func (r *PostgresSettingsRepository) ConsumeBackupCode(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Same contract as the in-memory repository: a missing settings row
	// is ErrSettingsNotFound, not a code mismatch.
	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM mfa_settings WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check mfa settings: %w", err)
	}
	if !exists {
		return false, ErrSettingsNotFound
	}

	rows, err := tx.Query(ctx, `
		SELECT ctid::text, code_hash FROM mfa_backup_codes
		WHERE user_id = $1 FOR UPDATE`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to lock backup codes: %w", err)
	}

	type candidate struct {
		ctid string
		hash string
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.ctid, &c.hash); err != nil {
			rows.Close()
			return false, fmt.Errorf("failed to scan backup code: %w", err)
		}
		candidates = append(candidates, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("failed to read backup codes: %w", err)
	}

	for _, c := range candidates {
		match, err := r.hasher.Verify(code, c.hash)
		if err != nil {
			return false, err
		}
		if match {
			_, err = tx.Exec(ctx, `
				DELETE FROM mfa_backup_codes
				WHERE user_id = $1 AND ctid = $2::tid`, userID, c.ctid)
			if err != nil {
				return false, fmt.Errorf("failed to consume backup code: %w", err)
			}
			return true, tx.Commit(ctx)
		}
	}

	return false, tx.Commit(ctx)
}

// ClearAll disables every method and erases secrets and backup codes
func (r *PostgresSettingsRepository) ClearAll(ctx context.Context, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE mfa_settings
		SET totp_enabled = FALSE, sms_configured = FALSE, sms_enabled = FALSE,
		    email_configured = FALSE, email_enabled = FALSE, totp_secret = ''
		WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear mfa settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSettingsNotFound
	}

	_, err = tx.Exec(ctx, `DELETE FROM mfa_backup_codes WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear backup codes: %w", err)
	}

	return tx.Commit(ctx)
}
