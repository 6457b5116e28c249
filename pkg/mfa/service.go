package mfa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/tendant/simple-mfa/pkg/challenge"
	"github.com/tendant/simple-mfa/pkg/elevation"
	"github.com/tendant/simple-mfa/pkg/notification"
)

const (
	// DefaultTotpPeriod is the TOTP time-step length in seconds
	DefaultTotpPeriod = 30

	// DefaultTotpSkew is how many steps either side of now a code is
	// accepted, to absorb clock drift between client and server
	DefaultTotpSkew = 2

	// DefaultChallengeTTL is how long an out-of-band challenge stays
	// verifiable after issuance
	DefaultChallengeTTL = 5 * time.Minute

	// DefaultChallengeMaxAttempts is the per-challenge guess budget
	DefaultChallengeMaxAttempts = 5

	// DefaultIssuer is the issuer name embedded in otpauth URLs
	DefaultIssuer = "simple-mfa"
)

// EmailResolver supplies the verified email address for a user. Email
// addresses belong to the identity system, not to MFA settings, so the
// service asks for them at dispatch time.
type EmailResolver interface {
	ResolveEmail(ctx context.Context, userID uuid.UUID) (string, error)
}

// SetupMfaParams represents parameters for SetupMFA
type SetupMfaParams struct {
	UserID uuid.UUID
	// Methods is a non-empty set drawn from totp, sms, email
	Methods []Method
	// PhoneNumber is optional; when empty, any previously stored number
	// is kept
	PhoneNumber string
}

// SetupResult carries the enrollment artifacts. This is the only time
// the secret and the backup codes leave the service in the clear.
type SetupResult struct {
	Secret      string
	OtpauthURL  string
	BackupCodes []string
}

// Status is the per-user view of MFA state. It never carries the secret
// or the backup codes.
type Status struct {
	UserID               uuid.UUID
	TotpConfigured       bool
	TotpEnabled          bool
	SmsConfigured        bool
	SmsEnabled           bool
	EmailConfigured      bool
	EmailEnabled         bool
	BackupCodesRemaining int
	CreatedAt            time.Time
	LastUsedAt           time.Time
	LastUsedAtValid      bool
}

// VerifyResult is returned on any successful second-factor verification
type VerifyResult struct {
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
}

// Service is the MFA challenge-and-verification surface consumed by an
// external session/authorization layer
type Service interface {
	SetupMFA(ctx context.Context, params SetupMfaParams) (SetupResult, error)
	EnableMethod(ctx context.Context, userID uuid.UUID, method Method, code string) error
	DisableMethod(ctx context.Context, userID uuid.UUID, method Method) error
	DisableAllMFA(ctx context.Context, userID uuid.UUID) error
	GetStatus(ctx context.Context, userID uuid.UUID) (Status, error)
	SendChallenge(ctx context.Context, userID uuid.UUID, method Method) (string, error)
	VerifyChallenge(ctx context.Context, challengeID, code string) (VerifyResult, error)
	VerifyTOTPCode(ctx context.Context, userID uuid.UUID, code string) (VerifyResult, error)
	VerifyBackupCode(ctx context.Context, userID uuid.UUID, code string) (VerifyResult, error)
}

// MfaService implements Service on top of a SettingsRepository, a
// challenge.Store, a notification manager and an elevation token issuer
type MfaService struct {
	repo                 SettingsRepository
	hasher               BackupCodeHasher
	challengeStore       challenge.Store
	notificationManager  *notification.NotificationManager
	tokenIssuer          elevation.TokenIssuer
	emailResolver        EmailResolver
	issuer               string
	totpPeriod           uint
	totpSkew             uint
	challengeTTL         time.Duration
	challengeMaxAttempts int
	backupCodeCount      int
	now                  func() time.Time
}

// MfaServiceOption configures an MfaService
type MfaServiceOption func(*MfaService)

// WithChallengeStore sets the store used for out-of-band challenges
func WithChallengeStore(store challenge.Store) MfaServiceOption {
	return func(s *MfaService) {
		s.challengeStore = store
	}
}

// WithNotificationManager sets the dispatcher for out-of-band delivery
func WithNotificationManager(nm *notification.NotificationManager) MfaServiceOption {
	return func(s *MfaService) {
		s.notificationManager = nm
	}
}

// WithTokenIssuer sets the elevation token issuer. Without one,
// verification still succeeds but VerifyResult carries no token.
func WithTokenIssuer(issuer elevation.TokenIssuer) MfaServiceOption {
	return func(s *MfaService) {
		s.tokenIssuer = issuer
	}
}

// WithEmailResolver sets the collaborator that maps user IDs to verified
// email addresses
func WithEmailResolver(resolver EmailResolver) MfaServiceOption {
	return func(s *MfaService) {
		s.emailResolver = resolver
	}
}

// WithIssuer sets the issuer name embedded in otpauth provisioning URLs
func WithIssuer(issuer string) MfaServiceOption {
	return func(s *MfaService) {
		s.issuer = issuer
	}
}

// WithTotpPeriod overrides the TOTP step length in seconds
func WithTotpPeriod(period uint) MfaServiceOption {
	return func(s *MfaService) {
		s.totpPeriod = period
	}
}

// WithTotpSkew overrides the accepted TOTP window in steps
func WithTotpSkew(skew uint) MfaServiceOption {
	return func(s *MfaService) {
		s.totpSkew = skew
	}
}

// WithChallengeTTL overrides the out-of-band challenge lifetime
func WithChallengeTTL(ttl time.Duration) MfaServiceOption {
	return func(s *MfaService) {
		s.challengeTTL = ttl
	}
}

// WithChallengeMaxAttempts overrides the per-challenge guess budget
func WithChallengeMaxAttempts(max int) MfaServiceOption {
	return func(s *MfaService) {
		s.challengeMaxAttempts = max
	}
}

// WithBackupCodeCount overrides how many backup codes setup issues
func WithBackupCodeCount(count int) MfaServiceOption {
	return func(s *MfaService) {
		s.backupCodeCount = count
	}
}

// WithNowFunc overrides the clock, for tests
func WithNowFunc(now func() time.Time) MfaServiceOption {
	return func(s *MfaService) {
		s.now = now
	}
}

// NewMfaService creates a new MfaService
func NewMfaService(repo SettingsRepository, opts ...MfaServiceOption) *MfaService {
	s := &MfaService{
		repo:                 repo,
		hasher:               &BcryptHasher{},
		issuer:               DefaultIssuer,
		totpPeriod:           DefaultTotpPeriod,
		totpSkew:             DefaultTotpSkew,
		challengeTTL:         DefaultChallengeTTL,
		challengeMaxAttempts: DefaultChallengeMaxAttempts,
		backupCodeCount:      DefaultBackupCodeCount,
		now:                  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetupMFA provisions MFA for a user. A fresh TOTP secret is generated
// whenever totp is among the requested methods, even if one already
// exists; the backup-code batch is always regenerated. Requested methods
// come out configured but not enabled, and any prior secret or codes are
// overwritten unconditionally.
func (s *MfaService) SetupMFA(ctx context.Context, params SetupMfaParams) (SetupResult, error) {
	if len(params.Methods) == 0 {
		return SetupResult{}, fmt.Errorf("%w: no methods requested", ErrInvalidMethod)
	}
	var wantTotp, wantSms, wantEmail bool
	for _, m := range params.Methods {
		if _, err := ParseMethod(string(m)); err != nil {
			return SetupResult{}, err
		}
		switch m {
		case MethodTOTP:
			wantTotp = true
		case MethodSMS:
			wantSms = true
		case MethodEmail:
			wantEmail = true
		}
	}

	existing, err := s.repo.Get(ctx, params.UserID)
	if err != nil && !errors.Is(err, ErrSettingsNotFound) {
		return SetupResult{}, fmt.Errorf("failed to load mfa settings: %w", err)
	}

	settings := Settings{
		UserID:          params.UserID,
		SmsConfigured:   wantSms,
		EmailConfigured: wantEmail,
		PhoneNumber:     params.PhoneNumber,
		CreatedAt:       s.now().UTC(),
	}
	if err == nil {
		settings.CreatedAt = existing.CreatedAt
		if params.PhoneNumber == "" {
			settings.PhoneNumber = existing.PhoneNumber
		}
	}

	result := SetupResult{}
	if wantTotp {
		key, err := GenerateTotpKey(s.issuer, params.UserID.String())
		if err != nil {
			return SetupResult{}, fmt.Errorf("failed to generate totp key: %w", err)
		}
		settings.TotpSecret = key.Secret
		result.Secret = key.Secret
		result.OtpauthURL = key.OtpauthURL
	}

	codes, err := GenerateBackupCodes(s.backupCodeCount)
	if err != nil {
		return SetupResult{}, err
	}
	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		hash, err := s.hasher.Hash(code)
		if err != nil {
			return SetupResult{}, fmt.Errorf("failed to hash backup code: %w", err)
		}
		hashes = append(hashes, hash)
	}
	settings.BackupCodeHashes = hashes
	result.BackupCodes = codes

	if err := s.repo.Upsert(ctx, settings); err != nil {
		slog.Error("Failed to persist mfa settings", "userID", params.UserID, "err", err)
		return SetupResult{}, fmt.Errorf("failed to persist mfa settings: %w", err)
	}

	return result, nil
}

// EnableMethod activates a configured method. For totp the submitted
// code must verify against the stored secret, which proves the
// authenticator was provisioned. sms and email require no code, so
// enabling them does not prove possession of the channel; callers who
// need that proof should send and verify a challenge first.
func (s *MfaService) EnableMethod(ctx context.Context, userID uuid.UUID, method Method, code string) error {
	if _, err := ParseMethod(string(method)); err != nil {
		return err
	}

	settings, err := s.repo.Get(ctx, userID)
	if errors.Is(err, ErrSettingsNotFound) {
		return ErrNotSetUp
	}
	if err != nil {
		return fmt.Errorf("failed to load mfa settings: %w", err)
	}

	params := SetMethodEnabledParams{
		UserID:  userID,
		Method:  method,
		Enabled: true,
	}
	if method == MethodTOTP {
		if settings.TotpSecret == "" {
			return ErrNotSetUp
		}
		ok, err := s.validateTotp(code, settings.TotpSecret, s.now())
		if err != nil {
			return fmt.Errorf("failed to validate totp code: %w", err)
		}
		if !ok {
			return ErrInvalidCode
		}
		// The flag write is conditional on the validated secret so a
		// setup rotation landing after validation cannot enable a
		// secret nobody proved possession of.
		params.ExpectedTotpSecret = &settings.TotpSecret
	}

	return s.repo.SetMethodEnabled(ctx, params)
}

// DisableMethod flips a method off. Disabling an already-disabled method
// is a no-op; the underlying secret and backup codes are untouched.
func (s *MfaService) DisableMethod(ctx context.Context, userID uuid.UUID, method Method) error {
	if _, err := ParseMethod(string(method)); err != nil {
		return err
	}

	err := s.repo.SetMethodEnabled(ctx, SetMethodEnabledParams{
		UserID:  userID,
		Method:  method,
		Enabled: false,
	})
	if errors.Is(err, ErrSettingsNotFound) {
		return ErrNotSetUp
	}
	return err
}

// DisableAllMFA clears every enabled flag, erases the TOTP secret and
// empties the backup-code set. Recovery requires full re-enrollment, so
// callers must gate who may invoke this.
func (s *MfaService) DisableAllMFA(ctx context.Context, userID uuid.UUID) error {
	err := s.repo.ClearAll(ctx, userID)
	if errors.Is(err, ErrSettingsNotFound) {
		return ErrNotSetUp
	}
	return err
}

// GetStatus reports per-method configured/enabled state and how many
// backup codes remain
func (s *MfaService) GetStatus(ctx context.Context, userID uuid.UUID) (Status, error) {
	settings, err := s.repo.Get(ctx, userID)
	if errors.Is(err, ErrSettingsNotFound) {
		return Status{}, ErrNotSetUp
	}
	if err != nil {
		return Status{}, fmt.Errorf("failed to load mfa settings: %w", err)
	}

	return Status{
		UserID:               settings.UserID,
		TotpConfigured:       settings.MethodConfigured(MethodTOTP),
		TotpEnabled:          settings.MethodEnabled(MethodTOTP),
		SmsConfigured:        settings.MethodConfigured(MethodSMS),
		SmsEnabled:           settings.MethodEnabled(MethodSMS),
		EmailConfigured:      settings.MethodConfigured(MethodEmail),
		EmailEnabled:         settings.MethodEnabled(MethodEmail),
		BackupCodesRemaining: len(settings.BackupCodeHashes),
		CreatedAt:            settings.CreatedAt,
		LastUsedAt:           settings.LastUsedAt,
		LastUsedAtValid:      settings.LastUsedAtValid,
	}, nil
}

// SendChallenge issues an out-of-band challenge and dispatches the code
// over the requested channel. The code is never returned to the caller,
// only the challenge ID. A transport failure deletes the challenge and
// reports ErrDeliveryFailed so an undeliverable challenge is never left
// looking like a delivered one.
func (s *MfaService) SendChallenge(ctx context.Context, userID uuid.UUID, method Method) (string, error) {
	if _, err := ParseMethod(string(method)); err != nil {
		return "", err
	}
	if !method.IsOutOfBand() {
		return "", fmt.Errorf("%w: %s does not use challenges", ErrInvalidMethod, method)
	}
	if s.challengeStore == nil {
		return "", fmt.Errorf("no challenge store configured")
	}

	settings, err := s.repo.Get(ctx, userID)
	if errors.Is(err, ErrSettingsNotFound) {
		return "", ErrNotSetUp
	}
	if err != nil {
		return "", fmt.Errorf("failed to load mfa settings: %w", err)
	}
	if !settings.MethodEnabled(method) {
		return "", ErrMethodNotEnabled
	}

	var system notification.NotificationSystem
	var recipient string
	switch method {
	case MethodSMS:
		if settings.PhoneNumber == "" {
			return "", ErrNoPhoneNumber
		}
		system = notification.SMSSystem
		recipient = settings.PhoneNumber
	case MethodEmail:
		if s.emailResolver == nil {
			return "", fmt.Errorf("no email resolver configured")
		}
		recipient, err = s.emailResolver.ResolveEmail(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("failed to resolve email address: %w", err)
		}
		system = notification.EmailSystem
	}
	if s.notificationManager == nil || !s.notificationManager.HasNotifier(system) {
		return "", fmt.Errorf("%w: no %s notifier configured", ErrDeliveryFailed, system)
	}

	code, err := GenerateChallengeCode()
	if err != nil {
		return "", err
	}
	challengeID, err := GenerateChallengeID()
	if err != nil {
		return "", err
	}

	ch := challenge.Challenge{
		ID:          challengeID,
		UserID:      userID,
		Method:      string(method),
		Code:        code,
		ExpiresAt:   s.now().Add(s.challengeTTL),
		MaxAttempts: s.challengeMaxAttempts,
	}
	if err := s.challengeStore.Put(ctx, ch); err != nil {
		return "", fmt.Errorf("failed to store challenge: %w", err)
	}

	// Dispatch happens after Put and outside any store lock; the send can
	// block on network I/O.
	err = s.notificationManager.Send(notification.MfaCodeNotice, system, notification.NotificationData{
		To:   recipient,
		Data: map[string]string{"Passcode": code},
	})
	if err != nil {
		slog.Error("Failed to deliver mfa challenge", "userID", userID, "method", method, "err", err)
		if delErr := s.challengeStore.Delete(ctx, challengeID); delErr != nil {
			slog.Error("Failed to delete undelivered challenge", "challengeID", challengeID, "err", delErr)
		}
		return "", fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	return challengeID, nil
}

// VerifyChallenge checks a submitted code against an issued challenge.
// A matching code consumes the challenge and yields an elevation token;
// mismatches burn one attempt. Challenge lifecycle errors (NotFound,
// Expired, AttemptsExceeded) pass through from the store unchanged.
func (s *MfaService) VerifyChallenge(ctx context.Context, challengeID, code string) (VerifyResult, error) {
	if s.challengeStore == nil {
		return VerifyResult{}, fmt.Errorf("no challenge store configured")
	}

	ch, err := s.challengeStore.Verify(ctx, challengeID, code)
	if errors.Is(err, challenge.ErrCodeMismatch) {
		return VerifyResult{}, ErrInvalidCode
	}
	if err != nil {
		return VerifyResult{}, err
	}

	return s.verified(ctx, ch.UserID)
}

// VerifyTOTPCode validates a time-based code against the stored secret.
// The code for the current 30-second step is accepted, as is any step
// within the skew window either side of now.
func (s *MfaService) VerifyTOTPCode(ctx context.Context, userID uuid.UUID, code string) (VerifyResult, error) {
	settings, err := s.repo.Get(ctx, userID)
	if errors.Is(err, ErrSettingsNotFound) {
		return VerifyResult{}, ErrNotSetUp
	}
	if err != nil {
		return VerifyResult{}, fmt.Errorf("failed to load mfa settings: %w", err)
	}
	if !settings.MethodEnabled(MethodTOTP) {
		return VerifyResult{}, ErrMethodNotEnabled
	}

	ok, err := s.validateTotp(code, settings.TotpSecret, s.now())
	if err != nil {
		return VerifyResult{}, fmt.Errorf("failed to validate totp code: %w", err)
	}
	if !ok {
		return VerifyResult{}, ErrInvalidCode
	}

	return s.verified(ctx, userID)
}

// VerifyBackupCode consumes a single-use recovery code. Concurrent
// submissions of the same code yield exactly one success; the repository
// enforces that.
func (s *MfaService) VerifyBackupCode(ctx context.Context, userID uuid.UUID, code string) (VerifyResult, error) {
	ok, err := s.repo.ConsumeBackupCode(ctx, userID, code)
	if errors.Is(err, ErrSettingsNotFound) {
		return VerifyResult{}, ErrNotSetUp
	}
	if err != nil {
		return VerifyResult{}, fmt.Errorf("failed to consume backup code: %w", err)
	}
	if !ok {
		return VerifyResult{}, ErrInvalidCode
	}

	return s.verified(ctx, userID)
}

func (s *MfaService) validateTotp(code, secret string, at time.Time) (bool, error) {
	return totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    s.totpPeriod,
		Skew:      s.totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}

// verified records the successful verification and issues the elevation
// token. A failure to stamp lastUsedAt is logged, not returned; the
// verification itself already succeeded.
func (s *MfaService) verified(ctx context.Context, userID uuid.UUID) (VerifyResult, error) {
	if err := s.repo.UpdateLastUsed(ctx, userID, s.now().UTC()); err != nil {
		slog.Error("Failed to update last used timestamp", "userID", userID, "err", err)
	}

	result := VerifyResult{UserID: userID}
	if s.tokenIssuer != nil {
		token, err := s.tokenIssuer.IssueElevationToken(userID.String())
		if err != nil {
			return VerifyResult{}, fmt.Errorf("failed to issue elevation token: %w", err)
		}
		result.Token = token.Token
		result.ExpiresAt = token.ExpiresAt
	}
	return result, nil
}
