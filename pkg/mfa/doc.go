// Package mfa provides multi-factor authentication enrollment and
// verification for simple-mfa.
//
// This package covers TOTP (Time-based One-Time Password), out-of-band
// SMS and email challenges, and single-use backup codes. Successful
// verification by any method yields a short-lived elevation token for
// the session layer.
//
// # Overview
//
// The mfa package provides:
//   - Per-user MFA settings with configured/enabled state per method
//   - TOTP secret provisioning with otpauth URL for authenticator apps
//   - Out-of-band challenge issuance over SMS or email
//   - Single-use backup codes, bcrypt-hashed at rest
//   - Elevation token issuance on successful verification
//   - In-memory and PostgreSQL settings repositories
//
// # Basic Usage
//
//	import "github.com/tendant/simple-mfa/pkg/mfa"
//
//	repo := mfa.NewInMemorySettingsRepository(nil)
//	service := mfa.NewMfaService(
//		repo,
//		mfa.WithChallengeStore(challengeStore),
//		mfa.WithNotificationManager(notificationManager),
//		mfa.WithTokenIssuer(tokenIssuer),
//		mfa.WithIssuer("MyApp"),
//	)
//
//	// Enroll a user with TOTP and backup codes
//	result, err := service.SetupMFA(ctx, mfa.SetupMfaParams{
//		UserID:  userID,
//		Methods: []mfa.Method{mfa.MethodTOTP},
//	})
//	// result.Secret, result.OtpauthURL, result.BackupCodes are returned
//	// exactly once; store nothing but show them to the user now.
//
//	// User proves the authenticator works, then totp is enabled
//	err = service.EnableMethod(ctx, userID, mfa.MethodTOTP, codeFromApp)
//
//	// Later, at login time
//	verify, err := service.VerifyTOTPCode(ctx, userID, codeFromApp)
//	// verify.Token is the elevation token for the session layer
//
// # Out-of-Band Challenges
//
//	// Issue a challenge; the code travels over the channel, never to
//	// the caller
//	challengeID, err := service.SendChallenge(ctx, userID, mfa.MethodEmail)
//
//	// User submits the code they received
//	verify, err := service.VerifyChallenge(ctx, challengeID, submittedCode)
//
// A challenge expires 5 minutes after issuance and allows 5 attempts.
// Both are configurable with WithChallengeTTL and
// WithChallengeMaxAttempts.
//
// # Backup Codes
//
//	verify, err := service.VerifyBackupCode(ctx, userID, recoveryCode)
//
// Each code works exactly once. Codes are stored only as bcrypt hashes,
// so they cannot be re-displayed after setup; SetupMFA regenerates the
// full batch.
//
// # Error Handling
//
// Verification failures come back as sentinel errors: ErrInvalidCode
// for any mismatched code, ErrMethodNotEnabled and ErrNotSetUp for
// state problems, ErrDeliveryFailed when the transport could not
// deliver a challenge. Challenge lifecycle errors (challenge.ErrExpired,
// challenge.ErrAttemptsExceeded, challenge.ErrNotFound) pass through
// unchanged. Callers presenting errors to end users should collapse the
// verification failures into one generic message; the distinctions are
// for logs and metrics.
//
// # Related Packages
//
//   - pkg/challenge - TTL-bearing challenge store (in-memory, Redis)
//   - pkg/notification - SMS and email delivery
//   - pkg/elevation - elevation token issuance
package mfa
