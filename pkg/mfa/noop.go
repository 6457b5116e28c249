package mfa

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// NoOpMfaService is a no-op implementation of Service. This allows
// services that depend on Service to work without actual MFA
// functionality when MFA is not needed/configured.
//
// Mutating and verifying methods return errors indicating MFA is not
// configured; GetStatus reports everything disabled.
type NoOpMfaService struct{}

// NewNoOpMfaService creates a new no-op MFA service.
// Use this when you don't need MFA functionality.
func NewNoOpMfaService() Service {
	return &NoOpMfaService{}
}

func (n *NoOpMfaService) SetupMFA(ctx context.Context, params SetupMfaParams) (SetupResult, error) {
	return SetupResult{}, fmt.Errorf("mfa not configured")
}

func (n *NoOpMfaService) EnableMethod(ctx context.Context, userID uuid.UUID, method Method, code string) error {
	return fmt.Errorf("mfa not configured")
}

func (n *NoOpMfaService) DisableMethod(ctx context.Context, userID uuid.UUID, method Method) error {
	return nil // Disabling is already the no-op state
}

func (n *NoOpMfaService) DisableAllMFA(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (n *NoOpMfaService) GetStatus(ctx context.Context, userID uuid.UUID) (Status, error) {
	return Status{UserID: userID}, nil // Nothing configured, nothing enabled
}

func (n *NoOpMfaService) SendChallenge(ctx context.Context, userID uuid.UUID, method Method) (string, error) {
	return "", fmt.Errorf("mfa not configured")
}

func (n *NoOpMfaService) VerifyChallenge(ctx context.Context, challengeID, code string) (VerifyResult, error) {
	return VerifyResult{}, fmt.Errorf("mfa not configured")
}

func (n *NoOpMfaService) VerifyTOTPCode(ctx context.Context, userID uuid.UUID, code string) (VerifyResult, error) {
	return VerifyResult{}, fmt.Errorf("mfa not configured")
}

func (n *NoOpMfaService) VerifyBackupCode(ctx context.Context, userID uuid.UUID, code string) (VerifyResult, error) {
	return VerifyResult{}, fmt.Errorf("mfa not configured")
}
