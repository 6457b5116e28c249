package api

// SetupRequest represents the request to set up MFA for a user
type SetupRequest struct {
	UserId      string   `json:"user_id"`
	Methods     []string `json:"methods"`
	PhoneNumber string   `json:"phone_number,omitempty"`
}

// SetupResponse carries the one-time enrollment artifacts
type SetupResponse struct {
	Secret      string   `json:"secret,omitempty"`
	OtpauthUrl  string   `json:"otpauth_url,omitempty"`
	BackupCodes []string `json:"backup_codes"`
}

// EnableMethodRequest represents the request to enable an MFA method
type EnableMethodRequest struct {
	UserId string `json:"user_id"`
	Method string `json:"method"`
	Code   string `json:"code,omitempty"`
}

// DisableMethodRequest represents the request to disable an MFA method
type DisableMethodRequest struct {
	UserId string `json:"user_id"`
	Method string `json:"method"`
}

// DisableAllRequest represents the request to fully reset MFA for a user
type DisableAllRequest struct {
	UserId string `json:"user_id"`
}

// StatusResponse represents the MFA status of a user
type StatusResponse struct {
	UserId               string  `json:"user_id"`
	TotpConfigured       bool    `json:"totp_configured"`
	TotpEnabled          bool    `json:"totp_enabled"`
	SmsConfigured        bool    `json:"sms_configured"`
	SmsEnabled           bool    `json:"sms_enabled"`
	EmailConfigured      bool    `json:"email_configured"`
	EmailEnabled         bool    `json:"email_enabled"`
	BackupCodesRemaining int     `json:"backup_codes_remaining"`
	CreatedAt            string  `json:"created_at"`
	LastUsedAt           *string `json:"last_used_at,omitempty"`
}

// SendChallengeRequest represents the request to issue an out-of-band challenge
type SendChallengeRequest struct {
	UserId string `json:"user_id"`
	Method string `json:"method"`
}

// SendChallengeResponse returns the challenge ID; the code itself only
// travels out-of-band
type SendChallengeResponse struct {
	ChallengeId string `json:"challenge_id"`
}

// VerifyChallengeRequest represents the request to verify a challenge code
type VerifyChallengeRequest struct {
	ChallengeId string `json:"challenge_id"`
	Code        string `json:"code"`
}

// VerifyCodeRequest represents the request to verify a TOTP or backup code
type VerifyCodeRequest struct {
	UserId string `json:"user_id"`
	Code   string `json:"code"`
}

// VerifyResponse represents a successful verification
type VerifyResponse struct {
	UserId    string `json:"user_id"`
	Token     string `json:"token,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
