package mfa

import "fmt"

// Method identifies a second-factor method
type Method string

const (
	// MethodTOTP is a time-based code from an authenticator app
	MethodTOTP Method = "totp"
	// MethodSMS is a one-time code delivered by text message
	MethodSMS Method = "sms"
	// MethodEmail is a one-time code delivered by email
	MethodEmail Method = "email"
)

// ParseMethod validates a method string
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodTOTP, MethodSMS, MethodEmail:
		return Method(s), nil
	default:
		return "", fmt.Errorf("%w: %s, must be one of: %s, %s, %s",
			ErrInvalidMethod, s, MethodTOTP, MethodSMS, MethodEmail)
	}
}

// IsOutOfBand reports whether the method delivers its code over an external
// channel and therefore goes through the challenge store
func (m Method) IsOutOfBand() bool {
	return m == MethodSMS || m == MethodEmail
}
