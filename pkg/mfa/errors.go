package mfa

import "errors"

var (
	// ErrNotSetUp is returned when an operation requires MFA settings that
	// do not exist yet for the user
	ErrNotSetUp = errors.New("mfa not set up for user")

	// ErrMethodNotEnabled is returned when the requested method is not
	// active for the user
	ErrMethodNotEnabled = errors.New("mfa method not enabled")

	// ErrInvalidCode is returned when a submitted code does not match.
	// It covers TOTP, out-of-band challenge and backup code mismatches so
	// callers can present one generic failure to the end user.
	ErrInvalidCode = errors.New("invalid mfa code")

	// ErrDeliveryFailed is returned when the out-of-band transport could
	// not deliver the issued challenge. This is a setup problem, not a
	// verification failure, and may be surfaced to the caller as such.
	ErrDeliveryFailed = errors.New("challenge delivery failed")

	// ErrNoPhoneNumber is returned when an SMS challenge is requested but
	// settings carry no phone number
	ErrNoPhoneNumber = errors.New("no phone number on mfa settings")

	// ErrInvalidMethod is returned when a method string is not one of
	// totp, sms, email
	ErrInvalidMethod = errors.New("invalid mfa method")

	// ErrSettingsNotFound is returned by repositories when no settings row
	// exists for the user
	ErrSettingsNotFound = errors.New("mfa settings not found")

	// ErrConcurrentUpdate is returned when a conditional settings write
	// finds the record changed since it was read, e.g. a setup rotation
	// landing between enable-time code validation and the flag write
	ErrConcurrentUpdate = errors.New("mfa settings changed concurrently")
)
