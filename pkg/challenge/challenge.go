package challenge

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a challenge ID is unknown: never issued,
	// already consumed, or evicted by the store
	ErrNotFound = errors.New("challenge not found")

	// ErrExpired is returned when a challenge is accessed past its deadline
	ErrExpired = errors.New("challenge expired")

	// ErrAttemptsExceeded is returned when the attempt budget is exhausted
	ErrAttemptsExceeded = errors.New("challenge attempts exceeded")

	// ErrCodeMismatch is returned when the submitted code does not match
	ErrCodeMismatch = errors.New("challenge code mismatch")
)

// Challenge is an ephemeral, time-boxed, attempt-limited record created when
// an out-of-band code is issued. It is consumed exactly once.
type Challenge struct {
	ID          string
	UserID      uuid.UUID
	Method      string
	Code        string
	ExpiresAt   time.Time
	Attempts    int
	MaxAttempts int
}

// Store holds active challenges keyed by challenge ID.
//
// Verify must execute the expiry check, attempt check, code comparison and
// increment-or-delete as a single atomic unit per challenge ID. Two
// concurrent Verify calls against the same ID must observe a serialized view
// of the attempt counter, otherwise parallel guessing can exceed MaxAttempts.
type Store interface {
	// Put stores a challenge under its ID with a TTL of ExpiresAt minus now.
	Put(ctx context.Context, ch Challenge) error

	// Verify atomically checks the submitted code against the stored
	// challenge. On success the challenge is deleted and returned. On
	// failure it returns ErrNotFound, ErrExpired, ErrAttemptsExceeded or
	// ErrCodeMismatch; expired and exhausted challenges are deleted on
	// access.
	Verify(ctx context.Context, id, code string) (Challenge, error)

	// Delete removes a challenge regardless of state. Deleting an unknown
	// ID is not an error.
	Delete(ctx context.Context, id string) error
}
