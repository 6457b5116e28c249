// Package challenge provides the TTL-bearing keyed store for out-of-band MFA
// challenges.
//
// A challenge is created when a one-time code is sent over SMS or email and
// lives until it is consumed by a successful verification, its attempt
// budget runs out, or it is accessed past its deadline. Each of those paths
// removes it from the store exactly once; no challenge can verify twice.
//
// # Stores
//
//   - InMemoryStore - per-process map, suitable for a single instance and
//     for tests. An optional sweeper bounds memory; correctness only needs
//     the lazy expiry check at verification time.
//   - RedisStore - shared store for multi-instance deployments. The entire
//     verification sequence runs as one Lua script so concurrent attempts
//     against the same challenge cannot race the attempt counter.
//
// # Basic Usage
//
//	store := challenge.NewInMemoryStore()
//	store.StartSweeper(0)
//	defer store.Close()
//
//	err := store.Put(ctx, challenge.Challenge{
//		ID:          id,
//		UserID:      userID,
//		Method:      "email",
//		Code:        "482913",
//		ExpiresAt:   time.Now().Add(5 * time.Minute),
//		MaxAttempts: 5,
//	})
//
//	ch, err := store.Verify(ctx, id, submittedCode)
//	switch {
//	case errors.Is(err, challenge.ErrCodeMismatch):
//		// wrong code, attempt counted
//	case errors.Is(err, challenge.ErrExpired),
//		errors.Is(err, challenge.ErrAttemptsExceeded),
//		errors.Is(err, challenge.ErrNotFound):
//		// terminal, challenge is gone
//	case err == nil:
//		// consumed, exactly one caller ever gets here
//	}
//
// # Related Packages
//
//   - pkg/mfa - issues challenges and maps these errors onto its API
package challenge
