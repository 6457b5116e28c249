package challenge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChallenge(code string, ttl time.Duration) Challenge {
	return Challenge{
		ID:          uuid.NewString(),
		UserID:      uuid.New(),
		Method:      "email",
		Code:        code,
		ExpiresAt:   time.Now().Add(ttl),
		MaxAttempts: 5,
	}
}

func TestVerifySuccessConsumesChallenge(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	ch := newTestChallenge("123456", 5*time.Minute)
	require.NoError(t, store.Put(ctx, ch))

	got, err := store.Verify(ctx, ch.ID, "123456")
	require.NoError(t, err)
	assert.Equal(t, ch.UserID, got.UserID)
	assert.Equal(t, "email", got.Method)

	// Second verification of the same challenge must not find it
	_, err = store.Verify(ctx, ch.ID, "123456")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyUnknownID(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Verify(context.Background(), "no-such-id", "123456")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyWrongCodeCountsAttempt(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	ch := newTestChallenge("123456", 5*time.Minute)
	require.NoError(t, store.Put(ctx, ch))

	for i := 0; i < 4; i++ {
		_, err := store.Verify(ctx, ch.ID, "000000")
		assert.ErrorIs(t, err, ErrCodeMismatch)
	}

	// Correct code still works while attempts < max
	_, err := store.Verify(ctx, ch.ID, "123456")
	assert.NoError(t, err)
}

func TestAttemptCeiling(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	ch := newTestChallenge("123456", 5*time.Minute)
	require.NoError(t, store.Put(ctx, ch))

	for i := 0; i < ch.MaxAttempts; i++ {
		_, err := store.Verify(ctx, ch.ID, "000000")
		assert.ErrorIs(t, err, ErrCodeMismatch)
	}

	// Budget spent: even the correct code must fail now
	_, err := store.Verify(ctx, ch.ID, "123456")
	assert.ErrorIs(t, err, ErrAttemptsExceeded)

	// The challenge was deleted on the exhausted access
	_, err = store.Verify(ctx, ch.ID, "123456")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiryBoundary(t *testing.T) {
	now := time.Now()
	current := now
	store := NewInMemoryStore(WithNowFunc(func() time.Time { return current }))
	ctx := context.Background()

	ch := newTestChallenge("123456", 0)
	ch.ExpiresAt = now.Add(5 * time.Minute)
	require.NoError(t, store.Put(ctx, ch))

	// Just inside the deadline the correct code verifies
	current = ch.ExpiresAt.Add(-time.Millisecond)
	_, err := store.Verify(ctx, ch.ID, "123456")
	assert.NoError(t, err)

	// Just past the deadline even the correct code is rejected
	ch2 := newTestChallenge("654321", 0)
	ch2.ExpiresAt = now.Add(5 * time.Minute)
	require.NoError(t, store.Put(ctx, ch2))

	current = ch2.ExpiresAt.Add(time.Millisecond)
	_, err = store.Verify(ctx, ch2.ID, "654321")
	assert.ErrorIs(t, err, ErrExpired)

	// Deleted on the expired access
	_, err = store.Verify(ctx, ch2.ID, "654321")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentVerifySingleSuccess(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	ch := newTestChallenge("123456", 5*time.Minute)
	require.NoError(t, store.Put(ctx, ch))

	const callers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Verify(ctx, ch.ID, "123456"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "exactly one concurrent caller may consume a challenge")
}

func TestConcurrentWrongCodesCannotExceedBudget(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	ch := newTestChallenge("123456", 5*time.Minute)
	require.NoError(t, store.Put(ctx, ch))

	const callers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	mismatches := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Verify(ctx, ch.ID, "000000")
			if err == ErrCodeMismatch {
				mu.Lock()
				mismatches++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Only MaxAttempts guesses were ever counted as mismatches; the rest
	// observed the exhausted (or deleted) challenge.
	assert.Equal(t, ch.MaxAttempts, mismatches)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	ch := newTestChallenge("123456", 5*time.Minute)
	require.NoError(t, store.Put(ctx, ch))

	require.NoError(t, store.Delete(ctx, ch.ID))
	require.NoError(t, store.Delete(ctx, ch.ID))

	_, err := store.Verify(ctx, ch.ID, "123456")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweepEvictsExpired(t *testing.T) {
	now := time.Now()
	current := now
	store := NewInMemoryStore(WithNowFunc(func() time.Time { return current }))
	ctx := context.Background()

	fresh := newTestChallenge("111111", 0)
	fresh.ExpiresAt = now.Add(10 * time.Minute)
	stale := newTestChallenge("222222", 0)
	stale.ExpiresAt = now.Add(1 * time.Minute)

	require.NoError(t, store.Put(ctx, fresh))
	require.NoError(t, store.Put(ctx, stale))

	current = now.Add(5 * time.Minute)
	store.sweep()

	assert.Equal(t, 1, store.Len())
	_, err := store.Verify(ctx, fresh.ID, "111111")
	assert.NoError(t, err)
}
