package challenge

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

const defaultSweepInterval = time.Minute

// InMemoryStore implements Store using an in-process map.
//
// Atomicity of Verify is provided by a single mutex section; at the scale of
// a per-instance challenge set this is cheaper than per-key locks. Data does
// not survive restarts and is not shared across instances; use RedisStore
// for multi-instance deployments.
type InMemoryStore struct {
	mu         sync.Mutex
	challenges map[string]Challenge
	now        func() time.Time
	stopSweep  chan struct{}
	sweepOnce  sync.Once
}

// InMemoryStoreOption configures an InMemoryStore
type InMemoryStoreOption func(*InMemoryStore)

// WithNowFunc overrides the clock, used by tests to drive expiry
func WithNowFunc(now func() time.Time) InMemoryStoreOption {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

// NewInMemoryStore creates a new in-memory challenge store
func NewInMemoryStore(opts ...InMemoryStoreOption) *InMemoryStore {
	s := &InMemoryStore{
		challenges: make(map[string]Challenge),
		now:        time.Now,
		stopSweep:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores a challenge under its ID
func (s *InMemoryStore) Put(ctx context.Context, ch Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[ch.ID] = ch
	return nil
}

// Verify atomically checks a submitted code against the stored challenge
func (s *InMemoryStore) Verify(ctx context.Context, id, code string) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[id]
	if !ok {
		return Challenge{}, ErrNotFound
	}

	if s.now().After(ch.ExpiresAt) {
		delete(s.challenges, id)
		return Challenge{}, ErrExpired
	}

	if ch.Attempts >= ch.MaxAttempts {
		delete(s.challenges, id)
		return Challenge{}, ErrAttemptsExceeded
	}

	if subtle.ConstantTimeCompare([]byte(ch.Code), []byte(code)) != 1 {
		ch.Attempts++
		s.challenges[id] = ch
		return Challenge{}, ErrCodeMismatch
	}

	// Single use: the challenge is gone the moment it verifies.
	delete(s.challenges, id)
	return ch, nil
}

// Delete removes a challenge regardless of state
func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.challenges, id)
	return nil
}

// Len returns the number of stored challenges, expired ones included
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.challenges)
}

// StartSweeper launches a background goroutine that evicts expired
// challenges periodically. Expiry is already enforced lazily at Verify time;
// the sweeper only bounds memory. Pass 0 to use the default interval.
func (s *InMemoryStore) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopSweep:
				return
			}
		}
	}()
}

// Close stops the sweeper goroutine if one was started
func (s *InMemoryStore) Close() {
	s.sweepOnce.Do(func() {
		close(s.stopSweep)
	})
}

func (s *InMemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, ch := range s.challenges {
		if now.After(ch.ExpiresAt) {
			delete(s.challenges, id)
		}
	}
}
