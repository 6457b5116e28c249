package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketBurstThenDeny(t *testing.T) {
	tb := NewTokenBucket(3, 0.001)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucketRefills(t *testing.T) {
	tb := NewTokenBucket(1, 50)

	require.True(t, tb.Allow())
	require.False(t, tb.Allow())

	time.Sleep(50 * time.Millisecond)
	assert.True(t, tb.Allow())
}

func TestVerifyLimiterKeysAreIndependent(t *testing.T) {
	l := NewVerifyLimiter(1, 0.001, 0)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))
	assert.Equal(t, 2, l.Len())
}

func TestVerifyLimiterEvictsIdleBuckets(t *testing.T) {
	l := NewVerifyLimiter(1, 0.001, 10*time.Millisecond)
	defer l.Close()

	require.True(t, l.Allow("10.0.0.1"))
	require.Equal(t, 1, l.Len())

	time.Sleep(20 * time.Millisecond)
	l.evictIdle()
	assert.Equal(t, 0, l.Len())
}

func TestVerifyLimiterCloseIsIdempotent(t *testing.T) {
	l := NewVerifyLimiter(1, 0.001, time.Minute)

	l.Close()
	assert.NotPanics(t, func() { l.Close() })
}

func TestMiddleware(t *testing.T) {
	limiter := NewVerifyLimiter(2, 0.001, 0)
	handler := Middleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/verify/totp", nil)
		req.RemoteAddr = ip + ":54321"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.9"))
}

func TestMiddlewareUsesForwardedFor(t *testing.T) {
	limiter := NewVerifyLimiter(1, 0.001, 0)
	handler := Middleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/verify/totp", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
