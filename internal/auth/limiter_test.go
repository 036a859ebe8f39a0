package auth

import (
	"testing"
	"time"
)

func TestLoginLimiter_LocksAfterMaxFailures(t *testing.T) {
	limiter := NewLoginLimiter()

	for i := 0; i < maxLoginFailures-1; i++ {
		limiter.RecordFailure("10.0.0.1")
		if retry := limiter.RetryAfter("10.0.0.1"); retry != 0 {
			t.Fatalf("locked out after %d failures, want lockout only at %d", i+1, maxLoginFailures)
		}
	}

	limiter.RecordFailure("10.0.0.1")
	if retry := limiter.RetryAfter("10.0.0.1"); retry <= 0 {
		t.Error("expected a lockout after max failures")
	}

	// Other addresses are unaffected
	if retry := limiter.RetryAfter("10.0.0.2"); retry != 0 {
		t.Error("unrelated address locked out")
	}
}

func TestLoginLimiter_ResetClearsState(t *testing.T) {
	limiter := NewLoginLimiter()

	for i := 0; i < maxLoginFailures; i++ {
		limiter.RecordFailure("10.0.0.1")
	}
	limiter.Reset("10.0.0.1")

	if retry := limiter.RetryAfter("10.0.0.1"); retry != 0 {
		t.Error("RetryAfter() after Reset() should be zero")
	}
}

func TestLoginLimiter_WindowExpires(t *testing.T) {
	now := time.Now()
	limiter := NewLoginLimiter()
	limiter.now = func() time.Time { return now }

	for i := 0; i < maxLoginFailures-1; i++ {
		limiter.RecordFailure("10.0.0.1")
	}

	// A failure after the window restarts the count instead of locking
	now = now.Add(failureWindow + time.Minute)
	remaining := limiter.RecordFailure("10.0.0.1")
	if remaining != maxLoginFailures-1 {
		t.Errorf("remaining = %d, want %d after window restart", remaining, maxLoginFailures-1)
	}
	if retry := limiter.RetryAfter("10.0.0.1"); retry != 0 {
		t.Error("stale window failures should not cause a lockout")
	}
}

func TestLoginLimiter_SweepDropsStaleEntries(t *testing.T) {
	now := time.Now()
	limiter := NewLoginLimiter()
	limiter.now = func() time.Time { return now }

	limiter.RecordFailure("10.0.0.1")
	for i := 0; i < maxLoginFailures; i++ {
		limiter.RecordFailure("10.0.0.2") // locked
	}

	now = now.Add(failureWindow + time.Minute)
	limiter.Sweep()

	if _, ok := limiter.attempts["10.0.0.1"]; ok {
		t.Error("stale unlocked entry survived Sweep()")
	}
	// The 10m lock has also expired after 16m
	if _, ok := limiter.attempts["10.0.0.2"]; ok {
		t.Error("entry with expired lock survived Sweep()")
	}
}
