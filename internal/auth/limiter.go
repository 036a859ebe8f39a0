package auth

import (
	"sync"
	"time"
)

const (
	maxLoginFailures = 5
	failureWindow    = 15 * time.Minute
	lockDuration     = 10 * time.Minute
)

type attemptState struct {
	count        int
	firstFailure time.Time
	lockedUntil  time.Time
}

// LoginLimiter tracks failed login attempts per client address and locks an
// address out after repeated failures. State is in-memory only; a restart
// clears it, which is acceptable for a throttle.
type LoginLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptState
	now      func() time.Time
}

// NewLoginLimiter creates a limiter with the default window and lockout.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		attempts: make(map[string]*attemptState),
		now:      time.Now,
	}
}

// RetryAfter reports how long the address is still locked out. Zero means
// the attempt may proceed.
func (l *LoginLimiter) RetryAfter(addr string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.attempts[addr]
	if !ok {
		return 0
	}

	now := l.now()
	if state.lockedUntil.After(now) {
		return state.lockedUntil.Sub(now)
	}
	return 0
}

// RecordFailure registers a failed login and returns the remaining attempts
// before lockout.
func (l *LoginLimiter) RecordFailure(addr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	state, ok := l.attempts[addr]
	if !ok || now.Sub(state.firstFailure) > failureWindow {
		state = &attemptState{firstFailure: now}
		l.attempts[addr] = state
	}

	state.count++
	if state.count >= maxLoginFailures {
		state.lockedUntil = now.Add(lockDuration)
	}

	remaining := maxLoginFailures - state.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Reset clears the failure state for an address after a successful login.
func (l *LoginLimiter) Reset(addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, addr)
}

// Sweep drops entries whose window and lockout have both passed. Run it
// periodically so the map does not grow without bound.
func (l *LoginLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for addr, state := range l.attempts {
		if now.Sub(state.firstFailure) > failureWindow && !state.lockedUntil.After(now) {
			delete(l.attempts, addr)
		}
	}
}
