package ratelimit

import (
	"context"
	"sync"
	"time"
)

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// Memory is a process-local Limiter. State is lost on restart and is not
// shared between replicas; use Redis for that.
type Memory struct {
	policy Policy
	now    func() time.Time

	mu        sync.Mutex
	attempts  map[string]*attemptState
	lastSweep time.Time
}

// NewMemory creates an in-memory limiter. A nil now uses time.Now.
func NewMemory(p Policy, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		policy:   p.withDefaults(),
		now:      now,
		attempts: make(map[string]*attemptState),
	}
}

func (m *Memory) Check(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.attempts[key]
	if !ok {
		return 0, nil
	}
	now := m.now()
	if m.stale(state, now) {
		delete(m.attempts, key)
		return 0, nil
	}
	if !now.Before(state.lockedUntil) {
		return 0, nil
	}
	return state.lockedUntil.Sub(now), nil
}

func (m *Memory) Failure(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	state, ok := m.attempts[key]
	if !ok || m.stale(state, now) {
		state = &attemptState{firstAttempt: now}
		m.attempts[key] = state
	}

	state.count++
	if state.count >= m.policy.MaxAttempts {
		state.count = m.policy.MaxAttempts
		if state.lockedUntil.IsZero() {
			state.lockedUntil = now.Add(m.policy.Lockout)
		}
		return state.lockedUntil.Sub(now), nil
	}
	return 0, nil
}

func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attempts, key)
	return nil
}

// stale reports whether state no longer affects the key: its lock has been
// served, or it never locked and its window has passed.
func (m *Memory) stale(state *attemptState, now time.Time) bool {
	if !state.lockedUntil.IsZero() {
		return !now.Before(state.lockedUntil)
	}
	return now.Sub(state.firstAttempt) > m.policy.Window
}

// sweep drops stale entries for keys that never come back. It walks the map
// at most once per window. Caller holds mu.
func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.policy.Window {
		return
	}
	m.lastSweep = now
	for key, state := range m.attempts {
		if m.stale(state, now) {
			delete(m.attempts, key)
		}
	}
}
