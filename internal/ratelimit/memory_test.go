package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMemory() (*Memory, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	p := Policy{MaxAttempts: 3, Window: time.Minute, Lockout: 5 * time.Minute}
	return NewMemory(p, clock.Now), clock
}

func TestMemory_LocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()

	for i := 0; i < 2; i++ {
		locked, err := m.Failure(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.Zero(t, locked, "attempt %d should not lock", i+1)
	}

	locked, err := m.Failure(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, locked)

	retry, err := m.Check(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, retry)
}

func TestMemory_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()

	for i := 0; i < 3; i++ {
		_, _ = m.Failure(ctx, "10.0.0.1")
	}

	retry, err := m.Check(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.Zero(t, retry)
}

func TestMemory_LockExpires(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	for i := 0; i < 3; i++ {
		_, _ = m.Failure(ctx, "k")
	}
	clock.Advance(2 * time.Minute)

	retry, _ := m.Check(ctx, "k")
	assert.Equal(t, 3*time.Minute, retry)

	clock.Advance(3 * time.Minute)
	retry, _ = m.Check(ctx, "k")
	assert.Zero(t, retry)

	// Counting starts over after the lock is served.
	locked, _ := m.Failure(ctx, "k")
	assert.Zero(t, locked)
}

func TestMemory_WindowRestartsCount(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	_, _ = m.Failure(ctx, "k")
	_, _ = m.Failure(ctx, "k")
	clock.Advance(2 * time.Minute)

	locked, _ := m.Failure(ctx, "k")
	assert.Zero(t, locked, "failures outside the window must not accumulate")
}

func TestMemory_ResetClearsCount(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()

	_, _ = m.Failure(ctx, "k")
	_, _ = m.Failure(ctx, "k")
	require.NoError(t, m.Reset(ctx, "k"))

	locked, _ := m.Failure(ctx, "k")
	assert.Zero(t, locked)
}

func TestMemory_FailureWhileLockedKeepsExpiry(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	for i := 0; i < 3; i++ {
		_, _ = m.Failure(ctx, "k")
	}
	clock.Advance(time.Minute)

	locked, _ := m.Failure(ctx, "k")
	assert.Equal(t, 4*time.Minute, locked)
}

func TestMemory_ForgetsStaleKeys(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	for i := 0; i < 100; i++ {
		_, _ = m.Failure(ctx, fmt.Sprintf("10.0.1.%d", i))
	}
	for i := 0; i < 3; i++ {
		_, _ = m.Failure(ctx, "locked")
	}
	require.Len(t, m.attempts, 101)

	// Windows have passed for the one-off keys but the lock still holds.
	clock.Advance(time.Minute + time.Second)
	_, _ = m.Failure(ctx, "fresh")
	assert.Len(t, m.attempts, 2)

	clock.Advance(5 * time.Minute)
	_, _ = m.Failure(ctx, "later")
	assert.Len(t, m.attempts, 1)
}

func TestMemory_CheckDropsExpiredWindow(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	_, _ = m.Failure(ctx, "k")
	clock.Advance(2 * time.Minute)

	retry, err := m.Check(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, retry)
	assert.NotContains(t, m.attempts, "k")
}

func TestPolicy_Defaults(t *testing.T) {
	m := NewMemory(Policy{}, nil)
	assert.Equal(t, DefaultPolicy, m.policy)
}
