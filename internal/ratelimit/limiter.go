// Package ratelimit throttles repeated failed sign-ins per client key.
//
// STATE MACHINE PER KEY:
//
//	clean ──Failure──▶ counting (n < max, inside window)
//	counting ──Failure (n == max)──▶ locked until now+lockout
//	locked ──lockout passes──▶ clean
//	any ──Reset (successful sign-in)──▶ clean
//
// A failure that arrives after the window has passed starts a new count.
package ratelimit

import (
	"context"
	"time"
)

// Limiter is implemented by Memory and Redis.
type Limiter interface {
	// Check returns how long key stays locked; zero means not locked.
	Check(ctx context.Context, key string) (time.Duration, error)
	// Failure records one failed attempt and returns the lock duration it
	// triggered, if any.
	Failure(ctx context.Context, key string) (time.Duration, error)
	// Reset forgets all attempts for key.
	Reset(ctx context.Context, key string) error
}

// Policy holds the throttling limits.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
	Lockout     time.Duration
}

// DefaultPolicy is 5 failures in 15 minutes, then a 10 minute lock.
var DefaultPolicy = Policy{
	MaxAttempts: 5,
	Window:      15 * time.Minute,
	Lockout:     10 * time.Minute,
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if p.Window <= 0 {
		p.Window = DefaultPolicy.Window
	}
	if p.Lockout <= 0 {
		p.Lockout = DefaultPolicy.Lockout
	}
	return p
}
