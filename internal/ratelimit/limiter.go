// Package ratelimit implements a failure-aware, per-origin rate limiter:
// failures accumulate in a sliding window and an origin that exhausts its
// budget is refused for a block period. State is process-local; when the
// service runs as multiple replicas each replica enforces its own budget
// independently.
package ratelimit

import (
	"sync"
	"time"
)

// Config controls the failure budget applied to an origin.
type Config struct {
	// MaxAttempts is the number of failures inside Window that triggers a block.
	MaxAttempts int
	// Window is the span in which failures accumulate. It slides with the
	// last failure rather than aligning to clock boundaries.
	Window time.Duration
	// BlockDuration is how long an origin is refused after crossing MaxAttempts.
	BlockDuration time.Duration
}

// DefaultConfig returns the budget applied when a call passes no override.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   5,
		Window:        15 * time.Minute,
		BlockDuration: 30 * time.Minute,
	}
}

// Limiter counts authentication failures per origin identifier. All
// methods are safe for concurrent use. Read methods (IsBlocked,
// RetryAfter) never mutate state; expired entries are reset lazily on the
// next failure write or removed by Cleanup.
type Limiter struct {
	store Store
	cfg   Config

	// mu serializes read-modify-write sequences so concurrent failures
	// for one origin never lose increments.
	mu  sync.Mutex
	now func() time.Time
}

// New creates a limiter over store with cfg as the process-wide default
// budget. A nil store gets a fresh MemoryStore.
func New(store Store, cfg Config) *Limiter {
	return NewWithClock(store, cfg, time.Now)
}

// NewWithClock is New with an injected clock, used by tests to simulate
// elapsed time.
func NewWithClock(store Store, cfg Config, now func() time.Time) *Limiter {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Limiter{store: store, cfg: cfg, now: now}
}

// IsBlocked reports whether the origin is currently refused. Pure read.
func (l *Limiter) IsBlocked(key string, overrides ...Config) bool {
	cfg := l.config(overrides)
	e, ok := l.store.Get(key)
	if !ok {
		return false
	}
	now := l.now()
	if !e.BlockedUntil.IsZero() && now.Before(e.BlockedUntil) {
		return true
	}
	if now.Sub(e.LastAttemptAt) > cfg.Window {
		return false
	}
	return e.Attempts >= cfg.MaxAttempts
}

// RecordFailure counts one failed attempt for the origin. A failure
// arriving after the window has elapsed since the previous one starts a
// fresh entry; the failure that reaches MaxAttempts issues the block.
func (l *Limiter) RecordFailure(key string, overrides ...Config) {
	cfg := l.config(overrides)
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.store.Get(key)
	if !ok || now.Sub(e.LastAttemptAt) > cfg.Window {
		e = Entry{}
	}
	e.Attempts++
	e.LastAttemptAt = now
	if e.Attempts >= cfg.MaxAttempts {
		e.BlockedUntil = now.Add(cfg.BlockDuration)
	}
	l.store.Put(key, e)
}

// RecordSuccess deletes the origin's entry. A single success fully
// rehabilitates the origin regardless of prior failures.
func (l *Limiter) RecordSuccess(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.store.Delete(key)
}

// RetryAfter returns how long until the origin's block expires, or zero
// when no block is active. Pure read.
func (l *Limiter) RetryAfter(key string) time.Duration {
	e, ok := l.store.Get(key)
	if !ok || e.BlockedUntil.IsZero() {
		return 0
	}
	if d := e.BlockedUntil.Sub(l.now()); d > 0 {
		return d
	}
	return 0
}

// Cleanup evicts every entry whose block (if any) has expired and whose
// last failure is older than the window, and returns the number evicted.
// Intended to run on a periodic ticker owned by the hosting process; this
// package never starts background work on its own.
func (l *Limiter) Cleanup(overrides ...Config) int {
	cfg := l.config(overrides)
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var stale []string
	l.store.Range(func(key string, e Entry) bool {
		blockExpired := e.BlockedUntil.IsZero() || !now.Before(e.BlockedUntil)
		idle := now.Sub(e.LastAttemptAt) > cfg.Window
		if blockExpired && idle {
			stale = append(stale, key)
		}
		return true
	})
	for _, key := range stale {
		l.store.Delete(key)
	}
	return len(stale)
}

// Size returns the number of origins currently tracked.
func (l *Limiter) Size() int {
	return l.store.Len()
}

func (l *Limiter) config(overrides []Config) Config {
	if len(overrides) > 0 {
		return overrides[len(overrides)-1]
	}
	return l.cfg
}
