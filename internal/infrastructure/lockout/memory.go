package lockout

import (
	"context"
	"sync"
	"time"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
)

// sweepAt is the entry count that triggers dropping stale entries.
const sweepAt = 10000

type entry struct {
	failures     int
	firstFailure time.Time
	lockedUntil  time.Time
}

// stale reports whether the entry no longer affects any decision: its lock
// has passed and its failures fell out of the counting window.
func (e *entry) stale(now time.Time, window time.Duration) bool {
	return !now.Before(e.lockedUntil) && now.Sub(e.firstFailure) >= window
}

// MemoryStore is an in-memory LoginLockoutStore suitable for single-instance deployment.
// Entries are keyed by scope (project id or "global") and email, so the same address
// in two projects locks independently. Failures count within a window as long as
// the cooldown; older ones are forgotten.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string]*entry
	max      int
	cooldown time.Duration
	now      func() time.Time
}

// NewMemoryStore returns a lockout store with given max attempts and cooldown. maxAttempts 0 = disabled.
func NewMemoryStore(maxAttempts, cooldownSeconds int) *MemoryStore {
	cd := time.Duration(cooldownSeconds) * time.Second
	if cd <= 0 {
		cd = 15 * time.Minute
	}
	return &MemoryStore{
		data:     make(map[string]*entry),
		max:      maxAttempts,
		cooldown: cd,
		now:      time.Now,
	}
}

func (s *MemoryStore) key(scope, email string) string {
	return scope + ":" + email
}

func (s *MemoryStore) IsLocked(_ context.Context, scope, email string) (locked bool, retryAfterSeconds int) {
	if s.max <= 0 {
		return false, 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[s.key(scope, email)]
	if !ok {
		return false, 0
	}
	now := s.now()
	if now.Before(e.lockedUntil) {
		secs := int(e.lockedUntil.Sub(now).Seconds())
		if secs < 1 {
			secs = 1
		}
		return true, secs
	}
	return false, 0
}

func (s *MemoryStore) RecordFailure(_ context.Context, scope, email string) {
	if s.max <= 0 {
		return
	}
	k := s.key(scope, email)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	e := s.data[k]
	if e == nil {
		if len(s.data) >= sweepAt {
			s.sweep(now)
		}
		e = &entry{}
		s.data[k] = e
	}
	// An expired lock, or failures older than the window, start afresh.
	expiredLock := !e.lockedUntil.IsZero() && !now.Before(e.lockedUntil)
	if expiredLock || e.failures == 0 || now.Sub(e.firstFailure) >= s.cooldown {
		e.failures = 0
		e.firstFailure = now
		e.lockedUntil = time.Time{}
	}
	e.failures++
	if e.failures >= s.max {
		e.lockedUntil = now.Add(s.cooldown)
	}
}

func (s *MemoryStore) RecordSuccess(_ context.Context, scope, email string) {
	if s.max <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, s.key(scope, email))
}

func (s *MemoryStore) sweep(now time.Time) {
	for k, e := range s.data {
		if e.stale(now, s.cooldown) {
			delete(s.data, k)
		}
	}
}

var _ ports.LoginLockoutStore = (*MemoryStore)(nil)
