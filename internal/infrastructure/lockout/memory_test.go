package lockout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStore_LocksAfterMaxFailures(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewMemoryStore(3, 60)
	s.now = func() time.Time { return now }

	s.RecordFailure(ctx, "global", "a@x.io")
	s.RecordFailure(ctx, "global", "a@x.io")
	locked, _ := s.IsLocked(ctx, "global", "a@x.io")
	assert.False(t, locked)

	s.RecordFailure(ctx, "global", "a@x.io")
	locked, retry := s.IsLocked(ctx, "global", "a@x.io")
	assert.True(t, locked)
	assert.Equal(t, 60, retry)

	now = now.Add(61 * time.Second)
	locked, _ = s.IsLocked(ctx, "global", "a@x.io")
	assert.False(t, locked)

	// A failure after the lock expired starts counting from one again.
	s.RecordFailure(ctx, "global", "a@x.io")
	locked, _ = s.IsLocked(ctx, "global", "a@x.io")
	assert.False(t, locked)
}

func TestMemoryStore_ScopesAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(1, 60)

	s.RecordFailure(ctx, "project-a", "a@x.io")
	locked, _ := s.IsLocked(ctx, "project-a", "a@x.io")
	assert.True(t, locked)
	locked, _ = s.IsLocked(ctx, "project-b", "a@x.io")
	assert.False(t, locked)
}

func TestMemoryStore_SuccessClears(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2, 60)
	s.RecordFailure(ctx, "global", "a@x.io")
	s.RecordSuccess(ctx, "global", "a@x.io")
	s.RecordFailure(ctx, "global", "a@x.io")
	locked, _ := s.IsLocked(ctx, "global", "a@x.io")
	assert.False(t, locked)
}

func TestMemoryStore_DisabledNeverLocks(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, 60)
	for i := 0; i < 10; i++ {
		s.RecordFailure(ctx, "global", "a@x.io")
	}
	locked, _ := s.IsLocked(ctx, "global", "a@x.io")
	assert.False(t, locked)
}

func TestMemoryStore_OldFailuresExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewMemoryStore(2, 60)
	s.now = func() time.Time { return now }

	s.RecordFailure(ctx, "p1", "a@x.io")
	now = now.Add(2 * time.Minute)
	s.RecordFailure(ctx, "p1", "a@x.io")
	locked, _ := s.IsLocked(ctx, "p1", "a@x.io")
	assert.False(t, locked, "first failure fell out of the window")

	s.RecordFailure(ctx, "p1", "a@x.io")
	locked, _ = s.IsLocked(ctx, "p1", "a@x.io")
	assert.True(t, locked)
}

func TestMemoryStore_SweepDropsStaleEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewMemoryStore(1, 60)
	s.now = func() time.Time { return now }

	s.RecordFailure(ctx, "p1", "locked@x.io")
	s.RecordFailure(ctx, "p1", "stale@x.io")
	now = now.Add(30 * time.Second)
	s.RecordFailure(ctx, "p1", "fresh@x.io")
	now = now.Add(45 * time.Second)

	s.mu.Lock()
	s.sweep(now)
	_, staleKept := s.data[s.key("p1", "stale@x.io")]
	_, freshKept := s.data[s.key("p1", "fresh@x.io")]
	s.mu.Unlock()

	assert.False(t, staleKept)
	assert.True(t, freshKept)
}
