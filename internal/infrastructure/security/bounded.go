package security

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
)

// BoundedHasher runs Argon2 work through a weighted semaphore so a burst of
// logins cannot take every CPU away from the rest of the server. Waiting
// callers give up when their context is done.
type BoundedHasher struct {
	inner *Argon2Hasher
	sem   *semaphore.Weighted
}

// NewBoundedHasher allows at most concurrency hashes at once (GOMAXPROCS when <= 0).
func NewBoundedHasher(inner *Argon2Hasher, concurrency int) *BoundedHasher {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	return &BoundedHasher{inner: inner, sem: semaphore.NewWeighted(int64(concurrency))}
}

func (h *BoundedHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)
	return h.inner.Hash(password)
}

func (h *BoundedHasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)
	return h.inner.Verify(password, hash), nil
}

var _ ports.PasswordHasher = (*BoundedHasher)(nil)
