package ports

import "context"

// LoginLockoutStore tracks failed login attempts and cooldown per (scope, email).
// scope is a project id for project users and "global" for dashboard accounts.
type LoginLockoutStore interface {
	// IsLocked returns true if the account is locked, and the remaining cooldown duration.
	IsLocked(ctx context.Context, scope, email string) (locked bool, retryAfterSeconds int)
	// RecordFailure records a failed login; may lock the account after N failures.
	RecordFailure(ctx context.Context, scope, email string)
	// RecordSuccess clears failure count for the account (call on successful login).
	RecordSuccess(ctx context.Context, scope, email string)
}
