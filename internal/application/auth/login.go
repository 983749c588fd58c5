package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
)

// globalLockoutScope keys lockout entries of dashboard accounts.
const globalLockoutScope = "global"

// LockedError is returned while an account is locked after repeated failures.
// It matches domerrors.ErrTooManyRequests.
type LockedError struct {
	Seconds int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("too many failed login attempts; try again in %d seconds", e.Seconds)
}

func (e *LockedError) Unwrap() error { return domerrors.ErrTooManyRequests }

func (e *LockedError) RetryAfterSeconds() int { return e.Seconds }

// LoginResult is a signed session for the account.
type LoginResult struct {
	Token       string
	ExpiresAt   time.Time
	GlobalUser  *domain.GlobalUser
	ProjectUser *domain.ProjectUser
}

type LoginInput struct {
	ProjectID domain.ProjectID // project logins only
	Email     string
	Password  string
}

// passwordGate is the credential check shared by both login kinds: lockout,
// constant work for unknown accounts, and the failure counter.
type passwordGate struct {
	hasher  ports.PasswordHasher
	lockout ports.LoginLockoutStore

	dummyMu   sync.Mutex
	dummyHash string
}

// check reports whether password matches hash. An empty hash means no such
// account; a dummy hash is still verified so timing does not tell the two apart.
func (g *passwordGate) check(ctx context.Context, scope, email, password, hash string) error {
	if g.lockout != nil {
		if locked, secs := g.lockout.IsLocked(ctx, scope, email); locked {
			return &LockedError{Seconds: secs}
		}
	}
	target := hash
	if target == "" {
		dummy, err := g.dummy(ctx)
		if err != nil {
			return err
		}
		target = dummy
	}
	ok, err := g.hasher.Verify(ctx, password, target)
	if err != nil {
		return err
	}
	if !ok || hash == "" {
		if g.lockout != nil {
			g.lockout.RecordFailure(ctx, scope, email)
		}
		return domerrors.ErrInvalidCredentials
	}
	if g.lockout != nil {
		g.lockout.RecordSuccess(ctx, scope, email)
	}
	return nil
}

// dummy returns the hash verified for unknown accounts. Only a successful
// hash is kept; a failed attempt is retried by the next caller.
func (g *passwordGate) dummy(ctx context.Context) (string, error) {
	g.dummyMu.Lock()
	defer g.dummyMu.Unlock()
	if g.dummyHash != "" {
		return g.dummyHash, nil
	}
	hash, err := g.hasher.Hash(ctx, uuid.NewString())
	if err != nil {
		return "", fmt.Errorf("dummy password hash: %w", err)
	}
	g.dummyHash = hash
	return hash, nil
}

// LoginOwner authenticates a dashboard account.
type LoginOwner struct {
	users  ports.GlobalUserRepository
	tokens ports.TokenIssuer
	gate   *passwordGate
}

func NewLoginOwner(users ports.GlobalUserRepository, hasher ports.PasswordHasher, tokens ports.TokenIssuer, lockout ports.LoginLockoutStore) *LoginOwner {
	return &LoginOwner{users: users, tokens: tokens, gate: &passwordGate{hasher: hasher, lockout: lockout}}
}

func (uc *LoginOwner) Execute(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := domain.NormalizeEmail(domain.AccountGlobal, input.Email)
	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	var hash string
	if user != nil {
		hash = user.PasswordHash
	}
	if err := uc.gate.check(ctx, globalLockoutScope, email, input.Password, hash); err != nil {
		return nil, err
	}
	if !user.Verification.Verified {
		return nil, domerrors.ErrEmailNotVerified
	}
	token, expiresAt, err := uc.tokens.IssueGlobalSession(user.ID.String())
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, GlobalUser: user}, nil
}

// LoginProjectUser authenticates an end-user inside one project.
type LoginProjectUser struct {
	users  ports.ProjectUserRepository
	tokens ports.TokenIssuer
	gate   *passwordGate
}

func NewLoginProjectUser(users ports.ProjectUserRepository, hasher ports.PasswordHasher, tokens ports.TokenIssuer, lockout ports.LoginLockoutStore) *LoginProjectUser {
	return &LoginProjectUser{users: users, tokens: tokens, gate: &passwordGate{hasher: hasher, lockout: lockout}}
}

func (uc *LoginProjectUser) Execute(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := domain.NormalizeEmail(domain.AccountProject, input.Email)
	user, err := uc.users.GetByEmail(ctx, input.ProjectID, email)
	if err != nil {
		return nil, err
	}
	var hash string
	if user != nil {
		hash = user.PasswordHash
	}
	if err := uc.gate.check(ctx, input.ProjectID.String(), email, input.Password, hash); err != nil {
		return nil, err
	}
	if !user.Verification.Verified {
		return nil, domerrors.ErrEmailNotVerified
	}
	token, expiresAt, err := uc.tokens.IssueProjectSession(input.ProjectID.String(), user.ID.String())
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, ProjectUser: user}, nil
}
