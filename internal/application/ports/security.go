package ports

import (
	"context"
	"time"

	"github.com/amirhosseinghanipour/authhub/internal/domain"
)

// PasswordHasher hashes and verifies passwords. Implementations may block on a
// bounded worker pool and return ctx.Err() if the request goes away first.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, hash string) (bool, error)
}

// SessionClaims are the verified contents of a session token.
type SessionClaims struct {
	Kind      domain.AccountKind
	SubjectID string
	ProjectID string // set for project sessions only
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer signs and validates session tokens.
type TokenIssuer interface {
	IssueGlobalSession(userID string) (token string, expiresAt time.Time, err error)
	IssueProjectSession(projectID, userID string) (token string, expiresAt time.Time, err error)
	ValidateSession(tokenString string) (*SessionClaims, error)
}
