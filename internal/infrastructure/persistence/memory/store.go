// Package memory keeps every repository in process memory. It backs local
// development when no DATABASE_URL is configured, and the use case tests.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amirhosseinghanipour/authhub/internal/domain"
)

// Store holds the shared tables. Uniqueness rules match the PostgreSQL schema.
type Store struct {
	mu           sync.RWMutex
	globalUsers  map[uuid.UUID]*domain.GlobalUser
	projectUsers map[uuid.UUID]*domain.ProjectUser
	projects     map[uuid.UUID]*domain.Project
}

func NewStore() *Store {
	return &Store{
		globalUsers:  make(map[uuid.UUID]*domain.GlobalUser),
		projectUsers: make(map[uuid.UUID]*domain.ProjectUser),
		projects:     make(map[uuid.UUID]*domain.Project),
	}
}

func (s *Store) GlobalUsers() *GlobalUserRepository   { return &GlobalUserRepository{s: s} }
func (s *Store) ProjectUsers() *ProjectUserRepository { return &ProjectUserRepository{s: s} }
func (s *Store) Projects() *ProjectRepository         { return &ProjectRepository{s: s} }

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyVerification(v domain.EmailVerification) domain.EmailVerification {
	v.ExpiresAt = copyTime(v.ExpiresAt)
	v.LastSentAt = copyTime(v.LastSentAt)
	return v
}

// canIssue mirrors the WHERE clause of the SQL resend statement.
func canIssue(v domain.EmailVerification, now, cooldownCutoff time.Time) bool {
	if v.Verified {
		return false
	}
	return !(v.Pending(now) && v.LastSentAt != nil && v.LastSentAt.After(cooldownCutoff))
}

// canConsume mirrors the WHERE clause of the SQL consume statement.
func canConsume(v domain.EmailVerification, tokenHash string, now time.Time) bool {
	return !v.Verified && v.TokenHash != "" && v.TokenHash == tokenHash &&
		v.ExpiresAt != nil && v.ExpiresAt.After(now)
}

func consumed(v domain.EmailVerification) domain.EmailVerification {
	return domain.EmailVerification{Verified: true, LastSentAt: v.LastSentAt}
}

// canRevoke mirrors the WHERE clause of the SQL revoke statement.
func canRevoke(v domain.EmailVerification, tokenHash string) bool {
	return !v.Verified && v.TokenHash != "" && v.TokenHash == tokenHash
}
