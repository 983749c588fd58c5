package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
)

type GlobalUserRepository struct{ s *Store }

func cloneGlobalUser(u *domain.GlobalUser) *domain.GlobalUser {
	c := *u
	c.Verification = copyVerification(u.Verification)
	return &c
}

func (r *GlobalUserRepository) Create(_ context.Context, user *domain.GlobalUser) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.globalUsers[user.ID.UUID]; ok {
		return domerrors.ErrConflict
	}
	for _, u := range r.s.globalUsers {
		if u.Email == user.Email {
			return domerrors.ErrUserExists
		}
	}
	r.s.globalUsers[user.ID.UUID] = cloneGlobalUser(user)
	return nil
}

func (r *GlobalUserRepository) GetByEmail(_ context.Context, email string) (*domain.GlobalUser, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.byEmail(email), nil
}

func (r *GlobalUserRepository) byEmail(email string) *domain.GlobalUser {
	for _, u := range r.s.globalUsers {
		if u.Email == email {
			return cloneGlobalUser(u)
		}
	}
	return nil
}

func (r *GlobalUserRepository) GetByID(_ context.Context, userID domain.UserID) (*domain.GlobalUser, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.globalUsers[userID.UUID]
	if !ok {
		return nil, nil
	}
	return cloneGlobalUser(u), nil
}

func globalRecord(u *domain.GlobalUser) *domain.VerificationRecord {
	return &domain.VerificationRecord{
		Kind:         domain.AccountGlobal,
		AccountID:    u.ID.UUID,
		Email:        u.Email,
		Name:         u.Name,
		Verification: u.Verification,
	}
}

func (r *GlobalUserRepository) FindVerificationByEmail(_ context.Context, _ domain.ProjectID, email string) (*domain.VerificationRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u := r.byEmail(email)
	if u == nil {
		return nil, nil
	}
	return globalRecord(u), nil
}

func (r *GlobalUserRepository) FindVerificationByTokenHash(_ context.Context, tokenHash string) (*domain.VerificationRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.globalUsers {
		if u.Verification.TokenHash != "" && u.Verification.TokenHash == tokenHash {
			return globalRecord(cloneGlobalUser(u)), nil
		}
	}
	return nil, nil
}

func (r *GlobalUserRepository) IssueVerification(_ context.Context, accountID uuid.UUID, issue domain.VerificationIssue, cooldownCutoff time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.globalUsers[accountID]
	if !ok || !canIssue(u.Verification, issue.SentAt, cooldownCutoff) {
		return false, nil
	}
	u.Verification = issue.Apply()
	u.UpdatedAt = issue.SentAt
	return true, nil
}

func (r *GlobalUserRepository) ConsumeVerification(_ context.Context, accountID uuid.UUID, tokenHash string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.globalUsers[accountID]
	if !ok || !canConsume(u.Verification, tokenHash, now) {
		return false, nil
	}
	u.Verification = consumed(u.Verification)
	u.UpdatedAt = now
	return true, nil
}

func (r *GlobalUserRepository) RevokeVerification(_ context.Context, accountID uuid.UUID, tokenHash string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.globalUsers[accountID]
	if !ok || !canRevoke(u.Verification, tokenHash) {
		return false, nil
	}
	u.Verification = domain.EmailVerification{LastSentAt: u.Verification.LastSentAt}
	return true, nil
}

var (
	_ ports.GlobalUserRepository = (*GlobalUserRepository)(nil)
	_ ports.VerificationStore    = (*GlobalUserRepository)(nil)
)
