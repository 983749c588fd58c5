package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
)

type ProjectUserRepository struct{ s *Store }

func cloneProjectUser(u *domain.ProjectUser) *domain.ProjectUser {
	c := *u
	c.Verification = copyVerification(u.Verification)
	return &c
}

func (r *ProjectUserRepository) Create(_ context.Context, user *domain.ProjectUser) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projectUsers[user.ID.UUID]; ok {
		return domerrors.ErrConflict
	}
	if r.byEmail(user.ProjectID, user.Email) != nil {
		return domerrors.ErrProjectUserExists
	}
	r.s.projectUsers[user.ID.UUID] = cloneProjectUser(user)
	return nil
}

func (r *ProjectUserRepository) byEmail(projectID domain.ProjectID, email string) *domain.ProjectUser {
	for _, u := range r.s.projectUsers {
		if u.ProjectID == projectID && u.Email == email {
			return u
		}
	}
	return nil
}

func (r *ProjectUserRepository) GetByEmail(_ context.Context, projectID domain.ProjectID, email string) (*domain.ProjectUser, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u := r.byEmail(projectID, email)
	if u == nil {
		return nil, nil
	}
	return cloneProjectUser(u), nil
}

func (r *ProjectUserRepository) GetByID(_ context.Context, projectID domain.ProjectID, userID domain.ProjectUserID) (*domain.ProjectUser, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.projectUsers[userID.UUID]
	if !ok || u.ProjectID != projectID {
		return nil, nil
	}
	return cloneProjectUser(u), nil
}

func (r *ProjectUserRepository) ListByProject(_ context.Context, projectID domain.ProjectID) ([]*domain.ProjectUser, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.ProjectUser, 0)
	for _, u := range r.s.projectUsers {
		if u.ProjectID == projectID {
			out = append(out, cloneProjectUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *ProjectUserRepository) UpdateRole(_ context.Context, projectID domain.ProjectID, userID domain.ProjectUserID, role domain.Role) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.projectUsers[userID.UUID]
	if !ok || u.ProjectID != projectID {
		return false, nil
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *ProjectUserRepository) Delete(_ context.Context, projectID domain.ProjectID, userID domain.ProjectUserID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.projectUsers[userID.UUID]
	if !ok || u.ProjectID != projectID {
		return false, nil
	}
	delete(r.s.projectUsers, userID.UUID)
	return true, nil
}

func projectRecord(u *domain.ProjectUser) *domain.VerificationRecord {
	return &domain.VerificationRecord{
		Kind:         domain.AccountProject,
		AccountID:    u.ID.UUID,
		ProjectID:    u.ProjectID,
		Email:        u.Email,
		Name:         u.Name,
		Verification: copyVerification(u.Verification),
	}
}

func (r *ProjectUserRepository) FindVerificationByEmail(_ context.Context, projectID domain.ProjectID, email string) (*domain.VerificationRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u := r.byEmail(projectID, email)
	if u == nil {
		return nil, nil
	}
	return projectRecord(u), nil
}

func (r *ProjectUserRepository) FindVerificationByTokenHash(_ context.Context, tokenHash string) (*domain.VerificationRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.projectUsers {
		if u.Verification.TokenHash != "" && u.Verification.TokenHash == tokenHash {
			return projectRecord(u), nil
		}
	}
	return nil, nil
}

func (r *ProjectUserRepository) IssueVerification(_ context.Context, accountID uuid.UUID, issue domain.VerificationIssue, cooldownCutoff time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.projectUsers[accountID]
	if !ok || !canIssue(u.Verification, issue.SentAt, cooldownCutoff) {
		return false, nil
	}
	u.Verification = issue.Apply()
	u.UpdatedAt = issue.SentAt
	return true, nil
}

func (r *ProjectUserRepository) ConsumeVerification(_ context.Context, accountID uuid.UUID, tokenHash string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.projectUsers[accountID]
	if !ok || !canConsume(u.Verification, tokenHash, now) {
		return false, nil
	}
	u.Verification = consumed(u.Verification)
	u.UpdatedAt = now
	return true, nil
}

func (r *ProjectUserRepository) RevokeVerification(_ context.Context, accountID uuid.UUID, tokenHash string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.projectUsers[accountID]
	if !ok || !canRevoke(u.Verification, tokenHash) {
		return false, nil
	}
	u.Verification = domain.EmailVerification{LastSentAt: u.Verification.LastSentAt}
	return true, nil
}

var (
	_ ports.ProjectUserRepository = (*ProjectUserRepository)(nil)
	_ ports.VerificationStore     = (*ProjectUserRepository)(nil)
)
