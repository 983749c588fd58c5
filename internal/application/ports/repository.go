package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/amirhosseinghanipour/authhub/internal/domain"
)

// Repository lookups return (nil, nil) when nothing matches. Create and update
// methods return domerrors.ErrConflict when a storage uniqueness constraint fires.

// GlobalUserRepository persists dashboard accounts. Email is unique.
type GlobalUserRepository interface {
	Create(ctx context.Context, user *domain.GlobalUser) error
	GetByEmail(ctx context.Context, email string) (*domain.GlobalUser, error)
	GetByID(ctx context.Context, userID domain.UserID) (*domain.GlobalUser, error)
}

// ProjectUserRepository persists project-scoped end users. (project, email) is unique.
type ProjectUserRepository interface {
	Create(ctx context.Context, user *domain.ProjectUser) error
	GetByEmail(ctx context.Context, projectID domain.ProjectID, email string) (*domain.ProjectUser, error)
	GetByID(ctx context.Context, projectID domain.ProjectID, userID domain.ProjectUserID) (*domain.ProjectUser, error)
	ListByProject(ctx context.Context, projectID domain.ProjectID) ([]*domain.ProjectUser, error)
	// UpdateRole and Delete report false when no user matched inside the project.
	UpdateRole(ctx context.Context, projectID domain.ProjectID, userID domain.ProjectUserID, role domain.Role) (bool, error)
	Delete(ctx context.Context, projectID domain.ProjectID, userID domain.ProjectUserID) (bool, error)
}

// ProjectRepository persists projects (tenants).
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, projectID domain.ProjectID) (*domain.Project, error)
	// GetByAPIKeyHash returns the project with its owner profile expanded.
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.Project, error)
	ExistsByAPIKeyHash(ctx context.Context, apiKeyHash string) (bool, error)
	// UpdateAPIKey replaces the key in a single write; returns domerrors.ErrProjectNotFound if the project is gone.
	UpdateAPIKey(ctx context.Context, projectID domain.ProjectID, apiKeyHash, apiKeyPrefix string) error
	ListByOwner(ctx context.Context, ownerID domain.UserID) ([]*domain.Project, error)
}

// VerificationStore is the email verification state of one account kind.
// Both user repositories implement it so the flow is identical for both kinds.
type VerificationStore interface {
	// FindVerificationByEmail ignores projectID for global accounts.
	FindVerificationByEmail(ctx context.Context, projectID domain.ProjectID, email string) (*domain.VerificationRecord, error)
	FindVerificationByTokenHash(ctx context.Context, tokenHash string) (*domain.VerificationRecord, error)
	// IssueVerification overwrites the token in one write. It reports false, writing
	// nothing, if the account is verified or an unexpired token was sent after cooldownCutoff.
	IssueVerification(ctx context.Context, accountID uuid.UUID, issue domain.VerificationIssue, cooldownCutoff time.Time) (bool, error)
	// ConsumeVerification marks the account verified and clears the token if tokenHash
	// is still current and unexpired at now. It reports false otherwise.
	ConsumeVerification(ctx context.Context, accountID uuid.UUID, tokenHash string, now time.Time) (bool, error)
	// RevokeVerification clears the outstanding token if tokenHash is still current.
	// The account stays unverified and may request a new token at once.
	RevokeVerification(ctx context.Context, accountID uuid.UUID, tokenHash string) (bool, error)
}
