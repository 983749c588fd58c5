package authz

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
)

// ProjectResolver maps a plaintext API key to its project (owner expanded).
type ProjectResolver interface {
	ResolveByAPIKey(ctx context.Context, apiKey string) (*domain.Project, error)
}

var (
	errAPIKeyMissing  = domerrors.Unauthorized("API key missing")
	errNoToken        = domerrors.Unauthorized("authentication required")
	errInvalidSession = domerrors.Unauthorized("invalid or expired session")
	errNotOwner       = domerrors.Forbidden("only the project owner can perform this action")
	errNotAdmin       = domerrors.Forbidden("admin or project owner required")
)

// ResolveProject loads the project named by the API key.
type ResolveProject struct {
	Projects ProjectResolver
}

func (ResolveProject) Name() string { return "resolve_project" }

func (g ResolveProject) Apply(ctx context.Context, req *Request) error {
	if req.Credentials.APIKey == "" {
		return errAPIKeyMissing
	}
	project, err := g.Projects.ResolveByAPIKey(ctx, req.Credentials.APIKey)
	if err != nil {
		return err
	}
	if req.Actor != nil && req.Actor.Kind == domain.AccountProject && req.Actor.ProjectID != project.ID {
		return errInvalidSession
	}
	req.Project = project
	return nil
}

// AuthenticateOwner requires a valid dashboard session for an existing account.
type AuthenticateOwner struct {
	Tokens ports.TokenIssuer
	Users  ports.GlobalUserRepository
}

func (AuthenticateOwner) Name() string { return "authenticate_owner" }

func (g AuthenticateOwner) Apply(ctx context.Context, req *Request) error {
	if req.Credentials.OwnerToken == "" {
		return errNoToken
	}
	claims, err := g.Tokens.ValidateSession(req.Credentials.OwnerToken)
	if err != nil {
		return err
	}
	if claims.Kind != domain.AccountGlobal {
		return errInvalidSession
	}
	id, err := uuid.Parse(claims.SubjectID)
	if err != nil {
		return errInvalidSession
	}
	user, err := g.Users.GetByID(ctx, domain.NewUserID(id))
	if err != nil {
		return err
	}
	if user == nil {
		return errInvalidSession
	}
	req.Actor = &Actor{
		Kind:       domain.AccountGlobal,
		ID:         user.ID.UUID,
		Role:       user.Role,
		GlobalUser: user,
	}
	return nil
}

// AuthenticateProjectUser requires a valid project session whose user still exists.
// When a project was already resolved from the API key the session must belong to it.
type AuthenticateProjectUser struct {
	Tokens ports.TokenIssuer
	Users  ports.ProjectUserRepository
}

func (AuthenticateProjectUser) Name() string { return "authenticate_project_user" }

func (g AuthenticateProjectUser) Apply(ctx context.Context, req *Request) error {
	if req.Credentials.ProjectUserToken == "" {
		return errNoToken
	}
	claims, err := g.Tokens.ValidateSession(req.Credentials.ProjectUserToken)
	if err != nil {
		return err
	}
	if claims.Kind != domain.AccountProject {
		return errInvalidSession
	}
	userID, err1 := uuid.Parse(claims.SubjectID)
	projectUUID, err2 := uuid.Parse(claims.ProjectID)
	if err := errors.Join(err1, err2); err != nil {
		return errInvalidSession
	}
	projectID := domain.NewProjectID(projectUUID)
	if req.Project != nil && req.Project.ID != projectID {
		return errInvalidSession
	}
	user, err := g.Users.GetByID(ctx, projectID, domain.NewProjectUserID(userID))
	if err != nil {
		return err
	}
	if user == nil {
		return errInvalidSession
	}
	req.Actor = &Actor{
		Kind:        domain.AccountProject,
		ID:          user.ID.UUID,
		Role:        user.Role,
		ProjectID:   projectID,
		ProjectUser: user,
	}
	if req.Project == nil {
		req.Project = &domain.Project{ID: projectID}
	}
	return nil
}

// OwnerOnly passes iff the actor owns the resolved project.
type OwnerOnly struct{}

func (OwnerOnly) Name() string { return "owner_only" }

func (OwnerOnly) Apply(_ context.Context, req *Request) error {
	if req.Actor == nil || req.Project == nil {
		return domerrors.ErrUnauthorized
	}
	if !req.Actor.IsOwnerOf(req.Project) {
		return errNotOwner
	}
	return nil
}

// AdminOrOwner passes for an admin actor or the project owner.
type AdminOrOwner struct{}

func (AdminOrOwner) Name() string { return "admin_or_owner" }

func (AdminOrOwner) Apply(_ context.Context, req *Request) error {
	if req.Actor == nil || req.Project == nil {
		return domerrors.ErrUnauthorized
	}
	if req.Actor.isAdminFor(req.Project) || req.Actor.IsOwnerOf(req.Project) {
		return nil
	}
	return errNotAdmin
}

var (
	_ Gate = ResolveProject{}
	_ Gate = AuthenticateOwner{}
	_ Gate = AuthenticateProjectUser{}
	_ Gate = OwnerOnly{}
	_ Gate = AdminOrOwner{}
)
