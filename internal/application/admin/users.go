// Package admin holds the project-user management use cases available to a
// project's owner (and, for listing, to admins).
package admin

import (
	"context"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
)

var errUnknownRole = domerrors.Validation("role must be 'user' or 'admin'")

// ListUsers returns every user of a project.
type ListUsers struct {
	users ports.ProjectUserRepository
}

func NewListUsers(users ports.ProjectUserRepository) *ListUsers {
	return &ListUsers{users: users}
}

func (uc *ListUsers) Execute(ctx context.Context, projectID domain.ProjectID) ([]*domain.ProjectUser, error) {
	return uc.users.ListByProject(ctx, projectID)
}

type UpdateRoleInput struct {
	ProjectID domain.ProjectID
	UserID    domain.ProjectUserID
	Role      string
}

// UpdateRole changes a project user's role inside the project.
type UpdateRole struct {
	users ports.ProjectUserRepository
}

func NewUpdateRole(users ports.ProjectUserRepository) *UpdateRole {
	return &UpdateRole{users: users}
}

func (uc *UpdateRole) Execute(ctx context.Context, input UpdateRoleInput) (*domain.ProjectUser, error) {
	role, ok := domain.ParseRole(input.Role)
	if !ok {
		return nil, errUnknownRole
	}
	found, err := uc.users.UpdateRole(ctx, input.ProjectID, input.UserID, role)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domerrors.ErrUserNotFound
	}
	user, err := uc.users.GetByID(ctx, input.ProjectID, input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domerrors.ErrUserNotFound
	}
	return user, nil
}

// DeleteUser removes a project user. Users of other projects are never touched.
type DeleteUser struct {
	users ports.ProjectUserRepository
}

func NewDeleteUser(users ports.ProjectUserRepository) *DeleteUser {
	return &DeleteUser{users: users}
}

func (uc *DeleteUser) Execute(ctx context.Context, projectID domain.ProjectID, userID domain.ProjectUserID) error {
	found, err := uc.users.Delete(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !found {
		return domerrors.ErrUserNotFound
	}
	return nil
}
