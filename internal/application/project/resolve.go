package project

import (
	"context"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
)

var errInvalidAPIKey = domerrors.Unauthorized("invalid API key")

// Resolver looks projects up by plaintext API key.
type Resolver struct {
	projectRepo ports.ProjectRepository
}

func NewResolver(projectRepo ports.ProjectRepository) *Resolver {
	return &Resolver{projectRepo: projectRepo}
}

// ResolveByAPIKey returns the project with its owner expanded.
func (r *Resolver) ResolveByAPIKey(ctx context.Context, apiKey string) (*domain.Project, error) {
	if apiKey == "" {
		return nil, errInvalidAPIKey
	}
	project, err := r.projectRepo.GetByAPIKeyHash(ctx, HashAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, errInvalidAPIKey
	}
	return project, nil
}

// ListOwnedProjects returns the projects a dashboard account owns, oldest first.
type ListOwnedProjects struct {
	projectRepo ports.ProjectRepository
}

func NewListOwnedProjects(projectRepo ports.ProjectRepository) *ListOwnedProjects {
	return &ListOwnedProjects{projectRepo: projectRepo}
}

func (uc *ListOwnedProjects) Execute(ctx context.Context, ownerID domain.UserID) ([]*domain.Project, error) {
	return uc.projectRepo.ListByOwner(ctx, ownerID)
}
