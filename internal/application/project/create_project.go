package project

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
)

// CreateProjectInput is the project name and the creating owner.
type CreateProjectInput struct {
	Name    string
	OwnerID domain.UserID
}

// CreateProjectResult returns the created project and the plain API key (only time it is visible).
type CreateProjectResult struct {
	Project *domain.Project
	APIKey  string
}

// CreateProject creates a project with a generated API key; returns the plain key once.
type CreateProject struct {
	projectRepo ports.ProjectRepository
	keys        *KeyGenerator
}

// NewCreateProject builds the use case.
func NewCreateProject(projectRepo ports.ProjectRepository, keys *KeyGenerator) *CreateProject {
	return &CreateProject{projectRepo: projectRepo, keys: keys}
}

// Execute creates the project and returns it with the plain API key. A unique
// violation raised by storage (a concurrent creation drew the same key) is retried
// with a fresh key.
func (uc *CreateProject) Execute(ctx context.Context, input CreateProjectInput) (*CreateProjectResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domerrors.Validation("project name is required")
	}
	for attempt := 0; attempt < DefaultMaxAttempts; attempt++ {
		key, err := uc.keys.Generate(ctx)
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		project := &domain.Project{
			ID:           domain.NewProjectID(uuid.New()),
			Name:         name,
			APIKeyHash:   key.Hash,
			APIKeyPrefix: key.Prefix,
			Owner:        domain.OwnerRef{ID: input.OwnerID},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		err = uc.projectRepo.Create(ctx, project)
		if errors.Is(err, domerrors.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &CreateProjectResult{Project: project, APIKey: key.Plain}, nil
	}
	return nil, errKeySpaceExhausted
}
