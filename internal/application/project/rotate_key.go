package project

import (
	"context"
	"errors"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
)

// RotateProjectKeyInput is the project ID to rotate.
type RotateProjectKeyInput struct {
	ProjectID domain.ProjectID
}

// RotateProjectKeyResult returns the new plain API key (only time it is visible).
type RotateProjectKeyResult struct {
	APIKey string
}

// RotateProjectKey replaces the project's API key. The old key stops resolving
// as soon as the update commits; there is no grace period.
type RotateProjectKey struct {
	projectRepo ports.ProjectRepository
	keys        *KeyGenerator
}

// NewRotateProjectKey builds the use case.
func NewRotateProjectKey(projectRepo ports.ProjectRepository, keys *KeyGenerator) *RotateProjectKey {
	return &RotateProjectKey{projectRepo: projectRepo, keys: keys}
}

// Execute rotates the key and returns the new plain key.
func (uc *RotateProjectKey) Execute(ctx context.Context, input RotateProjectKeyInput) (*RotateProjectKeyResult, error) {
	for attempt := 0; attempt < DefaultMaxAttempts; attempt++ {
		key, err := uc.keys.Generate(ctx)
		if err != nil {
			return nil, err
		}
		err = uc.projectRepo.UpdateAPIKey(ctx, input.ProjectID, key.Hash, key.Prefix)
		if errors.Is(err, domerrors.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &RotateProjectKeyResult{APIKey: key.Plain}, nil
	}
	return nil, errKeySpaceExhausted
}
