package memory

import (
	"context"
	"sort"
	"time"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
)

type ProjectRepository struct{ s *Store }

func cloneProject(p *domain.Project) *domain.Project {
	c := *p
	c.Owner = domain.OwnerRef{ID: p.Owner.UserID()}
	return &c
}

func (r *ProjectRepository) keyTaken(apiKeyHash string) bool {
	for _, p := range r.s.projects {
		if p.APIKeyHash == apiKeyHash {
			return true
		}
	}
	return false
}

func (r *ProjectRepository) Create(_ context.Context, project *domain.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[project.ID.UUID]; ok || r.keyTaken(project.APIKeyHash) {
		return domerrors.ErrConflict
	}
	r.s.projects[project.ID.UUID] = cloneProject(project)
	return nil
}

func (r *ProjectRepository) GetByID(_ context.Context, projectID domain.ProjectID) (*domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.projects[projectID.UUID]
	if !ok {
		return nil, nil
	}
	return cloneProject(p), nil
}

func (r *ProjectRepository) GetByAPIKeyHash(_ context.Context, apiKeyHash string) (*domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.projects {
		if p.APIKeyHash != apiKeyHash {
			continue
		}
		out := cloneProject(p)
		if owner, ok := r.s.globalUsers[p.Owner.UserID().UUID]; ok {
			out.Owner.Profile = &domain.OwnerProfile{ID: owner.ID, Email: owner.Email, Name: owner.Name}
		}
		return out, nil
	}
	return nil, nil
}

func (r *ProjectRepository) ExistsByAPIKeyHash(_ context.Context, apiKeyHash string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.keyTaken(apiKeyHash), nil
}

func (r *ProjectRepository) UpdateAPIKey(_ context.Context, projectID domain.ProjectID, apiKeyHash, apiKeyPrefix string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[projectID.UUID]
	if !ok {
		return domerrors.ErrProjectNotFound
	}
	if r.keyTaken(apiKeyHash) {
		return domerrors.ErrConflict
	}
	p.APIKeyHash = apiKeyHash
	p.APIKeyPrefix = apiKeyPrefix
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *ProjectRepository) ListByOwner(_ context.Context, ownerID domain.UserID) ([]*domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Project, 0)
	for _, p := range r.s.projects {
		if p.Owner.UserID() == ownerID {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var _ ports.ProjectRepository = (*ProjectRepository)(nil)
