package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/persistence/db"
)

const (
	projectColumns    = `id, name, api_key_hash, api_key_prefix, owner_id, created_at, updated_at`
	createProjectSQL  = `INSERT INTO projects (` + projectColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	getProjectByIDSQL = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	getProjectByAPIKeyHashSQL = `SELECT p.id, p.name, p.api_key_hash, p.api_key_prefix, p.owner_id, p.created_at, p.updated_at, u.email, u.name
FROM projects p JOIN global_users u ON u.id = p.owner_id
WHERE p.api_key_hash = $1`

	existsProjectAPIKeySQL = `SELECT EXISTS (SELECT 1 FROM projects WHERE api_key_hash = $1)`
	updateProjectAPIKeySQL = `UPDATE projects SET api_key_hash = $2, api_key_prefix = $3, updated_at = $4 WHERE id = $1`
	listProjectsByOwnerSQL = `SELECT ` + projectColumns + ` FROM projects WHERE owner_id = $1 ORDER BY created_at`
)

// ProjectRepository stores projects. api_key_hash is unique.
type ProjectRepository struct {
	db db.DBTX
}

func NewProjectRepository(conn db.DBTX) *ProjectRepository {
	return &ProjectRepository{db: conn}
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	_, err := r.db.ExecContext(ctx, createProjectSQL,
		project.ID.UUID, project.Name, project.APIKeyHash, project.APIKeyPrefix,
		project.Owner.UserID().UUID, project.CreatedAt, project.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domerrors.ErrConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func scanProject(row rowScanner, extra ...any) (*domain.Project, error) {
	var p domain.Project
	dest := append([]any{&p.ID.UUID, &p.Name, &p.APIKeyHash, &p.APIKeyPrefix, &p.Owner.ID.UUID, &p.CreatedAt, &p.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, projectID domain.ProjectID) (*domain.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx, getProjectByIDSQL, projectID.UUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *ProjectRepository) GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.Project, error) {
	var owner domain.OwnerProfile
	p, err := scanProject(r.db.QueryRowContext(ctx, getProjectByAPIKeyHashSQL, apiKeyHash), &owner.Email, &owner.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	owner.ID = p.Owner.ID
	p.Owner.Profile = &owner
	return p, nil
}

func (r *ProjectRepository) ExistsByAPIKeyHash(ctx context.Context, apiKeyHash string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, existsProjectAPIKeySQL, apiKeyHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *ProjectRepository) UpdateAPIKey(ctx context.Context, projectID domain.ProjectID, apiKeyHash, apiKeyPrefix string) error {
	res, err := r.db.ExecContext(ctx, updateProjectAPIKeySQL, projectID.UUID, apiKeyHash, apiKeyPrefix, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return domerrors.ErrConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return err
	}
	if !ok {
		return domerrors.ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID domain.UserID) ([]*domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, listProjectsByOwnerSQL, ownerID.UUID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

var _ ports.ProjectRepository = (*ProjectRepository)(nil)
