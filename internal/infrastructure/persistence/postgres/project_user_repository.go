package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/persistence/db"
)

const (
	projectUsersTable  = "project_users"
	projectUserColumns = `id, project_id, email, name, password_hash, role, ` + verificationColumns + `, created_at, updated_at`

	createProjectUserSQL = `INSERT INTO project_users (` + projectUserColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	getProjectUserByEmailSQL = `SELECT ` + projectUserColumns + ` FROM project_users WHERE project_id = $1 AND email = $2`
	getProjectUserByIDSQL    = `SELECT ` + projectUserColumns + ` FROM project_users WHERE project_id = $1 AND id = $2`
	getProjectUserByTokenSQL = `SELECT ` + projectUserColumns + ` FROM project_users WHERE verification_token_hash = $1`
	listProjectUsersSQL      = `SELECT ` + projectUserColumns + ` FROM project_users WHERE project_id = $1 ORDER BY created_at`
	updateProjectUserRoleSQL = `UPDATE project_users SET role = $3, updated_at = $4 WHERE project_id = $1 AND id = $2`
	deleteProjectUserSQL     = `DELETE FROM project_users WHERE project_id = $1 AND id = $2`
)

// ProjectUserRepository stores project end-users. Every statement is scoped by project_id.
type ProjectUserRepository struct {
	db db.DBTX
}

func NewProjectUserRepository(conn db.DBTX) *ProjectUserRepository {
	return &ProjectUserRepository{db: conn}
}

func (r *ProjectUserRepository) Create(ctx context.Context, user *domain.ProjectUser) error {
	hash, expires, sent := nullableVerification(user.Verification)
	_, err := r.db.ExecContext(ctx, createProjectUserSQL,
		user.ID.UUID, user.ProjectID.UUID, user.Email, user.Name, user.PasswordHash, string(user.Role),
		user.Verification.Verified, hash, expires, sent, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domerrors.ErrProjectUserExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProjectUser(row rowScanner) (*domain.ProjectUser, error) {
	var (
		u    domain.ProjectUser
		role string
		v    verificationRow
	)
	dest := append([]any{&u.ID.UUID, &u.ProjectID.UUID, &u.Email, &u.Name, &u.PasswordHash, &role}, v.dest()...)
	dest = append(dest, &u.CreatedAt, &u.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	u.Verification = v.domain()
	return &u, nil
}

func (r *ProjectUserRepository) getOne(ctx context.Context, query string, args ...any) (*domain.ProjectUser, error) {
	u, err := scanProjectUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *ProjectUserRepository) GetByEmail(ctx context.Context, projectID domain.ProjectID, email string) (*domain.ProjectUser, error) {
	return r.getOne(ctx, getProjectUserByEmailSQL, projectID.UUID, email)
}

func (r *ProjectUserRepository) GetByID(ctx context.Context, projectID domain.ProjectID, userID domain.ProjectUserID) (*domain.ProjectUser, error) {
	return r.getOne(ctx, getProjectUserByIDSQL, projectID.UUID, userID.UUID)
}

func (r *ProjectUserRepository) ListByProject(ctx context.Context, projectID domain.ProjectID) ([]*domain.ProjectUser, error) {
	rows, err := r.db.QueryContext(ctx, listProjectUsersSQL, projectID.UUID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.ProjectUser, 0)
	for rows.Next() {
		u, err := scanProjectUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *ProjectUserRepository) UpdateRole(ctx context.Context, projectID domain.ProjectID, userID domain.ProjectUserID, role domain.Role) (bool, error) {
	res, err := r.db.ExecContext(ctx, updateProjectUserRoleSQL, projectID.UUID, userID.UUID, string(role), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affectedOne(res)
}

func (r *ProjectUserRepository) Delete(ctx context.Context, projectID domain.ProjectID, userID domain.ProjectUserID) (bool, error) {
	res, err := r.db.ExecContext(ctx, deleteProjectUserSQL, projectID.UUID, userID.UUID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affectedOne(res)
}

func projectVerificationRecord(u *domain.ProjectUser) *domain.VerificationRecord {
	if u == nil {
		return nil
	}
	return &domain.VerificationRecord{
		Kind:         domain.AccountProject,
		AccountID:    u.ID.UUID,
		ProjectID:    u.ProjectID,
		Email:        u.Email,
		Name:         u.Name,
		Verification: u.Verification,
	}
}

func (r *ProjectUserRepository) FindVerificationByEmail(ctx context.Context, projectID domain.ProjectID, email string) (*domain.VerificationRecord, error) {
	u, err := r.GetByEmail(ctx, projectID, email)
	if err != nil {
		return nil, err
	}
	return projectVerificationRecord(u), nil
}

func (r *ProjectUserRepository) FindVerificationByTokenHash(ctx context.Context, tokenHash string) (*domain.VerificationRecord, error) {
	u, err := r.getOne(ctx, getProjectUserByTokenSQL, tokenHash)
	if err != nil {
		return nil, err
	}
	return projectVerificationRecord(u), nil
}

func (r *ProjectUserRepository) IssueVerification(ctx context.Context, accountID uuid.UUID, issue domain.VerificationIssue, cooldownCutoff time.Time) (bool, error) {
	return issueVerification(ctx, r.db, projectUsersTable, accountID, issue, cooldownCutoff)
}

func (r *ProjectUserRepository) ConsumeVerification(ctx context.Context, accountID uuid.UUID, tokenHash string, now time.Time) (bool, error) {
	return consumeVerification(ctx, r.db, projectUsersTable, accountID, tokenHash, now)
}

func (r *ProjectUserRepository) RevokeVerification(ctx context.Context, accountID uuid.UUID, tokenHash string) (bool, error) {
	return revokeVerification(ctx, r.db, projectUsersTable, accountID, tokenHash)
}

var (
	_ ports.ProjectUserRepository = (*ProjectUserRepository)(nil)
	_ ports.VerificationStore     = (*ProjectUserRepository)(nil)
)
