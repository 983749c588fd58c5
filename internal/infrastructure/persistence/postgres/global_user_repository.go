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
	globalUsersTable  = "global_users"
	globalUserColumns = `id, email, name, password_hash, role, ` + verificationColumns + `, created_at, updated_at`

	createGlobalUserSQL = `INSERT INTO global_users (` + globalUserColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	getGlobalUserByEmailSQL = `SELECT ` + globalUserColumns + ` FROM global_users WHERE email = $1`
	getGlobalUserByIDSQL    = `SELECT ` + globalUserColumns + ` FROM global_users WHERE id = $1`
	getGlobalUserByTokenSQL = `SELECT ` + globalUserColumns + ` FROM global_users WHERE verification_token_hash = $1`
)

// GlobalUserRepository stores dashboard accounts.
type GlobalUserRepository struct {
	db db.DBTX
}

func NewGlobalUserRepository(conn db.DBTX) *GlobalUserRepository {
	return &GlobalUserRepository{db: conn}
}

func (r *GlobalUserRepository) Create(ctx context.Context, user *domain.GlobalUser) error {
	hash, expires, sent := nullableVerification(user.Verification)
	_, err := r.db.ExecContext(ctx, createGlobalUserSQL,
		user.ID.UUID, user.Email, user.Name, user.PasswordHash, string(user.Role),
		user.Verification.Verified, hash, expires, sent, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domerrors.ErrUserExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *GlobalUserRepository) GetByEmail(ctx context.Context, email string) (*domain.GlobalUser, error) {
	return r.getOne(ctx, getGlobalUserByEmailSQL, email)
}

func (r *GlobalUserRepository) GetByID(ctx context.Context, userID domain.UserID) (*domain.GlobalUser, error) {
	return r.getOne(ctx, getGlobalUserByIDSQL, userID.UUID)
}

func (r *GlobalUserRepository) getOne(ctx context.Context, query string, arg any) (*domain.GlobalUser, error) {
	var (
		u    domain.GlobalUser
		role string
		v    verificationRow
	)
	dest := append([]any{&u.ID.UUID, &u.Email, &u.Name, &u.PasswordHash, &role}, v.dest()...)
	dest = append(dest, &u.CreatedAt, &u.UpdatedAt)
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.Role = domain.Role(role)
	u.Verification = v.domain()
	return &u, nil
}

func globalVerificationRecord(u *domain.GlobalUser) *domain.VerificationRecord {
	if u == nil {
		return nil
	}
	return &domain.VerificationRecord{
		Kind:         domain.AccountGlobal,
		AccountID:    u.ID.UUID,
		Email:        u.Email,
		Name:         u.Name,
		Verification: u.Verification,
	}
}

func (r *GlobalUserRepository) FindVerificationByEmail(ctx context.Context, _ domain.ProjectID, email string) (*domain.VerificationRecord, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return globalVerificationRecord(u), nil
}

func (r *GlobalUserRepository) FindVerificationByTokenHash(ctx context.Context, tokenHash string) (*domain.VerificationRecord, error) {
	u, err := r.getOne(ctx, getGlobalUserByTokenSQL, tokenHash)
	if err != nil {
		return nil, err
	}
	return globalVerificationRecord(u), nil
}

func (r *GlobalUserRepository) IssueVerification(ctx context.Context, accountID uuid.UUID, issue domain.VerificationIssue, cooldownCutoff time.Time) (bool, error) {
	return issueVerification(ctx, r.db, globalUsersTable, accountID, issue, cooldownCutoff)
}

func (r *GlobalUserRepository) ConsumeVerification(ctx context.Context, accountID uuid.UUID, tokenHash string, now time.Time) (bool, error) {
	return consumeVerification(ctx, r.db, globalUsersTable, accountID, tokenHash, now)
}

func (r *GlobalUserRepository) RevokeVerification(ctx context.Context, accountID uuid.UUID, tokenHash string) (bool, error) {
	return revokeVerification(ctx, r.db, globalUsersTable, accountID, tokenHash)
}

var (
	_ ports.GlobalUserRepository = (*GlobalUserRepository)(nil)
	_ ports.VerificationStore    = (*GlobalUserRepository)(nil)
)
