package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
	"github.com/amirhosseinghanipour/authhub/internal/application/verification"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const minPasswordLength = 8

var (
	errInvalidEmail = domerrors.Validation("invalid email address")
	errWeakPassword = domerrors.Validation("password must be at least 8 characters")
	errNameRequired = domerrors.Validation("name is required")
)

func validateCredentials(email, password string) error {
	if !emailRegex.MatchString(email) {
		return errInvalidEmail
	}
	if len(password) < minPasswordLength {
		return errWeakPassword
	}
	return nil
}

// RegisterResult is the new, still unverified account. EmailErr is set when the
// account was stored but the verification email could not be queued; the user
// can ask for a resend.
type RegisterResult struct {
	AccountID uuid.UUID
	Email     string
	EmailErr  error
}

type RegisterOwnerInput struct {
	Name     string
	Email    string
	Password string
}

// RegisterOwner creates a dashboard account pending email verification.
type RegisterOwner struct {
	users  ports.GlobalUserRepository
	hasher ports.PasswordHasher
	verify *verification.Engine
}

func NewRegisterOwner(users ports.GlobalUserRepository, hasher ports.PasswordHasher, verify *verification.Engine) *RegisterOwner {
	return &RegisterOwner{users: users, hasher: hasher, verify: verify}
}

func (uc *RegisterOwner) Execute(ctx context.Context, input RegisterOwnerInput) (*RegisterResult, error) {
	email := domain.NormalizeEmail(domain.AccountGlobal, input.Email)
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errNameRequired
	}
	if err := validateCredentials(email, input.Password); err != nil {
		return nil, err
	}
	existing, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domerrors.ErrUserExists
	}
	hash, err := uc.hasher.Hash(ctx, input.Password)
	if err != nil {
		return nil, err
	}
	issued, err := uc.verify.Issue()
	if err != nil {
		return nil, err
	}
	now := uc.verify.Now()
	user := &domain.GlobalUser{
		ID:           domain.NewUserID(uuid.New()),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Verification: issued.Issue.Apply(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		if errors.Is(err, domerrors.ErrConflict) {
			return nil, domerrors.ErrUserExists
		}
		return nil, err
	}
	rec := &domain.VerificationRecord{Kind: domain.AccountGlobal, AccountID: user.ID.UUID, Email: email, Name: name}
	return &RegisterResult{
		AccountID: user.ID.UUID,
		Email:     email,
		EmailErr:  uc.verify.Send(ctx, rec, issued),
	}, nil
}

type RegisterProjectUserInput struct {
	ProjectID domain.ProjectID
	Name      string
	Email     string
	Password  string
}

// RegisterProjectUser creates a project end-user pending email verification.
// The same email may exist in other projects.
type RegisterProjectUser struct {
	users  ports.ProjectUserRepository
	hasher ports.PasswordHasher
	verify *verification.Engine
}

func NewRegisterProjectUser(users ports.ProjectUserRepository, hasher ports.PasswordHasher, verify *verification.Engine) *RegisterProjectUser {
	return &RegisterProjectUser{users: users, hasher: hasher, verify: verify}
}

func (uc *RegisterProjectUser) Execute(ctx context.Context, input RegisterProjectUserInput) (*RegisterResult, error) {
	email := domain.NormalizeEmail(domain.AccountProject, input.Email)
	if err := validateCredentials(email, input.Password); err != nil {
		return nil, err
	}
	existing, err := uc.users.GetByEmail(ctx, input.ProjectID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domerrors.ErrProjectUserExists
	}
	hash, err := uc.hasher.Hash(ctx, input.Password)
	if err != nil {
		return nil, err
	}
	issued, err := uc.verify.Issue()
	if err != nil {
		return nil, err
	}
	now := uc.verify.Now()
	user := &domain.ProjectUser{
		ID:           domain.NewProjectUserID(uuid.New()),
		ProjectID:    input.ProjectID,
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Verification: issued.Issue.Apply(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		if errors.Is(err, domerrors.ErrConflict) {
			return nil, domerrors.ErrProjectUserExists
		}
		return nil, err
	}
	rec := &domain.VerificationRecord{
		Kind:      domain.AccountProject,
		AccountID: user.ID.UUID,
		ProjectID: input.ProjectID,
		Email:     email,
		Name:      user.Name,
	}
	return &RegisterResult{
		AccountID: user.ID.UUID,
		Email:     email,
		EmailErr:  uc.verify.Send(ctx, rec, issued),
	}, nil
}
