package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProjectUserID is a value object for project end-user identity.
type ProjectUserID struct{ uuid.UUID }

// NewProjectUserID creates a new ProjectUserID from uuid.
func NewProjectUserID(id uuid.UUID) ProjectUserID { return ProjectUserID{UUID: id} }

// String returns the canonical string form.
func (u ProjectUserID) String() string { return u.UUID.String() }

// ProjectUser is an end-user account scoped to exactly one project.
// (ProjectID, Email) is unique.
type ProjectUser struct {
	ID           ProjectUserID
	ProjectID    ProjectID
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Verification EmailVerification
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
