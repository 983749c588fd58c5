package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProjectID is a value object for tenant/project identity.
type ProjectID struct{ uuid.UUID }

// NewProjectID creates a new ProjectID from uuid.
func NewProjectID(id uuid.UUID) ProjectID { return ProjectID{UUID: id} }

// String returns the canonical string form.
func (p ProjectID) String() string { return p.UUID.String() }

// IsZero reports whether the id is unset.
func (p ProjectID) IsZero() bool { return p.UUID == uuid.Nil }

// OwnerProfile is the expanded form of a project owner.
type OwnerProfile struct {
	ID    UserID
	Email string
	Name  string
}

// OwnerRef points at the GlobalUser owning a project. ID is always set; Profile
// is only present when the owner was expanded by the repository.
type OwnerRef struct {
	ID      UserID
	Profile *OwnerProfile
}

// UserID normalizes the reference to an id, whichever form it was loaded in.
func (o OwnerRef) UserID() UserID {
	if o.Profile != nil {
		return o.Profile.ID
	}
	return o.ID
}

// Project (tenant) is a single tenant. The plain API key is never stored.
type Project struct {
	ID           ProjectID
	Name         string
	APIKeyHash   string
	APIKeyPrefix string
	Owner        OwnerRef
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OwnedBy reports whether userID owns the project.
func (p *Project) OwnedBy(userID UserID) bool {
	return p.Owner.UserID() == userID
}
