package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserID is a value object for dashboard (global) user identity.
type UserID struct{ uuid.UUID }

// NewUserID creates a new UserID from uuid.
func NewUserID(id uuid.UUID) UserID { return UserID{UUID: id} }

// String returns the canonical string form.
func (u UserID) String() string { return u.UUID.String() }

// Role is an account role. For project users it is scoped to their project.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole returns the role named by s, or false if s is not a known role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// GlobalUser is a dashboard account. It owns projects and is not scoped to any of them.
type GlobalUser struct {
	ID           UserID
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Verification EmailVerification
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the global admin override.
func (u *GlobalUser) IsAdmin() bool { return u.Role == RoleAdmin }
