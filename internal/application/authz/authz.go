// Package authz evaluates the authorization gates a route declares. Each gate
// reads the request's credentials, may resolve the project or the acting
// account, and either passes or fails with a domain error. A Pipeline runs its
// gates in order and stops at the first failure.
package authz

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/amirhosseinghanipour/authhub/internal/domain"
)

// Credentials are the raw secrets extracted from the transport.
type Credentials struct {
	APIKey           string
	OwnerToken       string
	ProjectUserToken string
}

// Actor is the authenticated account behind a request.
type Actor struct {
	Kind        domain.AccountKind
	ID          uuid.UUID
	Role        domain.Role
	ProjectID   domain.ProjectID // project users only
	GlobalUser  *domain.GlobalUser
	ProjectUser *domain.ProjectUser
}

// IsOwnerOf reports whether the actor is the dashboard account owning project.
func (a *Actor) IsOwnerOf(project *domain.Project) bool {
	return a.Kind == domain.AccountGlobal && project.OwnedBy(domain.NewUserID(a.ID))
}

// isAdminFor: a dashboard admin may act on any project, a project admin only on its own.
func (a *Actor) isAdminFor(project *domain.Project) bool {
	if a.Role != domain.RoleAdmin {
		return false
	}
	return a.Kind == domain.AccountGlobal || a.ProjectID == project.ID
}

// Request accumulates what the gates resolved so far.
type Request struct {
	Credentials Credentials
	Actor       *Actor
	Project     *domain.Project
}

type Gate interface {
	Name() string
	Apply(ctx context.Context, req *Request) error
}

// GateError records which gate refused the request. It unwraps to the domain error.
type GateError struct {
	Gate string
	Err  error
}

func (e *GateError) Error() string { return fmt.Sprintf("%s: %v", e.Gate, e.Err) }

func (e *GateError) Unwrap() error { return e.Err }

// Pipeline is an ordered list of gates.
type Pipeline []Gate

// Run applies every gate in order and stops at the first failure.
func (p Pipeline) Run(ctx context.Context, req *Request) error {
	for _, g := range p {
		if err := g.Apply(ctx, req); err != nil {
			return &GateError{Gate: g.Name(), Err: err}
		}
	}
	return nil
}

// Names lists the gates, for logs.
func (p Pipeline) Names() []string {
	out := make([]string, len(p))
	for i, g := range p {
		out[i] = g.Name()
	}
	return out
}
