package middleware

import (
	"context"

	"github.com/amirhosseinghanipour/authhub/internal/application/authz"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
)

type contextKey string

const authzContextKey contextKey = "authz"

// WithAuthz injects what the gates resolved into the context.
func WithAuthz(ctx context.Context, req *authz.Request) context.Context {
	return context.WithValue(ctx, authzContextKey, req)
}

// AuthzFromContext returns the resolved request, or nil.
func AuthzFromContext(ctx context.Context) *authz.Request {
	req, _ := ctx.Value(authzContextKey).(*authz.Request)
	return req
}

// ProjectFromContext returns the resolved project, or nil.
func ProjectFromContext(ctx context.Context) *domain.Project {
	if req := AuthzFromContext(ctx); req != nil {
		return req.Project
	}
	return nil
}

// ActorFromContext returns the authenticated actor, or nil.
func ActorFromContext(ctx context.Context) *authz.Actor {
	if req := AuthzFromContext(ctx); req != nil {
		return req.Actor
	}
	return nil
}
