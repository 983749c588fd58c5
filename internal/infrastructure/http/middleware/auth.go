package middleware

import (
	"net/http"
	"strings"

	"github.com/amirhosseinghanipour/authhub/internal/application/authz"
)

const (
	APIKeyHeader = "x-api-key"
	// OwnerCookie and ProjectUserCookie carry session tokens. A cookie wins over the Authorization header.
	OwnerCookie       = "token"
	ProjectUserCookie = "project_token"
)

// Credentials extracts the API key and session tokens from the request.
func Credentials(r *http.Request) authz.Credentials {
	bearer := bearerToken(r)
	return authz.Credentials{
		APIKey:           strings.TrimSpace(r.Header.Get(APIKeyHeader)),
		OwnerToken:       cookieOr(r, OwnerCookie, bearer),
		ProjectUserToken: cookieOr(r, ProjectUserCookie, bearer),
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

func cookieOr(r *http.Request, name, fallback string) string {
	if c, err := r.Cookie(name); err == nil && c.Value != "" {
		return c.Value
	}
	return fallback
}
