package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
)

// DefaultSessionTTL is how long a session token stays valid.
const DefaultSessionTTL = 7 * 24 * time.Hour

// TokenIssuer implements ports.TokenIssuer with RS256, or HS256 when built from a shared secret.
type TokenIssuer struct {
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	issuer    string
	audience  string
	ttl       time.Duration
	now       func() time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Kind      domain.AccountKind `json:"kind"`
	ProjectID string             `json:"project_id,omitempty"`
}

func NewTokenIssuer(privateKey *rsa.PrivateKey, issuer, audience string, ttl time.Duration) *TokenIssuer {
	return newTokenIssuer(jwt.SigningMethodRS256, privateKey, &privateKey.PublicKey, issuer, audience, ttl)
}

// NewHMACTokenIssuer signs with HS256. Used when no RSA key is configured.
func NewHMACTokenIssuer(secret []byte, issuer, audience string, ttl time.Duration) *TokenIssuer {
	return newTokenIssuer(jwt.SigningMethodHS256, secret, secret, issuer, audience, ttl)
}

func newTokenIssuer(method jwt.SigningMethod, signKey, verifyKey interface{}, issuer, audience string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenIssuer{
		method:    method,
		signKey:   signKey,
		verifyKey: verifyKey,
		issuer:    issuer,
		audience:  audience,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (t *TokenIssuer) IssueGlobalSession(userID string) (string, time.Time, error) {
	return t.issue(domain.AccountGlobal, "", userID)
}

func (t *TokenIssuer) IssueProjectSession(projectID, userID string) (string, time.Time, error) {
	return t.issue(domain.AccountProject, projectID, userID)
}

func (t *TokenIssuer) issue(kind domain.AccountKind, projectID, userID string) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Kind:      kind,
		ProjectID: projectID,
	}
	signed, err := jwt.NewWithClaims(t.method, claims).SignedString(t.signKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateSession checks signature, algorithm, issuer, audience and expiry.
// Every failure wraps domerrors.ErrInvalidToken.
func (t *TokenIssuer) ValidateSession(tokenString string) (*ports.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.verifyKey, nil
	},
		jwt.WithValidMethods([]string{t.method.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domerrors.ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", domerrors.ErrInvalidToken)
	}
	if err := claims.check(); err != nil {
		return nil, fmt.Errorf("%w: %v", domerrors.ErrInvalidToken, err)
	}
	out := &ports.SessionClaims{
		Kind:      claims.Kind,
		SubjectID: claims.Subject,
		ProjectID: claims.ProjectID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func (c *sessionClaims) check() error {
	if c.Subject == "" {
		return errors.New("missing subject")
	}
	switch c.Kind {
	case domain.AccountGlobal:
		if c.ProjectID != "" {
			return errors.New("global session carries a project")
		}
	case domain.AccountProject:
		if c.ProjectID == "" {
			return errors.New("project session without project")
		}
	default:
		return fmt.Errorf("unknown session kind %q", c.Kind)
	}
	return nil
}

var _ ports.TokenIssuer = (*TokenIssuer)(nil)
