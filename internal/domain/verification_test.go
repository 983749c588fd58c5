package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEmailVerification_RetryAfter(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	v := VerificationIssue{TokenHash: "h", ExpiresAt: t0.Add(15 * time.Minute), SentAt: t0}.Apply()

	assert.True(t, v.Pending(t0))
	assert.Equal(t, 2*time.Minute, v.RetryAfter(t0, 2*time.Minute))
	assert.Equal(t, time.Second, v.RetryAfter(t0.Add(119*time.Second), 2*time.Minute))
	assert.Zero(t, v.RetryAfter(t0.Add(120*time.Second), 2*time.Minute))
}

func TestEmailVerification_ExpiredTokenHasNoCooldown(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	v := VerificationIssue{TokenHash: "h", ExpiresAt: t0.Add(time.Second), SentAt: t0}.Apply()

	assert.False(t, v.Pending(t0.Add(time.Minute)))
	assert.Zero(t, v.RetryAfter(t0.Add(time.Minute), 2*time.Minute))
}

func TestEmailVerification_VerifiedIsNotPending(t *testing.T) {
	t0 := time.Now()
	v := VerificationIssue{TokenHash: "h", ExpiresAt: t0.Add(time.Hour), SentAt: t0}.Apply()
	v.Verified = true
	assert.False(t, v.Pending(t0))
}

func TestOwnerRef_UserIDNormalizesExpandedOwner(t *testing.T) {
	id := NewUserID(uuid.New())
	bare := OwnerRef{ID: id}
	expanded := OwnerRef{ID: id, Profile: &OwnerProfile{ID: id, Email: "o@x.com"}}

	p := &Project{Owner: expanded}
	assert.Equal(t, bare.UserID(), expanded.UserID())
	assert.True(t, p.OwnedBy(id))
	assert.False(t, p.OwnedBy(NewUserID(uuid.New())))
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)
	_, ok = ParseRole("owner")
	assert.False(t, ok)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "Alice@X.io", NormalizeEmail(AccountGlobal, "  Alice@X.io "))
	assert.Equal(t, "alice@x.io", NormalizeEmail(AccountProject, "  Alice@X.io "))
}
