package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccountKind tells dashboard owners apart from project end-users.
type AccountKind string

const (
	AccountGlobal  AccountKind = "global"
	AccountProject AccountKind = "project"
)

// NormalizeEmail returns the stored form of an email for the account kind.
// Dashboard emails are matched exactly as typed (surrounding space aside);
// project-user emails are case-insensitive.
func NormalizeEmail(kind AccountKind, email string) string {
	email = strings.TrimSpace(email)
	if kind == AccountProject {
		return strings.ToLower(email)
	}
	return email
}

// EmailVerification is the Unverified -> Verified state of an account email.
// Verified is terminal. TokenHash is empty once the token was consumed.
type EmailVerification struct {
	Verified   bool
	TokenHash  string
	ExpiresAt  *time.Time
	LastSentAt *time.Time
}

// Pending reports whether an unexpired token is outstanding.
func (v EmailVerification) Pending(now time.Time) bool {
	return !v.Verified && v.TokenHash != "" && v.ExpiresAt != nil && v.ExpiresAt.After(now)
}

// RetryAfter returns how long a resend must wait, or 0 if it may proceed now.
func (v EmailVerification) RetryAfter(now time.Time, cooldown time.Duration) time.Duration {
	if !v.Pending(now) || v.LastSentAt == nil {
		return 0
	}
	if wait := v.LastSentAt.Add(cooldown).Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// VerificationRecord is the kind-neutral view of an account used by the verification flow.
type VerificationRecord struct {
	Kind         AccountKind
	AccountID    uuid.UUID
	ProjectID    ProjectID // zero for global accounts
	Email        string
	Name         string
	Verification EmailVerification
}

// VerificationIssue is a freshly issued token to persist.
type VerificationIssue struct {
	TokenHash string
	ExpiresAt time.Time
	SentAt    time.Time
}

// Apply returns the verification state after the issue was persisted.
func (i VerificationIssue) Apply() EmailVerification {
	expires, sent := i.ExpiresAt, i.SentAt
	return EmailVerification{TokenHash: i.TokenHash, ExpiresAt: &expires, LastSentAt: &sent}
}
