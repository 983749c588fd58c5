// Package verification runs the email verification state machine shared by
// dashboard owners and project users: issue, consume, and resend with a cooldown.
package verification

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
)

// Mode selects what the user receives: a link with a long token, or a short numeric code.
type Mode string

const (
	ModeLink Mode = "link"
	ModeCode Mode = "otp"
)

// ParseMode accepts "link" and "otp"; anything else falls back to link.
func ParseMode(s string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(s))) == ModeCode {
		return ModeCode
	}
	return ModeLink
}

type Config struct {
	Mode Mode
	// BaseURL is the public origin used to build verification links.
	BaseURL    string
	InitialTTL time.Duration
	ResendTTL  time.Duration
	Cooldown   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Mode:       ModeLink,
		BaseURL:    "http://localhost:8080",
		InitialTTL: 24 * time.Hour,
		ResendTTL:  15 * time.Minute,
		Cooldown:   2 * time.Minute,
	}
}

// CooldownError is returned by Resend while the previous token is still fresh.
// It matches domerrors.ErrTooManyRequests.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("please wait %d seconds before requesting another code", e.RetryAfterSeconds())
}

func (e *CooldownError) Unwrap() error { return domerrors.ErrTooManyRequests }

// RetryAfterSeconds rounds the wait up so clients never retry early.
func (e *CooldownError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// AttemptsError is returned by Consume while an account is locked after too
// many wrong codes. It matches domerrors.ErrTooManyRequests.
type AttemptsError struct {
	Seconds int
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("too many incorrect codes; try again in %d seconds", e.Seconds)
}

func (e *AttemptsError) Unwrap() error { return domerrors.ErrTooManyRequests }

func (e *AttemptsError) RetryAfterSeconds() int { return e.Seconds }

// HashSecret is the stored form of a token or code.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Issued is a token that was just generated. Secret goes to the user, Issue to storage.
type Issued struct {
	Secret string
	Issue  domain.VerificationIssue
}

// Engine runs the flow for one account kind over that kind's store.
type Engine struct {
	kind     domain.AccountKind
	store    ports.VerificationStore
	enqueuer ports.TaskEnqueuer
	guard    ports.LoginLockoutStore
	cfg      Config
	now      func() time.Time
}

func NewEngine(kind domain.AccountKind, store ports.VerificationStore, enqueuer ports.TaskEnqueuer, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Mode == "" {
		cfg.Mode = def.Mode
	}
	if cfg.InitialTTL <= 0 {
		cfg.InitialTTL = def.InitialTTL
	}
	if cfg.ResendTTL <= 0 {
		cfg.ResendTTL = def.ResendTTL
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Engine{kind: kind, store: store, enqueuer: enqueuer, cfg: cfg, now: time.Now}
}

// WithAttemptGuard counts wrong secrets per account in guard. Once guard locks
// the account the outstanding token is revoked and Consume refuses until the
// lock lapses.
func (e *Engine) WithAttemptGuard(guard ports.LoginLockoutStore) *Engine {
	e.guard = guard
	return e
}

func (e *Engine) Mode() Mode { return e.cfg.Mode }

// Now is the engine clock; registration uses it so timestamps line up with Issue.
func (e *Engine) Now() time.Time { return e.now().UTC() }

// Issue generates the registration token. The caller stores Issue.Apply() on the new account
// and then calls Send.
func (e *Engine) Issue() (*Issued, error) {
	return e.generate(e.Now(), e.cfg.InitialTTL)
}

func (e *Engine) generate(now time.Time, ttl time.Duration) (*Issued, error) {
	var secret string
	var err error
	if e.cfg.Mode == ModeCode {
		secret, err = numericCode(6)
	} else {
		secret, err = randomHex(32)
	}
	if err != nil {
		return nil, fmt.Errorf("generate verification secret: %w", err)
	}
	return &Issued{
		Secret: secret,
		Issue: domain.VerificationIssue{
			TokenHash: HashSecret(secret),
			ExpiresAt: now.Add(ttl),
			SentAt:    now,
		},
	}, nil
}

// Send enqueues the verification email for an account.
func (e *Engine) Send(ctx context.Context, rec *domain.VerificationRecord, issued *Issued) error {
	msg := ports.VerificationEmail{
		Kind:      e.kind,
		Email:     rec.Email,
		Name:      rec.Name,
		Secret:    issued.Secret,
		ExpiresAt: issued.Issue.ExpiresAt,
	}
	if !rec.ProjectID.IsZero() {
		msg.ProjectID = rec.ProjectID.String()
	}
	if e.cfg.Mode == ModeLink {
		msg.VerifyURL = e.verifyURL(issued.Secret)
	}
	return e.enqueuer.EnqueueSendEmailVerification(ctx, msg)
}

func (e *Engine) verifyURL(token string) string {
	path := "/api/auth/verify-email/"
	if e.kind == domain.AccountProject {
		path = "/api/project-users/verify-email/"
	}
	return e.cfg.BaseURL + path + token
}

// ConsumeInput identifies the secret to redeem. Email is required for codes
// (six digits are not unique across accounts); links may omit it.
type ConsumeInput struct {
	ProjectID domain.ProjectID
	Email     string
	Secret    string
}

// Consume flips the account to Verified. An unknown, replaced, expired or
// already used secret fails with ErrInvalidOrExpiredToken.
func (e *Engine) Consume(ctx context.Context, input ConsumeInput) (*domain.VerificationRecord, error) {
	secret := strings.TrimSpace(input.Secret)
	if secret == "" {
		return nil, domerrors.ErrInvalidOrExpiredToken
	}
	if input.Email != "" {
		return e.consumeForEmail(ctx, input.ProjectID, domain.NormalizeEmail(e.kind, input.Email), secret)
	}
	if e.cfg.Mode != ModeLink {
		return nil, domerrors.ErrInvalidOrExpiredToken
	}
	hash := HashSecret(secret)
	rec, err := e.store.FindVerificationByTokenHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	return e.redeem(ctx, rec, hash)
}

// consumeForEmail redeems a secret for a named account. Wrong guesses count
// against the account so a six-digit code cannot be enumerated.
func (e *Engine) consumeForEmail(ctx context.Context, projectID domain.ProjectID, email, secret string) (*domain.VerificationRecord, error) {
	scope := e.attemptScope(projectID)
	if e.guard != nil {
		if locked, secs := e.guard.IsLocked(ctx, scope, email); locked {
			return nil, &AttemptsError{Seconds: secs}
		}
	}
	rec, err := e.store.FindVerificationByEmail(ctx, projectID, email)
	if err != nil {
		return nil, err
	}
	out, err := e.redeem(ctx, rec, HashSecret(secret))
	if e.guard == nil {
		return out, err
	}
	switch {
	case err == nil:
		e.guard.RecordSuccess(ctx, scope, email)
	case errors.Is(err, domerrors.ErrInvalidOrExpiredToken):
		if rerr := e.recordMiss(ctx, scope, email, rec); rerr != nil {
			return nil, rerr
		}
	}
	return out, err
}

// recordMiss counts a wrong secret and revokes the outstanding token once the
// account locks.
func (e *Engine) recordMiss(ctx context.Context, scope, email string, rec *domain.VerificationRecord) error {
	e.guard.RecordFailure(ctx, scope, email)
	if locked, _ := e.guard.IsLocked(ctx, scope, email); !locked {
		return nil
	}
	if rec == nil || rec.Verification.TokenHash == "" {
		return nil
	}
	if _, err := e.store.RevokeVerification(ctx, rec.AccountID, rec.Verification.TokenHash); err != nil {
		return fmt.Errorf("revoke verification token: %w", err)
	}
	return nil
}

func (e *Engine) attemptScope(projectID domain.ProjectID) string {
	if e.kind == domain.AccountGlobal {
		return "verify:" + string(e.kind)
	}
	return "verify:" + string(e.kind) + ":" + projectID.String()
}

func (e *Engine) redeem(ctx context.Context, rec *domain.VerificationRecord, hash string) (*domain.VerificationRecord, error) {
	now := e.Now()
	if rec == nil || !rec.Verification.Pending(now) {
		return nil, domerrors.ErrInvalidOrExpiredToken
	}
	if subtle.ConstantTimeCompare([]byte(rec.Verification.TokenHash), []byte(hash)) != 1 {
		return nil, domerrors.ErrInvalidOrExpiredToken
	}
	ok, err := e.store.ConsumeVerification(ctx, rec.AccountID, hash, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another consume or a resend.
		return nil, domerrors.ErrInvalidOrExpiredToken
	}
	rec.Verification = domain.EmailVerification{Verified: true, LastSentAt: rec.Verification.LastSentAt}
	return rec, nil
}

// ResendInput names the account. ProjectID is ignored for dashboard accounts.
type ResendInput struct {
	ProjectID domain.ProjectID
	Email     string
}

// Resend replaces the outstanding token with a short-lived one and emails it.
func (e *Engine) Resend(ctx context.Context, input ResendInput) (*Issued, error) {
	email := domain.NormalizeEmail(e.kind, input.Email)
	rec, err := e.store.FindVerificationByEmail(ctx, input.ProjectID, email)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domerrors.ErrUserNotFound
	}
	if rec.Verification.Verified {
		return nil, domerrors.ErrAlreadyVerified
	}
	now := e.Now()
	if wait := rec.Verification.RetryAfter(now, e.cfg.Cooldown); wait > 0 {
		return nil, &CooldownError{RetryAfter: wait}
	}
	issued, err := e.generate(now, e.cfg.ResendTTL)
	if err != nil {
		return nil, err
	}
	ok, err := e.store.IssueVerification(ctx, rec.AccountID, issued.Issue, now.Add(-e.cfg.Cooldown))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, e.lostResend(ctx, input.ProjectID, email, now)
	}
	if err := e.Send(ctx, rec, issued); err != nil {
		return nil, fmt.Errorf("enqueue verification email: %w", err)
	}
	return issued, nil
}

// lostResend explains why the conditional write matched nothing: the account was
// verified or another resend got there first.
func (e *Engine) lostResend(ctx context.Context, projectID domain.ProjectID, email string, now time.Time) error {
	rec, err := e.store.FindVerificationByEmail(ctx, projectID, email)
	if err != nil {
		return err
	}
	if rec == nil {
		return domerrors.ErrUserNotFound
	}
	if rec.Verification.Verified {
		return domerrors.ErrAlreadyVerified
	}
	wait := rec.Verification.RetryAfter(now, e.cfg.Cooldown)
	if wait <= 0 {
		wait = e.cfg.Cooldown
	}
	return &CooldownError{RetryAfter: wait}
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func numericCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
