package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
	"github.com/amirhosseinghanipour/authhub/internal/application/verification"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
	infraauth "github.com/amirhosseinghanipour/authhub/internal/infrastructure/auth"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/lockout"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/persistence/memory"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/security"
)

type outbox struct {
	mu   sync.Mutex
	msgs []ports.VerificationEmail
	err  error
}

func (o *outbox) EnqueueSendEmailVerification(_ context.Context, msg ports.VerificationEmail) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *outbox) lastSecret(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.msgs)
	return o.msgs[len(o.msgs)-1].Secret
}

type harness struct {
	store    *memory.Store
	mail     *outbox
	tokens   *infraauth.TokenIssuer
	hasher   *security.BoundedHasher
	lock     *lockout.MemoryStore
	global   *verification.Engine
	projects *verification.Engine
}

func newHarness(mode verification.Mode) *harness {
	h := &harness{
		store:  memory.NewStore(),
		mail:   &outbox{},
		tokens: infraauth.NewHMACTokenIssuer([]byte("secret"), "authhub", "authhub-api", time.Hour),
		hasher: security.NewBoundedHasher(security.NewArgon2Hasher(security.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1}), 4),
		lock:   lockout.NewMemoryStore(3, 60),
	}
	cfg := verification.DefaultConfig()
	cfg.Mode = mode
	h.global = verification.NewEngine(domain.AccountGlobal, h.store.GlobalUsers(), h.mail, cfg)
	h.projects = verification.NewEngine(domain.AccountProject, h.store.ProjectUsers(), h.mail, cfg)
	return h
}

func (h *harness) registerOwner() *RegisterOwner {
	return NewRegisterOwner(h.store.GlobalUsers(), h.hasher, h.global)
}

func (h *harness) loginOwner() *LoginOwner {
	return NewLoginOwner(h.store.GlobalUsers(), h.hasher, h.tokens, h.lock)
}

func (h *harness) registerProjectUser() *RegisterProjectUser {
	return NewRegisterProjectUser(h.store.ProjectUsers(), h.hasher, h.projects)
}

func (h *harness) loginProjectUser() *LoginProjectUser {
	return NewLoginProjectUser(h.store.ProjectUsers(), h.hasher, h.tokens, h.lock)
}

func TestOwner_LoginRequiresVerification(t *testing.T) {
	ctx := context.Background()
	h := newHarness(verification.ModeLink)

	res, err := h.registerOwner().Execute(ctx, RegisterOwnerInput{Name: "Ann", Email: "ann@x.io", Password: "password1"})
	require.NoError(t, err)
	require.NoError(t, res.EmailErr)

	_, err = h.loginOwner().Execute(ctx, LoginInput{Email: "ann@x.io", Password: "password1"})
	assert.ErrorIs(t, err, domerrors.ErrEmailNotVerified)

	_, err = NewVerifyEmail(h.global).Execute(ctx, VerifyEmailInput{Token: h.mail.lastSecret(t)})
	require.NoError(t, err)

	login, err := h.loginOwner().Execute(ctx, LoginInput{Email: "ann@x.io", Password: "password1"})
	require.NoError(t, err)
	claims, err := h.tokens.ValidateSession(login.Token)
	require.NoError(t, err)
	assert.Equal(t, res.AccountID.String(), claims.SubjectID)
	assert.Equal(t, domain.AccountGlobal, claims.Kind)
}

func TestOwner_RegisterValidationAndConflict(t *testing.T) {
	ctx := context.Background()
	h := newHarness(verification.ModeLink)
	uc := h.registerOwner()

	_, err := uc.Execute(ctx, RegisterOwnerInput{Name: "", Email: "ann@x.io", Password: "password1"})
	assert.ErrorIs(t, err, domerrors.ErrValidation)
	_, err = uc.Execute(ctx, RegisterOwnerInput{Name: "Ann", Email: "not-an-email", Password: "password1"})
	assert.ErrorIs(t, err, domerrors.ErrValidation)
	_, err = uc.Execute(ctx, RegisterOwnerInput{Name: "Ann", Email: "ann@x.io", Password: "short"})
	assert.ErrorIs(t, err, domerrors.ErrValidation)

	_, err = uc.Execute(ctx, RegisterOwnerInput{Name: "Ann", Email: "ann@x.io", Password: "password1"})
	require.NoError(t, err)
	_, err = uc.Execute(ctx, RegisterOwnerInput{Name: "Ann", Email: " ann@x.io ", Password: "password1"})
	assert.ErrorIs(t, err, domerrors.ErrConflict)
}

func TestOwner_RegisterSurvivesQueueOutage(t *testing.T) {
	h := newHarness(verification.ModeLink)
	h.mail.err = errors.New("queue down")

	res, err := h.registerOwner().Execute(context.Background(), RegisterOwnerInput{Name: "Ann", Email: "ann@x.io", Password: "password1"})
	require.NoError(t, err)
	assert.Error(t, res.EmailErr)

	stored, err := h.store.GlobalUsers().GetByEmail(context.Background(), "ann@x.io")
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestLogin_UnknownAndWrongPasswordLookTheSame(t *testing.T) {
	ctx := context.Background()
	h := newHarness(verification.ModeLink)
	_, err := h.registerOwner().Execute(ctx, RegisterOwnerInput{Name: "Ann", Email: "ann@x.io", Password: "password1"})
	require.NoError(t, err)

	_, errUnknown := h.loginOwner().Execute(ctx, LoginInput{Email: "ghost@x.io", Password: "password1"})
	_, errWrong := h.loginOwner().Execute(ctx, LoginInput{Email: "ann@x.io", Password: "password2"})
	assert.ErrorIs(t, errUnknown, domerrors.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, domerrors.ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

// recordingHasher records the hashes Verify was asked to check.
type recordingHasher struct {
	ports.PasswordHasher
	mu      sync.Mutex
	targets []string
}

func (r *recordingHasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	r.mu.Lock()
	r.targets = append(r.targets, hash)
	r.mu.Unlock()
	return r.PasswordHasher.Verify(ctx, password, hash)
}

func TestLogin_UnknownAccountStillHashesAfterCancelledFirstCall(t *testing.T) {
	h := newHarness(verification.ModeLink)
	hasher := &recordingHasher{PasswordHasher: h.hasher}
	uc := NewLoginOwner(h.store.GlobalUsers(), hasher, h.tokens, nil)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := uc.Execute(cancelled, LoginInput{Email: "ghost@x.io", Password: "password1"})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = uc.Execute(context.Background(), LoginInput{Email: "ghost@x.io", Password: "password1"})
	assert.ErrorIs(t, err, domerrors.ErrInvalidCredentials)
	require.Len(t, hasher.targets, 1, "the cancelled call never reached Verify")
	assert.True(t, strings.HasPrefix(hasher.targets[0], "$argon2id$"), "unknown accounts are checked against a real hash")
}

func TestLogin_LocksAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	h := newHarness(verification.ModeLink)
	uc := h.loginOwner()
	for i := 0; i < 3; i++ {
		_, err := uc.Execute(ctx, LoginInput{Email: "ann@x.io", Password: "nope"})
		assert.ErrorIs(t, err, domerrors.ErrInvalidCredentials)
	}
	_, err := uc.Execute(ctx, LoginInput{Email: "ann@x.io", Password: "nope"})
	assert.ErrorIs(t, err, domerrors.ErrTooManyRequests)
	var locked *LockedError
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, 60, locked.RetryAfterSeconds())
}

func TestProjectUser_EmailUniquePerProject(t *testing.T) {
	ctx := context.Background()
	h := newHarness(verification.ModeLink)
	p1 := domain.NewProjectID(uuid.New())
	p2 := domain.NewProjectID(uuid.New())
	uc := h.registerProjectUser()

	_, err := uc.Execute(ctx, RegisterProjectUserInput{ProjectID: p1, Email: "a@x.com", Password: "password1"})
	require.NoError(t, err)
	_, err = uc.Execute(ctx, RegisterProjectUserInput{ProjectID: p1, Email: "A@X.com", Password: "password1"})
	assert.ErrorIs(t, err, domerrors.ErrConflict)
	_, err = uc.Execute(ctx, RegisterProjectUserInput{ProjectID: p2, Email: "a@x.com", Password: "password1"})
	assert.NoError(t, err)
}

func TestProjectUser_ExampleScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(verification.ModeLink)
	p := domain.NewProjectID(uuid.New())

	reg, err := h.registerProjectUser().Execute(ctx, RegisterProjectUserInput{ProjectID: p, Email: "a@x.com", Password: "password1"})
	require.NoError(t, err)
	first := h.mail.lastSecret(t)

	_, err = h.loginProjectUser().Execute(ctx, LoginInput{ProjectID: p, Email: "a@x.com", Password: "password1"})
	assert.ErrorIs(t, err, domerrors.ErrEmailNotVerified)

	// Resend is blocked right after registration.
	_, err = NewSendEmailVerification(h.projects).Execute(ctx, SendEmailVerificationInput{ProjectID: p, Email: "a@x.com"})
	assert.ErrorIs(t, err, domerrors.ErrTooManyRequests)

	// Backdate the first send past the cooldown.
	stored, err := h.store.ProjectUsers().GetByEmail(ctx, p, "a@x.com")
	require.NoError(t, err)
	past := time.Now().Add(-3 * time.Minute)
	ok, err := h.store.ProjectUsers().IssueVerification(ctx, stored.ID.UUID, domain.VerificationIssue{
		TokenHash: verification.HashSecret(first), ExpiresAt: time.Now().Add(time.Hour), SentAt: past,
	}, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	_, err = NewSendEmailVerification(h.projects).Execute(ctx, SendEmailVerificationInput{ProjectID: p, Email: "a@x.com"})
	require.NoError(t, err)
	second := h.mail.lastSecret(t)
	require.NotEqual(t, first, second)

	_, err = NewVerifyEmail(h.projects).Execute(ctx, VerifyEmailInput{Token: first})
	assert.ErrorIs(t, err, domerrors.ErrInvalidOrExpiredToken)
	_, err = NewVerifyEmail(h.projects).Execute(ctx, VerifyEmailInput{Token: second})
	require.NoError(t, err)
	_, err = NewVerifyEmail(h.projects).Execute(ctx, VerifyEmailInput{Token: second})
	assert.ErrorIs(t, err, domerrors.ErrInvalidOrExpiredToken)

	login, err := h.loginProjectUser().Execute(ctx, LoginInput{ProjectID: p, Email: "a@x.com", Password: "password1"})
	require.NoError(t, err)
	claims, err := h.tokens.ValidateSession(login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.AccountID.String(), claims.SubjectID)
	assert.Equal(t, p.String(), claims.ProjectID)
}

func TestProjectUser_LoginScopedToProject(t *testing.T) {
	ctx := context.Background()
	h := newHarness(verification.ModeCode)
	p := domain.NewProjectID(uuid.New())

	_, err := h.registerProjectUser().Execute(ctx, RegisterProjectUserInput{ProjectID: p, Email: "a@x.com", Password: "password1"})
	require.NoError(t, err)
	_, err = NewVerifyEmail(h.projects).Execute(ctx, VerifyEmailInput{ProjectID: p, Email: "a@x.com", Token: h.mail.lastSecret(t)})
	require.NoError(t, err)

	_, err = h.loginProjectUser().Execute(ctx, LoginInput{ProjectID: domain.NewProjectID(uuid.New()), Email: "a@x.com", Password: "password1"})
	assert.ErrorIs(t, err, domerrors.ErrInvalidCredentials)
	_, err = h.loginProjectUser().Execute(ctx, LoginInput{ProjectID: p, Email: "a@x.com", Password: "password1"})
	assert.NoError(t, err)
}
