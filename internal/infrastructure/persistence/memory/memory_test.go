package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
)

func newOwner(email string) *domain.GlobalUser {
	return &domain.GlobalUser{ID: domain.NewUserID(uuid.New()), Email: email, Name: "Owner", Role: domain.RoleUser}
}

func TestGlobalUsers_EmailUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().GlobalUsers()

	require.NoError(t, repo.Create(ctx, newOwner("a@x.io")))
	err := repo.Create(ctx, newOwner("a@x.io"))
	assert.ErrorIs(t, err, domerrors.ErrConflict)

	// Case-sensitive as stored.
	require.NoError(t, repo.Create(ctx, newOwner("A@x.io")))

	got, err := repo.GetByEmail(ctx, "missing@x.io")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestProjectUsers_UniquePerProject(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().ProjectUsers()
	p1 := domain.NewProjectID(uuid.New())
	p2 := domain.NewProjectID(uuid.New())

	mk := func(p domain.ProjectID) *domain.ProjectUser {
		return &domain.ProjectUser{ID: domain.NewProjectUserID(uuid.New()), ProjectID: p, Email: "u@x.io", Role: domain.RoleUser}
	}
	require.NoError(t, repo.Create(ctx, mk(p1)))
	require.NoError(t, repo.Create(ctx, mk(p2)))
	assert.ErrorIs(t, repo.Create(ctx, mk(p1)), domerrors.ErrConflict)

	users, err := repo.ListByProject(ctx, p1)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestProjectUsers_ScopedMutations(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().ProjectUsers()
	p1 := domain.NewProjectID(uuid.New())
	other := domain.NewProjectID(uuid.New())
	u := &domain.ProjectUser{ID: domain.NewProjectUserID(uuid.New()), ProjectID: p1, Email: "u@x.io", Role: domain.RoleUser}
	require.NoError(t, repo.Create(ctx, u))

	ok, err := repo.UpdateRole(ctx, other, u.ID, domain.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.UpdateRole(ctx, p1, u.ID, domain.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, ok)
	got, err := repo.GetByID(ctx, p1, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, got.Role)

	ok, err = repo.Delete(ctx, other, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = repo.Delete(ctx, p1, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	got, err = repo.GetByID(ctx, p1, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestVerification_IssueRespectsCooldownAndConsumeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().GlobalUsers()
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	u := newOwner("a@x.io")
	u.Verification = domain.VerificationIssue{TokenHash: "h1", ExpiresAt: t0.Add(24 * time.Hour), SentAt: t0}.Apply()
	require.NoError(t, repo.Create(ctx, u))

	at := t0.Add(119 * time.Second)
	ok, err := repo.IssueVerification(ctx, u.ID.UUID, domain.VerificationIssue{TokenHash: "h2", ExpiresAt: at.Add(15 * time.Minute), SentAt: at}, at.Add(-2*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	at = t0.Add(120 * time.Second)
	ok, err = repo.IssueVerification(ctx, u.ID.UUID, domain.VerificationIssue{TokenHash: "h2", ExpiresAt: at.Add(15 * time.Minute), SentAt: at}, at.Add(-2*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ConsumeVerification(ctx, u.ID.UUID, "h1", at)
	require.NoError(t, err)
	assert.False(t, ok, "replaced token must not verify")

	ok, err = repo.ConsumeVerification(ctx, u.ID.UUID, "h2", at)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.ConsumeVerification(ctx, u.ID.UUID, "h2", at)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Verification.Verified)
	assert.Empty(t, got.Verification.TokenHash)
	assert.Nil(t, got.Verification.ExpiresAt)
}

func TestProjectUsers_RevokeVerification(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().ProjectUsers()
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	u := &domain.ProjectUser{
		ID:           domain.NewProjectUserID(uuid.New()),
		ProjectID:    domain.NewProjectID(uuid.New()),
		Email:        "p@x.io",
		Role:         domain.RoleUser,
		Verification: domain.VerificationIssue{TokenHash: "h1", ExpiresAt: t0.Add(24 * time.Hour), SentAt: t0}.Apply(),
	}
	require.NoError(t, repo.Create(ctx, u))

	ok, err := repo.RevokeVerification(ctx, u.ID.UUID, "other")
	require.NoError(t, err)
	assert.False(t, ok, "a token that is no longer current is left alone")

	ok, err = repo.RevokeVerification(ctx, u.ID.UUID, "h1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ConsumeVerification(ctx, u.ID.UUID, "h1", t0)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(ctx, u.ProjectID, u.ID)
	require.NoError(t, err)
	assert.False(t, got.Verification.Verified)
	assert.Empty(t, got.Verification.TokenHash)
	assert.Zero(t, got.Verification.RetryAfter(t0, 2*time.Minute), "a revoked account may resend at once")
}

func TestProjects_KeyUniqueAndRotation(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	owner := newOwner("o@x.io")
	require.NoError(t, store.GlobalUsers().Create(ctx, owner))
	repo := store.Projects()

	p := &domain.Project{ID: domain.NewProjectID(uuid.New()), Name: "p", APIKeyHash: "k1", Owner: domain.OwnerRef{ID: owner.ID}}
	require.NoError(t, repo.Create(ctx, p))
	dup := &domain.Project{ID: domain.NewProjectID(uuid.New()), Name: "q", APIKeyHash: "k1", Owner: domain.OwnerRef{ID: owner.ID}}
	assert.ErrorIs(t, repo.Create(ctx, dup), domerrors.ErrConflict)

	got, err := repo.GetByAPIKeyHash(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, got.Owner.Profile)
	assert.Equal(t, "o@x.io", got.Owner.Profile.Email)

	require.NoError(t, repo.UpdateAPIKey(ctx, p.ID, "k2", "ak_abcd"))
	got, err = repo.GetByAPIKeyHash(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, got)
	exists, err := repo.ExistsByAPIKeyHash(ctx, "k2")
	require.NoError(t, err)
	assert.True(t, exists)

	err = repo.UpdateAPIKey(ctx, domain.NewProjectID(uuid.New()), "k3", "ak_")
	assert.ErrorIs(t, err, domerrors.ErrProjectNotFound)

	owned, err := repo.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}
