package project

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/persistence/memory"
)

func newOwner(t *testing.T, store *memory.Store) *domain.GlobalUser {
	t.Helper()
	u := &domain.GlobalUser{ID: domain.NewUserID(uuid.New()), Email: uuid.NewString() + "@x.io", Role: domain.RoleUser}
	require.NoError(t, store.GlobalUsers().Create(context.Background(), u))
	return u
}

func TestKeyGenerator_Format(t *testing.T) {
	gen := NewKeyGenerator(memory.NewStore().Projects())
	key, err := gen.Generate(context.Background())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key.Plain, "ak_"))
	assert.Len(t, key.Plain, 3+64)
	assert.Equal(t, HashAPIKey(key.Plain), key.Hash)
	assert.Equal(t, key.Plain[:11], key.Prefix)
}

func TestKeyGenerator_TenThousandUnique(t *testing.T) {
	gen := NewKeyGenerator(memory.NewStore().Projects())
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		key, err := gen.Generate(context.Background())
		require.NoError(t, err)
		_, dup := seen[key.Plain]
		require.False(t, dup)
		seen[key.Plain] = struct{}{}
	}
}

func TestKeyGenerator_SkipsRegisteredKey(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	owner := newOwner(t, store)

	taken := "ak_" + strings.Repeat("00", 32)
	require.NoError(t, store.Projects().Create(ctx, &domain.Project{
		ID: domain.NewProjectID(uuid.New()), Name: "old", APIKeyHash: HashAPIKey(taken), Owner: domain.OwnerRef{ID: owner.ID},
	}))

	gen := NewKeyGenerator(store.Projects())
	gen.random = bytes.NewReader(append(make([]byte, 32), bytes.Repeat([]byte{1}, 32)...))

	key, err := gen.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ak_"+strings.Repeat("01", 32), key.Plain)
}

func TestKeyGenerator_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	owner := newOwner(t, store)
	taken := "ak_" + strings.Repeat("00", 32)
	require.NoError(t, store.Projects().Create(ctx, &domain.Project{
		ID: domain.NewProjectID(uuid.New()), APIKeyHash: HashAPIKey(taken), Owner: domain.OwnerRef{ID: owner.ID},
	}))

	gen := NewKeyGenerator(store.Projects())
	gen.random = bytes.NewReader(make([]byte, 32*DefaultMaxAttempts))
	_, err := gen.Generate(ctx)
	assert.ErrorIs(t, err, errKeySpaceExhausted)
}

// conflictOnce makes the first Create/UpdateAPIKey fail like a unique violation
// that raced past the existence check.
type conflictOnce struct {
	*memory.ProjectRepository
	mu    sync.Mutex
	fired bool
}

func (c *conflictOnce) fire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fired {
		return false
	}
	c.fired = true
	return true
}

func (c *conflictOnce) Create(ctx context.Context, p *domain.Project) error {
	if c.fire() {
		return domerrors.ErrConflict
	}
	return c.ProjectRepository.Create(ctx, p)
}

func (c *conflictOnce) UpdateAPIKey(ctx context.Context, id domain.ProjectID, hash, prefix string) error {
	if c.fire() {
		return domerrors.ErrConflict
	}
	return c.ProjectRepository.UpdateAPIKey(ctx, id, hash, prefix)
}

func TestCreateProject_RetriesOnStorageConflict(t *testing.T) {
	store := memory.NewStore()
	owner := newOwner(t, store)
	repo := &conflictOnce{ProjectRepository: store.Projects()}

	res, err := NewCreateProject(repo, NewKeyGenerator(repo)).Execute(context.Background(), CreateProjectInput{Name: " demo ", OwnerID: owner.ID})
	require.NoError(t, err)
	assert.Equal(t, "demo", res.Project.Name)
	assert.Equal(t, owner.ID, res.Project.Owner.UserID())

	got, err := NewResolver(store.Projects()).ResolveByAPIKey(context.Background(), res.APIKey)
	require.NoError(t, err)
	assert.Equal(t, res.Project.ID, got.ID)
	assert.Equal(t, owner.Email, got.Owner.Profile.Email)
}

func TestCreateProject_RequiresName(t *testing.T) {
	store := memory.NewStore()
	repo := store.Projects()
	_, err := NewCreateProject(repo, NewKeyGenerator(repo)).Execute(context.Background(), CreateProjectInput{Name: "  "})
	assert.ErrorIs(t, err, domerrors.ErrValidation)
}

func TestCreateProject_ConcurrentKeysDistinct(t *testing.T) {
	store := memory.NewStore()
	owner := newOwner(t, store)
	repo := store.Projects()
	uc := NewCreateProject(repo, NewKeyGenerator(repo))

	const n = 50
	keys := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := uc.Execute(context.Background(), CreateProjectInput{Name: "p", OwnerID: owner.ID})
			if assert.NoError(t, err) {
				keys <- res.APIKey
			}
		}()
	}
	wg.Wait()
	close(keys)

	seen := map[string]bool{}
	for k := range keys {
		assert.False(t, seen[k])
		seen[k] = true
	}
	assert.Len(t, seen, n)

	owned, err := NewListOwnedProjects(repo).Execute(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Len(t, owned, n)
}

func TestRotateProjectKey_InvalidatesOldKeyImmediately(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	owner := newOwner(t, store)
	repo := &conflictOnce{ProjectRepository: store.Projects(), fired: true}
	gen := NewKeyGenerator(repo)
	resolver := NewResolver(repo)

	created, err := NewCreateProject(repo, gen).Execute(ctx, CreateProjectInput{Name: "demo", OwnerID: owner.ID})
	require.NoError(t, err)

	repo.fired = false
	rotated, err := NewRotateProjectKey(repo, gen).Execute(ctx, RotateProjectKeyInput{ProjectID: created.Project.ID})
	require.NoError(t, err)
	assert.NotEqual(t, created.APIKey, rotated.APIKey)

	_, err = resolver.ResolveByAPIKey(ctx, created.APIKey)
	assert.ErrorIs(t, err, domerrors.ErrUnauthorized)
	assert.Equal(t, "invalid API key", err.Error())

	got, err := resolver.ResolveByAPIKey(ctx, rotated.APIKey)
	require.NoError(t, err)
	assert.Equal(t, created.Project.ID, got.ID)
}

func TestRotateProjectKey_UnknownProject(t *testing.T) {
	repo := memory.NewStore().Projects()
	_, err := NewRotateProjectKey(repo, NewKeyGenerator(repo)).Execute(context.Background(), RotateProjectKeyInput{ProjectID: domain.NewProjectID(uuid.New())})
	assert.ErrorIs(t, err, domerrors.ErrNotFound)
}

func TestResolver_EmptyKey(t *testing.T) {
	_, err := NewResolver(memory.NewStore().Projects()).ResolveByAPIKey(context.Background(), "")
	assert.ErrorIs(t, err, domerrors.ErrUnauthorized)
}
