package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/repository"
)

func TestIdentities_UniqueEmailIgnoresCase(t *testing.T) {
	repo := NewStore().Identities()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Identity{Username: "alice", Email: "Alice@Example.com"}))

	err := repo.Create(ctx, &domain.Identity{Username: "alice2", Email: "alice@EXAMPLE.com"})
	ce, ok := repository.IsConflict(err)
	require.True(t, ok)
	assert.Equal(t, "email", ce.Field)

	err = repo.Create(ctx, &domain.Identity{Username: "alice", Email: "other@example.com"})
	ce, ok = repository.IsConflict(err)
	require.True(t, ok)
	assert.Equal(t, "username", ce.Field)

	// usernames are case-sensitive
	require.NoError(t, repo.Create(ctx, &domain.Identity{Username: "Alice", Email: "third@example.com"}))
}

func TestIdentities_FindByEmailOrUsername(t *testing.T) {
	repo := NewStore().Identities()
	ctx := context.Background()
	identity := &domain.Identity{Username: "bob", Email: "bob@example.com"}
	require.NoError(t, repo.Create(ctx, identity))

	got, err := repo.FindByEmailOrUsername(ctx, "BOB@example.com")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, got.ID)

	got, err = repo.FindByEmailOrUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, got.ID)

	_, err = repo.FindByEmailOrUsername(ctx, "carol")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIdentities_ReturnsCopies(t *testing.T) {
	repo := NewStore().Identities()
	ctx := context.Background()
	identity := &domain.Identity{Username: "bob", Email: "bob@example.com", PasswordHash: "h1"}
	require.NoError(t, repo.Create(ctx, identity))

	got, err := repo.GetByID(ctx, identity.ID)
	require.NoError(t, err)
	got.PasswordHash = "tampered"

	again, err := repo.GetByID(ctx, identity.ID)
	require.NoError(t, err)
	assert.Equal(t, "h1", again.PasswordHash)
}

func TestIdentities_ConcurrentTouchLastLogin(t *testing.T) {
	repo := NewStore().Identities()
	ctx := context.Background()
	identity := &domain.Identity{Username: "bob", Email: "bob@example.com"}
	require.NoError(t, repo.Create(ctx, identity))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, repo.TouchLastLogin(ctx, identity.ID, base.Add(time.Duration(i)*time.Second)))
		}(i)
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, identity.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.False(t, got.LastLoginAt.Before(base))
	assert.Equal(t, "bob", got.Username)
}

func TestCategories_CountPostsAndCascade(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	cat := &domain.Category{Name: "Go", IsActive: true}
	require.NoError(t, store.Categories().Create(ctx, cat))
	_, ok := repository.IsConflict(store.Categories().Create(ctx, &domain.Category{Name: "go"}))
	assert.True(t, ok)

	post := &domain.Post{AuthorID: "a", CategoryID: cat.ID, Title: "t", Slug: "t-1"}
	require.NoError(t, store.Posts().Create(ctx, post))
	n, err := store.Categories().CountPosts(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	comment := &domain.Comment{PostID: post.ID, AuthorID: "b", Content: "hi"}
	require.NoError(t, store.Comments().Create(ctx, comment))
	require.NoError(t, store.Posts().Delete(ctx, post.ID))

	_, err = store.Comments().GetByID(ctx, comment.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, store.Comments().Create(ctx, &domain.Comment{PostID: post.ID}), repository.ErrNotFound)
}

func TestGetBySlug(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	cat := &domain.Category{Name: "Go", Slug: "go", IsActive: true}
	require.NoError(t, store.Categories().Create(ctx, cat))
	post := &domain.Post{AuthorID: "a", Title: "Hello", Slug: "hello-0a1b2c3d"}
	require.NoError(t, store.Posts().Create(ctx, post))

	gotCat, err := store.Categories().GetBySlug(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, cat.ID, gotCat.ID)

	gotPost, err := store.Posts().GetBySlug(ctx, "hello-0a1b2c3d")
	require.NoError(t, err)
	assert.Equal(t, post.ID, gotPost.ID)

	_, err = store.Posts().GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.Categories().GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
