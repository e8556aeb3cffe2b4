package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyposts/blog-api/cmd/internal/models"
	"github.com/dailyposts/blog-api/cmd/internal/repository"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newStore(t *testing.T) *repository.FileRepository {
	t.Helper()
	store, err := repository.NewFileRepository(filepath.Join(t.TempDir(), "posts.json"))
	require.NoError(t, err)
	return store
}

// flakyStore fails inserts for chosen slugs and can be told to report
// duplicates that the existence check did not see.
type flakyStore struct {
	repository.PostStore
	failSlugs  map[string]error
	panicSlugs map[string]bool
	hideExists bool
}

func (s *flakyStore) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	if s.hideExists {
		return false, nil
	}
	return s.PostStore.ExistsBySlug(ctx, slug)
}

func (s *flakyStore) Create(ctx context.Context, post *models.Post) error {
	if s.panicSlugs[post.Slug] {
		panic("driver exploded")
	}
	if err, ok := s.failSlugs[post.Slug]; ok {
		return err
	}
	return s.PostStore.Create(ctx, post)
}

func validRequest(title string) models.CreatePostRequest {
	return models.CreatePostRequest{Title: title, Excerpt: "e", Content: "c", Category: "Technology"}
}

func TestPostService_CreateDerivesSlugAndDefaults(t *testing.T) {
	svc := NewPostService(newStore(t), discard)

	post, err := svc.Create(context.Background(), validRequest("Hello, World!"))
	require.NoError(t, err)
	assert.Equal(t, "hello-world", post.Slug)
	assert.Equal(t, models.DefaultAuthor, post.Author)
	assert.Equal(t, models.DefaultThumbnail, post.Thumbnail)
	assert.NotZero(t, post.ID)
}

func TestPostService_CreateMissingFields(t *testing.T) {
	svc := NewPostService(newStore(t), discard)

	req := validRequest("Title")
	req.Category = "  "
	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorContains(t, err, "category")
}

func TestPostService_CreateConflictRegardlessOfOtherFields(t *testing.T) {
	svc := NewPostService(newStore(t), discard)
	ctx := context.Background()

	_, err := svc.Create(ctx, validRequest("Same Title"))
	require.NoError(t, err)

	other := models.CreatePostRequest{Title: "same   title", Excerpt: "x", Content: "y", Category: "Business", Author: "Someone"}
	_, err = svc.Create(ctx, other)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPostService_CreateRaceSurfacesAsConflict(t *testing.T) {
	base := newStore(t)
	svc := NewPostService(&flakyStore{PostStore: base, hideExists: true}, discard)
	ctx := context.Background()

	_, err := svc.Create(ctx, validRequest("Race"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, validRequest("Race"))
	assert.ErrorIs(t, err, ErrConflict)

	n, _ := base.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestPostService_Get(t *testing.T) {
	svc := NewPostService(newStore(t), discard)
	ctx := context.Background()

	created, err := svc.Create(ctx, validRequest("Find Me"))
	require.NoError(t, err)

	bySlug, err := svc.Get(ctx, "find-me")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)

	byID, err := svc.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "find-me", byID.Slug)

	_, err = svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, "42")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostService_UpdateKeepsSlugAndCreatedAt(t *testing.T) {
	svc := NewPostService(newStore(t), discard)
	ctx := context.Background()

	created, err := svc.Create(ctx, validRequest("Original Title"))
	require.NoError(t, err)

	title := "Brand New Title"
	author := ""
	updated, err := svc.Update(ctx, created.ID, models.UpdatePostRequest{Title: &title, Author: &author})
	require.NoError(t, err)

	assert.Equal(t, "Brand New Title", updated.Title)
	assert.Equal(t, "original-title", updated.Slug)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, models.DefaultAuthor, updated.Author)
	assert.Equal(t, "e", updated.Excerpt)
}

func TestPostService_UpdateErrors(t *testing.T) {
	svc := NewPostService(newStore(t), discard)
	ctx := context.Background()

	title := "x"
	_, err := svc.Update(ctx, 99, models.UpdatePostRequest{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := svc.Create(ctx, validRequest("Keep"))
	require.NoError(t, err)

	blank := " "
	_, err = svc.Update(ctx, created.ID, models.UpdatePostRequest{Content: &blank})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPostService_DeleteMissingLeavesTableUnchanged(t *testing.T) {
	store := newStore(t)
	svc := NewPostService(store, discard)
	ctx := context.Background()

	_, err := svc.Create(ctx, validRequest("Stay"))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, 1234), ErrNotFound)
	n, _ := store.Count(ctx)
	assert.Equal(t, 1, n)

	require.NoError(t, svc.Delete(ctx, 1))
	n, _ = store.Count(ctx)
	assert.Equal(t, 0, n)
}

func TestPostService_ListNewestFirst(t *testing.T) {
	svc := NewPostService(newStore(t), discard)
	ctx := context.Background()

	for _, title := range []string{"First", "Second"} {
		_, err := svc.Create(ctx, validRequest(title))
		require.NoError(t, err)
	}

	posts, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "second", posts[0].Slug)
}

func TestPostService_Health(t *testing.T) {
	svc := NewPostService(newStore(t), discard)

	name, err := svc.Health(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "file", name)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Health(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
