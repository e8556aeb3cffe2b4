// Package service holds the rules for creating, changing and importing posts.
// It works against any repository.PostStore.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dailyposts/blog-api/cmd/internal/models"
	"github.com/dailyposts/blog-api/cmd/internal/repository"
	"github.com/dailyposts/blog-api/cmd/internal/slug"
)

var (
	// ErrValidation is returned when a required field is missing or blank
	ErrValidation = errors.New("missing required fields")
	// ErrConflict is returned when the derived slug is already taken
	ErrConflict = errors.New("a post with this title already exists")
	// ErrNotFound is returned when the post does not exist
	ErrNotFound = repository.ErrNotFound
)

type PostService struct {
	store  repository.PostStore
	logger *slog.Logger
}

func NewPostService(store repository.PostStore, logger *slog.Logger) *PostService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostService{store: store, logger: logger}
}

func (s *PostService) List(ctx context.Context) ([]models.Post, error) {
	return s.store.List(ctx)
}

// Get looks a post up by slug, then by numeric ID.
func (s *PostService) Get(ctx context.Context, slugOrID string) (*models.Post, error) {
	post, err := s.store.GetBySlug(ctx, slugOrID)
	if err == nil || !errors.Is(err, repository.ErrNotFound) {
		return post, err
	}

	id, convErr := strconv.ParseInt(slugOrID, 10, 64)
	if convErr != nil {
		return nil, ErrNotFound
	}
	return s.store.GetByID(ctx, id)
}

// Create validates req, derives the slug from the title and inserts the post.
// Any client-supplied slug is ignored.
func (s *PostService) Create(ctx context.Context, req models.CreatePostRequest) (*models.Post, error) {
	if missing := req.MissingFields(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(missing, ", "))
	}
	req.ApplyDefaults()

	post := &models.Post{
		Title:     req.Title,
		Slug:      slug.Derive(req.Title),
		Excerpt:   req.Excerpt,
		Content:   req.Content,
		Author:    req.Author,
		Category:  req.Category,
		Thumbnail: req.Thumbnail,
	}

	exists, err := s.store.ExistsBySlug(ctx, post.Slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrConflict
	}

	// A concurrent request can pass the existence check with the same slug;
	// the storage uniqueness constraint decides the winner.
	if err := s.store.Create(ctx, post); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return nil, ErrConflict
		}
		return nil, err
	}

	s.logger.DebugContext(ctx, "post created", "id", post.ID, "slug", post.Slug)
	return post, nil
}

// Update applies the fields present in req to the post with the given ID.
// The slug and creation time never change, even when the title does.
func (s *PostService) Update(ctx context.Context, id int64, req models.UpdatePostRequest) (*models.Post, error) {
	if blank := req.BlankFields(); len(blank) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(blank, ", "))
	}

	post, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	req.ApplyTo(post)
	if err := s.store.Update(ctx, post); err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "post updated", "id", id)
	return s.store.GetByID(ctx, id)
}

func (s *PostService) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return s.store.GetByID(ctx, id)
}

func (s *PostService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "post deleted", "id", id)
	return nil
}

// Health reports whether the store is reachable.
func (s *PostService) Health(ctx context.Context) (string, error) {
	return s.store.Name(), s.store.Ping(ctx)
}
