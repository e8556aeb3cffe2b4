package repository

import (
	"context"
	"errors"

	"github.com/dailyposts/blog-api/cmd/internal/models"
)

var (
	// ErrNotFound is returned when no post matches the lookup key
	ErrNotFound = errors.New("post not found")
	// ErrDuplicateSlug is returned when an insert would violate slug uniqueness
	ErrDuplicateSlug = errors.New("post with this slug already exists")
)

// PostStore persists posts. Implementations must reject inserts whose slug already
// exists with ErrDuplicateSlug and must never modify slug, id or created_at on update.
type PostStore interface {
	// List returns all posts, newest created first
	List(ctx context.Context) ([]models.Post, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	// Create inserts post and fills in its ID and timestamps
	Create(ctx context.Context, post *models.Post) error
	// Update replaces the mutable fields of the post with post.ID
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	// Name identifies the backend in health output
	Name() string
}
