package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dailyposts/blog-api/cmd/internal/models"
)

type postsDocument struct {
	Posts []models.Post `json:"posts"`
}

// FileRepository keeps posts in a JSON document on disk. It is meant for local use
// when no database is configured. Every mutation rewrites the whole file.
type FileRepository struct {
	mu    sync.Mutex
	path  string
	posts []models.Post
	now   func() time.Time
}

// NewFileRepository loads posts from path. A missing file starts an empty store.
func NewFileRepository(path string) (*FileRepository, error) {
	r := &FileRepository{path: path, now: time.Now}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc postsDocument
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}
	r.posts = doc.Posts
	return r, nil
}

func (r *FileRepository) Name() string {
	return "file"
}

func (r *FileRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *FileRepository) List(ctx context.Context) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	posts := make([]models.Post, len(r.posts))
	copy(posts, r.posts)
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
	return posts, nil
}

func (r *FileRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexOf(func(p models.Post) bool { return p.ID == id }); i >= 0 {
		post := r.posts[i]
		return &post, nil
	}
	return nil, ErrNotFound
}

func (r *FileRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexOf(func(p models.Post) bool { return p.Slug == slug }); i >= 0 {
		post := r.posts[i]
		return &post, nil
	}
	return nil, ErrNotFound
}

func (r *FileRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.indexOf(func(p models.Post) bool { return p.Slug == slug }) >= 0, nil
}

func (r *FileRepository) Create(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(func(p models.Post) bool { return p.Slug == post.Slug }) >= 0 {
		return ErrDuplicateSlug
	}

	var maxID int64
	for _, p := range r.posts {
		if p.ID > maxID {
			maxID = p.ID
		}
	}

	created := *post
	created.ID = maxID + 1
	created.CreatedAt = r.now().UTC()
	created.UpdatedAt = created.CreatedAt

	r.posts = append(r.posts, created)
	if err := r.save(); err != nil {
		r.posts = r.posts[:len(r.posts)-1]
		return err
	}

	*post = created
	return nil
}

func (r *FileRepository) Update(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(func(p models.Post) bool { return p.ID == post.ID })
	if i < 0 {
		return ErrNotFound
	}

	previous := r.posts[i]
	updated := previous
	updated.Title = post.Title
	updated.Excerpt = post.Excerpt
	updated.Content = post.Content
	updated.Author = post.Author
	updated.Category = post.Category
	updated.Thumbnail = post.Thumbnail
	updated.UpdatedAt = r.now().UTC()

	r.posts[i] = updated
	if err := r.save(); err != nil {
		r.posts[i] = previous
		return err
	}
	return nil
}

func (r *FileRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(func(p models.Post) bool { return p.ID == id })
	if i < 0 {
		return ErrNotFound
	}

	previous := r.posts
	r.posts = append(append([]models.Post{}, r.posts[:i]...), r.posts[i+1:]...)
	if err := r.save(); err != nil {
		r.posts = previous
		return err
	}
	return nil
}

func (r *FileRepository) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.posts), nil
}

func (r *FileRepository) indexOf(match func(models.Post) bool) int {
	for i, p := range r.posts {
		if match(p) {
			return i
		}
	}
	return -1
}

// save writes the document to a temp file and renames it over the original.
// Callers must hold r.mu.
func (r *FileRepository) save() error {
	posts := r.posts
	if posts == nil {
		posts = []models.Post{}
	}
	data, err := json.MarshalIndent(postsDocument{Posts: posts}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode posts: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".posts-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write posts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", r.path, err)
	}
	return nil
}
