package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dailyposts/blog-api/cmd/internal/models"
)

const postColumns = `id, title, slug, excerpt, content, author, category, thumbnail, created_at, updated_at`

// PostRepository stores posts in the posts table of a postgres or mysql database.
type PostRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewPostRepository(db *sql.DB, dialect Dialect) *PostRepository {
	return &PostRepository{db: db, dialect: dialect}
}

func (r *PostRepository) Name() string {
	return r.dialect.Name
}

func (r *PostRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	err := row.Scan(
		&post.ID, &post.Title, &post.Slug, &post.Excerpt, &post.Content,
		&post.Author, &post.Category, &post.Thumbnail, &post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// List retrieves every post, newest first
func (r *PostRepository) List(ctx context.Context) ([]models.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, nil
}

// GetByID retrieves a post by its ID
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return r.getOne(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
}

// GetBySlug retrieves a post by its slug
func (r *PostRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return r.getOne(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug)
}

func (r *PostRepository) getOne(ctx context.Context, query string, arg any) (*models.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

func (r *PostRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT id FROM posts WHERE slug = ?`), slug).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return true, nil
}

// Create inserts a new post. A unique violation on slug is reported as ErrDuplicateSlug.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	const insert = `INSERT INTO posts (title, slug, excerpt, content, author, category, thumbnail)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`
	args := []any{post.Title, post.Slug, post.Excerpt, post.Content, post.Author, post.Category, post.Thumbnail}

	if r.dialect.Returning {
		err := r.db.QueryRowContext(ctx,
			r.dialect.Rebind(insert+` RETURNING id, created_at, updated_at`), args...,
		).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
		if err != nil {
			return r.insertError(err)
		}
		return nil
	}

	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(insert), args...)
	if err != nil {
		return r.insertError(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted id: %w", err)
	}
	post.ID = id

	err = r.db.QueryRowContext(ctx,
		r.dialect.Rebind(`SELECT created_at, updated_at FROM posts WHERE id = ?`), id,
	).Scan(&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to read timestamps: %w", err)
	}
	return nil
}

func (r *PostRepository) insertError(err error) error {
	if r.dialect.IsUniqueViolation(err) {
		return ErrDuplicateSlug
	}
	return fmt.Errorf("failed to insert post: %w", err)
}

// Update writes the mutable fields of an existing post. Slug and created_at are left alone.
func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(
		`UPDATE posts
		 SET title = ?, excerpt = ?, content = ?, author = ?, category = ?, thumbnail = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`),
		post.Title, post.Excerpt, post.Content, post.Author, post.Category, post.Thumbnail, post.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return checkAffected(result)
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM posts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return checkAffected(result)
}

func checkAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return n, nil
}
