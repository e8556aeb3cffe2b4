package models

import (
	"strings"
	"time"
)

const (
	// DefaultAuthor is used when a post is submitted without an author
	DefaultAuthor = "Daily Post"
	// DefaultThumbnail is used when a post is submitted without a thumbnail
	DefaultThumbnail = "/images/placeholder-default.jpg"
)

// Categories are the categories offered by the editor. Storage does not enforce them.
var Categories = []string{
	"Technology",
	"Governance",
	"Security",
	"AI & Future",
	"Business",
	"Media & Society",
}

// Post represents a blog post
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Excerpt   string    `json:"excerpt"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Category  string    `json:"category"`
	Thumbnail string    `json:"thumbnail"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreatePostRequest represents the request body for creating a post.
// A slug sent by the client is never accepted; it is derived from the title.
type CreatePostRequest struct {
	Title     string `json:"title"`
	Excerpt   string `json:"excerpt"`
	Content   string `json:"content"`
	Author    string `json:"author,omitempty"`
	Category  string `json:"category"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// MissingFields returns the names of required fields that are empty or blank.
func (r CreatePostRequest) MissingFields() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"title", r.Title},
		{"excerpt", r.Excerpt},
		{"content", r.Content},
		{"category", r.Category},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// ApplyDefaults fills in author and thumbnail when they were omitted.
func (r *CreatePostRequest) ApplyDefaults() {
	if strings.TrimSpace(r.Author) == "" {
		r.Author = DefaultAuthor
	}
	if strings.TrimSpace(r.Thumbnail) == "" {
		r.Thumbnail = DefaultThumbnail
	}
}

// UpdatePostRequest represents the request body for updating a post.
// Nil fields keep their current value. Slug and creation time cannot be changed.
type UpdatePostRequest struct {
	Title     *string `json:"title,omitempty"`
	Excerpt   *string `json:"excerpt,omitempty"`
	Content   *string `json:"content,omitempty"`
	Author    *string `json:"author,omitempty"`
	Category  *string `json:"category,omitempty"`
	Thumbnail *string `json:"thumbnail,omitempty"`
}

// BlankFields returns the names of required fields that are present but blank.
func (r UpdatePostRequest) BlankFields() []string {
	var blank []string
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"title", r.Title},
		{"excerpt", r.Excerpt},
		{"content", r.Content},
		{"category", r.Category},
	} {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			blank = append(blank, f.name)
		}
	}
	return blank
}

// ApplyTo copies the non-nil fields onto post. Empty author and thumbnail fall back to defaults.
func (r UpdatePostRequest) ApplyTo(post *Post) {
	if r.Title != nil {
		post.Title = *r.Title
	}
	if r.Excerpt != nil {
		post.Excerpt = *r.Excerpt
	}
	if r.Content != nil {
		post.Content = *r.Content
	}
	if r.Category != nil {
		post.Category = *r.Category
	}
	if r.Author != nil {
		post.Author = *r.Author
		if strings.TrimSpace(post.Author) == "" {
			post.Author = DefaultAuthor
		}
	}
	if r.Thumbnail != nil {
		post.Thumbnail = *r.Thumbnail
		if strings.TrimSpace(post.Thumbnail) == "" {
			post.Thumbnail = DefaultThumbnail
		}
	}
}
