package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dailyposts/blog-api/cmd/internal/models"
	"github.com/dailyposts/blog-api/cmd/internal/service"
)

type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

// ListPosts handles GET /api/posts
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		internalError(w, r, h.logger, "Failed to fetch posts", err)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

// GetPost handles GET /api/posts/{slugOrId}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), mux.Vars(r)["slugOrId"])
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Post not found")
		} else {
			internalError(w, r, h.logger, "Failed to fetch post", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// CreatePost handles POST /api/posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	post, err := h.posts.Create(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, post)
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "Missing required fields")
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusBadRequest, "A post with this title already exists")
	default:
		internalError(w, r, h.logger, "Failed to create post", err)
	}
}

// UpdatePost handles PUT /api/posts/{id}
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	var req models.UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, err := h.posts.Update(r.Context(), id, req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, models.MessageResponse{Success: true, Message: "Post updated successfully"})
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Post not found")
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "Required fields cannot be empty")
	default:
		internalError(w, r, h.logger, "Failed to update post", err)
	}
}

// DeletePost handles DELETE /api/posts/{id}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	err := h.posts.Delete(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, models.MessageResponse{Success: true, Message: "Post deleted successfully"})
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Post not found")
	default:
		internalError(w, r, h.logger, "Failed to delete post", err)
	}
}

func postID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid post ID")
		return 0, false
	}
	return id, true
}
