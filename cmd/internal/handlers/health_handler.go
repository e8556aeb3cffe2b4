package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/dailyposts/blog-api/cmd/internal/logging"
	"github.com/dailyposts/blog-api/cmd/internal/models"
)

// Health handles GET /health
func (h *PostHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	storage, err := h.posts.Health(ctx)
	if err != nil {
		logging.FromContext(r.Context(), h.logger).WarnContext(r.Context(), "health check failed", "storage", storage, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, models.HealthResponse{Status: "Storage unavailable", Storage: storage})
		return
	}
	writeJSON(w, http.StatusOK, models.HealthResponse{Status: "Backend server is running", Storage: storage})
}
