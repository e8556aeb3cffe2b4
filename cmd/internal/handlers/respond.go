package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dailyposts/blog-api/cmd/internal/logging"
	"github.com/dailyposts/blog-api/cmd/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

// internalError logs err with the request logger and answers with a generic 500.
func internalError(w http.ResponseWriter, r *http.Request, fallback *slog.Logger, message string, err error) {
	logging.FromContext(r.Context(), fallback).ErrorContext(r.Context(), message, "error", err)
	writeError(w, http.StatusInternalServerError, message)
}
