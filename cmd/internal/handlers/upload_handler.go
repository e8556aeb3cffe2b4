package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/dailyposts/blog-api/cmd/internal/models"
	"github.com/dailyposts/blog-api/cmd/internal/service"
	"github.com/dailyposts/blog-api/cmd/internal/upload"
)

// multipartOverhead allows for boundaries and part headers on top of the file itself.
const multipartOverhead = 1 << 20

type UploadHandler struct {
	images   *upload.ImageStore
	importer *service.Importer
	maxBytes int64
	logger   *slog.Logger
}

func NewUploadHandler(images *upload.ImageStore, importer *service.Importer, maxBytes int64, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{images: images, importer: importer, maxBytes: maxBytes, logger: logger}
}

// formFile reads one multipart file field, answering 400 itself when the body is
// too large or the field is missing.
func (h *UploadHandler) formFile(w http.ResponseWriter, r *http.Request, field, missing string) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)

	file, fh, err := r.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusBadRequest, fmt.Sprintf("File exceeds the %d byte limit", h.maxBytes))
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			writeError(w, http.StatusBadRequest, missing)
		default:
			writeError(w, http.StatusBadRequest, "Invalid multipart form")
		}
		return nil, nil, false
	}
	return file, fh, true
}

// UploadImage handles POST /api/upload
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	file, fh, ok := h.formFile(w, r, "image", "No image file provided")
	if !ok {
		return
	}
	file.Close()

	img, err := h.images.Save(fh)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, models.UploadResponse{
			Success:  true,
			ImageURL: img.URL,
			Filename: img.Filename,
			Size:     img.Size,
		})
	case errors.Is(err, upload.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, "Only image files are allowed")
	case errors.Is(err, upload.ErrTooLarge):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("File exceeds the %d byte limit", h.maxBytes))
	default:
		internalError(w, r, h.logger, "Failed to upload image", err)
	}
}

// BulkUpload handles POST /api/bulk-upload. Rows that fail are reported in the
// response body; only an unreadable file fails the request.
func (h *UploadHandler) BulkUpload(w http.ResponseWriter, r *http.Request) {
	file, _, ok := h.formFile(w, r, "file", "No file provided")
	if !ok {
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		internalError(w, r, h.logger, "Failed to bulk upload posts", err)
		return
	}
	if int64(len(data)) > h.maxBytes {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("File exceeds the %d byte limit", h.maxBytes))
		return
	}

	report, err := h.importer.ImportCSV(r.Context(), data)
	if err != nil {
		var structural *service.StructuralError
		if errors.As(err, &structural) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid CSV format", Details: structural.Details})
			return
		}
		internalError(w, r, h.logger, "Failed to bulk upload posts", err)
		return
	}

	writeJSON(w, http.StatusOK, models.BulkUploadResponse{
		Success:      true,
		Message:      fmt.Sprintf("Successfully imported %d posts", report.SuccessCount),
		SuccessCount: report.SuccessCount,
		Errors:       report.Errors,
	})
}
