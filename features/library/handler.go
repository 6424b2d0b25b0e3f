package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"devwell/backend/internal/middleware"
	"devwell/backend/internal/retrieval"
)

type Handler struct {
	service       *Service
	uploadDir     string
	maxUploadSize int64
}

func NewHandler(service *Service, uploadDir string, maxUploadMB int) *Handler {
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &Handler{service: service, uploadDir: uploadDir, maxUploadSize: int64(maxUploadMB) << 20}
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "File too large or malformed upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	base := filepath.Base(header.Filename)
	if base == "." || base == string(filepath.Separator) {
		h.writeError(r.Context(), w, "BAD_REQUEST", "Filename is required", http.StatusBadRequest)
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		slog.ErrorContext(r.Context(), "failed to create upload directory", "error", err, "path", filepath.Clean(h.uploadDir))
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to create upload directory", http.StatusInternalServerError)
		return
	}

	path := filepath.Clean(filepath.Join(h.uploadDir, fmt.Sprintf("%s_%s", uuid.New().String(), base)))
	if err := saveUpload(path, file); err != nil {
		slog.ErrorContext(r.Context(), "failed to save upload", "error", err, "path", path)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to save file", http.StatusInternalServerError)
		return
	}

	item, err := h.service.RegisterFile(r.Context(), path, base)
	if err != nil {
		if removeErr := os.Remove(path); removeErr != nil {
			slog.WarnContext(r.Context(), "failed to clean up uploaded file", "error", removeErr, "path", path)
		}
		h.writeServiceError(r.Context(), w, err)
		return
	}

	h.writeJSON(r.Context(), w, http.StatusCreated, map[string]interface{}{"data": item})
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path) // #nosec G304 -- path is uuid + basename under the upload dir
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

func (h *Handler) AddLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "URL is required", http.StatusBadRequest)
		return
	}

	item, err := h.service.RegisterLink(r.Context(), req.URL)
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusCreated, map[string]interface{}{"data": item})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items := h.service.List(r.Context())
	h.writeJSON(r.Context(), w, http.StatusOK, map[string]interface{}{
		"data": items,
		"meta": map[string]int{"count": len(items)},
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, map[string]interface{}{"data": item})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, map[string]interface{}{"data": "item deleted"})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Query is required", http.StatusBadRequest)
		return
	}

	results := h.service.Search(r.Context(), req.Query, req.Limit)
	if results == nil {
		results = []retrieval.Result{}
	}
	h.writeJSON(r.Context(), w, http.StatusOK, map[string]interface{}{
		"data": results,
		"meta": map[string]int{"count": len(results)},
	})
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var storageErr *StorageError
	switch {
	case errors.Is(err, ErrInvalidInput):
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		h.writeError(ctx, w, "NOT_FOUND", "Item not found", http.StatusNotFound)
	case errors.As(err, &storageErr):
		slog.ErrorContext(ctx, "library storage failure", "error", err)
		h.writeError(ctx, w, "STORAGE_ERROR", "Failed to persist library", http.StatusInternalServerError)
	default:
		slog.ErrorContext(ctx, "operation failed", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	h.writeJSON(ctx, w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	})
}
