package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/psa231093/fbrelay/internal/domain"
	"github.com/psa231093/fbrelay/internal/repository"
)

// FileHandler serves the downloaded files directory.
type FileHandler struct {
	historyRepo repository.HistoryRepository
	downloadDir string
	logger      *slog.Logger
}

// NewFileHandler creates a new file handler.
func NewFileHandler(historyRepo repository.HistoryRepository, downloadDir string, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		historyRepo: historyRepo,
		downloadDir: downloadDir,
		logger:      logger,
	}
}

// FileEntry is one downloaded file in the listing.
type FileEntry struct {
	ID           int64      `json:"id"`
	Path         string     `json:"path"`
	Filename     string     `json:"filename"`
	SourceURL    string     `json:"source_url,omitempty"`
	Title        string     `json:"title,omitempty"`
	SizeBytes    int64      `json:"size_bytes"`
	Status       string     `json:"status"`
	VideoID      string     `json:"video_id,omitempty"`
	PermalinkURL string     `json:"permalink_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UploadedAt   *time.Time `json:"uploaded_at,omitempty"`
}

// FilesResponse contains a paginated file listing.
type FilesResponse struct {
	Files  []FileEntry `json:"files"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// List handles GET /api/v1/files
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	records, err := h.historyRepo.ListFiles(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list files failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list files")
		return
	}

	resp := FilesResponse{
		Files:  make([]FileEntry, 0, len(records)),
		Limit:  limit,
		Offset: offset,
	}
	for _, rec := range records {
		resp.Files = append(resp.Files, FileEntry{
			ID:           rec.ID,
			Path:         rec.Path,
			Filename:     rec.Filename,
			SourceURL:    rec.SourceURL,
			Title:        rec.Title,
			SizeBytes:    rec.SizeBytes,
			Status:       string(rec.Status),
			VideoID:      rec.VideoID,
			PermalinkURL: rec.PermalinkURL,
			CreatedAt:    rec.CreatedAt,
			UploadedAt:   rec.UploadedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Serve handles GET /api/v1/files/{name}
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing file name")
		return
	}

	path, ok := resolveWithin(h.downloadDir, name)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	// Record hits against history so the listing stays authoritative, but a
	// file on disk that predates the database is still servable.
	if _, err := h.historyRepo.GetFile(r.Context(), path); err != nil && !errors.Is(err, domain.ErrFileNotFound) {
		h.logger.Warn("history lookup failed", "path", path, "error", err)
	}

	http.ServeFile(w, r, path)
}
