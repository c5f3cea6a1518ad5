package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/psa231093/fbrelay/internal/domain"
	"github.com/psa231093/fbrelay/internal/extractor"
	"github.com/psa231093/fbrelay/internal/repository"
	"github.com/psa231093/fbrelay/internal/service"
)

// UploadHandler handles direct upload and preview requests.
type UploadHandler struct {
	relaySvc    *service.RelayService
	extractor   extractor.Extractor
	historyRepo repository.HistoryRepository
	downloadDir string
	logger      *slog.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(
	relaySvc *service.RelayService,
	ext extractor.Extractor,
	historyRepo repository.HistoryRepository,
	downloadDir string,
	logger *slog.Logger,
) *UploadHandler {
	return &UploadHandler{
		relaySvc:    relaySvc,
		extractor:   ext,
		historyRepo: historyRepo,
		downloadDir: downloadDir,
		logger:      logger,
	}
}

// PreviewRequest is the JSON request body for an upload preview.
type PreviewRequest struct {
	URL         string `json:"url"`
	CookiesFile string `json:"cookies_file,omitempty"`
}

// UploadRequest is the JSON request body for a direct upload.
type UploadRequest struct {
	// File is a filename relative to the download directory, or an absolute
	// path inside it.
	File        string `json:"file"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// UploadHistoryEntry is one upload outcome in the history listing.
type UploadHistoryEntry struct {
	ID           int64     `json:"id"`
	FilePath     string    `json:"file_path"`
	Title        string    `json:"title,omitempty"`
	Success      bool      `json:"success"`
	VideoID      string    `json:"video_id,omitempty"`
	PermalinkURL string    `json:"permalink_url,omitempty"`
	Stage        string    `json:"stage,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// HistoryResponse contains a paginated upload history.
type HistoryResponse struct {
	Uploads []UploadHistoryEntry `json:"uploads"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
}

// Preview handles POST /api/v1/uploads/preview
func (h *UploadHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "missing url")
		return
	}

	info, err := h.extractor.Probe(r.Context(), req.URL, req.CookiesFile)
	if err != nil {
		h.logger.Error("preview failed", "url", req.URL, "error", err)
		writeError(w, http.StatusBadGateway, "failed to resolve video metadata")
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// Upload handles POST /api/v1/uploads
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.File == "" {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}

	path, ok := resolveWithin(h.downloadDir, req.File)
	if !ok {
		writeError(w, http.StatusBadRequest, "file is outside the download directory")
		return
	}

	result, err := h.relaySvc.UploadFile(r.Context(), path, req.Title, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrFileNotFound):
			writeError(w, http.StatusNotFound, "file not found")
		case errors.Is(err, domain.ErrFileTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
		case errors.Is(err, domain.ErrAuth):
			writeError(w, http.StatusBadGateway, "access token rejected")
		case errors.Is(err, domain.ErrQuota):
			writeError(w, http.StatusBadGateway, "upload quota exceeded")
		default:
			h.logger.Error("upload failed", "path", path, "error", err)
			writeError(w, http.StatusBadGateway, "upload failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, toUploadResultResponse(result))
}

// History handles GET /api/v1/history
func (h *UploadHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	records, err := h.historyRepo.ListUploads(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("history failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list uploads")
		return
	}

	resp := HistoryResponse{
		Uploads: make([]UploadHistoryEntry, 0, len(records)),
		Limit:   limit,
		Offset:  offset,
	}
	for _, rec := range records {
		resp.Uploads = append(resp.Uploads, UploadHistoryEntry{
			ID:           rec.ID,
			FilePath:     rec.FilePath,
			Title:        rec.Title,
			Success:      rec.Success,
			VideoID:      rec.VideoID,
			PermalinkURL: rec.PermalinkURL,
			Stage:        string(rec.Stage),
			Error:        rec.Error,
			CreatedAt:    rec.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// resolveWithin joins name onto dir and rejects any result that escapes dir.
func resolveWithin(dir, name string) (string, bool) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	path = filepath.Clean(path)

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}

	rel, err := filepath.Rel(absDir, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return absPath, true
}
