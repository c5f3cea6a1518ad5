package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/psa231093/fbrelay/internal/domain"
	"github.com/psa231093/fbrelay/internal/repository"
)

// ScheduleHandler manages scheduled posts.
type ScheduleHandler struct {
	repo        repository.ScheduleRepository
	downloadDir string
	logger      *slog.Logger
}

// NewScheduleHandler creates a new schedule handler.
func NewScheduleHandler(repo repository.ScheduleRepository, downloadDir string, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		repo:        repo,
		downloadDir: downloadDir,
		logger:      logger,
	}
}

// ScheduleRequest is the JSON request body for scheduling a post.
type ScheduleRequest struct {
	File        string `json:"file"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ScheduledAt string `json:"scheduled_at"`
}

// ScheduledPostResponse represents a scheduled post.
type ScheduledPostResponse struct {
	ID           int64     `json:"id"`
	FilePath     string    `json:"file_path"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Status       string    `json:"status"`
	VideoID      string    `json:"video_id,omitempty"`
	PermalinkURL string    `json:"permalink_url,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ScheduleListResponse contains a paginated schedule listing.
type ScheduleListResponse struct {
	Posts  []ScheduledPostResponse `json:"posts"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

// Create handles POST /api/v1/schedule
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.File == "" || req.Title == "" {
		writeError(w, http.StatusBadRequest, "file and title are required")
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "scheduled_at must be RFC 3339")
		return
	}

	path, ok := resolveWithin(h.downloadDir, req.File)
	if !ok {
		writeError(w, http.StatusBadRequest, "file is outside the download directory")
		return
	}
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	post, err := h.repo.Create(r.Context(), &domain.ScheduledPost{
		FilePath:    path,
		Title:       req.Title,
		Description: req.Description,
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		h.logger.Error("schedule create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to schedule post")
		return
	}

	writeJSON(w, http.StatusCreated, toScheduledPostResponse(post))
}

// List handles GET /api/v1/schedule
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	posts, err := h.repo.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("schedule list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list scheduled posts")
		return
	}

	resp := ScheduleListResponse{
		Posts:  make([]ScheduledPostResponse, 0, len(posts)),
		Limit:  limit,
		Offset: offset,
	}
	for _, post := range posts {
		resp.Posts = append(resp.Posts, toScheduledPostResponse(post))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /api/v1/schedule/{id}
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrPostNotFound) {
			writeError(w, http.StatusNotFound, "scheduled post not found")
			return
		}
		h.logger.Error("schedule delete failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete scheduled post")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toScheduledPostResponse(post *domain.ScheduledPost) ScheduledPostResponse {
	return ScheduledPostResponse{
		ID:           post.ID,
		FilePath:     post.FilePath,
		Title:        post.Title,
		Description:  post.Description,
		ScheduledAt:  post.ScheduledAt,
		Status:       string(post.Status),
		VideoID:      post.VideoID,
		PermalinkURL: post.PermalinkURL,
		Error:        post.Error,
		CreatedAt:    post.CreatedAt,
	}
}
