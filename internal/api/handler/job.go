package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/psa231093/fbrelay/internal/domain"
	"github.com/psa231093/fbrelay/internal/service"
)

// JobHandler handles relay job HTTP requests.
type JobHandler struct {
	relaySvc *service.RelayService
	logger   *slog.Logger
}

// NewJobHandler creates a new job handler.
func NewJobHandler(relaySvc *service.RelayService, logger *slog.Logger) *JobHandler {
	return &JobHandler{
		relaySvc: relaySvc,
		logger:   logger,
	}
}

// SubmitRequest is the JSON request body for job submission.
type SubmitRequest struct {
	URL         string `json:"url"`
	CookiesFile string `json:"cookies_file,omitempty"`
	TitlePrefix string `json:"title_prefix,omitempty"`
	Description string `json:"description,omitempty"`
	AutoUpload  *bool  `json:"auto_upload,omitempty"`
}

// BatchRequest is the JSON request body for batch submission. Options apply
// to every URL in the batch.
type BatchRequest struct {
	URLs        []string `json:"urls"`
	CookiesFile string   `json:"cookies_file,omitempty"`
	TitlePrefix string   `json:"title_prefix,omitempty"`
	Description string   `json:"description,omitempty"`
	AutoUpload  *bool    `json:"auto_upload,omitempty"`
}

// SubmitResponse is the JSON response after submission.
type SubmitResponse struct {
	JobID   string `json:"job_id"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// BatchItemResponse is the per-URL outcome in a batch response.
type BatchItemResponse struct {
	URL   string `json:"url"`
	JobID string `json:"job_id,omitempty"`
	Error string `json:"error,omitempty"`
}

// BatchResponse is the JSON response for a batch submission.
type BatchResponse struct {
	Jobs []BatchItemResponse `json:"jobs"`
}

// JobResponse represents a job in list/status responses.
type JobResponse struct {
	JobID       string                 `json:"job_id"`
	URL         string                 `json:"url"`
	Stage       string                 `json:"stage"`
	FailedStage string                 `json:"failed_stage,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Progress    string                 `json:"progress,omitempty"`
	File        *FileInfoResponse      `json:"file,omitempty"`
	Upload      *UploadResultResponse  `json:"upload,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// FileInfoResponse describes the downloaded media of a job.
type FileInfoResponse struct {
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	Title     string `json:"title,omitempty"`
}

// UploadResultResponse describes a published upload.
type UploadResultResponse struct {
	VideoID          string `json:"video_id"`
	PermalinkURL     string `json:"permalink_url,omitempty"`
	BytesTransferred int64  `json:"bytes_transferred"`
	Chunks           int    `json:"chunks"`
}

// ListResponse contains a paginated job list.
type ListResponse struct {
	Jobs   []JobResponse `json:"jobs"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// Submit handles POST /api/v1/jobs
func (h *JobHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.relaySvc.Submit(r.Context(), service.SubmitRequest{
		URL:         req.URL,
		CookiesFile: req.CookiesFile,
		TitlePrefix: req.TitlePrefix,
		Description: req.Description,
		AutoUpload:  req.AutoUpload,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, "invalid video URL")
			return
		}
		h.logger.Error("submit failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to submit job")
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		JobID:   string(result.JobID),
		Stage:   string(result.Stage),
		Message: result.Message,
	})
}

// SubmitBatch handles POST /api/v1/jobs/batch
func (h *JobHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "no URLs provided")
		return
	}

	items := h.relaySvc.SubmitBatch(r.Context(), req.URLs, service.SubmitRequest{
		CookiesFile: req.CookiesFile,
		TitlePrefix: req.TitlePrefix,
		Description: req.Description,
		AutoUpload:  req.AutoUpload,
	})

	resp := BatchResponse{Jobs: make([]BatchItemResponse, 0, len(items))}
	for _, item := range items {
		resp.Jobs = append(resp.Jobs, BatchItemResponse{
			URL:   item.URL,
			JobID: string(item.JobID),
			Error: item.Error,
		})
	}

	writeJSON(w, http.StatusAccepted, resp)
}

// List handles GET /api/v1/jobs
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	jobs, err := h.relaySvc.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	resp := ListResponse{
		Jobs:   make([]JobResponse, 0, len(jobs)),
		Limit:  limit,
		Offset: offset,
	}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(job))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/jobs/{jobID}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	status, err := h.relaySvc.GetStatus(r.Context(), domain.JobID(jobID))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("get failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	resp := JobResponse{
		JobID:       string(status.JobID),
		URL:         status.URL,
		Stage:       string(status.Stage),
		FailedStage: string(status.FailedStage),
		Error:       status.Error,
		Progress:    status.Progress,
		CreatedAt:   status.CreatedAt,
		UpdatedAt:   status.UpdatedAt,
	}
	if status.File != nil {
		resp.File = toFileInfoResponse(status.File)
	}
	if status.Upload != nil {
		resp.Upload = toUploadResultResponse(status.Upload)
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetStatus handles GET /api/v1/jobs/{jobID}/status
func (h *JobHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.Get(w, r) // Same implementation as Get
}

func toJobResponse(job *domain.Job) JobResponse {
	resp := JobResponse{
		JobID:       string(job.ID),
		URL:         job.URL,
		Stage:       string(job.Stage),
		FailedStage: string(job.FailedStage),
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
	if job.File != nil {
		resp.File = toFileInfoResponse(job.File)
	}
	if job.Upload != nil {
		resp.Upload = toUploadResultResponse(job.Upload)
	}
	return resp
}

func toFileInfoResponse(f *domain.DownloadedFile) *FileInfoResponse {
	return &FileInfoResponse{
		Filename:  f.Filename,
		Path:      f.Path,
		SizeBytes: f.SizeBytes,
		Title:     f.Title,
	}
}

func toUploadResultResponse(u *domain.UploadResult) *UploadResultResponse {
	return &UploadResultResponse{
		VideoID:          u.VideoID,
		PermalinkURL:     u.PermalinkURL,
		BytesTransferred: u.BytesTransferred,
		Chunks:           u.Chunks,
	}
}
