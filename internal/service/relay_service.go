package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/psa231093/fbrelay/internal/config"
	"github.com/psa231093/fbrelay/internal/domain"
	"github.com/psa231093/fbrelay/internal/extractor"
	"github.com/psa231093/fbrelay/internal/repository"
)

// Uploader relays a local file to the Graph API. *uploader.Uploader satisfies
// it; tests substitute fakes.
type Uploader interface {
	Upload(ctx context.Context, path, title, description string) (*domain.UploadResult, error)
}

// RelayService orchestrates the download -> upload pipeline.
type RelayService struct {
	jobRepo     repository.JobRepository
	historyRepo repository.HistoryRepository
	extractor   extractor.Extractor
	uploader    Uploader
	fbCfg       config.FacebookConfig
	logger      *slog.Logger
}

// NewRelayService creates a new relay service.
func NewRelayService(
	jobRepo repository.JobRepository,
	historyRepo repository.HistoryRepository,
	ext extractor.Extractor,
	up Uploader,
	fbCfg config.FacebookConfig,
	logger *slog.Logger,
) *RelayService {
	return &RelayService{
		jobRepo:     jobRepo,
		historyRepo: historyRepo,
		extractor:   ext,
		uploader:    up,
		fbCfg:       fbCfg,
		logger:      logger,
	}
}

// SubmitRequest represents a video relay request.
type SubmitRequest struct {
	URL         string
	CookiesFile string
	TitlePrefix string
	Description string

	// AutoUpload overrides the configured default when set.
	AutoUpload *bool
}

// SubmitResponse is returned after submitting a relay job.
type SubmitResponse struct {
	JobID   domain.JobID
	Stage   domain.JobStage
	Message string
}

// BatchItem is the per-URL outcome of a batch submission.
type BatchItem struct {
	URL   string
	JobID domain.JobID
	Error string
}

// StatusResponse contains the current status of a relay job.
type StatusResponse struct {
	JobID       domain.JobID
	URL         string
	Stage       domain.JobStage
	FailedStage domain.Stage
	Error       string
	Progress    string
	File        *domain.DownloadedFile
	Upload      *domain.UploadResult
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Submit accepts a new relay request and queues it for processing.
func (s *RelayService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, domain.ErrInvalidURL
	}

	job := domain.NewJob(domain.JobID("job_"+uuid.New().String()[:8]), req.URL)
	job.CookiesFile = req.CookiesFile
	job.TitlePrefix = req.TitlePrefix
	job.Description = req.Description
	job.AutoUpload = s.fbCfg.AutoUpload
	if req.AutoUpload != nil {
		job.AutoUpload = *req.AutoUpload
	}

	if err := s.jobRepo.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	s.logger.Info("relay job submitted",
		"job_id", job.ID,
		"url", req.URL,
		"auto_upload", job.AutoUpload,
	)

	return &SubmitResponse{
		JobID:   job.ID,
		Stage:   job.Stage,
		Message: "Video queued for processing",
	}, nil
}

// SubmitBatch queues one job per URL. A URL that fails to queue does not
// stop the rest of the batch.
func (s *RelayService) SubmitBatch(ctx context.Context, urls []string, req SubmitRequest) []BatchItem {
	items := make([]BatchItem, 0, len(urls))
	for _, url := range urls {
		one := req
		one.URL = url

		resp, err := s.Submit(ctx, one)
		item := BatchItem{URL: url}
		if err != nil {
			item.Error = err.Error()
		} else {
			item.JobID = resp.JobID
		}
		items = append(items, item)
	}
	return items
}

// Process runs the full pipeline for one job: download, size check, then
// upload unless auto-upload is off. A failure marks the job failed at the
// stage that broke; later stages never run.
func (s *RelayService) Process(ctx context.Context, jobID domain.JobID) error {
	job, err := s.jobRepo.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	logger := s.logger.With("job_id", jobID)

	logger.Info("downloading video", "url", job.URL)
	job.MarkDownloading()
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	file, err := s.extractor.Extract(ctx, extractor.Request{
		URL:         job.URL,
		CookiesFile: job.CookiesFile,
	})
	if err != nil {
		return s.fail(ctx, job, domain.StageOf(err, domain.StageDownload), err)
	}

	job.MarkDownloaded(file)
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	if _, err := s.historyRepo.RecordDownload(ctx, file); err != nil {
		// History is advisory; the file is on disk either way.
		logger.Warn("failed to record download", "error", err)
	}

	if !job.AutoUpload {
		logger.Info("auto-upload disabled, job rests at downloaded",
			"path", file.Path,
		)
		return nil
	}

	if s.fbCfg.MaxFileSize > 0 && file.SizeBytes > s.fbCfg.MaxFileSize {
		err := fmt.Errorf("%w: %d bytes exceeds limit of %d",
			domain.ErrFileTooLarge, file.SizeBytes, s.fbCfg.MaxFileSize)
		return s.fail(ctx, job, domain.StageSizeCheck, err)
	}

	title, description := s.composeMetadata(job, file)

	logger.Info("uploading video", "path", file.Path, "title", title)
	job.MarkUploading()
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	result, uploadErr := s.uploader.Upload(ctx, file.Path, title, description)
	s.recordUpload(ctx, file.Path, title, description, result, uploadErr)
	if uploadErr != nil {
		return s.fail(ctx, job, domain.StageOf(uploadErr, domain.StageTransfer), uploadErr)
	}

	job.MarkPublished(result)
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	logger.Info("video published",
		"video_id", result.VideoID,
		"permalink", result.PermalinkURL,
	)
	return nil
}

// UploadFile relays an already-downloaded file without a queue job. Used for
// re-uploads from the download history.
func (s *RelayService) UploadFile(ctx context.Context, path, title, description string) (*domain.UploadResult, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
	}
	if s.fbCfg.MaxFileSize > 0 && stat.Size() > s.fbCfg.MaxFileSize {
		return nil, domain.NewStageError(domain.StageSizeCheck,
			fmt.Errorf("%w: %d bytes exceeds limit of %d",
				domain.ErrFileTooLarge, stat.Size(), s.fbCfg.MaxFileSize))
	}

	if title == "" {
		title = s.fbCfg.DefaultTitlePrefix + strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if description == "" {
		description = s.fbCfg.DefaultDescription
	}

	result, uploadErr := s.uploader.Upload(ctx, path, title, description)
	s.recordUpload(ctx, path, title, description, result, uploadErr)
	return result, uploadErr
}

// GetStatus returns the current processing status of a job.
func (s *RelayService) GetStatus(ctx context.Context, jobID domain.JobID) (*StatusResponse, error) {
	job, err := s.jobRepo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	progress := ""
	switch job.Stage {
	case domain.JobPending:
		progress = "Waiting in queue"
	case domain.JobDownloading:
		progress = "Downloading video"
	case domain.JobDownloaded:
		progress = "Downloaded"
	case domain.JobUploading:
		progress = "Uploading to Facebook"
	case domain.JobPublished:
		progress = "Published"
	case domain.JobFailed:
		progress = "Failed"
	}

	return &StatusResponse{
		JobID:       job.ID,
		URL:         job.URL,
		Stage:       job.Stage,
		FailedStage: job.FailedStage,
		Error:       job.Error,
		Progress:    progress,
		File:        job.File,
		Upload:      job.Upload,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}, nil
}

// List returns relay jobs, newest first.
func (s *RelayService) List(ctx context.Context, limit, offset int) ([]*domain.Job, error) {
	return s.jobRepo.List(ctx, limit, offset)
}

// Stats returns queue statistics.
func (s *RelayService) Stats(ctx context.Context) (*repository.QueueStats, error) {
	return s.jobRepo.Stats(ctx)
}

func (s *RelayService) fail(ctx context.Context, job *domain.Job, stage domain.Stage, cause error) error {
	job.MarkFailed(stage, cause)
	if err := s.jobRepo.Update(ctx, job); err != nil {
		s.logger.Error("failed to persist job failure", "job_id", job.ID, "error", err)
	}

	s.logger.Error("relay job failed",
		"job_id", job.ID,
		"stage", stage,
		"error", cause,
	)
	return domain.NewStageError(stage, cause)
}

// composeMetadata resolves the publish title and description from job
// overrides, configured defaults, and the extracted video title.
func (s *RelayService) composeMetadata(job *domain.Job, file *domain.DownloadedFile) (string, string) {
	prefix := job.TitlePrefix
	if prefix == "" {
		prefix = s.fbCfg.DefaultTitlePrefix
	}

	title := file.Title
	if title == "" {
		title = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}
	title = prefix + title

	description := job.Description
	if description == "" {
		description = s.fbCfg.DefaultDescription
	}
	return title, description
}

func (s *RelayService) recordUpload(ctx context.Context, path, title, description string, result *domain.UploadResult, uploadErr error) {
	rec := &domain.UploadRecord{
		FilePath:    path,
		Title:       title,
		Description: description,
		Success:     uploadErr == nil,
	}
	if result != nil {
		rec.VideoID = result.VideoID
		rec.PermalinkURL = result.PermalinkURL
	}
	if uploadErr != nil {
		rec.Stage = domain.StageOf(uploadErr, domain.StageTransfer)
		rec.Error = uploadErr.Error()
	}

	if err := s.historyRepo.RecordUpload(ctx, rec); err != nil {
		s.logger.Warn("failed to record upload", "path", path, "error", err)
	}
}
