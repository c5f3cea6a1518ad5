package repository

import (
	"context"
	"time"

	"github.com/psa231093/fbrelay/internal/domain"
)

// JobRepository manages the in-process relay job queue.
type JobRepository interface {
	// Enqueue adds a job to the queue.
	Enqueue(ctx context.Context, job *domain.Job) error

	// Dequeue retrieves the next pending job (FIFO).
	Dequeue(ctx context.Context) (*domain.Job, error)

	// Update modifies job state.
	Update(ctx context.Context, job *domain.Job) error

	// Get retrieves a job by ID.
	Get(ctx context.Context, id domain.JobID) (*domain.Job, error)

	// List returns jobs, newest first.
	List(ctx context.Context, limit, offset int) ([]*domain.Job, error)

	// Stats returns queue statistics.
	Stats(ctx context.Context) (*QueueStats, error)
}

// QueueStats contains job queue statistics.
type QueueStats struct {
	Pending    int
	Active     int
	Downloaded int
	Published  int
	Failed     int
}

// HistoryRepository persists downloaded files and upload outcomes.
type HistoryRepository interface {
	// RecordDownload inserts (or refreshes) the record for a downloaded file.
	RecordDownload(ctx context.Context, file *domain.DownloadedFile) (*domain.FileRecord, error)

	// RecordUpload appends an upload outcome and, on success, marks the file
	// record uploaded.
	RecordUpload(ctx context.Context, rec *domain.UploadRecord) error

	// GetFile retrieves a file record by its path.
	GetFile(ctx context.Context, path string) (*domain.FileRecord, error)

	// ListFiles returns downloaded files, newest first.
	ListFiles(ctx context.Context, limit, offset int) ([]*domain.FileRecord, error)

	// ListUploads returns upload outcomes, newest first.
	ListUploads(ctx context.Context, limit, offset int) ([]*domain.UploadRecord, error)
}

// ScheduleRepository persists posts scheduled for future publishing.
type ScheduleRepository interface {
	// Create inserts a scheduled post and returns it with its id assigned.
	Create(ctx context.Context, post *domain.ScheduledPost) (*domain.ScheduledPost, error)

	// Due returns pending posts whose scheduled time has passed.
	Due(ctx context.Context, now time.Time) ([]*domain.ScheduledPost, error)

	// Update persists post state changes.
	Update(ctx context.Context, post *domain.ScheduledPost) error

	// Get retrieves a post by id.
	Get(ctx context.Context, id int64) (*domain.ScheduledPost, error)

	// List returns scheduled posts, soonest first.
	List(ctx context.Context, limit, offset int) ([]*domain.ScheduledPost, error)

	// Delete removes a post that has not been published yet.
	Delete(ctx context.Context, id int64) error
}
