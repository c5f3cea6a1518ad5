package domain

import "time"

// PostStatus is the lifecycle state of a scheduled post.
type PostStatus string

const (
	PostPending    PostStatus = "pending"
	PostProcessing PostStatus = "processing"
	PostPublished  PostStatus = "published"
	PostFailed     PostStatus = "failed"
)

// ScheduledPost is a downloaded file queued for publishing at a future time.
type ScheduledPost struct {
	ID          int64
	FilePath    string
	Title       string
	Description string
	ScheduledAt time.Time
	Status      PostStatus

	VideoID      string
	PermalinkURL string
	Error        string

	CreatedAt time.Time
	UpdatedAt time.Time
}
