package domain

import "time"

// FileStatus is the upload state of a downloaded file.
type FileStatus string

const (
	FileDownloaded   FileStatus = "downloaded"
	FileUploaded     FileStatus = "uploaded"
	FileUploadFailed FileStatus = "upload_failed"
)

// FileRecord is the persisted record of a downloaded file.
type FileRecord struct {
	ID        int64
	Path      string
	Filename  string
	SourceURL string
	Title     string
	SizeBytes int64
	Status    FileStatus

	VideoID      string
	PermalinkURL string

	CreatedAt  time.Time
	UploadedAt *time.Time
}

// UploadRecord is the persisted outcome of one upload attempt.
type UploadRecord struct {
	ID          int64
	FilePath    string
	Title       string
	Description string
	Success     bool

	VideoID      string
	PermalinkURL string
	Stage        Stage
	Error        string

	CreatedAt time.Time
}
