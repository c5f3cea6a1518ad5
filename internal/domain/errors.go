package domain

import "errors"

// Domain errors.
var (
	// ErrAuth is returned when the Graph API rejects the access token.
	// Fatal: the user must reconfigure credentials, no retry helps.
	ErrAuth = errors.New("facebook access token rejected")

	// ErrQuota is returned when the Graph API reports a rate/usage limit.
	ErrQuota = errors.New("facebook quota exceeded")

	// ErrTransfer is returned when a chunk transfer fails transiently.
	// Retryable: the caller resumes from the last reported offset.
	ErrTransfer = errors.New("chunk transfer failed")

	// ErrIncompleteUpload is returned when publish is attempted before all
	// declared bytes were transferred. This is an ordering bug, never retried.
	ErrIncompleteUpload = errors.New("publish attempted before transfer complete")

	// ErrSessionClosed is returned when an upload session is reused after publish.
	ErrSessionClosed = errors.New("upload session already published")

	// ErrDownload is returned when the extractor fails to produce a file.
	ErrDownload = errors.New("video download failed")

	// ErrFileTooLarge is returned when a downloaded file exceeds the upload ceiling.
	ErrFileTooLarge = errors.New("file exceeds upload size limit")

	// ErrInvalidURL is returned when the submitted video URL is empty or malformed.
	ErrInvalidURL = errors.New("invalid video URL")

	// ErrJobNotFound is returned when a job cannot be found.
	ErrJobNotFound = errors.New("job not found")

	// ErrNoJobs is returned when there are no jobs to process.
	ErrNoJobs = errors.New("no jobs available")

	// ErrFileNotFound is returned when a downloaded file cannot be found.
	ErrFileNotFound = errors.New("downloaded file not found")

	// ErrPostNotFound is returned when a scheduled post cannot be found.
	ErrPostNotFound = errors.New("scheduled post not found")
)

// Stage identifies the pipeline step an error belongs to.
type Stage string

const (
	StageDownload  Stage = "download"
	StageSizeCheck Stage = "size_check"
	StageInit      Stage = "init"
	StageTransfer  Stage = "transfer"
	StagePublish   Stage = "publish"
)

// StageError tags an error with the pipeline stage that produced it,
// so callers can decide whether to retry just that stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a new StageError.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// StageOf extracts the stage tag from err, or returns fallback when err
// carries no tag.
func StageOf(err error, fallback Stage) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return fallback
}
