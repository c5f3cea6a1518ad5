package domain

import (
	"time"
)

// JobID is a unique identifier for a relay job.
type JobID string

// String returns the string representation of the JobID.
func (id JobID) String() string {
	return string(id)
}

// JobStage represents the pipeline position of a relay job.
// Transitions are one-directional:
//
//	pending -> downloading -> downloaded -> uploading -> published
//
// with failed as the terminal state of any stage. No stage is skipped.
type JobStage string

const (
	JobPending     JobStage = "pending"
	JobDownloading JobStage = "downloading"
	JobDownloaded  JobStage = "downloaded"
	JobUploading   JobStage = "uploading"
	JobPublished   JobStage = "published"
	JobFailed      JobStage = "failed"
)

// Terminal reports whether the stage admits no further transitions.
func (s JobStage) Terminal() bool {
	return s == JobPublished || s == JobFailed
}

// Job represents one video relayed from a source URL to Facebook.
type Job struct {
	ID          JobID
	URL         string
	CookiesFile string
	TitlePrefix string
	Description string
	AutoUpload  bool

	Stage       JobStage
	FailedStage Stage
	Error       string

	File   *DownloadedFile
	Upload *UploadResult

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewJob creates a pending relay job for a video URL.
func NewJob(id JobID, url string) *Job {
	now := time.Now()
	return &Job{
		ID:        id,
		URL:       url,
		Stage:     JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkDownloading moves the job into the downloading stage.
func (j *Job) MarkDownloading() {
	j.advance(JobDownloading)
}

// MarkDownloaded records the extracted file and moves to downloaded.
func (j *Job) MarkDownloaded(f *DownloadedFile) {
	j.File = f
	j.advance(JobDownloaded)
}

// MarkUploading moves the job into the uploading stage.
func (j *Job) MarkUploading() {
	j.advance(JobUploading)
}

// MarkPublished records the upload result and terminates the job.
func (j *Job) MarkPublished(res *UploadResult) {
	j.Upload = res
	j.advance(JobPublished)
}

// MarkFailed terminates the job, recording the stage that broke.
func (j *Job) MarkFailed(stage Stage, err error) {
	j.FailedStage = stage
	if err != nil {
		j.Error = err.Error()
	}
	j.advance(JobFailed)
}

// Clone returns a copy that is safe to read while the original keeps
// advancing. The nested file and upload records are copied too.
func (j *Job) Clone() *Job {
	c := *j
	if j.File != nil {
		f := *j.File
		c.File = &f
	}
	if j.Upload != nil {
		u := *j.Upload
		c.Upload = &u
	}
	return &c
}

func (j *Job) advance(next JobStage) {
	if j.Stage.Terminal() {
		return
	}
	j.Stage = next
	j.UpdatedAt = time.Now()
}
