package domain

import "time"

// DownloadedFile describes a media file produced by the extractor.
type DownloadedFile struct {
	Path          string
	Filename      string
	SizeBytes     int64
	Title         string
	DurationSecs  int
	ThumbnailPath string
	SourceURL     string
	DownloadedAt  time.Time
}

// VideoInfo is extractor metadata for a URL, resolved without downloading.
// It backs the upload preview flow.
type VideoInfo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	DurationSecs int    `json:"duration_seconds,omitempty"`
	Thumbnail    string `json:"thumbnail,omitempty"`
	Uploader     string `json:"uploader,omitempty"`
	WebpageURL   string `json:"webpage_url,omitempty"`
	SizeApprox   int64  `json:"filesize_approx,omitempty"`
}

// UploadResult is the outcome of a completed chunked upload.
type UploadResult struct {
	VideoID          string
	PermalinkURL     string
	BytesTransferred int64
	Chunks           int
}
