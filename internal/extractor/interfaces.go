package extractor

import (
	"context"

	"github.com/psa231093/fbrelay/internal/domain"
)

// Request describes one extraction.
type Request struct {
	URL string

	// CookiesFile is an optional Netscape cookie jar for authenticated videos.
	CookiesFile string

	// OutputDir overrides the configured download directory when set.
	OutputDir string
}

// Extractor resolves video URLs into local media files.
type Extractor interface {
	// Extract downloads the media behind the URL and returns the produced file
	// with its metadata.
	Extract(ctx context.Context, req Request) (*domain.DownloadedFile, error)

	// Probe resolves metadata for the URL without downloading.
	Probe(ctx context.Context, url, cookiesFile string) (*domain.VideoInfo, error)
}
