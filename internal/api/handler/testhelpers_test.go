package handler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/psa231093/fbrelay/internal/config"
	"github.com/psa231093/fbrelay/internal/domain"
	"github.com/psa231093/fbrelay/internal/extractor"
	"github.com/psa231093/fbrelay/internal/repository"
	"github.com/psa231093/fbrelay/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeExtractor struct {
	file     *domain.DownloadedFile
	info     *domain.VideoInfo
	err      error
	probeErr error
}

func (f *fakeExtractor) Extract(ctx context.Context, req extractor.Request) (*domain.DownloadedFile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.file, nil
}

func (f *fakeExtractor) Probe(ctx context.Context, url, cookiesFile string) (*domain.VideoInfo, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return f.info, nil
}

type fakeUploader struct {
	result *domain.UploadResult
	err    error

	mu    sync.Mutex
	calls int
}

func (f *fakeUploader) Upload(ctx context.Context, path, title, description string) (*domain.UploadResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeHistory struct {
	mu      sync.Mutex
	files   []*domain.FileRecord
	uploads []*domain.UploadRecord
}

func (f *fakeHistory) RecordDownload(ctx context.Context, file *domain.DownloadedFile) (*domain.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := &domain.FileRecord{
		ID:       int64(len(f.files) + 1),
		Path:     file.Path,
		Filename: file.Filename,
		Status:   domain.FileDownloaded,
	}
	f.files = append(f.files, rec)
	return rec, nil
}

func (f *fakeHistory) RecordUpload(ctx context.Context, rec *domain.UploadRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.ID = int64(len(f.uploads) + 1)
	f.uploads = append(f.uploads, rec)
	return nil
}

func (f *fakeHistory) GetFile(ctx context.Context, path string) (*domain.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.files {
		if rec.Path == path {
			return rec, nil
		}
	}
	return nil, domain.ErrFileNotFound
}

func (f *fakeHistory) ListFiles(ctx context.Context, limit, offset int) ([]*domain.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files, nil
}

func (f *fakeHistory) ListUploads(ctx context.Context, limit, offset int) ([]*domain.UploadRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads, nil
}

func newTestRelayService(t *testing.T, ext *fakeExtractor, up *fakeUploader, history *fakeHistory) *service.RelayService {
	t.Helper()

	return service.NewRelayService(
		repository.NewInMemoryJobRepository(),
		history,
		ext,
		up,
		config.FacebookConfig{
			AutoUpload:         true,
			MaxFileSize:        1 << 30,
			DefaultDescription: "Uploaded via fbrelay",
		},
		testLogger(),
	)
}
