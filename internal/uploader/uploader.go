// Package uploader drives the chunked upload protocol: one session per file,
// resumable transfers with bounded retries, publish only once every declared
// byte has been transferred.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/psa231093/fbrelay/internal/config"
	"github.com/psa231093/fbrelay/internal/domain"
	"github.com/psa231093/fbrelay/pkg/facebook"
)

// SessionAPI is the Graph API surface the uploader depends on.
// *facebook.Client satisfies it; tests substitute fakes.
type SessionAPI interface {
	// InitSession declares the total byte size and opens an upload session.
	InitSession(ctx context.Context, fileSize int64) (*facebook.Session, error)

	// TransferChunk sends bytes at startOffset and returns the next offset
	// the server expects.
	TransferChunk(ctx context.Context, sessionID string, startOffset int64, chunk io.Reader, filename string) (int64, error)

	// Publish finishes the session with title and description.
	Publish(ctx context.Context, sessionID, title, description string) error
}

// PermalinkBuilder is optionally implemented by the API client to resolve
// the public URL of a published video.
type PermalinkBuilder interface {
	PermalinkURL(videoID string) string
}

// Uploader uploads local files through a SessionAPI.
type Uploader struct {
	api       SessionAPI
	chunkSize int64
	retry     RetryConfig
	logger    *slog.Logger
}

// New creates an uploader with the configured chunk size and retry policy.
func New(api SessionAPI, cfg config.FacebookConfig, logger *slog.Logger) *Uploader {
	retry := DefaultRetryConfig()
	if cfg.TransferRetries > 0 {
		// TransferRetries counts retries after the first attempt.
		retry.MaxAttempts = cfg.TransferRetries + 1
	}
	if cfg.RetryDelay > 0 {
		retry.InitialDelay = cfg.RetryDelay
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 4 << 20
	}

	return &Uploader{
		api:       api,
		chunkSize: chunkSize,
		retry:     retry,
		logger:    logger,
	}
}

// session tracks transfer accounting for one upload session and enforces
// the ordering invariants: at most one in-flight transfer, publish only at
// completion, terminal after publish.
type session struct {
	id        string
	videoID   string
	declared  int64
	offset    int64
	chunks    int
	published bool
}

func (s *session) remaining() int64 {
	return s.declared - s.offset
}

// advance moves the offset to the server-reported next offset. A server that
// omits the offset is assumed to have consumed the whole chunk; a lower
// offset is a retransmission request and rewinds the session to it.
func (s *session) advance(next, chunkLen int64) {
	if next > 0 && next != s.offset {
		s.offset = next
	} else {
		s.offset += chunkLen
	}
	s.chunks++
}

// publishable reports whether publish is valid now.
func (s *session) publishable() error {
	if s.published {
		return domain.ErrSessionClosed
	}
	if s.offset != s.declared {
		return fmt.Errorf("%w: %d of %d bytes transferred", domain.ErrIncompleteUpload, s.offset, s.declared)
	}
	return nil
}

// Upload relays the file at path through init/transfer/publish. Errors carry
// the stage that failed so callers can retry just that stage.
func (u *Uploader) Upload(ctx context.Context, path, title, description string) (*domain.UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewStageError(domain.StageInit, fmt.Errorf("open file: %w", err))
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, domain.NewStageError(domain.StageInit, fmt.Errorf("stat file: %w", err))
	}
	size := stat.Size()
	filename := filepath.Base(path)

	logger := u.logger.With("file", filename, "size_bytes", size)

	remote, err := u.api.InitSession(ctx, size)
	if err != nil {
		return nil, domain.NewStageError(domain.StageInit, err)
	}

	st := &session{
		id:       remote.UploadSessionID,
		videoID:  remote.VideoID,
		declared: size,
		offset:   remote.StartOffset,
	}
	logger = logger.With("session_id", st.id, "video_id", st.videoID)
	logger.Info("upload session initialized", "start_offset", st.offset)

	for st.remaining() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewStageError(domain.StageTransfer, err)
		}
		if err := u.transferNext(ctx, st, f, filename); err != nil {
			return nil, domain.NewStageError(domain.StageTransfer, err)
		}
	}

	if err := st.publishable(); err != nil {
		return nil, domain.NewStageError(domain.StagePublish, err)
	}
	if err := u.api.Publish(ctx, st.id, title, description); err != nil {
		return nil, domain.NewStageError(domain.StagePublish, err)
	}
	st.published = true

	result := &domain.UploadResult{
		VideoID:          st.videoID,
		BytesTransferred: st.declared,
		Chunks:           st.chunks,
	}
	if pb, ok := u.api.(PermalinkBuilder); ok && st.videoID != "" {
		result.PermalinkURL = pb.PermalinkURL(st.videoID)
	}

	logger.Info("video published", "chunks", st.chunks)
	return result, nil
}

// transferNext sends one chunk at the session's current offset, retrying
// transient failures at the same offset. Auth and quota errors surface
// immediately with zero retries.
func (u *Uploader) transferNext(ctx context.Context, st *session, f *os.File, filename string) error {
	chunkLen := st.remaining()
	if chunkLen > u.chunkSize {
		chunkLen = u.chunkSize
	}
	offset := st.offset

	next, err := RetryWithCheck(ctx, u.retry, func() (int64, error) {
		// Re-read the same byte range on every attempt: resume happens at
		// the last offset the server acknowledged, never mid-chunk.
		chunk := io.NewSectionReader(f, offset, chunkLen)
		return u.api.TransferChunk(ctx, st.id, offset, chunk, filename)
	}, func(err error) bool {
		retryable := errors.Is(err, domain.ErrTransfer)
		if retryable {
			u.logger.Warn("chunk transfer failed, retrying at same offset",
				"session_id", st.id,
				"offset", offset,
				"error", err,
			)
		}
		return retryable
	})
	if err != nil {
		return err
	}

	st.advance(next, chunkLen)
	return nil
}
