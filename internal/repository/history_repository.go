package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/psa231093/fbrelay/internal/domain"
)

// SQLiteHistoryRepository implements HistoryRepository on SQLite.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a history repository over an open database.
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// RecordDownload inserts (or refreshes) the record for a downloaded file.
func (r *SQLiteHistoryRepository) RecordDownload(ctx context.Context, file *domain.DownloadedFile) (*domain.FileRecord, error) {
	now := file.DownloadedAt
	if now.IsZero() {
		now = time.Now()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO downloaded_files (file_path, filename, source_url, title, size_bytes, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			filename = excluded.filename,
			source_url = excluded.source_url,
			title = excluded.title,
			size_bytes = excluded.size_bytes,
			status = excluded.status,
			created_at = excluded.created_at`,
		file.Path, file.Filename, file.SourceURL, file.Title, file.SizeBytes,
		string(domain.FileDownloaded), now,
	)
	if err != nil {
		return nil, fmt.Errorf("record download: %w", err)
	}

	id, _ := res.LastInsertId()
	return &domain.FileRecord{
		ID:        id,
		Path:      file.Path,
		Filename:  file.Filename,
		SourceURL: file.SourceURL,
		Title:     file.Title,
		SizeBytes: file.SizeBytes,
		Status:    domain.FileDownloaded,
		CreatedAt: now,
	}, nil
}

// RecordUpload appends an upload outcome and, on success, marks the file
// record uploaded.
func (r *SQLiteHistoryRepository) RecordUpload(ctx context.Context, rec *domain.UploadRecord) error {
	now := rec.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO upload_history (file_path, title, description, success, fb_video_id, fb_url, stage, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FilePath, rec.Title, rec.Description, rec.Success,
		rec.VideoID, rec.PermalinkURL, string(rec.Stage), rec.Error, now,
	); err != nil {
		return fmt.Errorf("record upload: %w", err)
	}

	status := domain.FileUploadFailed
	if rec.Success {
		status = domain.FileUploaded
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE downloaded_files
		SET status = ?, fb_video_id = ?, fb_url = ?, uploaded_at = ?
		WHERE file_path = ?`,
		string(status), rec.VideoID, rec.PermalinkURL, now, rec.FilePath,
	); err != nil {
		return fmt.Errorf("update file status: %w", err)
	}

	return tx.Commit()
}

// GetFile retrieves a file record by its path.
func (r *SQLiteHistoryRepository) GetFile(ctx context.Context, path string) (*domain.FileRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, file_path, filename, source_url, title, size_bytes, status,
		       COALESCE(fb_video_id, ''), COALESCE(fb_url, ''), created_at, uploaded_at
		FROM downloaded_files WHERE file_path = ?`, path)

	rec, err := scanFileRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrFileNotFound
	}
	return rec, err
}

// ListFiles returns downloaded files, newest first.
func (r *SQLiteHistoryRepository) ListFiles(ctx context.Context, limit, offset int) ([]*domain.FileRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, file_path, filename, source_url, title, size_bytes, status,
		       COALESCE(fb_video_id, ''), COALESCE(fb_url, ''), created_at, uploaded_at
		FROM downloaded_files
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var records []*domain.FileRecord
	for rows.Next() {
		rec, err := scanFileRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListUploads returns upload outcomes, newest first.
func (r *SQLiteHistoryRepository) ListUploads(ctx context.Context, limit, offset int) ([]*domain.UploadRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, file_path, COALESCE(title, ''), COALESCE(description, ''), success,
		       COALESCE(fb_video_id, ''), COALESCE(fb_url, ''), COALESCE(stage, ''),
		       COALESCE(error, ''), created_at
		FROM upload_history
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var records []*domain.UploadRecord
	for rows.Next() {
		rec := &domain.UploadRecord{}
		var stage string
		if err := rows.Scan(
			&rec.ID, &rec.FilePath, &rec.Title, &rec.Description, &rec.Success,
			&rec.VideoID, &rec.PermalinkURL, &stage, &rec.Error, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		rec.Stage = domain.Stage(stage)
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFileRecord(row rowScanner) (*domain.FileRecord, error) {
	rec := &domain.FileRecord{}
	var status string
	var uploadedAt sql.NullTime

	if err := row.Scan(
		&rec.ID, &rec.Path, &rec.Filename, &rec.SourceURL, &rec.Title,
		&rec.SizeBytes, &status, &rec.VideoID, &rec.PermalinkURL,
		&rec.CreatedAt, &uploadedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan file record: %w", err)
	}

	rec.Status = domain.FileStatus(status)
	if uploadedAt.Valid {
		rec.UploadedAt = &uploadedAt.Time
	}
	return rec, nil
}
