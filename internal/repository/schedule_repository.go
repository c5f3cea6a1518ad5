package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/psa231093/fbrelay/internal/domain"
)

// SQLiteScheduleRepository implements ScheduleRepository on SQLite.
type SQLiteScheduleRepository struct {
	db *sql.DB
}

// NewSQLiteScheduleRepository creates a schedule repository over an open database.
func NewSQLiteScheduleRepository(db *sql.DB) *SQLiteScheduleRepository {
	return &SQLiteScheduleRepository{db: db}
}

// Create inserts a scheduled post and returns it with its id assigned.
func (r *SQLiteScheduleRepository) Create(ctx context.Context, post *domain.ScheduledPost) (*domain.ScheduledPost, error) {
	now := time.Now()
	post.Status = domain.PostPending
	post.CreatedAt = now
	post.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO scheduled_posts (file_path, title, description, scheduled_at, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.FilePath, post.Title, post.Description, post.ScheduledAt,
		string(post.Status), post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduled post: %w", err)
	}

	post.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("scheduled post id: %w", err)
	}
	return post, nil
}

// Due returns pending posts whose scheduled time has passed.
func (r *SQLiteScheduleRepository) Due(ctx context.Context, now time.Time) ([]*domain.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, file_path, title, COALESCE(description, ''), scheduled_at, status,
		       COALESCE(fb_video_id, ''), COALESCE(fb_url, ''), COALESCE(error, ''),
		       created_at, updated_at
		FROM scheduled_posts
		WHERE status = ? AND scheduled_at <= ?
		ORDER BY scheduled_at ASC`,
		string(domain.PostPending), now)
	if err != nil {
		return nil, fmt.Errorf("query due posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// Update persists post state changes.
func (r *SQLiteScheduleRepository) Update(ctx context.Context, post *domain.ScheduledPost) error {
	post.UpdatedAt = time.Now()

	res, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_posts
		SET status = ?, fb_video_id = ?, fb_url = ?, error = ?, updated_at = ?
		WHERE id = ?`,
		string(post.Status), post.VideoID, post.PermalinkURL, post.Error,
		post.UpdatedAt, post.ID,
	)
	if err != nil {
		return fmt.Errorf("update scheduled post: %w", err)
	}

	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return domain.ErrPostNotFound
	}
	return err
}

// Get retrieves a post by id.
func (r *SQLiteScheduleRepository) Get(ctx context.Context, id int64) (*domain.ScheduledPost, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, file_path, title, COALESCE(description, ''), scheduled_at, status,
		       COALESCE(fb_video_id, ''), COALESCE(fb_url, ''), COALESCE(error, ''),
		       created_at, updated_at
		FROM scheduled_posts WHERE id = ?`, id)

	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPostNotFound
	}
	return post, err
}

// List returns scheduled posts, soonest first.
func (r *SQLiteScheduleRepository) List(ctx context.Context, limit, offset int) ([]*domain.ScheduledPost, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, file_path, title, COALESCE(description, ''), scheduled_at, status,
		       COALESCE(fb_video_id, ''), COALESCE(fb_url, ''), COALESCE(error, ''),
		       created_at, updated_at
		FROM scheduled_posts
		ORDER BY scheduled_at ASC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list scheduled posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// Delete removes a post that has not been published yet.
func (r *SQLiteScheduleRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM scheduled_posts WHERE id = ? AND status != ?`,
		id, string(domain.PostPublished))
	if err != nil {
		return fmt.Errorf("delete scheduled post: %w", err)
	}

	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return domain.ErrPostNotFound
	}
	return err
}

func collectPosts(rows *sql.Rows) ([]*domain.ScheduledPost, error) {
	var posts []*domain.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func scanPost(row rowScanner) (*domain.ScheduledPost, error) {
	post := &domain.ScheduledPost{}
	var status string

	if err := row.Scan(
		&post.ID, &post.FilePath, &post.Title, &post.Description,
		&post.ScheduledAt, &status, &post.VideoID, &post.PermalinkURL,
		&post.Error, &post.CreatedAt, &post.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan scheduled post: %w", err)
	}

	post.Status = domain.PostStatus(status)
	return post, nil
}
