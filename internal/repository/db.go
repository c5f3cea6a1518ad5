package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// OpenDB opens (and migrates) the SQLite database backing the history and
// schedule repositories.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows a single writer; serializing through one connection
	// avoids SQLITE_BUSY under concurrent workers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS downloaded_files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_path TEXT NOT NULL UNIQUE,
			filename TEXT NOT NULL,
			source_url TEXT,
			title TEXT,
			size_bytes INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'downloaded',
			fb_video_id TEXT,
			fb_url TEXT,
			created_at DATETIME NOT NULL,
			uploaded_at DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_files_created ON downloaded_files(created_at);
		CREATE INDEX IF NOT EXISTS idx_files_status ON downloaded_files(status);

		CREATE TABLE IF NOT EXISTS upload_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_path TEXT NOT NULL,
			title TEXT,
			description TEXT,
			success INTEGER NOT NULL,
			fb_video_id TEXT,
			fb_url TEXT,
			stage TEXT,
			error TEXT,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_uploads_created ON upload_history(created_at);

		CREATE TABLE IF NOT EXISTS scheduled_posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_path TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			scheduled_at DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			fb_video_id TEXT,
			fb_url TEXT,
			error TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_posts_due ON scheduled_posts(status, scheduled_at);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}
