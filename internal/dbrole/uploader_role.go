package dbrole

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// UploaderClient wraps the single capability the Uploader role has: UPDATE
// on a fixed set of columns, restricted to one row by content_hash.
type UploaderClient struct {
	db *sql.DB
}

// ResultUpdate is the payload written back on a successful `.done`.
type ResultUpdate struct {
	ContentHash          string
	ThumbnailPath        string
	ExtractedText        string
	ThumbnailGeneratedAt time.Time
}

// NewUploaderClient opens a connection pool scoped to the uploader role's DSN.
func NewUploaderClient(databaseURL string) (*UploaderClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("uploader database URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open uploader db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping uploader db: %w", err)
	}
	return &UploaderClient{db: db}, nil
}

// MarkDone writes the successful outcome. Restricted by role grant to
// exactly the columns named in spec: processing_status, thumbnail_path,
// thumbnail_generated_at, extracted_text, try_count, last_status_change,
// db_updated_at.
func (u *UploaderClient) MarkDone(ctx context.Context, r ResultUpdate) error {
	const query = `
		UPDATE file_contents SET
			processing_status = 'done',
			thumbnail_path = NULLIF($2, ''),
			thumbnail_generated_at = $3,
			extracted_text = NULLIF($4, ''),
			last_status_change = NOW(),
			db_updated_at = NOW()
		WHERE content_hash = $1
	`
	res, err := u.db.ExecContext(ctx, query, r.ContentHash, r.ThumbnailPath, r.ThumbnailGeneratedAt, r.ExtractedText)
	if err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	return checkRowsAffected(res, r.ContentHash)
}

// MarkFailed bumps try_count and sets the next status per the state
// machine: error if the bumped try_count >= maxRetries, otherwise pending.
// The increment and the threshold comparison both happen in SQL so the
// update-only role never needs a SELECT to learn the prior try_count.
func (u *UploaderClient) MarkFailed(ctx context.Context, contentHash string, maxRetries int) (newTryCount int, nextStatus string, err error) {
	const query = `
		UPDATE file_contents SET
			try_count = try_count + 1,
			processing_status = CASE WHEN try_count + 1 >= $2 THEN 'error' ELSE 'pending' END,
			last_status_change = NOW(),
			db_updated_at = NOW()
		WHERE content_hash = $1
		RETURNING try_count, processing_status
	`
	if scanErr := u.db.QueryRowContext(ctx, query, contentHash, maxRetries).Scan(&newTryCount, &nextStatus); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return 0, "", fmt.Errorf("no row matched content_hash=%s", contentHash)
		}
		return 0, "", fmt.Errorf("mark failed: %w", scanErr)
	}
	return newTryCount, nextStatus, nil
}

// newUploaderClientWithDB wraps an already-open *sql.DB, used by tests to
// inject a sqlmock connection without dialing a real database.
func newUploaderClientWithDB(db *sql.DB) *UploaderClient {
	return &UploaderClient{db: db}
}

func checkRowsAffected(res sql.Result, contentHash string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no row matched content_hash=%s", contentHash)
	}
	return nil
}

// Ping checks database connectivity.
func (u *UploaderClient) Ping(ctx context.Context) error {
	return u.db.PingContext(ctx)
}

// Close closes the connection pool.
func (u *UploaderClient) Close() error {
	if u.db != nil {
		return u.db.Close()
	}
	return nil
}
