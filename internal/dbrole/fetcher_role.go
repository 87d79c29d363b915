// Package dbrole holds the two capability-restricted Postgres clients: the
// Fetcher role (EXECUTE-only on the claim procedure) and the Uploader role
// (UPDATE-only on a fixed column set). Each role opens its own connection
// pool, matching the "no other grants" boundary described by the stored
// procedure contract.
package dbrole

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// FetcherClient wraps the single capability the Fetcher role has: calling
// claim_pending_file_content. It never sees a failure path for a claimed
// row — that capability belongs to the Uploader role.
type FetcherClient struct {
	db *sql.DB
}

// ClaimedRow is one row returned by claim_pending_file_content.
type ClaimedRow struct {
	ContentHash string
	StoragePath string
	SizeBytes   int64
	TryCount    int
	FullPath    string
}

// NewFetcherClient opens a connection pool scoped to the fetcher role's DSN.
func NewFetcherClient(databaseURL string) (*FetcherClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("fetcher database URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open fetcher db: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping fetcher db: %w", err)
	}
	return &FetcherClient{db: db}, nil
}

// ClaimPending atomically claims up to n pending rows via the stored
// procedure, which performs the SELECT ... FOR UPDATE SKIP LOCKED, flips
// processing_status to 'indexing', bumps last_status_change, and commits
// before returning — releasing the row lock for other writers.
func (f *FetcherClient) ClaimPending(ctx context.Context, n int) ([]ClaimedRow, error) {
	rows, err := f.db.QueryContext(ctx, `SELECT content_hash, storage_path, size_bytes, try_count, full_path FROM claim_pending_file_content($1)`, n)
	if err != nil {
		return nil, fmt.Errorf("claim_pending_file_content: %w", err)
	}
	defer rows.Close()

	var claimed []ClaimedRow
	for rows.Next() {
		var r ClaimedRow
		if err := rows.Scan(&r.ContentHash, &r.StoragePath, &r.SizeBytes, &r.TryCount, &r.FullPath); err != nil {
			return nil, fmt.Errorf("scan claimed row: %w", err)
		}
		claimed = append(claimed, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claimed rows: %w", err)
	}
	return claimed, nil
}

// newFetcherClientWithDB wraps an already-open *sql.DB, used by tests to
// inject a sqlmock connection without dialing a real database.
func newFetcherClientWithDB(db *sql.DB) *FetcherClient {
	return &FetcherClient{db: db}
}

// Ping checks database connectivity.
func (f *FetcherClient) Ping(ctx context.Context) error {
	return f.db.PingContext(ctx)
}

// Close closes the connection pool.
func (f *FetcherClient) Close() error {
	if f.db != nil {
		return f.db.Close()
	}
	return nil
}
