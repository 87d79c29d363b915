package dbrole

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestClaimPendingScansRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"content_hash", "storage_path", "size_bytes", "try_count", "full_path"}).
		AddRow("abc123", "uploads/abc123", int64(4096), 0, "report.pdf")
	mock.ExpectQuery(`SELECT content_hash, storage_path, size_bytes, try_count, full_path FROM claim_pending_file_content\(\$1\)`).
		WithArgs(5).
		WillReturnRows(rows)

	client := newFetcherClientWithDB(db)
	claimed, err := client.ClaimPending(context.Background(), 5)
	if err != nil {
		t.Fatalf("ClaimPending: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ContentHash != "abc123" || claimed[0].FullPath != "report.pdf" {
		t.Fatalf("unexpected claimed rows: %+v", claimed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClaimPendingEmptyWhenNoRowsAvailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT content_hash`).
		WillReturnRows(sqlmock.NewRows([]string{"content_hash", "storage_path", "size_bytes", "try_count", "full_path"}))

	client := newFetcherClientWithDB(db)
	claimed, err := client.ClaimPending(context.Background(), 5)
	if err != nil {
		t.Fatalf("ClaimPending: %v", err)
	}
	if len(claimed) != 0 {
		t.Fatalf("expected zero rows on a concurrent lock-out, got %d", len(claimed))
	}
}
