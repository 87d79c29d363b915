package dbrole

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestMarkDoneExecutesExpectedUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE file_contents SET`).
		WithArgs("abc123", "abc123.png", sqlmock.AnyArg(), "hello world").
		WillReturnResult(sqlmock.NewResult(0, 1))

	client := newUploaderClientWithDB(db)
	err = client.MarkDone(context.Background(), ResultUpdate{
		ContentHash:          "abc123",
		ThumbnailPath:        "abc123.png",
		ExtractedText:        "hello world",
		ThumbnailGeneratedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkDoneErrorsWhenNoRowMatched(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE file_contents SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	client := newUploaderClientWithDB(db)
	err = client.MarkDone(context.Background(), ResultUpdate{ContentHash: "missing"})
	if err == nil {
		t.Fatalf("expected an error when zero rows matched content_hash")
	}
}

func TestMarkFailedReturnsNextStatusFromSQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`UPDATE file_contents SET`).
		WithArgs("abc123", 3).
		WillReturnRows(sqlmock.NewRows([]string{"try_count", "processing_status"}).AddRow(3, "error"))

	client := newUploaderClientWithDB(db)
	tryCount, status, err := client.MarkFailed(context.Background(), "abc123", 3)
	if err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if tryCount != 3 || status != "error" {
		t.Fatalf("got (%d, %s), want (3, error)", tryCount, status)
	}
}

func TestMarkFailedStaysPendingUnderMaxRetries(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`UPDATE file_contents SET`).
		WithArgs("abc123", 3).
		WillReturnRows(sqlmock.NewRows([]string{"try_count", "processing_status"}).AddRow(1, "pending"))

	client := newUploaderClientWithDB(db)
	tryCount, status, err := client.MarkFailed(context.Background(), "abc123", 3)
	if err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if tryCount != 1 || status != "pending" {
		t.Fatalf("got (%d, %s), want (1, pending)", tryCount, status)
	}
}
