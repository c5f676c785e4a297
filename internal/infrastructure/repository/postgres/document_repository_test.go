package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/openclinic/docpipeline/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestCreateReturnsGeneratedID(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("INSERT INTO processed_documents").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("doc-1"))

	id, err := repo.Create(context.Background(), &domain.ProcessedDocument{
		FileName:    "note.txt",
		ContentHash: "abc",
		TherapistID: "t-1",
		StoragePath: "docs/abc.txt",
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id != "doc-1" {
		t.Fatalf("id = %s, want doc-1", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateConflictResolvesToExistingID(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	// The upsert returns the id of the row that already owns the hash.
	mock.ExpectQuery("INSERT INTO processed_documents").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-doc"))

	id, err := repo.Create(context.Background(), &domain.ProcessedDocument{
		ID:          "new-doc",
		FileName:    "copy.txt",
		ContentHash: "samehash",
		TherapistID: "t-1",
		StoragePath: "docs/samehash.txt",
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id != "existing-doc" {
		t.Fatalf("id = %s, want existing-doc", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, file_name, content_hash").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDUnmarshalsJSONColumns(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	created := time.Now().UTC().Truncate(time.Second)
	rows := sqlmock.NewRows([]string{
		"id", "file_name", "content_hash", "original_size", "stored_size", "compressed", "compression_ratio",
		"extracted_text", "summary", "tags", "keywords", "category", "therapist_id", "client_id",
		"storage_path", "page_count", "created_at",
	}).AddRow(
		"doc-1", "note.pdf", "abc", int64(1000), int64(400), true, 0.4,
		"body text", "short summary", []byte(`["anxiety","intake"]`), []byte(`["cbt"]`), "clinical", "t-1", "c-1",
		"docs/abc.pdf.gz", 3, created,
	)

	mock.ExpectQuery("SELECT id, file_name, content_hash").
		WithArgs("doc-1").
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.ID != "doc-1" || !doc.Compressed || doc.PageCount != 3 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if len(doc.Tags) != 2 || doc.Tags[0] != "anxiety" {
		t.Fatalf("tags = %v", doc.Tags)
	}
	if len(doc.Keywords) != 1 || doc.Keywords[0] != "cbt" {
		t.Fatalf("keywords = %v", doc.Keywords)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
