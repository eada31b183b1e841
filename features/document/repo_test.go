package document_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"securerag/backend/features/document"
)

func newRepo(t *testing.T) (*document.PostgresRepo, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	return document.NewPostgresRepo(db), mock, db
}

func TestPostgresRepo_Save(t *testing.T) {
	repo, mock, db := newRepo(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO documents (filename, gcs_uri, content_type, size_bytes, status) VALUES ($1, $2, $3, $4, $5) RETURNING id`)).
		WithArgs("report.pdf", "gs://bucket/abc.pdf", "application/pdf", int64(1234), "pending").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("doc-uuid-1"))

	doc := &document.Document{
		Filename:    "report.pdf",
		BlobURI:     "gs://bucket/abc.pdf",
		ContentType: "application/pdf",
		SizeBytes:   1234,
		Status:      document.StatusPending,
	}
	err := repo.Save(context.Background(), doc)
	assert.NoError(t, err)
	assert.Equal(t, "doc-uuid-1", doc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Get(t *testing.T) {
	repo, mock, db := newRepo(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "filename", "gcs_uri", "content_type", "size_bytes", "status", "created_at", "updated_at"}).
		AddRow("doc-1", "report.pdf", "gs://bucket/abc.pdf", "application/pdf", int64(1234), "completed", now, now)

	mock.ExpectQuery(`SELECT .+ FROM documents WHERE id = \$1 AND deleted_at IS NULL`).
		WithArgs("doc-1").
		WillReturnRows(rows)

	doc, err := repo.Get(context.Background(), "doc-1")
	assert.NoError(t, err)
	assert.Equal(t, "report.pdf", doc.Filename)
	assert.Equal(t, "completed", doc.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Get_NotFound(t *testing.T) {
	repo, mock, db := newRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM documents`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestPostgresRepo_List(t *testing.T) {
	repo, mock, db := newRepo(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "filename", "gcs_uri", "content_type", "size_bytes", "status", "created_at", "updated_at"}).
		AddRow("doc-1", "a.pdf", "gs://b/a.pdf", "application/pdf", int64(1), "pending", now, now).
		AddRow("doc-2", "b.pdf", "gs://b/b.pdf", "application/pdf", int64(2), "completed", now, now)

	mock.ExpectQuery(`SELECT .+ FROM documents WHERE deleted_at IS NULL ORDER BY created_at DESC`).
		WillReturnRows(rows)

	docs, err := repo.List(context.Background())
	assert.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, "a.pdf", docs[0].Filename)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_UpdateStatus(t *testing.T) {
	repo, mock, db := newRepo(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE documents SET status = \$1, updated_at = NOW\(\) WHERE id = \$2`).
		WithArgs("processing", "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "doc-1", document.StatusProcessing)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_SoftDelete(t *testing.T) {
	repo, mock, db := newRepo(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE documents SET deleted_at = NOW\(\) WHERE id = \$1`).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SoftDelete(context.Background(), "doc-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Count(t *testing.T) {
	repo, mock, db := newRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM documents WHERE deleted_at IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.Count(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 7, count)
}
