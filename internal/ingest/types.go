package ingest

import (
	"context"

	"securerag/backend/internal/vector"
)

// UploadNotification is the queue payload describing one stored document.
type UploadNotification struct {
	Filename    string `json:"filename"`
	BlobURI     string `json:"gcs_uri"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`

	DocumentID    string `json:"document_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type BlobStore interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type ChunkStore interface {
	Upsert(ctx context.Context, records []vector.Record) error
}

type DocumentStatusUpdater interface {
	UpdateStatus(ctx context.Context, id, status string) error
}
