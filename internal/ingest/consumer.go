package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/nsqio/go-nsq"

	"securerag/backend/internal/middleware"
	"securerag/backend/internal/text"
	"securerag/backend/internal/vector"
)

// Consumer processes one upload notification per delivery:
// download the blob, extract text, chunk, embed, upsert.
//
// Returning nil acks the message; returning an error nacks it and NSQ
// redelivers. Unfixable input (bad JSON, missing fields) is acked after
// logging so it cannot loop forever; every dependency failure is
// returned so the at-least-once redelivery retries it. Duplicate
// deliveries are safe because the upsert key is deterministic.
type Consumer struct {
	blobs     BlobStore
	extractor Extractor
	embedder  Embedder
	store     ChunkStore
	documents DocumentStatusUpdater

	chunkSize    int
	chunkOverlap int
	stepTimeout  time.Duration
}

func NewConsumer(
	blobs BlobStore,
	extractor Extractor,
	embedder Embedder,
	store ChunkStore,
	documents DocumentStatusUpdater,
	chunkSize, chunkOverlap int,
	stepTimeout time.Duration,
) *Consumer {
	return &Consumer{
		blobs:        blobs,
		extractor:    extractor,
		embedder:     embedder,
		store:        store,
		documents:    documents,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		stepTimeout:  stepTimeout,
	}
}

func (c *Consumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var n UploadNotification
	if err := json.Unmarshal(m.Body, &n); err != nil {
		// Poison pill: invalid JSON, don't retry
		slog.Error("poison pill: invalid notification json", "error", err)
		return nil
	}

	ctx := context.Background()
	if n.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, n.CorrelationID)
	}

	if n.Filename == "" || n.BlobURI == "" {
		slog.ErrorContext(ctx, "notification missing required fields, dropping",
			"filename", n.Filename, "gcs_uri", n.BlobURI)
		c.updateStatus(ctx, n.DocumentID, "failed")
		return nil
	}

	slog.InfoContext(ctx, "processing upload", "filename", n.Filename, "gcs_uri", n.BlobURI, "size_bytes", n.SizeBytes)
	c.updateStatus(ctx, n.DocumentID, "processing")

	// Download
	fetchCtx, cancel := context.WithTimeout(ctx, c.stepTimeout)
	defer cancel()
	data, err := c.blobs.Fetch(fetchCtx, n.BlobURI)
	if err != nil {
		slog.ErrorContext(ctx, "blob fetch failed", "error", err, "gcs_uri", n.BlobURI)
		return err // Retry
	}

	// Extract
	extractCtx, cancel := context.WithTimeout(ctx, c.stepTimeout)
	defer cancel()
	extracted, err := c.extractor.Extract(extractCtx, n.Filename, data)
	if err != nil {
		slog.ErrorContext(ctx, "text extraction failed", "error", err, "filename", n.Filename)
		return err // Retry
	}

	// A document with no extractable text is a successful no-op.
	if strings.TrimSpace(extracted) == "" {
		slog.InfoContext(ctx, "document yielded no extractable text", "filename", n.Filename)
		c.updateStatus(ctx, n.DocumentID, "completed")
		return nil
	}

	// Chunk
	chunks, err := text.Chunk(extracted, c.chunkSize, c.chunkOverlap)
	if err != nil {
		// Parameters are validated at startup; reaching this means config
		// drift, and retrying the same message cannot fix it.
		slog.ErrorContext(ctx, "chunking failed, dropping", "error", err, "filename", n.Filename)
		c.updateStatus(ctx, n.DocumentID, "failed")
		return nil
	}

	// Embed
	embedCtx, cancel := context.WithTimeout(ctx, c.stepTimeout)
	defer cancel()
	vectors, err := c.embedder.EmbedBatch(embedCtx, chunks)
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err, "filename", n.Filename, "chunks", len(chunks))
		return err // Retry
	}

	// Store
	records := make([]vector.Record, len(chunks))
	for i, content := range chunks {
		records[i] = vector.Record{
			ChunkID:    vector.ChunkID(n.Filename, i),
			Content:    content,
			Filename:   n.Filename,
			ChunkIndex: i,
			Vector:     vectors[i],
		}
	}

	storeCtx, cancel := context.WithTimeout(ctx, c.stepTimeout)
	defer cancel()
	if err := c.store.Upsert(storeCtx, records); err != nil {
		slog.ErrorContext(ctx, "chunk upsert failed", "error", err, "filename", n.Filename)
		return err // Retry
	}

	c.updateStatus(ctx, n.DocumentID, "completed")
	slog.InfoContext(ctx, "document ingested", "filename", n.Filename, "chunks", len(records))
	return nil
}

// updateStatus is best effort: the registry is observability, not the
// source of truth, and a failed update must not fail the message.
func (c *Consumer) updateStatus(ctx context.Context, id, status string) {
	if id == "" || c.documents == nil {
		return
	}
	if err := c.documents.UpdateStatus(ctx, id, status); err != nil {
		slog.WarnContext(ctx, "failed to update document status", "error", err, "document_id", id, "status", status)
	}
}
