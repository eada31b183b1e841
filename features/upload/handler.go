package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"

	"securerag/backend/features/document"
	"securerag/backend/internal/config"
	"securerag/backend/internal/ingest"
	"securerag/backend/internal/middleware"
)

// BlobStore persists an uploaded file and returns its locator URI.
type BlobStore interface {
	Store(ctx context.Context, object, contentType string, data []byte) (string, error)
}

// Publisher hands the upload notification to the message queue.
// *nsq.Producer satisfies this.
type Publisher interface {
	Publish(topic string, body []byte) error
}

type Registry interface {
	Register(ctx context.Context, doc *document.Document) error
}

type Handler struct {
	blobs     BlobStore
	publisher Publisher
	registry  Registry
	maxBytes  int64
}

func NewHandler(blobs BlobStore, publisher Publisher, registry Registry, maxUploadMB int) *Handler {
	return &Handler{
		blobs:     blobs,
		publisher: publisher,
		registry:  registry,
		maxBytes:  int64(maxUploadMB) << 20,
	}
}

// Upload accepts a multipart PDF, stores the blob, registers the
// document row and publishes the ingestion notification. A publish
// failure is surfaced as 502; the blob and the row are kept, the
// document stays pending and the upload can be retried safely.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		h.writeError(ctx, w, "FILE_TOO_LARGE", fmt.Sprintf("Upload exceeds the %dMB limit", h.maxBytes>>20), http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(ctx, w, "INVALID_REQUEST", "Missing multipart field 'file'", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(ctx, w, "INVALID_REQUEST", "Failed to read uploaded file", http.StatusBadRequest)
		return
	}

	// Sniff the real content type; the client-declared header is not trusted.
	contentType := http.DetectContentType(data)
	if contentType != "application/pdf" {
		h.writeError(ctx, w, "UNSUPPORTED_MEDIA_TYPE", "Only PDF uploads are accepted", http.StatusUnsupportedMediaType)
		return
	}

	object := uuid.New().String() + filepath.Ext(header.Filename)
	blobURI, err := h.blobs.Store(ctx, object, contentType, data)
	if err != nil {
		slog.ErrorContext(ctx, "failed to store upload", "filename", header.Filename, "error", err)
		h.writeError(ctx, w, "STORAGE_ERROR", "Failed to store uploaded file", http.StatusBadGateway)
		return
	}

	doc := &document.Document{
		Filename:    header.Filename,
		BlobURI:     blobURI,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	}
	if err := h.registry.Register(ctx, doc); err != nil {
		slog.ErrorContext(ctx, "failed to register document", "filename", header.Filename, "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Failed to register document", http.StatusInternalServerError)
		return
	}

	notification := ingest.UploadNotification{
		Filename:      header.Filename,
		BlobURI:       blobURI,
		ContentType:   contentType,
		SizeBytes:     int64(len(data)),
		DocumentID:    doc.ID,
		CorrelationID: middleware.GetCorrelationID(ctx),
	}
	body, err := json.Marshal(notification)
	if err != nil {
		h.writeError(ctx, w, "INTERNAL_ERROR", "Failed to encode notification", http.StatusInternalServerError)
		return
	}
	if err := h.publisher.Publish(config.TopicUploadNotify, body); err != nil {
		slog.ErrorContext(ctx, "failed to publish upload notification", "filename", header.Filename, "error", err)
		h.writeError(ctx, w, "QUEUE_ERROR", "Failed to queue document for processing", http.StatusBadGateway)
		return
	}

	slog.InfoContext(ctx, "document accepted for ingestion",
		"filename", header.Filename, "gcs_uri", blobURI, "size_bytes", len(data), "document_id", doc.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	resp := map[string]interface{}{
		"data": map[string]interface{}{
			"id":         doc.ID,
			"filename":   header.Filename,
			"gcs_uri":    blobURI,
			"size_bytes": len(data),
			"status":     document.StatusPending,
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
