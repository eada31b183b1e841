package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"securerag/backend/internal/guardrail"
	"securerag/backend/internal/middleware"
	"securerag/backend/internal/retrieval"
)

// Answerer runs the full query pipeline for one user message.
type Answerer interface {
	Answer(ctx context.Context, query string) (*retrieval.Answer, error)
}

type Handler struct {
	service Answerer
}

func NewHandler(service Answerer) *Handler {
	return &Handler{service: service}
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "INVALID_REQUEST", "Request body must be JSON with a 'message' field", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		h.writeError(ctx, w, "INVALID_REQUEST", "Field 'message' must not be empty", http.StatusBadRequest)
		return
	}

	answer, err := h.service.Answer(ctx, req.Message)
	if err != nil {
		if errors.Is(err, guardrail.ErrContentViolation) {
			slog.WarnContext(ctx, "query rejected by guardrail", "error", err)
			h.writeError(ctx, w, "CONTENT_VIOLATION", "Query rejected by content policy", http.StatusBadRequest)
			return
		}
		slog.ErrorContext(ctx, "failed to answer query", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Failed to answer query", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(answer); err != nil {
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
