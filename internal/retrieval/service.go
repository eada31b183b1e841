package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"securerag/backend/internal/middleware"
	"securerag/backend/internal/vector"
)

const promptTemplate = `You are a helpful AI assistant. Use the following context to answer the user's question.
If the answer is not in the context, say you don't know.

Context:
%s

Question:
%s

Answer:`

// Answer is the result of one query: the model's text plus the chunks
// it was grounded on, returned for caller-side transparency.
type Answer struct {
	Text    string   `json:"response"`
	Context []string `json:"context"`
}

type Guardrail interface {
	Validate(text string) error
}

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type VectorStore interface {
	Query(ctx context.Context, embedding []float32, k int) ([]vector.Hit, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Service struct {
	guard     Guardrail
	embedder  Embedder
	store     VectorStore
	generator Generator
	logger    *QueryLogger
	topK      int
}

func NewService(g Guardrail, e Embedder, s VectorStore, gen Generator, l *QueryLogger, topK int) *Service {
	return &Service{guard: g, embedder: e, store: s, generator: gen, logger: l, topK: topK}
}

// Answer validates, embeds and answers one query. A guardrail rejection
// is returned before any embedding, retrieval or generation call; an
// empty store is not an error, the model's don't-know instruction
// governs the outcome.
func (s *Service) Answer(ctx context.Context, query string) (*Answer, error) {
	start := time.Now()

	if err := s.guard.Validate(query); err != nil {
		return nil, err
	}

	vectors, err := s.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("query embedding failed: expected 1 vector, got %d", len(vectors))
	}

	hits, err := s.store.Query(ctx, vectors[0], s.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	contexts := make([]string, len(hits))
	for i, h := range hits {
		contexts[i] = h.Content
	}

	prompt := AssemblePrompt(query, contexts)

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:         query,
			NumResults:    len(hits),
			Duration:      time.Since(start),
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}

	return &Answer{Text: answer, Context: contexts}, nil
}

// AssemblePrompt builds the grounded prompt: instruction preamble,
// retrieved chunks in relevance order separated by blank lines, then the
// question. With no retrieved chunks the context section is empty and
// the preamble's don't-know instruction does the rest.
func AssemblePrompt(query string, contexts []string) string {
	return fmt.Sprintf(promptTemplate, strings.Join(contexts, "\n\n"), query)
}
