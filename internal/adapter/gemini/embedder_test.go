package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"securerag/backend/internal/adapter/gemini"
)

func TestEmbedder_EmbedBatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": []map[string]interface{}{
				{"values": []float32{0.1, 0.2, 0.3}},
				{"values": []float32{0.4, 0.5, 0.6}},
			},
		})
	}))
	defer ts.Close()

	ctx := context.Background()
	embedder, err := gemini.NewEmbedder(ctx, "test-key", option.WithEndpoint(ts.URL))
	require.NoError(t, err)
	defer embedder.Close()

	vectors, err := embedder.EmbedBatch(ctx, []string{"first text", "second text"})
	assert.NoError(t, err)
	if assert.Len(t, vectors, 2) {
		assert.Equal(t, float32(0.1), vectors[0][0])
		assert.Equal(t, float32(0.6), vectors[1][2])
	}
}

func TestEmbedder_EmbedBatch_Empty(t *testing.T) {
	ctx := context.Background()
	embedder, err := gemini.NewEmbedder(ctx, "test-key")
	require.NoError(t, err)
	defer embedder.Close()

	// No texts, no API call.
	vectors, err := embedder.EmbedBatch(ctx, nil)
	assert.NoError(t, err)
	assert.Nil(t, vectors)
}
