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

func TestGenerator_Generate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{
					"content": map[string]interface{}{
						"role": "model",
						"parts": []map[string]interface{}{
							{"text": "The policy "},
							{"text": "says X."},
						},
					},
					"finishReason": "STOP",
				},
			},
		})
	}))
	defer ts.Close()

	ctx := context.Background()
	generator, err := gemini.NewGenerator(ctx, "test-key", option.WithEndpoint(ts.URL))
	require.NoError(t, err)
	defer generator.Close()

	answer, err := generator.Generate(ctx, "What does the policy say?")
	assert.NoError(t, err)
	// Multi-part responses are concatenated in order.
	assert.Equal(t, "The policy says X.", answer)
}

func TestGenerator_Generate_NoCandidates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{},
		})
	}))
	defer ts.Close()

	ctx := context.Background()
	generator, err := gemini.NewGenerator(ctx, "test-key", option.WithEndpoint(ts.URL))
	require.NoError(t, err)
	defer generator.Close()

	_, err = generator.Generate(ctx, "anything")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}
