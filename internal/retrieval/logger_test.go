package retrieval_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"securerag/backend/internal/retrieval"
)

func TestQueryLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := retrieval.NewQueryLogger(&buf)

	logger.Log(retrieval.QueryLogEntry{
		Query:      "what is the policy?",
		NumResults: 3,
		Duration:   1500 * time.Millisecond,
	})

	var entry retrieval.QueryLogEntry
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "what is the policy?", entry.Query)
	assert.Equal(t, 3, entry.NumResults)
	assert.Equal(t, int64(1500), entry.LatencyMs)
	assert.False(t, entry.Timestamp.IsZero())
}
