package vector

import (
	"fmt"

	"github.com/google/uuid"
)

// ClassName is the Weaviate class holding document chunks.
const ClassName = "DocumentChunk"

// chunkNamespace seeds the v5 UUID derivation for chunk records.
// Changing it would orphan every previously stored chunk.
var chunkNamespace = uuid.MustParse("9f2c1f0a-62f4-4d5e-8f3b-6c1d22a8f4b7")

// Record is one chunk ready to be written to the vector store.
type Record struct {
	ChunkID    string
	Content    string
	Filename   string
	ChunkIndex int
	Vector     []float32
}

// Hit is one retrieved chunk, nearest first.
type Hit struct {
	Content    string
	Distance   float32
	Filename   string
	ChunkIndex int
}

// ChunkID derives the stable chunk identifier for a document position.
// The same (filename, index) always maps to the same id, so re-ingesting
// a document overwrites its prior chunks instead of duplicating them.
func ChunkID(filename string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", filename, index)
}

// ObjectUUID maps a chunk id onto the deterministic Weaviate object UUID
// that makes batch imports behave as idempotent upserts.
func ObjectUUID(chunkID string) string {
	return uuid.NewSHA1(chunkNamespace, []byte(chunkID)).String()
}
