package text

import (
	"fmt"
)

// Chunk splits text into overlapping fixed-size windows of characters.
// Window i covers runes [i*step, i*step+size) with step = size - overlap;
// the final window may be shorter. Identical input always yields identical
// windows, which is what keeps chunk ids stable across re-ingestion.
//
// Offsets are rune offsets, not bytes, so multi-byte characters are never
// split mid-sequence.
func Chunk(text string, size, overlap int) ([]string, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("invalid chunk parameters: size=%d overlap=%d", size, overlap)
	}

	runes := []rune(text)
	step := size - overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks, nil
}
