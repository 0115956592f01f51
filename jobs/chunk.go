package jobs

import "strings"

// chunkText splits content into overlapping fixed-size chunks by rune
// count. Semantic/syntactic-aware chunking would need a parser or
// sentence-boundary model this module has no dependency for, so this is
// a deliberate stdlib-only simplification: every ChunkingStrategy on
// EmbeddingConfig other than ChunkFixed currently degrades to this same
// fixed-size-with-overlap split.
func chunkText(content string, maxSize, overlap int) []string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) == 0 {
		return nil
	}
	if maxSize <= 0 {
		maxSize = 1000
	}
	if overlap < 0 || overlap >= maxSize {
		overlap = 0
	}

	var chunks []string
	stride := maxSize - overlap
	for start := 0; start < len(runes); start += stride {
		end := start + maxSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
