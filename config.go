package noetic

import "time"

// Config collects this System's tunables. Loading Config from a file or
// environment is an external collaborator's job; noetic only defines the
// shape and sensible defaults, the same way cogito exposes package-level
// default vars (DefaultIntrospection, DefaultReasoningTemperature) rather
// than a config loader.
type Config struct {
	// EmbeddingThreshold is the configured embedding similarity threshold.
	// No component in this module reads it: the AI revision job filters
	// context notes with its own fixed 0.50 cutoff
	// (contextSimilarityThreshold in jobs/handlers.go).
	EmbeddingThreshold float64

	// RRFK is the Reciprocal Rank Fusion constant (Cormack 2009).
	RRFK int

	// BM25K1 and BM25B are the Robertson BM25 term-frequency saturation
	// and length-normalization parameters.
	BM25K1 float64
	BM25B  float64

	// HNSWM, HNSWEfConstruction, HNSWEfSearchDefault configure the
	// approximate nearest-neighbor index used by the semantic ranker.
	HNSWM               int
	HNSWEfConstruction  int
	HNSWEfSearchDefault int

	// SemanticLinkThreshold is the minimum top-chunk cosine similarity for
	// the semantic_link_discovery job to materialize a Link row.
	SemanticLinkThreshold float64

	// JobMaxAttempts and JobBackoffBaseMS bound job retry.
	JobMaxAttempts   int
	JobBackoffBaseMS int

	// LLMTimeout and EmbedTimeout bound inference bridge calls.
	LLMTimeout   time.Duration
	EmbedTimeout time.Duration

	// MaxRevisionIterations bounds the ai_revision job's self-refine loop.
	MaxRevisionIterations int
}

// DefaultConfig returns sensible defaults for every option.
func DefaultConfig() Config {
	return Config{
		EmbeddingThreshold:    0.70,
		RRFK:                  60,
		BM25K1:                1.2,
		BM25B:                 0.75,
		HNSWM:                 16,
		HNSWEfConstruction:    64,
		HNSWEfSearchDefault:   100,
		SemanticLinkThreshold: 0.70,
		JobMaxAttempts:        3,
		JobBackoffBaseMS:      500,
		LLMTimeout:            120 * time.Second,
		EmbedTimeout:          30 * time.Second,
		MaxRevisionIterations: 3,
	}
}

// EfSearch returns the adaptive HNSW ef_search parameter for a query of
// the given limit: 40 when limit<=10, 200 when limit>50, the configured
// default otherwise.
func (c Config) EfSearch(limit int) int {
	switch {
	case limit <= 10:
		return 40
	case limit > 50:
		return 200
	default:
		return c.HNSWEfSearchDefault
	}
}
