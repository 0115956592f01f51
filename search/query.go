// Package search is the System's hybrid search engine (C3): parallel
// lexical (BM25-like) and semantic (ANN) retrieval, fused with Reciprocal
// Rank Fusion, with a strict isolation predicate applied inside both
// retrievals rather than as a post-filter.
package search

import "strings"

// Mode selects which retrieval path(s) Engine.Search runs.
type Mode string

const (
	ModeHybrid   Mode = "hybrid"
	ModeFTS      Mode = "fts"
	ModeSemantic Mode = "semantic"
)

// MatchedVia reports which ranker(s) surfaced a result.
type MatchedVia string

const (
	MatchedFTS      MatchedVia = "fts"
	MatchedSemantic MatchedVia = "semantic"
	MatchedBoth     MatchedVia = "both"
)

// StrictFilter narrows a search to notes satisfying an isolation
// predicate, expanded by expandFilter into an allowed-note-id function
// before either ranker runs.
type StrictFilter struct {
	RequiredTags    []string
	RequiredSchemes []string
	ExcludedSchemes []string
	ExcludedTags []string
	// IncludeUntagged defaults to true when nil; only consulted when one
	// of Excluded* is non-empty.
	IncludeUntagged *bool
	CollectionID    *string
}

// includeUntagged resolves the default-true semantics of IncludeUntagged.
func (f StrictFilter) includeUntagged() bool {
	if f.IncludeUntagged == nil {
		return true
	}
	return *f.IncludeUntagged
}

// Query is the input to Engine.Search.
type Query struct {
	Text            string
	Mode            Mode // defaults to ModeHybrid
	Limit           int  // 0 returns an empty result set; negative defaults to 10
	EmbeddingConfig string // embedding_config slug/id; empty means "the active default"
	Filter          StrictFilter
	CacheBypass     bool
}

// Normalize trims and lowercases the query text. Stemming concerns are
// left to the lexical ranker.
func (q Query) Normalize() string {
	return strings.ToLower(strings.TrimSpace(q.Text))
}

// Result is one fused search hit.
type Result struct {
	NoteID     string
	Score      float64
	MatchedVia MatchedVia

	// LexicalScore/SemanticScore/LexicalRank/SemanticRank carry each
	// ranker's raw score and rank for this note; they are zero when the
	// note did not appear in that ranker's list.
	LexicalScore  float64
	SemanticScore float64
	LexicalRank   int
	SemanticRank  int
}

// SourceRank is one ranker's contribution to a fused Result, surfaced in
// Diagnostics when the caller bypasses the cache.
type SourceRank struct {
	NoteID string
	Rank   int     // 1-indexed
	Score  float64 // raw ranker score (BM25 or cosine similarity)
}

// Diagnostics exposes the per-source ranks and raw scores for
// cache-bypassing callers.
type Diagnostics struct {
	LexicalRanks  []SourceRank
	SemanticRanks []SourceRank
}

// SearchResponse is the full output of Engine.Search.
type SearchResponse struct {
	Results     []Result
	Total       int
	Diagnostics *Diagnostics
}
