package search

import "sort"

// rankedHit is one candidate's rank and raw score within a single
// ranker's result list, input to fuse.
type rankedHit struct {
	NoteID string
	Rank   int // 1-indexed
	Score  float64
}

// fuse combines lexical and semantic ranked lists via Reciprocal Rank
// Fusion: rrf(d) = Σ 1/(k+rank_i(d)) over every list d appears in
// (Cormack 2009). A candidate present in only one list still receives
// that list's contribution. Ties break by higher semantic similarity,
// then higher lexical score, then note id — this total ordering is what
// makes RRF fusion deterministic across repeated runs.
func fuse(lexical, semantic []rankedHit, k int) []Result {
	lexByID := make(map[string]rankedHit, len(lexical))
	for _, h := range lexical {
		lexByID[h.NoteID] = h
	}
	semByID := make(map[string]rankedHit, len(semantic))
	for _, h := range semantic {
		semByID[h.NoteID] = h
	}

	ids := make(map[string]struct{}, len(lexical)+len(semantic))
	for _, h := range lexical {
		ids[h.NoteID] = struct{}{}
	}
	for _, h := range semantic {
		ids[h.NoteID] = struct{}{}
	}

	results := make([]Result, 0, len(ids))
	for id := range ids {
		var score float64
		var via MatchedVia
		lh, inLex := lexByID[id]
		sh, inSem := semByID[id]

		if inLex {
			score += 1.0 / float64(k+lh.Rank)
		}
		if inSem {
			score += 1.0 / float64(k+sh.Rank)
		}
		switch {
		case inLex && inSem:
			via = MatchedBoth
		case inSem:
			via = MatchedSemantic
		default:
			via = MatchedFTS
		}

		results = append(results, Result{
			NoteID:        id,
			Score:         score,
			MatchedVia:    via,
			LexicalScore:  lh.Score,
			SemanticScore: sh.Score,
			LexicalRank:   lh.Rank,
			SemanticRank:  sh.Rank,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.SemanticScore != b.SemanticScore {
			return a.SemanticScore > b.SemanticScore
		}
		if a.LexicalScore != b.LexicalScore {
			return a.LexicalScore > b.LexicalScore
		}
		return a.NoteID < b.NoteID
	})
	return results
}

// rank assigns 1-indexed ranks to hits already sorted best-first.
func rank(scored []rankedHit) []rankedHit {
	out := make([]rankedHit, len(scored))
	copy(out, scored)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
