package search

import "testing"

func TestFuse_DocumentInBothListsOutscoresSingleList(t *testing.T) {
	lexical := rank([]rankedHit{{NoteID: "a", Score: 10}, {NoteID: "b", Score: 5}})
	semantic := rank([]rankedHit{{NoteID: "a", Score: 0.9}, {NoteID: "c", Score: 0.8}})

	results := fuse(lexical, semantic, 60)
	if len(results) != 3 {
		t.Fatalf("expected 3 fused results, got %d", len(results))
	}
	if results[0].NoteID != "a" {
		t.Fatalf("expected note a (in both lists) to rank first, got %s", results[0].NoteID)
	}
	if results[0].MatchedVia != MatchedBoth {
		t.Fatalf("expected matched_via=both for note a, got %s", results[0].MatchedVia)
	}
}

func TestFuse_ScoreNeverExceedsTwoOverKPlusOne(t *testing.T) {
	lexical := rank([]rankedHit{{NoteID: "a", Score: 1}})
	semantic := rank([]rankedHit{{NoteID: "a", Score: 1}})
	results := fuse(lexical, semantic, 60)
	bound := 2.0 / 61.0
	if results[0].Score > bound+1e-9 {
		t.Fatalf("rrf score %f exceeds theoretical bound %f", results[0].Score, bound)
	}
}

func TestFuse_TiesBreakBySemanticThenLexicalThenNoteID(t *testing.T) {
	// Two notes tied on RRF score (both absent from one list, present at
	// the same rank in the other is impossible without ties; construct a
	// genuine score tie instead) - not easily producible via rank
	// positions alone, so exercise the tie-break directly via equal-score
	// candidates appearing in only the semantic list.
	semantic := []rankedHit{{NoteID: "z", Rank: 1, Score: 0.5}, {NoteID: "y", Rank: 1, Score: 0.9}}
	results := fuse(nil, semantic, 60)
	if results[0].NoteID != "y" {
		t.Fatalf("expected y (higher semantic score) to win tie, got %s", results[0].NoteID)
	}
}

func TestFuse_DeterministicAcrossRepeatedCalls(t *testing.T) {
	lexical := rank([]rankedHit{{NoteID: "a", Score: 3}, {NoteID: "b", Score: 2}, {NoteID: "c", Score: 1}})
	semantic := rank([]rankedHit{{NoteID: "c", Score: 0.9}, {NoteID: "a", Score: 0.5}})

	first := fuse(lexical, semantic, 60)
	second := fuse(lexical, semantic, 60)
	if len(first) != len(second) {
		t.Fatalf("result length differs across calls")
	}
	for i := range first {
		if first[i].NoteID != second[i].NoteID || first[i].Score != second[i].Score {
			t.Fatalf("fuse is not deterministic at index %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestRank_AssignsOneIndexedRanksInOrder(t *testing.T) {
	scored := []rankedHit{{NoteID: "a", Score: 3}, {NoteID: "b", Score: 2}, {NoteID: "c", Score: 1}}
	ranked := rank(scored)
	for i, h := range ranked {
		if h.Rank != i+1 {
			t.Fatalf("expected rank %d at index %d, got %d", i+1, i, h.Rank)
		}
	}
}
