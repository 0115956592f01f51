package search

import (
	"context"
	"testing"

	"github.com/zoobzio/noetic/archive"
	"github.com/zoobzio/noetic/archive/archivetest"
)

func TestRankLexical_RanksMoreRelevantDocumentHigher(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	relevant, err := store.CreateNote(ctx, archive.CreateNoteRequest{
		Content: "apples apples apples are a fruit",
	})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	tangential, err := store.CreateNote(ctx, archive.CreateNoteRequest{
		Content: "a brief mention of apples among many other unrelated topics discussed at length here",
	})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}

	hits, err := rankLexical(ctx, store, "apples", 50, nil, 1.2, 0.75)
	if err != nil {
		t.Fatalf("rank lexical: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].NoteID != relevant.Note.ID {
		t.Fatalf("expected the denser/shorter match to rank first, got %s want %s", hits[0].NoteID, relevant.Note.ID)
	}
	if hits[1].NoteID != tangential.Note.ID {
		t.Fatalf("expected the sparser match second")
	}
}

func TestRankLexical_RespectsIsolationPredicate(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	visible, err := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "oranges oranges oranges"})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	hidden, err := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "oranges oranges oranges"})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}

	allowed := func(noteID string) bool { return noteID == visible.Note.ID }
	hits, err := rankLexical(ctx, store, "oranges", 50, allowed, 1.2, 0.75)
	if err != nil {
		t.Fatalf("rank lexical: %v", err)
	}
	for _, h := range hits {
		if h.NoteID == hidden.Note.ID {
			t.Fatal("isolation predicate must be applied before scoring, not after")
		}
	}
}

func TestRankLexical_NoMatchesReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()
	if _, err := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "nothing relevant here"}); err != nil {
		t.Fatalf("create note: %v", err)
	}
	hits, err := rankLexical(ctx, store, "zzzznomatch", 50, nil, 1.2, 0.75)
	if err != nil {
		t.Fatalf("rank lexical: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
}
