package archive_test

import (
	"context"
	"testing"

	"github.com/zoobzio/noetic/archive"
	"github.com/zoobzio/noetic/archive/archivetest"
)

func TestCreateNote_SetsInitialRevision(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	view, err := store.CreateNote(ctx, archive.CreateNoteRequest{
		Content: "first draft", Tags: []string{"draft"},
	})
	if err != nil {
		t.Fatalf("create note failed: %v", err)
	}

	if view.CurrentRevision != 1 {
		t.Errorf("expected revision 1, got %d", view.CurrentRevision)
	}
	if view.CurrentContent != "first draft" {
		t.Errorf("expected current content to equal the original, got %q", view.CurrentContent)
	}
	if len(view.Tags) != 1 || view.Tags[0] != "draft" {
		t.Errorf("expected tags [draft], got %v", view.Tags)
	}
}

func TestGetNote_NotFoundForMissingID(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	_, err := store.GetNote(ctx, "does-not-exist", archive.GetNoteOptions{})
	if err == nil {
		t.Fatal("expected NotFound error, got nil")
	}
}

func TestGetNote_HiddenWhenSoftDeletedUnlessIncluded(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	view, err := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "x"})
	if err != nil {
		t.Fatalf("create note failed: %v", err)
	}

	if err := store.SoftDelete(ctx, view.Note.ID); err != nil {
		t.Fatalf("soft delete failed: %v", err)
	}

	if _, err := store.GetNote(ctx, view.Note.ID, archive.GetNoteOptions{}); err == nil {
		t.Error("expected soft-deleted note to be hidden by default")
	}
	if _, err := store.GetNote(ctx, view.Note.ID, archive.GetNoteOptions{IncludeDeleted: true}); err != nil {
		t.Errorf("expected soft-deleted note visible with IncludeDeleted, got error: %v", err)
	}
}

func TestRestore_UndoesSoftDelete(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	view, _ := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "x"})
	_ = store.SoftDelete(ctx, view.Note.ID)
	if err := store.Restore(ctx, view.Note.ID); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	if _, err := store.GetNote(ctx, view.Note.ID, archive.GetNoteOptions{}); err != nil {
		t.Errorf("expected restored note visible, got error: %v", err)
	}
}

func TestUpdateOriginal_NotFoundBeforeAnyWrite(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	err := store.UpdateOriginal(ctx, "missing-id", "new content")
	if err == nil {
		t.Fatal("expected NotFound error for missing note")
	}
}

func TestUpdateOriginal_HashIdenticalIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	view, _ := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "same content"})

	if err := store.UpdateOriginal(ctx, view.Note.ID, "same content"); err != nil {
		t.Fatalf("expected no-op update to succeed, got: %v", err)
	}

	after, err := store.GetNote(ctx, view.Note.ID, archive.GetNoteOptions{})
	if err != nil {
		t.Fatalf("get note failed: %v", err)
	}
	if after.OriginalContent != "same content" {
		t.Errorf("expected original content unchanged, got %q", after.OriginalContent)
	}
}

func TestUpdateRevised_AppendsMonotonicRevisionNumbers(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	view, _ := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "v1"})

	rev2, err := store.UpdateRevised(ctx, view.Note.ID, "v2", nil, archive.AgentUser, nil)
	if err != nil {
		t.Fatalf("update revised failed: %v", err)
	}
	if rev2.Number != 2 {
		t.Errorf("expected revision number 2, got %d", rev2.Number)
	}

	rev3, err := store.UpdateRevised(ctx, view.Note.ID, "v3", nil, archive.AgentUser, nil)
	if err != nil {
		t.Fatalf("update revised failed: %v", err)
	}
	if rev3.Number != 3 {
		t.Errorf("expected revision number 3, got %d", rev3.Number)
	}

	history, err := store.ListVersions(ctx, view.Note.ID)
	if err != nil {
		t.Fatalf("list versions failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 revisions, got %d", len(history))
	}
	for i, rev := range history {
		if rev.Number != i+1 {
			t.Errorf("expected revision %d at index %d, got %d", i+1, i, rev.Number)
		}
	}
}

func TestUpdateRevised_AICurrentRevisionMatchesLatest(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	view, _ := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "v1"})
	contextNotes := []archive.NoteRevisionContext{
		{ContextNoteID: "other-note", Similarity: 0.9},
	}
	if _, err := store.UpdateRevised(ctx, view.Note.ID, "v2 revised by ai", nil, "ollama:llama3", contextNotes); err != nil {
		t.Fatalf("update revised failed: %v", err)
	}

	after, err := store.GetNote(ctx, view.Note.ID, archive.GetNoteOptions{})
	if err != nil {
		t.Fatalf("get note failed: %v", err)
	}
	if after.CurrentRevision != 2 {
		t.Errorf("expected current revision 2, got %d", after.CurrentRevision)
	}
	if after.CurrentContent != "v2 revised by ai" {
		t.Errorf("expected current content to match latest revision, got %q", after.CurrentContent)
	}
}

func TestUpdateRevised_UserAgentDoesNotPersistContext(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	view, _ := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "v1"})
	rev, err := store.UpdateRevised(ctx, view.Note.ID, "v2", nil, archive.AgentUser, []archive.NoteRevisionContext{
		{ContextNoteID: "other", Similarity: 0.5},
	})
	if err != nil {
		t.Fatalf("update revised failed: %v", err)
	}

	provenance, err := store.GetProvenance(ctx, rev.ID)
	if err != nil {
		t.Fatalf("get provenance failed: %v", err)
	}
	if len(provenance) != 0 {
		t.Errorf("expected no provenance rows for a user-authored revision, got %d", len(provenance))
	}
}

func TestUpdateStatus_NotFoundForMissingNote(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	starred := true
	err := store.UpdateStatus(ctx, "missing", archive.StatusUpdate{Starred: &starred})
	if err == nil {
		t.Fatal("expected NotFound error for missing note")
	}
}

func TestUpdateStatus_OnlyTouchesSuppliedFlags(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	view, _ := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "x"})
	starred := true
	if err := store.UpdateStatus(ctx, view.Note.ID, archive.StatusUpdate{Starred: &starred}); err != nil {
		t.Fatalf("update status failed: %v", err)
	}

	got, err := store.GetNote(ctx, view.Note.ID, archive.GetNoteOptions{})
	if err != nil {
		t.Fatalf("get note failed: %v", err)
	}
	if !got.Note.Starred {
		t.Error("expected note to be starred")
	}
	if got.Note.Archived {
		t.Error("expected archived to remain false")
	}
}

func TestPurge_RemovesNoteAndSubsequentOpsAreNotFound(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	view, _ := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "x"})
	if err := store.Purge(ctx, view.Note.ID); err != nil {
		t.Fatalf("purge failed: %v", err)
	}

	if _, err := store.GetNote(ctx, view.Note.ID, archive.GetNoteOptions{IncludeDeleted: true}); err == nil {
		t.Error("expected NotFound after purge")
	}
	if err := store.UpdateOriginal(ctx, view.Note.ID, "anything"); err == nil {
		t.Error("expected NotFound after purge for UpdateOriginal")
	}
}

func TestCreateLink_RejectsSelfLoop(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	view, _ := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "x"})
	_, err := store.CreateLink(ctx, archive.Link{FromNote: view.Note.ID, ToNote: view.Note.ID, Kind: archive.LinkExplicit})
	if err == nil {
		t.Fatal("expected self-loop link to be rejected")
	}
}

func TestCreateLink_AppearsForBothEndpoints(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	a, _ := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "a"})
	b, _ := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "b"})

	if _, err := store.CreateLink(ctx, archive.Link{FromNote: a.Note.ID, ToNote: b.Note.ID, Kind: archive.LinkExplicit}); err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	aLinks, err := store.GetLinks(ctx, a.Note.ID)
	if err != nil {
		t.Fatalf("get links failed: %v", err)
	}
	if len(aLinks) != 1 {
		t.Errorf("expected 1 link for a, got %d", len(aLinks))
	}

	bLinks, err := store.GetLinks(ctx, b.Note.ID)
	if err != nil {
		t.Fatalf("get links failed: %v", err)
	}
	if len(bLinks) != 1 {
		t.Errorf("expected 1 link for b, got %d", len(bLinks))
	}
}

func TestInsertEmbedding_SameHashIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	view, _ := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "x"})
	emb := archive.Embedding{
		NoteID: view.Note.ID, ChunkIndex: 0, EmbeddingConfigID: "cfg-1",
		Vector: archive.NewVector([]float32{0.1, 0.2, 0.3}), ChunkHash: "hash-a",
	}
	if err := store.InsertEmbedding(ctx, emb); err != nil {
		t.Fatalf("insert embedding failed: %v", err)
	}
	if err := store.InsertEmbedding(ctx, emb); err != nil {
		t.Fatalf("second insert embedding failed: %v", err)
	}

	chunks, err := store.GetEmbeddings(ctx, view.Note.ID, "cfg-1")
	if err != nil {
		t.Fatalf("get embeddings failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Errorf("expected idempotent insert to leave exactly 1 chunk, got %d", len(chunks))
	}
}

func TestInsertEmbedding_DifferentHashUpdatesVector(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	view, _ := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "x"})
	first := archive.Embedding{
		NoteID: view.Note.ID, ChunkIndex: 0, EmbeddingConfigID: "cfg-1",
		Vector: archive.NewVector([]float32{0.1, 0.2}), ChunkHash: "hash-a",
	}
	second := first
	second.Vector = archive.NewVector([]float32{0.9, 0.9})
	second.ChunkHash = "hash-b"

	_ = store.InsertEmbedding(ctx, first)
	if err := store.InsertEmbedding(ctx, second); err != nil {
		t.Fatalf("insert embedding failed: %v", err)
	}

	chunks, err := store.GetEmbeddings(ctx, view.Note.ID, "cfg-1")
	if err != nil {
		t.Fatalf("get embeddings failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ChunkHash != "hash-b" {
		t.Errorf("expected updated chunk hash, got %q", chunks[0].ChunkHash)
	}
}

func TestSearchByVector_RespectsAllowPredicate(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	allowed, _ := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "allowed"})
	blocked, _ := store.CreateNote(ctx, archive.CreateNoteRequest{Content: "blocked"})

	query := archive.NewVector([]float32{1, 0, 0})
	_ = store.InsertEmbedding(ctx, archive.Embedding{
		NoteID: allowed.Note.ID, ChunkIndex: 0, EmbeddingConfigID: "cfg", Vector: query, ChunkHash: "a",
	})
	_ = store.InsertEmbedding(ctx, archive.Embedding{
		NoteID: blocked.Note.ID, ChunkIndex: 0, EmbeddingConfigID: "cfg", Vector: query, ChunkHash: "b",
	})

	results, err := store.SearchByVector(ctx, query, "cfg", 10, func(id string) bool {
		return id == allowed.Note.ID
	})
	if err != nil {
		t.Fatalf("search by vector failed: %v", err)
	}
	for _, r := range results {
		if r.NoteID == blocked.Note.ID {
			t.Error("strict isolation predicate should have excluded the blocked note")
		}
	}
	if len(results) != 1 || results[0].NoteID != allowed.Note.ID {
		t.Errorf("expected exactly the allowed note, got %+v", results)
	}
}

func TestForSchema_RejectsInvalidArchiveName(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	if _, err := store.ForSchema(ctx, "bad name!", true); err == nil {
		t.Error("expected invalid archive name to be rejected")
	}
}

func TestForSchema_IsolatesNotesAcrossArchives(t *testing.T) {
	ctx := context.Background()
	store := archivetest.New()

	work, err := store.ForSchema(ctx, "work", true)
	if err != nil {
		t.Fatalf("for schema failed: %v", err)
	}
	if work.ArchiveName() != "work" {
		t.Errorf("expected archive name 'work', got %q", work.ArchiveName())
	}

	view, err := work.CreateNote(ctx, archive.CreateNoteRequest{Content: "in work archive"})
	if err != nil {
		t.Fatalf("create note failed: %v", err)
	}

	if _, err := store.GetNote(ctx, view.Note.ID, archive.GetNoteOptions{}); err == nil {
		t.Error("expected note created in the 'work' archive to be invisible to the default archive handle")
	}
}
