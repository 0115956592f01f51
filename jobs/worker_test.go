package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/zoobzio/noetic"
	"github.com/zoobzio/noetic/archive"
	"github.com/zoobzio/noetic/archive/archivetest"
	"github.com/zoobzio/noetic/inference/inferencetest"
	"github.com/zoobzio/noetic/jobs"
	"github.com/zoobzio/noetic/jobs/jobstest"
)

func TestWorker_ClaimsAndCompletesAnEnqueuedJob(t *testing.T) {
	store := archivetest.New()
	bridge := inferencetest.New()
	queue := jobstest.New()

	cfg := archive.EmbeddingConfig{
		ID: noetic.NewID(), Slug: "default-embed", ModelName: "test-embed",
		Dimensions: 8, MaxChunkSize: 20, ChunkOverlap: 0, IsDefault: true,
	}
	store.AddEmbeddingConfig(cfg)
	note, err := store.CreateNote(context.Background(), archive.CreateNoteRequest{Content: "note content to embed"})
	if err != nil {
		t.Fatalf("create note failed: %v", err)
	}

	if _, err := queue.Enqueue(context.Background(), jobs.TypeEmbedding, jobs.EmbeddingPayload{
		NoteID: note.Note.ID, EmbeddingConfig: cfg.Slug,
	}, 3); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	handlers := jobs.NewHandlers(store, bridge, nil, queue, noetic.DefaultConfig())
	worker := jobs.NewWorker(queue, handlers)
	worker.PollInterval = 5 * time.Millisecond
	worker.Concurrency = 2

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = worker.Run(ctx)

	stats, err := queue.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Succeeded != 1 {
		t.Fatalf("expected the worker to claim and complete the job, got stats=%+v", stats)
	}
}

func TestWorker_UnknownJobTypeFailsRatherThanHangs(t *testing.T) {
	queue := jobstest.New()
	if _, err := queue.Enqueue(context.Background(), jobs.Type("nonexistent"), struct{}{}, 1); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	worker := jobs.NewWorker(queue, map[jobs.Type]jobs.Handler{})
	worker.PollInterval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = worker.Run(ctx)

	stats, err := queue.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Failed != 1 {
		t.Fatalf("expected the job with no registered handler to fail terminally (max_attempts=1), got %+v", stats)
	}
}
