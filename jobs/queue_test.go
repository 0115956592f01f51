package jobs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/zoobzio/noetic/jobs"
	"github.com/zoobzio/noetic/jobs/jobstest"
)

func TestClaim_OnlyOnePendingJobReturnedAtATime(t *testing.T) {
	ctx := context.Background()
	q := jobstest.New()

	if _, err := q.Enqueue(ctx, jobs.TypeEmbedding, jobs.EmbeddingPayload{NoteID: "n1"}, 3); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	first, err := q.Claim(ctx)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if first == nil || first.Status != jobs.StatusRunning {
		t.Fatalf("expected a running job, got %+v", first)
	}

	second, err := q.Claim(ctx)
	if err != nil {
		t.Fatalf("second claim failed: %v", err)
	}
	if second != nil {
		t.Fatalf("expected no second claimable job, got %+v", second)
	}
}

func TestFail_RetriesUntilMaxAttemptsThenTerminallyFails(t *testing.T) {
	ctx := context.Background()
	q := jobstest.New()

	job, _ := q.Enqueue(ctx, jobs.TypeEmbedding, jobs.EmbeddingPayload{NoteID: "n1"}, 2)

	claimed, _ := q.Claim(ctx)
	if claimed.ID != job.ID {
		t.Fatalf("claimed wrong job")
	}
	if err := q.Fail(ctx, job.ID, errors.New("boom")); err != nil {
		t.Fatalf("fail failed: %v", err)
	}
	after, _ := q.Get(ctx, job.ID)
	if after.Status != jobs.StatusPending {
		t.Fatalf("expected job returned to pending after first failure, got %s", after.Status)
	}
	if after.Attempts != 1 {
		t.Fatalf("expected attempts=1, got %d", after.Attempts)
	}

	claimed2, _ := q.Claim(ctx)
	if claimed2 == nil {
		t.Fatalf("expected retried job to be due immediately in mock (not simulating delay)")
	}
	if err := q.Fail(ctx, job.ID, errors.New("boom again")); err != nil {
		t.Fatalf("second fail failed: %v", err)
	}
	final, _ := q.Get(ctx, job.ID)
	if final.Status != jobs.StatusFailed {
		t.Fatalf("expected job terminally failed after reaching max_attempts, got %s", final.Status)
	}
}

func TestCancel_PendingJobCancelsDirectly(t *testing.T) {
	ctx := context.Background()
	q := jobstest.New()

	job, _ := q.Enqueue(ctx, jobs.TypeEmbedding, jobs.EmbeddingPayload{NoteID: "n1"}, 3)
	if err := q.Cancel(ctx, job.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	after, _ := q.Get(ctx, job.ID)
	if after.Status != jobs.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", after.Status)
	}
}

func TestCancel_RunningJobSetsCooperativeFlagNotStatus(t *testing.T) {
	ctx := context.Background()
	q := jobstest.New()

	job, _ := q.Enqueue(ctx, jobs.TypeEmbedding, jobs.EmbeddingPayload{NoteID: "n1"}, 3)
	q.Claim(ctx)

	if err := q.Cancel(ctx, job.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	after, _ := q.Get(ctx, job.ID)
	if after.Status != jobs.StatusRunning {
		t.Fatalf("expected status to remain running until the worker checks cancel_requested, got %s", after.Status)
	}
	cancelled, err := q.IsCancelled(ctx, job.ID)
	if err != nil || !cancelled {
		t.Fatalf("expected cancel_requested to be set, got %v err=%v", cancelled, err)
	}
}

func TestStats_CountsByStatus(t *testing.T) {
	ctx := context.Background()
	q := jobstest.New()

	j1, _ := q.Enqueue(ctx, jobs.TypeEmbedding, jobs.EmbeddingPayload{NoteID: "n1"}, 3)
	q.Enqueue(ctx, jobs.TypeEmbedding, jobs.EmbeddingPayload{NoteID: "n2"}, 3)
	q.Claim(ctx)
	q.Complete(ctx, j1.ID)

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Succeeded != 1 || stats.Pending != 1 {
		t.Fatalf("expected 1 succeeded, 1 pending, got %+v", stats)
	}
}
