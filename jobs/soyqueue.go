package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zoobzio/astql/postgres"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/noetic"
	"github.com/zoobzio/soy"
)

// SoyQueue implements Queue using soy, the same one-soy.Soy[T]-per-table
// shape archive.SoyStore and skos.SoyGraph use.
type SoyQueue struct {
	jobs *soy.Soy[Job]
}

// NewSoyQueue creates a Queue backed by the "jobs" table.
func NewSoyQueue(db *sqlx.DB) (*SoyQueue, error) {
	renderer := postgres.New()
	jobs, err := soy.New[Job](db, "jobs", renderer)
	if err != nil {
		return nil, noetic.Internal(errOp("new_soy_queue"), "failed to initialize jobs table", err)
	}
	return &SoyQueue{jobs: jobs}, nil
}

func errOp(op string) string { return "jobs." + op }

func (q *SoyQueue) Enqueue(ctx context.Context, jobType Type, payload any, maxAttempts int) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, noetic.InvalidInput(errOp("enqueue"), "failed to marshal payload")
	}
	now := time.Now()
	job := &Job{
		ID: noetic.NewID(), Type: jobType, Status: StatusPending,
		Payload: string(raw), MaxAttempts: maxAttempts,
		CreatedAt: now, UpdatedAt: now, NextAttemptAt: now,
	}
	if _, err := q.jobs.Insert().Exec(ctx, job); err != nil {
		return nil, noetic.Internal(errOp("enqueue"), "failed to insert job", err)
	}
	capitan.Emit(ctx, JobEnqueued, FieldJobID.Field(job.ID), FieldJobType.Field(string(jobType)))
	return job, nil
}

// Claim's WHERE clause (id + status='pending' + attempts=<observed>) is
// what makes the claim atomic under concurrent workers: two Modify calls
// racing on the same job each match zero rows after the first succeeds,
// since the row's attempts/status no longer satisfy the predicate. The
// Query just before it is only a best-effort candidate pick, not the
// safety boundary.
func (q *SoyQueue) Claim(ctx context.Context) (*Job, error) {
	now := time.Now()
	candidates, err := q.jobs.Query().
		Where("status", "=", "status").
		OrderBy("created_at", "asc").
		Limit(20).
		Exec(ctx, map[string]any{"status": StatusPending})
	if err != nil {
		return nil, noetic.Internal(errOp("claim"), "failed to query candidate jobs", err)
	}

	for _, c := range candidates {
		if c.NextAttemptAt.After(now) {
			continue
		}
		_, err := q.jobs.Modify().
			Where("id", "=", "id").
			Where("status", "=", "status").
			Where("attempts", "=", "attempts").
			Set("status", "new_status").
			Set("updated_at", "updated_at").
			Exec(ctx, map[string]any{
				"id": c.ID, "status": StatusPending, "attempts": c.Attempts,
				"new_status": StatusRunning, "updated_at": now,
			})
		if err != nil {
			continue
		}
		claimed, err := q.Get(ctx, c.ID)
		if err != nil {
			continue
		}
		if claimed.Status != StatusRunning {
			// Lost the race to another worker between our update and re-read.
			continue
		}
		capitan.Emit(ctx, JobClaimed, FieldJobID.Field(claimed.ID), FieldJobType.Field(string(claimed.Type)))
		return claimed, nil
	}
	return nil, nil
}

func (q *SoyQueue) ReportProgress(ctx context.Context, jobID string, pct int, message string) error {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	_, err := q.jobs.Modify().
		Where("id", "=", "id").
		Set("progress", "progress").
		Set("progress_message", "progress_message").
		Set("updated_at", "updated_at").
		Exec(ctx, map[string]any{
			"id": jobID, "progress": pct, "progress_message": message, "updated_at": time.Now(),
		})
	if err != nil {
		return noetic.Internal(errOp("report_progress"), "failed to persist progress", err)
	}
	return nil
}

func (q *SoyQueue) Complete(ctx context.Context, jobID string) error {
	_, err := q.jobs.Modify().
		Where("id", "=", "id").
		Set("status", "status").
		Set("progress", "progress").
		Set("updated_at", "updated_at").
		Exec(ctx, map[string]any{
			"id": jobID, "status": StatusSucceeded, "progress": 100, "updated_at": time.Now(),
		})
	if err != nil {
		return noetic.Internal(errOp("complete"), "failed to mark job succeeded", err)
	}
	capitan.Emit(ctx, JobSucceeded, FieldJobID.Field(jobID))
	return nil
}

func (q *SoyQueue) Fail(ctx context.Context, jobID string, lastErr error) error {
	job, err := q.Get(ctx, jobID)
	if err != nil {
		return err
	}
	attempts := job.Attempts + 1
	now := time.Now()

	if attempts >= job.MaxAttempts {
		_, err := q.jobs.Modify().
			Where("id", "=", "id").
			Set("status", "status").
			Set("attempts", "attempts").
			Set("last_error", "last_error").
			Set("updated_at", "updated_at").
			Exec(ctx, map[string]any{
				"id": jobID, "status": StatusFailed, "attempts": attempts,
				"last_error": lastErr.Error(), "updated_at": now,
			})
		if err != nil {
			return noetic.Internal(errOp("fail"), "failed to mark job failed", err)
		}
		capitan.Emit(ctx, JobFailed, FieldJobID.Field(jobID), FieldAttempt.Field(attempts))
		return nil
	}

	delay := nextAttemptDelay(attempts, noetic.DefaultConfig().JobBackoffBaseMS)
	_, err = q.jobs.Modify().
		Where("id", "=", "id").
		Set("status", "status").
		Set("attempts", "attempts").
		Set("last_error", "last_error").
		Set("next_attempt_at", "next_attempt_at").
		Set("updated_at", "updated_at").
		Exec(ctx, map[string]any{
			"id": jobID, "status": StatusPending, "attempts": attempts,
			"last_error": lastErr.Error(), "next_attempt_at": now.Add(delay), "updated_at": now,
		})
	if err != nil {
		return noetic.Internal(errOp("fail"), "failed to reschedule job", err)
	}
	capitan.Emit(ctx, JobRetrying, FieldJobID.Field(jobID), FieldAttempt.Field(attempts))
	return nil
}

func (q *SoyQueue) Cancel(ctx context.Context, jobID string) error {
	job, err := q.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == StatusPending {
		_, err := q.jobs.Modify().
			Where("id", "=", "id").
			Set("status", "status").
			Set("updated_at", "updated_at").
			Exec(ctx, map[string]any{"id": jobID, "status": StatusCancelled, "updated_at": time.Now()})
		if err != nil {
			return noetic.Internal(errOp("cancel"), "failed to cancel pending job", err)
		}
		capitan.Emit(ctx, JobCancelled, FieldJobID.Field(jobID))
		return nil
	}
	if job.Status != StatusRunning {
		return noetic.Conflict(errOp("cancel"), "job is not pending or running")
	}
	_, err = q.jobs.Modify().
		Where("id", "=", "id").
		Set("cancel_requested", "cancel_requested").
		Set("updated_at", "updated_at").
		Exec(ctx, map[string]any{"id": jobID, "cancel_requested": true, "updated_at": time.Now()})
	if err != nil {
		return noetic.Internal(errOp("cancel"), "failed to flag job for cancellation", err)
	}
	return nil
}

func (q *SoyQueue) IsCancelled(ctx context.Context, jobID string) (bool, error) {
	job, err := q.Get(ctx, jobID)
	if err != nil {
		return false, err
	}
	return job.CancelRequested, nil
}

func (q *SoyQueue) Get(ctx context.Context, jobID string) (*Job, error) {
	job, err := q.jobs.Select().Where("id", "=", "id").Exec(ctx, map[string]any{"id": jobID})
	if err != nil {
		return nil, noetic.NotFound(errOp("get"), "Job "+jobID+" not found")
	}
	return job, nil
}

func (q *SoyQueue) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	for status, dst := range map[Status]*int{
		StatusPending: &stats.Pending, StatusRunning: &stats.Running,
		StatusSucceeded: &stats.Succeeded, StatusFailed: &stats.Failed,
		StatusCancelled: &stats.Cancelled,
	} {
		rows, err := q.jobs.Query().Where("status", "=", "status").Exec(ctx, map[string]any{"status": status})
		if err != nil {
			return Stats{}, noetic.Internal(errOp("stats"), "failed to count jobs by status", err)
		}
		*dst = len(rows)
	}
	return stats, nil
}

var _ Queue = (*SoyQueue)(nil)
