package jobs

import (
	"context"
)

// Queue is the job orchestrator's persistence/claim capability, the
// jobs-package equivalent of archive.Store and skos.Graph.
type Queue interface {
	// Enqueue persists a new pending Job of the given type with a
	// JSON-marshaled payload, returning the created Job.
	Enqueue(ctx context.Context, jobType Type, payload any, maxAttempts int) (*Job, error)

	// Claim atomically transitions one pending, due job to running,
	// guarded by id+status+attempts so two workers never claim the same
	// job. Returns nil, nil when no job is claimable right now.
	Claim(ctx context.Context) (*Job, error)

	// ReportProgress persists pct (clamped to [0,100]) and message for a
	// running job.
	ReportProgress(ctx context.Context, jobID string, pct int, message string) error

	// Complete marks a running job succeeded.
	Complete(ctx context.Context, jobID string) error

	// Fail records lastErr and, if the job's attempts remain below
	// max_attempts, returns it to pending with an exponential backoff
	// delay before next_attempt_at; otherwise marks it terminally failed.
	Fail(ctx context.Context, jobID string, lastErr error) error

	// Cancel transitions a pending job directly to cancelled, or sets the
	// cancel_requested flag on a running job. Nothing in this package
	// acts on that flag: Worker does not poll it, so the running job runs
	// to completion and ends succeeded or failed by its handler's result.
	Cancel(ctx context.Context, jobID string) error

	// IsCancelled reports whether cancellation has been requested for a
	// running job. Worker and the handlers in this package do not call it.
	IsCancelled(ctx context.Context, jobID string) (bool, error)

	// Get fetches a Job by id.
	Get(ctx context.Context, jobID string) (*Job, error)

	// Stats returns orchestrator-wide counts by status.
	Stats(ctx context.Context) (Stats, error)
}
