package jobs

import "github.com/zoobzio/capitan"

// Signal definitions for this package's events, following the
// noetic.<entity>.<event> vocabulary the root signals.go establishes.
var (
	JobEnqueued = capitan.NewSignal(
		"noetic.job.enqueued",
		"A job was persisted in pending state",
	)
	JobClaimed = capitan.NewSignal(
		"noetic.job.claimed",
		"A worker claimed a pending job",
	)
	JobSucceeded = capitan.NewSignal(
		"noetic.job.succeeded",
		"A job's handler completed without error",
	)
	JobFailed = capitan.NewSignal(
		"noetic.job.failed",
		"A job's handler returned an error",
	)
	JobRetrying = capitan.NewSignal(
		"noetic.job.retrying",
		"A failed job was returned to pending with a backoff delay",
	)
	JobCancelled = capitan.NewSignal(
		"noetic.job.cancelled",
		"A pending job was cancelled directly",
	)
	// SelfRefineIteration mirrors cogito's AmplifyIterationCompleted:
	// emitted once per generate-feedback-refine pass in the ai_revision
	// job's self-refine loop.
	SelfRefineIteration = capitan.NewSignal(
		"noetic.job.self_refine_iteration",
		"One self-refine iteration of the ai_revision job completed",
	)
)

// Field keys specific to this package.
var (
	FieldJobID     = capitan.NewStringKey("job_id")
	FieldJobType   = capitan.NewStringKey("job_type")
	FieldAttempt   = capitan.NewIntKey("attempt")
	FieldIteration = capitan.NewIntKey("iteration")
	FieldSimilarity = capitan.NewFloat64Key("similarity")
)
