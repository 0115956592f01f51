package jobs

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Handler executes one job's payload, reporting progress through report
// and returning the job's result (marshaled to JSON by the caller) or an
// error. Handlers must check ctx/cancellation cooperatively at natural
// progress-report points rather than relying on ctx cancellation alone,
// since a job already mid-write shouldn't be interrupted mid-mutation.
type Handler func(ctx context.Context, job *Job, report func(pct int, message string)) (result any, err error)

// Worker claims and executes jobs with bounded concurrency, the jobs
// package's equivalent of a connection pool: a semaphore caps how many
// handlers run at once, and an errgroup supervises their goroutines so a
// panic or fatal error in one doesn't leak past Run silently.
type Worker struct {
	Queue       Queue
	Handlers    map[Type]Handler
	Concurrency int
	PollInterval time.Duration
}

// NewWorker builds a Worker with the given queue and handler table.
// Concurrency and PollInterval fall back to sensible defaults (4 workers,
// 1s poll) when left zero.
func NewWorker(queue Queue, handlers map[Type]Handler) *Worker {
	return &Worker{Queue: queue, Handlers: handlers, Concurrency: 4, PollInterval: time.Second}
}

// Run claims and dispatches jobs until ctx is cancelled, then returns
// ctx's error. It never returns an error for individual job failures or
// handler panics: execute recovers a panic, and both are recorded on the
// job itself via Queue.Fail.
func (w *Worker) Run(ctx context.Context) error {
	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	poll := w.PollInterval
	if poll <= 0 {
		poll = time.Second
	}

	sem := semaphore.NewWeighted(int64(concurrency))
	g, gctx := errgroup.WithContext(ctx)
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-gctx.Done():
			_ = g.Wait()
			return gctx.Err()
		case <-ticker.C:
			if err := sem.Acquire(gctx, 1); err != nil {
				continue
			}
			job, err := w.Queue.Claim(gctx)
			if err != nil || job == nil {
				sem.Release(1)
				continue
			}
			g.Go(func() error {
				defer sem.Release(1)
				w.execute(gctx, job)
				return nil
			})
		}
	}
}

func (w *Worker) execute(ctx context.Context, job *Job) {
	handler, ok := w.Handlers[job.Type]
	if !ok {
		_ = w.Queue.Fail(ctx, job.ID, noeticUnknownJobType(job.Type))
		return
	}

	report := func(pct int, message string) {
		_ = w.Queue.ReportProgress(ctx, job.ID, pct, message)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = w.Queue.Fail(ctx, job.ID, recoveredPanicError(r))
		}
	}()

	if _, err := handler(ctx, job, report); err != nil {
		_ = w.Queue.Fail(ctx, job.ID, err)
		return
	}
	_ = w.Queue.Complete(ctx, job.ID)
}

func noeticUnknownJobType(t Type) error {
	return fmt.Errorf("jobs.execute: no handler registered for job type %q", t)
}

func recoveredPanicError(r any) error {
	return fmt.Errorf("jobs.execute: handler panicked: %v", r)
}
