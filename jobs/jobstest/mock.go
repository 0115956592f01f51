// Package jobstest provides an in-memory jobs.Queue for tests, the same
// role archivetest.MockStore plays for archive.Store.
package jobstest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/zoobzio/noetic"
	"github.com/zoobzio/noetic/jobs"
)

// MockQueue implements jobs.Queue with an in-memory map guarded by a
// single mutex. Claim scans for the oldest due pending job, same
// ordering as SoyQueue but without the optimistic-update race (a single
// mutex makes the whole operation atomic here).
type MockQueue struct {
	mu   sync.Mutex
	jobs map[string]*jobs.Job
}

// New creates an empty MockQueue.
func New() *MockQueue {
	return &MockQueue{jobs: make(map[string]*jobs.Job)}
}

func (q *MockQueue) Enqueue(_ context.Context, jobType jobs.Type, payload any, maxAttempts int) (*jobs.Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, noetic.InvalidInput("jobstest.enqueue", "failed to marshal payload")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	job := &jobs.Job{
		ID: noetic.NewID(), Type: jobType, Status: jobs.StatusPending,
		Payload: string(raw), MaxAttempts: maxAttempts,
		CreatedAt: now, UpdatedAt: now, NextAttemptAt: now,
	}
	q.jobs[job.ID] = job
	cp := *job
	return &cp, nil
}

func (q *MockQueue) Claim(_ context.Context) (*jobs.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()

	var best *jobs.Job
	for _, j := range q.jobs {
		if j.Status != jobs.StatusPending || j.NextAttemptAt.After(now) {
			continue
		}
		if best == nil || j.CreatedAt.Before(best.CreatedAt) {
			best = j
		}
	}
	if best == nil {
		return nil, nil
	}
	best.Status = jobs.StatusRunning
	best.UpdatedAt = now
	cp := *best
	return &cp, nil
}

func (q *MockQueue) ReportProgress(_ context.Context, jobID string, pct int, message string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[jobID]
	if !ok {
		return noetic.NotFound("jobstest.report_progress", "Job "+jobID+" not found")
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	j.Progress = pct
	j.ProgressMessage = message
	j.UpdatedAt = time.Now()
	return nil
}

func (q *MockQueue) Complete(_ context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[jobID]
	if !ok {
		return noetic.NotFound("jobstest.complete", "Job "+jobID+" not found")
	}
	j.Status = jobs.StatusSucceeded
	j.Progress = 100
	j.UpdatedAt = time.Now()
	return nil
}

func (q *MockQueue) Fail(_ context.Context, jobID string, lastErr error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[jobID]
	if !ok {
		return noetic.NotFound("jobstest.fail", "Job "+jobID+" not found")
	}
	j.Attempts++
	j.LastError = lastErr.Error()
	now := time.Now()
	if j.Attempts >= j.MaxAttempts {
		j.Status = jobs.StatusFailed
	} else {
		// Unlike SoyQueue, the mock doesn't simulate the backoff delay
		// itself: NextAttemptAt stays due immediately so tests can
		// re-claim a retried job without sleeping.
		j.Status = jobs.StatusPending
		j.NextAttemptAt = now
	}
	j.UpdatedAt = now
	return nil
}

func (q *MockQueue) Cancel(_ context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[jobID]
	if !ok {
		return noetic.NotFound("jobstest.cancel", "Job "+jobID+" not found")
	}
	switch j.Status {
	case jobs.StatusPending:
		j.Status = jobs.StatusCancelled
	case jobs.StatusRunning:
		j.CancelRequested = true
	default:
		return noetic.Conflict("jobstest.cancel", "job is not pending or running")
	}
	j.UpdatedAt = time.Now()
	return nil
}

func (q *MockQueue) IsCancelled(_ context.Context, jobID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[jobID]
	if !ok {
		return false, noetic.NotFound("jobstest.is_cancelled", "Job "+jobID+" not found")
	}
	return j.CancelRequested, nil
}

func (q *MockQueue) Get(_ context.Context, jobID string) (*jobs.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[jobID]
	if !ok {
		return nil, noetic.NotFound("jobstest.get", "Job "+jobID+" not found")
	}
	cp := *j
	return &cp, nil
}

func (q *MockQueue) Stats(_ context.Context) (jobs.Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var s jobs.Stats
	for _, j := range q.jobs {
		switch j.Status {
		case jobs.StatusPending:
			s.Pending++
		case jobs.StatusRunning:
			s.Running++
		case jobs.StatusSucceeded:
			s.Succeeded++
		case jobs.StatusFailed:
			s.Failed++
		case jobs.StatusCancelled:
			s.Cancelled++
		}
	}
	return s, nil
}

// All returns every job currently held, for test assertions.
func (q *MockQueue) All() []*jobs.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*jobs.Job, 0, len(q.jobs))
	for _, j := range q.jobs {
		cp := *j
		out = append(out, &cp)
	}
	return out
}

var _ jobs.Queue = (*MockQueue)(nil)
