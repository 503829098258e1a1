// Copyright 2025 Quarry Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/quarrylabs/quarry/core"
	"github.com/quarrylabs/quarry/storage"
)

// Queue defaults.
const (
	DefaultConcurrency  = 5
	DefaultPollInterval = 500 * time.Millisecond
	DefaultRetryBackoff = 2 * time.Second
	DefaultRetention    = 24 * time.Hour

	purgeEvery = time.Minute
)

// Handler processes one due job. A nil return completes the job; an error
// requeues it with backoff unless the error is permanent or the attempt
// budget is exhausted, in which case the job fails.
type Handler func(ctx context.Context, job *core.Job) error

// Queue accepts jobs for asynchronous execution and survives restarts:
// queued work is picked up again by the next Consume call.
type Queue interface {
	// Enqueue persists a job for later execution. Missing lifecycle fields
	// (ID, status, run time) are filled with defaults.
	Enqueue(ctx context.Context, job *core.Job) error

	// Consume polls for due jobs and runs them on a worker pool until ctx is
	// cancelled. Terminal jobs older than the retention window are purged as
	// a side effect.
	Consume(ctx context.Context, concurrency int, handler Handler) error
}

// DurableQueue is a Queue backed by a persistent JobStore.
type DurableQueue struct {
	jobs         storage.JobStore
	pollInterval time.Duration
	retryBackoff time.Duration
	retention    time.Duration
	onPermanent  func(job *core.Job)
	logger       *slog.Logger
}

var _ Queue = (*DurableQueue)(nil)

// QueueOption configures a DurableQueue.
type QueueOption func(*DurableQueue)

// WithPollInterval sets how often the consumer checks for due jobs.
func WithPollInterval(d time.Duration) QueueOption {
	return func(q *DurableQueue) {
		if d > 0 {
			q.pollInterval = d
		}
	}
}

// WithRetryBackoff sets the base delay before a failed job runs again. The
// delay doubles with every further failure.
func WithRetryBackoff(base time.Duration) QueueOption {
	return func(q *DurableQueue) {
		if base > 0 {
			q.retryBackoff = base
		}
	}
}

// WithRetention sets how long completed and failed jobs are kept before the
// consumer purges them.
func WithRetention(d time.Duration) QueueOption {
	return func(q *DurableQueue) {
		if d > 0 {
			q.retention = d
		}
	}
}

// WithPermanentFailureHook registers a callback invoked after a job reaches
// the failed state. The hook runs on the worker goroutine; it must not block.
func WithPermanentFailureHook(fn func(job *core.Job)) QueueOption {
	return func(q *DurableQueue) {
		q.onPermanent = fn
	}
}

// WithQueueLogger sets the logger used by the queue.
func WithQueueLogger(logger *slog.Logger) QueueOption {
	return func(q *DurableQueue) {
		if logger != nil {
			q.logger = logger.With("component", "queue")
		}
	}
}

// NewDurableQueue creates a queue over the given job store.
func NewDurableQueue(jobs storage.JobStore, opts ...QueueOption) (*DurableQueue, error) {
	if jobs == nil {
		return nil, ErrJobStoreRequired
	}

	q := &DurableQueue{
		jobs:         jobs,
		pollInterval: DefaultPollInterval,
		retryBackoff: DefaultRetryBackoff,
		retention:    DefaultRetention,
		logger:       slog.Default().With("component", "queue"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// OnPermanentFailure adds a callback invoked after a job fails for good,
// keeping any previously registered one. Call before Consume.
func (q *DurableQueue) OnPermanentFailure(fn func(job *core.Job)) {
	if prev := q.onPermanent; prev != nil {
		q.onPermanent = func(job *core.Job) {
			prev(job)
			fn(job)
		}
		return
	}
	q.onPermanent = fn
}

// Enqueue persists a job. The payload arm must match the job type.
func (q *DurableQueue) Enqueue(ctx context.Context, job *core.Job) error {
	if err := core.ValidateJob(job); err != nil {
		return err
	}

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = core.JobQueued
	}
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = 1
	}
	if job.NextRunAt.IsZero() {
		job.NextRunAt = time.Now().UTC()
	}

	if err := q.jobs.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue %s job: %w", job.Type, err)
	}

	q.logger.Debug("job enqueued", "jobId", job.ID, "type", job.Type, "documentId", job.DocumentID)
	return nil
}

// Consume runs the polling loop until ctx is cancelled. It always returns
// nil after a clean shutdown; storage errors during polling are logged and
// retried on the next tick.
func (q *DurableQueue) Consume(ctx context.Context, concurrency int, handler Handler) error {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}

	// A crashed consumer leaves claimed jobs in the running state with no
	// run-time index entry; return them to the queue before polling starts.
	if n, err := q.jobs.RequeueRunning(ctx); err != nil {
		q.logger.Error("requeueing interrupted jobs failed", "error", err)
	} else if n > 0 {
		q.logger.Info("requeued interrupted jobs", "count", n)
	}

	q.logger.Info("consumer started", "concurrency", concurrency, "pollInterval", q.pollInterval)

	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()

	lastPurge := time.Now()
	for {
		select {
		case <-ctx.Done():
			// Drain in-flight jobs before returning; anything that could not
			// finish stays running in the store and is requeued when the next
			// consumer starts.
			if err := pool.ReleaseTimeout(10 * time.Second); err != nil {
				q.logger.Warn("worker pool did not drain cleanly", "error", err)
			}
			q.logger.Info("consumer stopped")
			return nil
		case <-ticker.C:
		}

		now := time.Now().UTC()
		due, err := q.jobs.Due(ctx, now, concurrency*2)
		if err != nil {
			q.logger.Error("polling for due jobs failed", "error", err)
			continue
		}

		for _, job := range due {
			// Claim synchronously so the next tick cannot pick the job up again.
			job.Status = core.JobRunning
			if err := q.jobs.Update(ctx, job); err != nil {
				q.logger.Error("claiming job failed", "jobId", job.ID, "error", err)
				continue
			}

			claimed := job
			if err := pool.Submit(func() {
				q.run(ctx, claimed, handler)
			}); err != nil {
				claimed.Status = core.JobQueued
				if uerr := q.jobs.Update(ctx, claimed); uerr != nil {
					q.logger.Error("releasing claimed job failed", "jobId", claimed.ID, "error", uerr)
				}
			}
		}

		if time.Since(lastPurge) >= purgeEvery {
			lastPurge = time.Now()
			if n, err := q.jobs.PurgeTerminal(ctx, now.Add(-q.retention)); err != nil {
				q.logger.Error("purging terminal jobs failed", "error", err)
			} else if n > 0 {
				q.logger.Debug("purged terminal jobs", "count", n)
			}
		}
	}
}

// run executes one claimed job and persists the outcome.
func (q *DurableQueue) run(ctx context.Context, job *core.Job, handler Handler) {
	err := q.safeHandle(ctx, job, handler)
	if err == nil {
		job.Status = core.JobCompleted
		job.LastError = ""
		if uerr := q.jobs.Update(ctx, job); uerr != nil {
			q.logger.Error("persisting job completion failed", "jobId", job.ID, "error", uerr)
		}
		q.logger.Debug("job completed", "jobId", job.ID, "type", job.Type, "attempts", job.Attempts+1)
		return
	}

	job.Attempts++
	job.LastError = err.Error()

	if IsPermanent(err) || job.Attempts >= job.MaxAttempts {
		job.Status = core.JobFailed
		if uerr := q.jobs.Update(ctx, job); uerr != nil {
			q.logger.Error("persisting job failure failed", "jobId", job.ID, "error", uerr)
		}
		q.logger.Warn("job failed permanently",
			"jobId", job.ID, "type", job.Type, "attempts", job.Attempts, "error", err)
		if q.onPermanent != nil {
			q.onPermanent(job)
		}
		return
	}

	// Requeue with exponentially growing delay: base, 2*base, 4*base, ...
	delay := q.retryBackoff << (job.Attempts - 1)
	job.Status = core.JobQueued
	job.NextRunAt = time.Now().UTC().Add(delay)
	if uerr := q.jobs.Update(ctx, job); uerr != nil {
		q.logger.Error("requeueing job failed", "jobId", job.ID, "error", uerr)
		return
	}
	q.logger.Debug("job requeued",
		"jobId", job.ID, "type", job.Type, "attempt", job.Attempts, "nextRunAt", job.NextRunAt, "error", err)
}

// safeHandle shields the queue from handler panics: a panicking job fails
// like any other error instead of taking the worker down.
func (q *DurableQueue) safeHandle(ctx context.Context, job *core.Job, handler Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Permanent(fmt.Errorf("handler panic: %v", r))
		}
	}()
	return handler(ctx, job)
}
