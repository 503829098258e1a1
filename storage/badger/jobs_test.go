package badger

import (
	"context"
	"testing"
	"time"

	"github.com/quarrylabs/quarry/core"
	"github.com/quarrylabs/quarry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJobStore(t *testing.T) storage.JobStore {
	t.Helper()
	_, _, jobs, backend, err := NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return jobs
}

func queuedJob(id string, runAt time.Time) *core.Job {
	return &core.Job{
		ID:          id,
		Type:        core.JobTypeEnrich,
		DocumentID:  "doc-" + id,
		Payload:     core.JobPayload{Enrich: &core.EnrichPayload{Content: "text"}},
		Status:      core.JobQueued,
		MaxAttempts: 3,
		NextRunAt:   runAt,
	}
}

func TestJobStore_EnqueueAndGet(t *testing.T) {
	jobs := newTestJobStore(t)
	ctx := context.Background()

	job := queuedJob("j1", time.Now().UTC())
	require.NoError(t, jobs.Enqueue(ctx, job))
	assert.False(t, job.EnqueuedAt.IsZero(), "Enqueue sets the enqueue timestamp")

	got, err := jobs.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, core.JobTypeEnrich, got.Type)
	require.NotNil(t, got.Payload.Enrich)
	assert.Equal(t, "text", got.Payload.Enrich.Content)
}

func TestJobStore_EnqueueDuplicate(t *testing.T) {
	jobs := newTestJobStore(t)
	ctx := context.Background()

	require.NoError(t, jobs.Enqueue(ctx, queuedJob("j1", time.Now().UTC())))
	err := jobs.Enqueue(ctx, queuedJob("j1", time.Now().UTC()))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestJobStore_GetNotFound(t *testing.T) {
	jobs := newTestJobStore(t)

	_, err := jobs.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestJobStore_DueOrderingAndCutoff(t *testing.T) {
	jobs := newTestJobStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, jobs.Enqueue(ctx, queuedJob("late", now.Add(-time.Minute))))
	require.NoError(t, jobs.Enqueue(ctx, queuedJob("early", now.Add(-time.Hour))))
	require.NoError(t, jobs.Enqueue(ctx, queuedJob("future", now.Add(time.Hour))))

	due, err := jobs.Due(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, due, 2, "future jobs stay out of the due set")
	assert.Equal(t, "early", due[0].ID, "earliest run time first")
	assert.Equal(t, "late", due[1].ID)
}

func TestJobStore_DueLimit(t *testing.T) {
	jobs := newTestJobStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, jobs.Enqueue(ctx, queuedJob(id, now.Add(-time.Minute))))
	}

	due, err := jobs.Due(ctx, now, 2)
	require.NoError(t, err)
	assert.Len(t, due, 2)
}

func TestJobStore_UpdateMovesRunTime(t *testing.T) {
	jobs := newTestJobStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	job := queuedJob("j1", now.Add(time.Hour))
	require.NoError(t, jobs.Enqueue(ctx, job))

	due, err := jobs.Due(ctx, now, 0)
	require.NoError(t, err)
	assert.Empty(t, due)

	// Backoff elapsed: reschedule into the past.
	job.Attempts = 1
	job.NextRunAt = now.Add(-time.Minute)
	require.NoError(t, jobs.Update(ctx, job))

	due, err = jobs.Due(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "j1", due[0].ID)
	assert.Equal(t, 1, due[0].Attempts)
}

func TestJobStore_TerminalJobsLeaveTheDueSet(t *testing.T) {
	jobs := newTestJobStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	job := queuedJob("j1", now.Add(-time.Minute))
	require.NoError(t, jobs.Enqueue(ctx, job))

	job.Status = core.JobCompleted
	require.NoError(t, jobs.Update(ctx, job))

	due, err := jobs.Due(ctx, now, 0)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestJobStore_RequeueRunning(t *testing.T) {
	jobs := newTestJobStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	claimed := queuedJob("claimed", now.Add(-time.Minute))
	require.NoError(t, jobs.Enqueue(ctx, claimed))
	claimed.Status = core.JobRunning
	require.NoError(t, jobs.Update(ctx, claimed))

	untouched := queuedJob("untouched", now.Add(time.Hour))
	require.NoError(t, jobs.Enqueue(ctx, untouched))

	// The claim removed the index entry: nothing is schedulable.
	due, err := jobs.Due(ctx, now, 0)
	require.NoError(t, err)
	require.Empty(t, due)

	requeued, err := jobs.RequeueRunning(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, requeued)

	due, err = jobs.Due(ctx, time.Now().UTC(), 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "claimed", due[0].ID)
	assert.Equal(t, core.JobQueued, due[0].Status)

	got, err := jobs.Get(ctx, "untouched")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour).Unix(), got.NextRunAt.Unix(), "queued jobs keep their run time")
}

func TestJobStore_UpdateNotFound(t *testing.T) {
	jobs := newTestJobStore(t)

	err := jobs.Update(context.Background(), queuedJob("missing", time.Now().UTC()))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestJobStore_PurgeTerminal(t *testing.T) {
	jobs := newTestJobStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	completed := queuedJob("done", now.Add(-time.Minute))
	require.NoError(t, jobs.Enqueue(ctx, completed))
	completed.Status = core.JobCompleted
	require.NoError(t, jobs.Update(ctx, completed))

	active := queuedJob("active", now.Add(-time.Minute))
	require.NoError(t, jobs.Enqueue(ctx, active))

	// Cutoff in the future: every terminal job is older than it.
	purged, err := jobs.PurgeTerminal(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = jobs.Get(ctx, "done")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = jobs.Get(ctx, "active")
	assert.NoError(t, err, "queued jobs are never purged")
}
