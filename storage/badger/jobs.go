package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/quarrylabs/quarry/core"
	"github.com/quarrylabs/quarry/storage"
)

// JobStore implements storage.JobStore for BadgerDB. Queued jobs carry an
// entry in the run-time index so the scheduler can find due work without
// scanning every job.
type JobStore struct {
	backend *Backend
}

var _ storage.JobStore = (*JobStore)(nil)

// NewJobStore creates a new JobStore over the backend.
func NewJobStore(backend *Backend) *JobStore {
	return &JobStore{backend: backend}
}

// Close is a no-op; the shared backend owns the database handle.
func (s *JobStore) Close() error {
	return nil
}

// Enqueue stores a new job and indexes its run time.
func (s *JobStore) Enqueue(ctx context.Context, job *core.Job) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(job.ID)

		existing, err := s.readJob(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return storage.ErrDuplicateKey
		}

		if job.EnqueuedAt.IsZero() {
			job.EnqueuedAt = time.Now().UTC()
		}
		job.UpdatedAt = job.EnqueuedAt
		if job.NextRunAt.IsZero() {
			job.NextRunAt = job.EnqueuedAt
		}

		if err := s.writeJob(tx, key, job); err != nil {
			return err
		}
		if job.Status == core.JobQueued {
			if err := tx.Set(makeJobDueKey(job.NextRunAt, job.ID), []byte(job.ID)); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, true)
}

// Get retrieves a job by ID.
func (s *JobStore) Get(ctx context.Context, id string) (*core.Job, error) {
	var result *core.Job
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = s.readJob(tx, makeJobKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// Update persists the job's state and moves its run-time index entry.
func (s *JobStore) Update(ctx context.Context, job *core.Job) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(job.ID)

		old, err := s.readJob(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		job.UpdatedAt = time.Now().UTC()

		// Drop the old index entry before deciding whether the new state
		// needs one; only queued jobs are schedulable.
		if err := tx.Delete(makeJobDueKey(old.NextRunAt, old.ID)); err != nil {
			return err
		}
		if err := s.writeJob(tx, key, job); err != nil {
			return err
		}
		if job.Status == core.JobQueued {
			if err := tx.Set(makeJobDueKey(job.NextRunAt, job.ID), []byte(job.ID)); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, true)
}

// Due retrieves queued jobs whose run time has arrived, earliest first.
func (s *JobStore) Due(ctx context.Context, now time.Time, limit int) ([]*core.Job, error) {
	var results []*core.Job
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobDuePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			item := iter.Item()

			// BigEndian run times sort chronologically, so the first future
			// entry ends the scan.
			if jobDueKeyTime(item.Key()).After(now) {
				break
			}

			var jobID string
			err := item.Value(func(val []byte) error {
				jobID = string(val)
				return nil
			})
			if err != nil {
				return err
			}

			job, err := s.readJob(tx, makeJobKey(jobID))
			if err != nil {
				return err
			}
			if job == nil || job.Status != core.JobQueued {
				continue
			}
			results = append(results, job)
		}
		return nil
	}, false)
	return results, err
}

// RequeueRunning recovers jobs a dead consumer left in the running state.
// Claiming a job removes its run-time index entry, so without this pass a
// restarted consumer would never see the job again.
func (s *JobStore) RequeueRunning(ctx context.Context) (int, error) {
	requeued := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var stuck []*core.Job

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobPrefix + ":")
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			job, err := s.readJobItem(iter.Item())
			if err != nil {
				iter.Close()
				return err
			}
			if job.Status == core.JobRunning {
				stuck = append(stuck, job)
			}
		}
		iter.Close()

		now := time.Now().UTC()
		for _, job := range stuck {
			job.Status = core.JobQueued
			job.NextRunAt = now
			job.UpdatedAt = now
			if err := s.writeJob(tx, makeJobKey(job.ID), job); err != nil {
				return err
			}
			if err := tx.Set(makeJobDueKey(job.NextRunAt, job.ID), []byte(job.ID)); err != nil {
				return err
			}
			requeued++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return requeued, nil
}

// PurgeTerminal removes completed and failed jobs last updated before cutoff.
func (s *JobStore) PurgeTerminal(ctx context.Context, cutoff time.Time) (int, error) {
	purged := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var victims []*core.Job

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobPrefix + ":")
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			job, err := s.readJobItem(iter.Item())
			if err != nil {
				iter.Close()
				return err
			}
			if job.Terminal() && job.UpdatedAt.Before(cutoff) {
				victims = append(victims, job)
			}
		}
		iter.Close()

		for _, job := range victims {
			if err := tx.Delete(makeJobKey(job.ID)); err != nil {
				return err
			}
			// Terminal jobs shouldn't carry an index entry, but a stale one
			// is cheap to clear.
			if err := tx.Delete(makeJobDueKey(job.NextRunAt, job.ID)); err != nil {
				return err
			}
			purged++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return purged, nil
}

// readJob reads and unmarshals a job, returning nil if absent.
func (s *JobStore) readJob(tx *badger.Txn, key []byte) (*core.Job, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.readJobItem(item)
}

func (s *JobStore) readJobItem(item *badger.Item) (*core.Job, error) {
	var job *core.Job
	err := item.Value(func(val []byte) error {
		var err error
		job, err = storage.UnmarshalJob(val)
		return err
	})
	return job, err
}

func (s *JobStore) writeJob(tx *badger.Txn, key []byte, job *core.Job) error {
	value, err := storage.MarshalJob(job)
	if err != nil {
		return err
	}
	return tx.Set(key, value)
}
