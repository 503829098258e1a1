package storage

import (
	"context"
	"time"

	"github.com/quarrylabs/quarry/core"
)

// HashRef pairs a document ID with its content hash. Used to build the
// candidate set for exact-duplicate checks.
type HashRef struct {
	DocumentID  string
	ContentHash string
}

// DocumentStore provides operations for managing ingested documents.
// Implementations must be thread-safe and support concurrent access.
type DocumentStore interface {
	// Add stores a new document. Sets IngestedAt to the current time if the
	// document doesn't carry one. Returns ErrDuplicateKey if a document with
	// the same ID already exists.
	Add(ctx context.Context, doc *core.Document) error

	// Get retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	Get(ctx context.Context, id string) (*core.Document, error)

	// Delete removes a document and its content-hash index entry.
	// Returns ErrNotFound if the document doesn't exist.
	Delete(ctx context.Context, id string) error

	// List retrieves up to limit documents. A limit <= 0 means no limit.
	// Order is unspecified.
	List(ctx context.Context, limit int) ([]*core.Document, error)

	// UpdateMetadata merges fields into the named namespace of the document's
	// metadata. Existing keys in the namespace are overwritten, keys absent
	// from fields are left untouched, and other namespaces are never modified.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateMetadata(ctx context.Context, id, namespace string, fields map[string]any) error

	// SetEnrichmentStatus updates the document's enrichment status.
	// Returns ErrNotFound if the document doesn't exist.
	SetEnrichmentStatus(ctx context.Context, id string, status core.EnrichmentStatus) error

	// FindByContentHash returns the ID of the document carrying the given
	// content hash. Returns ErrNotFound if no document matches.
	FindByContentHash(ctx context.Context, hash string) (string, error)

	// ListOtherContentHashes returns the content hashes of up to limit
	// documents other than excludeID. A limit <= 0 means no limit.
	ListOtherContentHashes(ctx context.Context, excludeID string, limit int) ([]HashRef, error)

	// Close releases resources held by the store.
	Close() error
}

// EmbeddingStore provides operations for managing chunk embeddings.
// Implementations must be thread-safe and support concurrent access.
type EmbeddingStore interface {
	// Put stores embeddings, overwriting any existing embedding with the same
	// (source, model, chunk) coordinates.
	Put(ctx context.Context, embeddings ...*core.Embedding) error

	// GetBySource retrieves all embeddings for a document under the given
	// model, ordered by chunk index. Returns an empty slice if none exist.
	GetBySource(ctx context.Context, sourceID, modelID string) ([]*core.Embedding, error)

	// DeleteBySource removes all embeddings for a document across all models.
	DeleteBySource(ctx context.Context, sourceID string) error

	// ListSourceIDs returns the distinct document IDs that have embeddings
	// under the given model.
	ListSourceIDs(ctx context.Context, modelID string) ([]string, error)

	// ListOtherEmbeddings retrieves up to limit embeddings under the given
	// model, excluding those of excludeID. A limit <= 0 means no limit.
	// Used to build the candidate set for near-duplicate detection.
	ListOtherEmbeddings(ctx context.Context, modelID, excludeID string, limit int) ([]*core.Embedding, error)

	// ReplaceModel atomically swaps a document's embeddings: within one
	// transaction the oldModelID embeddings for the source are deleted and
	// the provided replacements are written. Readers never observe a state
	// with both generations or neither.
	ReplaceModel(ctx context.Context, sourceID, oldModelID string, replacements []*core.Embedding) error

	// Close releases resources held by the store.
	Close() error
}

// JobStore provides durable persistence for pipeline jobs.
// Implementations must be thread-safe and support concurrent access.
type JobStore interface {
	// Enqueue stores a new job. Sets EnqueuedAt to the current time if the
	// job doesn't carry one. Returns ErrDuplicateKey if a job with the same
	// ID already exists.
	Enqueue(ctx context.Context, job *core.Job) error

	// Get retrieves a job by ID.
	// Returns ErrNotFound if the job doesn't exist.
	Get(ctx context.Context, id string) (*core.Job, error)

	// Update persists the job's current state and re-indexes its run time.
	// Returns ErrNotFound if the job doesn't exist.
	Update(ctx context.Context, job *core.Job) error

	// Due retrieves up to limit queued jobs whose NextRunAt is at or before
	// now, ordered by NextRunAt ascending. Jobs in other states are never
	// returned.
	Due(ctx context.Context, now time.Time, limit int) ([]*core.Job, error)

	// RequeueRunning returns every running job to the queued state with an
	// immediate run time and restores its run-time index entry. Returns the
	// number of jobs requeued. A starting consumer calls this to recover
	// work a crashed predecessor claimed but never finished.
	RequeueRunning(ctx context.Context) (int, error)

	// PurgeTerminal removes completed and failed jobs last updated before
	// the cutoff. Returns the number of jobs removed.
	PurgeTerminal(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases resources held by the store.
	Close() error
}
