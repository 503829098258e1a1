package core

import (
	"time"
)

// JobType discriminates the payload union carried by a Job.
type JobType string

const (
	JobTypeEmbed      JobType = "embed"
	JobTypeEnrich     JobType = "enrich"
	JobTypeDedupCheck JobType = "dedup-check"
	JobTypeReEmbed    JobType = "re-embed"
	JobTypeFreshness  JobType = "freshness"
	JobTypeScrape     JobType = "scrape"
)

// JobStatus is the lifecycle state of a queued job.
//
// queued -> running -> completed, or running -> queued (retry with backoff)
// up to MaxAttempts, or running -> failed once attempts are exhausted.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// EmbedPayload carries the inputs for an embed job. When Chunks is empty the
// processor re-chunks the document text using Strategy.
type EmbedPayload struct {
	ModelID  string   `json:"modelId"`
	Chunks   []string `json:"chunks,omitempty"`
	Strategy string   `json:"strategy,omitempty"`
}

// EnrichPayload carries the content to run structured metadata extraction on.
type EnrichPayload struct {
	Content string `json:"content"`
}

// DedupCheckPayload carries the subject hash plus optional caller-supplied
// candidate sets. When the candidate sets are nil the processor fetches them
// from the persistence store.
type DedupCheckPayload struct {
	ContentHash string            `json:"contentHash"`
	ModelID     string            `json:"modelId,omitempty"`
	KnownHashes []string          `json:"knownHashes,omitempty"`
	Candidates  []EntityCandidate `json:"candidates,omitempty"`
}

// EntityCandidate is an existing record's identifier fields, used by the
// entity-level deduplication check.
type EntityCandidate struct {
	DocumentID string `json:"documentId"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
	Company    string `json:"company,omitempty"`
	Domain     string `json:"domain,omitempty"`
}

// ReEmbedPayload carries the model migration inputs for a re-embed job.
type ReEmbedPayload struct {
	OldModelID string   `json:"oldModelId"`
	NewModelID string   `json:"newModelId"`
	Chunks     []string `json:"chunks,omitempty"`
}

// FreshnessPayload selects between single-document and full-sweep mode.
type FreshnessPayload struct {
	Sweep bool `json:"sweep,omitempty"`
}

// ScrapePayload carries the target of a scrape job.
type ScrapePayload struct {
	URL      string         `json:"url"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// JobPayload is a discriminated union keyed by the job's Type: exactly one
// arm is non-nil for a valid job.
type JobPayload struct {
	Embed      *EmbedPayload      `json:"embed,omitempty"`
	Enrich     *EnrichPayload     `json:"enrich,omitempty"`
	DedupCheck *DedupCheckPayload `json:"dedupCheck,omitempty"`
	ReEmbed    *ReEmbedPayload    `json:"reEmbed,omitempty"`
	Freshness  *FreshnessPayload  `json:"freshness,omitempty"`
	Scrape     *ScrapePayload     `json:"scrape,omitempty"`
}

// Job is one unit of asynchronous work. Type, DocumentID and Payload are
// immutable once enqueued; only the lifecycle bookkeeping fields change.
type Job struct {
	ID          string     `json:"id"`
	Type        JobType    `json:"type"`
	DocumentID  string     `json:"documentId,omitempty"`
	Payload     JobPayload `json:"payload"`
	Status      JobStatus  `json:"status"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"maxAttempts"`
	NextRunAt   time.Time  `json:"nextRunAt"`
	LastError   string     `json:"lastError,omitempty"`
	EnqueuedAt  time.Time  `json:"enqueuedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Terminal reports whether the job has reached a final state and will not
// run again.
func (j *Job) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}
