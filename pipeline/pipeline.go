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
	"github.com/quarrylabs/quarry/ai"
	"github.com/quarrylabs/quarry/core"
	"github.com/quarrylabs/quarry/ingest"
	"github.com/quarrylabs/quarry/storage"
)

// DefaultMaxAttempts is the retry budget given to every enqueued job.
const DefaultMaxAttempts = 3

// Pipeline ties ingestion to the asynchronous job machinery: it persists
// adapter output as documents and enqueues the follow-up work (embedding,
// enrichment, duplicate checking) that runs on the queue's workers.
type Pipeline struct {
	docs     storage.DocumentStore
	embs     storage.EmbeddingStore
	queue    Queue
	registry *ingest.Registry
	provider ai.Provider
	scraper  Scraper

	modelID     string
	strategy    string
	maxAttempts int
	logger      *slog.Logger
}

var _ ResultSink = (*Pipeline)(nil)

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithModelID sets the embedding model recorded on embed and dedup jobs.
func WithModelID(modelID string) Option {
	return func(p *Pipeline) error {
		if modelID == "" {
			return fmt.Errorf("model id cannot be empty")
		}
		p.modelID = modelID
		return nil
	}
}

// WithChunkStrategy sets the default chunking strategy for embed jobs.
func WithChunkStrategy(strategy string) Option {
	return func(p *Pipeline) error {
		p.strategy = strategy
		return nil
	}
}

// WithMaxAttempts sets the retry budget for enqueued jobs.
func WithMaxAttempts(n int) Option {
	return func(p *Pipeline) error {
		if n <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.maxAttempts = n
		return nil
	}
}

// WithScraper sets the backend used by scrape jobs. Without one, scrape
// jobs fail permanently.
func WithScraper(scraper Scraper) Option {
	return func(p *Pipeline) error {
		p.scraper = scraper
		return nil
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline wires the stores, the adapter registry, the AI provider and
// the queue into a pipeline.
func NewPipeline(docs storage.DocumentStore, embs storage.EmbeddingStore, queue Queue, registry *ingest.Registry, provider ai.Provider, opts ...Option) (*Pipeline, error) {
	if docs == nil {
		return nil, ErrDocumentStoreRequired
	}
	if embs == nil {
		return nil, ErrEmbeddingStoreRequired
	}
	if queue == nil {
		return nil, ErrQueueRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	p := &Pipeline{
		docs:        docs,
		embs:        embs,
		queue:       queue,
		registry:    registry,
		provider:    provider,
		modelID:     "embeddinggemma",
		strategy:    "fixed",
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Ingest normalizes raw bytes through the adapter registry, persists the
// document, and enqueues the follow-up jobs. A nil document with nil error
// means the selected adapter soft-failed and nothing was stored.
func (p *Pipeline) Ingest(ctx context.Context, data []byte, mimeType string, opts *ingest.Options) (*core.Document, error) {
	result, err := p.registry.Ingest(ctx, data, mimeType, opts)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return p.AcceptResult(ctx, result)
}

// AcceptResult persists an ingest result as a new document and enqueues the
// embed and enrich jobs for it; the dedup check follows once embedding
// completes. Enqueue failures are logged but do not undo the ingestion: the
// document is durable and the missing work can be re-enqueued later.
func (p *Pipeline) AcceptResult(ctx context.Context, result *core.IngestResult) (*core.Document, error) {
	if err := core.ValidateIngestResult(result); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &core.Document{
		ID:               uuid.NewString(),
		Text:             result.Text,
		SourceType:       result.SourceType,
		MIMEType:         result.MIMEType,
		ContentHash:      result.ContentHash,
		IngestedAt:       &now,
		EnrichmentStatus: core.EnrichmentPending,
	}
	if len(result.Metadata) > 0 {
		doc.Metadata = map[string]any{"source": result.Metadata}
	}

	if err := p.docs.Add(ctx, doc); err != nil {
		return nil, fmt.Errorf("persist document: %w", err)
	}
	p.logger.Info("document ingested",
		"documentId", doc.ID, "sourceType", doc.SourceType, "mimeType", doc.MIMEType, "bytes", len(doc.Text))

	p.enqueueFollowUps(ctx, doc)
	return doc, nil
}

// enqueueFollowUps schedules the post-ingest jobs. Embedding and enrichment
// start immediately; the dedup check is chained behind embed completion so
// its near-duplicate tier sees the document's own vectors. Each enqueue is
// independent; one failing does not stop the other.
func (p *Pipeline) enqueueFollowUps(ctx context.Context, doc *core.Document) {
	if _, err := p.EnqueueEmbed(ctx, doc.ID, nil, p.strategy); err != nil {
		p.logger.Error("enqueueing embed job failed", "documentId", doc.ID, "error", err)
	}
	if _, err := p.EnqueueEnrich(ctx, doc.ID, doc.Text); err != nil {
		p.logger.Error("enqueueing enrich job failed", "documentId", doc.ID, "error", err)
	}
}

// EnqueueEmbed schedules an embed job. With nil chunks the processor
// re-chunks the stored document text using the given strategy.
func (p *Pipeline) EnqueueEmbed(ctx context.Context, documentID string, chunks []string, strategy string) (string, error) {
	job := p.newJob(core.JobTypeEmbed, documentID)
	job.Payload.Embed = &core.EmbedPayload{ModelID: p.modelID, Chunks: chunks, Strategy: strategy}
	return job.ID, p.queue.Enqueue(ctx, job)
}

// EnqueueEnrich schedules metadata extraction over the given content.
func (p *Pipeline) EnqueueEnrich(ctx context.Context, documentID, content string) (string, error) {
	job := p.newJob(core.JobTypeEnrich, documentID)
	job.Payload.Enrich = &core.EnrichPayload{Content: content}
	return job.ID, p.queue.Enqueue(ctx, job)
}

// EnqueueDedupCheck schedules the three-tier duplicate check. Candidate sets
// are left nil so the processor derives them from the stores.
func (p *Pipeline) EnqueueDedupCheck(ctx context.Context, documentID, contentHash string) (string, error) {
	job := p.newJob(core.JobTypeDedupCheck, documentID)
	job.Payload.DedupCheck = &core.DedupCheckPayload{ContentHash: contentHash, ModelID: p.modelID}
	return job.ID, p.queue.Enqueue(ctx, job)
}

// EnqueueReEmbed schedules a model migration for one document.
func (p *Pipeline) EnqueueReEmbed(ctx context.Context, documentID, oldModelID, newModelID string) (string, error) {
	job := p.newJob(core.JobTypeReEmbed, documentID)
	job.Payload.ReEmbed = &core.ReEmbedPayload{OldModelID: oldModelID, NewModelID: newModelID}
	return job.ID, p.queue.Enqueue(ctx, job)
}

// EnqueueFreshness schedules a freshness evaluation for one document.
func (p *Pipeline) EnqueueFreshness(ctx context.Context, documentID string) (string, error) {
	job := p.newJob(core.JobTypeFreshness, documentID)
	job.Payload.Freshness = &core.FreshnessPayload{}
	return job.ID, p.queue.Enqueue(ctx, job)
}

// EnqueueFreshnessSweep schedules a freshness pass over every document.
func (p *Pipeline) EnqueueFreshnessSweep(ctx context.Context) (string, error) {
	job := p.newJob(core.JobTypeFreshness, "")
	job.Payload.Freshness = &core.FreshnessPayload{Sweep: true}
	return job.ID, p.queue.Enqueue(ctx, job)
}

// EnqueueScrape schedules a scrape of the given URL. The metadata is merged
// into the resulting document's source metadata.
func (p *Pipeline) EnqueueScrape(ctx context.Context, url string, metadata map[string]any) (string, error) {
	job := p.newJob(core.JobTypeScrape, "")
	job.Payload.Scrape = &core.ScrapePayload{URL: url, Metadata: metadata}
	return job.ID, p.queue.Enqueue(ctx, job)
}

func (p *Pipeline) newJob(jobType core.JobType, documentID string) *core.Job {
	return &core.Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		DocumentID:  documentID,
		Status:      core.JobQueued,
		MaxAttempts: p.maxAttempts,
		NextRunAt:   time.Now().UTC(),
	}
}

// Dispatcher builds the job router for this pipeline's processors.
func (p *Pipeline) Dispatcher() *Dispatcher {
	embed := NewEmbedProcessor(p.docs, p.embs, p.provider.Embedder(), p.logger)
	embed.OnEmbedded(p.enqueueDedupAfterEmbed)
	return &Dispatcher{
		Embed:      embed,
		Enrich:     NewEnrichProcessor(p.docs, p.provider.MetadataExtractor(), p.logger),
		DedupCheck: NewDedupCheckProcessor(p.docs, p.embs, p.logger),
		ReEmbed:    NewReEmbedProcessor(p.docs, p.embs, p.provider.Embedder(), p.logger),
		Freshness:  NewFreshnessProcessor(p.docs, p.logger),
		Scrape:     NewScrapeProcessor(p.scraper, p, p.logger),
	}
}

// enqueueDedupAfterEmbed chains the duplicate check behind a finished embed
// job, so the near-duplicate tier never races the document's own vectors.
// A retried embed may enqueue the check again; the processor is idempotent.
func (p *Pipeline) enqueueDedupAfterEmbed(ctx context.Context, documentID string) error {
	doc, err := p.docs.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}
	_, err = p.EnqueueDedupCheck(ctx, documentID, doc.ContentHash)
	return err
}

// Run consumes jobs with this pipeline's processors until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, concurrency int) error {
	dispatcher := p.Dispatcher()
	return p.queue.Consume(ctx, concurrency, dispatcher.Handle)
}

// MarkEnrichmentFailed is the permanent-failure hook for enrich jobs: once
// the retry budget is gone, the document's enrichment status flips to failed
// so its pending state does not linger forever.
func (p *Pipeline) MarkEnrichmentFailed(job *core.Job) {
	if job.Type != core.JobTypeEnrich || job.DocumentID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.docs.SetEnrichmentStatus(ctx, job.DocumentID, core.EnrichmentFailed); err != nil {
		p.logger.Error("marking enrichment failed", "documentId", job.DocumentID, "error", err)
	}
}
