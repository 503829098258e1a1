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

package quarry

import (
	"context"
	"log/slog"

	"github.com/quarrylabs/quarry/ai"
	"github.com/quarrylabs/quarry/ai/openai"
	"github.com/quarrylabs/quarry/core"
	"github.com/quarrylabs/quarry/ingest"
	"github.com/quarrylabs/quarry/pipeline"
	"github.com/quarrylabs/quarry/storage"
	"github.com/quarrylabs/quarry/storage/badger"
)

// Quarry owns the full ingestion stack: the storage backend, the modality
// adapter registry, the AI provider and the job pipeline. Open one per data
// directory; all methods are safe for concurrent use.
type Quarry struct {
	backend  *badger.Backend
	docs     storage.DocumentStore
	embs     storage.EmbeddingStore
	jobs     storage.JobStore
	queue    *pipeline.DurableQueue
	registry *ingest.Registry
	provider ai.Provider
	pipe     *pipeline.Pipeline
	logger   *slog.Logger
}

// Option configures a Quarry.
type Option func(*quarryOptions)

type quarryOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
	inMemory bool

	chunkStrategy string
	maxAttempts   int
	queueOpts     []pipeline.QueueOption

	extractionURL    string
	transcriptionURL string
	layoutURL        string
	scrapeURL        string
}

// WithAIConfig sets the AI service configuration.
func WithAIConfig(config *ai.Config) Option {
	return func(o *quarryOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider supplies a pre-built AI provider instead of the default
// OpenAI-compatible one. Useful for tests.
func WithProvider(provider ai.Provider) Option {
	return func(o *quarryOptions) {
		o.provider = provider
	}
}

// WithInMemory keeps all data in memory. Nothing survives Close.
func WithInMemory() Option {
	return func(o *quarryOptions) {
		o.inMemory = true
	}
}

// WithChunkStrategy sets the default chunking strategy for embed jobs.
func WithChunkStrategy(strategy string) Option {
	return func(o *quarryOptions) {
		o.chunkStrategy = strategy
	}
}

// WithMaxAttempts sets the retry budget for pipeline jobs.
func WithMaxAttempts(n int) Option {
	return func(o *quarryOptions) {
		o.maxAttempts = n
	}
}

// WithQueueOptions passes tuning options through to the job queue.
func WithQueueOptions(opts ...pipeline.QueueOption) Option {
	return func(o *quarryOptions) {
		o.queueOpts = append(o.queueOpts, opts...)
	}
}

// WithExtractionService sets the URL of the document text extraction service.
func WithExtractionService(url string) Option {
	return func(o *quarryOptions) {
		o.extractionURL = url
	}
}

// WithTranscriptionService sets the URL of the audio transcription service.
// Without it, audio ingestion is disabled.
func WithTranscriptionService(url string) Option {
	return func(o *quarryOptions) {
		o.transcriptionURL = url
	}
}

// WithLayoutService sets the URL of the image OCR layout service.
func WithLayoutService(url string) Option {
	return func(o *quarryOptions) {
		o.layoutURL = url
	}
}

// WithScrapeService sets the URL of the web scrape service. Without it, web
// ingestion falls back to local HTML conversion and scrape jobs are disabled.
func WithScrapeService(url string) Option {
	return func(o *quarryOptions) {
		o.scrapeURL = url
	}
}

// Open initializes the storage backend, adapter registry, AI provider and
// pipeline rooted at filePath. Close must be called when done.
func Open(filePath string, opts ...Option) (*Quarry, error) {
	options := &quarryOptions{
		aiConfig:    ai.DefaultConfig(),
		maxAttempts: pipeline.DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	docs := badger.NewDocumentStore(backend)
	embs := badger.NewEmbeddingStore(backend)
	jobs := badger.NewJobStore(backend)

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	queue, err := pipeline.NewDurableQueue(jobs, options.queueOpts...)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	registry, webAdapter := buildRegistry(options)

	pipeOpts := []pipeline.Option{
		pipeline.WithModelID(options.aiConfig.EmbeddingModel),
		pipeline.WithMaxAttempts(options.maxAttempts),
	}
	if options.chunkStrategy != "" {
		pipeOpts = append(pipeOpts, pipeline.WithChunkStrategy(options.chunkStrategy))
	}
	if webAdapter != nil {
		pipeOpts = append(pipeOpts, pipeline.WithScraper(webAdapter))
	}

	pipe, err := pipeline.NewPipeline(docs, embs, queue, registry, provider, pipeOpts...)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	// Enrich jobs that exhaust their retries leave the document marked
	// failed instead of pending forever.
	queue.OnPermanentFailure(pipe.MarkEnrichmentFailed)

	return &Quarry{
		backend:  backend,
		docs:     docs,
		embs:     embs,
		jobs:     jobs,
		queue:    queue,
		registry: registry,
		provider: provider,
		pipe:     pipe,
		logger:   slog.Default(),
	}, nil
}

// buildRegistry assembles the adapter registry. Specific adapters come
// before the catch-all document adapter; adapters needing a backing service
// are only registered when one is configured.
func buildRegistry(options *quarryOptions) (*ingest.Registry, *ingest.WebAdapter) {
	registry := ingest.NewRegistry()

	if options.transcriptionURL != "" {
		registry.Register(ingest.NewAudioAdapter(options.transcriptionURL))
	}

	var imageOpts []ingest.ImageOption
	if options.layoutURL != "" {
		imageOpts = append(imageOpts, ingest.WithLayoutService(options.layoutURL))
	}
	registry.Register(ingest.NewImageAdapter(imageOpts...))

	webAdapter := ingest.NewWebAdapter(options.scrapeURL)
	registry.Register(webAdapter)

	registry.Register(ingest.NewCSVAdapter())
	registry.Register(ingest.NewAPIFeedAdapter())

	var docOpts []ingest.DocumentOption
	if options.extractionURL != "" {
		docOpts = append(docOpts, ingest.WithExtractionService(options.extractionURL))
	}
	registry.Register(ingest.NewDocumentAdapter(docOpts...))

	if options.scrapeURL == "" {
		return registry, nil
	}
	return registry, webAdapter
}

// Close shuts down the provider and the storage backend.
func (q *Quarry) Close() error {
	if err := q.provider.Close(); err != nil {
		q.logger.Error("error closing AI provider", "err", err)
	}
	if err := q.backend.Close(); err != nil {
		q.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Ingest normalizes raw bytes, stores the resulting document, and enqueues
// its follow-up jobs. Returns nil, nil when the responsible adapter could
// not produce content from the input.
func (q *Quarry) Ingest(ctx context.Context, data []byte, mimeType string, opts *ingest.Options) (*core.Document, error) {
	return q.pipe.Ingest(ctx, data, mimeType, opts)
}

// SupportedMIMETypes lists the MIME types the configured adapters accept.
func (q *Quarry) SupportedMIMETypes() []string {
	return q.registry.SupportedMIMETypes()
}

// Run processes queued jobs until ctx is cancelled. Call it from a dedicated
// goroutine or a worker command.
func (q *Quarry) Run(ctx context.Context, concurrency int) error {
	return q.pipe.Run(ctx, concurrency)
}

// Sweep enqueues a freshness evaluation over every stored document and
// returns the job ID.
func (q *Quarry) Sweep(ctx context.Context) (string, error) {
	return q.pipe.EnqueueFreshnessSweep(ctx)
}

// Pipeline exposes the job pipeline for enqueueing work directly.
func (q *Quarry) Pipeline() *pipeline.Pipeline {
	return q.pipe
}

// DocumentStore exposes the document store.
func (q *Quarry) DocumentStore() storage.DocumentStore {
	return q.docs
}

// EmbeddingStore exposes the embedding store.
func (q *Quarry) EmbeddingStore() storage.EmbeddingStore {
	return q.embs
}

// JobStore exposes the job store.
func (q *Quarry) JobStore() storage.JobStore {
	return q.jobs
}
