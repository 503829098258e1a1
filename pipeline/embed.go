package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quarrylabs/quarry/ai"
	"github.com/quarrylabs/quarry/chunk"
	"github.com/quarrylabs/quarry/core"
	"github.com/quarrylabs/quarry/storage"
)

// EmbedProcessor chunks a document and stores one embedding per chunk.
// Re-running it overwrites the same (source, model, chunk) coordinates, so a
// retried job never leaves duplicate vectors behind.
type EmbedProcessor struct {
	docs       storage.DocumentStore
	embs       storage.EmbeddingStore
	embedder   ai.Embedder
	onEmbedded func(ctx context.Context, documentID string) error
	logger     *slog.Logger
}

var _ Processor = (*EmbedProcessor)(nil)

// NewEmbedProcessor creates a processor for embed jobs.
func NewEmbedProcessor(docs storage.DocumentStore, embs storage.EmbeddingStore, embedder ai.Embedder, logger *slog.Logger) *EmbedProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbedProcessor{
		docs:     docs,
		embs:     embs,
		embedder: embedder,
		logger:   logger.With("component", "embed-processor"),
	}
}

// OnEmbedded registers a callback invoked once the document's embeddings are
// stored. An error from the callback fails the job; the embedding write is
// idempotent, so a retry repeats both the write and the callback.
func (p *EmbedProcessor) OnEmbedded(fn func(ctx context.Context, documentID string) error) {
	p.onEmbedded = fn
}

func (p *EmbedProcessor) Process(ctx context.Context, job *core.Job) error {
	payload := job.Payload.Embed
	if payload == nil {
		return Permanent(core.ErrPayloadMismatch)
	}
	if payload.ModelID == "" {
		return Permanent(fmt.Errorf("embed job %s has no model id", job.ID))
	}

	chunks := payload.Chunks
	if len(chunks) == 0 {
		var err error
		chunks, err = p.rechunk(ctx, job.DocumentID, payload.Strategy)
		if err != nil {
			return err
		}
	}
	if len(chunks) == 0 {
		p.logger.Debug("nothing to embed", "documentId", job.DocumentID)
		return nil
	}

	vectors, err := p.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	embeddings := make([]*core.Embedding, len(chunks))
	for i := range chunks {
		embeddings[i] = &core.Embedding{
			SourceID: job.DocumentID,
			ModelID:  payload.ModelID,
			Chunk:    i,
			Vector:   vectors[i],
		}
	}
	if err := p.embs.Put(ctx, embeddings...); err != nil {
		return fmt.Errorf("store embeddings: %w", err)
	}

	if p.onEmbedded != nil {
		if err := p.onEmbedded(ctx, job.DocumentID); err != nil {
			return fmt.Errorf("post-embed follow-up for %s: %w", job.DocumentID, err)
		}
	}

	p.logger.Debug("document embedded",
		"documentId", job.DocumentID, "modelId", payload.ModelID, "chunks", len(chunks))
	return nil
}

// rechunk rebuilds the chunk list from the stored document text. A missing
// document is permanent: it will not reappear on retry.
func (p *EmbedProcessor) rechunk(ctx context.Context, documentID, strategyName string) ([]string, error) {
	doc, err := p.docs.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, Permanent(fmt.Errorf("document %s: %w", documentID, err))
		}
		return nil, fmt.Errorf("load document %s: %w", documentID, err)
	}

	strategy, err := chunk.ParseStrategy(strategyName)
	if err != nil {
		return nil, Permanent(err)
	}
	return chunk.Split(ctx, doc.Text, strategy, chunk.Params{Embed: p.embedder.EmbedTexts})
}
