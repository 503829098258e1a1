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

// ReEmbedProcessor migrates a document's embeddings to a new model. The full
// set of new-model vectors is generated before anything is written, and the
// swap itself is a single atomic store operation: a crash mid-job leaves the
// old generation fully intact.
type ReEmbedProcessor struct {
	docs     storage.DocumentStore
	embs     storage.EmbeddingStore
	embedder ai.Embedder
	logger   *slog.Logger
}

var _ Processor = (*ReEmbedProcessor)(nil)

// NewReEmbedProcessor creates a processor for re-embed jobs.
func NewReEmbedProcessor(docs storage.DocumentStore, embs storage.EmbeddingStore, embedder ai.Embedder, logger *slog.Logger) *ReEmbedProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReEmbedProcessor{
		docs:     docs,
		embs:     embs,
		embedder: embedder,
		logger:   logger.With("component", "reembed-processor"),
	}
}

func (p *ReEmbedProcessor) Process(ctx context.Context, job *core.Job) error {
	payload := job.Payload.ReEmbed
	if payload == nil {
		return Permanent(core.ErrPayloadMismatch)
	}
	if payload.OldModelID == "" || payload.NewModelID == "" {
		return Permanent(fmt.Errorf("re-embed job %s is missing a model id", job.ID))
	}
	if payload.OldModelID == payload.NewModelID {
		p.logger.Debug("old and new model match, nothing to migrate", "documentId", job.DocumentID)
		return nil
	}

	chunks := payload.Chunks
	if len(chunks) == 0 {
		doc, err := p.docs.Get(ctx, job.DocumentID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return Permanent(fmt.Errorf("document %s: %w", job.DocumentID, err))
			}
			return fmt.Errorf("load document %s: %w", job.DocumentID, err)
		}
		chunks, err = chunk.Split(ctx, doc.Text, chunk.StrategyFixed, chunk.Params{})
		if err != nil {
			return err
		}
	}

	// Generate everything up front so the swap below either installs a
	// complete new generation or nothing at all.
	replacements := make([]*core.Embedding, 0, len(chunks))
	if len(chunks) > 0 {
		vectors, err := p.embedder.EmbedTexts(ctx, chunks)
		if err != nil {
			return fmt.Errorf("embed %d chunks with %s: %w", len(chunks), payload.NewModelID, err)
		}
		if len(vectors) != len(chunks) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
		}
		for i, vector := range vectors {
			replacements = append(replacements, &core.Embedding{
				SourceID: job.DocumentID,
				ModelID:  payload.NewModelID,
				Chunk:    i,
				Vector:   vector,
			})
		}
	}

	if err := p.embs.ReplaceModel(ctx, job.DocumentID, payload.OldModelID, replacements); err != nil {
		return fmt.Errorf("swap embeddings for %s: %w", job.DocumentID, err)
	}

	p.logger.Info("document re-embedded", "documentId", job.DocumentID,
		"oldModelId", payload.OldModelID, "newModelId", payload.NewModelID, "chunks", len(replacements))
	return nil
}
