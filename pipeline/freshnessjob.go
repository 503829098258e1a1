package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quarrylabs/quarry/core"
	"github.com/quarrylabs/quarry/freshness"
	"github.com/quarrylabs/quarry/storage"
)

// FreshnessProcessor evaluates decay for one document or, in sweep mode, for
// every stored document. The verdict lands in the "freshness" metadata
// namespace; documents whose status and multiplier are unchanged are not
// rewritten, which keeps sweeps cheap on a mostly-stable corpus.
type FreshnessProcessor struct {
	docs   storage.DocumentStore
	now    func() time.Time
	logger *slog.Logger
}

var _ Processor = (*FreshnessProcessor)(nil)

// NewFreshnessProcessor creates a processor for freshness jobs.
func NewFreshnessProcessor(docs storage.DocumentStore, logger *slog.Logger) *FreshnessProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FreshnessProcessor{
		docs:   docs,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With("component", "freshness-processor"),
	}
}

func (p *FreshnessProcessor) Process(ctx context.Context, job *core.Job) error {
	payload := job.Payload.Freshness
	if payload == nil {
		return Permanent(core.ErrPayloadMismatch)
	}

	if payload.Sweep {
		return p.sweep(ctx)
	}

	doc, err := p.docs.Get(ctx, job.DocumentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", job.DocumentID, err)
	}
	_, err = p.evaluate(ctx, doc)
	return err
}

func (p *FreshnessProcessor) sweep(ctx context.Context) error {
	docs, err := p.docs.List(ctx, 0)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	updated := 0
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		changed, err := p.evaluate(ctx, doc)
		if err != nil {
			return err
		}
		if changed {
			updated++
		}
	}

	p.logger.Info("freshness sweep finished", "documents", len(docs), "updated", updated)
	return nil
}

// evaluate scores one document and persists the verdict if it moved.
func (p *FreshnessProcessor) evaluate(ctx context.Context, doc *core.Document) (bool, error) {
	status, multiplier := freshness.Evaluate(doc, p.now())

	if prevStatus, prevMultiplier, ok := recordedFreshness(doc); ok &&
		prevStatus == string(status) && prevMultiplier == multiplier {
		return false, nil
	}

	fields := map[string]any{
		"status":      string(status),
		"multiplier":  multiplier,
		"evaluatedAt": p.now().Format(time.RFC3339),
	}
	if err := p.docs.UpdateMetadata(ctx, doc.ID, "freshness", fields); err != nil {
		return false, fmt.Errorf("store freshness for %s: %w", doc.ID, err)
	}

	p.logger.Debug("freshness updated", "documentId", doc.ID, "status", status, "multiplier", multiplier)
	return true, nil
}

func recordedFreshness(doc *core.Document) (status string, multiplier float64, ok bool) {
	if doc.Metadata == nil {
		return "", 0, false
	}
	ns, nsOK := doc.Metadata["freshness"].(map[string]any)
	if !nsOK {
		return "", 0, false
	}
	status, sOK := ns["status"].(string)
	multiplier, mOK := ns["multiplier"].(float64)
	return status, multiplier, sOK && mOK
}
