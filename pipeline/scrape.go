package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quarrylabs/quarry/core"
)

// Scraper fetches a URL and returns normalized content, or nil when the page
// could not be scraped. The web ingest adapter satisfies this.
type Scraper interface {
	ScrapeURL(ctx context.Context, url string) (*core.IngestResult, error)
}

// ResultSink accepts a finished ingest result for persistence and follow-up
// processing. The pipeline facade satisfies this.
type ResultSink interface {
	AcceptResult(ctx context.Context, result *core.IngestResult) (*core.Document, error)
}

// ScrapeProcessor turns a scrape job into an ingested document. A page the
// scraper could not fetch produces no document and no error: the job
// completes with nothing to show, matching the fail-open behavior of the
// ingest adapters.
type ScrapeProcessor struct {
	scraper Scraper
	sink    ResultSink
	logger  *slog.Logger
}

var _ Processor = (*ScrapeProcessor)(nil)

// NewScrapeProcessor creates a processor for scrape jobs.
func NewScrapeProcessor(scraper Scraper, sink ResultSink, logger *slog.Logger) *ScrapeProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScrapeProcessor{
		scraper: scraper,
		sink:    sink,
		logger:  logger.With("component", "scrape-processor"),
	}
}

func (p *ScrapeProcessor) Process(ctx context.Context, job *core.Job) error {
	payload := job.Payload.Scrape
	if payload == nil {
		return Permanent(core.ErrPayloadMismatch)
	}
	if payload.URL == "" {
		return Permanent(fmt.Errorf("scrape job %s has no url", job.ID))
	}
	if p.scraper == nil {
		return Permanent(fmt.Errorf("scrape job %s: no scrape backend configured", job.ID))
	}

	result, err := p.scraper.ScrapeURL(ctx, payload.URL)
	if err != nil {
		return fmt.Errorf("scrape %s: %w", payload.URL, err)
	}
	if result == nil {
		p.logger.Warn("scrape yielded no content", "url", payload.URL)
		return nil
	}

	for k, v := range payload.Metadata {
		if result.Metadata == nil {
			result.Metadata = map[string]any{}
		}
		if _, exists := result.Metadata[k]; !exists {
			result.Metadata[k] = v
		}
	}

	doc, err := p.sink.AcceptResult(ctx, result)
	if err != nil {
		return fmt.Errorf("ingest scraped content from %s: %w", payload.URL, err)
	}
	if doc != nil {
		p.logger.Info("scraped document ingested", "url", payload.URL, "documentId", doc.ID)
	}
	return nil
}
