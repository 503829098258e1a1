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
	"strings"
	"time"

	"github.com/quarrylabs/quarry/ai"
	"github.com/quarrylabs/quarry/core"
	"github.com/quarrylabs/quarry/storage"
)

// EnrichProcessor runs structured metadata extraction over document content
// and folds the result into the "enrich" metadata namespace. Every run
// writes the complete namespace, so a retried job converges to the same
// state instead of accumulating partial fields.
type EnrichProcessor struct {
	docs      storage.DocumentStore
	extractor ai.MetadataExtractor
	logger    *slog.Logger
}

var _ Processor = (*EnrichProcessor)(nil)

// NewEnrichProcessor creates a processor for enrich jobs.
func NewEnrichProcessor(docs storage.DocumentStore, extractor ai.MetadataExtractor, logger *slog.Logger) *EnrichProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrichProcessor{
		docs:      docs,
		extractor: extractor,
		logger:    logger.With("component", "enrich-processor"),
	}
}

func (p *EnrichProcessor) Process(ctx context.Context, job *core.Job) error {
	payload := job.Payload.Enrich
	if payload == nil {
		return Permanent(core.ErrPayloadMismatch)
	}

	// Empty content has nothing to extract from. Short-circuit to an empty
	// but valid result without spending a model call.
	if strings.TrimSpace(payload.Content) == "" {
		p.logger.Debug("empty content, skipping extraction", "documentId", job.DocumentID)
		return p.store(ctx, job.DocumentID, &ai.DocumentFacts{})
	}

	facts, err := p.extractor.ExtractMetadata(ctx, payload.Content)
	if err != nil {
		return fmt.Errorf("extract metadata: %w", err)
	}
	return p.store(ctx, job.DocumentID, facts)
}

func (p *EnrichProcessor) store(ctx context.Context, documentID string, facts *ai.DocumentFacts) error {
	keywords := facts.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	entities := make([]map[string]any, 0, len(facts.Entities))
	for _, e := range facts.Entities {
		entities = append(entities, map[string]any{
			"name":    e.Name,
			"email":   e.Email,
			"company": e.Company,
			"domain":  e.Domain,
		})
	}

	fields := map[string]any{
		"summary":     facts.Summary,
		"keywords":    keywords,
		"entities":    entities,
		"extractedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if err := p.docs.UpdateMetadata(ctx, documentID, "enrich", fields); err != nil {
		return fmt.Errorf("store enrichment for %s: %w", documentID, err)
	}
	if err := p.docs.SetEnrichmentStatus(ctx, documentID, core.EnrichmentComplete); err != nil {
		return fmt.Errorf("mark enrichment complete for %s: %w", documentID, err)
	}

	p.logger.Debug("document enriched",
		"documentId", documentID, "keywords", len(keywords), "entities", len(entities))
	return nil
}
