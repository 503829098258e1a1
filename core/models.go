package core

import (
	"time"
)

// SourceType identifies the modality a piece of content was ingested from.
type SourceType string

const (
	SourceTypeDocument SourceType = "document"
	SourceTypeAudio    SourceType = "audio"
	SourceTypeImage    SourceType = "image"
	SourceTypeWeb      SourceType = "web"
	SourceTypeCSV      SourceType = "csv"
	SourceTypeAPI      SourceType = "api"
)

// EnrichmentStatus tracks the lifecycle of asynchronous enrichment for a document.
type EnrichmentStatus string

const (
	EnrichmentPending  EnrichmentStatus = "pending"
	EnrichmentComplete EnrichmentStatus = "complete"
	EnrichmentFailed   EnrichmentStatus = "failed"
)

// IngestResult is the normalized output produced by every modality adapter.
//
// ContentHash is computed exactly once from Text and is immutable thereafter:
// two results with identical Text always carry identical hashes.
type IngestResult struct {
	Text        string         `json:"text"`
	SourceType  SourceType     `json:"sourceType"`
	MIMEType    string         `json:"mimeType"`
	ContentHash string         `json:"contentHash"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Raw         []byte         `json:"-"` // optional raw source bytes, never persisted
}

// NewIngestResult builds an IngestResult and seals its content hash.
func NewIngestResult(text string, sourceType SourceType, mimeType string, metadata map[string]any) *IngestResult {
	return &IngestResult{
		Text:        text,
		SourceType:  sourceType,
		MIMEType:    mimeType,
		ContentHash: ContentHash(text),
		Metadata:    metadata,
	}
}

// Document is the persisted projection of an IngestResult plus lifecycle fields.
// Enrichment results accumulate into Metadata under namespaced keys
// ("enrich", "dedup", "freshness"); the pipeline only patches those namespaces,
// never the whole map.
type Document struct {
	ID               string           `json:"id"`
	Text             string           `json:"text"`
	SourceType       SourceType       `json:"sourceType"`
	MIMEType         string           `json:"mimeType"`
	ContentHash      string           `json:"contentHash"`
	IngestedAt       *time.Time       `json:"ingestedAt,omitempty"`
	ValidUntil       *time.Time       `json:"validUntil,omitempty"`
	Metadata         map[string]any   `json:"metadata,omitempty"`
	EnrichmentStatus EnrichmentStatus `json:"enrichmentStatus"`
}

// Embedding is a (sourceId, modelId, vector) triple for one chunk of a document.
//
// Vectors produced by different ModelIDs occupy unrelated vector spaces and
// must never be compared directly; every similarity computation verifies
// matching ModelIDs first.
type Embedding struct {
	SourceID string    `json:"sourceId"`
	ModelID  string    `json:"modelId"`
	Chunk    int       `json:"chunk"`
	Vector   []float32 `json:"vector"`
}
