package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice contains embeddings in the same order as the
	// input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// MetadataExtractor derives structured facts from document text: a short
// summary, topical keywords, and any contact entities mentioned.
// Implementations must be thread-safe for concurrent use.
type MetadataExtractor interface {
	// ExtractMetadata analyzes text and returns the facts it could derive.
	// A document with no recognizable entities still yields a summary and
	// keywords; the Entities slice is simply empty.
	ExtractMetadata(ctx context.Context, text string) (*DocumentFacts, error)
}

// DocumentFacts is the result of metadata extraction over one document.
type DocumentFacts struct {
	// Summary is a one- or two-sentence abstract of the text.
	Summary string

	// Keywords are lowercase topical terms, most relevant first.
	Keywords []string

	// Entities lists people or organizations the text identifies well enough
	// to be useful for cross-document matching.
	Entities []ExtractedEntity
}

// ExtractedEntity is a contact-like record found in text. Any subset of the
// fields may be populated; empty fields mean the text did not supply them.
type ExtractedEntity struct {
	Name    string
	Email   string
	Company string
	Domain  string
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Embedder and MetadataExtractor
// instances, ensuring they share configuration and resources.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// MetadataExtractor returns the metadata extraction service.
	MetadataExtractor() MetadataExtractor

	// Close releases resources held by the provider and its services.
	Close() error
}
