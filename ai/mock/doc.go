// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder,
// ai.MetadataExtractor, and ai.Provider for use in unit tests. The mocks allow
// tests to run without external AI service dependencies and enable controlled,
// deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	provider := mock.NewMockProvider()
//	vectors, err := provider.Embedder().EmbedTexts(ctx, []string{"test"})
//
//	// Custom behavior injection
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return [][]float32{{0.1, 0.2, 0.3}}, nil
//	}
//
//	// Check call counts
//	count := embedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic vectors based on text hash
//   - MockExtractor: Derives a summary and keywords from words in the text,
//     and turns tokens containing "@" into email entities
//   - MockProvider: Aggregates mock embedder and extractor
package mock
