package mock

import (
	"context"
	"strings"

	"github.com/quarrylabs/quarry/ai"
)

// MockExtractor is a test double for ai.MetadataExtractor.
// It allows custom behavior injection via function fields.
type MockExtractor struct {
	// ExtractMetadataFunc is called by ExtractMetadata if set.
	// If nil, uses default heuristic extraction.
	ExtractMetadataFunc func(ctx context.Context, text string) (*ai.DocumentFacts, error)

	callCount int
}

// NewMockExtractor creates a mock metadata extractor with default behavior.
// Returns the concrete type to allow test assertions.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// ExtractMetadata derives simple mock facts from text. Default behavior:
// the summary is the first few words, keywords are the longest distinct
// words, and any token containing "@" becomes an email entity.
func (m *MockExtractor) ExtractMetadata(ctx context.Context, text string) (*ai.DocumentFacts, error) {
	m.callCount++

	if m.ExtractMetadataFunc != nil {
		return m.ExtractMetadataFunc(ctx, text)
	}

	words := strings.Fields(text)
	facts := &ai.DocumentFacts{Keywords: []string{}}

	if len(words) > 0 {
		n := len(words)
		if n > 8 {
			n = 8
		}
		facts.Summary = strings.Join(words[:n], " ")
	}

	seen := make(map[string]struct{})
	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:\"'()[]{}"))
		if cleaned == "" {
			continue
		}

		if strings.Contains(cleaned, "@") {
			entity := ai.ExtractedEntity{Email: cleaned}
			if at := strings.LastIndex(cleaned, "@"); at >= 0 && at < len(cleaned)-1 {
				entity.Domain = cleaned[at+1:]
			}
			facts.Entities = append(facts.Entities, entity)
			continue
		}

		if len(cleaned) < 5 || len(facts.Keywords) >= 5 {
			continue
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		facts.Keywords = append(facts.Keywords, cleaned)
	}

	return facts, nil
}

// CallCount returns the number of times ExtractMetadata was called.
func (m *MockExtractor) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockExtractor) Reset() {
	m.callCount = 0
	m.ExtractMetadataFunc = nil
}
