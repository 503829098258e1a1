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


package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/quarrylabs/quarry/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Input longer than this is truncated before being sent to the model.
// Summaries and keywords stabilize well before this point.
const maxExtractionRunes = 8000

// MetadataExtractor implements ai.MetadataExtractor using OpenAI-compatible
// chat APIs.
type MetadataExtractor struct {
	client      llms.Model
	maxKeywords int
	logger      *slog.Logger
}

// entityRecord matches the entity objects in the LLM's JSON response.
type entityRecord struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Domain  string `json:"domain"`
}

// extraction is the wrapper structure for the LLM's JSON response.
type extraction struct {
	Summary  string         `json:"summary"`
	Keywords []string       `json:"keywords"`
	Entities []entityRecord `json:"entities"`
}

// newMetadataExtractor is an internal constructor that returns the concrete
// type. Used by Provider to manage the instance.
func newMetadataExtractor(config *ai.Config) (*MetadataExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't
	// require authentication.
	client, err := openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken("none"),
		openai.WithModel(config.ExtractorModel),
	)
	if err != nil {
		return nil, err
	}

	return &MetadataExtractor{
		client:      client,
		maxKeywords: config.MaxKeywords,
		logger:      slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewMetadataExtractor creates a new metadata extractor using the provided
// configuration.
//
// Returns ai.MetadataExtractor interface to enforce abstraction.
func NewMetadataExtractor(config *ai.Config) (ai.MetadataExtractor, error) {
	return newMetadataExtractor(config)
}

// ExtractMetadata derives a summary, keywords, and entities from text using
// an LLM. Malformed JSON responses are repaired and retried before giving up.
func (e *MetadataExtractor) ExtractMetadata(ctx context.Context, text string) (*ai.DocumentFacts, error) {
	text = truncateRunes(strings.TrimSpace(text), maxExtractionRunes)

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(extractionPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result extraction
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return &ai.DocumentFacts{Keywords: []string{}}, nil
		}

		choice := response.Choices[0]

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(choice.Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extractor response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extractor response after retries", "err", lastErr)
		return nil, lastErr
	}

	facts := &ai.DocumentFacts{
		Summary:  strings.TrimSpace(result.Summary),
		Keywords: normalizeKeywords(result.Keywords, e.maxKeywords),
	}
	for _, rec := range result.Entities {
		entity := ai.ExtractedEntity{
			Name:    strings.TrimSpace(rec.Name),
			Email:   strings.ToLower(strings.TrimSpace(rec.Email)),
			Company: strings.TrimSpace(rec.Company),
			Domain:  strings.ToLower(strings.TrimSpace(rec.Domain)),
		}
		if entity == (ai.ExtractedEntity{}) {
			continue
		}
		facts.Entities = append(facts.Entities, entity)
	}

	e.logger.Debug("extracted metadata",
		"keywords", len(facts.Keywords),
		"entities", len(facts.Entities))

	return facts, nil
}

// normalizeKeywords lowercases, trims, dedupes, and caps the keyword list
// while preserving the model's relevance ordering.
func normalizeKeywords(keywords []string, max int) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
		if len(out) == max {
			break
		}
	}
	return out
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
