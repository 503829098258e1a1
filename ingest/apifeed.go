package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/quarrylabs/quarry/core"
)

// APIFeedAdapter flattens JSON payloads (single objects, arrays of objects,
// or NDJSON streams) into "key: value" text. Invalid JSON soft-fails to nil.
type APIFeedAdapter struct {
	logger *slog.Logger
}

var _ Adapter = (*APIFeedAdapter)(nil)

// NewAPIFeedAdapter creates an API-feed adapter.
func NewAPIFeedAdapter() *APIFeedAdapter {
	return &APIFeedAdapter{
		logger: slog.Default().With("component", "apifeed-adapter"),
	}
}

// SupportedMIMETypes returns the MIME types this adapter handles.
func (a *APIFeedAdapter) SupportedMIMETypes() []string {
	return []string{"application/json", "application/x-ndjson", "application/ndjson"}
}

// CanHandle reports whether the adapter accepts the MIME type.
func (a *APIFeedAdapter) CanHandle(mimeType string) bool {
	return mimeSupported(mimeType, a.SupportedMIMETypes())
}

// Ingest flattens a JSON payload into text.
func (a *APIFeedAdapter) Ingest(ctx context.Context, data []byte, mimeType string, opts *Options) (*core.IngestResult, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	values, ok := a.decode(data, normalizeMIME(mimeType))
	if !ok {
		return nil, nil
	}

	var blocks []string
	for _, value := range values {
		lines := flattenValue("", value)
		if len(lines) == 0 {
			continue
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	text := strings.TrimSpace(strings.Join(blocks, "\n\n"))
	if text == "" {
		a.logger.Warn("api feed carried no values")
		return nil, nil
	}

	metadata := baseMetadata(opts)
	metadata["records"] = len(values)

	return core.NewIngestResult(text, core.SourceTypeAPI, normalizeMIME(mimeType), metadata), nil
}

// decode parses the payload into a list of top-level values. A JSON array is
// one record per element; NDJSON is one record per line.
func (a *APIFeedAdapter) decode(data []byte, mimeType string) ([]any, bool) {
	if mimeType == "application/x-ndjson" || mimeType == "application/ndjson" {
		var values []any
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			var value any
			if err := json.Unmarshal([]byte(line), &value); err != nil {
				a.logger.Warn("invalid ndjson line", "err", err)
				return nil, false
			}
			values = append(values, value)
		}
		return values, true
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		a.logger.Warn("invalid json payload", "err", err)
		return nil, false
	}
	if arr, ok := value.([]any); ok {
		return arr, true
	}
	return []any{value}, true
}

// flattenValue renders a JSON value as "path: value" lines, nested keys
// joined with dots, map keys in sorted order for deterministic output.
func flattenValue(prefix string, value any) []string {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var lines []string
		for _, k := range keys {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			lines = append(lines, flattenValue(path, v[k])...)
		}
		return lines
	case []any:
		var lines []string
		for i, item := range v {
			path := fmt.Sprintf("%s[%d]", prefix, i)
			lines = append(lines, flattenValue(path, item)...)
		}
		return lines
	case nil:
		return nil
	default:
		if prefix == "" {
			return []string{fmt.Sprintf("%v", v)}
		}
		return []string{fmt.Sprintf("%s: %v", prefix, v)}
	}
}
