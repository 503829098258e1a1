package ingest

import (
	"context"
	"log/slog"

	"github.com/quarrylabs/quarry/core"
)

// Registry dispatches raw input to the first registered adapter that accepts
// its MIME type. Registration order is selection order, so more specific
// adapters should be registered before catch-all ones.
type Registry struct {
	adapters []Adapter
	logger   *slog.Logger
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default().With("component", "ingest-registry"),
	}
}

// Register appends an adapter to the dispatch order.
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// IngesterFor returns the first adapter accepting the MIME type, or nil.
func (r *Registry) IngesterFor(mimeType string) Adapter {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(mimeType) {
			return adapter
		}
	}
	return nil
}

// SupportedMIMETypes returns the union of all registered adapters' MIME
// types, deduplicated, in registration order.
func (r *Registry) SupportedMIMETypes() []string {
	var union []string
	seen := make(map[string]struct{})
	for _, adapter := range r.adapters {
		for _, m := range adapter.SupportedMIMETypes() {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			union = append(union, m)
		}
	}
	return union
}

// Ingest normalizes raw bytes via the adapter selected by MIME type.
// Returns ErrUnsupportedMIME when no adapter accepts the type. A nil result
// with nil error is the selected adapter's soft failure, passed through.
func (r *Registry) Ingest(ctx context.Context, data []byte, mimeType string, opts *Options) (*core.IngestResult, error) {
	adapter := r.IngesterFor(mimeType)
	if adapter == nil {
		r.logger.Debug("no adapter for MIME type", "mimeType", mimeType)
		return nil, ErrUnsupportedMIME
	}

	result, err := adapter.Ingest(ctx, data, mimeType, opts)
	if err != nil {
		return nil, err
	}
	if result == nil {
		r.logger.Warn("adapter produced no result", "mimeType", mimeType)
		return nil, nil
	}
	return result, nil
}
