package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quarrylabs/quarry/core"
)

// CSVAdapter renders tabular data as text, one line per row, pairing each
// cell with its column header. Unparseable input soft-fails to nil.
type CSVAdapter struct {
	logger *slog.Logger
}

var _ Adapter = (*CSVAdapter)(nil)

// NewCSVAdapter creates a CSV adapter.
func NewCSVAdapter() *CSVAdapter {
	return &CSVAdapter{
		logger: slog.Default().With("component", "csv-adapter"),
	}
}

// SupportedMIMETypes returns the MIME types this adapter handles.
func (a *CSVAdapter) SupportedMIMETypes() []string {
	return []string{"text/csv", "application/csv"}
}

// CanHandle reports whether the adapter accepts the MIME type.
func (a *CSVAdapter) CanHandle(mimeType string) bool {
	return mimeSupported(mimeType, a.SupportedMIMETypes())
}

// Ingest renders CSV rows to "header: value" text.
func (a *CSVAdapter) Ingest(ctx context.Context, data []byte, mimeType string, opts *Options) (*core.IngestResult, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // ragged rows are common in the wild

	records, err := reader.ReadAll()
	if err != nil {
		a.logger.Warn("csv parse failed", "err", err)
		return nil, nil
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := records[0]
	rows := records[1:]

	var sb strings.Builder
	for _, row := range rows {
		var parts []string
		for i, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			header := fmt.Sprintf("column%d", i+1)
			if i < len(headers) {
				header = strings.TrimSpace(headers[i])
			}
			parts = append(parts, header+": "+cell)
		}
		if len(parts) == 0 {
			continue
		}
		sb.WriteString(strings.Join(parts, " | "))
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		a.logger.Warn("csv carried no data rows")
		return nil, nil
	}

	metadata := baseMetadata(opts)
	metadata["headers"] = headers
	metadata["rows"] = len(rows)

	return core.NewIngestResult(text, core.SourceTypeCSV, normalizeMIME(mimeType), metadata), nil
}
