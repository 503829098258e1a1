package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"code.sajari.com/docconv"
	"github.com/quarrylabs/quarry/core"
)

const (
	mimePDF      = "application/pdf"
	mimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDOC      = "application/msword"
	mimeRTF      = "application/rtf"
	mimeText     = "text/plain"
	mimeMarkdown = "text/markdown"
)

// DocumentAdapter normalizes text-bearing documents: plain text, markdown,
// PDF, and word-processor formats. Binary formats go through an external
// extraction service when one is configured, otherwise through docconv
// locally.
type DocumentAdapter struct {
	extractorURL string
	httpClient   *http.Client
	logger       *slog.Logger
}

var _ Adapter = (*DocumentAdapter)(nil)

// DocumentOption configures a DocumentAdapter.
type DocumentOption func(*DocumentAdapter)

// WithExtractionService points the adapter at a remote text-extraction
// service for PDF and word-processor formats.
func WithExtractionService(baseURL string) DocumentOption {
	return func(a *DocumentAdapter) {
		a.extractorURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithDocumentHTTPClient overrides the HTTP client used for the extraction
// service.
func WithDocumentHTTPClient(client *http.Client) DocumentOption {
	return func(a *DocumentAdapter) {
		a.httpClient = client
	}
}

// NewDocumentAdapter creates a document adapter.
func NewDocumentAdapter(opts ...DocumentOption) *DocumentAdapter {
	a := &DocumentAdapter{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default().With("component", "document-adapter"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SupportedMIMETypes returns the MIME types this adapter handles.
func (a *DocumentAdapter) SupportedMIMETypes() []string {
	return []string{mimeText, mimeMarkdown, mimePDF, mimeDOCX, mimeDOC, mimeRTF, "text/rtf"}
}

// CanHandle reports whether the adapter accepts the MIME type.
func (a *DocumentAdapter) CanHandle(mimeType string) bool {
	return mimeSupported(mimeType, a.SupportedMIMETypes())
}

// Ingest normalizes a document to text. Extraction trouble soft-fails to nil.
func (a *DocumentAdapter) Ingest(ctx context.Context, data []byte, mimeType string, opts *Options) (*core.IngestResult, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	mimeType = a.resolveMIME(data, normalizeMIME(mimeType))
	metadata := baseMetadata(opts)

	var text string
	switch mimeType {
	case mimeText, mimeMarkdown:
		text = string(data)
	default:
		var err error
		text, err = a.extract(ctx, data, mimeType)
		if err != nil {
			a.logger.Warn("document extraction failed", "mimeType", mimeType, "err", err)
			return nil, nil
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		a.logger.Warn("document produced no text", "mimeType", mimeType)
		return nil, nil
	}

	return core.NewIngestResult(text, core.SourceTypeDocument, mimeType, metadata), nil
}

// resolveMIME corrects ambiguous MIME types using content sniffing. Uploads
// routinely arrive as application/octet-stream or text/plain regardless of
// what the bytes actually are.
func (a *DocumentAdapter) resolveMIME(data []byte, mimeType string) string {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return mimePDF
	case bytes.HasPrefix(data, []byte("PK\x03\x04")) && mimeType != mimeDOCX:
		// ZIP container claimed as something generic; treat as DOCX.
		return mimeDOCX
	case mimeType == mimeText && looksLikeMarkdown(data):
		return mimeMarkdown
	}
	return mimeType
}

// looksLikeMarkdown applies cheap structural heuristics: ATX headings,
// fenced code blocks, or link syntax near the start of the text.
func looksLikeMarkdown(data []byte) bool {
	sample := data
	if len(sample) > 2048 {
		sample = sample[:2048]
	}
	for _, line := range strings.Split(string(sample), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") ||
			strings.HasPrefix(trimmed, "## ") ||
			strings.HasPrefix(trimmed, "```") {
			return true
		}
		if strings.Contains(trimmed, "](") && strings.Contains(trimmed, "[") {
			return true
		}
	}
	return false
}

// extract pulls text out of a binary document, remote service first.
func (a *DocumentAdapter) extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	if a.extractorURL != "" {
		text, err := a.extractRemote(ctx, data, mimeType)
		if err == nil {
			return text, nil
		}
		a.logger.Warn("extraction service failed, falling back to local", "err", err)
	}

	res, err := docconv.Convert(bytes.NewReader(data), mimeType, false)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

// extractRemote posts the raw document to the extraction service.
func (a *DocumentAdapter) extractRemote(ctx context.Context, data []byte, mimeType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.extractorURL+"/extract", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mimeType)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &backendStatusError{service: "extraction", status: resp.StatusCode}
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Text, nil
}
