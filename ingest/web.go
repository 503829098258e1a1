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

// WebAdapter normalizes web content. URLs (text/uri-list) are fetched through
// a scrape service that renders the page and returns markdown; raw HTML bytes
// are converted locally. Unreachable or failing scrapes soft-fail to nil.
type WebAdapter struct {
	scrapeURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Adapter = (*WebAdapter)(nil)

// WebOption configures a WebAdapter.
type WebOption func(*WebAdapter)

// WithWebHTTPClient overrides the HTTP client used for the scrape service.
func WithWebHTTPClient(client *http.Client) WebOption {
	return func(a *WebAdapter) {
		a.httpClient = client
	}
}

// NewWebAdapter creates a web adapter against the scrape service at baseURL.
func NewWebAdapter(baseURL string, opts ...WebOption) *WebAdapter {
	a := &WebAdapter{
		scrapeURL:  strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     slog.Default().With("component", "web-adapter"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SupportedMIMETypes returns the MIME types this adapter handles.
func (a *WebAdapter) SupportedMIMETypes() []string {
	return []string{"text/uri-list", "text/html", "application/xhtml+xml"}
}

// CanHandle reports whether the adapter accepts the MIME type.
func (a *WebAdapter) CanHandle(mimeType string) bool {
	return mimeSupported(mimeType, a.SupportedMIMETypes())
}

// scrapeRequest and scrapeResponse mirror the scrape service's wire contract.
type scrapeRequest struct {
	URL string `json:"url"`
}

type scrapeResponse struct {
	Success  bool   `json:"success"`
	Markdown string `json:"markdown"`
	Metadata struct {
		URL        string `json:"url"`
		Title      string `json:"title"`
		StatusCode int    `json:"statusCode"`
		Error      string `json:"error"`
	} `json:"metadata"`
}

// Ingest normalizes web input. For text/uri-list the bytes are the URL to
// scrape; for HTML the bytes are converted directly.
func (a *WebAdapter) Ingest(ctx context.Context, data []byte, mimeType string, opts *Options) (*core.IngestResult, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	if normalizeMIME(mimeType) == "text/uri-list" {
		url := strings.TrimSpace(string(data))
		return a.ScrapeURL(ctx, url)
	}

	res, err := docconv.Convert(bytes.NewReader(data), "text/html", true)
	if err != nil {
		a.logger.Warn("html conversion failed", "err", err)
		return nil, nil
	}
	text := strings.TrimSpace(res.Body)
	if text == "" {
		return nil, nil
	}

	metadata := baseMetadata(opts)
	if title := res.Meta["title"]; title != "" {
		metadata["title"] = title
	}
	return core.NewIngestResult(text, core.SourceTypeWeb, normalizeMIME(mimeType), metadata), nil
}

// ScrapeURL fetches and normalizes a page through the scrape service.
// Unreachable service, non-2xx responses, and service-reported failures all
// soft-fail to nil.
func (a *WebAdapter) ScrapeURL(ctx context.Context, url string) (*core.IngestResult, error) {
	if url == "" {
		return nil, ErrEmptyInput
	}

	payload, err := json.Marshal(scrapeRequest{URL: url})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.scrapeURL+"/scrape", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Warn("scrape service unreachable", "url", url, "err", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		a.logger.Warn("scrape service error", "url", url, "status", resp.StatusCode)
		return nil, nil
	}

	var result scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		a.logger.Warn("malformed scrape response", "url", url, "err", err)
		return nil, nil
	}

	if !result.Success {
		a.logger.Warn("scrape failed",
			"url", url,
			"status", result.Metadata.StatusCode,
			"err", result.Metadata.Error)
		return nil, nil
	}

	text := strings.TrimSpace(result.Markdown)
	if text == "" {
		a.logger.Warn("scrape produced no content", "url", url)
		return nil, nil
	}

	metadata := map[string]any{"url": url}
	if result.Metadata.Title != "" {
		metadata["title"] = result.Metadata.Title
	}
	if result.Metadata.StatusCode != 0 {
		metadata["statusCode"] = result.Metadata.StatusCode
	}

	return core.NewIngestResult(text, core.SourceTypeWeb, "text/markdown", metadata), nil
}
