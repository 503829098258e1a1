package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"code.sajari.com/docconv"
	"github.com/quarrylabs/quarry/core"
)

// ImageAdapter extracts text from images. A layout-aware OCR service is
// preferred when configured; otherwise (or when it fails) the local docconv
// OCR path is used. When neither produces text the adapter soft-fails.
type ImageAdapter struct {
	layoutURL  string
	httpClient *http.Client
	localOCR   bool
	logger     *slog.Logger
}

var _ Adapter = (*ImageAdapter)(nil)

// ImageOption configures an ImageAdapter.
type ImageOption func(*ImageAdapter)

// WithLayoutService points the adapter at a layout-aware OCR service.
func WithLayoutService(baseURL string) ImageOption {
	return func(a *ImageAdapter) {
		a.layoutURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithLocalOCR toggles the local docconv OCR fallback. On by default.
func WithLocalOCR(enabled bool) ImageOption {
	return func(a *ImageAdapter) {
		a.localOCR = enabled
	}
}

// WithImageHTTPClient overrides the HTTP client used for the layout service.
func WithImageHTTPClient(client *http.Client) ImageOption {
	return func(a *ImageAdapter) {
		a.httpClient = client
	}
}

// NewImageAdapter creates an image adapter.
func NewImageAdapter(opts ...ImageOption) *ImageAdapter {
	a := &ImageAdapter{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		localOCR:   true,
		logger:     slog.Default().With("component", "image-adapter"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SupportedMIMETypes returns the MIME types this adapter handles.
func (a *ImageAdapter) SupportedMIMETypes() []string {
	return []string{"image/png", "image/jpeg", "image/tiff", "image/webp", "image/bmp"}
}

// CanHandle reports whether the adapter accepts the MIME type. Any image/*
// type is accepted.
func (a *ImageAdapter) CanHandle(mimeType string) bool {
	return strings.HasPrefix(normalizeMIME(mimeType), "image/")
}

// Ingest runs OCR over the image. Both paths failing soft-fails to nil.
func (a *ImageAdapter) Ingest(ctx context.Context, data []byte, mimeType string, opts *Options) (*core.IngestResult, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	mimeType = normalizeMIME(mimeType)
	metadata := baseMetadata(opts)

	if a.layoutURL != "" {
		text, err := a.ocrRemote(ctx, data, mimeType)
		if err != nil {
			a.logger.Warn("layout OCR service failed", "err", err)
		} else if text != "" {
			metadata["ocr"] = "layout-service"
			return core.NewIngestResult(text, core.SourceTypeImage, mimeType, metadata), nil
		}
	}

	if a.localOCR {
		res, err := docconv.Convert(bytes.NewReader(data), mimeType, false)
		if err != nil {
			a.logger.Warn("local OCR failed", "mimeType", mimeType, "err", err)
			return nil, nil
		}
		text := strings.TrimSpace(res.Body)
		if text != "" {
			metadata["ocr"] = "local"
			return core.NewIngestResult(text, core.SourceTypeImage, mimeType, metadata), nil
		}
	}

	a.logger.Warn("no OCR path produced text", "mimeType", mimeType)
	return nil, nil
}

// ocrRemote posts the image to the layout OCR service.
func (a *ImageAdapter) ocrRemote(ctx context.Context, data []byte, mimeType string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"image":    base64.StdEncoding.EncodeToString(data),
		"mimeType": mimeType,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.layoutURL+"/ocr", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &backendStatusError{service: "layout OCR", status: resp.StatusCode}
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return strings.TrimSpace(body.Text), nil
}
