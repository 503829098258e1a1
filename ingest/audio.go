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

	"github.com/quarrylabs/quarry/core"
)

const (
	defaultTranscribeRetries = 3
	defaultTranscribeBackoff = 500 * time.Millisecond
)

// AudioAdapter normalizes audio through an HTTP transcription backend.
//
// Transient backend trouble (429, 5xx, network errors) is retried with
// exponential backoff; any other 4xx means the backend rejected the audio and
// the adapter soft-fails immediately. When RequireDiarization is set,
// transcripts that come back without speaker segments are rejected too.
type AudioAdapter struct {
	baseURL            string
	httpClient         *http.Client
	maxRetries         int
	baseDelay          time.Duration
	requireDiarization bool
	logger             *slog.Logger
}

var _ Adapter = (*AudioAdapter)(nil)

// AudioOption configures an AudioAdapter.
type AudioOption func(*AudioAdapter)

// WithRequireDiarization makes the adapter reject transcripts lacking
// speaker-diarization metadata. Off by default.
func WithRequireDiarization(require bool) AudioOption {
	return func(a *AudioAdapter) {
		a.requireDiarization = require
	}
}

// WithAudioHTTPClient overrides the HTTP client used for the backend.
func WithAudioHTTPClient(client *http.Client) AudioOption {
	return func(a *AudioAdapter) {
		a.httpClient = client
	}
}

// WithAudioBackoff overrides the retry schedule.
func WithAudioBackoff(maxRetries int, baseDelay time.Duration) AudioOption {
	return func(a *AudioAdapter) {
		a.maxRetries = maxRetries
		a.baseDelay = baseDelay
	}
}

// NewAudioAdapter creates an audio adapter against the transcription service
// at baseURL.
func NewAudioAdapter(baseURL string, opts ...AudioOption) *AudioAdapter {
	a := &AudioAdapter{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		maxRetries: defaultTranscribeRetries,
		baseDelay:  defaultTranscribeBackoff,
		logger:     slog.Default().With("component", "audio-adapter"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SupportedMIMETypes returns the MIME types this adapter handles.
func (a *AudioAdapter) SupportedMIMETypes() []string {
	return []string{"audio/mpeg", "audio/mp4", "audio/wav", "audio/x-wav", "audio/flac", "audio/ogg", "audio/webm"}
}

// CanHandle reports whether the adapter accepts the MIME type. Any audio/*
// type is accepted, not just the enumerated ones.
func (a *AudioAdapter) CanHandle(mimeType string) bool {
	return strings.HasPrefix(normalizeMIME(mimeType), "audio/")
}

// transcribeRequest is the wire format of the transcription backend.
type transcribeRequest struct {
	Audio    string   `json:"audio"` // base64
	MIMEType string   `json:"mimeType"`
	Diarize  bool     `json:"diarize,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

type transcribeResponse struct {
	Text     string   `json:"text"`
	Speakers []string `json:"speakers,omitempty"`
	Language string   `json:"language,omitempty"`
	Duration float64  `json:"durationSeconds,omitempty"`
}

// Ingest transcribes audio to text. Exhausted retries and hard backend
// rejections soft-fail to nil.
func (a *AudioAdapter) Ingest(ctx context.Context, data []byte, mimeType string, opts *Options) (*core.IngestResult, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	reqBody := transcribeRequest{
		Audio:    base64.StdEncoding.EncodeToString(data),
		MIMEType: normalizeMIME(mimeType),
	}
	if opts != nil {
		reqBody.Diarize = opts.Diarize
		reqBody.Keywords = opts.Keywords
	}

	transcript, ok := a.transcribe(ctx, &reqBody)
	if !ok {
		return nil, nil
	}

	text := strings.TrimSpace(transcript.Text)
	if text == "" {
		a.logger.Warn("transcription produced no text")
		return nil, nil
	}

	if a.requireDiarization && len(transcript.Speakers) == 0 {
		a.logger.Warn("transcript lacks diarization metadata, rejecting")
		return nil, nil
	}

	metadata := baseMetadata(opts)
	if len(transcript.Speakers) > 0 {
		metadata["speakers"] = transcript.Speakers
	}
	if transcript.Language != "" {
		metadata["language"] = transcript.Language
	}
	if transcript.Duration > 0 {
		metadata["durationSeconds"] = transcript.Duration
	}

	return core.NewIngestResult(text, core.SourceTypeAudio, normalizeMIME(mimeType), metadata), nil
}

// transcribe runs the retry loop against the backend. Returns false when the
// backend could not produce a transcript.
func (a *AudioAdapter) transcribe(ctx context.Context, reqBody *transcribeRequest) (*transcribeResponse, bool) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		a.logger.Error("failed to encode transcription request", "err", err)
		return nil, false
	}

	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(a.baseDelay, attempt-1)
			a.logger.Debug("retrying transcription", "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, false
			}
		}

		result, retryable, err := a.transcribeOnce(ctx, payload)
		if err == nil {
			return result, true
		}
		if !retryable {
			a.logger.Warn("transcription rejected", "err", err)
			return nil, false
		}
		a.logger.Warn("transcription attempt failed", "attempt", attempt+1, "err", err)
	}

	a.logger.Warn("transcription retries exhausted", "retries", a.maxRetries)
	return nil, false
}

func (a *AudioAdapter) transcribeOnce(ctx context.Context, payload []byte) (*transcribeResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/transcribe", bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		// Network errors are transient.
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &backendStatusError{service: "transcription", status: resp.StatusCode}
		return nil, retryableStatus(resp.StatusCode), statusErr
	}

	var result transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false, err
	}
	return &result, false, nil
}
