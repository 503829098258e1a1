package ingest

import (
	"context"
	"strings"

	"github.com/quarrylabs/quarry/core"
)

// Adapter converts one modality of raw input into a normalized IngestResult.
//
// Adapters fail open: a nil result with a nil error means the adapter
// understood the input but could not produce text (unreachable backend,
// unparseable payload). Callers log and move on; they never retry a soft
// failure.
type Adapter interface {
	// CanHandle reports whether the adapter accepts the MIME type.
	CanHandle(mimeType string) bool

	// SupportedMIMETypes returns the MIME types this adapter handles.
	SupportedMIMETypes() []string

	// Ingest normalizes raw bytes into text. opts may be nil.
	Ingest(ctx context.Context, data []byte, mimeType string, opts *Options) (*core.IngestResult, error)
}

// Options carries per-request adapter parameters. All fields are optional.
type Options struct {
	// Diarize asks the transcription backend to separate speakers.
	Diarize bool

	// Keywords bias transcription toward domain vocabulary.
	Keywords []string

	// Filename, when known, is recorded in the result metadata.
	Filename string
}

// normalizeMIME strips parameters ("; charset=utf-8") and lowercases the type.
func normalizeMIME(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// mimeSupported is the CanHandle helper shared by all adapters.
func mimeSupported(mimeType string, supported []string) bool {
	mimeType = normalizeMIME(mimeType)
	for _, m := range supported {
		if m == mimeType {
			return true
		}
	}
	return false
}

// baseMetadata builds the metadata map common to every adapter result.
func baseMetadata(opts *Options) map[string]any {
	md := make(map[string]any)
	if opts != nil && opts.Filename != "" {
		md["filename"] = opts.Filename
	}
	return md
}
