package core

import "strings"

// ClassifySource maps a MIME type to the modality that should handle it.
// Unknown types default to SourceTypeDocument, which is the broadest adapter.
func ClassifySource(mimeType string) SourceType {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch {
	case strings.HasPrefix(mt, "audio/"):
		return SourceTypeAudio
	case strings.HasPrefix(mt, "image/"):
		return SourceTypeImage
	case mt == "text/csv" || mt == "application/csv":
		return SourceTypeCSV
	case mt == "application/json" || mt == "application/x-ndjson":
		return SourceTypeAPI
	case mt == "text/html" || mt == "application/xhtml+xml" || mt == "text/uri-list":
		return SourceTypeWeb
	default:
		return SourceTypeDocument
	}
}
