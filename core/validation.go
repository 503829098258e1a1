package core

import "fmt"

// ValidateIngestResult checks the invariants every adapter output must hold.
func ValidateIngestResult(r *IngestResult) error {
	if r.Text == "" {
		return ErrEmptyText
	}
	if r.ContentHash == "" {
		return ErrMissingContentHash
	}
	if r.ContentHash != ContentHash(r.Text) {
		return ErrHashMismatch
	}
	switch r.SourceType {
	case SourceTypeDocument, SourceTypeAudio, SourceTypeImage, SourceTypeWeb, SourceTypeCSV, SourceTypeAPI:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSourceType, r.SourceType)
	}
	return nil
}

// ValidateJob checks that a job's populated payload arm matches its declared
// type. A job failing this check must never be dispatched.
func ValidateJob(j *Job) error {
	var ok bool
	switch j.Type {
	case JobTypeEmbed:
		ok = j.Payload.Embed != nil
	case JobTypeEnrich:
		ok = j.Payload.Enrich != nil
	case JobTypeDedupCheck:
		ok = j.Payload.DedupCheck != nil
	case JobTypeReEmbed:
		ok = j.Payload.ReEmbed != nil
	case JobTypeFreshness:
		ok = j.Payload.Freshness != nil
	case JobTypeScrape:
		ok = j.Payload.Scrape != nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidJobType, j.Type)
	}
	if !ok {
		return fmt.Errorf("%w: type %q", ErrPayloadMismatch, j.Type)
	}
	return nil
}
