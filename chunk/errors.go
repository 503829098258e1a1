package chunk

import "errors"

var (
	// ErrUnknownStrategy is returned for a strategy name Split does not know.
	ErrUnknownStrategy = errors.New("unknown chunking strategy")

	// ErrOverlapTooLarge is returned when overlap >= chunk size, which would
	// make fixed chunking loop without advancing.
	ErrOverlapTooLarge = errors.New("overlap must be smaller than chunk size")
)
