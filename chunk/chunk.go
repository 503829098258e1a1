package chunk

import (
	"context"
	"fmt"
)

// Strategy selects a chunking algorithm.
type Strategy string

const (
	StrategyFixed    Strategy = "fixed"
	StrategySliding  Strategy = "sliding"
	StrategyEntity   Strategy = "entity"
	StrategySemantic Strategy = "semantic"
)

// Default parameter values shared by the strategies.
const (
	DefaultChunkSize           = 1000
	DefaultOverlap             = 200
	DefaultWindowSize          = 3
	DefaultSimilarityThreshold = 0.65
	DefaultDelimiter           = "\n"
)

// EmbedFunc embeds a batch of texts, returning one vector per input in order.
// The semantic strategy treats any error or empty result as "embeddings
// unavailable" and falls back to fixed chunking.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Params carries the tuning knobs for all strategies. Zero values are
// replaced with the package defaults.
type Params struct {
	// ChunkSize is the window size in characters for fixed chunking and the
	// re-split bound for oversized semantic segments.
	ChunkSize int

	// Overlap is the number of characters repeated at each fixed-chunk
	// boundary, and the character budget for semantic boundary stitching.
	// Must be smaller than ChunkSize.
	Overlap int

	// WindowSize is the number of consecutive segments per semantic window.
	WindowSize int

	// SimilarityThreshold marks a semantic boundary wherever consecutive
	// window similarity drops below it.
	SimilarityThreshold float32

	// Delimiter separates records for the entity strategy.
	Delimiter string

	// Embed provides vectors for the semantic strategy.
	Embed EmbedFunc
}

func (p Params) withDefaults() Params {
	if p.ChunkSize <= 0 {
		p.ChunkSize = DefaultChunkSize
	}
	if p.Overlap < 0 {
		p.Overlap = 0
	}
	if p.WindowSize <= 0 {
		p.WindowSize = DefaultWindowSize
	}
	if p.SimilarityThreshold == 0 {
		p.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if p.Delimiter == "" {
		p.Delimiter = DefaultDelimiter
	}
	return p
}

// ParseStrategy maps a strategy name to its Strategy value.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case StrategyFixed, StrategySliding, StrategyEntity, StrategySemantic:
		return Strategy(name), nil
	case "":
		return StrategyFixed, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Split chunks text using the selected strategy. Every returned chunk is
// non-empty; empty input yields an empty slice.
func Split(ctx context.Context, text string, strategy Strategy, params Params) ([]string, error) {
	params = params.withDefaults()

	switch strategy {
	case StrategyFixed:
		return Fixed(text, params.ChunkSize, params.Overlap)
	case StrategySliding:
		return Sliding(text, params.ChunkSize)
	case StrategyEntity:
		return Entity(text, params.Delimiter), nil
	case StrategySemantic:
		return Semantic(ctx, text, params)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}
