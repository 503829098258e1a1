package chunk

import (
	"context"
	"strings"

	"github.com/quarrylabs/quarry/core"
)

// Semantic chunks text at topical boundaries detected through embedding
// similarity.
//
// The text is segmented at sentence, paragraph and heading boundaries, the
// segments are grouped into overlapping windows of WindowSize consecutive
// segments, and the windows are embedded with the injected function. A
// boundary is marked wherever the cosine similarity of consecutive window
// vectors drops below SimilarityThreshold. Original segments between
// boundaries are reassembled into chunks; any oversized segment group is
// re-split with the fixed strategy, and trailing-segment overlap (bounded by
// the Overlap character budget) is stitched in at each boundary.
//
// Fail-open: when the embedding function is missing, errors or returns no
// vectors, the whole function degrades to fixed chunking over the raw text.
func Semantic(ctx context.Context, text string, params Params) ([]string, error) {
	params = params.withDefaults()

	segments := Segments(text)
	switch len(segments) {
	case 0:
		return []string{}, nil
	case 1:
		// Nothing to compare; do not call the embedder.
		return []string{segments[0]}, nil
	}

	if params.Embed == nil {
		return Fixed(text, params.ChunkSize, params.Overlap)
	}

	windows := segmentWindows(segments, params.WindowSize)
	if len(windows) < 2 {
		// Too few windows to compare; everything is one group.
		return assembleChunks(segments, nil, params)
	}

	vectors, err := params.Embed(ctx, windows)
	if err != nil || len(vectors) != len(windows) {
		return Fixed(text, params.ChunkSize, params.Overlap)
	}

	// A boundary before segment i+1 wherever the window anchored at segment i
	// and the one anchored at i+1 diverge.
	boundaries := make(map[int]bool)
	for i := 0; i+1 < len(vectors); i++ {
		if core.CosineSimilarity(vectors[i], vectors[i+1]) < params.SimilarityThreshold {
			boundaries[i+1] = true
		}
	}

	return assembleChunks(segments, boundaries, params)
}

// segmentWindows joins each run of windowSize consecutive segments, sliding
// by one segment, so consecutive windows overlap in all but one segment.
func segmentWindows(segments []string, windowSize int) []string {
	if windowSize > len(segments) {
		windowSize = len(segments)
	}

	windows := make([]string, 0, len(segments)-windowSize+1)
	for i := 0; i+windowSize <= len(segments); i++ {
		windows = append(windows, strings.Join(segments[i:i+windowSize], " "))
	}
	return windows
}

// assembleChunks rebuilds chunks from segments grouped between boundaries.
// boundaries[i] == true means a cut before segment i.
func assembleChunks(segments []string, boundaries map[int]bool, params Params) ([]string, error) {
	var groups [][]string
	current := []string{segments[0]}

	for i := 1; i < len(segments); i++ {
		if boundaries[i] {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, segments[i])
	}
	groups = append(groups, current)

	var chunks []string
	for gi, group := range groups {
		text := strings.Join(group, "\n")

		// Stitch trailing segments of the previous group in at each boundary,
		// bounded by the overlap character budget.
		if gi > 0 && params.Overlap > 0 {
			if tail := trailingOverlap(groups[gi-1], params.Overlap); tail != "" {
				text = tail + "\n" + text
			}
		}

		if len([]rune(text)) > params.ChunkSize {
			resplit, err := Fixed(text, params.ChunkSize, params.Overlap)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, resplit...)
			continue
		}
		chunks = append(chunks, text)
	}

	return chunks, nil
}

// trailingOverlap collects whole trailing segments of a group whose combined
// length fits the overlap character budget.
func trailingOverlap(group []string, budget int) string {
	var tail []string
	used := 0
	for i := len(group) - 1; i >= 0; i-- {
		n := len([]rune(group[i]))
		if used+n > budget {
			break
		}
		tail = append([]string{group[i]}, tail...)
		used += n
	}
	return strings.Join(tail, "\n")
}
