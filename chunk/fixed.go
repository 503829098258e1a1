package chunk

// Fixed slices text into windows of chunkSize characters with overlap
// characters repeated at each boundary. Text no longer than chunkSize is
// returned unchanged as a single chunk. Every non-terminal chunk has length
// exactly chunkSize; the final chunk may be shorter. Concatenating the chunks
// with each leading overlap removed reconstructs the input.
func Fixed(text string, chunkSize, overlap int) ([]string, error) {
	if overlap >= chunkSize {
		return nil, ErrOverlapTooLarge
	}
	if text == "" {
		return []string{}, nil
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}, nil
	}

	step := chunkSize - overlap
	chunks := make([]string, 0, len(runes)/step+1)

	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))

		// The chunk that reaches the end of the text is the last one; a
		// further window would contain nothing but overlap.
		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}

// Sliding chunks like Fixed but derives the overlap as 20% of the window
// size instead of taking an explicit parameter; the step between windows is
// windowSize minus that overlap.
func Sliding(text string, windowSize int) ([]string, error) {
	if windowSize <= 0 {
		windowSize = DefaultChunkSize
	}
	return Fixed(text, windowSize, windowSize/5)
}
