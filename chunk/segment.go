package chunk

import "strings"

// Segments splits text into sentence-like units for semantic chunking.
//
// Boundaries are placed at sentence-ending punctuation, blank-line paragraph
// breaks and markdown headings. Fenced code blocks are kept atomic: their
// contents are never split mid-fence.
func Segments(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		segments  []string
		paragraph strings.Builder
		fence     strings.Builder
		inFence   bool
	)

	flushParagraph := func() {
		if paragraph.Len() == 0 {
			return
		}
		segments = append(segments, splitSentences(paragraph.String())...)
		paragraph.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if inFence {
			fence.WriteString("\n")
			fence.WriteString(line)
			if strings.HasPrefix(trimmed, "```") {
				segments = append(segments, fence.String())
				fence.Reset()
				inFence = false
			}
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "```"):
			flushParagraph()
			fence.WriteString(line)
			inFence = true

		case trimmed == "":
			flushParagraph()

		case strings.HasPrefix(trimmed, "#"):
			flushParagraph()
			segments = append(segments, trimmed)

		default:
			if paragraph.Len() > 0 {
				paragraph.WriteString(" ")
			}
			paragraph.WriteString(trimmed)
		}
	}

	// An unterminated fence is still one atomic segment.
	if inFence && fence.Len() > 0 {
		segments = append(segments, fence.String())
	}
	flushParagraph()

	return segments
}

// splitSentences cuts a paragraph at sentence-ending punctuation followed by
// whitespace or end of text.
func splitSentences(paragraph string) []string {
	var sentences []string
	runes := []rune(paragraph)
	start := 0

	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			atEnd := i == len(runes)-1
			if atEnd || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				sentence := strings.TrimSpace(string(runes[start : i+1]))
				if sentence != "" {
					sentences = append(sentences, sentence)
				}
				start = i + 1
			}
		}
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}

	return sentences
}
