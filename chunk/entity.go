package chunk

import "strings"

// Entity splits text on a delimiter into one logical record per chunk,
// trimming whitespace and dropping empty results. It is designed for tabular
// or enumerable sources where each row is independently retrievable.
func Entity(text, delimiter string) []string {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}

	parts := strings.Split(text, delimiter)
	records := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		records = append(records, part)
	}
	return records
}
