package dedup

// HashSet is a set of known content hashes for O(1) membership tests.
type HashSet map[string]struct{}

// NewHashSet builds a HashSet from a list of content hashes.
func NewHashSet(hashes ...string) HashSet {
	set := make(HashSet, len(hashes))
	for _, h := range hashes {
		if h == "" {
			continue
		}
		set[h] = struct{}{}
	}
	return set
}

// Contains reports whether the content hash is already known. A match is
// always treated as an exact duplicate.
func (s HashSet) Contains(contentHash string) bool {
	_, ok := s[contentHash]
	return ok
}
