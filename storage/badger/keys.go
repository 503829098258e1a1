package badger

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Key prefixes for different data types. The prefixes are chosen so no
// prefix is a prefix of another, which keeps iterations disjoint.
const (
	documentPrefix     = "docrec"
	documentHashPrefix = "dochash"
	embeddingPrefix    = "embrec"
	jobPrefix          = "jobrec"
	jobDuePrefix       = "jobdue"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentPrefix, id))
}

// makeHashKey generates a key for the content-hash index.
// The value stored under it is the owning document's ID.
func makeHashKey(hash string) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentHashPrefix, hash))
}

// makeEmbeddingKey generates a key for one chunk embedding.
// Format: prefix:sourceID:modelID:chunk, with the chunk index zero-padded so
// lexicographic iteration yields chunk order.
func makeEmbeddingKey(sourceID, modelID string, chunk int) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:%08d", embeddingPrefix, sourceID, modelID, chunk))
}

// makeEmbeddingSourcePrefix generates the iteration prefix for all embeddings
// of one document, across models.
func makeEmbeddingSourcePrefix(sourceID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", embeddingPrefix, sourceID))
}

// makeEmbeddingSourceModelPrefix generates the iteration prefix for one
// document's embeddings under one model.
func makeEmbeddingSourceModelPrefix(sourceID, modelID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:", embeddingPrefix, sourceID, modelID))
}

// makeJobKey generates a key for a job by ID.
func makeJobKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", jobPrefix, id))
}

// makeJobDueKey generates a composite key for the run-time index.
// Format: prefix:runAt:jobID, with runAt written BigEndian so lexicographic
// sort matches chronological order.
func makeJobDueKey(runAt time.Time, id string) []byte {
	prefix := []byte(jobDuePrefix + ":")
	buf := make([]byte, len(prefix)+8+1+len(id))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(runAt.UnixMicro()))
	offset += 8
	buf[offset] = ':'
	offset++
	copy(buf[offset:], id)
	return buf
}

// jobDueKeyTime extracts the run time from a due-index key.
// Returns the zero time if the key is malformed.
func jobDueKeyTime(key []byte) time.Time {
	prefixLen := len(jobDuePrefix) + 1
	if len(key) < prefixLen+8 {
		return time.Time{}
	}
	micros := int64(binary.BigEndian.Uint64(key[prefixLen:]))
	return time.UnixMicro(micros).UTC()
}
