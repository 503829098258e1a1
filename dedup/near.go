package dedup

import (
	"github.com/quarrylabs/quarry/core"
)

// DefaultNearThreshold classifies a pair as near-duplicate at or above this
// cosine similarity.
const DefaultNearThreshold = 0.95

// NearMatch reports the single best near-duplicate candidate.
type NearMatch struct {
	DocumentID string  `json:"documentId"`
	Similarity float32 `json:"similarity"`
}

// FindNearDuplicate compares the subject embedding against candidate
// embeddings and returns the highest-similarity candidate at or above the
// threshold, or nil when no candidate qualifies.
//
// Candidates whose ModelID differs from the subject's are skipped: vectors
// from different models occupy unrelated spaces and are never compared.
func FindNearDuplicate(subject core.Embedding, candidates []core.Embedding, threshold float32) *NearMatch {
	if threshold <= 0 {
		threshold = DefaultNearThreshold
	}
	if len(subject.Vector) == 0 {
		return nil
	}

	var best *NearMatch
	for _, candidate := range candidates {
		if candidate.ModelID != subject.ModelID {
			continue
		}
		if candidate.SourceID == subject.SourceID {
			continue
		}

		similarity := core.CosineSimilarity(subject.Vector, candidate.Vector)
		if similarity < threshold {
			continue
		}
		if best == nil || similarity > best.Similarity {
			best = &NearMatch{DocumentID: candidate.SourceID, Similarity: similarity}
		}
	}
	return best
}
