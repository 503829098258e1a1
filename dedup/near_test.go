package dedup

import (
	"testing"

	"github.com/quarrylabs/quarry/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embedding(sourceID, modelID string, vector []float32) core.Embedding {
	return core.Embedding{SourceID: sourceID, ModelID: modelID, Vector: vector}
}

func TestFindNearDuplicate_ThresholdInclusive(t *testing.T) {
	subject := embedding("subject", "m1", []float32{1, 0})

	// cos = exactly 0.95.
	at := embedding("at-threshold", "m1", []float32{0.95, 0.3122499})
	match := FindNearDuplicate(subject, []core.Embedding{at}, 0.95)
	require.NotNil(t, match, "similarity exactly at threshold is a duplicate")
	assert.Equal(t, "at-threshold", match.DocumentID)

	// cos ~= 0.9499 stays below.
	below := embedding("below", "m1", []float32{0.9499, 0.31253})
	assert.Nil(t, FindNearDuplicate(subject, []core.Embedding{below}, 0.95))
}

func TestFindNearDuplicate_BestMatchWins(t *testing.T) {
	subject := embedding("subject", "m1", []float32{1, 0, 0})
	candidates := []core.Embedding{
		embedding("good", "m1", []float32{0.97, 0.2431, 0}),
		embedding("better", "m1", []float32{0.99, 0.141067, 0}),
		embedding("good-again", "m1", []float32{0.96, 0.28, 0}),
	}

	match := FindNearDuplicate(subject, candidates, 0.95)
	require.NotNil(t, match)
	assert.Equal(t, "better", match.DocumentID)
	assert.Greater(t, match.Similarity, float32(0.98))
}

func TestFindNearDuplicate_ModelIsolation(t *testing.T) {
	subject := embedding("subject", "m1", []float32{1, 0})

	// Identical vector under a different model id must never match.
	otherModel := embedding("other", "m2", []float32{1, 0})
	assert.Nil(t, FindNearDuplicate(subject, []core.Embedding{otherModel}, 0.95))
}

func TestFindNearDuplicate_SkipsSelf(t *testing.T) {
	subject := embedding("subject", "m1", []float32{1, 0})
	self := embedding("subject", "m1", []float32{1, 0})
	assert.Nil(t, FindNearDuplicate(subject, []core.Embedding{self}, 0.95))
}

func TestFindNearDuplicate_NoCandidates(t *testing.T) {
	subject := embedding("subject", "m1", []float32{1, 0})
	assert.Nil(t, FindNearDuplicate(subject, nil, 0.95))
	assert.Nil(t, FindNearDuplicate(core.Embedding{ModelID: "m1"}, []core.Embedding{subject}, 0.95))
}

func TestFindNearDuplicate_HighSimilarityScenario(t *testing.T) {
	// Two documents with cosine similarity ~0.97 under the same model id are
	// flagged near-duplicate, reporting the higher-similarity one.
	subject := embedding("new-doc", "m1", []float32{1, 0})
	candidates := []core.Embedding{
		embedding("old-doc", "m1", []float32{0.97, 0.24310491}),
		embedding("unrelated", "m1", []float32{0.1, 0.99498744}),
	}

	match := FindNearDuplicate(subject, candidates, 0)
	require.NotNil(t, match)
	assert.Equal(t, "old-doc", match.DocumentID)
	assert.InDelta(t, 0.97, float64(match.Similarity), 0.005)
}
