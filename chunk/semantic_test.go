package chunk

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemantic_BoundaryOnDissimilarGroups(t *testing.T) {
	// Two topic groups; windows that mention cats get one axis, windows that
	// mention engines get an orthogonal one, so consecutive windows across
	// the topic change have similarity 0 < 0.65.
	text := "Cats sleep all day. Cats chase mice. Cats purr loudly. " +
		"Engines burn fuel. Engines need oil. Engines produce torque."

	embed := func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i, w := range texts {
			if strings.Contains(w, "Cats") {
				vectors[i] = []float32{1, 0}
			} else {
				vectors[i] = []float32{0, 1}
			}
		}
		return vectors, nil
	}

	chunks, err := Semantic(context.Background(), text, Params{
		ChunkSize:  500,
		Overlap:    0,
		WindowSize: 2,
		Embed:      embed,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(chunks), 2)
	assert.Contains(t, chunks[0], "Cats sleep all day.")
	assert.Contains(t, chunks[len(chunks)-1], "Engines produce torque.")
}

func TestSemantic_FailingEmbedderFallsBackToFixed(t *testing.T) {
	text := strings.Repeat("One sentence here. Another sentence there. ", 60)

	failing := func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}

	params := Params{ChunkSize: 400, Overlap: 40, Embed: failing}
	got, err := Semantic(context.Background(), text, params)
	require.NoError(t, err)

	want, err := Fixed(text, 400, 40)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSemantic_EmptyEmbeddingsFallBackToFixed(t *testing.T) {
	text := strings.Repeat("Alpha beta gamma delta. ", 50)

	empty := func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{}, nil
	}

	got, err := Semantic(context.Background(), text, Params{ChunkSize: 300, Overlap: 30, Embed: empty})
	require.NoError(t, err)

	want, err := Fixed(text, 300, 30)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSemantic_NilEmbedderFallsBackToFixed(t *testing.T) {
	text := "First sentence. Second sentence. Third sentence."
	got, err := Semantic(context.Background(), text, Params{ChunkSize: 20, Overlap: 2})
	require.NoError(t, err)

	want, err := Fixed(text, 20, 2)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSemantic_SingleSegmentSkipsEmbedder(t *testing.T) {
	called := false
	embed := func(ctx context.Context, texts []string) ([][]float32, error) {
		called = true
		return nil, nil
	}

	chunks, err := Semantic(context.Background(), "Just one sentence.", Params{Embed: embed})
	require.NoError(t, err)
	assert.Equal(t, []string{"Just one sentence."}, chunks)
	assert.False(t, called, "embedder must not be called for a single segment")
}

func TestSemantic_EmptyInput(t *testing.T) {
	chunks, err := Semantic(context.Background(), "", Params{})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSemantic_HomogeneousTextSingleChunk(t *testing.T) {
	text := "Dogs bark. Dogs run. Dogs dig. Dogs fetch."

	embed := func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{0.5, 0.5}
		}
		return vectors, nil
	}

	chunks, err := Semantic(context.Background(), text, Params{ChunkSize: 500, WindowSize: 2, Embed: embed})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "Dogs bark.")
	assert.Contains(t, chunks[0], "Dogs fetch.")
}

func TestSemantic_OverlapStitching(t *testing.T) {
	text := "Cats purr. Cats nap. Engines roar. Engines rev."

	embed := func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i, w := range texts {
			if strings.Contains(w, "Cats") {
				vectors[i] = []float32{1, 0}
			} else {
				vectors[i] = []float32{0, 1}
			}
		}
		return vectors, nil
	}

	chunks, err := Semantic(context.Background(), text, Params{
		ChunkSize:  500,
		Overlap:    20,
		WindowSize: 1,
		Embed:      embed,
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	// The chunk after the boundary starts with stitched trailing context
	// from the previous group, bounded by the overlap budget.
	last := chunks[len(chunks)-1]
	assert.Contains(t, last, "Cats nap.")
	assert.Contains(t, last, "Engines roar.")
}
