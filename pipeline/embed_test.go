package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/quarrylabs/quarry/ai/mock"
	"github.com/quarrylabs/quarry/core"
	"github.com/quarrylabs/quarry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addDocument(t *testing.T, docs storage.DocumentStore, id, text string) *core.Document {
	t.Helper()
	doc := &core.Document{
		ID:               id,
		Text:             text,
		SourceType:       core.SourceTypeDocument,
		MIMEType:         "text/plain",
		ContentHash:      core.ContentHash(text),
		EnrichmentStatus: core.EnrichmentPending,
	}
	require.NoError(t, docs.Add(context.Background(), doc))
	return doc
}

func embedJob(documentID string, payload *core.EmbedPayload) *core.Job {
	return &core.Job{
		ID:         "job-" + documentID,
		Type:       core.JobTypeEmbed,
		DocumentID: documentID,
		Payload:    core.JobPayload{Embed: payload},
	}
}

func TestEmbedProcessor_EmbedsProvidedChunks(t *testing.T) {
	docs, embs, _ := newTestStores(t)
	embedder := mock.NewMockEmbedder()
	proc := NewEmbedProcessor(docs, embs, embedder, nil)
	ctx := context.Background()

	addDocument(t, docs, "d1", "first chunk second chunk")
	job := embedJob("d1", &core.EmbedPayload{
		ModelID: "model-a",
		Chunks:  []string{"first chunk", "second chunk"},
	})

	require.NoError(t, proc.Process(ctx, job))

	stored, err := embs.GetBySource(ctx, "d1", "model-a")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 0, stored[0].Chunk)
	assert.Equal(t, 1, stored[1].Chunk)
	assert.Equal(t, mock.DeterministicVector("first chunk", 384), stored[0].Vector)
}

func TestEmbedProcessor_RechunksFromDocument(t *testing.T) {
	docs, embs, _ := newTestStores(t)
	proc := NewEmbedProcessor(docs, embs, mock.NewMockEmbedder(), nil)
	ctx := context.Background()

	addDocument(t, docs, "d1", "short document body")
	job := embedJob("d1", &core.EmbedPayload{ModelID: "model-a", Strategy: "fixed"})

	require.NoError(t, proc.Process(ctx, job))

	stored, err := embs.GetBySource(ctx, "d1", "model-a")
	require.NoError(t, err)
	require.Len(t, stored, 1, "text under the chunk size yields one chunk")
}

func TestEmbedProcessor_Idempotent(t *testing.T) {
	docs, embs, _ := newTestStores(t)
	proc := NewEmbedProcessor(docs, embs, mock.NewMockEmbedder(), nil)
	ctx := context.Background()

	addDocument(t, docs, "d1", "body")
	job := embedJob("d1", &core.EmbedPayload{ModelID: "model-a", Chunks: []string{"body"}})

	require.NoError(t, proc.Process(ctx, job))
	require.NoError(t, proc.Process(ctx, job))

	stored, err := embs.GetBySource(ctx, "d1", "model-a")
	require.NoError(t, err)
	assert.Len(t, stored, 1, "re-running overwrites, never duplicates")
}

func TestEmbedProcessor_MissingDocumentIsPermanent(t *testing.T) {
	docs, embs, _ := newTestStores(t)
	proc := NewEmbedProcessor(docs, embs, mock.NewMockEmbedder(), nil)

	job := embedJob("ghost", &core.EmbedPayload{ModelID: "model-a"})
	err := proc.Process(context.Background(), job)
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestEmbedProcessor_EmbedderErrorIsRetryable(t *testing.T) {
	docs, embs, _ := newTestStores(t)
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("model unavailable")
	}
	proc := NewEmbedProcessor(docs, embs, embedder, nil)

	addDocument(t, docs, "d1", "body")
	job := embedJob("d1", &core.EmbedPayload{ModelID: "model-a", Chunks: []string{"body"}})

	err := proc.Process(context.Background(), job)
	require.Error(t, err)
	assert.False(t, IsPermanent(err), "a flaky model call should be retried")
}

func TestEmbedProcessor_WrongPayloadIsPermanent(t *testing.T) {
	docs, embs, _ := newTestStores(t)
	proc := NewEmbedProcessor(docs, embs, mock.NewMockEmbedder(), nil)

	err := proc.Process(context.Background(), &core.Job{ID: "j", Type: core.JobTypeEmbed})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}
