package badger

import (
	"context"
	"testing"

	"github.com/quarrylabs/quarry/core"
	"github.com/quarrylabs/quarry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDocumentStore(t *testing.T) storage.DocumentStore {
	t.Helper()
	docs, _, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return docs
}

func testDocument(id, text string) *core.Document {
	return &core.Document{
		ID:          id,
		Text:        text,
		SourceType:  core.SourceTypeDocument,
		MIMEType:    "text/plain",
		ContentHash: core.ContentHash(text),
		Metadata: map[string]any{
			"source": map[string]any{"filename": id + ".txt"},
		},
	}
}

func TestDocumentStore_AddAndGet(t *testing.T) {
	docs := newTestDocumentStore(t)
	ctx := context.Background()

	doc := testDocument("d1", "hello world")
	require.NoError(t, docs.Add(ctx, doc))
	assert.NotNil(t, doc.IngestedAt, "Add sets the ingestion timestamp")

	got, err := docs.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.Text)
	assert.Equal(t, doc.ContentHash, got.ContentHash)
	assert.Equal(t, map[string]any{"filename": "d1.txt"}, got.Metadata["source"])
}

func TestDocumentStore_AddDuplicate(t *testing.T) {
	docs := newTestDocumentStore(t)
	ctx := context.Background()

	require.NoError(t, docs.Add(ctx, testDocument("d1", "a")))
	err := docs.Add(ctx, testDocument("d1", "b"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestDocumentStore_GetNotFound(t *testing.T) {
	docs := newTestDocumentStore(t)

	_, err := docs.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDocumentStore_Delete(t *testing.T) {
	docs := newTestDocumentStore(t)
	ctx := context.Background()

	doc := testDocument("d1", "to be removed")
	require.NoError(t, docs.Add(ctx, doc))
	require.NoError(t, docs.Delete(ctx, "d1"))

	_, err := docs.Get(ctx, "d1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// The hash index entry goes with the document.
	_, err = docs.FindByContentHash(ctx, doc.ContentHash)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, docs.Delete(ctx, "d1"), storage.ErrNotFound)
}

func TestDocumentStore_List(t *testing.T) {
	docs := newTestDocumentStore(t)
	ctx := context.Background()

	require.NoError(t, docs.Add(ctx, testDocument("d1", "one")))
	require.NoError(t, docs.Add(ctx, testDocument("d2", "two")))
	require.NoError(t, docs.Add(ctx, testDocument("d3", "three")))

	all, err := docs.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := docs.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, some, 2)
}

func TestDocumentStore_UpdateMetadataMergesNamespace(t *testing.T) {
	docs := newTestDocumentStore(t)
	ctx := context.Background()

	require.NoError(t, docs.Add(ctx, testDocument("d1", "text")))

	require.NoError(t, docs.UpdateMetadata(ctx, "d1", "enrich", map[string]any{
		"summary":  "a summary",
		"keywords": []any{"alpha", "beta"},
	}))
	require.NoError(t, docs.UpdateMetadata(ctx, "d1", "enrich", map[string]any{
		"summary": "revised",
	}))

	got, err := docs.Get(ctx, "d1")
	require.NoError(t, err)

	enrich, ok := got.Metadata["enrich"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "revised", enrich["summary"], "mentioned keys are overwritten")
	assert.Equal(t, []any{"alpha", "beta"}, enrich["keywords"], "unmentioned keys survive")

	// Other namespaces are untouched.
	assert.Equal(t, map[string]any{"filename": "d1.txt"}, got.Metadata["source"])
}

func TestDocumentStore_UpdateMetadataNotFound(t *testing.T) {
	docs := newTestDocumentStore(t)

	err := docs.UpdateMetadata(context.Background(), "missing", "enrich", map[string]any{"k": "v"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDocumentStore_SetEnrichmentStatus(t *testing.T) {
	docs := newTestDocumentStore(t)
	ctx := context.Background()

	doc := testDocument("d1", "text")
	doc.EnrichmentStatus = core.EnrichmentPending
	require.NoError(t, docs.Add(ctx, doc))

	require.NoError(t, docs.SetEnrichmentStatus(ctx, "d1", core.EnrichmentComplete))

	got, err := docs.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, core.EnrichmentComplete, got.EnrichmentStatus)
}

func TestDocumentStore_FindByContentHash(t *testing.T) {
	docs := newTestDocumentStore(t)
	ctx := context.Background()

	doc := testDocument("d1", "unique content")
	require.NoError(t, docs.Add(ctx, doc))

	id, err := docs.FindByContentHash(ctx, doc.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, "d1", id)

	_, err = docs.FindByContentHash(ctx, core.ContentHash("something else"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDocumentStore_ListOtherContentHashes(t *testing.T) {
	docs := newTestDocumentStore(t)
	ctx := context.Background()

	d1 := testDocument("d1", "one")
	d2 := testDocument("d2", "two")
	require.NoError(t, docs.Add(ctx, d1))
	require.NoError(t, docs.Add(ctx, d2))

	refs, err := docs.ListOtherContentHashes(ctx, "d1", 0)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "d2", refs[0].DocumentID)
	assert.Equal(t, d2.ContentHash, refs[0].ContentHash)
}

func TestDocumentStore_HashIndexKeepsFirstOwner(t *testing.T) {
	docs := newTestDocumentStore(t)
	ctx := context.Background()

	original := testDocument("d1", "same body")
	copycat := testDocument("d2", "same body")
	require.NoError(t, docs.Add(ctx, original))
	require.NoError(t, docs.Add(ctx, copycat))

	id, err := docs.FindByContentHash(ctx, original.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, "d1", id, "a later duplicate must not steal the hash index entry")

	refs, err := docs.ListOtherContentHashes(ctx, "d2", 0)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "d1", refs[0].DocumentID)

	// Deleting the copycat leaves the original's claim intact.
	require.NoError(t, docs.Delete(ctx, "d2"))
	id, err = docs.FindByContentHash(ctx, original.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, "d1", id)
}
