package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/quarrylabs/quarry/core"
	"github.com/quarrylabs/quarry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freshnessSingleJob(documentID string) *core.Job {
	return &core.Job{
		ID:         "job-" + documentID,
		Type:       core.JobTypeFreshness,
		DocumentID: documentID,
		Payload:    core.JobPayload{Freshness: &core.FreshnessPayload{}},
	}
}

func addDocumentIngestedAt(t *testing.T, docs storage.DocumentStore, id, text string, ingestedAt time.Time) *core.Document {
	t.Helper()
	doc := &core.Document{
		ID:               id,
		Text:             text,
		SourceType:       core.SourceTypeDocument,
		MIMEType:         "text/plain",
		ContentHash:      core.ContentHash(text),
		IngestedAt:       &ingestedAt,
		EnrichmentStatus: core.EnrichmentPending,
	}
	require.NoError(t, docs.Add(context.Background(), doc))
	return doc
}

func freshnessVerdict(t *testing.T, docs storage.DocumentStore, id string) map[string]any {
	t.Helper()
	doc, err := docs.Get(context.Background(), id)
	require.NoError(t, err)
	verdict, ok := doc.Metadata["freshness"].(map[string]any)
	require.True(t, ok, "freshness namespace must be written")
	return verdict
}

func TestFreshnessProcessor_SingleDocument(t *testing.T) {
	docs, _, _ := newTestStores(t)
	proc := NewFreshnessProcessor(docs, nil)
	ctx := context.Background()

	addDocumentIngestedAt(t, docs, "d1", "aging text", time.Now().UTC().Add(-45*24*time.Hour))
	require.NoError(t, proc.Process(ctx, freshnessSingleJob("d1")))

	verdict := freshnessVerdict(t, docs, "d1")
	assert.Equal(t, "aging", verdict["status"])
	assert.Equal(t, 0.9, verdict["multiplier"])
	assert.NotEmpty(t, verdict["evaluatedAt"])
}

func TestFreshnessProcessor_ExpiredOutranksDecay(t *testing.T) {
	docs, _, _ := newTestStores(t)
	proc := NewFreshnessProcessor(docs, nil)
	ctx := context.Background()

	doc := addDocumentIngestedAt(t, docs, "d1", "expired text", time.Now().UTC().Add(-24*time.Hour))
	expired := time.Now().UTC().Add(-time.Hour)
	doc.ValidUntil = &expired
	require.NoError(t, docs.Delete(ctx, "d1"))
	require.NoError(t, docs.Add(ctx, doc))

	require.NoError(t, proc.Process(ctx, freshnessSingleJob("d1")))

	verdict := freshnessVerdict(t, docs, "d1")
	assert.Equal(t, "expired", verdict["status"])
	assert.Equal(t, 0.0, verdict["multiplier"])
}

func TestFreshnessProcessor_SweepUpdatesOnlyChanged(t *testing.T) {
	docs, _, _ := newTestStores(t)
	proc := NewFreshnessProcessor(docs, nil)
	ctx := context.Background()

	addDocumentIngestedAt(t, docs, "fresh", "new text", time.Now().UTC().Add(-time.Hour))
	addDocumentIngestedAt(t, docs, "stale", "old text", time.Now().UTC().Add(-200*24*time.Hour))

	sweep := &core.Job{
		ID:      "sweep-1",
		Type:    core.JobTypeFreshness,
		Payload: core.JobPayload{Freshness: &core.FreshnessPayload{Sweep: true}},
	}
	require.NoError(t, proc.Process(ctx, sweep))

	assert.Equal(t, "fresh", freshnessVerdict(t, docs, "fresh")["status"])
	assert.Equal(t, "stale", freshnessVerdict(t, docs, "stale")["status"])

	// A second sweep finds both verdicts unchanged and leaves the records alone.
	before := freshnessVerdict(t, docs, "stale")["evaluatedAt"]
	sweep.ID = "sweep-2"
	require.NoError(t, proc.Process(ctx, sweep))
	assert.Equal(t, before, freshnessVerdict(t, docs, "stale")["evaluatedAt"])
}

func TestFreshnessProcessor_RecentDocumentIsFresh(t *testing.T) {
	docs, _, _ := newTestStores(t)
	proc := NewFreshnessProcessor(docs, nil)
	ctx := context.Background()

	addDocument(t, docs, "d1", "just ingested")

	require.NoError(t, proc.Process(ctx, freshnessSingleJob("d1")))
	verdict := freshnessVerdict(t, docs, "d1")
	assert.Equal(t, "fresh", verdict["status"])
	assert.Equal(t, 1.0, verdict["multiplier"])
}
