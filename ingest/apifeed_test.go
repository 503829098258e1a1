package ingest

import (
	"context"
	"testing"

	"github.com/quarrylabs/quarry/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIFeedAdapter_FlattensObject(t *testing.T) {
	data := []byte(`{"title": "Q3 report", "author": {"name": "alice", "team": "data"}, "tags": ["finance", "quarterly"]}`)

	adapter := NewAPIFeedAdapter()
	result, err := adapter.Ingest(context.Background(), data, "application/json", nil)
	require.NoError(t, err)
	require.NotNil(t, result)

	expected := "author.name: alice\n" +
		"author.team: data\n" +
		"tags[0]: finance\n" +
		"tags[1]: quarterly\n" +
		"title: Q3 report"
	assert.Equal(t, expected, result.Text)
	assert.Equal(t, core.SourceTypeAPI, result.SourceType)
	assert.Equal(t, 1, result.Metadata["records"])
}

func TestAPIFeedAdapter_ArrayIsOneRecordPerElement(t *testing.T) {
	data := []byte(`[{"id": 1, "name": "a"}, {"id": 2, "name": "b"}]`)

	adapter := NewAPIFeedAdapter()
	result, err := adapter.Ingest(context.Background(), data, "application/json", nil)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "id: 1\nname: a\n\nid: 2\nname: b", result.Text)
	assert.Equal(t, 2, result.Metadata["records"])
}

func TestAPIFeedAdapter_NDJSON(t *testing.T) {
	data := []byte("{\"event\": \"login\"}\n\n{\"event\": \"logout\"}\n")

	adapter := NewAPIFeedAdapter()
	result, err := adapter.Ingest(context.Background(), data, "application/x-ndjson", nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "event: login\n\nevent: logout", result.Text)
}

func TestAPIFeedAdapter_InvalidJSONSoftFails(t *testing.T) {
	adapter := NewAPIFeedAdapter()
	result, err := adapter.Ingest(context.Background(), []byte("{not json"), "application/json", nil)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestAPIFeedAdapter_EmptyValues(t *testing.T) {
	adapter := NewAPIFeedAdapter()
	result, err := adapter.Ingest(context.Background(), []byte(`{}`), "application/json", nil)
	assert.NoError(t, err)
	assert.Nil(t, result)
}
