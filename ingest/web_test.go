package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quarrylabs/quarry/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrapeServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestWebAdapter_ScrapeSuccess(t *testing.T) {
	srv := scrapeServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req scrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://example.com/post", req.URL)

		resp := scrapeResponse{Success: true, Markdown: "# Post\n\nBody text."}
		resp.Metadata.URL = req.URL
		resp.Metadata.Title = "Post"
		resp.Metadata.StatusCode = 200
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	adapter := NewWebAdapter(srv.URL)
	result, err := adapter.ScrapeURL(context.Background(), "https://example.com/post")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "# Post\n\nBody text.", result.Text)
	assert.Equal(t, core.SourceTypeWeb, result.SourceType)
	assert.Equal(t, "Post", result.Metadata["title"])
	assert.Equal(t, "https://example.com/post", result.Metadata["url"])
	assert.Equal(t, core.ContentHash(result.Text), result.ContentHash)
}

func TestWebAdapter_ServiceReportedFailure(t *testing.T) {
	srv := scrapeServer(t, func(w http.ResponseWriter, r *http.Request) {
		resp := scrapeResponse{Success: false}
		resp.Metadata.StatusCode = 404
		resp.Metadata.Error = "not found"
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	adapter := NewWebAdapter(srv.URL)
	result, err := adapter.ScrapeURL(context.Background(), "https://example.com/missing")
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestWebAdapter_ServiceUnreachable(t *testing.T) {
	adapter := NewWebAdapter("http://127.0.0.1:1") // nothing listens here

	result, err := adapter.ScrapeURL(context.Background(), "https://example.com")
	assert.NoError(t, err, "unreachable scrape service is a soft failure")
	assert.Nil(t, result)
}

func TestWebAdapter_Non2xx(t *testing.T) {
	srv := scrapeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	adapter := NewWebAdapter(srv.URL)
	result, err := adapter.ScrapeURL(context.Background(), "https://example.com")
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestWebAdapter_IngestURIList(t *testing.T) {
	srv := scrapeServer(t, func(w http.ResponseWriter, r *http.Request) {
		resp := scrapeResponse{Success: true, Markdown: "scraped content"}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	adapter := NewWebAdapter(srv.URL)
	result, err := adapter.Ingest(context.Background(), []byte("https://example.com\n"), "text/uri-list", nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "scraped content", result.Text)
}

func TestWebAdapter_CanHandle(t *testing.T) {
	adapter := NewWebAdapter("http://localhost:8011")
	assert.True(t, adapter.CanHandle("text/uri-list"))
	assert.True(t, adapter.CanHandle("text/html; charset=utf-8"))
	assert.False(t, adapter.CanHandle("text/plain"))
}
