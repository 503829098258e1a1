package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/quarrylabs/quarry/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func layoutServer(t *testing.T, status int, text string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	calls := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "/ocr", r.URL.Path)
		var req struct {
			Image    string `json:"image"`
			MimeType string `json:"mimeType"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Image)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]string{"text": text}))
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func TestImageAdapter_LayoutService(t *testing.T) {
	srv, calls := layoutServer(t, http.StatusOK, "Invoice #42\nTotal: $130.00")

	adapter := NewImageAdapter(WithLayoutService(srv.URL), WithLocalOCR(false))
	result, err := adapter.Ingest(context.Background(), []byte("png-bytes"), "image/png", &Options{Filename: "invoice.png"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Invoice #42\nTotal: $130.00", result.Text)
	assert.Equal(t, core.SourceTypeImage, result.SourceType)
	assert.Equal(t, "layout-service", result.Metadata["ocr"])
	assert.Equal(t, "invoice.png", result.Metadata["filename"])
	assert.Equal(t, int32(1), calls.Load())
}

func TestImageAdapter_LayoutFailureSoftFails(t *testing.T) {
	// Local OCR disabled: a failing layout service leaves no path to text.
	srv, _ := layoutServer(t, http.StatusInternalServerError, "")

	adapter := NewImageAdapter(WithLayoutService(srv.URL), WithLocalOCR(false))
	result, err := adapter.Ingest(context.Background(), []byte("png-bytes"), "image/png", nil)
	assert.NoError(t, err, "OCR failure is a soft failure, not an error")
	assert.Nil(t, result)
}

func TestImageAdapter_BlankPageSoftFails(t *testing.T) {
	srv, _ := layoutServer(t, http.StatusOK, "   \n  ")

	adapter := NewImageAdapter(WithLayoutService(srv.URL), WithLocalOCR(false))
	result, err := adapter.Ingest(context.Background(), []byte("png-bytes"), "image/png", nil)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestImageAdapter_CanHandleAnyImage(t *testing.T) {
	adapter := NewImageAdapter()
	assert.True(t, adapter.CanHandle("image/png"))
	assert.True(t, adapter.CanHandle("image/heic"))
	assert.True(t, adapter.CanHandle("image/jpeg; quality=80"))
	assert.False(t, adapter.CanHandle("application/pdf"))
}

func TestImageAdapter_EmptyInput(t *testing.T) {
	adapter := NewImageAdapter()
	_, err := adapter.Ingest(context.Background(), nil, "image/png", nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}
