package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	cfg := DefaultClientConfig()
	cfg.BaseURL = url
	cfg.MaxRetries = 1
	client, err := NewClient(cfg)
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	t.Run("uses defaults for zero values", func(t *testing.T) {
		client, err := NewClient(ClientConfig{BaseURL: "http://localhost:8000"})
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, client.GetTimeout())
		assert.Equal(t, 3, client.GetMaxRetries())
	})

	t.Run("rejects a bad base URL", func(t *testing.T) {
		_, err := NewClient(ClientConfig{BaseURL: "::"})
		assert.Error(t, err)
	})
}

func TestClient_Metadata(t *testing.T) {
	t.Run("decodes metadata", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/metadata/my%20movie.mkv", r.URL.EscapedPath())
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"title":"My Movie","description":"d","tags":["a","b"],"duration":93.5}`))
		}))
		defer server.Close()

		meta, err := newTestClient(t, server.URL).Metadata(context.Background(), "my movie.mkv")
		require.NoError(t, err)
		assert.Equal(t, "My Movie", meta.Title)
		assert.Equal(t, []string{"a", "b"}, meta.Tags)
		assert.InDelta(t, 93.5, meta.Duration, 0.001)
	})

	t.Run("empty metadata is not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		meta, err := newTestClient(t, server.URL).Metadata(context.Background(), "clip.mp4")
		require.NoError(t, err)
		assert.Empty(t, meta.Title)
	})

	t.Run("404 maps to ErrNotFound", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL).Metadata(context.Background(), "missing.mp4")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestClient_Files(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/files", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"files":[{"name":"a.mkv","type":"video"},{"name":"b.mp3","type":"audio"}]}`))
	}))
	defer server.Close()

	files, err := newTestClient(t, server.URL).Files(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, File{Name: "b.mp3", Type: "audio"}, files[1])
}
