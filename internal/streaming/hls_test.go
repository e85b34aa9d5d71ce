package streaming

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multivariant = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360,CODECS="avc1.64001e,mp4a.40.2"
low/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=2400000,RESOLUTION=1280x720,CODECS="avc1.64001f,mp4a.40.2"
high/index.m3u8
`

const media = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:4
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:4.0,
segment0.ts
#EXT-X-ENDLIST
`

func newManifestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		switch r.URL.Path {
		case "/live/master.m3u8":
			fmt.Fprint(w, multivariant)
		case "/live/media.m3u8":
			fmt.Fprint(w, media)
		case "/live/garbage.m3u8":
			fmt.Fprint(w, "not a playlist")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHLSResolver_Resolve(t *testing.T) {
	server := newManifestServer(t)
	resolver := NewHLSResolver(HLSConfig{})

	t.Run("multivariant picks highest bandwidth", func(t *testing.T) {
		got, err := resolver.Resolve(context.Background(), server.URL+"/live/master.m3u8")
		require.NoError(t, err)
		assert.Equal(t, server.URL+"/live/high/index.m3u8", got)
	})

	t.Run("media playlist passes through", func(t *testing.T) {
		u := server.URL + "/live/media.m3u8"
		got, err := resolver.Resolve(context.Background(), u)
		require.NoError(t, err)
		assert.Equal(t, u, got)
	})

	t.Run("unparseable manifest", func(t *testing.T) {
		_, err := resolver.Resolve(context.Background(), server.URL+"/live/garbage.m3u8")
		assert.Error(t, err)
	})

	t.Run("missing manifest", func(t *testing.T) {
		_, err := resolver.Resolve(context.Background(), server.URL+"/live/nope.m3u8")
		assert.Error(t, err)
	})
}

func TestHLSResolver_OversizedManifest(t *testing.T) {
	const limit = 64 << 20
	var written atomic.Int64
	chunk := []byte("#EXT-X-COMMENT:" + strings.Repeat("x", 32<<10) + "\n")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n")
		for written.Load() < limit {
			n, err := w.Write(chunk)
			written.Add(int64(n))
			if err != nil || r.Context().Err() != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	_, err := NewHLSResolver(HLSConfig{}).Resolve(context.Background(), server.URL+"/huge.m3u8")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
	// The body is abandoned after the limit instead of being read in full
	assert.Less(t, written.Load(), int64(limit))
}

func TestNewHLSFactory(t *testing.T) {
	r, err := NewHLSFactory(HLSConfig{})(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &HLSResolver{}, r)
}
