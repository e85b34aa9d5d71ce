package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe_StatusHandling(t *testing.T) {
	tests := []struct {
		name          string
		handler       http.HandlerFunc
		reachable     bool
		class         StatusClass
		code          int
		expectedBytes int64
	}{
		{
			name: "partial content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "bytes=0-0", r.Header.Get("Range"))
				w.Header().Set("Content-Range", "bytes 0-0/73400320")
				w.WriteHeader(http.StatusPartialContent)
				_, _ = w.Write([]byte{0})
			},
			reachable:     true,
			class:         Status2xx,
			code:          http.StatusPartialContent,
			expectedBytes: 73400320,
		},
		{
			name: "range ignored",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Length", "4")
				_, _ = w.Write([]byte("abcd"))
			},
			reachable:     true,
			class:         Status2xx,
			code:          http.StatusOK,
			expectedBytes: 4,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			reachable:     false,
			class:         Status4xx,
			code:          http.StatusNotFound,
			expectedBytes: -1,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			reachable:     false,
			class:         Status5xx,
			code:          http.StatusBadGateway,
			expectedBytes: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			res := New(Config{Timeout: time.Second}).Probe(context.Background(), server.URL+"/api/raw/clip.mp4")

			assert.Equal(t, tt.reachable, res.Reachable)
			assert.Equal(t, tt.class, res.StatusClass)
			assert.Equal(t, tt.code, res.StatusCode)
			assert.Equal(t, tt.expectedBytes, res.Size)
			assert.NoError(t, res.Err)
			assert.False(t, res.Canceled)
		})
	}
}

func TestProbe_TimeoutIsOptimistic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	p := New(Config{Timeout: 50 * time.Millisecond})
	res := p.Probe(context.Background(), server.URL)

	assert.True(t, res.Reachable)
	assert.Equal(t, StatusTimeout, res.StatusClass)
	assert.False(t, res.Canceled)
	assert.Error(t, res.Err)
	assert.Less(t, res.Duration, 2*time.Second)
}

func TestProbe_NetworkErrorIsOptimistic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	res := New(Config{Timeout: time.Second}).Probe(context.Background(), url)

	assert.True(t, res.Reachable)
	assert.Equal(t, StatusNetworkError, res.StatusClass)
	assert.Error(t, res.Err)
}

func TestProbe_CallerCancel(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	res := New(Config{Timeout: 5 * time.Second}).Probe(ctx, server.URL)
	require.Error(t, res.Err)
	assert.True(t, res.Canceled)
}

func TestNew_Defaults(t *testing.T) {
	assert.Equal(t, DefaultTimeout, New(Config{}).Timeout())
}
