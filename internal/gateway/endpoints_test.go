package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEndpoints(t *testing.T) {
	t.Run("trims trailing slash", func(t *testing.T) {
		e, err := NewEndpoints("http://media.local:8000/")
		require.NoError(t, err)
		assert.Equal(t, "http://media.local:8000", e.Base())
	})

	t.Run("rejects empty and non-http", func(t *testing.T) {
		_, err := NewEndpoints("")
		assert.Error(t, err)
		_, err = NewEndpoints("ftp://media.local")
		assert.Error(t, err)
	})
}

func TestEndpoints_URLs(t *testing.T) {
	e, err := NewEndpoints("http://media.local:8000")
	require.NoError(t, err)

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"raw plain", e.Raw("clip.mp4"), "http://media.local:8000/api/raw/clip.mp4"},
		{"raw with space", e.Raw("my movie.mkv"), "http://media.local:8000/api/raw/my%20movie.mkv"},
		{"raw already encoded", e.Raw("my%20movie.mkv"), "http://media.local:8000/api/raw/my%20movie.mkv"},
		{"raw with question mark", e.Raw("what?.mp3"), "http://media.local:8000/api/raw/what%3F.mp3"},
		{"raw nested path", e.Raw("shows/s01 e01.mkv"), "http://media.local:8000/api/raw/shows/s01%20e01.mkv"},
		{"converted default", e.Converted("movie.mkv", ""), "http://media.local:8000/api/converted/movie.mkv"},
		{"converted mp4", e.Converted("movie.mkv", "mp4"), "http://media.local:8000/api/converted/movie.mkv?format=mp4"},
		{"metadata", e.Metadata("song.flac"), "http://media.local:8000/api/metadata/song.flac"},
		{"files", e.Files(), "http://media.local:8000/api/files"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

func TestEndpoints_PathPrefix(t *testing.T) {
	e, err := NewEndpoints("https://example.com/gw")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/gw/api/raw/a%20b.mp4", e.Raw("a b.mp4"))
}

func TestToConverted(t *testing.T) {
	u, ok := ToConverted("http://h/api/raw/movie.mkv?nocache=2")
	assert.True(t, ok)
	assert.Equal(t, "http://h/api/converted/movie.mkv?nocache=2", u)

	u, ok = ToConverted("http://h/api/converted/movie.mkv")
	assert.False(t, ok)
	assert.Equal(t, "http://h/api/converted/movie.mkv", u)
}

func TestWithAttempt(t *testing.T) {
	assert.Equal(t, "http://h/api/raw/a.mp4", WithAttempt("http://h/api/raw/a.mp4", 0))
	assert.Equal(t, "http://h/api/raw/a.mp4?nocache=3", WithAttempt("http://h/api/raw/a.mp4", 3))
	assert.Equal(t,
		"http://h/api/converted/a.mkv?format=mp4&nocache=4",
		WithAttempt("http://h/api/converted/a.mkv?format=mp4", 4))
	assert.Equal(t, "http://h/api/raw/a%20b.mp4?nocache=1", WithAttempt("http://h/api/raw/a%20b.mp4", 1))
}
