package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		expected Format
	}{
		{
			name:     "mp4 video",
			filename: "clip.mp4",
			expected: Format{Kind: KindVideo, Extension: "mp4", MIMEHint: "video/mp4"},
		},
		{
			name:     "mkv needs conversion",
			filename: "movie.mkv",
			expected: Format{Kind: KindVideo, Extension: "mkv", MIMEHint: "video/x-matroska", NeedsConversion: true},
		},
		{
			name:     "uppercase extension",
			filename: "MOVIE.MKV",
			expected: Format{Kind: KindVideo, Extension: "mkv", MIMEHint: "video/x-matroska", NeedsConversion: true},
		},
		{
			name:     "percent-encoded name",
			filename: "my%20song.flac",
			expected: Format{Kind: KindAudio, Extension: "flac", MIMEHint: "audio/flac"},
		},
		{
			name:     "hls manifest",
			filename: "live/stream.m3u8",
			expected: Format{Kind: KindVideo, Extension: "m3u8", MIMEHint: "application/vnd.apple.mpegurl", Adaptive: true},
		},
		{
			name:     "unknown extension",
			filename: "archive.xyz",
			expected: Format{Kind: KindVideo, Extension: "xyz", MIMEHint: "video/mp4"},
		},
		{
			name:     "no extension",
			filename: "README",
			expected: Format{Kind: KindVideo, Extension: "", MIMEHint: "video/mp4"},
		},
		{
			name:     "invalid escape kept verbatim",
			filename: "100%.webm",
			expected: Format{Kind: KindVideo, Extension: "webm", MIMEHint: "video/webm"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.filename))
		})
	}
}

func TestClassifyDecoded(t *testing.T) {
	// "movie%2Emkv" is the literal name; its encoded form is "movie%252Emkv"
	f := ClassifyDecoded("movie%2Emkv")
	assert.Equal(t, "", f.Extension)
	assert.False(t, f.NeedsConversion)

	assert.Equal(t, Classify("movie%252Emkv"), f)
	assert.Equal(t, "mkv", ClassifyDecoded("My Movie.MKV").Extension)
	assert.Equal(t, "", DecodedExtension("movie%2Emkv"))
	assert.Equal(t, "mkv", Extension("movie%2Emkv"))
}

func TestClassify_AudioSet(t *testing.T) {
	for _, ext := range []string{"mp3", "wav", "ogg", "flac", "aac", "m4a"} {
		f := Classify("track." + ext)
		assert.Equal(t, KindAudio, f.Kind, ext)
		assert.False(t, f.NeedsConversion, ext)
	}

	for _, ext := range []string{"mp4", "mkv", "webm", "avi", "mov", "opus", "wma", "m3u8", ""} {
		assert.Equal(t, KindVideo, Classify("file."+ext).Kind, ext)
	}
}

func TestFormat_WithKind(t *testing.T) {
	t.Run("unknown extension gets generic audio hint", func(t *testing.T) {
		f := Classify("podcast.bin").WithKind(KindAudio)
		assert.Equal(t, KindAudio, f.Kind)
		assert.Equal(t, "audio/mpeg", f.MIMEHint)
	})

	t.Run("known extension keeps its hint", func(t *testing.T) {
		f := Classify("clip.webm").WithKind(KindAudio)
		assert.Equal(t, KindAudio, f.Kind)
		assert.Equal(t, "video/webm", f.MIMEHint)
	})
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind(" Audio ")
	assert.True(t, ok)
	assert.Equal(t, KindAudio, k)

	_, ok = ParseKind("podcast")
	assert.False(t, ok)
}

func TestIsAdaptiveMIME(t *testing.T) {
	assert.True(t, IsAdaptiveMIME("application/vnd.apple.mpegurl"))
	assert.True(t, IsAdaptiveMIME("application/x-mpegURL"))
	assert.False(t, IsAdaptiveMIME("video/mp4"))
}
