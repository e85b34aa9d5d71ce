// Package media classifies files by their extension.
package media

import (
	"net/url"
	"path"
	"strings"
)

// Kind is the broad media category of a file
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// String returns the string representation of Kind
func (k Kind) String() string {
	return string(k)
}

// ParseKind parses "audio" or "video". ok is false for anything else.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "audio":
		return KindAudio, true
	case "video":
		return KindVideo, true
	default:
		return "", false
	}
}

// Format is the classification result for a filename
type Format struct {
	Kind      Kind   `json:"kind"`
	Extension string `json:"extension"` // lowercase, without the dot
	MIMEHint  string `json:"mime_hint"`

	// NeedsConversion marks containers that rarely play from the raw endpoint,
	// so playback should start on the converted endpoint.
	NeedsConversion bool `json:"needs_conversion"`

	// Adaptive marks adaptive-streaming manifests.
	Adaptive bool `json:"adaptive"`
}

const (
	defaultVideoMIME = "video/mp4"
	defaultAudioMIME = "audio/mpeg"
	hlsMIME          = "application/vnd.apple.mpegurl"
)

var audioExtensions = map[string]bool{
	"mp3":  true,
	"wav":  true,
	"ogg":  true,
	"flac": true,
	"aac":  true,
	"m4a":  true,
}

var mimeTypes = map[string]string{
	// Video
	"mp4":  "video/mp4",
	"m4v":  "video/mp4",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
	"avi":  "video/x-msvideo",
	"mov":  "video/quicktime",
	"ts":   "video/mp2t",
	"mts":  "video/mp2t",
	"vob":  "video/mpeg",
	"3gp":  "video/3gpp",
	"flv":  "video/x-flv",
	"wmv":  "video/x-ms-wmv",
	"m3u8": hlsMIME,

	// Audio
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
	"aac":  "audio/aac",
	"m4a":  "audio/mp4",
}

// Classify maps a possibly percent-encoded filename to its kind, extension
// and MIME hint. It never fails: unknown extensions classify as video with a
// generic MIME hint.
func Classify(filename string) Format {
	return ClassifyDecoded(DecodeName(filename))
}

// ClassifyDecoded is Classify for a name that is already decoded. The name is
// taken literally, so "%2E" stays part of the stem.
func ClassifyDecoded(name string) Format {
	ext := DecodedExtension(name)

	kind := KindVideo
	if audioExtensions[ext] {
		kind = KindAudio
	}

	mime, ok := mimeTypes[ext]
	if !ok {
		mime = defaultVideoMIME
	}

	return Format{
		Kind:            kind,
		Extension:       ext,
		MIMEHint:        mime,
		NeedsConversion: ext == "mkv",
		Adaptive:        ext == "m3u8",
	}
}

// WithKind returns a copy of f whose kind is overridden by the caller.
// The MIME hint falls back to the generic one for the new kind when the
// extension is unknown.
func (f Format) WithKind(kind Kind) Format {
	if kind == f.Kind {
		return f
	}
	f.Kind = kind
	if _, known := mimeTypes[f.Extension]; !known {
		if kind == KindAudio {
			f.MIMEHint = defaultAudioMIME
		} else {
			f.MIMEHint = defaultVideoMIME
		}
	}
	return f
}

// IsAdaptiveMIME reports whether mime names an HLS manifest
func IsAdaptiveMIME(mime string) bool {
	switch strings.ToLower(mime) {
	case hlsMIME, "application/x-mpegurl", "audio/mpegurl":
		return true
	}
	return false
}

// Extension returns the lowercase extension of a possibly percent-encoded
// filename, or "" if it has none.
func Extension(filename string) string {
	return DecodedExtension(DecodeName(filename))
}

// DecodedExtension returns the lowercase extension of an already decoded name
func DecodedExtension(name string) string {
	ext := path.Ext(name)
	if ext == "" || ext == name {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// DecodeName percent-decodes a filename. Names that are not valid
// escape sequences are returned unchanged.
func DecodeName(filename string) string {
	decoded, err := url.PathUnescape(filename)
	if err != nil {
		return filename
	}
	return decoded
}
