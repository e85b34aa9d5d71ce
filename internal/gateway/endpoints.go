package gateway

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/noediv/mediaplay/internal/media"
)

const (
	rawPrefix       = "/api/raw/"
	convertedPrefix = "/api/converted/"
	metadataPrefix  = "/api/metadata/"
	filesPath       = "/api/files"

	// CacheBustParam is appended to retried source URLs
	CacheBustParam = "nocache"
)

// Endpoints builds gateway URLs for a base address
type Endpoints struct {
	base *url.URL
}

// NewEndpoints parses the gateway base URL (scheme and host, optionally a path prefix)
func NewEndpoints(baseURL string) (*Endpoints, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("gateway base URL is empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid gateway base URL %q: scheme must be http or https", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return &Endpoints{base: u}, nil
}

// Base returns the normalized base URL
func (e *Endpoints) Base() string {
	return e.base.String()
}

// Raw returns the raw-endpoint URL for a filename
func (e *Endpoints) Raw(filename string) string {
	return e.build(rawPrefix+EncodeName(filename), nil)
}

// Converted returns the converted-endpoint URL for a filename. An empty
// format leaves the rendition choice to the gateway.
func (e *Endpoints) Converted(filename, format string) string {
	var q url.Values
	if format != "" {
		q = url.Values{"format": []string{format}}
	}
	return e.build(convertedPrefix+EncodeName(filename), q)
}

// Metadata returns the metadata-endpoint URL for a filename
func (e *Endpoints) Metadata(filename string) string {
	return e.build(metadataPrefix+EncodeName(filename), nil)
}

// Files returns the file-listing URL
func (e *Endpoints) Files() string {
	return e.build(filesPath, nil)
}

func (e *Endpoints) build(escapedPath string, q url.Values) string {
	u := *e.base
	// RawPath keeps the per-segment escaping intact
	u.RawPath = e.base.EscapedPath() + escapedPath
	if p, err := url.PathUnescape(u.RawPath); err == nil {
		u.Path = p
	}
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// EncodeName percent-encodes a filename for use in a URL path. The name is
// decoded first so already-encoded names are not double-escaped; slashes
// separate segments and are preserved.
func EncodeName(filename string) string {
	segments := strings.Split(media.DecodeName(filename), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// IsRaw reports whether u points at the raw endpoint
func IsRaw(u string) bool {
	return strings.Contains(u, rawPrefix)
}

// ToConverted rewrites a raw-endpoint URL to its converted-endpoint form.
// ok is false when u is not a raw-endpoint URL.
func ToConverted(u string) (string, bool) {
	if !IsRaw(u) {
		return u, false
	}
	return strings.Replace(u, rawPrefix, convertedPrefix, 1), true
}

// WithAttempt sets the cache-busting parameter to attempt. Attempt zero
// leaves the URL untouched.
func WithAttempt(rawURL string, attempt int) string {
	if attempt <= 0 {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set(CacheBustParam, strconv.Itoa(attempt))
	u.RawQuery = q.Encode()
	return u.String()
}
