package streaming

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"time"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
	"github.com/go-resty/resty/v2"
)

const maxManifestBytes = 2 << 20

// HLSResolver fetches HLS manifests and picks the variant to play
type HLSResolver struct {
	resty *resty.Client
}

// HLSConfig configures the HLS resolver
type HLSConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// NewHLSFactory returns a Factory producing an HLSResolver
func NewHLSFactory(cfg HLSConfig) Factory {
	return func(ctx context.Context) (Resolver, error) {
		return NewHLSResolver(cfg), nil
	}
}

// NewHLSResolver creates an HLSResolver
func NewHLSResolver(cfg HLSConfig) *HLSResolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "mediaplay/1.0"
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(1).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/vnd.apple.mpegurl, application/x-mpegurl, */*")
	return &HLSResolver{resty: client}
}

// Resolve returns the highest-bandwidth variant of a multivariant playlist,
// or manifestURL itself for a media playlist
func (h *HLSResolver) Resolve(ctx context.Context, manifestURL string) (string, error) {
	resp, err := h.resty.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(manifestURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch manifest %s: %w", manifestURL, err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	if resp.StatusCode() >= 400 {
		return "", fmt.Errorf("HTTP error %d for manifest %s", resp.StatusCode(), manifestURL)
	}
	body, err := io.ReadAll(io.LimitReader(raw, maxManifestBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read manifest %s: %w", manifestURL, err)
	}
	if len(body) > maxManifestBytes {
		return "", fmt.Errorf("manifest %s exceeds %d bytes", manifestURL, maxManifestBytes)
	}

	pl, err := playlist.Unmarshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse manifest %s: %w", manifestURL, err)
	}

	switch p := pl.(type) {
	case *playlist.Multivariant:
		return selectVariant(manifestURL, p)
	case *playlist.Media:
		return manifestURL, nil
	default:
		return "", fmt.Errorf("unknown playlist type in %s", manifestURL)
	}
}

func selectVariant(manifestURL string, mv *playlist.Multivariant) (string, error) {
	if len(mv.Variants) == 0 {
		return "", fmt.Errorf("no variants in multivariant playlist %s", manifestURL)
	}

	variants := make([]*playlist.MultivariantVariant, len(mv.Variants))
	copy(variants, mv.Variants)
	sort.SliceStable(variants, func(i, j int) bool {
		return variants[i].Bandwidth > variants[j].Bandwidth
	})

	return absolutize(manifestURL, variants[0].URI)
}

func absolutize(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid manifest URL %s: %w", base, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid variant URI %s: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}
