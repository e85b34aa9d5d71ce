// Package probe checks whether a source URL is reachable before playback
// resources are committed to it.
package probe

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds a single probe
const DefaultTimeout = 5 * time.Second

// StatusClass is the coarse outcome of a probe
type StatusClass string

const (
	Status2xx          StatusClass = "2xx"
	Status4xx          StatusClass = "4xx"
	Status5xx          StatusClass = "5xx"
	StatusTimeout      StatusClass = "timeout"
	StatusNetworkError StatusClass = "network-error"
)

// Result is the outcome of probing one URL.
//
// Reachable is false only for a clean 4xx/5xx answer. Timeouts and transport
// failures are reported as reachable: some gateways reject range reads but
// still serve full playback.
type Result struct {
	Reachable   bool
	StatusClass StatusClass
	StatusCode  int
	Size        int64 // total resource size, -1 if unknown
	Canceled    bool  // the caller's context was canceled
	Err         error
	Duration    time.Duration
}

// Prober is the capability the playback controller needs
type Prober interface {
	Probe(ctx context.Context, url string) Result
}

// Config holds probe settings
type Config struct {
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
}

// HTTPProber probes with a single ranged GET for the first byte
type HTTPProber struct {
	resty   *resty.Client
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an HTTPProber
func New(cfg Config) *HTTPProber {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "mediaplay/1.0"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	// No retries: a probe has to stay within its timeout
	client := resty.New().
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent)

	return &HTTPProber{
		resty:   client,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

// Timeout returns the configured probe timeout
func (p *HTTPProber) Timeout() time.Duration {
	return p.timeout
}

// Probe requests bytes=0-0 of url, bounded by the probe timeout and ctx
func (p *HTTPProber) Probe(ctx context.Context, url string) Result {
	start := time.Now()
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.resty.R().
		SetContext(probeCtx).
		SetHeader("Range", "bytes=0-0").
		SetDoNotParseResponse(true).
		Get(url)

	if resp != nil && resp.RawBody() != nil {
		// Only the status matters; never drain a full body from a gateway
		// that ignored the range
		_ = resp.RawBody().Close()
	}

	res := Result{Size: -1, Duration: time.Since(start)}

	if err != nil {
		res.Err = err
		res.Reachable = true
		switch {
		case ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded):
			res.Canceled = true
			res.StatusClass = StatusNetworkError
		case errors.Is(probeCtx.Err(), context.DeadlineExceeded) || isTimeout(err):
			res.StatusClass = StatusTimeout
		default:
			res.StatusClass = StatusNetworkError
		}
		p.logger.Debug("probe inconclusive, passing optimistically",
			"url", url, "class", res.StatusClass, "canceled", res.Canceled, "error", err)
		return res
	}

	res.StatusCode = resp.StatusCode()
	res.StatusClass = classify(res.StatusCode)
	res.Reachable = res.StatusCode < 400
	res.Size = parseSize(resp.Header())

	p.logger.Debug("probe finished",
		"url", url, "status", res.StatusCode, "reachable", res.Reachable, "duration", res.Duration)
	return res
}

func classify(code int) StatusClass {
	switch {
	case code >= 500:
		return Status5xx
	case code >= 400:
		return Status4xx
	default:
		return Status2xx
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// parseSize reads the total size from Content-Range ("bytes 0-0/1234"),
// falling back to Content-Length for gateways that ignore ranges.
func parseSize(h http.Header) int64 {
	if cr := h.Get("Content-Range"); cr != "" {
		if i := strings.LastIndex(cr, "/"); i >= 0 {
			if n, err := strconv.ParseInt(strings.TrimSpace(cr[i+1:]), 10, 64); err == nil {
				return n
			}
		}
	}
	if cl := h.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			return n
		}
	}
	return -1
}
