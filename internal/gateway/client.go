// Package gateway talks to the media gateway: it builds raw/converted source
// URLs and fetches metadata and file listings.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotFound is returned when the gateway answers 404
var ErrNotFound = errors.New("not found on gateway")

// Metadata is the descriptive information the gateway stores for a file
type Metadata struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Duration    float64  `json:"duration,omitempty"` // seconds
}

// File is one entry of the gateway's file listing
type File struct {
	Name string `json:"name"`
	Type string `json:"type"` // audio or video
}

type filesResponse struct {
	Files []File `json:"files"`
}

// Client wraps resty.Client with retry logic and timeout handling
type Client struct {
	resty      *resty.Client
	endpoints  *Endpoints
	maxRetries int
	timeout    time.Duration
	logger     *slog.Logger
}

// ClientConfig holds configuration for the gateway client
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
	Debug      bool
	Logger     *slog.Logger
}

// DefaultClientConfig returns sensible defaults for the gateway client
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:    "http://localhost:8000",
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		UserAgent:  "mediaplay/1.0",
	}
}

// NewClient creates a new gateway client with the given configuration
func NewClient(config ClientConfig) (*Client, error) {
	endpoints, err := NewEndpoints(config.BaseURL)
	if err != nil {
		return nil, err
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.UserAgent == "" {
		config.UserAgent = "mediaplay/1.0"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	restyClient := resty.New().
		SetTimeout(config.Timeout).
		SetRetryCount(config.MaxRetries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("User-Agent", config.UserAgent).
		SetHeader("Accept", "application/json")

	// Retry on network errors, 5xx and 429
	restyClient.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() >= 500 || r.StatusCode() == http.StatusTooManyRequests
	})

	client := &Client{
		resty:      restyClient,
		endpoints:  endpoints,
		maxRetries: config.MaxRetries,
		timeout:    config.Timeout,
		logger:     config.Logger,
	}

	if config.Debug {
		restyClient.OnAfterResponse(func(c *resty.Client, r *resty.Response) error {
			client.logger.Debug("gateway response",
				"method", r.Request.Method,
				"url", r.Request.URL,
				"status", r.StatusCode(),
				"time", r.Time(),
			)
			return nil
		})
	}

	return client, nil
}

// Endpoints returns the URL builder for this gateway
func (c *Client) Endpoints() *Endpoints {
	return c.endpoints
}

// GetTimeout returns the configured timeout
func (c *Client) GetTimeout() time.Duration {
	return c.timeout
}

// GetMaxRetries returns the configured max retries
func (c *Client) GetMaxRetries() int {
	return c.maxRetries
}

// Metadata fetches the metadata stored for filename. A file without stored
// metadata yields an empty Metadata, not an error.
func (c *Client) Metadata(ctx context.Context, filename string) (*Metadata, error) {
	var meta Metadata
	u := c.endpoints.Metadata(filename)
	resp, err := c.resty.R().
		SetContext(ctx).
		SetResult(&meta).
		Get(u)
	if err != nil {
		return nil, fmt.Errorf("GET request failed for %s: %w", u, err)
	}
	if err := checkStatus(resp, u); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Files lists the media files the gateway exposes
func (c *Client) Files(ctx context.Context) ([]File, error) {
	var out filesResponse
	u := c.endpoints.Files()
	resp, err := c.resty.R().
		SetContext(ctx).
		SetResult(&out).
		Get(u)
	if err != nil {
		return nil, fmt.Errorf("GET request failed for %s: %w", u, err)
	}
	if err := checkStatus(resp, u); err != nil {
		return nil, err
	}
	return out.Files, nil
}

func checkStatus(resp *resty.Response, u string) error {
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%s: %w", u, ErrNotFound)
	case resp.StatusCode() >= 400:
		return fmt.Errorf("HTTP error %d for %s: %s", resp.StatusCode(), u, resp.String())
	}
	return nil
}
