package ingest

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
)

// FetchConfig configures page downloads
type FetchConfig struct {
	Timeout time.Duration
	// RequestsPerSecond limits downloads across all hosts, 0 disables the limit.
	RequestsPerSecond float64
	UserAgent         string
	// MaxBytes caps the response body, larger bodies are truncated.
	MaxBytes int64
}

// DefaultFetchConfig returns the configuration used by the CLI
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Timeout:           15 * time.Second,
		RequestsPerSecond: 2,
		UserAgent:         "triage/1.0",
		MaxBytes:          10 << 20,
	}
}

// Page is a downloaded resource
type Page struct {
	URL         string
	ContentType string
	Body        []byte
}

// Fetcher downloads pages over HTTP
type Fetcher struct {
	client    *http.Client
	limiter   *helper.RateLimiter
	userAgent string
	maxBytes  int64
}

func NewFetcher(config FetchConfig) *Fetcher {
	defaults := DefaultFetchConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = defaults.MaxBytes
	}

	return &Fetcher{
		client:    &http.Client{Timeout: config.Timeout},
		limiter:   helper.NewRateLimiter(config.RequestsPerSecond, 1),
		userAgent: config.UserAgent,
		maxBytes:  config.MaxBytes,
	}
}

// Fetch downloads rawURL. Unreachable hosts and non-2xx responses are
// returned as *model.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, &model.FetchError{URL: rawURL, Err: fmt.Errorf("invalid url")}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &model.FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,application/pdf;q=0.8,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &model.FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		f.limiter.RecordRateLimitError(retryAfter)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &model.FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, &model.FetchError{URL: rawURL, Err: err}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}

	return &Page{
		URL:         rawURL,
		ContentType: contentType,
		Body:        body,
	}, nil
}
