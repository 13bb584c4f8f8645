package retrieve

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/randalmurphal/sigkit/tokens"
	"github.com/randalmurphal/sigkit/truncate"
)

// Defaults for a Fetcher.
const (
	DefaultMaxBytes  = 2 << 20
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "sigkit/1.0 (+https://github.com/randalmurphal/sigkit)"
)

// Sentinel errors.
var (
	// ErrStatus is returned for non-2xx responses.
	ErrStatus = errors.New("unexpected HTTP status")

	// ErrInvalidURL is returned for URLs that are not absolute http(s).
	ErrInvalidURL = errors.New("invalid URL")
)

// Fetcher retrieves documents over HTTP. It is safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	maxTokens int
	userAgent string
	cache     *ttlcache.Cache[string, string]
	logger    *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the transport.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithMaxBytes caps how much of a body is read. Default: 2 MiB.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) { f.maxBytes = n }
}

// WithMaxTokens truncates the returned text to about n tokens, cutting at
// a sentence or paragraph boundary where possible. 0 disables truncation.
func WithMaxTokens(n int) Option {
	return func(f *Fetcher) { f.maxTokens = n }
}

// WithBudget truncates to the context share of b.
func WithBudget(b *tokens.Budget) Option {
	return func(f *Fetcher) { f.maxTokens = b.Context }
}

// WithCache keeps fetched documents for ttl. 0 disables caching.
func WithCache(ttl time.Duration) Option {
	return func(f *Fetcher) {
		if ttl <= 0 {
			f.cache = nil
			return
		}
		f.cache = ttlcache.New[string, string](
			ttlcache.WithTTL[string, string](ttl),
			ttlcache.WithDisableTouchOnHit[string, string](),
		)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a Fetcher. Call Close when a cache is configured.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		maxBytes:  DefaultMaxBytes,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: DefaultTimeout}
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.cache != nil {
		go f.cache.Start()
	}
	return f
}

// Close stops the cache expiration loop.
func (f *Fetcher) Close() {
	if f.cache != nil {
		f.cache.Stop()
	}
}

// Fetch GETs rawURL and returns its text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	if f.cache != nil {
		if item := f.cache.Get(rawURL); item != nil {
			f.logger.Debug("fetch cache hit", slog.String("url", rawURL))
			return item.Value(), nil
		}
	}

	start := time.Now()
	text, err := f.get(ctx, u.String())
	if err != nil {
		return "", err
	}
	if f.maxTokens > 0 {
		text = truncate.ToTokens(text, f.maxTokens)
	}

	f.logger.Debug("fetched",
		slog.String("url", rawURL),
		slog.Duration("duration", time.Since(start)),
		slog.Int("chars", len(text)),
		slog.Int("tokens", tokens.EstimateTokens(text)))

	if f.cache != nil {
		f.cache.Set(rawURL, text, ttlcache.DefaultTTL)
	}
	return text, nil
}

func (f *Fetcher) get(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json,text/plain;q=0.9,*/*;q=0.8")

	res, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", target, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %s: %s", ErrStatus, target, res.Status)
	}

	// One byte past the cap tells a body that fits from one that was cut.
	data, err := io.ReadAll(io.LimitReader(res.Body, f.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", target, err)
	}
	if int64(len(data)) > f.maxBytes {
		data = data[:f.maxBytes]
		f.logger.Warn("response body truncated",
			slog.String("url", target),
			slog.Int64("max_bytes", f.maxBytes))
	}

	if isHTML(res.Header.Get("Content-Type")) {
		text, err := HTMLText(bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("read %s: %w", target, err)
		}
		return text, nil
	}
	return string(data), nil
}

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "html")
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}
