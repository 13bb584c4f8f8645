package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/randalmurphal/sigkit/provider"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 1 << 20

// Client implements provider.Client against a local inference server.
type Client struct {
	cfg Config
}

// NewClient creates a client from DefaultConfig with opts applied.
func NewClient(opts ...Option) *Client {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{cfg: cfg.WithDefaults()}
}

// NewClientWithConfig creates a client from a Config.
func NewClientWithConfig(cfg Config) *Client {
	return &Client{cfg: cfg.WithDefaults()}
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Complete implements provider.Client.
func (c *Client) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, provider.NewError("local", "complete", fmt.Errorf("%w: %w", provider.ErrInvalidRequest, err), false)
	}

	start := time.Now()
	data, err := c.do(ctx, "complete", req, false, func(res *http.Response) ([]byte, error) {
		return io.ReadAll(res.Body)
	})
	if err != nil {
		return nil, err
	}

	var resp *provider.Response
	if c.cfg.Backend == BackendOpenAI {
		resp, err = decodeOpenAI(data)
	} else {
		resp, err = decodeOllama(data)
	}
	if err != nil {
		return nil, provider.NewError("local", "complete", err, false)
	}
	resp.Duration = time.Since(start)
	if resp.Model == "" {
		resp.Model = c.model(req)
	}

	c.cfg.Logger.Debug("model call complete",
		slog.String("model", resp.Model),
		slog.Duration("duration", resp.Duration),
		slog.Int("input_tokens", resp.Usage.InputTokens),
		slog.Int("output_tokens", resp.Usage.OutputTokens),
		slog.Int("tool_calls", len(resp.ToolCalls)))

	return resp, nil
}

// Stream implements provider.Client.
// Connection failures before the first byte are retried like Complete;
// failures mid-stream are reported on the channel.
func (c *Client) Stream(ctx context.Context, req provider.Request) (<-chan provider.StreamChunk, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, provider.NewError("local", "stream", fmt.Errorf("%w: %w", provider.ErrInvalidRequest, err), false)
	}

	bodyCh := make(chan io.ReadCloser, 1)
	_, err := c.do(ctx, "stream", req, true, func(res *http.Response) ([]byte, error) {
		// Hand the open body to the reader goroutine instead of draining it.
		bodyCh <- res.Body
		res.Body = http.NoBody
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	body := <-bodyCh

	ch := make(chan provider.StreamChunk)
	go func() {
		defer close(ch)
		defer body.Close()

		emit := func(chunk provider.StreamChunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var readErr error
		if c.cfg.Backend == BackendOpenAI {
			readErr = readOpenAIStream(body, emit)
		} else {
			readErr = readOllamaStream(body, emit)
		}
		if readErr == nil && ctx.Err() != nil {
			readErr = ctx.Err()
		}
		if readErr != nil {
			select {
			case ch <- provider.StreamChunk{Error: provider.NewError("local", "stream", readErr, false)}:
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}

// Provider implements provider.Client.
func (c *Client) Provider() string {
	return "local"
}

// Capabilities implements provider.Client.
func (c *Client) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Streaming: true,
		Tools:     true,
		JSONMode:  true,
		Images:    false,
	}
}

// Close implements provider.Client. The HTTP transport's idle connections are released.
func (c *Client) Close() error {
	c.cfg.HTTPClient.CloseIdleConnections()
	return nil
}

// endpoint returns the chat URL for the configured backend.
func (c *Client) endpoint() string {
	if c.cfg.Backend == BackendOpenAI {
		if strings.HasSuffix(c.cfg.BaseURL, "/v1") {
			return c.cfg.BaseURL + "/chat/completions"
		}
		return c.cfg.BaseURL + "/v1/chat/completions"
	}
	return c.cfg.BaseURL + "/api/chat"
}

func (c *Client) model(req provider.Request) string {
	if req.Model != "" {
		return req.Model
	}
	return c.cfg.Model
}

func (c *Client) temperature(req provider.Request) *float64 {
	if req.Temperature != nil {
		return req.Temperature
	}
	return c.cfg.Temperature
}

func (c *Client) maxTokens(req provider.Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return c.cfg.MaxTokens
}

// do posts the request, retrying retryable failures with exponential backoff,
// and hands the successful response to read.
func (c *Client) do(ctx context.Context, op string, req provider.Request, stream bool, read func(*http.Response) ([]byte, error)) ([]byte, error) {
	var payload any
	if c.cfg.Backend == BackendOpenAI {
		payload = c.encodeOpenAI(req, stream)
	} else {
		payload = c.encodeOllama(req, stream)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, provider.NewError("local", op, fmt.Errorf("%w: marshal request: %w", provider.ErrInvalidRequest, err), false)
	}

	for attempt := 0; ; attempt++ {
		data, retryAfter, err := c.attempt(ctx, op, body, stream, read)
		if err == nil {
			return data, nil
		}
		if !provider.IsRetryable(err) || attempt >= c.cfg.MaxRetries || ctx.Err() != nil {
			return nil, err
		}

		wait := retryAfter
		if wait <= 0 {
			wait = backoff(attempt, c.cfg.MinBackoff, c.cfg.MaxBackoff)
		}
		c.cfg.Logger.Warn("retrying model call",
			slog.String("op", op),
			slog.Int("attempt", attempt+1),
			slog.Duration("wait", wait),
			slog.Any("error", err))

		select {
		case <-ctx.Done():
			return nil, provider.NewError("local", op, ctx.Err(), false)
		case <-time.After(wait):
		}
	}
}

// attempt performs a single HTTP round trip. The returned duration is the
// server's Retry-After hint, if any.
func (c *Client) attempt(ctx context.Context, op string, body []byte, stream bool, read func(*http.Response) ([]byte, error)) ([]byte, time.Duration, error) {
	callCtx := ctx
	var cancel context.CancelFunc = func() {}
	// A streaming body outlives this function, so only non-streaming calls
	// get the per-attempt timeout; streams are bounded by ctx.
	if c.cfg.RequestTimeout > 0 && !stream {
		callCtx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, 0, provider.NewError("local", op, fmt.Errorf("%w: %w", provider.ErrInvalidRequest, err), false)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream && c.cfg.Backend == BackendOpenAI {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	res, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			return nil, 0, provider.NewError("local", op, fmt.Errorf("%w: %w", provider.ErrTimeout, err), true)
		case ctx.Err() != nil:
			return nil, 0, provider.NewError("local", op, ctx.Err(), false)
		default:
			return nil, 0, provider.NewError("local", op, fmt.Errorf("%w: %w", provider.ErrUnavailable, err), true)
		}
	}
	// Closure so a body handed off by read (streaming) is not closed here.
	defer func() { res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, retryAfter(res), statusError(op, res.StatusCode, apiErrorMessage(b))
	}

	data, err := read(res)
	if err != nil {
		return nil, 0, provider.NewError("local", op, fmt.Errorf("read response: %w", err), false)
	}
	return data, 0, nil
}

// statusError maps an HTTP status to a provider error.
func statusError(op string, status int, msg string) error {
	var sentinel error
	retryable := false
	switch {
	case status == http.StatusTooManyRequests:
		sentinel, retryable = provider.ErrRateLimited, true
	case status == http.StatusNotFound:
		sentinel = provider.ErrModelNotFound
	case status == http.StatusRequestEntityTooLarge:
		sentinel = provider.ErrContextTooLong
	case status >= 500:
		sentinel, retryable = provider.ErrUnavailable, true
	default:
		sentinel = provider.ErrInvalidRequest
	}
	return provider.NewError("local", op, fmt.Errorf("%w (status %d): %s", sentinel, status, msg), retryable).WithStatus(status)
}

func retryAfter(res *http.Response) time.Duration {
	if ra := res.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

// backoff returns an exponential delay with +/-20% jitter.
func backoff(attempt int, minDelay, maxDelay time.Duration) time.Duration {
	d := minDelay << attempt
	if d > maxDelay || d <= 0 {
		d = maxDelay
	}
	return time.Duration(float64(d) * (0.8 + 0.4*rand.Float64()))
}
