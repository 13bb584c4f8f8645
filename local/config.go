package local

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Backend identifies the wire protocol spoken by the local server.
type Backend string

// Supported backends.
const (
	// BackendOllama speaks Ollama's native /api/chat protocol.
	BackendOllama Backend = "ollama"

	// BackendOpenAI speaks the OpenAI-compatible /v1/chat/completions
	// protocol served by llama.cpp, vLLM, LM Studio and Ollama itself.
	BackendOpenAI Backend = "openai"
)

// Config holds local provider configuration.
type Config struct {
	// Backend selects the wire protocol. Default: ollama.
	Backend Backend `json:"backend" yaml:"backend"`

	// BaseURL is the server address, without the API path.
	// Default: http://localhost:11434
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the model name on the server (e.g. "llama3.2:3b").
	Model string `json:"model" yaml:"model"`

	// APIKey is sent as a bearer token when non-empty.
	APIKey string `json:"api_key" yaml:"api_key"`

	// Temperature is the default sampling temperature when the request sets none.
	Temperature *float64 `json:"temperature" yaml:"temperature"`

	// MaxTokens is the default response limit when the request sets none.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// NumCtx sets Ollama's context window (options.num_ctx). 0 keeps the server default.
	NumCtx int `json:"num_ctx" yaml:"num_ctx"`

	// KeepAlive controls how long Ollama keeps the model loaded (e.g. "5m").
	KeepAlive string `json:"keep_alive" yaml:"keep_alive"`

	// RequestTimeout bounds a single attempt. Default: 5 minutes.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`

	// MaxRetries is the number of retries for retryable failures. Default: 2.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MinBackoff and MaxBackoff bound the exponential retry delay.
	MinBackoff time.Duration `json:"min_backoff" yaml:"min_backoff"`
	MaxBackoff time.Duration `json:"max_backoff" yaml:"max_backoff"`

	// HTTPClient overrides the transport (tests, proxies).
	HTTPClient *http.Client `json:"-" yaml:"-"`

	// Logger receives debug logs for calls and retries. Default: slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config for a stock Ollama install.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendOllama,
		BaseURL:        "http://localhost:11434",
		Model:          "llama3.2:3b",
		RequestTimeout: 5 * time.Minute,
		MaxRetries:     2,
		MinBackoff:     250 * time.Millisecond,
		MaxBackoff:     4 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOllama, BackendOpenAI:
	case "":
		return fmt.Errorf("backend is required")
	default:
		return fmt.Errorf("unknown backend %q, expected one of: ollama, openai", c.Backend)
	}

	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL, got %q", c.BaseURL)
	}

	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must be >= 0")
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0")
	}

	return nil
}

// WithDefaults returns a copy of the config with defaults applied for unset fields.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()

	if c.Backend == "" {
		c.Backend = defaults.Backend
	}
	if c.BaseURL == "" {
		c.BaseURL = defaults.BaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = defaults.Model
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaults.RequestTimeout
	}
	if c.MinBackoff == 0 {
		c.MinBackoff = defaults.MinBackoff
	}
	if c.MaxBackoff < c.MinBackoff {
		c.MaxBackoff = max(defaults.MaxBackoff, c.MinBackoff)
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	return c
}

// Option configures a local Client.
type Option func(*Config)

// WithBackend sets the wire protocol.
func WithBackend(backend Backend) Option {
	return func(c *Config) { c.Backend = backend }
}

// WithBaseURL sets the server address.
func WithBaseURL(baseURL string) Option {
	return func(c *Config) { c.BaseURL = baseURL }
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithTemperature sets the default sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Config) { c.Temperature = &t }
}

// WithRequestTimeout sets the per-attempt timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) { c.RequestTimeout = d }
}

// WithRetry configures the retry policy for 429/5xx and connection failures.
func WithRetry(maxRetries int, minBackoff, maxBackoff time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.MinBackoff = minBackoff
		c.MaxBackoff = maxBackoff
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Config) { c.HTTPClient = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}
