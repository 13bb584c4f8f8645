package provider

import (
	"fmt"
	"maps"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Default backend settings: a stock Ollama install with a small model.
const (
	DefaultProvider = "local"
	DefaultModel    = "llama3.2:3b"
	DefaultBaseURL  = "http://localhost:11434"
)

// Config holds configuration for creating a model client.
// Common fields apply to all providers; use Options for backend-specific settings.
type Config struct {
	// Provider is the name of the provider to use. Default: "local".
	Provider string `json:"provider" yaml:"provider" toml:"provider"`

	// Model is the model identifier on the server (e.g. "llama3.2:3b").
	Model string `json:"model" yaml:"model" toml:"model"`

	// BaseURL is the inference server address.
	// Default: http://localhost:11434
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url"`

	// APIKey is sent as a bearer token when non-empty.
	// Local servers normally need none.
	APIKey string `json:"api_key" yaml:"api_key" toml:"api_key"`

	// Temperature is the default sampling temperature. Nil leaves it to the server.
	Temperature *float64 `json:"temperature" yaml:"temperature" toml:"temperature"`

	// MaxTokens is the default response limit. 0 leaves it to the server.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`

	// Timeout is the maximum duration for a single completion request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" toml:"timeout"`

	// MaxRetries is how many times a retryable failure is retried.
	MaxRetries int `json:"max_retries" yaml:"max_retries" toml:"max_retries"`

	// Options holds provider-specific configuration.
	//
	// Local:
	//   - "backend": "ollama" | "openai"
	//   - "keep_alive": string (Ollama keep_alive, e.g. "5m")
	//   - "num_ctx": int (Ollama context window)
	Options map[string]any `json:"options" yaml:"options" toml:"options"`
}

// DefaultConfig returns a Config pointing at a local Ollama server.
func DefaultConfig() Config {
	return Config{
		Provider:   DefaultProvider,
		Model:      DefaultModel,
		BaseURL:    DefaultBaseURL,
		Timeout:    5 * time.Minute,
		MaxRetries: 2,
	}
}

// LoadFromEnv populates config fields from environment variables.
// Environment variables use the SIGKIT_ prefix and take precedence over existing values.
//
// Supported variables:
//   - SIGKIT_PROVIDER: Provider name
//   - SIGKIT_MODEL: Model name
//   - SIGKIT_BASE_URL: Server address
//   - SIGKIT_API_KEY: Bearer token
//   - SIGKIT_TEMPERATURE: Sampling temperature
//   - SIGKIT_MAX_TOKENS: Response limit
//   - SIGKIT_TIMEOUT: Timeout duration (e.g., "5m")
//   - SIGKIT_MAX_RETRIES: Retry count
//
// The server's own OLLAMA_NUM_PARALLEL is deliberately not read here;
// it only affects the Ollama process.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("SIGKIT_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("SIGKIT_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("SIGKIT_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("SIGKIT_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("SIGKIT_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Temperature = &f
		}
	}
	if v := os.Getenv("SIGKIT_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTokens = n
		}
	}
	if v := os.Getenv("SIGKIT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
	if v := os.Getenv("SIGKIT_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
}

// FromEnv creates a Config from environment variables with defaults.
func FromEnv() Config {
	cfg := DefaultConfig()
	cfg.LoadFromEnv()
	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("base_url must be an absolute URL, got %q", c.BaseURL)
		}
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be >= 0, got %d", c.MaxTokens)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be within [0, 2], got %v", *c.Temperature)
	}
	return nil
}

// Merge returns c with every non-zero field of other applied on top.
func (c Config) Merge(other Config) Config {
	if other.Provider != "" {
		c.Provider = other.Provider
	}
	if other.Model != "" {
		c.Model = other.Model
	}
	if other.BaseURL != "" {
		c.BaseURL = other.BaseURL
	}
	if other.APIKey != "" {
		c.APIKey = other.APIKey
	}
	if other.Temperature != nil {
		t := *other.Temperature
		c.Temperature = &t
	}
	if other.MaxTokens != 0 {
		c.MaxTokens = other.MaxTokens
	}
	if other.Timeout != 0 {
		c.Timeout = other.Timeout
	}
	if other.MaxRetries != 0 {
		c.MaxRetries = other.MaxRetries
	}
	for k, v := range other.Options {
		c = c.WithOption(k, v)
	}
	return c
}

// WithProvider returns a copy of the config with the specified provider.
func (c Config) WithProvider(provider string) Config {
	c.Provider = provider
	return c
}

// WithModel returns a copy of the config with the specified model.
func (c Config) WithModel(model string) Config {
	c.Model = model
	return c
}

// WithBaseURL returns a copy of the config with the specified server address.
func (c Config) WithBaseURL(baseURL string) Config {
	c.BaseURL = baseURL
	return c
}

// WithOption returns a copy of the config with the specified option set.
func (c Config) WithOption(key string, value any) Config {
	opts := make(map[string]any, len(c.Options)+1)
	maps.Copy(opts, c.Options)
	opts[key] = value
	c.Options = opts
	return c
}

// GetStringOption retrieves a string option, returning defaultVal if not set.
func (c Config) GetStringOption(key, defaultVal string) string {
	if v, ok := c.Options[key].(string); ok {
		return v
	}
	return defaultVal
}

// GetBoolOption retrieves a bool option, returning defaultVal if not set.
func (c Config) GetBoolOption(key string, defaultVal bool) bool {
	if v, ok := c.Options[key].(bool); ok {
		return v
	}
	return defaultVal
}

// GetIntOption retrieves an int option, returning defaultVal if not set.
// Accepts the numeric types produced by JSON, YAML and TOML decoding.
func (c Config) GetIntOption(key string, defaultVal int) int {
	switch v := c.Options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultVal
}
