package main

import (
	"fmt"
	"time"

	"github.com/randalmurphal/sigkit/examples"
	"github.com/randalmurphal/sigkit/predict"
	"github.com/randalmurphal/sigkit/provider"
)

// File is the on-disk configuration, in TOML or YAML.
type File struct {
	// Provider configures the model client.
	Provider provider.Config `toml:"provider" yaml:"provider"`

	// ContextURL is the document the retrieval examples read.
	ContextURL string `toml:"context_url" yaml:"context_url"`

	// Threads bounds the parallel example's pool.
	Threads int `toml:"threads" yaml:"threads"`

	// FetchCacheTTL caches fetched documents for this long. 0 disables the cache.
	FetchCacheTTL time.Duration `toml:"fetch_cache_ttl" yaml:"fetch_cache_ttl"`

	// MaxContextTokens truncates fetched documents. 0 derives a limit from
	// the model's context window.
	MaxContextTokens int `toml:"max_context_tokens" yaml:"max_context_tokens"`
}

// defaultFile returns the built-in configuration.
func defaultFile() File {
	return File{
		Provider:   provider.DefaultConfig(),
		ContextURL: examples.DefaultContextURL,
		Threads:    predict.DefaultThreads,
	}
}

// overrides holds command line values that win over file and environment.
type overrides struct {
	model       string
	baseURL     string
	temperature *float64
	contextURL  string
	threads     int
}

// loadConfig resolves the configuration: defaults, then the file at path
// (if any), then SIGKIT_* environment variables, then flags.
func loadConfig(path string, o overrides) (File, error) {
	cfg := defaultFile()

	if path != "" {
		var fromFile File
		if err := provider.LoadFile(path, &fromFile); err != nil {
			return File{}, err
		}
		cfg.Provider = cfg.Provider.Merge(fromFile.Provider)
		if fromFile.ContextURL != "" {
			cfg.ContextURL = fromFile.ContextURL
		}
		if fromFile.Threads != 0 {
			cfg.Threads = fromFile.Threads
		}
		if fromFile.FetchCacheTTL != 0 {
			cfg.FetchCacheTTL = fromFile.FetchCacheTTL
		}
		if fromFile.MaxContextTokens != 0 {
			cfg.MaxContextTokens = fromFile.MaxContextTokens
		}
	}

	cfg.Provider.LoadFromEnv()

	cfg.Provider = cfg.Provider.Merge(provider.Config{
		Model:       o.model,
		BaseURL:     o.baseURL,
		Temperature: o.temperature,
	})
	if o.contextURL != "" {
		cfg.ContextURL = o.contextURL
	}
	if o.threads != 0 {
		cfg.Threads = o.threads
	}

	if err := cfg.Validate(); err != nil {
		return File{}, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (f File) Validate() error {
	if err := f.Provider.Validate(); err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	if f.Threads < 1 {
		return fmt.Errorf("threads must be >= 1, got %d", f.Threads)
	}
	if f.FetchCacheTTL < 0 {
		return fmt.Errorf("fetch_cache_ttl must be >= 0, got %v", f.FetchCacheTTL)
	}
	if f.MaxContextTokens < 0 {
		return fmt.Errorf("max_context_tokens must be >= 0, got %d", f.MaxContextTokens)
	}
	return nil
}
