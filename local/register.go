package local

import (
	"github.com/randalmurphal/sigkit/provider"
)

func init() {
	provider.Register("local", newFromProviderConfig)
	provider.RegisterAlias("ollama", "local", map[string]any{"backend": string(BackendOllama)})
	provider.RegisterAlias("openai-compatible", "local", map[string]any{"backend": string(BackendOpenAI)})
}

// newFromProviderConfig creates a local Client from a provider.Config.
// This is the factory function registered with the provider registry.
func newFromProviderConfig(cfg provider.Config) (provider.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	localCfg := Config{
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		MaxRetries:  cfg.MaxRetries,
	}

	if cfg.Timeout > 0 {
		localCfg.RequestTimeout = cfg.Timeout
	}

	if backend := cfg.GetStringOption("backend", ""); backend != "" {
		localCfg.Backend = Backend(backend)
	}
	if keepAlive := cfg.GetStringOption("keep_alive", ""); keepAlive != "" {
		localCfg.KeepAlive = keepAlive
	}
	localCfg.NumCtx = cfg.GetIntOption("num_ctx", 0)

	client := NewClientWithConfig(localCfg)
	if err := client.cfg.Validate(); err != nil {
		return nil, err
	}
	return client, nil
}
