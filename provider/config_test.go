package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "local", cfg.Provider)
	assert.Equal(t, "llama3.2:3b", cfg.Model)
	assert.Equal(t, "http://localhost:11434", cfg.BaseURL)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid config", Config{Provider: "local"}, false},
		{"missing provider", Config{}, true},
		{"relative base url", Config{Provider: "local", BaseURL: "localhost:11434"}, true},
		{"negative max tokens", Config{Provider: "local", MaxTokens: -1}, true},
		{"negative retries", Config{Provider: "local", MaxRetries: -1}, true},
		{"negative timeout", Config{Provider: "local", Timeout: -1 * time.Second}, true},
		{"temperature too high", Config{Provider: "local", Temperature: Float(3)}, true},
		{"temperature zero", Config{Provider: "local", Temperature: Float(0)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("SIGKIT_PROVIDER", "other")
	t.Setenv("SIGKIT_MODEL", "qwen2.5:7b")
	t.Setenv("SIGKIT_BASE_URL", "http://gpu-box:8080")
	t.Setenv("SIGKIT_API_KEY", "secret")
	t.Setenv("SIGKIT_TEMPERATURE", "0.2")
	t.Setenv("SIGKIT_MAX_TOKENS", "512")
	t.Setenv("SIGKIT_TIMEOUT", "30s")
	t.Setenv("SIGKIT_MAX_RETRIES", "5")

	cfg := FromEnv()

	assert.Equal(t, "other", cfg.Provider)
	assert.Equal(t, "qwen2.5:7b", cfg.Model)
	assert.Equal(t, "http://gpu-box:8080", cfg.BaseURL)
	assert.Equal(t, "secret", cfg.APIKey)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.2, *cfg.Temperature, 1e-9)
	assert.Equal(t, 512, cfg.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.MaxRetries)
}

func TestConfig_LoadFromEnv_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("SIGKIT_TIMEOUT", "soon")
	t.Setenv("SIGKIT_MAX_TOKENS", "many")

	cfg := FromEnv()

	assert.Equal(t, 5*time.Minute, cfg.Timeout)
	assert.Equal(t, 0, cfg.MaxTokens)
}

func TestConfig_Merge(t *testing.T) {
	base := DefaultConfig().WithOption("backend", "ollama")
	merged := base.Merge(Config{Model: "phi3", Options: map[string]any{"num_ctx": 8192}})

	assert.Equal(t, "phi3", merged.Model)
	assert.Equal(t, DefaultBaseURL, merged.BaseURL)
	assert.Equal(t, "ollama", merged.GetStringOption("backend", ""))
	assert.Equal(t, 8192, merged.GetIntOption("num_ctx", 0))
	assert.Zero(t, base.GetIntOption("num_ctx", 0), "merge must not mutate the receiver's options")
}

func TestConfig_WithOption_CopiesMap(t *testing.T) {
	a := Config{}.WithOption("k", "v1")
	b := a.WithOption("k", "v2")

	assert.Equal(t, "v1", a.GetStringOption("k", ""))
	assert.Equal(t, "v2", b.GetStringOption("k", ""))
}

func TestConfig_GetOptions_Defaults(t *testing.T) {
	var cfg Config

	assert.Equal(t, "d", cfg.GetStringOption("missing", "d"))
	assert.True(t, cfg.GetBoolOption("missing", true))
	assert.Equal(t, 7, cfg.GetIntOption("missing", 7))

	cfg = cfg.WithOption("n", int64(3)).WithOption("f", 4.0).WithOption("b", false)
	assert.Equal(t, 3, cfg.GetIntOption("n", 0))
	assert.Equal(t, 4, cfg.GetIntOption("f", 0))
	assert.False(t, cfg.GetBoolOption("b", true))
}

type testFile struct {
	Model    Config `toml:"model" yaml:"model"`
	Examples struct {
		ContextURL string `toml:"context_url" yaml:"context_url"`
		Threads    int    `toml:"threads" yaml:"threads"`
	} `toml:"examples" yaml:"examples"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_TOML(t *testing.T) {
	path := writeFile(t, "sigkit.toml", `
[model]
model = "llama3.1:8b"
base_url = "http://127.0.0.1:11434"
timeout = "90s"
temperature = 0.0

[model.options]
backend = "ollama"
num_ctx = 8192

[examples]
context_url = "https://example.com"
threads = 8
`)

	var f testFile
	require.NoError(t, LoadFile(path, &f))

	assert.Equal(t, "llama3.1:8b", f.Model.Model)
	assert.Equal(t, "http://127.0.0.1:11434", f.Model.BaseURL)
	assert.Equal(t, 90*time.Second, f.Model.Timeout)
	require.NotNil(t, f.Model.Temperature)
	assert.Zero(t, *f.Model.Temperature)
	assert.Equal(t, "ollama", f.Model.GetStringOption("backend", ""))
	assert.Equal(t, 8192, f.Model.GetIntOption("num_ctx", 0))
	assert.Equal(t, "https://example.com", f.Examples.ContextURL)
	assert.Equal(t, 8, f.Examples.Threads)
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, "sigkit.yaml", `
model:
  model: mistral
  timeout: 2m
  max_retries: 4
examples:
  threads: 2
`)

	var f testFile
	require.NoError(t, LoadFile(path, &f))

	assert.Equal(t, "mistral", f.Model.Model)
	assert.Equal(t, 2*time.Minute, f.Model.Timeout)
	assert.Equal(t, 4, f.Model.MaxRetries)
	assert.Equal(t, 2, f.Examples.Threads)
}

func TestLoadFile_Errors(t *testing.T) {
	var f testFile

	err := LoadFile(writeFile(t, "sigkit.json", `{}`), &f)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	err = LoadFile(writeFile(t, "typo.toml", "[model]\nmodle = \"x\"\n"), &f)
	assert.ErrorContains(t, err, "unknown keys")

	err = LoadFile(writeFile(t, "typo.yaml", "model:\n  modle: x\n"), &f)
	assert.Error(t, err)

	err = LoadFile(filepath.Join(t.TempDir(), "missing.toml"), &f)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWatchFile(t *testing.T) {
	path := writeFile(t, "sigkit.toml", "[model]\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchFile(ctx, path, func() { changed <- struct{}{} })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("[model]\nmodel = \"x\"\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("onChange was not called after write")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("WatchFile did not return after cancel")
	}
}
