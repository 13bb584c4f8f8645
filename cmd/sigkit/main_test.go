package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/sigkit/examples"
	"github.com/randalmurphal/sigkit/provider"
)

// answerLM answers every request with a fixed answer field.
type answerLM struct {
	calls  int
	closed bool
}

func (c *answerLM) Complete(context.Context, provider.Request) (*provider.Response, error) {
	c.calls++
	return &provider.Response{
		Content: "[[ ## answer ## ]]\nBerlin\n\n[[ ## completed ## ]]",
		Usage:   provider.TokenUsage{InputTokens: 12, OutputTokens: 3, TotalTokens: 15},
	}, nil
}

func (c *answerLM) Stream(context.Context, provider.Request) (<-chan provider.StreamChunk, error) {
	return nil, provider.ErrCapabilityNotSupported
}

func (c *answerLM) Provider() string { return "answer" }

func (c *answerLM) Capabilities() provider.Capabilities { return provider.Capabilities{} }

func (c *answerLM) Close() error {
	c.closed = true
	return nil
}

// missingModelLM fails every call like a server without the model.
type missingModelLM struct{ *answerLM }

func (missingModelLM) Complete(context.Context, provider.Request) (*provider.Response, error) {
	return nil, provider.NewError("local", "complete", provider.ErrModelNotFound, false).WithStatus(404)
}

func stubClient(t *testing.T) *answerLM {
	t.Helper()
	lm := &answerLM{}
	orig := newClient
	newClient = func(provider.Config) (provider.Client, error) { return lm, nil }
	t.Cleanup(func() { newClient = orig })
	return lm
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestList(t *testing.T) {
	out, _, err := execute(t, "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(examples.Registry()))
	for i, name := range examples.Names() {
		assert.True(t, strings.HasPrefix(lines[i], name+" "), lines[i])
	}
}

func TestRun_Example(t *testing.T) {
	lm := stubClient(t)

	out, _, err := execute(t, "run", "basic-predict")
	require.NoError(t, err)
	assert.Equal(t, 1, lm.calls)
	assert.True(t, lm.closed)

	assert.Contains(t, out, "=== basic-predict ===")
	assert.Contains(t, out, "Question: What is the capital of Germany?")
	assert.Contains(t, out, "Answer: Berlin")
	assert.Contains(t, out, "Elapsed: ")
	assert.Contains(t, out, "Total time taken: ")
	assert.Contains(t, out, "Token usage:")
	assert.Contains(t, out, "llama3.2:3b: 1 requests (0 failed), 12 input + 3 output = 15 tokens")
}

func TestRun_ModelNotFoundHint(t *testing.T) {
	orig := newClient
	newClient = func(provider.Config) (provider.Client, error) { return missingModelLM{&answerLM{}}, nil }
	t.Cleanup(func() { newClient = orig })

	_, stderr, err := execute(t, "run", "--model", "qwen3:0.6b", "basic-predict")
	require.ErrorIs(t, err, provider.ErrModelNotFound)
	assert.Contains(t, stderr, "ollama pull qwen3:0.6b")
}

func TestRun_UnknownExample(t *testing.T) {
	lm := stubClient(t)

	_, _, err := execute(t, "run", "no-such-example")
	require.ErrorIs(t, err, examples.ErrUnknownExample)
	assert.Zero(t, lm.calls)
}

func TestRun_BareRunPrintsUsage(t *testing.T) {
	lm := stubClient(t)

	out, _, err := execute(t, "run")
	require.ErrorIs(t, err, errNoExamples)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "--all")
	assert.Zero(t, lm.calls)
}

func TestRun_FlagErrors(t *testing.T) {
	stubClient(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"all with names", []string{"run", "--all", "rag"}, "--all takes no example names"},
		{"nothing selected", []string{"run"}, errNoExamples.Error()},
		{"watch without config", []string{"run", "--watch", "rag"}, errWatchNeedsConfig.Error()},
		{"bad log level", []string{"--log-level", "loud", "list"}, "invalid --log-level"},
		{"bad threads", []string{"run", "--threads=-1", "rag"}, "threads must be >= 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_Precedence(t *testing.T) {
	path := writeConfig(t, "sigkit.toml", `
context_url = "http://docs.test"
threads = 8
fetch_cache_ttl = "10m"

[provider]
model = "qwen2.5:7b"
base_url = "http://gpu-box:11434"
max_tokens = 512

[provider.options]
num_ctx = 8192
`)
	t.Setenv("SIGKIT_MODEL", "mistral:7b")
	t.Setenv("SIGKIT_MAX_TOKENS", "1024")

	out, _, err := execute(t, "config", "--config", path, "--threads", "2", "--temperature", "0.3")
	require.NoError(t, err)

	var got File
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))

	assert.Equal(t, "local", got.Provider.Provider, "default")
	assert.Equal(t, "http://gpu-box:11434", got.Provider.BaseURL, "file")
	assert.Equal(t, "mistral:7b", got.Provider.Model, "env beats file")
	assert.Equal(t, 1024, got.Provider.MaxTokens, "env beats file")
	assert.Equal(t, 2, got.Threads, "flag beats file")
	require.NotNil(t, got.Provider.Temperature)
	assert.InDelta(t, 0.3, *got.Provider.Temperature, 1e-9)
	assert.Equal(t, "http://docs.test", got.ContextURL)
	assert.Equal(t, 8192, got.Provider.GetIntOption("num_ctx", 0))
	assert.Equal(t, "10m0s", got.FetchCacheTTL.String())
}

func TestConfig_YAML(t *testing.T) {
	path := writeConfig(t, "sigkit.yaml", `
provider:
  model: llama3.1:8b
  options:
    backend: openai
threads: 3
`)

	cfg, err := loadConfig(path, overrides{})
	require.NoError(t, err)
	assert.Equal(t, "llama3.1:8b", cfg.Provider.Model)
	assert.Equal(t, "openai", cfg.Provider.GetStringOption("backend", ""))
	assert.Equal(t, 3, cfg.Threads)
	assert.Equal(t, examples.DefaultContextURL, cfg.ContextURL)
	assert.Equal(t, provider.DefaultBaseURL, cfg.Provider.BaseURL)
}

func TestConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"unknown key", "bad.toml", "modle = \"x\"\n", "unknown keys"},
		{"unsupported format", "bad.ini", "x=1\n", "unsupported config format"},
		{"invalid url", "bad.yaml", "provider:\n  base_url: localhost\n", "base_url must be an absolute URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.file, tt.content), overrides{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"), overrides{})
	require.ErrorIs(t, err, os.ErrNotExist)
}
