package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// mockClient implements Client for testing.
type mockClient struct {
	name string
	cfg  Config
}

func (m *mockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	return &Response{Content: "mock response"}, nil
}

func (m *mockClient) Stream(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	ch := make(chan StreamChunk, 1)
	ch <- StreamChunk{Content: "mock chunk", Done: true}
	close(ch)
	return ch, nil
}

func (m *mockClient) Provider() string { return m.name }

func (m *mockClient) Capabilities() Capabilities {
	return Capabilities{Streaming: true, JSONMode: true}
}

func (m *mockClient) Close() error { return nil }

// registerMock registers a mock factory and removes it when the test ends.
func registerMock(t *testing.T, name string) {
	t.Helper()
	Register(name, func(cfg Config) (Client, error) {
		return &mockClient{name: name, cfg: cfg}, nil
	})
	t.Cleanup(func() { Unregister(name) })
}

func TestRegister(t *testing.T) {
	registerMock(t, "test-register")

	if !IsRegistered("test-register") {
		t.Error("expected 'test-register' to be registered")
	}
}

func TestRegister_Panic(t *testing.T) {
	registerMock(t, "test-duplicate")

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	Register("test-duplicate", func(cfg Config) (Client, error) {
		return &mockClient{name: "test-duplicate2"}, nil
	})
}

func TestNew(t *testing.T) {
	registerMock(t, "test-new")

	client, err := New("test-new", Config{Provider: "test-new", Model: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Provider() != "test-new" {
		t.Errorf("expected provider 'test-new', got %q", client.Provider())
	}
	if got := client.(*mockClient).cfg.Model; got != "m" {
		t.Errorf("factory got model %q, want %q", got, "m")
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New("no-such-provider", Config{Provider: "no-such-provider"})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	registerMock(t, "test-fromconfig")

	client, err := FromConfig(Config{Provider: "test-fromconfig"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Provider() != "test-fromconfig" {
		t.Errorf("expected provider 'test-fromconfig', got %q", client.Provider())
	}

	if _, err := FromConfig(Config{}); err == nil {
		t.Error("expected validation error for empty provider")
	}
}

func TestMustNew_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for unknown provider")
		}
	}()
	MustNew("no-such-provider", Config{Provider: "no-such-provider"})
}

func TestAvailable_Sorted(t *testing.T) {
	registerMock(t, "zz-test-beta")
	registerMock(t, "zz-test-alpha")

	available := Available()
	var alpha, beta = -1, -1
	for i, name := range available {
		switch name {
		case "zz-test-alpha":
			alpha = i
		case "zz-test-beta":
			beta = i
		}
	}
	if alpha < 0 || beta < 0 || alpha > beta {
		t.Errorf("expected sorted alpha before beta, got %v", available)
	}
}

func TestNew_CaseInsensitive(t *testing.T) {
	registerMock(t, "test-case")

	client, err := New("  Test-CASE ", Config{Provider: "test-case"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Provider() != "test-case" {
		t.Errorf("expected provider 'test-case', got %q", client.Provider())
	}
}

func TestRegisterAlias(t *testing.T) {
	registerMock(t, "test-target")
	RegisterAlias("test-alias", "test-target", map[string]any{"backend": "openai", "num_ctx": 2048})
	t.Cleanup(func() { Unregister("test-alias") })

	client, err := New("test-alias", Config{Options: map[string]any{"num_ctx": 4096}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := client.(*mockClient).cfg
	if got := cfg.GetStringOption("backend", ""); got != "openai" {
		t.Errorf("backend = %q, want preset %q", got, "openai")
	}
	if got := cfg.GetIntOption("num_ctx", 0); got != 4096 {
		t.Errorf("num_ctx = %d, want explicit 4096 to beat the preset", got)
	}

	if target, ok := Resolve("TEST-ALIAS"); !ok || target != "test-target" {
		t.Errorf("Resolve() = %q, %v", target, ok)
	}
}

func TestRegisterAlias_UnknownTarget(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for alias of unregistered provider")
		}
	}()
	RegisterAlias("test-orphan", "no-such-provider", nil)
}

func TestError_Status(t *testing.T) {
	err := fmt.Errorf("call: %w", NewError("local", "complete", ErrRateLimited, true).WithStatus(429))
	if got := StatusCode(err); got != 429 {
		t.Errorf("StatusCode() = %d, want 429", got)
	}
	if got := StatusCode(ErrRateLimited); got != 0 {
		t.Errorf("StatusCode(bare) = %d, want 0", got)
	}
}

func TestUnregister(t *testing.T) {
	Register("test-unregister", func(cfg Config) (Client, error) {
		return &mockClient{name: "test-unregister"}, nil
	})
	Unregister("test-unregister")

	if IsRegistered("test-unregister") {
		t.Error("expected 'test-unregister' to be unregistered")
	}
}

func TestError_Retryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retryable provider error", NewError("local", "complete", ErrUnavailable, true), true},
		{"non-retryable provider error", NewError("local", "complete", ErrInvalidRequest, false), false},
		{"bare rate limit", ErrRateLimited, true},
		{"bare timeout", ErrTimeout, true},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	err := NewError("local", "complete", ErrModelNotFound, false)

	if !errors.Is(err, ErrModelNotFound) {
		t.Error("expected errors.Is to see ErrModelNotFound")
	}
	if got := err.Error(); got != "local complete: model not found" {
		t.Errorf("Error() = %q", got)
	}
}

func TestTokenUsage_Add(t *testing.T) {
	u := TokenUsage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3}
	u.Add(TokenUsage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30})

	if u != (TokenUsage{InputTokens: 11, OutputTokens: 22, TotalTokens: 33}) {
		t.Errorf("unexpected usage %+v", u)
	}
}
