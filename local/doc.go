// Package local provides a client for models served on the local machine.
//
// The client speaks plain HTTP to an inference server and supports two wire
// protocols:
//
//   - ollama: Ollama's native /api/chat (default, http://localhost:11434)
//   - openai: the OpenAI-compatible /v1/chat/completions served by
//     llama.cpp, vLLM, LM Studio and Ollama
//
// Both support non-streaming and streaming completions (NDJSON for Ollama,
// server-sent events for OpenAI-compatible servers), native tool calls and
// JSON-constrained output via provider.Request.Format.
//
// # Usage
//
// Using the provider registry:
//
//	import _ "github.com/randalmurphal/sigkit/local"
//
//	client, err := provider.New("local", provider.Config{
//	    Model:   "llama3.2:3b",
//	    BaseURL: "http://localhost:11434",
//	})
//
// Direct instantiation:
//
//	client := local.NewClient(
//	    local.WithBackend(local.BackendOpenAI),
//	    local.WithBaseURL("http://localhost:8080"),
//	    local.WithModel("qwen2.5-7b-instruct"),
//	)
//	defer client.Close()
//
// # Retries
//
// 429 and 5xx responses, connection failures and per-attempt timeouts are
// retried with exponential backoff (MaxRetries, MinBackoff, MaxBackoff). A
// Retry-After header overrides the computed delay.
//
// # Server-side parallelism
//
// How many requests Ollama serves at once is set by OLLAMA_NUM_PARALLEL in
// the server's environment. The client never reads it; concurrent calls
// beyond that limit queue on the server.
package local
