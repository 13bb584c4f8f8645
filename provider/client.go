// Package provider defines the unified interface for language model backends.
//
// Every model call made by sigkit goes through a Client. The only backend
// shipped with the module is "local" (see package local), which talks to a
// locally hosted inference server over HTTP; other backends can be added by
// registering a Factory.
//
// # Usage
//
// Create a client using the registry:
//
//	import _ "github.com/randalmurphal/sigkit/local"
//
//	client, err := provider.New("local", provider.Config{
//	    Model:   "llama3.2:3b",
//	    BaseURL: "http://localhost:11434",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	resp, err := client.Complete(ctx, provider.Request{
//	    Messages: []provider.Message{provider.NewTextMessage(provider.RoleUser, "Hi")},
//	})
//
// Configuration can also come from a TOML or YAML file and SIGKIT_*
// environment variables; see LoadFile and Config.LoadFromEnv.
package provider

import "context"

// Client is the unified interface for model backends.
// Implementations must be safe for concurrent use.
type Client interface {
	// Complete sends a request and returns the full response.
	// The context controls cancellation and timeouts.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Stream sends a request and returns a channel of response chunks.
	// The channel is closed when streaming completes (check chunk.Done).
	// Errors during streaming are returned via chunk.Error.
	Stream(ctx context.Context, req Request) (<-chan StreamChunk, error)

	// Provider returns the provider name (e.g., "local").
	Provider() string

	// Capabilities returns what this backend natively supports.
	Capabilities() Capabilities

	// Close releases any resources held by the client.
	Close() error
}

// Capabilities describes what a backend natively supports.
type Capabilities struct {
	// Streaming indicates if the backend supports streaming responses.
	Streaming bool `json:"streaming"`

	// Tools indicates if the backend supports native tool/function calling.
	Tools bool `json:"tools"`

	// JSONMode indicates if the backend can constrain output to JSON
	// via Request.Format.
	JSONMode bool `json:"json_mode"`

	// Images indicates if the backend supports image inputs.
	Images bool `json:"images"`
}
