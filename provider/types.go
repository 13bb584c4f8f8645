package provider

import (
	"encoding/json"
	"time"
)

// Request configures a chat completion call against a model backend.
type Request struct {
	// SystemPrompt is sent as a leading system message when set.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Messages is the conversation to send to the model.
	Messages []Message `json:"messages"`

	// Model overrides the client's configured model for this call.
	// Examples: "llama3.2:3b", "qwen2.5:7b-instruct"
	Model string `json:"model,omitempty"`

	// MaxTokens limits the response length. 0 uses the backend default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls response randomness (0.0 = deterministic).
	// Nil uses the backend default.
	Temperature *float64 `json:"temperature,omitempty"`

	// Tools lists functions the model may call natively.
	// Only honored when Capabilities().Tools is true.
	Tools []Tool `json:"tools,omitempty"`

	// Format constrains the response encoding. Either the JSON string "json"
	// or a JSON schema object. Empty means free text.
	Format json.RawMessage `json:"format,omitempty"`

	// Options holds backend-specific settings (e.g. "num_ctx" for Ollama).
	Options map[string]any `json:"options,omitempty"`
}

// JSONFormat requests a JSON object response without a schema.
var JSONFormat = json.RawMessage(`"json"`)

// Message is a conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Name is the tool name for RoleTool messages.
	Name string `json:"name,omitempty"`

	// ToolCallID links a RoleTool message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// ToolCalls are the calls an assistant message requested.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// NewTextMessage creates a simple text message.
func NewTextMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// NewToolResult creates a tool result message answering call.
func NewToolResult(call ToolCall, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		Name:       call.Name,
		ToolCallID: call.ID,
	}
}

// Role identifies the message sender.
type Role string

// Standard message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Tool defines a function the model may call.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// Response is the output of a completion call.
type Response struct {
	// Content is the text response from the model.
	Content string `json:"content"`

	// ToolCalls contains any tool invocations requested by the model.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Usage tracks token consumption for this request.
	Usage TokenUsage `json:"usage"`

	// Model is the model that served the request.
	Model string `json:"model"`

	// FinishReason indicates why the model stopped generating.
	// Common values: "stop", "length", "tool_calls"
	FinishReason string `json:"finish_reason"`

	// Duration is the wall-clock time of the call, retries included.
	Duration time.Duration `json:"duration"`

	// Metadata holds backend-specific response data.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToolCall represents a tool invocation request from the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add combines token usage from another TokenUsage.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// StreamChunk is a piece of a streaming response.
type StreamChunk struct {
	// Content is the text content in this chunk.
	Content string `json:"content,omitempty"`

	// ToolCalls contains tool invocations (usually only in final chunks).
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Usage is the token usage (only set in final chunk).
	Usage *TokenUsage `json:"usage,omitempty"`

	// Done indicates this is the final chunk.
	Done bool `json:"done"`

	// Error is non-nil if streaming failed.
	Error error `json:"-"`
}

// Float returns a pointer to f, for Request.Temperature.
func Float(f float64) *float64 {
	return &f
}
