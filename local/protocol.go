package local

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/randalmurphal/sigkit/provider"
)

// Wire types for the two supported chat protocols, plus conversions to and
// from the provider types. Each backend has an encode function that builds
// the request body and a decode function for full and streamed responses.

// --- Ollama /api/chat ---

type ollamaRequest struct {
	Model     string          `json:"model"`
	Messages  []ollamaMessage `json:"messages"`
	Stream    bool            `json:"stream"`
	Format    json.RawMessage `json:"format,omitempty"`
	Options   map[string]any  `json:"options,omitempty"`
	Tools     []wireTool      `json:"tools,omitempty"`
	KeepAlive string          `json:"keep_alive,omitempty"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
	ToolName  string           `json:"tool_name,omitempty"`
}

type ollamaToolCall struct {
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

// ollamaResponse is both the non-streaming body and each NDJSON stream line.
type ollamaResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason,omitempty"`
	TotalDuration   int64         `json:"total_duration,omitempty"`
	PromptEvalCount int           `json:"prompt_eval_count,omitempty"`
	EvalCount       int           `json:"eval_count,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// wireTool is shared by both protocols.
type wireTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		Parameters  json.RawMessage `json:"parameters,omitempty"`
	} `json:"function"`
}

func encodeTools(tools []provider.Tool) []wireTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]wireTool, len(tools))
	for i, t := range tools {
		out[i].Type = "function"
		out[i].Function.Name = t.Name
		out[i].Function.Description = t.Description
		out[i].Function.Parameters = t.Parameters
	}
	return out
}

func (c *Client) encodeOllama(req provider.Request, stream bool) ollamaRequest {
	body := ollamaRequest{
		Model:     c.model(req),
		Stream:    stream,
		Format:    req.Format,
		Tools:     encodeTools(req.Tools),
		KeepAlive: c.cfg.KeepAlive,
	}

	opts := make(map[string]any, len(req.Options)+3)
	if t := c.temperature(req); t != nil {
		opts["temperature"] = *t
	}
	if n := c.maxTokens(req); n > 0 {
		opts["num_predict"] = n
	}
	if c.cfg.NumCtx > 0 {
		opts["num_ctx"] = c.cfg.NumCtx
	}
	for k, v := range req.Options {
		opts[k] = v
	}
	if len(opts) > 0 {
		body.Options = opts
	}

	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, ollamaMessage{Role: string(provider.RoleSystem), Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		msg := ollamaMessage{Role: string(m.Role), Content: m.Content}
		if m.Role == provider.RoleTool {
			msg.ToolName = m.Name
		}
		for _, tc := range m.ToolCalls {
			var wtc ollamaToolCall
			wtc.Function.Name = tc.Name
			wtc.Function.Arguments = tc.Arguments
			msg.ToolCalls = append(msg.ToolCalls, wtc)
		}
		body.Messages = append(body.Messages, msg)
	}
	return body
}

// ollamaToolCalls converts wire tool calls. Ollama does not assign call IDs,
// so one is generated to let callers pair results with calls.
func ollamaToolCalls(calls []ollamaToolCall) []provider.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]provider.ToolCall, len(calls))
	for i, tc := range calls {
		out[i] = provider.ToolCall{
			ID:        "call_" + uuid.NewString(),
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}
	}
	return out
}

func decodeOllama(data []byte) (*provider.Response, error) {
	var r ollamaResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if r.Error != "" {
		return nil, fmt.Errorf("server error: %s", r.Error)
	}
	resp := &provider.Response{
		Content:      r.Message.Content,
		ToolCalls:    ollamaToolCalls(r.Message.ToolCalls),
		Model:        r.Model,
		FinishReason: r.DoneReason,
		Usage: provider.TokenUsage{
			InputTokens:  r.PromptEvalCount,
			OutputTokens: r.EvalCount,
			TotalTokens:  r.PromptEvalCount + r.EvalCount,
		},
	}
	if len(resp.ToolCalls) > 0 && resp.FinishReason == "stop" {
		resp.FinishReason = "tool_calls"
	}
	if r.TotalDuration > 0 {
		resp.Metadata = map[string]any{"total_duration_ns": r.TotalDuration}
	}
	return resp, nil
}

// readOllamaStream decodes NDJSON lines until the done line or EOF.
func readOllamaStream(body io.Reader, emit func(provider.StreamChunk) bool) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var r ollamaResponse
		if err := json.Unmarshal(line, &r); err != nil {
			return fmt.Errorf("parse stream line: %w", err)
		}
		if r.Error != "" {
			return fmt.Errorf("server error: %s", r.Error)
		}
		chunk := provider.StreamChunk{
			Content:   r.Message.Content,
			ToolCalls: ollamaToolCalls(r.Message.ToolCalls),
			Done:      r.Done,
		}
		if r.Done {
			chunk.Usage = &provider.TokenUsage{
				InputTokens:  r.PromptEvalCount,
				OutputTokens: r.EvalCount,
				TotalTokens:  r.PromptEvalCount + r.EvalCount,
			}
		}
		if !emit(chunk) || r.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return io.ErrUnexpectedEOF
}

// --- OpenAI-compatible /v1/chat/completions ---

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Stream         bool            `json:"stream,omitempty"`
	StreamOptions  *streamOptions  `json:"stream_options,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	Tools          []wireTool      `json:"tools,omitempty"`
	ResponseFormat map[string]any  `json:"response_format,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	Name       string           `json:"name,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
}

type openAIToolCall struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openAIMessage `json:"message"`
		Delta        openAIMessage `json:"delta"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *Client) encodeOpenAI(req provider.Request, stream bool) openAIRequest {
	body := openAIRequest{
		Model:       c.model(req),
		Stream:      stream,
		MaxTokens:   c.maxTokens(req),
		Temperature: c.temperature(req),
		Tools:       encodeTools(req.Tools),
	}
	if stream {
		body.StreamOptions = &streamOptions{IncludeUsage: true}
	}

	switch {
	case len(req.Format) == 0:
	case bytes.Equal(req.Format, provider.JSONFormat):
		body.ResponseFormat = map[string]any{"type": "json_object"}
	default:
		body.ResponseFormat = map[string]any{
			"type":        "json_schema",
			"json_schema": map[string]any{"name": "output", "schema": req.Format},
		}
	}

	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: string(provider.RoleSystem), Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		msg := openAIMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		if m.Role == provider.RoleTool {
			msg.Name = m.Name
		}
		for i, tc := range m.ToolCalls {
			wtc := openAIToolCall{Index: i, ID: tc.ID, Type: "function"}
			wtc.Function.Name = tc.Name
			wtc.Function.Arguments = string(tc.Arguments)
			msg.ToolCalls = append(msg.ToolCalls, wtc)
		}
		body.Messages = append(body.Messages, msg)
	}
	return body
}

func openAIToolCalls(calls []openAIToolCall) []provider.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]provider.ToolCall, len(calls))
	for i, tc := range calls {
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		args := strings.TrimSpace(tc.Function.Arguments)
		if args == "" {
			args = "{}"
		}
		out[i] = provider.ToolCall{ID: id, Name: tc.Function.Name, Arguments: json.RawMessage(args)}
	}
	return out
}

func decodeOpenAI(data []byte) (*provider.Response, error) {
	var r openAIResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if r.Error != nil {
		return nil, fmt.Errorf("server error: %s", r.Error.Message)
	}
	if len(r.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}
	choice := r.Choices[0]
	resp := &provider.Response{
		Content:      choice.Message.Content,
		ToolCalls:    openAIToolCalls(choice.Message.ToolCalls),
		Model:        r.Model,
		FinishReason: choice.FinishReason,
	}
	if r.Usage != nil {
		resp.Usage = provider.TokenUsage{
			InputTokens:  r.Usage.PromptTokens,
			OutputTokens: r.Usage.CompletionTokens,
			TotalTokens:  r.Usage.TotalTokens,
		}
	}
	return resp, nil
}

// readOpenAIStream decodes server-sent events until "data: [DONE]".
// Tool call fragments are accumulated by index and emitted with the final chunk.
func readOpenAIStream(body io.Reader, emit func(provider.StreamChunk) bool) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		calls []openAIToolCall
		usage *provider.TokenUsage
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			emit(provider.StreamChunk{Done: true, ToolCalls: openAIToolCalls(calls), Usage: usage})
			return nil
		}

		var r openAIResponse
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return fmt.Errorf("parse stream event: %w", err)
		}
		if r.Error != nil {
			return fmt.Errorf("server error: %s", r.Error.Message)
		}
		if r.Usage != nil {
			usage = &provider.TokenUsage{
				InputTokens:  r.Usage.PromptTokens,
				OutputTokens: r.Usage.CompletionTokens,
				TotalTokens:  r.Usage.TotalTokens,
			}
		}
		if len(r.Choices) == 0 {
			continue
		}
		delta := r.Choices[0].Delta
		for _, frag := range delta.ToolCalls {
			for len(calls) <= frag.Index {
				calls = append(calls, openAIToolCall{Index: len(calls)})
			}
			tc := &calls[frag.Index]
			if frag.ID != "" {
				tc.ID = frag.ID
			}
			if frag.Function.Name != "" {
				tc.Function.Name = frag.Function.Name
			}
			tc.Function.Arguments += frag.Function.Arguments
		}
		if delta.Content != "" {
			if !emit(provider.StreamChunk{Content: delta.Content}) {
				return nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return io.ErrUnexpectedEOF
}

// apiErrorMessage pulls a human-readable message out of an error body.
// Ollama uses {"error": "..."}; OpenAI-compatible servers use {"error": {"message": "..."}}.
func apiErrorMessage(body []byte) string {
	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.Error != "" {
		return flat.Error
	}
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	return strings.TrimSpace(string(body))
}
