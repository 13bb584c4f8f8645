package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"

	"github.com/randalmurphal/sigkit/provider"
	"github.com/randalmurphal/sigkit/signature"
)

// Sentinel errors.
var (
	ErrInvalidName = errors.New("invalid tool name")
	ErrInvalidArgs = errors.New("invalid tool arguments")
	ErrDuplicate   = errors.New("duplicate tool name")
	ErrNotFound    = errors.New("tool not found")
)

var nameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Tool is a named function with a JSON argument schema.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON Schema

	fn func(ctx context.Context, args json.RawMessage) (any, error)
}

// New wraps fn as a tool. A must be a struct (or pointer to one); its
// JSON schema becomes the tool's parameters.
func New[A any, R any](name, description string, fn func(context.Context, A) (R, error)) (*Tool, error) {
	if !nameRegex.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	t := reflect.TypeFor[A]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("tool %s: argument type %s is not a struct", name, t)
	}
	params, err := signature.SchemaFor(t)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}

	return &Tool{
		Name:        name,
		Description: description,
		Parameters:  params,
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args A
			if len(bytes.TrimSpace(raw)) > 0 && string(bytes.TrimSpace(raw)) != "null" {
				if err := json.Unmarshal(raw, &args); err != nil {
					return nil, fmt.Errorf("%w: %w", ErrInvalidArgs, err)
				}
			}
			return fn(ctx, args)
		},
	}, nil
}

// MustNew is like New but panics on error. For package-level tools.
func MustNew[A any, R any](name, description string, fn func(context.Context, A) (R, error)) *Tool {
	t, err := New(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}

// Call decodes args, runs the tool and renders the result as text.
func (t *Tool) Call(ctx context.Context, args json.RawMessage) (string, error) {
	out, err := t.fn(ctx, args)
	if err != nil {
		return "", err
	}
	return render(out)
}

// Spec returns the definition sent to backends with native tool calling.
func (t *Tool) Spec() provider.Tool {
	return provider.Tool{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// Properties returns the "properties" object of the parameter schema,
// the compact form shown to the model in text prompts.
func (t *Tool) Properties() json.RawMessage {
	var schema struct {
		Properties json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(t.Parameters, &schema); err != nil || len(schema.Properties) == 0 {
		return json.RawMessage(`{}`)
	}
	return schema.Properties
}

func render(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	case json.RawMessage:
		return string(x), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("render result: %w", err)
	}
	return string(data), nil
}
