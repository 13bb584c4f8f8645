package adapter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/randalmurphal/sigkit/parser"
	"github.com/randalmurphal/sigkit/provider"
	"github.com/randalmurphal/sigkit/signature"
)

// JSONAdapter asks for a single JSON object keyed by output field name.
type JSONAdapter struct {
	// Schema constrains the backend with the outputs' JSON schema instead
	// of plain JSON mode. Servers without structured output support should
	// leave it off.
	Schema bool
}

// NewJSONAdapter returns a JSONAdapter that sends the output schema.
func NewJSONAdapter() *JSONAdapter {
	return &JSONAdapter{Schema: true}
}

// Name implements Adapter.
func (a *JSONAdapter) Name() string {
	return "json"
}

// Format implements Adapter.
func (a *JSONAdapter) Format(sig *signature.Signature, inputs map[string]any) (provider.Request, error) {
	values, err := formatInputs(sig, inputs)
	if err != nil {
		return provider.Request{}, err
	}

	var sys strings.Builder
	sys.WriteString("Your input fields are:\n")
	sys.WriteString(describeFields(sig.Inputs))
	sys.WriteString("\nYour output fields are:\n")
	sys.WriteString(describeFields(sig.Outputs))
	sys.WriteString("\nAll interactions will be structured in the following way, with the appropriate values filled in.\n\n")
	for _, f := range sig.Inputs {
		sys.WriteString(parser.FieldMarker(f.Name))
		sys.WriteString("\n{" + f.Name + "}\n\n")
	}
	sys.WriteString("Outputs will be a JSON object with the following fields.\n\n{\n")
	for i, f := range sig.Outputs {
		fmt.Fprintf(&sys, "  %q: \"{%s}\"", f.Name, f.Name)
		if note := typeNote(f); note != "" {
			sys.WriteString("        # note: the value you produce " + note)
		}
		if i < len(sig.Outputs)-1 {
			sys.WriteString(",")
		}
		sys.WriteString("\n")
	}
	sys.WriteString("}\nIn adhering to this structure, your objective is: \n        ")
	sys.WriteString(sig.InstructionsOrDefault())

	var user strings.Builder
	for i, f := range sig.Inputs {
		user.WriteString(parser.FieldMarker(f.Name))
		user.WriteString("\n")
		user.WriteString(values[i])
		user.WriteString("\n\n")
	}
	user.WriteString("Respond with a JSON object in the following order of fields: ")
	for i, f := range sig.Outputs {
		if i > 0 {
			user.WriteString(", then ")
		}
		user.WriteString("`" + f.Name + "`")
		if f.Type != signature.String {
			user.WriteString(" (" + typeNote(f) + ")")
		}
	}
	user.WriteString(".")

	req := provider.Request{
		SystemPrompt: sys.String(),
		Messages:     []provider.Message{provider.NewTextMessage(provider.RoleUser, user.String())},
		Format:       provider.JSONFormat,
	}
	if a.Schema {
		schema, err := OutputSchema(sig)
		if err != nil {
			return provider.Request{}, err
		}
		req.Format = schema
	}
	return req, nil
}

// Parse implements Adapter.
func (a *JSONAdapter) Parse(sig *signature.Signature, content string) (map[string]any, error) {
	obj := parser.ExtractJSON(content)
	if obj == nil {
		return nil, &ParseError{Adapter: a.Name(), Raw: content, Err: ErrNoJSON}
	}

	out := make(map[string]any, len(sig.Outputs))
	for _, f := range sig.Outputs {
		v, ok := obj[f.Name]
		if !ok {
			return nil, &ParseError{Adapter: a.Name(), Field: f.Name, Raw: content, Err: ErrMissingField}
		}
		raw, err := rawText(v)
		if err != nil {
			return nil, &ParseError{Adapter: a.Name(), Field: f.Name, Raw: content, Err: err}
		}
		cv, err := Coerce(f, raw)
		if err != nil {
			return nil, &ParseError{Adapter: a.Name(), Field: f.Name, Raw: raw, Err: err}
		}
		out[f.Name] = cv
	}
	return out, nil
}

// rawText turns a decoded JSON value back into text for Coerce.
func rawText(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// OutputSchema returns a JSON schema for an object holding every output
// field of sig, in field order, all required.
func OutputSchema(sig *signature.Signature) (json.RawMessage, error) {
	props := jsonschema.NewProperties()
	required := make([]string, 0, len(sig.Outputs))
	for _, f := range sig.Outputs {
		s, err := fieldSchema(f)
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", f.Name, err)
		}
		props.Set(f.Name, s)
		required = append(required, f.Name)
	}

	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
	return json.Marshal(schema)
}

func fieldSchema(f signature.Field) (*jsonschema.Schema, error) {
	s := &jsonschema.Schema{Description: f.Desc}
	switch f.Type {
	case signature.Int:
		s.Type = "integer"
	case signature.Float:
		s.Type = "number"
	case signature.Bool:
		s.Type = "boolean"
	case signature.List:
		s.Type = "array"
		s.Items = &jsonschema.Schema{Type: "string"}
	case signature.JSON:
		if len(f.Schema) == 0 {
			s.Type = "object"
			return s, nil
		}
		var custom jsonschema.Schema
		if err := json.Unmarshal(f.Schema, &custom); err != nil {
			return nil, err
		}
		if custom.Description == "" {
			custom.Description = f.Desc
		}
		return &custom, nil
	default:
		s.Type = "string"
	}
	return s, nil
}
