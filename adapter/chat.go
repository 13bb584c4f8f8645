package adapter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/randalmurphal/sigkit/parser"
	"github.com/randalmurphal/sigkit/provider"
	"github.com/randalmurphal/sigkit/signature"
)

// ChatAdapter frames fields with [[ ## name ## ]] markers.
type ChatAdapter struct{}

// NewChatAdapter returns a ChatAdapter.
func NewChatAdapter() *ChatAdapter {
	return &ChatAdapter{}
}

// Name implements Adapter.
func (a *ChatAdapter) Name() string {
	return "chat"
}

// Format implements Adapter. The system message describes the fields, the
// expected structure and the objective; the user message carries the input
// values and asks for the outputs in order.
func (a *ChatAdapter) Format(sig *signature.Signature, inputs map[string]any) (provider.Request, error) {
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
	for _, f := range sig.Fields() {
		sys.WriteString(parser.FieldMarker(f.Name))
		sys.WriteString("\n{" + f.Name + "}")
		if f.Kind == signature.Output {
			if note := typeNote(f); note != "" {
				sys.WriteString("        # note: the value you produce " + note)
			}
		}
		sys.WriteString("\n\n")
	}
	sys.WriteString(parser.FieldMarker(parser.CompletedMarker))
	sys.WriteString("\nIn adhering to this structure, your objective is: \n        ")
	sys.WriteString(sig.InstructionsOrDefault())

	var user strings.Builder
	for i, f := range sig.Inputs {
		user.WriteString(parser.FieldMarker(f.Name))
		user.WriteString("\n")
		user.WriteString(values[i])
		user.WriteString("\n\n")
	}
	user.WriteString("Respond with the corresponding output fields, starting with the field ")
	for i, f := range sig.Outputs {
		if i > 0 {
			user.WriteString(", then ")
		}
		user.WriteString("`" + parser.FieldMarker(f.Name) + "`")
		if f.Type != signature.String {
			user.WriteString(" (" + typeNote(f) + ")")
		}
	}
	user.WriteString(", and then ending with the marker for `" + parser.FieldMarker(parser.CompletedMarker) + "`.")

	return provider.Request{
		SystemPrompt: sys.String(),
		Messages:     []provider.Message{provider.NewTextMessage(provider.RoleUser, user.String())},
	}, nil
}

// Parse implements Adapter. Every output field must appear under its
// marker; extra sections are ignored.
func (a *ChatAdapter) Parse(sig *signature.Signature, content string) (map[string]any, error) {
	sections := parser.FieldMap(content)
	if len(sections) == 0 {
		return nil, &ParseError{Adapter: a.Name(), Raw: content, Err: fmt.Errorf("%w: no field markers", ErrMissingField)}
	}

	out := make(map[string]any, len(sig.Outputs))
	var errs []error
	for _, f := range sig.Outputs {
		raw, ok := sections[f.Name]
		if !ok {
			errs = append(errs, &ParseError{Adapter: a.Name(), Field: f.Name, Raw: content, Err: ErrMissingField})
			continue
		}
		v, err := Coerce(f, raw)
		if err != nil {
			errs = append(errs, &ParseError{Adapter: a.Name(), Field: f.Name, Raw: raw, Err: err})
			continue
		}
		out[f.Name] = v
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}
