package signature

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Signature declares the inputs, outputs and instructions of a model call.
type Signature struct {
	// Name identifies the signature in logs. Struct signatures use the type name.
	Name string

	// Instructions describe the task. DefaultInstructions is used when empty.
	Instructions string

	Inputs  []Field
	Outputs []Field
}

// New builds and validates a signature. Field kinds are set from the side
// each field is passed on, and empty prefixes are derived from names.
func New(name, instructions string, inputs, outputs []Field) (*Signature, error) {
	s := &Signature{
		Name:         name,
		Instructions: instructions,
		Inputs:       normalize(inputs, Input),
		Outputs:      normalize(outputs, Output),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustNew is like New but panics on error.
func MustNew(name, instructions string, inputs, outputs []Field) *Signature {
	s, err := New(name, instructions, inputs, outputs)
	if err != nil {
		panic(fmt.Sprintf("signature.MustNew: %v", err))
	}
	return s
}

func normalize(fields []Field, kind Kind) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		f.Kind = kind
		if f.Prefix == "" {
			f.Prefix = Label(f.Name)
		}
		out[i] = f
	}
	return out
}

// Validate checks field names, types and uniqueness, and that both sides
// are non-empty. All problems are reported together.
func (s *Signature) Validate() error {
	var errs []error
	if len(s.Inputs) == 0 {
		errs = append(errs, ErrNoInputs)
	}
	if len(s.Outputs) == 0 {
		errs = append(errs, ErrNoOutputs)
	}

	seen := make(map[string]bool, len(s.Inputs)+len(s.Outputs))
	for _, f := range s.Fields() {
		if err := f.validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateField, f.Name))
		}
		seen[f.Name] = true
	}
	return errors.Join(errs...)
}

// Fields returns inputs followed by outputs.
func (s *Signature) Fields() []Field {
	return slices.Concat(s.Inputs, s.Outputs)
}

// Field looks up a field by name on either side.
func (s *Signature) Field(name string) (Field, bool) {
	for _, f := range s.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// InputNames returns the input field names in order.
func (s *Signature) InputNames() []string {
	return names(s.Inputs)
}

// OutputNames returns the output field names in order.
func (s *Signature) OutputNames() []string {
	return names(s.Outputs)
}

func names(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

// Prepend returns a copy with f inserted first on its side.
func (s *Signature) Prepend(f Field) *Signature {
	c := s.clone()
	if f.Prefix == "" {
		f.Prefix = Label(f.Name)
	}
	if f.Kind == Output {
		c.Outputs = slices.Insert(c.Outputs, 0, f)
	} else {
		c.Inputs = slices.Insert(c.Inputs, 0, f)
	}
	return c
}

// Append returns a copy with f added last on its side.
func (s *Signature) Append(f Field) *Signature {
	c := s.clone()
	if f.Prefix == "" {
		f.Prefix = Label(f.Name)
	}
	if f.Kind == Output {
		c.Outputs = append(c.Outputs, f)
	} else {
		c.Inputs = append(c.Inputs, f)
	}
	return c
}

// WithInstructions returns a copy with different instructions.
func (s *Signature) WithInstructions(instructions string) *Signature {
	c := s.clone()
	c.Instructions = instructions
	return c
}

// WithOutputs returns a copy with the output fields replaced.
func (s *Signature) WithOutputs(outputs ...Field) *Signature {
	c := s.clone()
	c.Outputs = normalize(outputs, Output)
	return c
}

// WithInputs returns a copy with the input fields replaced.
func (s *Signature) WithInputs(inputs ...Field) *Signature {
	c := s.clone()
	c.Inputs = normalize(inputs, Input)
	return c
}

func (s *Signature) clone() *Signature {
	return &Signature{
		Name:         s.Name,
		Instructions: s.Instructions,
		Inputs:       slices.Clone(s.Inputs),
		Outputs:      slices.Clone(s.Outputs),
	}
}

// InstructionsOrDefault returns the instructions, or the generated default
// when none were given.
func (s *Signature) InstructionsOrDefault() string {
	if strings.TrimSpace(s.Instructions) != "" {
		return s.Instructions
	}
	return DefaultInstructions(s)
}

// DefaultInstructions returns "Given the fields `a`, `b`, produce the
// fields `c`."
func DefaultInstructions(s *Signature) string {
	return fmt.Sprintf("Given the fields %s, produce the fields %s.",
		quoteNames(s.Inputs), quoteNames(s.Outputs))
}

func quoteNames(fields []Field) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = "`" + f.Name + "`"
	}
	return strings.Join(quoted, ", ")
}

// String renders the signature in Parse syntax. String-typed fields
// omit their type.
func (s *Signature) String() string {
	return renderSide(s.Inputs) + " -> " + renderSide(s.Outputs)
}

func renderSide(fields []Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Name
		if f.Type != String {
			parts[i] += ": " + f.Type.String()
		}
	}
	return strings.Join(parts, ", ")
}
