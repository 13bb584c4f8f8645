package signature

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// FieldType is the value type of a field.
type FieldType int

// Supported field types.
const (
	String FieldType = iota
	Int
	Float
	Bool
	List // list of strings
	JSON // structured value described by Field.Schema
)

// String returns the type name used in signature strings and prompts.
func (t FieldType) String() string {
	switch t {
	case String:
		return "str"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case List:
		return "list[str]"
	case JSON:
		return "json"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// ParseType converts a type name to a FieldType.
func ParseType(name string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "str", "string":
		return String, nil
	case "int", "integer":
		return Int, nil
	case "float", "number":
		return Float, nil
	case "bool", "boolean":
		return Bool, nil
	case "list", "list[str]", "list[string]":
		return List, nil
	case "dict", "json", "object":
		return JSON, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
}

// Kind says which side of the signature a field is on.
type Kind int

// Field kinds.
const (
	Input Kind = iota
	Output
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k == Output {
		return "output"
	}
	return "input"
}

// Field is one named, typed value in a signature.
type Field struct {
	Name string
	Kind Kind
	Type FieldType

	// Desc is shown to the model next to the field name.
	Desc string

	// Prefix is the human-readable label ("Next Thought" for next_thought).
	// Derived from Name when empty.
	Prefix string

	// Schema is the JSON schema of a JSON field. Optional.
	Schema json.RawMessage
}

// InputField creates an input field.
func InputField(name string, typ FieldType, desc string) Field {
	return Field{Name: name, Kind: Input, Type: typ, Desc: desc, Prefix: Label(name)}
}

// OutputField creates an output field.
func OutputField(name string, typ FieldType, desc string) Field {
	return Field{Name: name, Kind: Output, Type: typ, Desc: desc, Prefix: Label(name)}
}

var nameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validate checks the field's name and type.
func (f Field) validate() error {
	if !nameRegex.MatchString(f.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, f.Name)
	}
	if f.Type < String || f.Type > JSON {
		return fmt.Errorf("%w: field %s has %v", ErrUnknownType, f.Name, f.Type)
	}
	return nil
}

// Label turns a field name into a title-cased label: "next_thought"
// becomes "Next Thought" and "pageSize" becomes "Page Size".
func Label(name string) string {
	words := splitWords(name)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// SnakeCase converts a Go identifier to snake_case: "PageSize" becomes
// "page_size" and "HTTPStatus" becomes "http_status".
func SnakeCase(name string) string {
	words := splitWords(name)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

// splitWords splits on underscores and case transitions, keeping acronyms
// together.
func splitWords(name string) []string {
	var (
		words []string
		cur   []rune
	)
	runes := []rune(name)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}
