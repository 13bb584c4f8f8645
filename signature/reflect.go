package signature

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
)

// Struct tags read by FromStruct.
const (
	// TagSig marks a field as "input" or "output". Untagged fields are skipped.
	TagSig = "sig"

	// TagDesc holds the field description shown to the model.
	TagDesc = "desc"
)

// FromStruct derives a signature from the exported fields of T that carry
// a sig tag. The field name comes from the json tag when present, otherwise
// the snake_case form of the Go name.
func FromStruct[T any](instructions string) (*Signature, error) {
	return FromType(reflect.TypeFor[T](), instructions)
}

// MustFromStruct is like FromStruct but panics on error.
func MustFromStruct[T any](instructions string) *Signature {
	s, err := FromStruct[T](instructions)
	if err != nil {
		panic(fmt.Sprintf("signature.MustFromStruct: %v", err))
	}
	return s
}

// FromType is FromStruct for a reflect.Type. Pointer types are dereferenced.
func FromType(t reflect.Type, instructions string) (*Signature, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrSyntax, t)
	}

	var inputs, outputs []Field
	for sf := range structFields(t) {
		kind, ok := fieldKind(sf)
		if !ok {
			continue
		}
		f, err := fieldFromStruct(sf, kind)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name(), sf.Name, err)
		}
		if kind == Output {
			outputs = append(outputs, f)
		} else {
			inputs = append(inputs, f)
		}
	}

	return New(t.Name(), instructions, inputs, outputs)
}

// structFields yields the exported fields of t in declaration order.
func structFields(t reflect.Type) func(func(reflect.StructField) bool) {
	return func(yield func(reflect.StructField) bool) {
		for i := range t.NumField() {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			if !yield(sf) {
				return
			}
		}
	}
}

func fieldKind(sf reflect.StructField) (Kind, bool) {
	switch strings.TrimSpace(sf.Tag.Get(TagSig)) {
	case "input", "in":
		return Input, true
	case "output", "out":
		return Output, true
	default:
		return 0, false
	}
}

// FieldName returns the signature field name for a struct field.
func FieldName(sf reflect.StructField) string {
	if tag, ok := sf.Tag.Lookup("json"); ok {
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			return name
		}
	}
	return SnakeCase(sf.Name)
}

func fieldFromStruct(sf reflect.StructField, kind Kind) (Field, error) {
	f := Field{
		Name: FieldName(sf),
		Kind: kind,
		Desc: sf.Tag.Get(TagDesc),
	}
	f.Prefix = Label(f.Name)

	typ, err := TypeOf(sf.Type)
	if err != nil {
		return Field{}, err
	}
	f.Type = typ
	if typ == JSON {
		schema, err := SchemaFor(sf.Type)
		if err != nil {
			return Field{}, err
		}
		f.Schema = schema
	}
	return f, nil
}

// TypeOf maps a Go type to a FieldType. Structs, maps and slices of
// anything but strings are JSON. Channels and functions are rejected.
func TypeOf(t reflect.Type) (FieldType, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return String, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Int, nil
	case reflect.Float32, reflect.Float64:
		return Float, nil
	case reflect.Bool:
		return Bool, nil
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.String {
			return List, nil
		}
		return JSON, nil
	case reflect.Struct, reflect.Map, reflect.Interface:
		return JSON, nil
	default:
		return 0, fmt.Errorf("%w: Go type %s", ErrUnknownType, t)
	}
}

// SchemaFor generates an inline JSON schema for t, without $schema or
// $ref indirection so it can be pasted into a prompt.
func SchemaFor(t reflect.Type) (json.RawMessage, error) {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}
	schema := r.ReflectFromType(t)
	schema.Version = ""
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema for %s: %w", t, err)
	}
	return data, nil
}
