package predict

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/randalmurphal/sigkit/adapter"
	"github.com/randalmurphal/sigkit/provider"
	"github.com/randalmurphal/sigkit/signature"
)

// Prediction holds the outputs of a module call, in signature order.
type Prediction struct {
	order  []string
	values map[string]any

	// Trajectory records the agent steps of a ReAct call.
	Trajectory []Step

	// Usage sums token usage over every model call made.
	Usage provider.TokenUsage

	// Raw is the text of the last completion parsed.
	Raw string
}

// NewPrediction creates an empty prediction. Use Set to add fields.
func NewPrediction() *Prediction {
	return &Prediction{values: make(map[string]any)}
}

// Set stores a field value, keeping first-insertion order, and returns p.
func (p *Prediction) Set(name string, v any) *Prediction {
	if p.values == nil {
		p.values = make(map[string]any)
	}
	if _, ok := p.values[name]; !ok {
		p.order = append(p.order, name)
	}
	p.values[name] = v
	return p
}

// Fields returns the field names in order.
func (p *Prediction) Fields() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Has reports whether the prediction holds field name.
func (p *Prediction) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Get returns the raw field value.
func (p *Prediction) Get(name string) (any, bool) {
	v, ok := p.values[name]
	return v, ok
}

// String returns a field rendered as text, or "" when absent.
func (p *Prediction) String(name string) string {
	v, ok := p.values[name]
	if !ok {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case json.RawMessage:
		return string(x)
	case []string:
		data, _ := json.Marshal(x)
		return string(data)
	}
	s, err := adapter.FormatValue(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}

// Reasoning returns the reasoning field, if any.
func (p *Prediction) Reasoning() string {
	return p.String(ReasoningField)
}

// Int returns a field as an int, converting from float or text if needed.
// Floats round half away from zero; values outside the int range are an
// error wrapping adapter.ErrNotNumber.
func (p *Prediction) Int(name string) (int, error) {
	v, ok := p.values[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoField, name)
	}
	if x, ok := v.(int); ok {
		return x, nil
	}
	n, err := adapter.Coerce(signature.OutputField(name, signature.Int, ""), p.String(name))
	if err != nil {
		return 0, err
	}
	return n.(int), nil
}

// Float returns a field as a float64.
func (p *Prediction) Float(name string) (float64, error) {
	v, ok := p.values[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoField, name)
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	}
	f, err := adapter.Coerce(signature.OutputField(name, signature.Float, ""), p.String(name))
	if err != nil {
		return 0, err
	}
	return f.(float64), nil
}

// Bool returns a field as a bool.
func (p *Prediction) Bool(name string) (bool, error) {
	v, ok := p.values[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNoField, name)
	}
	if b, ok := v.(bool); ok {
		return b, nil
	}
	b, err := adapter.Coerce(signature.OutputField(name, signature.Bool, ""), p.String(name))
	if err != nil {
		return false, err
	}
	return b.(bool), nil
}

// Strings returns a list field.
func (p *Prediction) Strings(name string) ([]string, error) {
	v, ok := p.values[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoField, name)
	}
	if s, ok := v.([]string); ok {
		return s, nil
	}
	items, err := adapter.Coerce(signature.OutputField(name, signature.List, ""), p.String(name))
	if err != nil {
		return nil, err
	}
	return items.([]string), nil
}

// Decode unmarshals a field into v. JSON fields decode directly; other
// values round-trip through encoding/json.
func (p *Prediction) Decode(name string, v any) error {
	val, ok := p.values[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoField, name)
	}
	data, ok := val.(json.RawMessage)
	if !ok {
		var err error
		if data, err = json.Marshal(val); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// Into fills the sig-tagged fields of the struct pointed to by dst from
// the prediction, using the same names signature.FromStruct derives.
// Fields the prediction lacks are left untouched.
func (p *Prediction) Into(dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("predict: Into needs a pointer to a struct, got %T", dst)
	}
	rv = rv.Elem()
	rt := rv.Type()

	for i := range rt.NumField() {
		sf := rt.Field(i)
		if !sf.IsExported() || sf.Tag.Get(signature.TagSig) == "" {
			continue
		}
		name := signature.FieldName(sf)
		if !p.Has(name) {
			continue
		}
		if err := p.Decode(name, rv.Field(i).Addr().Interface()); err != nil {
			return err
		}
	}
	return nil
}

// Summary renders the prediction as "name: value" lines, for logs and
// debugging.
func (p *Prediction) Summary() string {
	var sb strings.Builder
	for i, name := range p.order {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(name + ": " + p.String(name))
	}
	return sb.String()
}

// GoString implements fmt.GoStringer.
func (p *Prediction) GoString() string {
	parts := make([]string, len(p.order))
	for i, name := range p.order {
		parts[i] = name + "=" + strconv.Quote(p.String(name))
	}
	return "Prediction(" + strings.Join(parts, ", ") + ")"
}
