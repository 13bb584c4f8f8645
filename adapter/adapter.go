package adapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/randalmurphal/sigkit/provider"
	"github.com/randalmurphal/sigkit/signature"
	"github.com/randalmurphal/sigkit/truncate"
)

// Adapter formats requests for a signature and parses completions.
type Adapter interface {
	// Name identifies the adapter in logs and errors.
	Name() string

	// Format builds the request for one call. inputs must hold every
	// input field of sig.
	Format(sig *signature.Signature, inputs map[string]any) (provider.Request, error)

	// Parse extracts and coerces every output field of sig from content.
	Parse(sig *signature.Signature, content string) (map[string]any, error)
}

// Sentinel errors for parsing.
var (
	// ErrParse is wrapped by every *ParseError.
	ErrParse = errors.New("adapter: cannot parse completion")

	// ErrMissingField means an output field was absent from the completion.
	ErrMissingField = errors.New("output field missing")

	// ErrNoJSON means no JSON object was found in the completion.
	ErrNoJSON = errors.New("no JSON object found")
)

// maxRawInError bounds how much completion text an error message quotes.
const maxRawInError = 200

// ParseError reports a completion that could not be turned into outputs.
// It matches both ErrParse and its Err with errors.Is.
type ParseError struct {
	Adapter string
	Field   string // empty when the completion as a whole was unusable
	Raw     string
	Err     error
}

func (e *ParseError) Error() string {
	where := e.Adapter
	if e.Field != "" {
		where += " field " + e.Field
	}
	return fmt.Sprintf("%s: %v (got %q)", where, e.Err, truncate.ToLength(e.Raw, maxRawInError))
}

// Unwrap returns ErrParse and the underlying cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// FormatValue renders an input value for a prompt. Strings are verbatim,
// string slices become numbered «passages», scalars use their Go form and
// everything else is indented JSON.
func FormatValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []string:
		return formatPassages(x), nil
	case fmt.Stringer:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case json.RawMessage:
		return indentJSON(x)
	case map[string]string:
		return formatStringMap(x)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("format %T: %w", v, err)
	}
	return indentJSON(data)
}

func formatPassages(passages []string) string {
	if len(passages) == 1 {
		return "[1] «" + passages[0] + "»"
	}
	var sb strings.Builder
	for i, p := range passages {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "[%d] «%s»", i+1, p)
	}
	return sb.String()
}

// formatStringMap renders keys in sorted order so prompts are stable.
func formatStringMap(m map[string]string) (string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			buf.WriteString(", ")
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(m[k])
		buf.Write(kb)
		buf.WriteString(": ")
		buf.Write(vb)
	}
	buf.WriteString("}")
	return buf.String(), nil
}

func indentJSON(data []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return "", fmt.Errorf("format json: %w", err)
	}
	return buf.String(), nil
}

// formatInputs renders every input field of sig, in order.
func formatInputs(sig *signature.Signature, inputs map[string]any) ([]string, error) {
	values := make([]string, len(sig.Inputs))
	for i, f := range sig.Inputs {
		v, ok := inputs[f.Name]
		if !ok {
			return nil, fmt.Errorf("input %s: %w", f.Name, ErrMissingField)
		}
		s, err := FormatValue(v)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", f.Name, err)
		}
		values[i] = s
	}
	return values, nil
}

// describeFields lists fields as "1. `name` (type): desc".
func describeFields(fields []signature.Field) string {
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d. `%s` (%s)", i+1, f.Name, f.Type)
		if desc := f.Desc; desc != "" {
			sb.WriteString(": " + desc)
		}
	}
	return sb.String()
}

// typeNote tells the model how a non-string value must be written.
func typeNote(f signature.Field) string {
	switch f.Type {
	case signature.Int:
		return "must be formatted as a valid integer"
	case signature.Float:
		return "must be formatted as a valid float"
	case signature.Bool:
		return "must be True or False"
	case signature.List:
		return "must be formatted as a JSON array of strings"
	case signature.JSON:
		if len(f.Schema) > 0 {
			return "must be valid JSON adhering to the schema: " + string(f.Schema)
		}
		return "must be valid JSON"
	default:
		return ""
	}
}
