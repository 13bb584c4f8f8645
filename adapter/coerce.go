package adapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/randalmurphal/sigkit/parser"
	"github.com/randalmurphal/sigkit/signature"
)

// Coercion errors.
var (
	ErrNotNumber = errors.New("not a number")
	ErrNotBool   = errors.New("not a boolean")
	ErrNotJSON   = errors.New("not valid JSON")
)

var (
	// fractionRegex matches "1/216" style answers.
	fractionRegex = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*/\s*(\d+(?:\.\d+)?)`)

	// numberRegex matches the first number, allowing thousands separators.
	numberRegex = regexp.MustCompile(`-?\d{1,3}(?:,\d{3})+(?:\.\d+)?|-?\d*\.?\d+(?:[eE][-+]?\d+)?`)

	emphasisReplacer = strings.NewReplacer("**", "", "__", "", "`", "")
)

// Coerce converts the raw text of an output field to its Go value.
func Coerce(f signature.Field, raw string) (any, error) {
	text := strings.TrimSpace(raw)

	switch f.Type {
	case signature.Int:
		n, err := parseNumber(text)
		if err != nil {
			return nil, err
		}
		return toInt(n, text)
	case signature.Float:
		return parseNumber(text)
	case signature.Bool:
		return parseBool(text)
	case signature.List:
		items := parser.ExtractItems(text)
		if items == nil {
			items = []string{}
		}
		return items, nil
	case signature.JSON:
		return parseJSON(text)
	default:
		return text, nil
	}
}

// parseNumber reads the first number in text. A fraction is evaluated,
// so "1/216" yields 0.00463.
func parseNumber(text string) (float64, error) {
	clean := emphasisReplacer.Replace(text)

	if m := fractionRegex.FindStringSubmatch(clean); m != nil {
		num, err1 := strconv.ParseFloat(m[1], 64)
		den, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil && den != 0 {
			return num / den, nil
		}
	}

	m := numberRegex.FindString(clean)
	if m == "" {
		return 0, fmt.Errorf("%w: %q", ErrNotNumber, text)
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotNumber, text)
	}
	return n, nil
}

// toInt rounds n half away from zero. Values outside the int range are
// rejected rather than wrapped.
func toInt(n float64, text string) (int, error) {
	r := math.Round(n)
	if r >= math.MaxInt || r < math.MinInt {
		return 0, fmt.Errorf("%w: %q is out of range for an integer", ErrNotNumber, text)
	}
	return int(r), nil
}

func parseBool(text string) (bool, error) {
	word := strings.ToLower(strings.Trim(emphasisReplacer.Replace(text), " \t\n.!*\"'"))
	if first, _, ok := strings.Cut(word, " "); ok {
		word = first
	}
	switch strings.TrimRight(word, ".,;:") {
	case "true", "yes", "y", "1":
		return true, nil
	case "false", "no", "n", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrNotBool, text)
	}
}

func parseJSON(text string) (json.RawMessage, error) {
	if raw, ok := parser.ExtractJSONValue(text); ok {
		return raw, nil
	}
	if json.Valid([]byte(text)) {
		return json.RawMessage(text), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotJSON, text)
}
