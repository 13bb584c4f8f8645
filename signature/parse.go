package signature

import (
	"fmt"
	"strings"
)

// Parse builds a signature from "inputs -> outputs", where each side is a
// comma-separated list of "name" or "name: type". Types are str, int,
// float, bool, list[str] and json; an omitted type means str.
//
//	Parse("context, question -> response")
//	Parse("minutes: int -> seconds: int")
func Parse(spec string) (*Signature, error) {
	lhs, rhs, ok := strings.Cut(spec, "->")
	if !ok || strings.Contains(rhs, "->") {
		return nil, fmt.Errorf("%w: expected exactly one \"->\" in %q", ErrSyntax, spec)
	}

	inputs, err := parseSide(lhs, Input)
	if err != nil {
		return nil, err
	}
	outputs, err := parseSide(rhs, Output)
	if err != nil {
		return nil, err
	}

	return New("", "", inputs, outputs)
}

// MustParse is like Parse but panics on error.
// Use for signatures written as literals.
func MustParse(spec string) *Signature {
	s, err := Parse(spec)
	if err != nil {
		panic(fmt.Sprintf("signature.MustParse(%q): %v", spec, err))
	}
	return s
}

func parseSide(side string, kind Kind) ([]Field, error) {
	side = strings.TrimSpace(side)
	if side == "" {
		return nil, nil
	}

	var fields []Field
	for _, part := range splitTopLevel(side) {
		name, typeName, _ := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: empty field name in %q", ErrSyntax, side)
		}
		typ, err := ParseType(typeName)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		fields = append(fields, Field{Name: name, Kind: kind, Type: typ})
	}
	return fields, nil
}

// splitTopLevel splits on commas outside brackets so "list[str]" style
// types survive.
func splitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
