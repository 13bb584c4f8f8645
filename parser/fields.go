package parser

import (
	"regexp"
	"strings"
)

// CompletedMarker is the field name that terminates a completion.
const CompletedMarker = "completed"

// fieldMarkerRegex tolerates the spacing drift small models introduce,
// e.g. "[[## answer ##]]".
var fieldMarkerRegex = regexp.MustCompile(`\[\[\s*##\s*([A-Za-z_][A-Za-z0-9_]*)\s*##\s*\]\]`)

// Section is the text that follows one field marker.
type Section struct {
	// Name is the field name inside the marker.
	Name string

	// Value is the trimmed text up to the next marker.
	Value string
}

// FieldMarker returns the marker line that introduces field name.
func FieldMarker(name string) string {
	return "[[ ## " + name + " ## ]]"
}

// FieldSections splits content on field markers, in order of appearance.
// Text before the first marker is discarded, as is the completed marker.
func FieldSections(content string) []Section {
	matches := fieldMarkerRegex.FindAllStringSubmatchIndex(content, -1)
	sections := make([]Section, 0, len(matches))

	for i, m := range matches {
		name := content[m[2]:m[3]]
		if name == CompletedMarker {
			continue
		}
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		sections = append(sections, Section{
			Name:  name,
			Value: strings.TrimSpace(content[m[1]:end]),
		})
	}

	return sections
}

// FieldMap returns the sections of content keyed by field name.
// When a field repeats, the first occurrence wins.
func FieldMap(content string) map[string]string {
	fields := make(map[string]string)
	for _, s := range FieldSections(content) {
		if _, ok := fields[s.Name]; !ok {
			fields[s.Name] = s.Value
		}
	}
	return fields
}

// HasFieldMarkers reports whether content contains any field marker.
func HasFieldMarkers(content string) bool {
	return fieldMarkerRegex.MatchString(content)
}
