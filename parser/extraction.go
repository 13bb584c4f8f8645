package parser

import (
	"bytes"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExtractJSONValue returns the first JSON object or array in response.
// Fenced json (or unlabeled) blocks are tried first, then the first
// balanced value embedded in the prose.
func (p *Parser) ExtractJSONValue(response string) (json.RawMessage, bool) {
	for _, block := range p.extractCodeBlocks(response) {
		if block.Language != "json" && block.Language != "" {
			continue
		}
		content := strings.TrimSpace(block.Content)
		if json.Valid([]byte(content)) && (strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[")) {
			return json.RawMessage(content), true
		}
	}
	return scanJSON(response)
}

// ExtractJSON extracts the first JSON object found.
// Returns nil if no valid object is found.
func (p *Parser) ExtractJSON(response string) map[string]any {
	for _, block := range p.extractCodeBlocks(response) {
		if block.Language != "json" && block.Language != "" {
			continue
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(block.Content), &data); err == nil {
			return data
		}
	}

	text := response
	for {
		i := strings.IndexByte(text, '{')
		if i < 0 {
			return nil
		}
		var data map[string]any
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if err := dec.Decode(&data); err == nil {
			return data
		}
		text = text[i+1:]
	}
}

// scanJSON decodes from each '{' or '[' in turn until one yields a value.
func scanJSON(text string) (json.RawMessage, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		var raw json.RawMessage
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if err := dec.Decode(&raw); err == nil {
			return raw, true
		}
	}
	return nil, false
}

// ExtractCode extracts the first code block with the given language.
// If language is empty, returns the first code block found.
func (p *Parser) ExtractCode(response, language string) string {
	for _, block := range p.extractCodeBlocks(response) {
		if language == "" || block.Language == language {
			return block.Content
		}
	}
	return ""
}

// ExtractYAML extracts and parses yaml/yml fenced blocks.
func (p *Parser) ExtractYAML(response string) []map[string]any {
	var blocks []map[string]any

	for _, block := range p.extractCodeBlocks(response) {
		if block.Language == "yaml" || block.Language == "yml" {
			var data map[string]any
			if err := yaml.Unmarshal([]byte(block.Content), &data); err == nil {
				blocks = append(blocks, data)
			}
		}
	}

	return blocks
}

// ExtractList extracts bullet list items (-, * or •).
func (p *Parser) ExtractList(response string) []string {
	return submatches(p.bulletRegex.FindAllStringSubmatch(response, -1))
}

// ExtractNumberedList extracts numbered list items ("1." or "1)").
func (p *Parser) ExtractNumberedList(response string) []string {
	return submatches(p.numberedRegex.FindAllStringSubmatch(response, -1))
}

// ExtractItems returns the list items in response in any of the forms
// models produce: a JSON array, a YAML sequence, a bullet or numbered list,
// or one item per line. Empty items are dropped.
func (p *Parser) ExtractItems(response string) []string {
	trimmed := strings.TrimSpace(p.unfence(response))
	if trimmed == "" {
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var arr []any
		if err := json.Unmarshal([]byte(trimmed), &arr); err == nil {
			return stringify(arr)
		}
		var seq []any
		if err := yaml.Unmarshal([]byte(trimmed), &seq); err == nil {
			return stringify(seq)
		}
	}

	if items := p.ExtractList(trimmed); len(items) > 0 {
		return items
	}
	if items := p.ExtractNumberedList(trimmed); len(items) > 0 {
		return items
	}

	var items []string
	for _, line := range strings.Split(trimmed, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			items = append(items, line)
		}
	}
	return items
}

// unfence returns the content of the first code block, or text unchanged.
func (p *Parser) unfence(text string) string {
	if blocks := p.extractCodeBlocks(text); len(blocks) > 0 {
		return blocks[0].Content
	}
	return text
}

func submatches(matches [][]string) []string {
	items := make([]string, 0, len(matches))
	for _, match := range matches {
		items = append(items, strings.TrimSpace(match[1]))
	}
	return items
}

func stringify(values []any) []string {
	items := make([]string, 0, len(values))
	for _, v := range values {
		switch s := v.(type) {
		case string:
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		case nil:
		default:
			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			enc.SetEscapeHTML(false)
			if err := enc.Encode(s); err == nil {
				items = append(items, strings.TrimSpace(buf.String()))
			}
		}
	}
	return items
}

// ExtractJSON is a convenience function for JSON object extraction.
func ExtractJSON(response string) map[string]any {
	return defaultParser.ExtractJSON(response)
}

// ExtractJSONValue is a convenience function for JSON value extraction.
func ExtractJSONValue(response string) (json.RawMessage, bool) {
	return defaultParser.ExtractJSONValue(response)
}

// ExtractCode is a convenience function for code extraction.
func ExtractCode(response, language string) string {
	return defaultParser.ExtractCode(response, language)
}

// ExtractItems is a convenience function for list extraction.
func ExtractItems(response string) []string {
	return defaultParser.ExtractItems(response)
}
