package parser

import (
	"regexp"
)

// CodeBlock represents a fenced code block.
type CodeBlock struct {
	// Language is the language specifier after the opening fence (e.g., "json", "yaml").
	Language string

	// Content is the code inside the block, excluding fences.
	Content string

	// Raw is the complete block including the fences.
	Raw string
}

// Parser extracts structured content from completions.
// A Parser holds only compiled patterns and is safe for concurrent use.
type Parser struct {
	codeBlockRegex *regexp.Regexp
	bulletRegex    *regexp.Regexp
	numberedRegex  *regexp.Regexp
}

// NewParser creates a new parser with compiled regexes.
func NewParser() *Parser {
	return &Parser{
		codeBlockRegex: regexp.MustCompile("(?s)```([\\w-]*)[ \\t]*\\n(.*?)```"),
		bulletRegex:    regexp.MustCompile(`(?m)^\s*[-*•]\s+(.+)$`),
		numberedRegex:  regexp.MustCompile(`(?m)^\s*\d+[.)]\s+(.+)$`),
	}
}

// defaultParser backs the package-level convenience functions.
var defaultParser = NewParser()

// extractCodeBlocks finds all fenced code blocks in the text.
func (p *Parser) extractCodeBlocks(text string) []CodeBlock {
	matches := p.codeBlockRegex.FindAllStringSubmatch(text, -1)
	blocks := make([]CodeBlock, 0, len(matches))

	for _, match := range matches {
		blocks = append(blocks, CodeBlock{
			Language: match[1],
			Content:  match[2],
			Raw:      match[0],
		})
	}

	return blocks
}

// removeCodeBlocks removes all code blocks from the text.
func (p *Parser) removeCodeBlocks(text string) string {
	return p.codeBlockRegex.ReplaceAllString(text, "")
}
