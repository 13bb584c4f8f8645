package tokens

import (
	"strings"
	"unicode/utf8"
)

// DefaultCharsPerToken is the default character-to-token ratio.
// Approximately 4 characters equals 1 token for English text.
const DefaultCharsPerToken = 4.0

// Counter estimates token counts for text.
type Counter interface {
	// Count estimates the number of tokens in the given text.
	Count(text string) int

	// FitsInLimit returns true if the text fits within the token limit.
	FitsInLimit(text string, limit int) bool
}

// EstimatingCounter uses a character-to-token ratio for estimation.
type EstimatingCounter struct {
	// CharsPerToken is the average characters per token.
	CharsPerToken float64
}

// NewEstimatingCounter creates a token counter with default settings.
func NewEstimatingCounter() *EstimatingCounter {
	return &EstimatingCounter{CharsPerToken: DefaultCharsPerToken}
}

// NewEstimatingCounterWithRatio creates a token counter with a custom ratio.
// If charsPerToken is <= 0, the default ratio (4.0) is used.
func NewEstimatingCounterWithRatio(charsPerToken float64) *EstimatingCounter {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return &EstimatingCounter{CharsPerToken: charsPerToken}
}

// Count estimates the number of tokens in the given text, counting runes
// rather than bytes.
func (c *EstimatingCounter) Count(text string) int {
	tokens := float64(utf8.RuneCountInString(text)) / c.CharsPerToken
	return int(tokens + 0.5)
}

// FitsInLimit returns true if the text fits within the token limit.
func (c *EstimatingCounter) FitsInLimit(text string, limit int) bool {
	return c.Count(text) <= limit
}

// EstimateTokens is a convenience function using the default estimator.
func EstimateTokens(text string) int {
	return NewEstimatingCounter().Count(text)
}

// DefaultModelLimit is used for model families not in ModelLimits.
const DefaultModelLimit = 8192

// ModelLimits contains trained context window sizes for common local model
// families, keyed by the name before the ":" tag.
var ModelLimits = map[string]int{
	"llama3.2":     131072,
	"llama3.1":     131072,
	"llama3":       8192,
	"qwen2.5":      32768,
	"qwen3":        40960,
	"mistral":      32768,
	"mistral-nemo": 131072,
	"gemma2":       8192,
	"gemma3":       131072,
	"phi3":         4096,
	"phi4":         16384,
	"deepseek-r1":  131072,
}

// GetModelLimit returns the context window for a model such as
// "llama3.2:3b". The tag after ":" and any registry prefix ("library/")
// are ignored. Unknown models get DefaultModelLimit.
func GetModelLimit(model string) int {
	name := strings.ToLower(model)
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = name[:i]
	}
	if limit, ok := ModelLimits[name]; ok {
		return limit
	}
	return DefaultModelLimit
}
