package truncate

import (
	"unicode/utf8"

	"github.com/randalmurphal/sigkit/tokens"
)

// Strategy defines how text is truncated.
type Strategy int

const (
	// FromEnd removes content from the end (default).
	FromEnd Strategy = iota

	// FromMiddle removes content from the middle, keeping start and end.
	FromMiddle

	// FromStart removes content from the start.
	FromStart
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case FromEnd:
		return "end"
	case FromMiddle:
		return "middle"
	case FromStart:
		return "start"
	default:
		return "unknown"
	}
}

// DefaultEndSuffix is the default marker for end and start truncation.
const DefaultEndSuffix = "..."

// DefaultMiddleSuffix is the default marker for middle truncation.
const DefaultMiddleSuffix = "\n...[content truncated]...\n"

// DefaultBoundaryWindow is the fraction of the kept text FromEnd may give
// up to end on a paragraph, sentence or word boundary.
const DefaultBoundaryWindow = 0.2

// Truncator truncates text to fit within token limits.
// A Truncator is immutable once built and safe for concurrent use.
type Truncator struct {
	counter  tokens.Counter
	strategy Strategy
	suffix   string
	window   float64
}

// New creates a truncator with the given strategy.
func New(strategy Strategy) *Truncator {
	suffix := DefaultEndSuffix
	if strategy == FromMiddle {
		suffix = DefaultMiddleSuffix
	}
	return &Truncator{
		counter:  tokens.NewEstimatingCounter(),
		strategy: strategy,
		suffix:   suffix,
		window:   DefaultBoundaryWindow,
	}
}

// NewFromEnd creates a truncator that removes content from the end.
func NewFromEnd() *Truncator {
	return New(FromEnd)
}

// NewFromMiddle creates a truncator that removes content from the middle.
func NewFromMiddle() *Truncator {
	return New(FromMiddle)
}

// NewFromStart creates a truncator that removes content from the start.
func NewFromStart() *Truncator {
	return New(FromStart)
}

// WithCounter returns a copy using a custom token counter.
func (t *Truncator) WithCounter(counter tokens.Counter) *Truncator {
	c := *t
	c.counter = counter
	return &c
}

// WithSuffix returns a copy using a custom truncation marker.
func (t *Truncator) WithSuffix(suffix string) *Truncator {
	c := *t
	c.suffix = suffix
	return &c
}

// WithBoundaryWindow returns a copy with a different boundary window.
// 0 disables boundary snapping.
func (t *Truncator) WithBoundaryWindow(window float64) *Truncator {
	c := *t
	c.window = min(max(window, 0), 1)
	return &c
}

// Truncate reduces the text to fit within the token limit.
// Returns the truncated text and whether truncation occurred.
func (t *Truncator) Truncate(text string, maxTokens int) (string, bool) {
	if t.counter.FitsInLimit(text, maxTokens) {
		return text, false
	}

	switch t.strategy {
	case FromMiddle:
		return t.truncateMiddle(text, maxTokens), true
	case FromStart:
		return t.truncateStart(text, maxTokens), true
	default:
		return t.truncateEnd(text, maxTokens), true
	}
}

// Strategy returns the truncator's strategy.
func (t *Truncator) Strategy() Strategy {
	return t.strategy
}

// Suffix returns the truncator's marker.
func (t *Truncator) Suffix() string {
	return t.suffix
}

// ToTokens truncates text to fit within maxTokens using the default
// end truncator.
func ToTokens(text string, maxTokens int) string {
	result, _ := NewFromEnd().Truncate(text, maxTokens)
	return result
}

// ToLength truncates text to maxLen runes, ending in "..." when cut.
func ToLength(text string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}

	runes := []rune(text)
	if maxLen < 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
