// Package truncate shortens text to fit a token budget.
//
// Retrieved context is the main consumer: a fetched page is cut to the
// context share of the prompt budget before it reaches the model. Three
// strategies are available:
//
//   - FromEnd: keep the start, preferring to cut at a paragraph or sentence
//     boundary (default)
//   - FromMiddle: keep start and end, drop the middle
//   - FromStart: keep the end
//
// Usage:
//
//	tr := truncate.NewFromEnd()
//	result, truncated := tr.Truncate(page, budget.Context)
//
//	short := truncate.ToTokens(text, 100)
//	preview := truncate.ToLength(completion, 200) // for logs
//
// Lengths are measured in runes, so multi-byte characters are never split.
package truncate
