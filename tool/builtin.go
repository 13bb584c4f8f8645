package tool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/traefik/yaegi/interp"
)

// CountLetter counts case-insensitive occurrences of letter in word.
// It returns 0 when word is empty or letter is not exactly one character.
func CountLetter(word, letter string) int {
	if word == "" || utf8.RuneCountInString(letter) != 1 {
		return 0
	}
	return strings.Count(strings.ToLower(word), strings.ToLower(letter))
}

// MinutesToSeconds converts minutes to seconds.
func MinutesToSeconds(minutes int) int {
	return minutes * 60
}

// ErrExpression is returned for expressions EvaluateMath refuses.
var ErrExpression = errors.New("invalid math expression")

var (
	// Numbers, arithmetic operators, parentheses and whitespace only.
	mathCharsRegex = regexp.MustCompile(`^[0-9.\s+\-*/()eE]+$`)
	mathNumRegex   = regexp.MustCompile(`\d*\.?\d+([eE][+-]?\d+)?`)
)

// EvaluateMath evaluates an arithmetic expression with float semantics,
// so "7/2" is 3.5. The expression runs in a yaegi interpreter with no
// packages loaded.
func EvaluateMath(ctx context.Context, expression string) (float64, error) {
	expr := strings.TrimSpace(expression)
	if expr == "" || !mathCharsRegex.MatchString(expr) {
		return 0, fmt.Errorf("%w: %q", ErrExpression, expression)
	}
	// Integer literals would make Go constant arithmetic truncate.
	expr = mathNumRegex.ReplaceAllStringFunc(expr, func(n string) string {
		if strings.ContainsAny(n, ".eE") {
			return n
		}
		return n + ".0"
	})

	i := interp.New(interp.Options{})
	v, err := i.EvalWithContext(ctx, "float64("+expr+")")
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrExpression, expression, err)
	}
	if !v.IsValid() || v.Kind() != reflect.Float64 {
		return 0, fmt.Errorf("%w: %q does not evaluate to a number", ErrExpression, expression)
	}
	return v.Float(), nil
}

// FormatNumber renders f without a fractional part when it is integral.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// CountLetterArgs are the arguments of the count_letter tool.
type CountLetterArgs struct {
	Word   string `json:"word" jsonschema:"description=the word to search in"`
	Letter string `json:"letter" jsonschema:"description=single letter to count"`
}

// CountLetterTool returns the count_letter tool.
func CountLetterTool() *Tool {
	return MustNew("count_letter", "Counts occurrences of a letter in a word",
		func(_ context.Context, a CountLetterArgs) (int, error) {
			return CountLetter(a.Word, a.Letter), nil
		})
}

// MinutesArgs are the arguments of the minutes_to_seconds tool.
type MinutesArgs struct {
	Minutes int `json:"minutes" jsonschema:"description=number of minutes"`
}

// MinutesToSecondsTool returns the minutes_to_seconds tool.
func MinutesToSecondsTool() *Tool {
	return MustNew("minutes_to_seconds", "Converts minutes to seconds",
		func(_ context.Context, a MinutesArgs) (int, error) {
			return MinutesToSeconds(a.Minutes), nil
		})
}

// MathArgs are the arguments of the evaluate_math tool.
type MathArgs struct {
	Expression string `json:"expression" jsonschema:"description=arithmetic expression such as 30 * 60"`
}

// EvaluateMathTool returns the evaluate_math tool. When w is non-nil each
// expression is echoed to it before evaluation.
func EvaluateMathTool(w io.Writer) *Tool {
	return MustNew("evaluate_math", "Evaluates a math expression and returns the result",
		func(ctx context.Context, a MathArgs) (string, error) {
			if w != nil {
				fmt.Fprintf(w, "Evaluating math expression: %s\n", a.Expression)
			}
			f, err := EvaluateMath(ctx, a.Expression)
			if err != nil {
				return "", err
			}
			return FormatNumber(f), nil
		})
}
