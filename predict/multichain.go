package predict

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/randalmurphal/sigkit/signature"
)

// Defaults for MultiChainComparison.
const (
	DefaultAttempts           = 3
	DefaultCompareTemperature = 0.7

	// RationaleField is the output MultiChainComparison prepends.
	RationaleField = "rationale"

	// CompletionsField is the input Forward reads the attempts from.
	CompletionsField = "completions"
)

// MultiChainComparison reads several independent attempts at the same
// signature and asks the model for one corrected answer.
type MultiChainComparison struct {
	predict *Predict
	m       int
	lastKey string
}

// NewMultiChainComparison creates a comparison module expecting m attempts
// (DefaultAttempts when m <= 0). The comparison runs at
// DefaultCompareTemperature unless a temperature is set with WithTemperature
// or Configure.
func NewMultiChainComparison(sig *signature.Signature, m int, opts ...Option) *MultiChainComparison {
	if m <= 0 {
		m = DefaultAttempts
	}
	lastKey := ""
	if n := len(sig.Outputs); n > 0 {
		lastKey = sig.Outputs[n-1].Name
	}

	for i := 1; i <= m; i++ {
		sig = sig.Append(signature.Field{
			Name:   attemptField(i),
			Kind:   signature.Input,
			Type:   signature.String,
			Desc:   "${reasoning attempt}",
			Prefix: fmt.Sprintf("Student Attempt #%d:", i),
		})
	}
	if _, ok := sig.Field(RationaleField); !ok {
		sig = sig.Prepend(signature.Field{
			Name:   RationaleField,
			Kind:   signature.Output,
			Type:   signature.String,
			Desc:   "${corrected reasoning}",
			Prefix: "Accurate Reasoning: Thank you everyone. Let's now holistically",
		})
	}

	opts = append([]Option{withModuleTemperature(DefaultCompareTemperature)}, opts...)
	return &MultiChainComparison{
		predict: New(sig, opts...),
		m:       m,
		lastKey: lastKey,
	}
}

func attemptField(i int) string {
	return fmt.Sprintf("reasoning_attempt_%d", i)
}

// Signature returns the extended signature.
func (c *MultiChainComparison) Signature() *signature.Signature {
	return c.predict.Signature()
}

// Compare runs the comparison over completions, which must hold exactly
// as many predictions as the module was built for.
func (c *MultiChainComparison) Compare(ctx context.Context, completions []*Prediction, in Inputs) (*Prediction, error) {
	if len(completions) != c.m {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCompletionCount, len(completions), c.m)
	}
	args := make(Inputs, len(in)+c.m)
	for i, comp := range completions {
		args[attemptField(i+1)] = c.attempt(comp)
	}
	maps.Copy(args, in)
	delete(args, CompletionsField)
	return c.predict.Forward(ctx, args)
}

// Forward implements Module. The attempts are read from
// in["completions"] as a []*Prediction.
func (c *MultiChainComparison) Forward(ctx context.Context, in Inputs) (*Prediction, error) {
	completions, ok := in[CompletionsField].([]*Prediction)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, CompletionsField)
	}
	return c.Compare(ctx, completions, in)
}

// attempt renders one completion as a student attempt.
func (c *MultiChainComparison) attempt(p *Prediction) string {
	rationale := p.String(RationaleField)
	if !p.Has(RationaleField) {
		rationale = p.String(ReasoningField)
	}
	return fmt.Sprintf("«I'm trying to %s I'm not sure but my prediction is %s»",
		firstLine(rationale), firstLine(p.String(c.lastKey)))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
