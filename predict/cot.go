package predict

import (
	"context"

	"github.com/randalmurphal/sigkit/signature"
)

// ReasoningField is the output ChainOfThought adds.
const ReasoningField = "reasoning"

// ChainOfThought asks the model to reason step by step before producing
// the signature's outputs.
type ChainOfThought struct {
	predict *Predict
}

// NewChainOfThought creates a ChainOfThought module. A reasoning output is
// prepended unless sig already has one.
func NewChainOfThought(sig *signature.Signature, opts ...Option) *ChainOfThought {
	if _, ok := sig.Field(ReasoningField); !ok {
		sig = sig.Prepend(signature.Field{
			Name:   ReasoningField,
			Kind:   signature.Output,
			Type:   signature.String,
			Desc:   "Let's think step by step in order to produce the outputs.",
			Prefix: "Reasoning",
		})
	}
	return &ChainOfThought{predict: New(sig, opts...)}
}

// Signature returns the extended signature.
func (c *ChainOfThought) Signature() *signature.Signature {
	return c.predict.Signature()
}

// Forward implements Module.
func (c *ChainOfThought) Forward(ctx context.Context, in Inputs) (*Prediction, error) {
	return c.predict.Forward(ctx, in)
}
