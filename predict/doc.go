// Package predict runs signatures against a language model.
//
// Modules:
//
//   - Predict: one model call for a signature
//   - ChainOfThought: Predict with a reasoning output ahead of the others
//   - ReAct: a tool-using agent loop followed by an extraction step
//   - MultiChainComparison: compares several completions and produces a
//     corrected answer
//   - Parallel: runs many (module, inputs) pairs on a bounded worker pool
//
// Every module implements Module, so they compose: ModuleFunc wraps a plain
// function and Chain feeds each step's outputs into the next step's inputs.
//
// A process-wide model is set once with Configure; per-module options
// override it:
//
//	predict.Configure(lm)
//	cot := predict.NewChainOfThought(signature.MustParse("question -> answer: float"))
//	pred, err := cot.Forward(ctx, predict.Inputs{"question": "..."})
//	answer, err := pred.Float("answer")
package predict
