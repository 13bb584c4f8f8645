// Package sigkit builds declarative language model programs that run
// against a local model server.
//
// A program is made of signatures, which declare typed input and output
// fields, and modules, which turn a signature into model calls:
//
//   - signature: field declarations from a "a, b -> c: int" string or a tagged struct
//   - adapter: prompt formatting and output parsing ([[ ## field ## ]] markers, JSON)
//   - predict: Predict, ChainOfThought, ReAct, MultiChainComparison, Parallel, Chain
//   - tool: typed tools for ReAct agents, plus a few builtins
//   - provider, local: the model client (Ollama or any OpenAI-compatible server)
//   - retrieve: HTTP context fetching with HTML to text reduction
//   - usage: token and latency accounting around a client
//   - tokens, truncate, parser: budgeting, truncation and text extraction helpers
//   - examples: runnable example programs, driven by cmd/sigkit
//
// # Quick Start
//
//	import (
//		_ "github.com/randalmurphal/sigkit/local"
//		"github.com/randalmurphal/sigkit/predict"
//		"github.com/randalmurphal/sigkit/provider"
//		"github.com/randalmurphal/sigkit/signature"
//	)
//
//	lm, _ := provider.FromConfig(provider.FromEnv())
//	predict.Configure(lm)
//
//	cot := predict.NewChainOfThought(signature.MustParse("question -> answer: float"))
//	pred, _ := cot.Forward(ctx, predict.Inputs{"question": "What is 1/6 + 1/6?"})
//	fmt.Println(pred.Reasoning(), pred.String("answer"))
//
// The backend defaults to llama3.2:3b on http://localhost:11434. Override
// it with SIGKIT_MODEL, SIGKIT_BASE_URL and friends, or a config file
// passed to the CLI.
package sigkit
