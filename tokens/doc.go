// Package tokens estimates token counts and splits a model's context window
// between the parts of a prompt.
//
// Estimation uses the rule of thumb that about 4 characters make a token in
// English text. That is close enough to decide whether fetched context must
// be truncated without shipping a model-specific tokenizer.
//
// # Counter
//
//	counter := tokens.NewEstimatingCounter()
//	count := counter.Count("Hello, world!")     // ~3 tokens
//	fits := counter.FitsInLimit("text", 1000)   // true if <= 1000 tokens
//
// # Budget
//
// A local server evaluates prompts in the window it was started with
// (Ollama's num_ctx), which is usually far smaller than what the model
// supports. ForModel picks the effective window:
//
//	budget := tokens.ForModel("llama3.2:3b", 0)   // Ollama default window
//	budget := tokens.ForModel("llama3.2:3b", 16384)
//	maxContext := budget.RemainingContext(tokens.EstimateTokens(question))
//
// # Model Limits
//
//	limit := tokens.GetModelLimit("llama3.2:3b")  // 131072
//	limit := tokens.GetModelLimit("unknown")      // 8192 (default)
package tokens
