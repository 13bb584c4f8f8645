package tokens

// Default allocation percentages for a prompt.
const (
	// DefaultSystemPercent covers the field descriptions and instructions.
	DefaultSystemPercent = 15

	// DefaultContextPercent covers retrieved passages.
	DefaultContextPercent = 50

	// DefaultInputPercent covers the remaining input fields.
	DefaultInputPercent = 10

	// DefaultReservedPercent is left for the completion.
	DefaultReservedPercent = 25
)

// DefaultServerContext is the window Ollama evaluates prompts in when
// num_ctx is not set. Longer prompts are silently truncated from the front.
const DefaultServerContext = 4096

// Budget manages token allocation across prompt components.
type Budget struct {
	// Total is the total token budget available.
	Total int

	// System is the budget for the system message.
	System int

	// Context is the budget for retrieved context.
	Context int

	// Input is the budget for other input fields.
	Input int

	// Reserved is the budget reserved for response generation.
	Reserved int

	counter Counter
}

// NewBudget creates a budget with total tokens allocated proportionally
// using the default percentages.
func NewBudget(total int) *Budget {
	return NewBudgetWithAllocation(total,
		DefaultSystemPercent, DefaultContextPercent, DefaultInputPercent, DefaultReservedPercent)
}

// NewBudgetWithAllocation creates a budget with custom allocations.
// The allocations are relative weights normalized to total.
func NewBudgetWithAllocation(total, system, context, input, reserved int) *Budget {
	sum := system + context + input + reserved
	if sum == 0 {
		sum = 100
	}
	return &Budget{
		Total:    total,
		System:   total * system / sum,
		Context:  total * context / sum,
		Input:    total * input / sum,
		Reserved: total * reserved / sum,
		counter:  NewEstimatingCounter(),
	}
}

// ForModel returns a default budget for the window the server will
// actually use: numCtx when set, otherwise the smaller of the model's
// trained limit and DefaultServerContext.
func ForModel(model string, numCtx int) *Budget {
	total := numCtx
	if total <= 0 {
		total = min(GetModelLimit(model), DefaultServerContext)
	}
	return NewBudget(total)
}

// FitsSystem returns true if the system message fits within the system budget.
func (b *Budget) FitsSystem(text string) bool {
	return b.counter.FitsInLimit(text, b.System)
}

// FitsContext returns true if the context fits within the context budget.
func (b *Budget) FitsContext(text string) bool {
	return b.counter.FitsInLimit(text, b.Context)
}

// FitsInput returns true if the input text fits within the input budget.
func (b *Budget) FitsInput(text string) bool {
	return b.counter.FitsInLimit(text, b.Input)
}

// RemainingContext returns the context budget left after usedTokens, with
// any overrun of the input budget taken out of the context share.
func (b *Budget) RemainingContext(usedTokens int) int {
	over := max(usedTokens-b.Input, 0)
	return max(b.Context-over, 0)
}

// RemainingTotal returns remaining tokens after subtracting used amounts
// and the reserved completion budget.
func (b *Budget) RemainingTotal(systemUsed, contextUsed, inputUsed int) int {
	used := systemUsed + contextUsed + inputUsed + b.Reserved
	return max(b.Total-used, 0)
}
