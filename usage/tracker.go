package usage

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"
)

// Usage tracks token usage for a model.
type Usage struct {
	InputTokens  int
	OutputTokens int
	Requests     int
	Errors       int
	Latency      time.Duration // summed over requests
}

// Add adds the given usage to this usage.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.Requests += other.Requests
	u.Errors += other.Errors
	u.Latency += other.Latency
}

// TotalTokens returns the total tokens used.
func (u *Usage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}

// AverageLatency returns the mean latency per request.
func (u *Usage) AverageLatency() time.Duration {
	if u.Requests == 0 {
		return 0
	}
	return u.Latency / time.Duration(u.Requests)
}

// Tracker accumulates usage per model. It is safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	totals map[string]Usage
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		totals: make(map[string]Usage),
	}
}

// Record adds one successful request for model.
func (t *Tracker) Record(model string, input, output int, latency time.Duration) {
	t.RecordUsage(model, Usage{InputTokens: input, OutputTokens: output, Requests: 1, Latency: latency})
}

// RecordError adds one failed request for model.
func (t *Tracker) RecordError(model string, latency time.Duration) {
	t.RecordUsage(model, Usage{Requests: 1, Errors: 1, Latency: latency})
}

// RecordUsage adds a usage record for the given model.
func (t *Tracker) RecordUsage(model string, usage Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := t.totals[model]
	u.Add(usage)
	t.totals[model] = u
}

// Usage returns the usage for a specific model.
func (t *Tracker) Usage(model string) Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totals[model]
}

// Summary returns a copy of all usage totals.
func (t *Tracker) Summary() map[string]Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.totals)
}

// Models returns the tracked model names, sorted.
func (t *Tracker) Models() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.totals))
}

// TotalUsage returns aggregated usage across all models.
func (t *Tracker) TotalUsage() Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total Usage
	for _, u := range t.totals {
		total.Add(u)
	}
	return total
}

// Reset clears all tracked usage.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totals = make(map[string]Usage)
}

// WriteSummary prints one line per model and a total line when more than
// one model was used. Nothing is written when no request was recorded.
func (t *Tracker) WriteSummary(w io.Writer) error {
	models := t.Models()
	if len(models) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Token usage:"); err != nil {
		return err
	}
	for _, m := range models {
		if err := writeLine(w, m, t.Usage(m)); err != nil {
			return err
		}
	}
	if len(models) > 1 {
		return writeLine(w, "total", t.TotalUsage())
	}
	return nil
}

func writeLine(w io.Writer, name string, u Usage) error {
	_, err := fmt.Fprintf(w, "  %s: %d requests (%d failed), %d input + %d output = %d tokens, avg %.2fms\n",
		name, u.Requests, u.Errors, u.InputTokens, u.OutputTokens, u.TotalTokens(),
		float64(u.AverageLatency().Microseconds())/1000)
	return err
}
