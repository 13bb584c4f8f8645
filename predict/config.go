package predict

import (
	"log/slog"
	"sync"

	"github.com/randalmurphal/sigkit/adapter"
	"github.com/randalmurphal/sigkit/provider"
)

// settings holds the knobs shared by all modules. Zero values mean
// "inherit": a module's settings are layered over the global ones.
type settings struct {
	lm          provider.Client
	adapter     adapter.Adapter
	fallback    adapter.Adapter
	noFallback  bool
	temperature *float64
	maxTokens   int
	maxIters    int
	logger      *slog.Logger

	// moduleTemperature applies when neither the module nor Configure set one.
	moduleTemperature *float64
}

// Option configures a module, or the process defaults via Configure.
type Option func(*settings)

// WithLM sets the model client.
func WithLM(lm provider.Client) Option {
	return func(s *settings) { s.lm = lm }
}

// WithAdapter sets the primary adapter. Default: ChatAdapter.
func WithAdapter(a adapter.Adapter) Option {
	return func(s *settings) { s.adapter = a }
}

// WithFallbackAdapter sets the adapter retried once when the primary
// adapter cannot parse a completion. Default: JSONAdapter. Passing nil
// disables the retry.
func WithFallbackAdapter(a adapter.Adapter) Option {
	return func(s *settings) {
		s.fallback = a
		s.noFallback = a == nil
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(s *settings) { s.temperature = &t }
}

// withModuleTemperature sets a module's own default temperature, below
// both WithTemperature and Configure.
func withModuleTemperature(t float64) Option {
	return func(s *settings) { s.moduleTemperature = &t }
}

// WithMaxTokens limits completion length.
func WithMaxTokens(n int) Option {
	return func(s *settings) { s.maxTokens = n }
}

// WithMaxIters bounds the tool steps a ReAct agent takes. Default: 5.
// Ignored by other modules.
func WithMaxIters(n int) Option {
	return func(s *settings) { s.maxIters = n }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

var (
	globalMu sync.RWMutex
	global   settings
)

// Configure sets the process-wide model and defaults. It is safe to call
// concurrently with running modules; calls already in flight keep the
// settings they started with.
func Configure(lm provider.Client, opts ...Option) {
	s := settings{lm: lm}
	for _, opt := range opts {
		opt(&s)
	}

	globalMu.Lock()
	global = s
	globalMu.Unlock()
}

// DefaultLM returns the model set by Configure, or nil.
func DefaultLM() provider.Client {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global.lm
}

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// resolve layers s over the global settings and fills defaults.
func (s settings) resolve() settings {
	globalMu.RLock()
	g := global
	globalMu.RUnlock()

	if s.lm == nil {
		s.lm = g.lm
	}
	if s.adapter == nil {
		s.adapter = g.adapter
	}
	if s.adapter == nil {
		s.adapter = adapter.NewChatAdapter()
	}
	if !s.noFallback && s.fallback == nil {
		if g.noFallback {
			s.noFallback = true
		} else {
			s.fallback = g.fallback
		}
	}
	if !s.noFallback && s.fallback == nil {
		s.fallback = adapter.NewJSONAdapter()
	}
	if s.temperature == nil {
		s.temperature = g.temperature
	}
	if s.temperature == nil {
		s.temperature = s.moduleTemperature
	}
	if s.maxTokens == 0 {
		s.maxTokens = g.maxTokens
	}
	if s.maxIters <= 0 {
		s.maxIters = g.maxIters
	}
	if s.maxIters <= 0 {
		s.maxIters = DefaultMaxIters
	}
	if s.logger == nil {
		s.logger = g.logger
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}
