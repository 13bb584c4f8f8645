package predict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/sigkit/adapter"
	"github.com/randalmurphal/sigkit/provider"
	"github.com/randalmurphal/sigkit/signature"
	"github.com/randalmurphal/sigkit/truncate"
)

// Predict makes one model call for a signature.
type Predict struct {
	sig      *signature.Signature
	settings settings
}

// New creates a Predict module for sig.
func New(sig *signature.Signature, opts ...Option) *Predict {
	return &Predict{sig: sig, settings: newSettings(opts)}
}

// Signature returns the signature the module calls the model with.
func (p *Predict) Signature() *signature.Signature {
	return p.sig
}

// Forward implements Module.
func (p *Predict) Forward(ctx context.Context, in Inputs) (*Prediction, error) {
	return p.forward(ctx, in, p.settings.resolve())
}

// forward runs one call with already-resolved settings.
func (p *Predict) forward(ctx context.Context, in Inputs, s settings) (*Prediction, error) {
	if err := checkInputs(p.sig, in); err != nil {
		return nil, err
	}
	if s.lm == nil {
		return nil, ErrNoLM
	}

	var usage provider.TokenUsage
	out, raw, err := p.call(ctx, in, s, s.adapter, &usage)
	if err != nil && errors.Is(err, adapter.ErrParse) && s.fallback != nil && s.fallback.Name() != s.adapter.Name() {
		s.logger.Warn("completion did not parse, retrying with fallback adapter",
			slog.String("signature", p.name()),
			slog.String("adapter", s.adapter.Name()),
			slog.String("fallback", s.fallback.Name()),
			slog.Any("error", err))
		out, raw, err = p.call(ctx, in, s, s.fallback, &usage)
	}
	if err != nil {
		return nil, err
	}

	pred := NewPrediction()
	for _, f := range p.sig.Outputs {
		pred.Set(f.Name, out[f.Name])
	}
	pred.Usage = usage
	pred.Raw = raw
	return pred, nil
}

// call formats, completes and parses once with adapter a.
func (p *Predict) call(ctx context.Context, in Inputs, s settings, a adapter.Adapter, usage *provider.TokenUsage) (map[string]any, string, error) {
	req, err := a.Format(p.sig, in)
	if err != nil {
		return nil, "", fmt.Errorf("%s: format: %w", p.name(), err)
	}
	if s.temperature != nil {
		req.Temperature = s.temperature
	}
	if s.maxTokens > 0 {
		req.MaxTokens = s.maxTokens
	}

	start := time.Now()
	resp, err := s.lm.Complete(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", p.name(), err)
	}
	usage.Add(resp.Usage)

	out, err := a.Parse(p.sig, resp.Content)
	s.logger.Debug("predict",
		slog.String("signature", p.name()),
		slog.String("adapter", a.Name()),
		slog.Duration("duration", time.Since(start)),
		slog.Int("output_tokens", resp.Usage.OutputTokens),
		slog.Bool("parsed", err == nil),
		slog.String("completion", truncate.ToLength(resp.Content, 300)))
	if err != nil {
		return nil, resp.Content, fmt.Errorf("%s: %w", p.name(), err)
	}
	return out, resp.Content, nil
}

func (p *Predict) name() string {
	if p.sig.Name != "" {
		return p.sig.Name
	}
	return p.sig.String()
}

// checkInputs reports every input field of sig missing from in.
func checkInputs(sig *signature.Signature, in Inputs) error {
	var missing []error
	for _, f := range sig.Inputs {
		if _, ok := in[f.Name]; !ok {
			missing = append(missing, fmt.Errorf("%w: %s", ErrMissingInput, f.Name))
		}
	}
	return errors.Join(missing...)
}
