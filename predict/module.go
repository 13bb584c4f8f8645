package predict

import (
	"context"
	"maps"
)

// Inputs maps input field names to values.
type Inputs map[string]any

// Module is anything that turns inputs into a prediction.
type Module interface {
	Forward(ctx context.Context, in Inputs) (*Prediction, error)
}

// ModuleFunc adapts a function to Module.
type ModuleFunc func(ctx context.Context, in Inputs) (*Prediction, error)

// Forward implements Module.
func (f ModuleFunc) Forward(ctx context.Context, in Inputs) (*Prediction, error) {
	return f(ctx, in)
}

// Chain runs modules in order. Each step receives the original inputs plus
// every output produced so far; the result carries all outputs and the
// summed usage.
func Chain(modules ...Module) Module {
	return ModuleFunc(func(ctx context.Context, in Inputs) (*Prediction, error) {
		acc := maps.Clone(in)
		if acc == nil {
			acc = Inputs{}
		}
		result := NewPrediction()
		for _, m := range modules {
			pred, err := m.Forward(ctx, acc)
			if err != nil {
				return nil, err
			}
			for _, name := range pred.Fields() {
				v, _ := pred.Get(name)
				acc[name] = v
				result.Set(name, v)
			}
			result.Usage.Add(pred.Usage)
			result.Raw = pred.Raw
			result.Trajectory = append(result.Trajectory, pred.Trajectory...)
		}
		return result, nil
	})
}
