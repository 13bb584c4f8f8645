package predict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/randalmurphal/sigkit/adapter"
	"github.com/randalmurphal/sigkit/provider"
	"github.com/randalmurphal/sigkit/signature"
	"github.com/randalmurphal/sigkit/tool"
)

const (
	// FinishTool is the pseudo-tool an agent selects when it is done.
	FinishTool = "finish"

	// DefaultMaxIters is the default ReAct step limit.
	DefaultMaxIters = 5

	// TrajectoryField is the input carrying the agent's history.
	TrajectoryField = "trajectory"
)

// Step is one thought/action/observation round of a ReAct agent.
type Step struct {
	Thought     string          `json:"thought"`
	ToolName    string          `json:"tool_name"`
	ToolArgs    json.RawMessage `json:"tool_args"`
	Observation string          `json:"observation"`
}

// ReAct is a tool-using agent. Each step the model picks a tool and its
// arguments; the tool's result is appended to the trajectory. When the
// model picks finish, or the step limit is hit, a ChainOfThought over the
// trajectory produces the signature's outputs.
type ReAct struct {
	sig      *signature.Signature
	tools    *tool.Registry
	step     *Predict
	extract  *ChainOfThought
	settings settings
}

// NewReAct creates an agent for sig that may call tools.
func NewReAct(sig *signature.Signature, tools []*tool.Tool, opts ...Option) (*ReAct, error) {
	reg, err := tool.NewRegistry(tools...)
	if err != nil {
		return nil, err
	}
	if _, ok := reg.Get(FinishTool); ok {
		return nil, fmt.Errorf("%w: %s is reserved", tool.ErrDuplicate, FinishTool)
	}

	trajectory := signature.InputField(TrajectoryField, signature.String, "")
	stepSig, err := signature.New(sig.Name+"Step", reactInstructions(sig, reg),
		append(append([]signature.Field(nil), sig.Inputs...), trajectory),
		[]signature.Field{
			signature.OutputField("next_thought", signature.String, ""),
			signature.OutputField("next_tool_name", signature.String,
				"one of: "+strings.Join(append(reg.Names(), FinishTool), ", ")),
			signature.OutputField("next_tool_args", signature.JSON, "arguments for the tool, as a JSON object"),
		})
	if err != nil {
		return nil, err
	}

	s := newSettings(opts)
	return &ReAct{
		sig:      sig,
		tools:    reg,
		step:     New(stepSig, opts...),
		extract:  NewChainOfThought(sig.Append(trajectory), opts...),
		settings: s,
	}, nil
}

// MustNewReAct is like NewReAct but panics on error.
func MustNewReAct(sig *signature.Signature, tools []*tool.Tool, opts ...Option) *ReAct {
	r, err := NewReAct(sig, tools, opts...)
	if err != nil {
		panic(fmt.Sprintf("predict.MustNewReAct: %v", err))
	}
	return r
}

// Signature returns the agent's outer signature.
func (r *ReAct) Signature() *signature.Signature {
	return r.sig
}

func reactInstructions(sig *signature.Signature, reg *tool.Registry) string {
	inputs := quoted(sig.InputNames())
	outputs := quoted(sig.OutputNames())

	var b strings.Builder
	if strings.TrimSpace(sig.Instructions) != "" {
		b.WriteString(sig.Instructions + "\n\n")
	}
	fmt.Fprintf(&b, "You are an Agent. In each episode, you will be given the fields %s as input. And you can see your past trajectory so far.\n", inputs)
	fmt.Fprintf(&b, "Your goal is to use one or more of the supplied tools to collect any necessary information for producing %s.\n\n", outputs)
	b.WriteString("To do this, you will interleave next_thought, next_tool_name, and next_tool_args in each turn, and also when finishing the task.\n")
	b.WriteString("After each tool call, you receive a resulting observation, which gets appended to your trajectory.\n\n")
	b.WriteString("When writing next_thought, you may reason about the current situation and plan for future steps.\n")
	b.WriteString("When selecting the next_tool_name and its next_tool_args, the tool must be one of:\n\n")
	i := 1
	for _, t := range reg.Tools() {
		fmt.Fprintf(&b, "(%d) %s. %s. It takes arguments %s in JSON format.\n", i, t.Name, strings.TrimSuffix(t.Description, "."), t.Properties())
		i++
	}
	fmt.Fprintf(&b, "(%d) %s. Marks the task as complete. That is, signals that all information for producing the outputs, i.e. %s, are now available to be extracted. It takes arguments {} in JSON format.\n", i, FinishTool, outputs)
	b.WriteString("When providing `next_tool_args`, the value inside the field must be in JSON format")
	return b.String()
}

func quoted(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = "`" + n + "`"
	}
	return strings.Join(q, ", ")
}

// Forward implements Module. Tool failures and unknown tool names are fed
// back to the model as observations; a step the adapters cannot parse ends
// the loop early.
func (r *ReAct) Forward(ctx context.Context, in Inputs) (*Prediction, error) {
	if err := checkInputs(r.sig, in); err != nil {
		return nil, err
	}
	s := r.settings.resolve()

	var steps []Step
	var usage provider.TokenUsage
	for idx := 0; idx < s.maxIters; idx++ {
		stepIn := maps.Clone(in)
		stepIn[TrajectoryField] = formatTrajectory(steps)

		pred, err := r.step.forward(ctx, stepIn, s)
		if err != nil {
			if errors.Is(err, adapter.ErrParse) {
				s.logger.Warn("agent step did not parse, ending trajectory",
					slog.String("signature", r.step.name()),
					slog.Int("step", idx),
					slog.Any("error", err))
				break
			}
			return nil, err
		}
		usage.Add(pred.Usage)

		step := Step{
			Thought:  pred.String("next_thought"),
			ToolName: normalizeToolName(pred.String("next_tool_name")),
			ToolArgs: toolArgs(pred),
		}
		step.Observation = r.invoke(ctx, s, step)
		steps = append(steps, step)
		if step.ToolName == FinishTool {
			break
		}
	}

	extractIn := maps.Clone(in)
	extractIn[TrajectoryField] = formatTrajectory(steps)
	pred, err := r.extract.predict.forward(ctx, extractIn, s)
	if err != nil {
		return nil, err
	}
	pred.Usage.Add(usage)
	pred.Trajectory = steps
	return pred, nil
}

// invoke runs the step's tool and returns the observation.
func (r *ReAct) invoke(ctx context.Context, s settings, step Step) string {
	if step.ToolName == FinishTool {
		return "Completed."
	}
	t, ok := r.tools.Get(step.ToolName)
	if !ok {
		return fmt.Sprintf("Execution error in %s: %v", step.ToolName, tool.ErrNotFound)
	}
	s.logger.Debug("tool call",
		slog.String("tool", t.Name),
		slog.String("args", string(step.ToolArgs)))
	out, err := t.Call(ctx, step.ToolArgs)
	if err != nil {
		s.logger.Debug("tool failed", slog.String("tool", t.Name), slog.Any("error", err))
		return fmt.Sprintf("Execution error in %s: %v", t.Name, err)
	}
	return out
}

func normalizeToolName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, "`\"'")
	if strings.EqualFold(name, FinishTool) {
		return FinishTool
	}
	return name
}

func toolArgs(pred *Prediction) json.RawMessage {
	v, _ := pred.Get("next_tool_args")
	if raw, ok := v.(json.RawMessage); ok && len(raw) > 0 {
		return raw
	}
	return json.RawMessage(`{}`)
}

// formatTrajectory renders steps as numbered thought/tool/args/observation
// lines.
func formatTrajectory(steps []Step) string {
	if len(steps) == 0 {
		return "(no steps yet)"
	}
	var b strings.Builder
	for i, st := range steps {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "thought_%d: %s\n", i, st.Thought)
		fmt.Fprintf(&b, "tool_name_%d: %s\n", i, st.ToolName)
		fmt.Fprintf(&b, "tool_args_%d: %s\n", i, st.ToolArgs)
		fmt.Fprintf(&b, "observation_%d: %s", i, st.Observation)
	}
	return b.String()
}
