package predict

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/sigkit/signature"
	"github.com/randalmurphal/sigkit/tool"
)

func stepCompletion(thought, name, args string) string {
	return "[[ ## next_thought ## ]]\n" + thought +
		"\n\n[[ ## next_tool_name ## ]]\n" + name +
		"\n\n[[ ## next_tool_args ## ]]\n" + args +
		"\n\n[[ ## completed ## ]]"
}

func letterCounter() *signature.Signature {
	return signature.MustNew("LetterCounter", "Count occurrences of a letter in a word.",
		[]signature.Field{
			signature.InputField("word", signature.String, "the word to search in"),
			signature.InputField("letter", signature.String, "single letter to count"),
		},
		[]signature.Field{
			signature.OutputField("answer", signature.Int, "number of occurrences of the letter in the word"),
		})
}

func TestReAct_ToolThenExtract(t *testing.T) {
	lm := newFakeLM(
		stepCompletion("I should count the letters.", "count_letter", `{"word": "strawberry", "letter": "r"}`),
		"[[ ## reasoning ## ]]\nThe tool returned 3.\n\n[[ ## answer ## ]]\n3\n\n[[ ## completed ## ]]",
	)
	agent, err := NewReAct(letterCounter(), []*tool.Tool{tool.CountLetterTool()}, WithLM(lm), WithMaxIters(1))
	require.NoError(t, err)

	pred, err := agent.Forward(context.Background(), Inputs{"word": "strawberry", "letter": "r"})
	require.NoError(t, err)

	n, err := pred.Int("answer")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Len(t, pred.Trajectory, 1)
	step := pred.Trajectory[0]
	assert.Equal(t, "count_letter", step.ToolName)
	assert.Equal(t, "3", step.Observation)
	assert.JSONEq(t, `{"word": "strawberry", "letter": "r"}`, string(step.ToolArgs))

	require.Equal(t, 2, lm.calls())
	sys := lm.request(0).SystemPrompt
	assert.Contains(t, sys, "You are an Agent.")
	assert.Contains(t, sys, "(1) count_letter. Counts occurrences of a letter in a word.")
	assert.Contains(t, sys, "(2) finish. Marks the task as complete.")
	assert.Contains(t, lm.userText(1), "observation_0: 3", "extraction sees the trajectory")
	assert.Equal(t, 30, pred.Usage.TotalTokens)
}

func TestReAct_Finish(t *testing.T) {
	lm := newFakeLM(
		stepCompletion("Easy.", "`Finish`", "{}"),
		"[[ ## reasoning ## ]]\nr\n\n[[ ## seconds ## ]]\n3600\n\n[[ ## completed ## ]]",
	)
	agent := MustNewReAct(signature.MustParse("minutes: int -> seconds: int"),
		[]*tool.Tool{tool.MinutesToSecondsTool()}, WithLM(lm))

	pred, err := agent.Forward(context.Background(), Inputs{"minutes": 60})
	require.NoError(t, err)
	require.Len(t, pred.Trajectory, 1)
	assert.Equal(t, FinishTool, pred.Trajectory[0].ToolName)
	assert.Equal(t, "Completed.", pred.Trajectory[0].Observation)
	assert.Equal(t, 2, lm.calls())
}

func TestReAct_MaxIters(t *testing.T) {
	lm := newFakeLM(
		stepCompletion("one", "minutes_to_seconds", `{"minutes": 1}`),
		stepCompletion("two", "minutes_to_seconds", `{"minutes": 2}`),
		"[[ ## reasoning ## ]]\nr\n\n[[ ## seconds ## ]]\n120\n\n[[ ## completed ## ]]",
	)
	agent := MustNewReAct(signature.MustParse("minutes: int -> seconds: int"),
		[]*tool.Tool{tool.MinutesToSecondsTool()}, WithLM(lm), WithMaxIters(2))

	pred, err := agent.Forward(context.Background(), Inputs{"minutes": 2})
	require.NoError(t, err)
	require.Len(t, pred.Trajectory, 2)
	assert.Equal(t, "60", pred.Trajectory[0].Observation)
	assert.Equal(t, "120", pred.Trajectory[1].Observation)
	assert.Equal(t, 3, lm.calls(), "two steps and one extraction")
	assert.Contains(t, lm.userText(1), "thought_0: one")
}

func TestReAct_ToolErrorsBecomeObservations(t *testing.T) {
	lm := newFakeLM(
		stepCompletion("Try bad args.", "evaluate_math", `{"expression": "rm -rf /"}`),
		stepCompletion("Try a missing tool.", "search", `{}`),
		stepCompletion("Done.", "finish", `{}`),
		"[[ ## reasoning ## ]]\nr\n\n[[ ## answer ## ]]\n0\n\n[[ ## completed ## ]]",
	)
	agent := MustNewReAct(signature.MustParse("question -> answer: int"),
		[]*tool.Tool{tool.EvaluateMathTool(nil)}, WithLM(lm))

	pred, err := agent.Forward(context.Background(), Inputs{"question": "q"})
	require.NoError(t, err)
	require.Len(t, pred.Trajectory, 3)
	assert.Contains(t, pred.Trajectory[0].Observation, "Execution error in evaluate_math:")
	assert.Contains(t, pred.Trajectory[1].Observation, "Execution error in search:")
}

func TestReAct_UnparsableStepEndsLoop(t *testing.T) {
	lm := newFakeLM(
		"I refuse to follow the format.",
		"still not json",
		"[[ ## reasoning ## ]]\nr\n\n[[ ## answer ## ]]\n7\n\n[[ ## completed ## ]]",
	)
	agent := MustNewReAct(signature.MustParse("question -> answer: int"), nil, WithLM(lm))

	pred, err := agent.Forward(context.Background(), Inputs{"question": "q"})
	require.NoError(t, err)
	assert.Empty(t, pred.Trajectory)
	assert.Equal(t, 3, lm.calls(), "chat, json fallback, extraction")
	assert.Contains(t, lm.userText(2), "(no steps yet)")
}

func TestReAct_MissingArgsDefaultToEmptyObject(t *testing.T) {
	lm := newFakeLM(
		"[[ ## next_thought ## ]]\nx\n\n[[ ## next_tool_name ## ]]\nfinish\n\n[[ ## next_tool_args ## ]]\nnull\n\n[[ ## completed ## ]]",
		"[[ ## reasoning ## ]]\nr\n\n[[ ## answer ## ]]\nok\n\n[[ ## completed ## ]]",
	)
	agent := MustNewReAct(signature.MustParse("question -> answer"), nil, WithLM(lm))

	pred, err := agent.Forward(context.Background(), Inputs{"question": "q"})
	require.NoError(t, err)
	require.Len(t, pred.Trajectory, 1)
	assert.True(t, json.Valid(pred.Trajectory[0].ToolArgs))
}

func TestNewReAct_Errors(t *testing.T) {
	sig := signature.MustParse("question -> answer")

	_, err := NewReAct(sig, []*tool.Tool{tool.CountLetterTool(), tool.CountLetterTool()})
	assert.ErrorIs(t, err, tool.ErrDuplicate)

	finish := tool.MustNew(FinishTool, "", func(context.Context, struct{}) (int, error) { return 0, nil })
	_, err = NewReAct(sig, []*tool.Tool{finish})
	assert.ErrorIs(t, err, tool.ErrDuplicate)

	assert.Panics(t, func() { MustNewReAct(sig, []*tool.Tool{finish}) })
}

func TestReAct_MissingInput(t *testing.T) {
	lm := newFakeLM("unused")
	agent := MustNewReAct(letterCounter(), nil, WithLM(lm))
	_, err := agent.Forward(context.Background(), Inputs{"word": "x"})
	assert.ErrorIs(t, err, ErrMissingInput)
	assert.Zero(t, lm.calls())
}

func TestFormatTrajectory(t *testing.T) {
	got := formatTrajectory([]Step{
		{Thought: "t0", ToolName: "a", ToolArgs: json.RawMessage(`{"x":1}`), Observation: "o0"},
		{Thought: "t1", ToolName: "finish", ToolArgs: json.RawMessage(`{}`), Observation: "Completed."},
	})
	want := "thought_0: t0\ntool_name_0: a\ntool_args_0: {\"x\":1}\nobservation_0: o0\n\n" +
		"thought_1: t1\ntool_name_1: finish\ntool_args_1: {}\nobservation_1: Completed."
	assert.Equal(t, want, got)
}

func TestNormalizeToolName(t *testing.T) {
	for in, want := range map[string]string{
		"count_letter":     "count_letter",
		" `count_letter` ": "count_letter",
		`"finish"`:         FinishTool,
		"FINISH":           FinishTool,
	} {
		assert.Equal(t, want, normalizeToolName(in), in)
	}
}
