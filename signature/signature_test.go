package signature

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want *Signature
	}{
		{
			name: "untyped",
			spec: "context, question -> response",
			want: &Signature{
				Inputs: []Field{
					{Name: "context", Kind: Input, Type: String, Prefix: "Context"},
					{Name: "question", Kind: Input, Type: String, Prefix: "Question"},
				},
				Outputs: []Field{
					{Name: "response", Kind: Output, Type: String, Prefix: "Response"},
				},
			},
		},
		{
			name: "typed",
			spec: "minutes: int -> seconds: int, ok: bool",
			want: &Signature{
				Inputs: []Field{
					{Name: "minutes", Kind: Input, Type: Int, Prefix: "Minutes"},
				},
				Outputs: []Field{
					{Name: "seconds", Kind: Output, Type: Int, Prefix: "Seconds"},
					{Name: "ok", Kind: Output, Type: Bool, Prefix: "Ok"},
				},
			},
		},
		{
			name: "bracketed type",
			spec: "text -> tags: list[str], score: float",
			want: &Signature{
				Inputs: []Field{
					{Name: "text", Kind: Input, Type: String, Prefix: "Text"},
				},
				Outputs: []Field{
					{Name: "tags", Kind: Output, Type: List, Prefix: "Tags"},
					{Name: "score", Kind: Output, Type: Float, Prefix: "Score"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.spec)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		spec string
		want error
	}{
		{spec: "question answer", want: ErrSyntax},
		{spec: "a -> b -> c", want: ErrSyntax},
		{spec: "-> answer", want: ErrNoInputs},
		{spec: "question ->", want: ErrNoOutputs},
		{spec: "question -> question", want: ErrDuplicateField},
		{spec: "question -> answer: complex", want: ErrUnknownType},
		{spec: "2fast -> answer", want: ErrInvalidName},
		{spec: "a, -> b", want: ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, err := Parse(tt.spec)
			assert.True(t, errors.Is(err, tt.want), "Parse(%q) error = %v, want %v", tt.spec, err, tt.want)
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	s := &Signature{}
	err := s.Validate()
	assert.ErrorIs(t, err, ErrNoInputs)
	assert.ErrorIs(t, err, ErrNoOutputs)
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("nope") })
	assert.NotPanics(t, func() { MustParse("question -> answer") })
	assert.Panics(t, func() { MustNew("Empty", "", nil, nil) })
}

func TestSignature_String(t *testing.T) {
	for _, spec := range []string{
		"context, question -> response",
		"question -> answer: float",
		"minutes: int -> seconds: int",
		"text -> tags: list[str], meta: json",
	} {
		assert.Equal(t, spec, MustParse(spec).String())
	}
}

func TestSignature_PrependAppendAreCopies(t *testing.T) {
	base := MustParse("question -> answer")

	cot := base.Prepend(OutputField("reasoning", String, "step by step"))
	assert.Equal(t, []string{"reasoning", "answer"}, cot.OutputNames())
	assert.Equal(t, []string{"answer"}, base.OutputNames())

	withCtx := base.Append(InputField("context", String, ""))
	assert.Equal(t, []string{"question", "context"}, withCtx.InputNames())
	assert.Equal(t, []string{"question"}, base.InputNames())

	f, ok := withCtx.Field("context")
	require.True(t, ok)
	assert.Equal(t, "Context", f.Prefix)

	_, ok = base.Field("context")
	assert.False(t, ok)
}

func TestSignature_WithOutputs(t *testing.T) {
	base := MustParse("question -> answer")
	s := base.WithOutputs(Field{Name: "rationale"}, Field{Name: "answer", Type: Int})

	require.Len(t, s.Outputs, 2)
	assert.Equal(t, Output, s.Outputs[0].Kind)
	assert.Equal(t, "Rationale", s.Outputs[0].Prefix)
	assert.Equal(t, Int, s.Outputs[1].Type)
	assert.Equal(t, "answer", base.Outputs[0].Name)
}

func TestInstructions(t *testing.T) {
	s := MustParse("context, question -> response")
	assert.Equal(t, "Given the fields `context`, `question`, produce the fields `response`.", s.InstructionsOrDefault())

	s = s.WithInstructions("Answer from the context.")
	assert.Equal(t, "Answer from the context.", s.InstructionsOrDefault())
}

func TestParseType(t *testing.T) {
	tests := map[string]FieldType{
		"":             String,
		"str":          String,
		"String":       String,
		"int":          Int,
		"float":        Float,
		"bool":         Bool,
		"list":         List,
		"list[string]": List,
		"dict":         JSON,
		"json":         JSON,
	}
	for name, want := range tests {
		got, err := ParseType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestLabelAndSnakeCase(t *testing.T) {
	tests := []struct {
		in, label, snake string
	}{
		{"next_thought", "Next Thought", "next_thought"},
		{"PageSize", "Page Size", "page_size"},
		{"HTTPStatus", "HTTP Status", "http_status"},
		{"reasoning_attempt_1", "Reasoning Attempt 1", "reasoning_attempt_1"},
		{"IntervalMinutes", "Interval Minutes", "interval_minutes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.label, Label(tt.in), "Label(%q)", tt.in)
		assert.Equal(t, tt.snake, SnakeCase(tt.in), "SnakeCase(%q)", tt.in)
	}
}
