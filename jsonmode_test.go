package unicall

import (
	"strings"
	"testing"

	"github.com/unicall/unicall/llm"
	"github.com/unicall/unicall/tool"
)

func TestWithJSONInstructionAppendsToLastUserTurn(t *testing.T) {
	original := []llm.Message{
		llm.System("be terse"),
		llm.UserText("first question"),
		llm.Assistant(llm.TextPart("first answer")),
		llm.UserText("second question"),
	}

	out := WithJSONInstruction(original, nil)

	if len(out) != len(original) {
		t.Fatalf("message count changed: %d -> %d", len(original), len(out))
	}
	last := out[len(out)-1]
	if !strings.Contains(last.Text(), "second question") {
		t.Error("original user text should be preserved")
	}
	if !strings.Contains(last.Text(), "valid JSON object") {
		t.Errorf("instruction missing from last user turn: %q", last.Text())
	}

	// Earlier turns and the input slice stay untouched.
	if strings.Contains(out[1].Text(), "JSON") {
		t.Error("instruction must target only the last user turn")
	}
	if strings.Contains(original[3].Text(), "JSON") {
		t.Error("input messages must not be mutated")
	}
}

func TestWithJSONInstructionEmbedsSchema(t *testing.T) {
	def, err := tool.Schema[struct {
		Title string `json:"title"`
	}]("book", "")
	if err != nil {
		t.Fatalf("Schema() failed: %v", err)
	}

	out := WithJSONInstruction([]llm.Message{llm.UserText("go")}, []*tool.Definition{def})
	text := out[0].Text()
	if !strings.Contains(text, `"title"`) {
		t.Errorf("instruction should embed the schema, got %q", text)
	}
}

func TestWithJSONInstructionNoUserTurn(t *testing.T) {
	out := WithJSONInstruction([]llm.Message{llm.System("be terse")}, nil)
	if len(out) != 2 {
		t.Fatalf("expected an appended user turn, got %d messages", len(out))
	}
	if out[1].Role != llm.RoleUser {
		t.Errorf("appended turn has role %q", out[1].Role)
	}
}

func TestParamsAccessors(t *testing.T) {
	p := Params{
		ParamMaxTokens:   512,
		ParamTemperature: 0.7,
		"int64_value":    int64(9),
	}

	if v, ok := p.Int64(ParamMaxTokens); !ok || v != 512 {
		t.Errorf("Int64(max_tokens) = %d, %v", v, ok)
	}
	if v, ok := p.Float64(ParamTemperature); !ok || v != 0.7 {
		t.Errorf("Float64(temperature) = %v, %v", v, ok)
	}
	if v, ok := p.Float64(ParamMaxTokens); !ok || v != 512 {
		t.Errorf("Float64 should accept integer literals, got %v, %v", v, ok)
	}
	if v, ok := p.Int64("int64_value"); !ok || v != 9 {
		t.Errorf("Int64(int64_value) = %d, %v", v, ok)
	}
	if _, ok := p.Float64("absent"); ok {
		t.Error("absent key should report not-ok")
	}
}

func TestMergedParams(t *testing.T) {
	defaults := Params{ParamMaxTokens: 1024, ParamTemperature: 1.0}
	overrides := Params{ParamTemperature: 0.1}

	merged := mergedParams(defaults, overrides)
	if v, _ := merged.Float64(ParamTemperature); v != 0.1 {
		t.Errorf("override lost: temperature = %v", v)
	}
	if v, _ := merged.Int64(ParamMaxTokens); v != 1024 {
		t.Errorf("default lost: max_tokens = %v", v)
	}
	if v, _ := defaults.Float64(ParamTemperature); v != 1.0 {
		t.Error("defaults must not be mutated")
	}
}
