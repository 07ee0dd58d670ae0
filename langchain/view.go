package langchain

import (
	"encoding/json"

	"github.com/tmc/langchaingo/llms"

	"github.com/unicall/unicall"
	"github.com/unicall/unicall/llm"
)

func wrapResponse(raw Response) unicall.ResponseView {
	return responseView{resp: raw}
}

// responseView projects a langchaingo content response. The abstraction
// carries no response ID or model echo, so those report empty and the
// pipeline falls back to the requested model.
type responseView struct {
	resp *llms.ContentResponse
}

func (v responseView) ID() string { return "" }

func (v responseView) Model() string { return "" }

func (v responseView) Content() string {
	if v.resp == nil || len(v.resp.Choices) == 0 {
		return ""
	}
	return v.resp.Choices[0].Content
}

func (v responseView) FinishReason() string {
	if v.resp == nil || len(v.resp.Choices) == 0 {
		return ""
	}
	return v.resp.Choices[0].StopReason
}

func (v responseView) Usage() (llm.Usage, bool) {
	if v.resp == nil || len(v.resp.Choices) == 0 {
		return llm.Usage{}, false
	}
	return usageFromInfo(v.resp.Choices[0].GenerationInfo)
}

func (v responseView) ToolCallParts() []llm.ToolCall {
	if v.resp == nil || len(v.resp.Choices) == 0 {
		return nil
	}
	var calls []llm.ToolCall
	for _, tc := range v.resp.Choices[0].ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		calls = append(calls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: json.RawMessage(tc.FunctionCall.Arguments),
		})
	}
	return calls
}

// usageFromInfo digs token counts out of GenerationInfo. Backends disagree on
// key names; both the OpenAI-style and Anthropic-style spellings are checked.
func usageFromInfo(info map[string]any) (llm.Usage, bool) {
	if info == nil {
		return llm.Usage{}, false
	}
	input, inOK := intFromInfo(info, "PromptTokens", "prompt_tokens", "input_tokens")
	output, outOK := intFromInfo(info, "CompletionTokens", "completion_tokens", "output_tokens")
	if !inOK && !outOK {
		return llm.Usage{}, false
	}
	return llm.Usage{InputTokens: input, OutputTokens: output}, true
}

func intFromInfo(info map[string]any, keys ...string) (int64, bool) {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return int64(v), true
		case int64:
			return v, true
		case float64:
			return int64(v), true
		}
	}
	return 0, false
}

func wrapChunk(raw Chunk) unicall.ChunkView {
	return chunkView{chunk: raw}
}

type chunkView struct {
	chunk Chunk
}

func (v chunkView) Content() string { return v.chunk.Text }

func (v chunkView) ToolCallDelta() (unicall.ToolCallDelta, bool) {
	if !v.chunk.HasToolCall {
		return unicall.ToolCallDelta{}, false
	}
	// Trailer chunks carry complete calls, so each one is born done.
	return unicall.ToolCallDelta{
		Index:     v.chunk.ToolCallIndex,
		ID:        v.chunk.ToolCallID,
		Name:      v.chunk.ToolCallName,
		Arguments: v.chunk.ToolCallArgs,
		Done:      true,
	}, true
}

func (v chunkView) FinishReason() (string, bool) {
	if v.chunk.FinishReason == "" {
		return "", false
	}
	return v.chunk.FinishReason, true
}

func (v chunkView) Usage() (llm.Usage, bool) {
	if v.chunk.Usage == nil {
		return llm.Usage{}, false
	}
	return *v.chunk.Usage, true
}

func (v chunkView) Model() string { return "" }
