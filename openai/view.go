package openai

import (
	"encoding/json"

	"github.com/openai/openai-go/v3"

	"github.com/unicall/unicall"
	"github.com/unicall/unicall/llm"
)

func wrapResponse(raw Response) unicall.ResponseView {
	return responseView{resp: raw}
}

type responseView struct {
	resp *openai.ChatCompletion
}

func (v responseView) ID() string {
	if v.resp == nil {
		return ""
	}
	return v.resp.ID
}

func (v responseView) Model() string {
	if v.resp == nil {
		return ""
	}
	return v.resp.Model
}

func (v responseView) Content() string {
	if v.resp == nil || len(v.resp.Choices) == 0 {
		return ""
	}
	return v.resp.Choices[0].Message.Content
}

func (v responseView) FinishReason() string {
	if v.resp == nil || len(v.resp.Choices) == 0 {
		return ""
	}
	return v.resp.Choices[0].FinishReason
}

func (v responseView) Usage() (llm.Usage, bool) {
	if v.resp == nil || v.resp.Usage.TotalTokens == 0 {
		return llm.Usage{}, false
	}
	return llm.Usage{
		InputTokens:  v.resp.Usage.PromptTokens,
		OutputTokens: v.resp.Usage.CompletionTokens,
	}, true
}

func (v responseView) ToolCallParts() []llm.ToolCall {
	if v.resp == nil || len(v.resp.Choices) == 0 {
		return nil
	}
	var calls []llm.ToolCall
	for _, tc := range v.resp.Choices[0].Message.ToolCalls {
		calls = append(calls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return calls
}

func wrapChunk(raw Chunk) unicall.ChunkView {
	return chunkView{chunk: raw}
}

// chunkView projects one SSE chunk onto the neutral chunk surface. The API
// sends no explicit end-of-tool-call marker; the stream coordinator closes a
// call when a new index opens or the stream ends. Usage arrives only on the
// final chunk, and only because setup requests it via stream options.
type chunkView struct {
	chunk openai.ChatCompletionChunk
}

func (v chunkView) Content() string {
	if len(v.chunk.Choices) == 0 {
		return ""
	}
	return v.chunk.Choices[0].Delta.Content
}

func (v chunkView) ToolCallDelta() (unicall.ToolCallDelta, bool) {
	if len(v.chunk.Choices) == 0 || len(v.chunk.Choices[0].Delta.ToolCalls) == 0 {
		return unicall.ToolCallDelta{}, false
	}
	tc := v.chunk.Choices[0].Delta.ToolCalls[0]
	return unicall.ToolCallDelta{
		Index:     int(tc.Index),
		ID:        tc.ID,
		Name:      tc.Function.Name,
		Arguments: tc.Function.Arguments,
	}, true
}

func (v chunkView) FinishReason() (string, bool) {
	if len(v.chunk.Choices) == 0 || v.chunk.Choices[0].FinishReason == "" {
		return "", false
	}
	return v.chunk.Choices[0].FinishReason, true
}

func (v chunkView) Usage() (llm.Usage, bool) {
	if v.chunk.Usage.TotalTokens == 0 {
		return llm.Usage{}, false
	}
	return llm.Usage{
		InputTokens:  v.chunk.Usage.PromptTokens,
		OutputTokens: v.chunk.Usage.CompletionTokens,
	}, true
}

func (v chunkView) Model() string {
	return v.chunk.Model
}
