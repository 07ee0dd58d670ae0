package anthropic

import (
	"encoding/json"
	"log"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/unicall/unicall"
	"github.com/unicall/unicall/llm"
)

func wrapResponse(raw Response) unicall.ResponseView {
	return responseView{msg: raw}
}

// responseView projects a completed Messages API response onto the neutral
// response surface.
type responseView struct {
	msg *anthropic.Message
}

func (v responseView) ID() string {
	if v.msg == nil {
		return ""
	}
	return v.msg.ID
}

func (v responseView) Model() string {
	if v.msg == nil {
		return ""
	}
	return string(v.msg.Model)
}

func (v responseView) Content() string {
	if v.msg == nil {
		return ""
	}
	var out string
	for _, block := range v.msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			out += text.Text
		}
	}
	return out
}

func (v responseView) FinishReason() string {
	if v.msg == nil {
		return ""
	}
	return string(v.msg.StopReason)
}

func (v responseView) Usage() (llm.Usage, bool) {
	if v.msg == nil {
		return llm.Usage{}, false
	}
	return llm.Usage{
		InputTokens:  v.msg.Usage.InputTokens,
		OutputTokens: v.msg.Usage.OutputTokens,
	}, true
}

func (v responseView) ToolCallParts() []llm.ToolCall {
	if v.msg == nil {
		return nil
	}
	var calls []llm.ToolCall
	for _, block := range v.msg.Content {
		use, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok {
			continue
		}
		args, err := json.Marshal(use.Input)
		if err != nil {
			log.Printf("[ERROR] Failed to marshal tool input for %s: %v", use.Name, err)
			args = nil
		}
		calls = append(calls, llm.ToolCall{ID: use.ID, Name: use.Name, Arguments: args})
	}
	return calls
}

func wrapChunk(raw Chunk) unicall.ChunkView {
	return chunkView{event: raw}
}

// chunkView projects one Messages API stream event onto the neutral chunk
// surface. A single event carries at most one of content, tool-call delta,
// finish reason, or usage.
type chunkView struct {
	event anthropic.MessageStreamEventUnion
}

func (v chunkView) Content() string {
	delta, ok := v.event.AsAny().(anthropic.ContentBlockDeltaEvent)
	if !ok {
		return ""
	}
	if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok {
		return text.Text
	}
	return ""
}

func (v chunkView) ToolCallDelta() (unicall.ToolCallDelta, bool) {
	switch event := v.event.AsAny().(type) {
	case anthropic.ContentBlockStartEvent:
		if use, ok := event.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
			return unicall.ToolCallDelta{
				Index: int(event.Index),
				ID:    use.ID,
				Name:  use.Name,
			}, true
		}
	case anthropic.ContentBlockDeltaEvent:
		if partial, ok := event.Delta.AsAny().(anthropic.InputJSONDelta); ok {
			return unicall.ToolCallDelta{
				Index:     int(event.Index),
				Arguments: partial.PartialJSON,
			}, true
		}
	case anthropic.ContentBlockStopEvent:
		// Stop events do not say what kind of block ended; the
		// coordinator ignores the marker for non-tool indexes.
		return unicall.ToolCallDelta{
			Index: int(event.Index),
			Done:  true,
		}, true
	}
	return unicall.ToolCallDelta{}, false
}

func (v chunkView) FinishReason() (string, bool) {
	if delta, ok := v.event.AsAny().(anthropic.MessageDeltaEvent); ok && delta.Delta.StopReason != "" {
		return string(delta.Delta.StopReason), true
	}
	return "", false
}

func (v chunkView) Usage() (llm.Usage, bool) {
	switch event := v.event.AsAny().(type) {
	case anthropic.MessageStartEvent:
		return llm.Usage{
			InputTokens:  event.Message.Usage.InputTokens,
			OutputTokens: event.Message.Usage.OutputTokens,
		}, true
	case anthropic.MessageDeltaEvent:
		return llm.Usage{OutputTokens: event.Usage.OutputTokens}, true
	}
	return llm.Usage{}, false
}

func (v chunkView) Model() string {
	if start, ok := v.event.AsAny().(anthropic.MessageStartEvent); ok {
		return string(start.Message.Model)
	}
	return ""
}
