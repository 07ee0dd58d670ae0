package unicall

import (
	"fmt"

	"github.com/unicall/unicall/llm"
	"github.com/unicall/unicall/tool"
)

// JSONModeInstruction renders the instruction a provider injects into the
// final user turn when JSON mode is requested and the provider has no native
// JSON response flag, or to steer the shape of the object when it does. When
// a schema tool is active its parameter schema is embedded so the model
// knows the exact shape to emit.
func JSONModeInstruction(tools []*tool.Definition) string {
	if len(tools) > 0 {
		return fmt.Sprintf(
			"\n\nExtract a valid JSON object instance from the content using the following schema:\n\n%s",
			string(tools[0].Parameters),
		)
	}
	return "\n\nRespond with a single valid JSON object and nothing else."
}

// WithJSONInstruction returns a copy of messages with the JSON-mode
// instruction appended to the last user turn. When the conversation has no
// user turn, a new one carrying only the instruction is appended.
func WithJSONInstruction(messages []llm.Message, tools []*tool.Definition) []llm.Message {
	instruction := JSONModeInstruction(tools)

	out := make([]llm.Message, len(messages))
	copy(out, messages)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role != llm.RoleUser {
			continue
		}
		parts := make([]llm.Part, len(out[i].Parts), len(out[i].Parts)+1)
		copy(parts, out[i].Parts)
		parts = append(parts, llm.TextPart(instruction))
		out[i] = llm.Message{Role: llm.RoleUser, Parts: parts}
		return out
	}
	return append(out, llm.UserText(instruction))
}
