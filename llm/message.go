// Package llm defines the provider-neutral conversation model shared by all
// provider plug-ins: messages, content parts, tool-call payloads, and token
// usage. Provider packages convert these types to and from their native wire
// formats.
package llm

import "encoding/json"

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartKind tags the variant held by a Part.
type PartKind string

const (
	PartText       PartKind = "text"
	PartImage      PartKind = "image"
	PartToolCall   PartKind = "tool_call"
	PartToolResult PartKind = "tool_result"
)

// Part is one unit of message content. Exactly one variant is populated,
// selected by Kind.
type Part struct {
	Kind PartKind `json:"kind"`

	Text string `json:"text,omitempty"`

	ImageData []byte `json:"image_data,omitempty"`
	MediaType string `json:"media_type,omitempty"`

	ToolCall *ToolCall `json:"tool_call,omitempty"`

	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// ToolCall is a provider's request, embedded in an assistant message, that
// the caller invoke a named function with the given JSON arguments.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult answers a prior ToolCall with the same ID.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Message is a single conversational turn. Messages are immutable once
// constructed; callers build conversations by appending new messages.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// Text returns the concatenation of all text parts.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Kind == PartText {
			out += p.Text
		}
	}
	return out
}

// ToolCalls returns the tool-call parts in order.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, p := range m.Parts {
		if p.Kind == PartToolCall && p.ToolCall != nil {
			calls = append(calls, *p.ToolCall)
		}
	}
	return calls
}

// TextPart constructs a text content part.
func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

// ImagePart constructs an image content part from raw bytes and a media type
// such as "image/png".
func ImagePart(data []byte, mediaType string) Part {
	return Part{Kind: PartImage, ImageData: data, MediaType: mediaType}
}

// ToolCallPart constructs a tool-call content part.
func ToolCallPart(id, name string, arguments json.RawMessage) Part {
	return Part{Kind: PartToolCall, ToolCall: &ToolCall{ID: id, Name: name, Arguments: arguments}}
}

// ToolResultPart constructs a tool-result content part.
func ToolResultPart(toolCallID, content string) Part {
	return Part{Kind: PartToolResult, ToolResult: &ToolResult{ToolCallID: toolCallID, Content: content}}
}

// System constructs a system message with a single text part.
func System(text string) Message {
	return Message{Role: RoleSystem, Parts: []Part{TextPart(text)}}
}

// User constructs a user message.
func User(parts ...Part) Message {
	return Message{Role: RoleUser, Parts: parts}
}

// UserText constructs a user message with a single text part.
func UserText(text string) Message {
	return User(TextPart(text))
}

// Assistant constructs an assistant message.
func Assistant(parts ...Part) Message {
	return Message{Role: RoleAssistant, Parts: parts}
}

// ToolResults constructs a tool-role message answering prior tool calls from
// the immediately preceding assistant message.
func ToolResults(results ...ToolResult) Message {
	parts := make([]Part, len(results))
	for i, r := range results {
		r := r
		parts[i] = Part{Kind: PartToolResult, ToolResult: &r}
	}
	return Message{Role: RoleTool, Parts: parts}
}

// Usage counts tokens consumed by a call. Providers that report usage
// incrementally send partial values; Add merges them.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Add merges another usage report into u, keeping the larger of each counter.
// Streaming providers repeat input token counts on later chunks.
func (u Usage) Add(other Usage) Usage {
	if other.InputTokens > u.InputTokens {
		u.InputTokens = other.InputTokens
	}
	if other.OutputTokens > u.OutputTokens {
		u.OutputTokens = other.OutputTokens
	}
	return u
}

// Total returns input plus output tokens.
func (u Usage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}
