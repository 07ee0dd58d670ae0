// Package unicall unifies heterogeneous LLM provider APIs behind one generic
// call pipeline: a setup stage that builds the provider request, synchronous
// and streaming execution, an optional structured-extraction stage, and a
// uniform response surface exposing content, tool calls, usage, and cost.
//
// All provider differences are confined to a Provider plug-in value; the
// factory logic is generic and instantiated once per provider package.
package unicall

import (
	"context"

	"github.com/unicall/unicall/llm"
	"github.com/unicall/unicall/tool"
)

// Provider is the explicit plug-in struct a provider package supplies to
// NewFactory. R is the provider's raw response type and C its raw streaming
// chunk type.
type Provider[R, C any] struct {
	// Name identifies the provider, e.g. "anthropic".
	Name string

	// DefaultParams are the provider's default call parameters. Caller
	// params layer on top.
	DefaultParams Params

	// Setup builds the provider request from neutral inputs and returns
	// the execution handles. Implementations must honor SetupInputs
	// semantics: JSONMode drops tools from the request, Extract forces
	// must-call-a-tool mode, and a nil client falls back to an
	// environment-sourced default constructed lazily and cached.
	Setup func(ctx context.Context, in SetupInputs) (*Execution[R, C], error)

	// WrapResponse projects a completed raw response onto the neutral
	// response view.
	WrapResponse func(raw R) ResponseView

	// WrapChunk projects one raw streaming chunk onto the neutral chunk
	// view.
	WrapChunk func(raw C) ChunkView
}

// SetupInputs are the neutral inputs every provider's setup stage receives.
type SetupInputs struct {
	Model    string
	Messages []llm.Message
	Tools    []*tool.Definition
	JSONMode bool
	Extract  bool
	Params   Params

	// Client optionally overrides the provider's default client. The
	// provider type-asserts it; a mismatch is a ConfigurationError.
	Client any
}

// Validate enforces the option combinations shared by all providers.
func (in SetupInputs) Validate() error {
	if in.Model == "" {
		return &ConfigurationError{Reason: "model is required"}
	}
	if in.Extract && len(in.Tools) == 0 {
		return &ConfigurationError{Reason: "extraction requires at least one tool"}
	}
	return nil
}

// Execution is the setup stage's output: the request actually built, plus
// the handles that dispatch it.
type Execution[R, C any] struct {
	// Prompt is the rendered text of the request's final user turn, kept
	// for inspection and logging.
	Prompt string

	// Messages are the neutral messages the request was built from,
	// including any injected JSON-mode instructions.
	Messages []llm.Message

	// Tools are the definitions active for this call.
	Tools []*tool.Definition

	// RequestKwargs mirrors the provider request for inspection: model,
	// generation parameters, and tool-related keys appear here exactly
	// when they appear in the wire request.
	RequestKwargs map[string]any

	// Do dispatches the request synchronously.
	Do func(ctx context.Context) (R, error)

	// Stream dispatches the request in streaming mode. The returned
	// source is finite and not restartable.
	Stream func(ctx context.Context) (ChunkSource[C], error)
}

// ChunkSource is a pull-based sequence of raw provider chunks. It matches
// the iteration shape of the official SDKs' SSE streams, so providers can
// return those directly.
type ChunkSource[C any] interface {
	Next() bool
	Current() C
	Err() error
	Close() error
}

// ResponseView is a provider's read-only projection over one completed raw
// response. Every accessor is total: missing data maps to zero values.
type ResponseView interface {
	ID() string
	Model() string
	Content() string
	FinishReason() string
	Usage() (llm.Usage, bool)

	// ToolCallParts returns the raw tool-call payloads in the order the
	// provider returned them.
	ToolCallParts() []llm.ToolCall
}

// ChunkView is the streaming analogue of ResponseView; every field may be
// absent on any given chunk.
type ChunkView interface {
	Content() string
	ToolCallDelta() (ToolCallDelta, bool)
	FinishReason() (string, bool)
	Usage() (llm.Usage, bool)
	Model() string
}

// ToolCallDelta is one fragment of a streamed tool call. Providers fragment
// argument text across chunks keyed by call index; ID and Name are set on
// the fragment that opens the call. Done marks an explicit provider signal
// that the call's argument stream is complete.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
	Done      bool
}

func findTool(tools []*tool.Definition, name string) *tool.Definition {
	for _, d := range tools {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func toolNames(tools []*tool.Definition) []string {
	names := make([]string, len(tools))
	for i, d := range tools {
		names[i] = d.Name
	}
	return names
}
