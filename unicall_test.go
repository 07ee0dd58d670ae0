package unicall

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/unicall/unicall/llm"
	"github.com/unicall/unicall/tool"
)

// fakeResponse and fakeChunk stand in for a provider SDK's raw types.
type fakeResponse struct {
	ID           string
	Model        string
	Content      string
	FinishReason string
	Usage        *llm.Usage
	ToolCalls    []llm.ToolCall
}

type fakeChunk struct {
	Content      string
	Delta        *ToolCallDelta
	FinishReason string
	Usage        *llm.Usage
	Model        string
}

type fakeResponseView struct{ r fakeResponse }

func (v fakeResponseView) ID() string           { return v.r.ID }
func (v fakeResponseView) Model() string        { return v.r.Model }
func (v fakeResponseView) Content() string      { return v.r.Content }
func (v fakeResponseView) FinishReason() string { return v.r.FinishReason }
func (v fakeResponseView) Usage() (llm.Usage, bool) {
	if v.r.Usage == nil {
		return llm.Usage{}, false
	}
	return *v.r.Usage, true
}
func (v fakeResponseView) ToolCallParts() []llm.ToolCall { return v.r.ToolCalls }

type fakeChunkView struct{ c fakeChunk }

func (v fakeChunkView) Content() string { return v.c.Content }
func (v fakeChunkView) ToolCallDelta() (ToolCallDelta, bool) {
	if v.c.Delta == nil {
		return ToolCallDelta{}, false
	}
	return *v.c.Delta, true
}
func (v fakeChunkView) FinishReason() (string, bool) {
	return v.c.FinishReason, v.c.FinishReason != ""
}
func (v fakeChunkView) Usage() (llm.Usage, bool) {
	if v.c.Usage == nil {
		return llm.Usage{}, false
	}
	return *v.c.Usage, true
}
func (v fakeChunkView) Model() string { return v.c.Model }

// sliceSource replays a fixed chunk sequence.
type sliceSource struct {
	chunks []fakeChunk
	pos    int
	closed bool
	err    error
}

func (s *sliceSource) Next() bool {
	if s.err != nil || s.pos >= len(s.chunks) {
		return false
	}
	s.pos++
	return true
}
func (s *sliceSource) Current() fakeChunk { return s.chunks[s.pos-1] }
func (s *sliceSource) Err() error         { return s.err }
func (s *sliceSource) Close() error       { s.closed = true; return nil }

// fakeProviderState records what setup saw and scripts what execution
// returns.
type fakeProviderState struct {
	response fakeResponse
	chunks   []fakeChunk
	source   *sliceSource
	lastIn   SetupInputs
}

func newFakeFactory(state *fakeProviderState) *Factory[fakeResponse, fakeChunk] {
	p := Provider[fakeResponse, fakeChunk]{
		Name: "fake",
		Setup: func(ctx context.Context, in SetupInputs) (*Execution[fakeResponse, fakeChunk], error) {
			state.lastIn = in

			messages := in.Messages
			tools := in.Tools
			if in.JSONMode {
				messages = WithJSONInstruction(messages, tools)
				tools = nil
			}

			kwargs := map[string]any{"model": in.Model}
			if len(tools) > 0 {
				names := make([]string, len(tools))
				for i, d := range tools {
					names[i] = d.Name
				}
				kwargs["tools"] = names
			}

			var prompt string
			for i := len(messages) - 1; i >= 0; i-- {
				if messages[i].Role == llm.RoleUser {
					prompt = messages[i].Text()
					break
				}
			}

			return &Execution[fakeResponse, fakeChunk]{
				Prompt:        prompt,
				Messages:      messages,
				Tools:         in.Tools,
				RequestKwargs: kwargs,
				Do: func(ctx context.Context) (fakeResponse, error) {
					return state.response, nil
				},
				Stream: func(ctx context.Context) (ChunkSource[fakeChunk], error) {
					state.source = &sliceSource{chunks: state.chunks}
					return state.source, nil
				},
			}, nil
		},
		WrapResponse: func(raw fakeResponse) ResponseView { return fakeResponseView{r: raw} },
		WrapChunk:    func(raw fakeChunk) ChunkView { return fakeChunkView{c: raw} },
	}
	f, err := NewFactory(p)
	if err != nil {
		panic(err)
	}
	return f
}

func mustTool(name string, schema string, handler tool.Handler) *tool.Definition {
	def, err := tool.New(name, "", json.RawMessage(schema), handler)
	if err != nil {
		panic(err)
	}
	return def
}

var bookSchema = `{
	"type": "object",
	"properties": {
		"title": {"type": "string"},
		"author": {"type": "string"}
	},
	"required": ["title", "author"],
	"additionalProperties": false
}`

func echoHandler(ctx context.Context, args json.RawMessage) (string, error) {
	return strings.TrimSpace(string(args)), nil
}
