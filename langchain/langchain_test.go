package langchain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/unicall/unicall"
	"github.com/unicall/unicall/llm"
	"github.com/unicall/unicall/tool"
)

// fakeModel scripts GenerateContent: it streams the given text fragments
// through the callback, then returns the response.
type fakeModel struct {
	fragments []string
	response  *llms.ContentResponse
	err       error

	lastOpts llms.CallOptions
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	m.lastOpts = opts

	if m.err != nil {
		return nil, m.err
	}
	if opts.StreamingFunc != nil {
		for _, frag := range m.fragments {
			if err := opts.StreamingFunc(ctx, []byte(frag)); err != nil {
				return nil, err
			}
		}
	}
	return m.response, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not used")
}

func setupWith(t *testing.T, model llms.Model, in unicall.SetupInputs) *unicall.Execution[Response, Chunk] {
	t.Helper()
	if in.Model == "" {
		in.Model = "mistral-large-latest"
	}
	if in.Params == nil {
		in.Params = unicall.Params{}
	}
	in.Client = model
	exec, err := setup(context.Background(), in)
	require.NoError(t, err)
	return exec
}

func TestSetupTranslatesOptions(t *testing.T) {
	model := &fakeModel{response: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "hi"}}}}
	exec := setupWith(t, model, unicall.SetupInputs{
		Messages: []llm.Message{llm.UserText("hello")},
		Params: unicall.Params{
			unicall.ParamMaxTokens:   100,
			unicall.ParamTemperature: 0.4,
		},
	})

	_, err := exec.Do(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "mistral-large-latest", model.lastOpts.Model)
	assert.Equal(t, 100, model.lastOpts.MaxTokens)
	assert.Equal(t, 0.4, model.lastOpts.Temperature)
	assert.Equal(t, "mistral-large-latest", exec.RequestKwargs["model"])
}

func TestResolveModelRejectsWrongType(t *testing.T) {
	_, err := resolveModel(42)
	var cfgErr *unicall.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestConvertMessages(t *testing.T) {
	converted, err := convertMessages([]llm.Message{
		llm.System("be terse"),
		llm.UserText("find me a book"),
		llm.Assistant(
			llm.TextPart("checking"),
			llm.ToolCallPart("call_1", "book", json.RawMessage(`{"title":"Dune"}`)),
		),
		llm.ToolResults(llm.ToolResult{ToolCallID: "call_1", Content: "found it"}),
	})
	require.NoError(t, err)
	require.Len(t, converted, 4)

	assert.Equal(t, llms.ChatMessageTypeSystem, converted[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, converted[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, converted[2].Role)
	assert.Equal(t, llms.ChatMessageTypeTool, converted[3].Role)

	require.Len(t, converted[2].Parts, 2)
	call, ok := converted[2].Parts[1].(llms.ToolCall)
	require.True(t, ok)
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "book", call.FunctionCall.Name)

	result, ok := converted[3].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "call_1", result.ToolCallID)
}

func TestMessageRoundTrip(t *testing.T) {
	original := []llm.Message{
		llm.System("be terse"),
		llm.UserText("find me a book"),
		llm.Assistant(
			llm.TextPart("checking"),
			llm.ToolCallPart("call_1", "book", json.RawMessage(`{"title":"Dune"}`)),
		),
		llm.ToolResults(llm.ToolResult{ToolCallID: "call_1", Content: "found it"}),
		llm.User(llm.TextPart("show the cover"), llm.ImagePart([]byte{0x89, 0x50, 0x4e}, "image/jpeg")),
	}

	converted, err := convertMessages(original)
	require.NoError(t, err)
	back, err := MessagesFromContents(converted)
	require.NoError(t, err)
	require.Len(t, back, len(original))

	for i := range original {
		assert.Equal(t, original[i].Role, back[i].Role, "message %d", i)
		assert.Equal(t, original[i].Text(), back[i].Text(), "message %d", i)
	}

	calls := back[2].ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "book", calls[0].Name)
	assert.Equal(t, `{"title":"Dune"}`, string(calls[0].Arguments))

	require.NotNil(t, back[3].Parts[0].ToolResult)
	assert.Equal(t, "found it", back[3].Parts[0].ToolResult.Content)

	require.Len(t, back[4].Parts, 2)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e}, back[4].Parts[1].ImageData)
	assert.Equal(t, "image/jpeg", back[4].Parts[1].MediaType)
}

func TestMessageFromContentRejectsUnknownParts(t *testing.T) {
	_, err := MessageFromContent(llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.ImageURLContent{URL: "https://example.com/cover.png"}},
	})
	assert.Error(t, err)
}

func TestConvertTools(t *testing.T) {
	def, err := tool.Schema[struct {
		Title string `json:"title"`
	}]("book", "A book")
	require.NoError(t, err)

	specs, err := convertTools([]*tool.Definition{def})
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "function", specs[0].Type)
	assert.Equal(t, "book", specs[0].Function.Name)
	params, ok := specs[0].Function.Parameters.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", params["type"])
}

func TestChunkSourceStreamsTextThenTrailer(t *testing.T) {
	model := &fakeModel{
		fragments: []string{"Hel", "lo"},
		response: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
			Content:    "Hello",
			StopReason: "stop",
			GenerationInfo: map[string]any{
				"PromptTokens":     8,
				"CompletionTokens": 2,
			},
		}}},
	}
	exec := setupWith(t, model, unicall.SetupInputs{
		Messages: []llm.Message{llm.UserText("hi")},
	})

	src, err := exec.Stream(context.Background())
	require.NoError(t, err)
	defer src.Close()

	var chunks []Chunk
	for src.Next() {
		chunks = append(chunks, src.Current())
	}
	require.NoError(t, src.Err())

	// two text chunks plus the trailer
	require.Len(t, chunks, 3)
	assert.Equal(t, "Hel", chunks[0].Text)
	assert.Equal(t, "lo", chunks[1].Text)
	assert.Equal(t, "stop", chunks[2].FinishReason)
	require.NotNil(t, chunks[2].Usage)
	assert.Equal(t, int64(8), chunks[2].Usage.InputTokens)

	// Exhausted source stays exhausted.
	assert.False(t, src.Next())
}

func TestChunkSourceReplaysToolCalls(t *testing.T) {
	model := &fakeModel{
		response: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
			StopReason: "tool_calls",
			ToolCalls: []llms.ToolCall{{
				ID:           "call_1",
				FunctionCall: &llms.FunctionCall{Name: "book", Arguments: `{"title":"Dune"}`},
			}},
		}}},
	}
	exec := setupWith(t, model, unicall.SetupInputs{
		Messages: []llm.Message{llm.UserText("hi")},
	})

	src, err := exec.Stream(context.Background())
	require.NoError(t, err)
	defer src.Close()

	var toolChunks []Chunk
	for src.Next() {
		if src.Current().HasToolCall {
			toolChunks = append(toolChunks, src.Current())
		}
	}
	require.NoError(t, src.Err())
	require.Len(t, toolChunks, 1)

	view := wrapChunk(toolChunks[0])
	delta, ok := view.ToolCallDelta()
	require.True(t, ok)
	assert.Equal(t, "call_1", delta.ID)
	assert.Equal(t, "book", delta.Name)
	assert.Equal(t, `{"title":"Dune"}`, delta.Arguments)
	assert.True(t, delta.Done)
}

func TestChunkSourcePropagatesErrors(t *testing.T) {
	boom := errors.New("backend down")
	model := &fakeModel{err: boom}
	exec := setupWith(t, model, unicall.SetupInputs{
		Messages: []llm.Message{llm.UserText("hi")},
	})

	src, err := exec.Stream(context.Background())
	require.NoError(t, err)
	defer src.Close()

	for src.Next() {
	}
	assert.ErrorIs(t, src.Err(), boom)
}

func TestResponseView(t *testing.T) {
	resp := &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:    "done",
		StopReason: "stop",
		GenerationInfo: map[string]any{
			"input_tokens":  float64(12),
			"output_tokens": float64(3),
		},
		ToolCalls: []llms.ToolCall{{
			ID:           "call_1",
			FunctionCall: &llms.FunctionCall{Name: "book", Arguments: `{"title":"Dune"}`},
		}},
	}}}

	view := wrapResponse(resp)
	assert.Equal(t, "done", view.Content())
	assert.Equal(t, "stop", view.FinishReason())
	assert.Empty(t, view.Model())

	usage, ok := view.Usage()
	require.True(t, ok)
	assert.Equal(t, int64(12), usage.InputTokens)
	assert.Equal(t, int64(3), usage.OutputTokens)

	calls := view.ToolCallParts()
	require.Len(t, calls, 1)
	assert.Equal(t, "book", calls[0].Name)
}
