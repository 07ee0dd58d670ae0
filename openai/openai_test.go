package openai

import (
	"context"
	"encoding/json"
	"testing"

	sdk "github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicall/unicall"
	"github.com/unicall/unicall/llm"
	"github.com/unicall/unicall/tool"
)

func setupInputs(in unicall.SetupInputs) unicall.SetupInputs {
	if in.Model == "" {
		in.Model = "gpt-4o"
	}
	if in.Client == nil {
		in.Client = sdk.NewClient()
	}
	if in.Params == nil {
		in.Params = unicall.Params{}
	}
	return in
}

func bookTool(t *testing.T) *tool.Definition {
	t.Helper()
	def, err := tool.Schema[struct {
		Title string `json:"title"`
	}]("book", "A book")
	require.NoError(t, err)
	return def
}

func TestSetupKwargsMirrorRequest(t *testing.T) {
	exec, err := setup(context.Background(), setupInputs(unicall.SetupInputs{
		Messages: []llm.Message{llm.UserText("hi")},
		Params: unicall.Params{
			unicall.ParamMaxTokens:   128,
			unicall.ParamTemperature: 0.5,
			unicall.ParamStop:        []string{"END"},
		},
	}))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", exec.RequestKwargs["model"])
	assert.Equal(t, int64(128), exec.RequestKwargs["max_tokens"])
	assert.Equal(t, 0.5, exec.RequestKwargs["temperature"])
	assert.Equal(t, []string{"END"}, exec.RequestKwargs["stop"])
	assert.NotContains(t, exec.RequestKwargs, "tools")
	assert.NotContains(t, exec.RequestKwargs, "response_format")
}

func TestSetupExtractionForcesTool(t *testing.T) {
	def := bookTool(t)

	exec, err := setup(context.Background(), setupInputs(unicall.SetupInputs{
		Messages: []llm.Message{llm.UserText("go")},
		Tools:    []*tool.Definition{def},
		Extract:  true,
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"book"}, exec.RequestKwargs["tools"])
	assert.Equal(t, "book", exec.RequestKwargs["tool_choice"])
}

func TestSetupJSONModeDropsToolsAndSetsFormat(t *testing.T) {
	def := bookTool(t)

	exec, err := setup(context.Background(), setupInputs(unicall.SetupInputs{
		Messages: []llm.Message{llm.UserText("describe a book")},
		Tools:    []*tool.Definition{def},
		JSONMode: true,
	}))
	require.NoError(t, err)

	assert.NotContains(t, exec.RequestKwargs, "tools")
	assert.Equal(t, "json_object", exec.RequestKwargs["response_format"])
	assert.Contains(t, exec.Prompt, `"title"`)
}

func TestResolveClientRejectsWrongType(t *testing.T) {
	_, err := resolveClient("not a client")
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
		llm.ToolResults(
			llm.ToolResult{ToolCallID: "call_1", Content: "found it"},
			llm.ToolResult{ToolCallID: "call_2", Content: "also this"},
		),
	})
	require.NoError(t, err)

	// system, user, assistant, then one tool message per result
	require.Len(t, converted, 5)
	assert.NotNil(t, converted[0].OfSystem)
	assert.NotNil(t, converted[1].OfUser)

	require.NotNil(t, converted[2].OfAssistant)
	calls := converted[2].OfAssistant.ToolCalls
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].OfFunction)
	assert.Equal(t, "call_1", calls[0].OfFunction.ID)
	assert.Equal(t, "book", calls[0].OfFunction.Function.Name)

	require.NotNil(t, converted[3].OfTool)
	assert.Equal(t, "call_1", converted[3].OfTool.ToolCallID)
	require.NotNil(t, converted[4].OfTool)
	assert.Equal(t, "call_2", converted[4].OfTool.ToolCallID)
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

	params, err := convertMessages(original)
	require.NoError(t, err)
	back, err := MessagesFromParams(params)
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
	assert.JSONEq(t, `{"title":"Dune"}`, string(calls[0].Arguments))

	require.NotNil(t, back[3].Parts[0].ToolResult)
	assert.Equal(t, "found it", back[3].Parts[0].ToolResult.Content)

	require.Len(t, back[4].Parts, 2)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e}, back[4].Parts[1].ImageData)
	assert.Equal(t, "image/jpeg", back[4].Parts[1].MediaType)
}

func TestMessageFromParamRejectsRemoteImage(t *testing.T) {
	_, err := MessageFromParam(sdk.UserMessage([]sdk.ChatCompletionContentPartUnionParam{
		sdk.ImageContentPart(sdk.ChatCompletionContentPartImageImageURLParam{URL: "https://example.com/cover.png"}),
	}))
	assert.Error(t, err)
}

func TestResponseView(t *testing.T) {
	fixture := `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"model": "gpt-4o-2024-08-06",
		"choices": [{
			"index": 0,
			"finish_reason": "tool_calls",
			"message": {
				"role": "assistant",
				"content": "on it",
				"tool_calls": [{
					"id": "call_1",
					"type": "function",
					"function": {"name": "book", "arguments": "{\"title\":\"Dune\"}"}
				}]
			}
		}],
		"usage": {"prompt_tokens": 9, "completion_tokens": 4, "total_tokens": 13}
	}`
	var resp sdk.ChatCompletion
	require.NoError(t, json.Unmarshal([]byte(fixture), &resp))

	view := wrapResponse(&resp)
	assert.Equal(t, "chatcmpl-1", view.ID())
	assert.Equal(t, "gpt-4o-2024-08-06", view.Model())
	assert.Equal(t, "on it", view.Content())
	assert.Equal(t, "tool_calls", view.FinishReason())

	usage, ok := view.Usage()
	require.True(t, ok)
	assert.Equal(t, int64(9), usage.InputTokens)
	assert.Equal(t, int64(4), usage.OutputTokens)

	calls := view.ToolCallParts()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "book", calls[0].Name)
	assert.JSONEq(t, `{"title":"Dune"}`, string(calls[0].Arguments))
}

func chunkFixture(t *testing.T, fixture string) Chunk {
	t.Helper()
	var chunk sdk.ChatCompletionChunk
	require.NoError(t, json.Unmarshal([]byte(fixture), &chunk))
	return chunk
}

func TestChunkView(t *testing.T) {
	t.Run("content delta", func(t *testing.T) {
		view := wrapChunk(chunkFixture(t, `{
			"id": "chatcmpl-1",
			"object": "chat.completion.chunk",
			"model": "gpt-4o-2024-08-06",
			"choices": [{"index": 0, "delta": {"content": "Hel"}}]
		}`))
		assert.Equal(t, "Hel", view.Content())
		assert.Equal(t, "gpt-4o-2024-08-06", view.Model())
		_, ok := view.ToolCallDelta()
		assert.False(t, ok)
		_, ok = view.FinishReason()
		assert.False(t, ok)
	})

	t.Run("tool call fragment", func(t *testing.T) {
		view := wrapChunk(chunkFixture(t, `{
			"id": "chatcmpl-1",
			"object": "chat.completion.chunk",
			"choices": [{"index": 0, "delta": {"tool_calls": [{
				"index": 0,
				"id": "call_1",
				"function": {"name": "book", "arguments": "{\"tit"}
			}]}}]
		}`))
		delta, ok := view.ToolCallDelta()
		require.True(t, ok)
		assert.Equal(t, 0, delta.Index)
		assert.Equal(t, "call_1", delta.ID)
		assert.Equal(t, "book", delta.Name)
		assert.Equal(t, `{"tit`, delta.Arguments)
		// No explicit completion marker in this protocol.
		assert.False(t, delta.Done)
	})

	t.Run("finish reason", func(t *testing.T) {
		view := wrapChunk(chunkFixture(t, `{
			"id": "chatcmpl-1",
			"object": "chat.completion.chunk",
			"choices": [{"index": 0, "delta": {}, "finish_reason": "stop"}]
		}`))
		finish, ok := view.FinishReason()
		require.True(t, ok)
		assert.Equal(t, "stop", finish)
	})

	t.Run("terminal usage chunk", func(t *testing.T) {
		view := wrapChunk(chunkFixture(t, `{
			"id": "chatcmpl-1",
			"object": "chat.completion.chunk",
			"choices": [],
			"usage": {"prompt_tokens": 20, "completion_tokens": 11, "total_tokens": 31}
		}`))
		usage, ok := view.Usage()
		require.True(t, ok)
		assert.Equal(t, int64(20), usage.InputTokens)
		assert.Equal(t, int64(11), usage.OutputTokens)
	})
}
