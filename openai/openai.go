// Package openai plugs the OpenAI chat completions API into the unicall
// pipeline via the official Go SDK. It also serves any OpenAI-compatible
// endpoint when the caller supplies a client built with a custom base URL.
package openai

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"

	"github.com/unicall/unicall"
)

// Raw type aliases for callers that want to name the factory's type
// parameters.
type (
	Response = *openai.ChatCompletion
	Chunk    = openai.ChatCompletionChunk
)

var defaultClient = sync.OnceValues(func() (*openai.Client, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}
	log.Printf("[INFO] Constructing default OpenAI client from environment")
	client := openai.NewClient()
	return &client, nil
})

// Provider returns the OpenAI plug-in.
func Provider() unicall.Provider[Response, Chunk] {
	return unicall.Provider[Response, Chunk]{
		Name:         "openai",
		Setup:        setup,
		WrapResponse: wrapResponse,
		WrapChunk:    wrapChunk,
	}
}

// Factory returns a ready-to-use call factory for OpenAI.
func Factory() (*unicall.Factory[Response, Chunk], error) {
	return unicall.NewFactory(Provider())
}

func resolveClient(override any) (*openai.Client, error) {
	if override == nil {
		return defaultClient()
	}
	switch c := override.(type) {
	case *openai.Client:
		return c, nil
	case openai.Client:
		return &c, nil
	default:
		return nil, &unicall.ConfigurationError{
			Reason: fmt.Sprintf("openai client override has unsupported type %T", override),
		}
	}
}

func setup(ctx context.Context, in unicall.SetupInputs) (*unicall.Execution[Response, Chunk], error) {
	client, err := resolveClient(in.Client)
	if err != nil {
		return nil, err
	}

	messages := in.Messages
	tools := in.Tools
	if in.JSONMode {
		// JSON mode and tool calling are mutually exclusive. The
		// response-format switch alone does not tell the model what
		// shape to produce, so the schema is injected into the final
		// user turn and the tool list dropped.
		messages = unicall.WithJSONInstruction(messages, tools)
		tools = nil
	}

	openaiMessages, err := convertMessages(messages)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(in.Model),
		Messages: openaiMessages,
	}

	kwargs := map[string]any{"model": in.Model}

	if maxTokens, ok := in.Params.Int64(unicall.ParamMaxTokens); ok {
		params.MaxTokens = openai.Int(maxTokens)
		kwargs["max_tokens"] = maxTokens
	}
	if temp, ok := in.Params.Float64(unicall.ParamTemperature); ok {
		params.Temperature = openai.Float(temp)
		kwargs["temperature"] = temp
	}
	if topP, ok := in.Params.Float64(unicall.ParamTopP); ok {
		params.TopP = openai.Float(topP)
		kwargs["top_p"] = topP
	}
	if stop, ok := in.Params[unicall.ParamStop].([]string); ok {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: stop}
		kwargs["stop"] = stop
	}

	if in.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
		kwargs["response_format"] = "json_object"
	}

	if len(tools) > 0 {
		specs, err := convertTools(tools)
		if err != nil {
			return nil, err
		}
		params.Tools = specs
		kwargs["tools"] = toolNames(tools)

		if in.Extract {
			if len(tools) == 1 {
				params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
					OfFunctionToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
						Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
							Name: tools[0].Name,
						},
					},
				}
				kwargs["tool_choice"] = tools[0].Name
			} else {
				params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
					OfAuto: openai.String("required"),
				}
				kwargs["tool_choice"] = "required"
			}
		}
	}

	return &unicall.Execution[Response, Chunk]{
		Prompt:        lastUserText(messages),
		Messages:      messages,
		Tools:         in.Tools,
		RequestKwargs: kwargs,
		Do: func(ctx context.Context) (Response, error) {
			return client.Chat.Completions.New(ctx, params)
		},
		Stream: func(ctx context.Context) (unicall.ChunkSource[Chunk], error) {
			streamParams := params
			// Without this the API omits token counts from the
			// stream entirely.
			streamParams.StreamOptions = openai.ChatCompletionStreamOptionsParam{
				IncludeUsage: openai.Bool(true),
			}
			return client.Chat.Completions.NewStreaming(ctx, streamParams), nil
		},
	}, nil
}
