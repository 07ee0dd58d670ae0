// Package anthropic plugs the Anthropic Messages API into the unicall
// pipeline via the official Go SDK.
package anthropic

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/unicall/unicall"
)

// defaultMaxTokens applies when the caller sets no token limit; the Messages
// API requires one.
const defaultMaxTokens = 4096

// Raw type aliases for callers that want to name the factory's type
// parameters.
type (
	Response = *anthropic.Message
	Chunk    = anthropic.MessageStreamEventUnion
)

// defaultClient is constructed lazily from environment credentials, once per
// process, and shared by every call that supplies no explicit client.
var defaultClient = sync.OnceValues(func() (*anthropic.Client, error) {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is required")
	}
	log.Printf("[INFO] Constructing default Anthropic client from environment")
	client := anthropic.NewClient()
	return &client, nil
})

// Provider returns the Anthropic plug-in.
func Provider() unicall.Provider[Response, Chunk] {
	return unicall.Provider[Response, Chunk]{
		Name: "anthropic",
		DefaultParams: unicall.Params{
			unicall.ParamMaxTokens: defaultMaxTokens,
		},
		Setup:        setup,
		WrapResponse: wrapResponse,
		WrapChunk:    wrapChunk,
	}
}

// Factory returns a ready-to-use call factory for Anthropic.
func Factory() (*unicall.Factory[Response, Chunk], error) {
	return unicall.NewFactory(Provider())
}

func resolveClient(override any) (*anthropic.Client, error) {
	if override == nil {
		return defaultClient()
	}
	switch c := override.(type) {
	case *anthropic.Client:
		return c, nil
	case anthropic.Client:
		return &c, nil
	default:
		return nil, &unicall.ConfigurationError{
			Reason: fmt.Sprintf("anthropic client override has unsupported type %T", override),
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
		// JSON mode and tool calling are mutually exclusive: the
		// schema is moved into the final user turn and the tool list
		// dropped from the request.
		messages = unicall.WithJSONInstruction(messages, tools)
		tools = nil
	}

	system, anthropicMessages, err := convertMessages(messages)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:    anthropic.Model(in.Model),
		Messages: anthropicMessages,
	}
	if len(system) > 0 {
		params.System = system
	}

	kwargs := map[string]any{"model": in.Model}

	maxTokens, ok := in.Params.Int64(unicall.ParamMaxTokens)
	if !ok {
		maxTokens = defaultMaxTokens
	}
	params.MaxTokens = maxTokens
	kwargs["max_tokens"] = maxTokens

	if temp, ok := in.Params.Float64(unicall.ParamTemperature); ok {
		params.Temperature = anthropic.Float(temp)
		kwargs["temperature"] = temp
	}
	if topP, ok := in.Params.Float64(unicall.ParamTopP); ok {
		params.TopP = anthropic.Float(topP)
		kwargs["top_p"] = topP
	}
	if stop, ok := in.Params[unicall.ParamStop].([]string); ok {
		params.StopSequences = stop
		kwargs["stop_sequences"] = stop
	}

	if len(tools) > 0 {
		specs, err := convertTools(tools)
		if err != nil {
			return nil, err
		}
		params.Tools = specs
		kwargs["tools"] = toolNames(tools)

		if in.Extract {
			// Force the model to call the extraction tool. With a
			// single tool we name it outright; otherwise any tool
			// call satisfies the request.
			if len(tools) == 1 {
				params.ToolChoice = anthropic.ToolChoiceUnionParam{
					OfTool: &anthropic.ToolChoiceToolParam{Name: tools[0].Name},
				}
				kwargs["tool_choice"] = tools[0].Name
			} else {
				params.ToolChoice = anthropic.ToolChoiceUnionParam{
					OfAny: &anthropic.ToolChoiceAnyParam{},
				}
				kwargs["tool_choice"] = "any"
			}
		}
	}

	return &unicall.Execution[Response, Chunk]{
		Prompt:        lastUserText(messages),
		Messages:      messages,
		Tools:         in.Tools,
		RequestKwargs: kwargs,
		Do: func(ctx context.Context) (Response, error) {
			return client.Messages.New(ctx, params)
		},
		Stream: func(ctx context.Context) (unicall.ChunkSource[Chunk], error) {
			return client.Messages.NewStreaming(ctx, params), nil
		},
	}, nil
}
