// Package langchain plugs any langchaingo llms.Model into the unicall
// pipeline. It is the catch-all route for backends without a dedicated
// provider package: the caller passes a constructed model (Mistral, Groq,
// Azure, Ollama, or any OpenAI-compatible endpoint) as the client.
package langchain

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/unicall/unicall"
)

// Response is the raw type for completed langchaingo calls.
type Response = *llms.ContentResponse

// defaultModel falls back to langchaingo's OpenAI backend, configured from
// the environment, when the caller supplies no model.
var defaultModel = sync.OnceValues(func() (llms.Model, error) {
	log.Printf("[INFO] Constructing default langchaingo OpenAI model from environment")
	return lcopenai.New()
})

// Provider returns the langchaingo plug-in.
func Provider() unicall.Provider[Response, Chunk] {
	return unicall.Provider[Response, Chunk]{
		Name:         "langchain",
		Setup:        setup,
		WrapResponse: wrapResponse,
		WrapChunk:    wrapChunk,
	}
}

// Factory returns a ready-to-use call factory backed by langchaingo.
func Factory() (*unicall.Factory[Response, Chunk], error) {
	return unicall.NewFactory(Provider())
}

func resolveModel(override any) (llms.Model, error) {
	if override == nil {
		return defaultModel()
	}
	model, ok := override.(llms.Model)
	if !ok {
		return nil, &unicall.ConfigurationError{
			Reason: fmt.Sprintf("langchain client override has unsupported type %T, want llms.Model", override),
		}
	}
	return model, nil
}

func setup(ctx context.Context, in unicall.SetupInputs) (*unicall.Execution[Response, Chunk], error) {
	model, err := resolveModel(in.Client)
	if err != nil {
		return nil, err
	}

	messages := in.Messages
	tools := in.Tools
	if in.JSONMode {
		messages = unicall.WithJSONInstruction(messages, tools)
		tools = nil
	}

	content, err := convertMessages(messages)
	if err != nil {
		return nil, err
	}

	var opts []llms.CallOption
	kwargs := map[string]any{"model": in.Model}
	opts = append(opts, llms.WithModel(in.Model))

	if maxTokens, ok := in.Params.Int64(unicall.ParamMaxTokens); ok {
		opts = append(opts, llms.WithMaxTokens(int(maxTokens)))
		kwargs["max_tokens"] = maxTokens
	}
	if temp, ok := in.Params.Float64(unicall.ParamTemperature); ok {
		opts = append(opts, llms.WithTemperature(temp))
		kwargs["temperature"] = temp
	}
	if topP, ok := in.Params.Float64(unicall.ParamTopP); ok {
		opts = append(opts, llms.WithTopP(topP))
		kwargs["top_p"] = topP
	}
	if stop, ok := in.Params[unicall.ParamStop].([]string); ok {
		opts = append(opts, llms.WithStopWords(stop))
		kwargs["stop"] = stop
	}

	if in.JSONMode {
		opts = append(opts, llms.WithJSONMode())
		kwargs["response_format"] = "json_object"
	}

	if len(tools) > 0 {
		specs, err := convertTools(tools)
		if err != nil {
			return nil, err
		}
		opts = append(opts, llms.WithTools(specs))
		kwargs["tools"] = toolNames(tools)

		if in.Extract {
			// "required" forces a tool call; with the single
			// extraction tool active that pins the tool as well.
			opts = append(opts, llms.WithToolChoice("required"))
			kwargs["tool_choice"] = "required"
		}
	}

	return &unicall.Execution[Response, Chunk]{
		Prompt:        lastUserText(messages),
		Messages:      messages,
		Tools:         in.Tools,
		RequestKwargs: kwargs,
		Do: func(ctx context.Context) (Response, error) {
			return model.GenerateContent(ctx, content, opts...)
		},
		Stream: func(ctx context.Context) (unicall.ChunkSource[Chunk], error) {
			return newChunkSource(ctx, model, content, opts), nil
		},
	}, nil
}
