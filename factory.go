package unicall

import (
	"context"

	"github.com/unicall/unicall/llm"
	"github.com/unicall/unicall/tool"
)

// Config declares one call site: the model, its tools, and the execution
// mode. It is the Go analogue of the decorator options the original design
// exposes; Bind validates it once, before any network I/O.
type Config[R any] struct {
	// Model is the provider model identifier. Required.
	Model string

	// Tools are the definitions offered to the provider. Names must be
	// unique within the list.
	Tools []*tool.Definition

	// JSONMode forces the provider to emit JSON. Mutually exclusive with
	// tool calling: tools are silently dropped from the request.
	JSONMode bool

	// Params are call parameters layered over the provider defaults.
	Params Params

	// Client optionally overrides the provider's default client.
	Client any

	// Stream declares the streaming execution mode.
	Stream bool

	// OutputParser post-processes the completed response; its return
	// value becomes the call's result. On the extraction path it runs
	// after the instance passes schema validation, and its value is
	// retrievable from Response.Parsed. Mutually exclusive with Stream.
	OutputParser func(*Response[R]) (any, error)
}

// Factory is the generic orchestrator instantiated once per provider. All
// provider differences live in the Provider plug-ins, never here.
type Factory[R, C any] struct {
	p Provider[R, C]
}

// NewFactory validates the plug-in struct and returns the provider's
// factory.
func NewFactory[R, C any](p Provider[R, C]) (*Factory[R, C], error) {
	if p.Name == "" {
		return nil, &ConfigurationError{Reason: "provider name is required"}
	}
	if p.Setup == nil {
		return nil, &ConfigurationError{Reason: "provider setup function is required"}
	}
	if p.WrapResponse == nil || p.WrapChunk == nil {
		return nil, &ConfigurationError{Reason: "provider response and chunk projections are required"}
	}
	return &Factory[R, C]{p: p}, nil
}

// Provider returns the provider's name.
func (f *Factory[R, C]) Provider() string { return f.p.Name }

// Bind resolves the call's execution mode and validates option exclusions.
// The returned Call is reusable and safe for concurrent use: each invocation
// is independent, with no shared mutable state.
func (f *Factory[R, C]) Bind(cfg Config[R]) (*Call[R, C], error) {
	if cfg.Model == "" {
		return nil, &ConfigurationError{Reason: "model is required"}
	}
	if cfg.Stream && cfg.OutputParser != nil {
		return nil, &ConfigurationError{Reason: "streaming and output parsers are mutually exclusive"}
	}
	seen := make(map[string]bool, len(cfg.Tools))
	for _, d := range cfg.Tools {
		if seen[d.Name] {
			return nil, &ConfigurationError{Reason: "duplicate tool name " + d.Name}
		}
		seen[d.Name] = true
	}
	return &Call[R, C]{f: f, cfg: cfg}, nil
}

// Call is a bound, validated call site.
type Call[R, C any] struct {
	f   *Factory[R, C]
	cfg Config[R]
}

func (c *Call[R, C]) setup(ctx context.Context, messages []llm.Message, extract bool, tools []*tool.Definition) (*Execution[R, C], error) {
	in := SetupInputs{
		Model:    c.cfg.Model,
		Messages: messages,
		Tools:    tools,
		JSONMode: c.cfg.JSONMode,
		Extract:  extract,
		Params:   mergedParams(c.f.p.DefaultParams, c.cfg.Params),
		Client:   c.cfg.Client,
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return c.f.p.Setup(ctx, in)
}

// Do executes the call synchronously and wraps the completed response.
func (c *Call[R, C]) Do(ctx context.Context, messages []llm.Message) (*Response[R], error) {
	if c.cfg.Stream {
		return nil, &ConfigurationError{Reason: "call is bound for streaming; use Stream"}
	}
	exec, err := c.setup(ctx, messages, false, c.cfg.Tools)
	if err != nil {
		return nil, err
	}
	raw, err := exec.Do(ctx)
	if err != nil {
		return nil, err
	}
	return buildResponse(raw, c.f.p, exec, c.cfg.Model), nil
}

// DoParsed executes the call and passes the response through the configured
// output parser; the parser's return value is the call's result.
func (c *Call[R, C]) DoParsed(ctx context.Context, messages []llm.Message) (any, *Response[R], error) {
	if c.cfg.OutputParser == nil {
		return nil, nil, &ConfigurationError{Reason: "no output parser configured"}
	}
	resp, err := c.Do(ctx, messages)
	if err != nil {
		return nil, nil, err
	}
	parsed, err := c.cfg.OutputParser(resp)
	if err != nil {
		return nil, resp, err
	}
	resp.parsed, resp.hasParsed = parsed, true
	return parsed, resp, nil
}

// Stream executes the call in streaming mode. The caller drives iteration;
// abandoning it early only requires Close.
func (c *Call[R, C]) Stream(ctx context.Context, messages []llm.Message) (*Stream[C], error) {
	if !c.cfg.Stream {
		return nil, &ConfigurationError{Reason: "call is not bound for streaming; set Config.Stream"}
	}
	exec, err := c.setup(ctx, messages, false, c.cfg.Tools)
	if err != nil {
		return nil, err
	}
	src, err := exec.Stream(ctx)
	if err != nil {
		return nil, err
	}
	return newStream(src, c.f.p, exec, c.cfg.Model), nil
}
