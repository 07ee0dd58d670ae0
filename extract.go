package unicall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/unicall/unicall/llm"
	"github.com/unicall/unicall/tool"
)

// schemaToolFor derives the forced extraction tool from the response model
// type T. The provider is instructed to call exactly this tool.
func schemaToolFor[T any]() (*tool.Definition, error) {
	var v T
	name := strings.ToLower(reflect.TypeOf(&v).Elem().Name())
	if name == "" {
		name = "extract"
	}
	return tool.Schema[T](name, fmt.Sprintf("Extract a %s from the conversation.", name))
}

// decodeStrict constructs a T from a raw JSON document and validates it
// against the schema definition. Construction failures are
// SchemaValidationError; the raw document is retained for inspection.
func decodeStrict[T any](def *tool.Definition, raw string, response any) (*T, error) {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, &SchemaValidationError{RawOutput: raw, Response: response, Cause: err}
	}
	if err := def.ValidateValue(value); err != nil {
		return nil, &SchemaValidationError{RawOutput: raw, Response: response, Cause: err}
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &SchemaValidationError{RawOutput: raw, Response: response, Cause: err}
	}
	return &out, nil
}

// Extract executes the call with the provider forced into must-call-a-tool
// mode (or JSON mode, when cfg.JSONMode is set) and coerces the output into
// T. The raw response is returned alongside the instance, and inside the
// SchemaValidationError on failure, so the caller can decide whether to
// retry, re-prompt, or abort. No automatic retry happens here.
//
// A configured OutputParser runs after the instance passes validation; its
// result is available from the response's Parsed accessor. Parsers that want
// the typed instance use ExtractParsed instead.
func Extract[T any, R, C any](ctx context.Context, f *Factory[R, C], cfg Config[R], messages []llm.Message) (*T, *Response[R], error) {
	if cfg.Stream {
		return nil, nil, &ConfigurationError{Reason: "use ExtractStream for streaming extraction"}
	}
	def, err := schemaToolFor[T]()
	if err != nil {
		return nil, nil, err
	}

	call, err := f.Bind(cfg)
	if err != nil {
		return nil, nil, err
	}
	exec, err := call.setup(ctx, messages, true, []*tool.Definition{def})
	if err != nil {
		return nil, nil, err
	}
	raw, err := exec.Do(ctx)
	if err != nil {
		return nil, nil, err
	}
	resp := buildResponse(raw, f.p, exec, cfg.Model)

	doc, err := jsonOutput(resp, cfg.JSONMode)
	if err != nil {
		return nil, resp, err
	}
	out, err := decodeStrict[T](def, doc, resp)
	if err != nil {
		return nil, resp, err
	}
	if cfg.OutputParser != nil {
		parsed, err := cfg.OutputParser(resp)
		if err != nil {
			return nil, resp, err
		}
		resp.parsed, resp.hasParsed = parsed, true
	}
	return out, resp, nil
}

// ExtractParsed runs extraction and passes the validated instance through
// parse; the parse result becomes the call's value.
func ExtractParsed[T any, R, C any](ctx context.Context, f *Factory[R, C], cfg Config[R], messages []llm.Message, parse func(*T) (any, error)) (any, *Response[R], error) {
	out, resp, err := Extract[T](ctx, f, cfg, messages)
	if err != nil {
		return nil, resp, err
	}
	parsed, err := parse(out)
	if err != nil {
		return nil, resp, err
	}
	resp.parsed, resp.hasParsed = parsed, true
	return parsed, resp, nil
}

// jsonOutput locates the JSON document produced by an extraction call: the
// single tool call's raw arguments, or the content body in JSON mode.
func jsonOutput[R any](resp *Response[R], jsonMode bool) (string, error) {
	if jsonMode {
		content := resp.Content()
		if content == "" {
			return "", &SchemaValidationError{Response: resp, Cause: errors.New("response carried no content to parse")}
		}
		return content, nil
	}
	parts := resp.ToolCallParts()
	if len(parts) == 0 {
		return "", &SchemaValidationError{Response: resp, Cause: errors.New("response carried no tool call to extract from")}
	}
	return string(parts[0].Arguments), nil
}

// StructuredStream yields successively more complete instances of T as the
// provider streams the extraction tool's arguments. Intermediate instances
// are partially populated (fields absent from the buffered prefix keep
// their zero values); only the final item has passed strict validation.
type StructuredStream[T any, C any] struct {
	s        *Stream[C]
	def      *tool.Definition
	jsonMode bool

	buf       strings.Builder
	cur       *T
	finalized bool
	err       error
}

// ExtractStream executes the call in streaming extraction mode.
func ExtractStream[T any, R, C any](ctx context.Context, f *Factory[R, C], cfg Config[R], messages []llm.Message) (*StructuredStream[T, C], error) {
	if cfg.OutputParser != nil {
		return nil, &ConfigurationError{Reason: "streaming and output parsers are mutually exclusive"}
	}
	def, err := schemaToolFor[T]()
	if err != nil {
		return nil, err
	}

	call, err := f.Bind(Config[R]{
		Model:    cfg.Model,
		JSONMode: cfg.JSONMode,
		Params:   cfg.Params,
		Client:   cfg.Client,
		Stream:   true,
	})
	if err != nil {
		return nil, err
	}
	exec, err := call.setup(ctx, messages, true, []*tool.Definition{def})
	if err != nil {
		return nil, err
	}
	src, err := exec.Stream(ctx)
	if err != nil {
		return nil, err
	}
	return &StructuredStream[T, C]{
		s:        newStream(src, f.p, exec, cfg.Model),
		def:      def,
		jsonMode: cfg.JSONMode,
	}, nil
}

// Next advances to the next partial instance. The final successful item is
// the strict-validated instance; check Err once Next returns false.
func (ss *StructuredStream[T, C]) Next() bool {
	if ss.err != nil || ss.finalized {
		return false
	}

	for ss.s.Next() {
		item := ss.s.Current()
		frag := ss.fragment(item)
		if frag == "" {
			continue
		}
		ss.buf.WriteString(frag)

		repaired, ok := closePartialJSON(ss.buf.String())
		if !ok {
			continue
		}
		var partial T
		if err := json.Unmarshal([]byte(repaired), &partial); err != nil {
			continue // incomplete prefix; not an error yet
		}
		ss.cur = &partial
		return true
	}

	if err := ss.s.Err(); err != nil {
		// In extraction the buffered arguments ARE the schema instance;
		// a terminal argument failure is a schema validation failure.
		var argErr *tool.ToolArgumentError
		if errors.As(err, &argErr) {
			ss.err = &SchemaValidationError{RawOutput: argErr.RawArguments, Cause: argErr.Cause}
		} else {
			ss.err = err
		}
		return false
	}

	ss.finalized = true
	final, err := decodeStrict[T](ss.def, ss.terminalDocument(), nil)
	if err != nil {
		ss.err = err
		return false
	}
	ss.cur = final
	return true
}

// fragment pulls the JSON fragment carried by one stream item.
func (ss *StructuredStream[T, C]) fragment(item Item[C]) string {
	if item.Chunk == nil {
		return ""
	}
	if ss.jsonMode {
		return item.Chunk.Content()
	}
	if delta, ok := item.Chunk.ToolCallDelta(); ok {
		return delta.Arguments
	}
	return ""
}

// terminalDocument returns the complete buffered document for strict
// validation at the end of the stream.
func (ss *StructuredStream[T, C]) terminalDocument() string {
	doc := strings.TrimSpace(ss.buf.String())
	if doc == "" {
		doc = "{}"
	}
	return doc
}

// Current returns the instance produced by the last successful Next.
func (ss *StructuredStream[T, C]) Current() *T { return ss.cur }

// Err returns the terminal error: the underlying stream's failure, or the
// SchemaValidationError from the final strict validation.
func (ss *StructuredStream[T, C]) Err() error { return ss.err }

// Close releases the underlying stream.
func (ss *StructuredStream[T, C]) Close() error { return ss.s.Close() }

// Stream exposes the underlying stream for usage and cost inspection after
// iteration completes.
func (ss *StructuredStream[T, C]) Stream() *Stream[C] { return ss.s }
