package unicall

import (
	"sync"

	"github.com/unicall/unicall/llm"
	"github.com/unicall/unicall/pricing"
	"github.com/unicall/unicall/tool"
)

// Response is an immutable snapshot of one completed provider call. It is
// created once by the factory and read-only afterward; the caller that
// received it owns it exclusively.
type Response[R any] struct {
	// Raw is the provider's native response object.
	Raw R

	view         ResponseView
	tools        []*tool.Definition
	reqModel     string
	prompt       string
	messagesSent []llm.Message

	resolveOnce sync.Once
	resolved    []*tool.ResolvedCall
	resolveErr  error

	parsed    any
	hasParsed bool
}

// buildResponse assembles the wrapper from the raw result and the execution
// that produced it.
func buildResponse[R, C any](raw R, p Provider[R, C], exec *Execution[R, C], reqModel string) *Response[R] {
	return &Response[R]{
		Raw:          raw,
		view:         p.WrapResponse(raw),
		tools:        exec.Tools,
		reqModel:     reqModel,
		prompt:       exec.Prompt,
		messagesSent: exec.Messages,
	}
}

// Content returns the assistant's text content, or "" when the response
// carried only tool calls.
func (r *Response[R]) Content() string { return r.view.Content() }

// ID returns the provider-assigned response identifier.
func (r *Response[R]) ID() string { return r.view.ID() }

// FinishReason returns the provider's normalized finish reason.
func (r *Response[R]) FinishReason() string { return r.view.FinishReason() }

// Model returns the model that served the call, falling back to the
// requested model when the provider omits it.
func (r *Response[R]) Model() string {
	if m := r.view.Model(); m != "" {
		return m
	}
	return r.reqModel
}

// Usage returns the token usage reported by the provider.
func (r *Response[R]) Usage() (llm.Usage, bool) { return r.view.Usage() }

// Cost returns the USD cost of the call, or nil when the model is unpriced
// or the provider reported no usage.
func (r *Response[R]) Cost() *float64 {
	u, ok := r.Usage()
	if !ok {
		return nil
	}
	return pricing.Cost(r.Model(), u)
}

// Prompt returns the rendered text of the request's final user turn.
func (r *Response[R]) Prompt() string { return r.prompt }

// MessagesSent returns the neutral messages the request was built from.
func (r *Response[R]) MessagesSent() []llm.Message { return r.messagesSent }

// ToolCallParts returns the raw, unvalidated tool-call payloads in provider
// order. Most callers want ToolCalls instead.
func (r *Response[R]) ToolCallParts() []llm.ToolCall { return r.view.ToolCallParts() }

// ToolCalls resolves the provider's tool-call payloads against the tool list
// active for this call, in the order the provider returned them. Resolution
// runs once, lazily, on first access: a caller uninterested in tool calls
// never pays for validating them. A payload naming an unlisted tool yields
// UnknownToolError; invalid arguments yield ToolArgumentError.
func (r *Response[R]) ToolCalls() ([]*tool.ResolvedCall, error) {
	r.resolveOnce.Do(func() {
		parts := r.view.ToolCallParts()
		if len(parts) == 0 {
			return
		}
		resolved := make([]*tool.ResolvedCall, 0, len(parts))
		for _, part := range parts {
			def := findTool(r.tools, part.Name)
			if def == nil {
				r.resolveErr = &UnknownToolError{Tool: part.Name, Available: toolNames(r.tools)}
				return
			}
			rc, err := tool.Resolve(def, part.ID, string(part.Arguments))
			if err != nil {
				r.resolveErr = err
				return
			}
			resolved = append(resolved, rc)
		}
		r.resolved = resolved
	})
	return r.resolved, r.resolveErr
}

// Tool returns the first resolved tool call, or nil when the response
// carried none.
func (r *Response[R]) Tool() (*tool.ResolvedCall, error) {
	calls, err := r.ToolCalls()
	if err != nil {
		return nil, err
	}
	if len(calls) == 0 {
		return nil, nil
	}
	return calls[0], nil
}

// Parsed returns the output parser's result when the call ran one.
func (r *Response[R]) Parsed() (any, bool) { return r.parsed, r.hasParsed }

// Message returns the assistant turn derived from the raw response, suitable
// for appending to the conversation before sending tool results.
func (r *Response[R]) Message() llm.Message {
	var parts []llm.Part
	if content := r.view.Content(); content != "" {
		parts = append(parts, llm.TextPart(content))
	}
	for _, tc := range r.view.ToolCallParts() {
		parts = append(parts, llm.ToolCallPart(tc.ID, tc.Name, tc.Arguments))
	}
	return llm.Assistant(parts...)
}
