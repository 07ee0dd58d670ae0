package unicall

import (
	"sort"
	"strings"

	"github.com/unicall/unicall/llm"
	"github.com/unicall/unicall/pricing"
	"github.com/unicall/unicall/tool"
)

// Item is one unit of stream iteration: a content-bearing chunk, a completed
// tool call, or both when the chunk that completed the call also carried
// content. Tool is never a half-built call; argument fragments are buffered
// internally until the provider signals completion. Chunk is nil for calls
// finalized without a chunk of their own: buffers drained at source
// exhaustion, and the second of two calls completed by a single chunk.
type Item[C any] struct {
	Chunk *Chunk[C]
	Tool  *tool.ResolvedCall
}

// Stream drives iteration over a provider's chunks, accumulating content and
// reconstructing tool calls fragmented across chunks. It is pull-based: the
// next chunk is requested only when the caller asks for it, and no buffering
// or read-ahead happens behind the caller's back.
//
// A Stream is owned by a single consumption loop; sharing one across
// goroutines is not supported.
type Stream[C any] struct {
	src          ChunkSource[C]
	wrap         func(C) ChunkView
	tools        []*tool.Definition
	reqModel     string
	prompt       string
	messagesSent []llm.Message

	content   strings.Builder
	buffers   map[int]*toolBuffer
	openOrder []int
	completed []llm.ToolCall
	pending   []*tool.ResolvedCall

	usage     llm.Usage
	usageSeen bool
	finish    string
	model     string

	cur       Item[C]
	exhausted bool
	done      bool
	err       error
}

type toolBuffer struct {
	id   string
	name string
	args strings.Builder
}

func newStream[R, C any](src ChunkSource[C], p Provider[R, C], exec *Execution[R, C], reqModel string) *Stream[C] {
	return &Stream[C]{
		src:          src,
		wrap:         p.WrapChunk,
		tools:        exec.Tools,
		reqModel:     reqModel,
		prompt:       exec.Prompt,
		messagesSent: exec.Messages,
		buffers:      make(map[int]*toolBuffer),
	}
}

// Next advances the stream. It returns false when the source is exhausted or
// a terminal error occurred; check Err afterwards.
func (s *Stream[C]) Next() bool {
	if s.done || s.err != nil {
		return false
	}

	if len(s.pending) > 0 {
		rc := s.pending[0]
		s.pending = s.pending[1:]
		s.cur = Item[C]{Tool: rc}
		return true
	}

	if s.exhausted {
		// Drain buffers left open at exhaustion, one completed call
		// per Next so the pairing contract holds.
		if rc, ok := s.finalizeNext(); ok {
			s.cur = Item[C]{Tool: rc}
			return s.err == nil
		}
		s.done = true
		return false
	}

	if !s.src.Next() {
		if err := s.src.Err(); err != nil {
			s.err = err
			return false
		}
		s.exhausted = true
		return s.Next()
	}

	raw := s.src.Current()
	view := s.wrap(raw)
	chunk := newChunk(raw, view)

	s.content.WriteString(view.Content())
	if u, ok := view.Usage(); ok {
		s.usage = s.usage.Add(u)
		s.usageSeen = true
	}
	if fr, ok := view.FinishReason(); ok {
		s.finish = fr
	}
	if m := view.Model(); m != "" {
		s.model = m
	}

	var completed *tool.ResolvedCall
	if delta, ok := view.ToolCallDelta(); ok {
		completed = s.applyDelta(delta)
		if s.err != nil {
			return false
		}
	}

	s.cur = Item[C]{Chunk: chunk, Tool: completed}
	return true
}

// applyDelta routes one fragment into its index buffer. A fragment opening a
// new index completes any previously open call: providers stream one call's
// arguments contiguously, so a new index is a completion signal for the old
// one. An explicit Done marker completes the fragment's own call.
func (s *Stream[C]) applyDelta(delta ToolCallDelta) *tool.ResolvedCall {
	var completed *tool.ResolvedCall

	buf, exists := s.buffers[delta.Index]
	if !exists {
		if delta.Done && delta.Arguments == "" && delta.ID == "" && delta.Name == "" {
			// Completion marker for a block that was never a tool
			// call (e.g. a text block stop); nothing to do.
			return nil
		}
		if rc := s.finalizeOpen(delta.Index); rc != nil || s.err != nil {
			completed = rc
		}
		buf = &toolBuffer{id: delta.ID, name: delta.Name}
		s.buffers[delta.Index] = buf
		s.openOrder = append(s.openOrder, delta.Index)
	}
	if buf.id == "" {
		buf.id = delta.ID
	}
	if buf.name == "" {
		buf.name = delta.Name
	}
	buf.args.WriteString(delta.Arguments)

	if delta.Done {
		// A chunk may both close a previously open index and complete
		// its own call. The first completion rides this chunk's item;
		// the second is queued for the following Next.
		if rc := s.finalizeIndex(delta.Index); rc != nil {
			if completed != nil {
				s.pending = append(s.pending, rc)
			} else {
				completed = rc
			}
		}
	}
	return completed
}

// finalizeOpen completes the call open at any index other than next.
func (s *Stream[C]) finalizeOpen(next int) *tool.ResolvedCall {
	for _, idx := range s.openOrder {
		if idx == next {
			continue
		}
		if _, open := s.buffers[idx]; open {
			return s.finalizeIndex(idx)
		}
	}
	return nil
}

// finalizeNext completes the lowest-index buffer still open. The second
// return reports whether a buffer was processed at all.
func (s *Stream[C]) finalizeNext() (*tool.ResolvedCall, bool) {
	if len(s.buffers) == 0 {
		return nil, false
	}
	indices := make([]int, 0, len(s.buffers))
	for idx := range s.buffers {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return s.finalizeIndex(indices[0]), true
}

// finalizeIndex parses and validates one buffered call. The buffer is
// consumed regardless of outcome; a malformed buffer sets the stream error.
func (s *Stream[C]) finalizeIndex(idx int) *tool.ResolvedCall {
	buf, ok := s.buffers[idx]
	if !ok {
		return nil
	}
	delete(s.buffers, idx)

	def := findTool(s.tools, buf.name)
	if def == nil {
		s.err = &UnknownToolError{Tool: buf.name, Available: toolNames(s.tools)}
		return nil
	}
	rc, err := tool.Resolve(def, buf.id, buf.args.String())
	if err != nil {
		s.err = err
		return nil
	}
	s.completed = append(s.completed, llm.ToolCall{ID: rc.ID, Name: def.Name, Arguments: rc.Arguments})
	return rc
}

// Current returns the item produced by the last successful Next.
func (s *Stream[C]) Current() Item[C] { return s.cur }

// Err returns the terminal stream error, if any. A tool-call buffer that is
// still malformed when the source is exhausted surfaces here as a
// ToolArgumentError, never mid-stream: partial JSON is expected until the
// provider signals completion.
func (s *Stream[C]) Err() error { return s.err }

// Close releases the underlying transport iterator. Safe to call after
// abandoning iteration early.
func (s *Stream[C]) Close() error { return s.src.Close() }

// Content returns the content accumulated so far; after iteration finishes
// it is the complete assistant text.
func (s *Stream[C]) Content() string { return s.content.String() }

// Message synthesizes the aggregate assistant turn from the accumulated
// content and all completed tool calls. Valid once iteration has finished.
func (s *Stream[C]) Message() llm.Message {
	var parts []llm.Part
	if content := s.content.String(); content != "" {
		parts = append(parts, llm.TextPart(content))
	}
	for _, tc := range s.completed {
		parts = append(parts, llm.ToolCallPart(tc.ID, tc.Name, tc.Arguments))
	}
	return llm.Assistant(parts...)
}

// ToolCalls returns the raw payloads of all completed tool calls so far.
func (s *Stream[C]) ToolCalls() []llm.ToolCall { return s.completed }

// FinishReason returns the last finish reason reported by the provider.
func (s *Stream[C]) FinishReason() string { return s.finish }

// Model returns the model that served the stream, falling back to the
// requested model.
func (s *Stream[C]) Model() string {
	if s.model != "" {
		return s.model
	}
	return s.reqModel
}

// Usage returns the final usage, assembled from the chunks that carried it.
func (s *Stream[C]) Usage() (llm.Usage, bool) { return s.usage, s.usageSeen }

// Cost returns the USD cost of the stream, or nil when the model is unpriced
// or no usage was reported.
func (s *Stream[C]) Cost() *float64 {
	if !s.usageSeen {
		return nil
	}
	return pricing.Cost(s.Model(), s.usage)
}

// Prompt returns the rendered text of the request's final user turn.
func (s *Stream[C]) Prompt() string { return s.prompt }

// MessagesSent returns the neutral messages the request was built from.
func (s *Stream[C]) MessagesSent() []llm.Message { return s.messagesSent }
