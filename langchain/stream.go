package langchain

import (
	"context"

	"github.com/tmc/langchaingo/llms"

	"github.com/unicall/unicall/llm"
)

// Chunk is this package's raw streaming unit. langchaingo streams text only,
// through a callback; tool calls, finish reason, and usage arrive with the
// terminal response and are replayed here as synthetic trailing chunks so
// downstream stream handling sees one uniform shape.
type Chunk struct {
	Text string

	ToolCallIndex int
	ToolCallID    string
	ToolCallName  string
	ToolCallArgs  string
	HasToolCall   bool

	FinishReason string
	Usage        *llm.Usage
}

// chunkSource adapts langchaingo's push callback to the pull interface. A
// goroutine drives GenerateContent and feeds chunks through a channel;
// closing the source cancels the call.
type chunkSource struct {
	ch     chan Chunk
	errc   chan error
	cancel context.CancelFunc

	cur  Chunk
	done bool
	err  error
}

func newChunkSource(ctx context.Context, model llms.Model, content []llms.MessageContent, opts []llms.CallOption) *chunkSource {
	ctx, cancel := context.WithCancel(ctx)
	src := &chunkSource{
		ch:     make(chan Chunk),
		errc:   make(chan error, 1),
		cancel: cancel,
	}

	streamOpts := append(opts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		select {
		case src.ch <- Chunk{Text: string(chunk)}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}))

	go func() {
		defer close(src.ch)
		resp, err := model.GenerateContent(ctx, content, streamOpts...)
		if err != nil {
			src.errc <- err
			return
		}
		src.emitTrailer(ctx, resp)
		src.errc <- nil
	}()

	return src
}

// emitTrailer replays the terminal response's tool calls, finish reason, and
// usage as chunks after the text stream ends.
func (s *chunkSource) emitTrailer(ctx context.Context, resp *llms.ContentResponse) {
	if resp == nil || len(resp.Choices) == 0 {
		return
	}
	choice := resp.Choices[0]

	for i, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		chunk := Chunk{
			ToolCallIndex: i,
			ToolCallID:    tc.ID,
			ToolCallName:  tc.FunctionCall.Name,
			ToolCallArgs:  tc.FunctionCall.Arguments,
			HasToolCall:   true,
		}
		select {
		case s.ch <- chunk:
		case <-ctx.Done():
			return
		}
	}

	tail := Chunk{FinishReason: choice.StopReason}
	if usage, ok := usageFromInfo(choice.GenerationInfo); ok {
		tail.Usage = &usage
	}
	select {
	case s.ch <- tail:
	case <-ctx.Done():
	}
}

func (s *chunkSource) Next() bool {
	if s.done {
		return false
	}
	chunk, ok := <-s.ch
	if !ok {
		s.done = true
		s.err = <-s.errc
		return false
	}
	s.cur = chunk
	return true
}

func (s *chunkSource) Current() Chunk { return s.cur }

func (s *chunkSource) Err() error { return s.err }

func (s *chunkSource) Close() error {
	s.cancel()
	return nil
}
