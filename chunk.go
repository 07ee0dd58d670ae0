package unicall

import "github.com/unicall/unicall/llm"

// Chunk is an immutable snapshot of one incremental unit of a streaming
// response. Every accessor may legitimately report nothing: providers omit
// usage until the terminal chunk, omit the finish reason until completion,
// and split one logical tool call's arguments across many chunks.
type Chunk[C any] struct {
	// Raw is the provider's native chunk object.
	Raw C

	view ChunkView
}

func newChunk[C any](raw C, view ChunkView) *Chunk[C] {
	return &Chunk[C]{Raw: raw, view: view}
}

// Content returns this chunk's content delta, usually a few characters.
func (c *Chunk[C]) Content() string { return c.view.Content() }

// ToolCallDelta returns this chunk's tool-call fragment, if any.
func (c *Chunk[C]) ToolCallDelta() (ToolCallDelta, bool) { return c.view.ToolCallDelta() }

// FinishReason returns the finish reason once the provider reports one.
func (c *Chunk[C]) FinishReason() (string, bool) { return c.view.FinishReason() }

// Usage returns the (possibly partial) usage carried by this chunk.
func (c *Chunk[C]) Usage() (llm.Usage, bool) { return c.view.Usage() }

// Model returns the model identifier when the chunk carries one.
func (c *Chunk[C]) Model() string { return c.view.Model() }
