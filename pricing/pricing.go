// Package pricing maps model identifiers to per-token prices and computes
// the cost of a call from its token usage. Models absent from the table are
// unpriced: cost lookups return nil rather than failing.
package pricing

import (
	"sync"

	"github.com/unicall/unicall/llm"
)

// Price is expressed in USD per one million tokens.
type Price struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

var (
	mu    sync.RWMutex
	table = map[string]Price{
		// Anthropic
		"claude-sonnet-4-20250514":  {InputPerMTok: 3.00, OutputPerMTok: 15.00},
		"claude-3-5-haiku-20241022": {InputPerMTok: 0.80, OutputPerMTok: 4.00},
		"claude-opus-4-20250514":    {InputPerMTok: 15.00, OutputPerMTok: 75.00},

		// OpenAI
		"gpt-4o":      {InputPerMTok: 2.50, OutputPerMTok: 10.00},
		"gpt-4o-mini": {InputPerMTok: 0.15, OutputPerMTok: 0.60},
		"gpt-4.1":     {InputPerMTok: 2.00, OutputPerMTok: 8.00},

		// Mistral (via the OpenAI-compatible gateway plug-in)
		"mistral-large-latest": {InputPerMTok: 2.00, OutputPerMTok: 6.00},
		"mistral-small-latest": {InputPerMTok: 0.10, OutputPerMTok: 0.30},
	}
)

// Register adds or replaces a model's price entry.
func Register(model string, price Price) {
	mu.Lock()
	defer mu.Unlock()
	table[model] = price
}

// Lookup returns the price entry for a model.
func Lookup(model string) (Price, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := table[model]
	return p, ok
}

// Cost computes the USD cost of a call, or nil when the model is unpriced.
func Cost(model string, usage llm.Usage) *float64 {
	p, ok := Lookup(model)
	if !ok {
		return nil
	}
	cost := (float64(usage.InputTokens)*p.InputPerMTok + float64(usage.OutputTokens)*p.OutputPerMTok) / 1_000_000
	return &cost
}
