// Package scorer produces a per-message relevance verdict against the
// REAL question, using a prompt family keyed off the query type.
package scorer

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/caaa-research/engine/internal/types/interfaces"
)

// costPer1KTokens is a blended per-model rate (a simplified 50/50
// input/output split, not a precise per-direction rate table).
// TODO: rebuild against whichever provider the deployment actually
// pins; unknownModelRate is the gpt-3.5-turbo-equivalent fallback for
// any unlisted model id.
var costPer1KTokens = map[string]float64{
	"gpt-4o":        0.010,
	"gpt-4o-mini":   0.000375,
	"gpt-3.5-turbo": 0.001,
}

const unknownModelRate = 0.001

func calculateCost(tokens int, model string) float64 {
	rate, ok := costPer1KTokens[model]
	if !ok {
		rate = unknownModelRate
	}
	return (float64(tokens) / 1000) * rate
}

// tokenCounter lazily builds a single shared cl100k_base tiktoken
// encoder, matching every OpenAI-family chat model the reasoning
// service talks to.
type tokenCounter struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
}

var sharedTokenCounter tokenCounter

func (c *tokenCounter) count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err == nil {
			c.encoding = enc
		}
	})
	if c.encoding == nil {
		// Fallback proxy if the encoder failed to load; never blocks scoring.
		return len(text) / 4
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// usageTracker accumulates the Scorer's running cost total across
// calls, exposed via UsageStats.
type usageTracker struct {
	mu     sync.Mutex
	tokens int
	cost   float64
	model  string
}

func (u *usageTracker) record(model string, tokens int, cost float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.tokens += tokens
	u.cost += cost
	u.model = model
}

func (u *usageTracker) snapshot() interfaces.UsageStats {
	u.mu.Lock()
	defer u.mu.Unlock()
	return interfaces.UsageStats{TotalTokens: u.tokens, TotalCostUSD: roundCents(u.cost), Model: u.model}
}

func roundCents(v float64) float64 {
	return float64(int(v*10000+0.5)) / 10000
}
