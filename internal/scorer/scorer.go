package scorer

import (
	"context"
	"strings"
	"time"

	"github.com/caaa-research/engine/internal/common"
	"github.com/caaa-research/engine/internal/models/chat"
	"github.com/caaa-research/engine/internal/types"
	"github.com/caaa-research/engine/internal/types/interfaces"
	"github.com/caaa-research/engine/internal/utils"
)

const stage = "score"

// bodyCharBudget truncates message bodies before they're sent to the
// reasoning service.
const bodyCharBudget = 2000

const truncationMarker = "... [truncated]"

// scoreReply is the wire shape the reasoning service must return; its
// schema is pinned via structured output on backends that support it,
// with the JSON-island parse below as the fallback path for those
// that don't.
type scoreReply struct {
	IsRelevant bool    `json:"is_relevant"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

var scoreReplySchema = utils.GenerateSchema[scoreReply]()

// Scorer implements interfaces.Scorer against a chat.Chat backend:
// one prompt per message, strict JSON reply, conservative default on
// any parse failure.
type Scorer struct {
	backend chat.Chat
	usage   usageTracker
}

// New builds a Scorer over the given reasoning-service backend.
func New(backend chat.Chat) *Scorer {
	return &Scorer{backend: backend}
}

// Score judges one message against the REAL question, selecting the
// prompt family by query type.
func (s *Scorer) Score(ctx context.Context, realQuestion string, queryType types.QueryType, msg types.Message) (interfaces.ScoreVerdict, error) {
	body := truncateBody(msg.Body)
	prompt := buildPrompt(queryType, realQuestion, msg.FromDisplay, msg.Subject, body)

	resp, err := s.backend.Complete(ctx, []chat.Message{
		{Role: "system", Content: "You are an expert legal assistant analyzing workers' compensation case law and listserv messages."},
		{Role: "user", Content: prompt},
	}, &chat.Options{Temperature: 0.3, MaxTokens: 500, JSONMode: true, Schema: scoreReplySchema, SchemaName: "relevance_verdict"})
	if err != nil {
		common.PipelineWarn(ctx, stage, "reasoning_unavailable_default_verdict", map[string]interface{}{"error": err.Error()})
		return defaultVerdict(s.backend.ModelName()), nil
	}

	verdict := s.parseVerdict(resp)
	return verdict, nil
}

// UsageStats returns the Scorer's cumulative token/cost accounting.
func (s *Scorer) UsageStats() interfaces.UsageStats {
	return s.usage.snapshot()
}

func (s *Scorer) parseVerdict(resp *chat.Response) interfaces.ScoreVerdict {
	model := s.backend.ModelName()
	island, ok := utils.ExtractJSONIsland(resp.Content)
	if !ok {
		tokens := s.recordUsage(resp, model)
		return failedParseVerdict(model, tokens)
	}

	if !island.Get("is_relevant").Exists() {
		tokens := s.recordUsage(resp, model)
		return failedParseVerdict(model, tokens)
	}

	verdict := interfaces.ScoreVerdict{
		IsRelevant: island.Get("is_relevant").Bool(),
		Confidence: clampConfidence(island.Get("confidence").Float()),
		Reasoning:  island.Get("reasoning").String(),
		ModelID:    model,
	}
	tokens := s.recordUsage(resp, model)
	verdict.TokensUsed = tokens
	verdict.Cost = calculateCost(tokens, model)
	return verdict
}

// recordUsage resolves the token count actually spent on resp,
// charges it against the cumulative tracker, and returns it so the
// caller's verdict reports the same figure.
func (s *Scorer) recordUsage(resp *chat.Response, model string) int {
	tokens := resp.TotalTokens
	if tokens == 0 {
		// Some backends (e.g. Ollama when EvalCount never populates)
		// don't report usage; fall back to a local estimate so cost
		// accounting doesn't silently zero out.
		tokens = sharedTokenCounter.count(resp.Content)
	}
	cost := calculateCost(tokens, model)
	s.usage.record(model, tokens, cost)
	return tokens
}

// failedParseVerdict is the conservative default used when the
// Scorer's JSON island cannot be parsed, still charging whatever
// tokens the call actually used.
func failedParseVerdict(model string, tokens int) interfaces.ScoreVerdict {
	return interfaces.ScoreVerdict{
		IsRelevant: false,
		Confidence: 0.0,
		Reasoning:  "Failed to parse",
		ModelID:    model,
		TokensUsed: tokens,
		Cost:       calculateCost(tokens, model),
	}
}

// defaultVerdict is used when the reasoning service itself is
// unreachable: the search still completes, relevance just degrades.
func defaultVerdict(model string) interfaces.ScoreVerdict {
	return interfaces.ScoreVerdict{
		IsRelevant: false,
		Confidence: 0.0,
		Reasoning:  "Failed to parse",
		ModelID:    model,
	}
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// truncateBody caps the body at bodyCharBudget characters, appending
// a marker so the model knows text was cut.
func truncateBody(body string) string {
	if len(body) <= bodyCharBudget {
		return body
	}
	return strings.TrimSpace(body[:bodyCharBudget]) + truncationMarker
}

// AnalyzedAt stamps the current time for a persisted Analysis; kept as
// a function (not time.Now() inlined at call sites) so Orchestrator
// callers share one clock read per verdict.
func AnalyzedAt() time.Time { return time.Now() }
