// Package clarifier decides whether a user's raw intent is specific
// enough to plan against, or needs one follow-up question first.
package clarifier

import (
	"context"

	"github.com/caaa-research/engine/internal/common"
	"github.com/caaa-research/engine/internal/models/chat"
	"github.com/caaa-research/engine/internal/types/interfaces"
	"github.com/caaa-research/engine/internal/utils"
)

const stage = "clarify"

const systemPrompt = `You are a California workers' compensation research assistant, speaking attorney-to-attorney.
A query is vague only when plausible interpretations would produce substantively different searches.
Standard domain abbreviations (QME, IMR, PD, TD, LC, WCAB, SIBTF) never make a query vague.
When in doubt, treat the query as specific.
Reply with strict JSON: {"vague": bool, "follow_up_question": string, "real_question": string}.
When vague, follow_up_question must offer 2-3 concrete alternatives in one professional sentence, and real_question should be empty.
When specific, follow_up_question must be empty and real_question should restate the user's intent plainly.`

// Clarifier implements interfaces.Clarifier against a chat.Chat backend.
type Clarifier struct {
	backend chat.Chat
}

// New builds a Clarifier over the given reasoning-service backend.
func New(backend chat.Chat) *Clarifier {
	return &Clarifier{backend: backend}
}

// Clarify fails open: if the reasoning service is unavailable or its
// reply cannot be parsed, the intent is treated as specific rather
// than blocking the user.
func (c *Clarifier) Clarify(ctx context.Context, intent string) (interfaces.ClarifyResult, error) {
	resp, err := c.backend.Complete(ctx, []chat.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: intent},
	}, &chat.Options{Temperature: 0.2, MaxTokens: 300, JSONMode: true})
	if err != nil {
		common.PipelineWarn(ctx, stage, "reasoning_unavailable_fail_open", map[string]interface{}{"error": err.Error()})
		return interfaces.ClarifyResult{Vague: false, RealQuestion: intent}, nil
	}

	island, ok := utils.ExtractJSONIsland(resp.Content)
	if !ok {
		common.PipelineWarn(ctx, stage, "parse_failed_fail_open", map[string]interface{}{"reply": utils.SanitizeForLog(resp.Content)})
		return interfaces.ClarifyResult{Vague: false, RealQuestion: intent}, nil
	}

	vague := island.Get("vague").Bool()
	if vague {
		followUp := island.Get("follow_up_question").String()
		if followUp == "" {
			return interfaces.ClarifyResult{Vague: false, RealQuestion: intent}, nil
		}
		common.PipelineInfo(ctx, stage, "vague", map[string]interface{}{"follow_up": followUp})
		return interfaces.ClarifyResult{Vague: true, FollowUp: followUp}, nil
	}

	real := island.Get("real_question").String()
	if real == "" {
		real = intent
	}
	return interfaces.ClarifyResult{Vague: false, RealQuestion: real}, nil
}

// ResolveFollowUp builds the REAL question once the user has answered
// the one follow-up round. At most one round is used: the user's last
// answer becomes the REAL question verbatim, with no further
// clarification attempted.
func ResolveFollowUp(originalIntent, followUpAnswer string) string {
	if followUpAnswer == "" {
		return originalIntent
	}
	return followUpAnswer
}
