package synthesizer

import (
	"fmt"
	"strings"

	"github.com/caaa-research/engine/internal/types"
	"github.com/caaa-research/engine/internal/types/interfaces"
)

const verdictSystemPrompt = `You are an expert legal assistant synthesizing a set of California workers' compensation listserv messages into a single verdict about a named subject.
Base your verdict only on the messages provided.`

const ameqmeSystemPrompt = `You are an expert legal assistant recommending agreed/qualified medical examiners (AME/QME) from California workers' compensation listserv discussion.
Extract every named doctor mentioned in the messages, tally positive and negative mentions, and rank them.`

// buildVerdictPrompt renders the per-mode synthesis prompt: the REAL
// question, the allowed evaluation labels, and every relevant message
// (subject + truncated body).
func buildVerdictPrompt(realQuestion string, allowed []types.Evaluation, inputs []interfaces.SynthesisInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "REAL QUESTION: %s\n\n", realQuestion)
	fmt.Fprintf(&b, "Allowed evaluation labels: %s\n\n", joinEvaluations(allowed))
	b.WriteString("MESSAGES:\n")
	for i, in := range inputs {
		fmt.Fprintf(&b, "%d. From: %s | Subject: %s | Confidence: %.2f\n   %s\n",
			i+1, in.Message.FromDisplay, in.Message.Subject, in.Analysis.Confidence, truncate(in.Message.Body, messageBodyBudget))
	}
	b.WriteString("\nRespond in strict JSON: {\"score\": 0-100, \"evaluation\": \"<one of the allowed labels>\", \"reasoning\": \"a short paragraph\"}")
	return b.String()
}

// buildAMEQMEPrompt renders the AME/QME recommendation prompt.
func buildAMEQMEPrompt(realQuestion string, inputs []interfaces.SynthesisInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "REAL QUESTION: %s\n\n", realQuestion)
	b.WriteString("MESSAGES:\n")
	for i, in := range inputs {
		fmt.Fprintf(&b, "%d. From: %s | Subject: %s\n   %s\n",
			i+1, in.Message.FromDisplay, in.Message.Subject, truncate(in.Message.Body, messageBodyBudget))
	}
	b.WriteString(`
Respond in strict JSON:
{"doctors": [{"name": "...", "positive_mentions": 0, "negative_mentions": 0, "net_score": 0, "sample_quotes": ["..."], "warnings": ["..."]}],
 "total_mentions": 0, "reasoning": "a short paragraph"}
Each doctor must have at least one sample quote. Sort doctors by net_score descending.`)
	return b.String()
}

func joinEvaluations(allowed []types.Evaluation) string {
	out := make([]string, len(allowed))
	for i, a := range allowed {
		out[i] = string(a)
	}
	return strings.Join(out, ", ")
}

func truncate(body string, budget int) string {
	if len(body) <= budget {
		return body
	}
	return strings.TrimSpace(body[:budget]) + "... [truncated]"
}
