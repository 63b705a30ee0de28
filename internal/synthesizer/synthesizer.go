// Package synthesizer aggregates every relevant message for a named
// subject into a (score, evaluation, reasoning) verdict, or a ranked
// AME/QME list.
package synthesizer

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/caaa-research/engine/internal/common"
	"github.com/caaa-research/engine/internal/models/chat"
	"github.com/caaa-research/engine/internal/types"
	"github.com/caaa-research/engine/internal/types/interfaces"
	"github.com/caaa-research/engine/internal/utils"
)

const stage = "synthesize"

// maxRelevantMessages caps how many relevant messages are sent to the
// synthesis prompt, and messageBodyBudget truncates each one.
const (
	maxRelevantMessages = 50
	messageBodyBudget   = 1000
)

// Synthesizer implements interfaces.Synthesizer against a chat.Chat
// backend.
type Synthesizer struct {
	backend chat.Chat
}

// New builds a Synthesizer over the given reasoning-service backend.
func New(backend chat.Chat) *Synthesizer {
	return &Synthesizer{backend: backend}
}

// Synthesize aggregates the relevant messages for an evaluation-mode
// search into a verdict, or for an AME/QME search into a ranked doctor
// list. Callers must only invoke this with >= 3
// inputs; the insufficient-data rule below that threshold is the
// caller's responsibility, per interfaces.Synthesizer's doc comment.
func (s *Synthesizer) Synthesize(ctx context.Context, queryType types.QueryType, realQuestion string, inputs []interfaces.SynthesisInput) (types.SynthesisResult, error) {
	if queryType == types.QueryTypeAMEQMESearch {
		return s.synthesizeAMEQME(ctx, realQuestion, inputs)
	}
	return s.synthesizeVerdict(ctx, queryType, realQuestion, inputs)
}

func (s *Synthesizer) synthesizeVerdict(ctx context.Context, queryType types.QueryType, realQuestion string, inputs []interfaces.SynthesisInput) (types.SynthesisResult, error) {
	allowed, fallback := types.EvaluationsFor(queryType)
	prompt := buildVerdictPrompt(realQuestion, allowed, capInputs(inputs))

	resp, err := s.backend.Complete(ctx, []chat.Message{
		{Role: "system", Content: verdictSystemPrompt},
		{Role: "user", Content: prompt},
	}, &chat.Options{Temperature: 0.3, MaxTokens: 600, JSONMode: true})
	if err != nil {
		common.PipelineWarn(ctx, stage, "reasoning_unavailable", map[string]interface{}{"error": err.Error()})
		return types.SynthesisResult{Score: 0, Evaluation: types.EvaluationError, Reasoning: "Synthesis unavailable: " + err.Error()}, nil
	}

	island, ok := utils.ExtractJSONIsland(resp.Content)
	if !ok {
		common.PipelineWarn(ctx, stage, "parse_failed", map[string]interface{}{"reply": utils.SanitizeForLog(resp.Content)})
		return types.SynthesisResult{Score: 0, Evaluation: types.EvaluationError, Reasoning: "Failed to parse synthesis response"}, nil
	}

	score := clampScore(island.Get("score").Float())
	evaluation := normalizeEvaluation(island.Get("evaluation").String(), allowed, fallback)
	reasoning := island.Get("reasoning").String()

	return types.SynthesisResult{Score: score, Evaluation: evaluation, Reasoning: reasoning}, nil
}

func (s *Synthesizer) synthesizeAMEQME(ctx context.Context, realQuestion string, inputs []interfaces.SynthesisInput) (types.SynthesisResult, error) {
	prompt := buildAMEQMEPrompt(realQuestion, capInputs(inputs))

	resp, err := s.backend.Complete(ctx, []chat.Message{
		{Role: "system", Content: ameqmeSystemPrompt},
		{Role: "user", Content: prompt},
	}, &chat.Options{Temperature: 0.3, MaxTokens: 1200, JSONMode: true})
	if err != nil {
		common.PipelineWarn(ctx, stage, "reasoning_unavailable", map[string]interface{}{"error": err.Error()})
		return types.SynthesisResult{Score: 0, Evaluation: types.EvaluationError, Reasoning: "Synthesis unavailable: " + err.Error()}, nil
	}

	island, ok := utils.ExtractJSONIsland(resp.Content)
	if !ok {
		common.PipelineWarn(ctx, stage, "parse_failed", map[string]interface{}{"reply": utils.SanitizeForLog(resp.Content)})
		return types.SynthesisResult{Score: 0, Evaluation: types.EvaluationError, Reasoning: "Failed to parse synthesis response"}, nil
	}

	var doctors []types.DoctorRanking
	for _, d := range island.Get("doctors").Array() {
		doctors = append(doctors, types.DoctorRanking{
			Name:             d.Get("name").String(),
			PositiveMentions: int(d.Get("positive_mentions").Int()),
			NegativeMentions: int(d.Get("negative_mentions").Int()),
			NetScore:         int(d.Get("net_score").Int()),
			SampleQuotes:     stringArray(d.Get("sample_quotes")),
			Warnings:         stringArray(d.Get("warnings")),
		})
	}
	sort.SliceStable(doctors, func(i, j int) bool { return doctors[i].NetScore > doctors[j].NetScore })

	payload := types.AMEQMESynthesis{
		Doctors:       doctors,
		TotalMentions: int(island.Get("total_mentions").Int()),
		Reasoning:     island.Get("reasoning").String(),
	}
	encoded, _ := json.Marshal(payload)

	topScore := 0
	if len(doctors) > 0 {
		topScore = clampScoreInt(doctors[0].NetScore)
	}
	return types.SynthesisResult{
		Score:      float64(topScore),
		Evaluation: types.EvaluationGood,
		Reasoning:  string(encoded),
	}, nil
}

func stringArray(r gjson.Result) []string {
	arr := r.Array()
	if len(arr) == 0 {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, v.String())
	}
	return out
}

func capInputs(inputs []interfaces.SynthesisInput) []interfaces.SynthesisInput {
	if len(inputs) <= maxRelevantMessages {
		return inputs
	}
	return inputs[:maxRelevantMessages]
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampScoreInt(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func normalizeEvaluation(raw string, allowed []types.Evaluation, fallback types.Evaluation) types.Evaluation {
	raw = strings.TrimSpace(strings.ToLower(raw))
	for _, a := range allowed {
		if string(a) == raw {
			return a
		}
	}
	// Defense-attorney synthesis previously used {good, mixed, bad};
	// map those labels onto the difficulty scale when a model still
	// emits them.
	if mapped, ok := legacyLabelMap[raw]; ok {
		for _, a := range allowed {
			if a == mapped {
				return a
			}
		}
	}
	return fallback
}

var legacyLabelMap = map[string]types.Evaluation{
	"good": types.EvaluationEasyToDealWith,
	"bad":  types.EvaluationDifficultToDealWith,
}
