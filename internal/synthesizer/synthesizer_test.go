package synthesizer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/caaa-research/engine/internal/models/chat"
	"github.com/caaa-research/engine/internal/types"
	"github.com/caaa-research/engine/internal/types/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	reply      string
	err        error
	lastPrompt string
}

func (f *fakeChat) ModelName() string { return "fake-model" }

func (f *fakeChat) Complete(ctx context.Context, messages []chat.Message, opts *chat.Options) (*chat.Response, error) {
	if len(messages) > 0 {
		f.lastPrompt = messages[len(messages)-1].Content
	}
	if f.err != nil {
		return nil, f.err
	}
	return &chat.Response{Content: f.reply}, nil
}

func inputsFixture(n int) []interfaces.SynthesisInput {
	out := make([]interfaces.SynthesisInput, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, interfaces.SynthesisInput{
			Message:  types.Message{Subject: "re: case", Body: "substantive discussion"},
			Analysis: types.Analysis{IsRelevant: true, Confidence: 0.8},
		})
	}
	return out
}

func TestSynthesizeDoctorEvalParsesVerdict(t *testing.T) {
	s := New(&fakeChat{reply: `{"score": 72, "evaluation": "good", "reasoning": "Consistently praised for thoroughness."}`})
	result, err := s.Synthesize(context.Background(), types.QueryTypeDoctorEval, "Evaluate doctor: Dr. Smith", inputsFixture(5))
	require.NoError(t, err)
	assert.Equal(t, 72.0, result.Score)
	assert.Equal(t, types.EvaluationGood, result.Evaluation)
	assert.Contains(t, result.Reasoning, "thoroughness")
}

func TestSynthesizeClampsOutOfRangeScore(t *testing.T) {
	s := New(&fakeChat{reply: `{"score": 145, "evaluation": "bad", "reasoning": "x"}`})
	result, err := s.Synthesize(context.Background(), types.QueryTypeJudgeEval, "Evaluate judge: Judge Dobrin", inputsFixture(4))
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.Score)

	s = New(&fakeChat{reply: `{"score": -20, "evaluation": "bad", "reasoning": "x"}`})
	result, err = s.Synthesize(context.Background(), types.QueryTypeJudgeEval, "Evaluate judge: Judge Dobrin", inputsFixture(4))
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Score)
}

func TestSynthesizeUnknownEvaluationLabelCollapsesToModeFallback(t *testing.T) {
	s := New(&fakeChat{reply: `{"score": 50, "evaluation": "excellent", "reasoning": "x"}`})
	result, err := s.Synthesize(context.Background(), types.QueryTypeDoctorEval, "Evaluate doctor: Dr. Smith", inputsFixture(3))
	require.NoError(t, err)
	assert.Equal(t, types.EvaluationMixed, result.Evaluation)
}

func TestSynthesizeDefenseAttorneyUsesDifficultyScale(t *testing.T) {
	s := New(&fakeChat{reply: `{"score": 30, "evaluation": "difficult_to_deal_with", "reasoning": "Aggressive on every deposition."}`})
	result, err := s.Synthesize(context.Background(), types.QueryTypeDefenseAttorneyEval, "Evaluate defense attorney: Jane Roe", inputsFixture(4))
	require.NoError(t, err)
	assert.Equal(t, types.EvaluationDifficultToDealWith, result.Evaluation)
}

func TestSynthesizeDefenseAttorneyMigratesLegacyLabels(t *testing.T) {
	s := New(&fakeChat{reply: `{"score": 80, "evaluation": "good", "reasoning": "Reasonable and fair to deal with."}`})
	result, err := s.Synthesize(context.Background(), types.QueryTypeDefenseAttorneyEval, "Evaluate defense attorney: Jane Roe", inputsFixture(4))
	require.NoError(t, err)
	assert.Equal(t, types.EvaluationEasyToDealWith, result.Evaluation)

	s = New(&fakeChat{reply: `{"score": 10, "evaluation": "bad", "reasoning": "Unreasonable."}`})
	result, err = s.Synthesize(context.Background(), types.QueryTypeDefenseAttorneyEval, "Evaluate defense attorney: Jane Roe", inputsFixture(4))
	require.NoError(t, err)
	assert.Equal(t, types.EvaluationDifficultToDealWith, result.Evaluation)
}

func TestSynthesizeUnparsableReplyYieldsErrorEvaluation(t *testing.T) {
	s := New(&fakeChat{reply: "no json here"})
	result, err := s.Synthesize(context.Background(), types.QueryTypeDoctorEval, "Evaluate doctor: Dr. Smith", inputsFixture(3))
	require.NoError(t, err)
	assert.Equal(t, types.EvaluationError, result.Evaluation)
	assert.Equal(t, 0.0, result.Score)
}

func TestSynthesizeReasoningUnavailableYieldsErrorEvaluation(t *testing.T) {
	s := New(&fakeChat{err: errors.New("connection refused")})
	result, err := s.Synthesize(context.Background(), types.QueryTypeDoctorEval, "Evaluate doctor: Dr. Smith", inputsFixture(3))
	require.NoError(t, err)
	assert.Equal(t, types.EvaluationError, result.Evaluation)
}

func TestSynthesizeAMEQMESortsByNetScoreDescending(t *testing.T) {
	s := New(&fakeChat{reply: `{
		"doctors": [
			{"name": "Dr. Low", "positive_mentions": 2, "negative_mentions": 1, "net_score": 10, "sample_quotes": ["decent"], "warnings": []},
			{"name": "Dr. High", "positive_mentions": 8, "negative_mentions": 0, "net_score": 85, "sample_quotes": ["excellent exam"], "warnings": []}
		],
		"total_mentions": 10,
		"reasoning": "Two examiners surfaced."
	}`})
	result, err := s.Synthesize(context.Background(), types.QueryTypeAMEQMESearch, "Find best AME: orthopedic", inputsFixture(6))
	require.NoError(t, err)
	assert.Equal(t, 85.0, result.Score)

	var payload types.AMEQMESynthesis
	require.NoError(t, json.Unmarshal([]byte(result.Reasoning), &payload))
	require.Len(t, payload.Doctors, 2)
	assert.Equal(t, "Dr. High", payload.Doctors[0].Name)
	assert.Equal(t, "Dr. Low", payload.Doctors[1].Name)
}

func TestSynthesizeCapsInputsAtFiftyMessages(t *testing.T) {
	fc := &fakeChat{reply: `{"score": 50, "evaluation": "mixed", "reasoning": "x"}`}
	s := New(fc)
	result, err := s.Synthesize(context.Background(), types.QueryTypeDoctorEval, "Evaluate doctor: Dr. Smith", inputsFixture(120))
	require.NoError(t, err)
	assert.Equal(t, types.EvaluationMixed, result.Evaluation)
	assert.Contains(t, fc.lastPrompt, "\n50. From:")
	assert.NotContains(t, fc.lastPrompt, "\n51. From:")
}
