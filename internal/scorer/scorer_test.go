package scorer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/caaa-research/engine/internal/models/chat"
	"github.com/caaa-research/engine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	reply string
	resp  *chat.Response
	err   error
}

func (f *fakeChat) ModelName() string { return "fake-model" }

func (f *fakeChat) Complete(ctx context.Context, messages []chat.Message, opts *chat.Options) (*chat.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &chat.Response{Content: f.reply, TotalTokens: 42}, nil
}

func msgFixture() types.Message {
	return types.Message{
		UpstreamID:  "123",
		FromDisplay: "Jane Roe",
		Subject:     "QME panel question",
		Body:        "Has anyone dealt with a difficult QME on a shoulder injury case?",
	}
}

func TestScoreParsesStrictJSON(t *testing.T) {
	s := New(&fakeChat{reply: `{"is_relevant": true, "confidence": 0.87, "reasoning": "Discusses a QME panel dispute directly on point."}`})
	verdict, err := s.Score(context.Background(), "QME disputes", types.QueryTypeGeneral, msgFixture())
	require.NoError(t, err)
	assert.True(t, verdict.IsRelevant)
	assert.InDelta(t, 0.87, verdict.Confidence, 0.0001)
	assert.Contains(t, verdict.Reasoning, "QME panel dispute")
	assert.Equal(t, "fake-model", verdict.ModelID)
	assert.Equal(t, 42, verdict.TokensUsed)
}

func TestScoreToleratesProseAroundJSON(t *testing.T) {
	s := New(&fakeChat{reply: "Sure, here is my answer:\n{\"is_relevant\": false, \"confidence\": 0.2, \"reasoning\": \"Off topic.\"}\nLet me know if you need more."})
	verdict, err := s.Score(context.Background(), "QME disputes", types.QueryTypeGeneral, msgFixture())
	require.NoError(t, err)
	assert.False(t, verdict.IsRelevant)
	assert.InDelta(t, 0.2, verdict.Confidence, 0.0001)
}

func TestScoreUnparsableJSONDefaultsConservative(t *testing.T) {
	s := New(&fakeChat{reply: "I cannot comply with this request."})
	verdict, err := s.Score(context.Background(), "QME disputes", types.QueryTypeGeneral, msgFixture())
	require.NoError(t, err)
	assert.False(t, verdict.IsRelevant)
	assert.Equal(t, 0.0, verdict.Confidence)
	assert.Equal(t, "Failed to parse", verdict.Reasoning)
}

func TestScoreReasoningUnavailableDefaultsAndDoesNotError(t *testing.T) {
	s := New(&fakeChat{err: errors.New("connection refused")})
	verdict, err := s.Score(context.Background(), "QME disputes", types.QueryTypeGeneral, msgFixture())
	require.NoError(t, err)
	assert.False(t, verdict.IsRelevant)
	assert.Equal(t, 0.0, verdict.Confidence)
}

func TestScoreClampsOutOfRangeConfidence(t *testing.T) {
	s := New(&fakeChat{reply: `{"is_relevant": true, "confidence": 1.4, "reasoning": "over"}`})
	verdict, err := s.Score(context.Background(), "QME disputes", types.QueryTypeGeneral, msgFixture())
	require.NoError(t, err)
	assert.Equal(t, 1.0, verdict.Confidence)

	s = New(&fakeChat{reply: `{"is_relevant": true, "confidence": -0.4, "reasoning": "under"}`})
	verdict, err = s.Score(context.Background(), "QME disputes", types.QueryTypeGeneral, msgFixture())
	require.NoError(t, err)
	assert.Equal(t, 0.0, verdict.Confidence)
}

func TestScoreSelectsEvalPromptFamilyByQueryType(t *testing.T) {
	prompt := buildPrompt(types.QueryTypeJudgeEval, "Evaluate judge: Judge Dobrin", "Jane Roe", "subj", "body")
	assert.Contains(t, prompt, "judge named")
	assert.Contains(t, prompt, "Evaluate judge: Judge Dobrin")

	prompt = buildPrompt(types.QueryTypeGeneral, "recent SIBTF discussions", "Jane Roe", "subj", "body")
	assert.Contains(t, prompt, "recent SIBTF discussions")
	assert.NotContains(t, prompt, "evaluating a")
}

func TestTruncateBodyPreservesMarker(t *testing.T) {
	long := strings.Repeat("a", bodyCharBudget+500)
	truncated := truncateBody(long)
	assert.True(t, strings.HasSuffix(truncated, truncationMarker))
	assert.LessOrEqual(t, len(truncated), bodyCharBudget+len(truncationMarker))
}

func TestTruncateBodyLeavesShortBodyAlone(t *testing.T) {
	assert.Equal(t, "short body", truncateBody("short body"))
}

func TestUsageStatsAccumulatesAcrossCalls(t *testing.T) {
	s := New(&fakeChat{reply: `{"is_relevant": true, "confidence": 0.5, "reasoning": "ok"}`, resp: &chat.Response{
		Content:     `{"is_relevant": true, "confidence": 0.5, "reasoning": "ok"}`,
		TotalTokens: 100,
	}})
	_, err := s.Score(context.Background(), "q", types.QueryTypeGeneral, msgFixture())
	require.NoError(t, err)
	_, err = s.Score(context.Background(), "q", types.QueryTypeGeneral, msgFixture())
	require.NoError(t, err)

	stats := s.UsageStats()
	assert.Equal(t, 200, stats.TotalTokens)
	assert.Greater(t, stats.TotalCostUSD, 0.0)
}
