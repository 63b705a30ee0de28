package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/caaa-research/engine/internal/models/chat"
	"github.com/caaa-research/engine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	reply string
	err   error
}

func (f *fakeChat) ModelName() string { return "fake-model" }

func (f *fakeChat) Complete(ctx context.Context, messages []chat.Message, opts *chat.Options) (*chat.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &chat.Response{Content: f.reply}, nil
}

func TestPlanGeneralParsesFieldsAndPrefersAny(t *testing.T) {
	p := New(&fakeChat{reply: `{"keywords_any": "SIBTF, Subsequent Injuries Benefits Trust Fund, application"}`})
	spec, err := p.Plan(context.Background(), types.QueryTypeGeneral, "discussions about SIBTF applications")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"SIBTF", "Subsequent Injuries Benefits Trust Fund", "application"}, spec.KeywordsAny)
	assert.Empty(t, spec.KeywordsAll)
}

func TestPlanGeneralAppliesTemporalCueWhenModelOmitsDateFrom(t *testing.T) {
	p := New(&fakeChat{reply: `{"keywords_any": "SIBTF"}`})
	spec, err := p.Plan(context.Background(), types.QueryTypeGeneral, "recent discussions about SIBTF applications")
	require.NoError(t, err)
	require.NotNil(t, spec.DateFrom)
	assert.Nil(t, spec.DateTo)
}

func TestPlanGeneralNormalizesSpaceSeparatedKeywords(t *testing.T) {
	p := New(&fakeChat{reply: `{"keywords_any": "a b c"}`})
	spec, err := p.Plan(context.Background(), types.QueryTypeGeneral, "question")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, spec.KeywordsAny)
}

func TestPlanFallsBackToSimpleOnUnparsableReply(t *testing.T) {
	p := New(&fakeChat{reply: "not json"})
	spec, err := p.Plan(context.Background(), types.QueryTypeGeneral, "an under-specified question")
	require.NoError(t, err)
	assert.Equal(t, "an under-specified question", spec.Simple)
	assert.Equal(t, "an under-specified question", spec.ToUpstreamForm().Get("s_fname"))
}

func TestPlanFallsBackToSimpleOnReasoningUnavailable(t *testing.T) {
	p := New(&fakeChat{err: errors.New("connection refused")})
	spec, err := p.Plan(context.Background(), types.QueryTypeGeneral, "an under-specified question")
	require.NoError(t, err)
	assert.Equal(t, "an under-specified question", spec.Simple)
}

func TestPlanJudgeEvalIsDeterministicAndIgnoresBackend(t *testing.T) {
	p := New(&fakeChat{err: errors.New("should never be called")})
	spec, err := p.Plan(context.Background(), types.QueryTypeJudgeEval, "Judge Dobrin")
	require.NoError(t, err)
	assert.Empty(t, spec.KeywordsAll)
	assert.Contains(t, spec.KeywordsAny, "Dobrin")
	assert.Contains(t, spec.KeywordsAny, "Judge Dobrin")
	assert.Contains(t, spec.KeywordsAny, "WCJ Dobrin")
	assert.Contains(t, spec.KeywordsAny, "Dobrin WCJ")
}

func TestPlanJudgeEvalStripsTitlesFromBareLastName(t *testing.T) {
	p := New(&fakeChat{})
	spec, err := p.Plan(context.Background(), types.QueryTypeJudgeEval, "Honorable Dobrin")
	require.NoError(t, err)
	assert.Contains(t, spec.KeywordsAny, "Dobrin")
	assert.Contains(t, spec.KeywordsAny, "Honorable Dobrin")
	for _, v := range spec.KeywordsAny {
		assert.NotContains(t, v, "Honorable Dobrin Honorable")
	}
}

func TestPlanDefenseAttorneyEvalFixesLastNameAndContext(t *testing.T) {
	p := New(&fakeChat{err: errors.New("should never be called")})
	spec, err := p.Plan(context.Background(), types.QueryTypeDefenseAttorneyEval, "Jane Roe")
	require.NoError(t, err)
	assert.Equal(t, []string{"Roe"}, spec.KeywordsAll)
	assert.Contains(t, spec.KeywordsAny, "deposition")
	assert.Contains(t, spec.KeywordsAny, "settlement")
}

func TestPlanInsuranceCompanyEvalUsesAbbreviation(t *testing.T) {
	p := New(&fakeChat{reply: "SCIF"})
	spec, err := p.Plan(context.Background(), types.QueryTypeInsuranceCompanyEval, "State Compensation Insurance Fund")
	require.NoError(t, err)
	assert.Equal(t, []string{"SCIF"}, spec.KeywordsAll)
	assert.Contains(t, spec.KeywordsAny, "carrier")
}

func TestPlanInsuranceCompanyEvalFallsBackToFirstTokenOnFailure(t *testing.T) {
	p := New(&fakeChat{err: errors.New("connection refused")})
	spec, err := p.Plan(context.Background(), types.QueryTypeInsuranceCompanyEval, "State Compensation Insurance Fund")
	require.NoError(t, err)
	assert.Equal(t, []string{"State"}, spec.KeywordsAll)
}

func TestPlanDoctorEvalUsesGeneralPlannerWithFixedPreamble(t *testing.T) {
	var sentPrompt string
	p := New(recordingChat{fn: func(messages []chat.Message) (*chat.Response, error) {
		for _, m := range messages {
			if m.Role == "user" {
				sentPrompt = m.Content
			}
		}
		return &chat.Response{Content: `{"keywords_any": "Dr. Smith, Smith"}`}, nil
	}})
	spec, err := p.Plan(context.Background(), types.QueryTypeDoctorEval, "Dr. Smith")
	require.NoError(t, err)
	assert.Contains(t, sentPrompt, "Find all messages mentioning the doctor Dr. Smith")
	assert.Contains(t, spec.KeywordsAny, "Dr. Smith")
}

type recordingChat struct {
	fn func([]chat.Message) (*chat.Response, error)
}

func (r recordingChat) ModelName() string { return "fake-model" }

func (r recordingChat) Complete(ctx context.Context, messages []chat.Message, opts *chat.Options) (*chat.Response, error) {
	return r.fn(messages)
}
