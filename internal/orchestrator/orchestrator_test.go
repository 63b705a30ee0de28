package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	appErrors "github.com/caaa-research/engine/internal/errors"
	"github.com/caaa-research/engine/internal/types"
	"github.com/caaa-research/engine/internal/types/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is a minimal in-memory interfaces.Store for exercising the
// Orchestrator's state-machine transitions and counter bookkeeping
// without a real database.
type fakeStore struct {
	mu sync.Mutex

	search       types.Search
	statuses     []types.SearchStatus
	messages     map[string]types.Message
	idByUpstream map[string]string
	analyses     map[string]types.Analysis // keyed by messageID
	synthesis    *types.SynthesisResult
	nextMsgID    int
	linkErr      error
}

func newFakeStore(search types.Search) *fakeStore {
	return &fakeStore{
		search:       search,
		messages:     make(map[string]types.Message),
		idByUpstream: make(map[string]string),
		analyses:     make(map[string]types.Analysis),
	}
}

func (f *fakeStore) CreateSearch(ctx context.Context, spec types.SearchSpec, realQuestion string, queryType types.QueryType) (string, error) {
	return "unused", nil
}

func (f *fakeStore) UpdateSearchStatus(ctx context.Context, searchID string, status types.SearchStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	f.search.Status = status
	return nil
}

func (f *fakeStore) UpdateSearchCounters(ctx context.Context, searchID string, messagesFound, analyzed, relevant *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if messagesFound != nil {
		f.search.MessagesFound = *messagesFound
	}
	if analyzed != nil {
		f.search.Analyzed = *analyzed
	}
	if relevant != nil {
		f.search.Relevant = *relevant
	}
	return nil
}

func (f *fakeStore) GetSearch(ctx context.Context, searchID string) (*types.Search, error) {
	s := f.search
	return &s, nil
}

func (f *fakeStore) RecentSearches(ctx context.Context, limit int) ([]types.Search, error) {
	return []types.Search{f.search}, nil
}

// UpsertMessage dedupes by UpstreamID, mirroring the real Store:
// re-retrieving the same upstream message returns the same message id
// instead of minting a new row.
func (f *fakeStore) UpsertMessage(ctx context.Context, msg types.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.idByUpstream[msg.UpstreamID]; ok {
		f.messages[id] = msg
		return id, nil
	}
	f.nextMsgID++
	id := fmt.Sprintf("msg-%d", f.nextMsgID)
	f.idByUpstream[msg.UpstreamID] = id
	f.messages[id] = msg
	return id, nil
}

func (f *fakeStore) LinkResult(ctx context.Context, searchID, messageID string, position, page int) error {
	return f.linkErr
}

func (f *fakeStore) SaveAnalysis(ctx context.Context, analysis types.Analysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyses[analysis.MessageID] = analysis
	return nil
}

func (f *fakeStore) AnalysisExists(ctx context.Context, searchID, messageID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.analyses[messageID]
	return ok, nil
}

func (f *fakeStore) SaveSynthesis(ctx context.Context, searchID string, synthesis types.SynthesisResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := synthesis
	f.synthesis = &s
	return nil
}

func (f *fakeStore) RelevantResults(ctx context.Context, searchID string) ([]types.Message, []types.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var messages []types.Message
	var analyses []types.Analysis
	for id, a := range f.analyses {
		messages = append(messages, f.messages[id])
		analyses = append(analyses, a)
	}
	return messages, analyses, nil
}

func (f *fakeStore) SearchStats(ctx context.Context, searchID string) (types.SearchStats, error) {
	return types.SearchStats{}, nil
}

func (f *fakeStore) SaveSynthesisFeedback(ctx context.Context, feedback types.SynthesisFeedback) error {
	return nil
}

func (f *fakeStore) SaveMessageFeedback(ctx context.Context, feedback types.MessageFeedback) error {
	return nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

// fakeRetriever returns a fixed set of messages, or an error.
type fakeRetriever struct {
	messages []interfaces.RetrievedMessage
	err      error
}

func (r *fakeRetriever) Retrieve(ctx context.Context, spec types.SearchSpec, onProgress interfaces.ProgressFunc) ([]interfaces.RetrievedMessage, error) {
	if onProgress != nil && len(r.messages) > 0 {
		onProgress(interfaces.PageProgress{Page: 1, RowsThisPage: len(r.messages), TotalSoFar: len(r.messages)})
	}
	return r.messages, r.err
}

// fakeScorer marks every message whose sender is relevantFrom relevant
// at high confidence and everything else not relevant, mirroring the
// author-anchored special case without needing a real LLM.
type fakeScorer struct {
	relevantFrom string
	failAll      bool
}

func (s *fakeScorer) Score(ctx context.Context, realQuestion string, queryType types.QueryType, msg types.Message) (interfaces.ScoreVerdict, error) {
	if s.failAll {
		return interfaces.ScoreVerdict{}, errors.New("scorer unavailable")
	}
	if s.relevantFrom != "" && msg.FromDisplay == s.relevantFrom {
		return interfaces.ScoreVerdict{IsRelevant: true, Confidence: 0.95, Reasoning: "author-anchored"}, nil
	}
	return interfaces.ScoreVerdict{IsRelevant: false, Confidence: 0.1, Reasoning: "not relevant"}, nil
}

func (s *fakeScorer) UsageStats() interfaces.UsageStats { return interfaces.UsageStats{} }

// fakeSynthesizer returns a fixed result and counts its calls, so a
// test can check whether synthesis was bypassed.
type fakeSynthesizer struct {
	result types.SynthesisResult
	calls  int
}

func (s *fakeSynthesizer) Synthesize(ctx context.Context, queryType types.QueryType, realQuestion string, inputs []interfaces.SynthesisInput) (types.SynthesisResult, error) {
	s.calls++
	return s.result, nil
}

func messagesFixture(n int, fromDisplay string) []interfaces.RetrievedMessage {
	out := make([]interfaces.RetrievedMessage, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, interfaces.RetrievedMessage{
			Message:  types.Message{UpstreamID: fmt.Sprintf("u%d", i), FromDisplay: fromDisplay, Subject: "subj"},
			Position: i + 1,
			Page:     1,
		})
	}
	return out
}

func TestRunGeneralSearchCompletesWithoutSynthesis(t *testing.T) {
	store := newFakeStore(types.Search{ID: "s1", QueryType: types.QueryTypeGeneral, RealQuestion: "recent SIBTF discussions"})
	retriever := &fakeRetriever{messages: messagesFixture(5, "Someone")}
	scorer := &fakeScorer{}
	synth := &fakeSynthesizer{}

	o := New(store, retriever, scorer, synth)
	err := o.Run(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, 0, synth.calls)
	assert.Equal(t, types.SearchStatusCompleted, store.search.Status)
	assert.Nil(t, store.synthesis)
	assert.Equal(t, 5, store.search.MessagesFound)
}

func TestRunAuthorAnchoredSearchMarksSenderMessagesRelevant(t *testing.T) {
	store := newFakeStore(types.Search{ID: "s1", QueryType: types.QueryTypeGeneral, RealQuestion: "Find ALL messages from Chris Johnson"})
	retriever := &fakeRetriever{messages: messagesFixture(3, "Chris Johnson")}
	scorer := &fakeScorer{relevantFrom: "Chris Johnson"}
	synth := &fakeSynthesizer{}

	o := New(store, retriever, scorer, synth)
	err := o.Run(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, 3, store.search.Relevant)
	for _, a := range store.analyses {
		assert.True(t, a.IsRelevant)
		assert.GreaterOrEqual(t, a.Confidence, 0.9)
	}
}

func TestRunEvaluationModeBypassesSynthesizerBelowThreshold(t *testing.T) {
	store := newFakeStore(types.Search{ID: "s1", QueryType: types.QueryTypeJudgeEval, RealQuestion: "Judge Dobrin"})
	retriever := &fakeRetriever{messages: messagesFixture(2, "Someone")}
	scorer := &fakeScorer{relevantFrom: "Someone"} // only 2 relevant, below threshold of 3
	synth := &fakeSynthesizer{}

	o := New(store, retriever, scorer, synth)
	err := o.Run(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, 0, synth.calls)
	require.NotNil(t, store.synthesis)
	assert.Equal(t, types.EvaluationInsufficientData, store.synthesis.Evaluation)
	assert.Equal(t, 0.0, store.synthesis.Score)
}

func TestRunEvaluationModeCallsSynthesizerAtThreshold(t *testing.T) {
	store := newFakeStore(types.Search{ID: "s1", QueryType: types.QueryTypeJudgeEval, RealQuestion: "Judge Dobrin"})
	retriever := &fakeRetriever{messages: messagesFixture(4, "Someone")}
	scorer := &fakeScorer{relevantFrom: "Someone"} // all 4 relevant
	synth := &fakeSynthesizer{result: types.SynthesisResult{Score: 80, Evaluation: types.EvaluationGood, Reasoning: "Solid track record."}}

	o := New(store, retriever, scorer, synth)
	err := o.Run(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, 1, synth.calls)
	require.NotNil(t, store.synthesis)
	assert.Equal(t, types.EvaluationGood, store.synthesis.Evaluation)
	assert.Equal(t, 80.0, store.synthesis.Score)
	assert.Equal(t, types.SearchStatusCompleted, store.search.Status)
}

func TestRunSkipsAlreadyAnalyzedMessages(t *testing.T) {
	store := newFakeStore(types.Search{ID: "s1", QueryType: types.QueryTypeGeneral, RealQuestion: "q"})
	msgs := messagesFixture(2, "Someone")
	retriever := &fakeRetriever{messages: msgs}
	scorer := &scoreCountingScorer{}
	synth := &fakeSynthesizer{}

	o := New(store, retriever, scorer, synth)
	require.NoError(t, o.Run(context.Background(), "s1"))
	firstCalls := scorer.calls

	// Re-running the same search (e.g. a resumed worker) must not
	// re-score messages that already have an Analysis row.
	require.NoError(t, o.Run(context.Background(), "s1"))
	assert.Equal(t, firstCalls, scorer.calls)
}

type scoreCountingScorer struct {
	calls int
}

func (s *scoreCountingScorer) Score(ctx context.Context, realQuestion string, queryType types.QueryType, msg types.Message) (interfaces.ScoreVerdict, error) {
	s.calls++
	return interfaces.ScoreVerdict{IsRelevant: false, Confidence: 0.1, Reasoning: "x"}, nil
}

func (s *scoreCountingScorer) UsageStats() interfaces.UsageStats { return interfaces.UsageStats{} }

func TestRunRetrievalFailureMarksSearchFailed(t *testing.T) {
	store := newFakeStore(types.Search{ID: "s1", QueryType: types.QueryTypeGeneral, RealQuestion: "q"})
	retriever := &fakeRetriever{err: appErrors.New(appErrors.KindCookieExpired, errors.New("login redirect"))}
	scorer := &fakeScorer{}
	synth := &fakeSynthesizer{}

	o := New(store, retriever, scorer, synth)
	err := o.Run(context.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, types.SearchStatusFailed, store.search.Status)
	assert.Nil(t, store.synthesis)
}
