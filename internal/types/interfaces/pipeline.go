package interfaces

import (
	"context"

	"github.com/caaa-research/engine/internal/types"
)

// Store is the durable-state boundary for every other component.
// Implementations must make LinkResult and UpsertMessage idempotent
// and SaveAnalysis an upsert.
type Store interface {
	CreateSearch(ctx context.Context, spec types.SearchSpec, realQuestion string, queryType types.QueryType) (string, error)
	UpdateSearchStatus(ctx context.Context, searchID string, status types.SearchStatus) error
	// UpdateSearchCounters writes running progress (messages_found,
	// analyzed, relevant) without forcing a status transition; nil
	// pointers leave that counter untouched. Kept separate from
	// UpdateSearchStatus so the Orchestrator can report progress
	// mid-stage without prematurely changing Status.
	UpdateSearchCounters(ctx context.Context, searchID string, messagesFound, analyzed, relevant *int) error
	GetSearch(ctx context.Context, searchID string) (*types.Search, error)
	RecentSearches(ctx context.Context, limit int) ([]types.Search, error)

	UpsertMessage(ctx context.Context, msg types.Message) (string, error)
	LinkResult(ctx context.Context, searchID, messageID string, position, page int) error

	SaveAnalysis(ctx context.Context, analysis types.Analysis) error
	AnalysisExists(ctx context.Context, searchID, messageID string) (bool, error)

	SaveSynthesis(ctx context.Context, searchID string, synthesis types.SynthesisResult) error

	RelevantResults(ctx context.Context, searchID string) ([]types.Message, []types.Analysis, error)
	SearchStats(ctx context.Context, searchID string) (types.SearchStats, error)

	SaveSynthesisFeedback(ctx context.Context, feedback types.SynthesisFeedback) error
	SaveMessageFeedback(ctx context.Context, feedback types.MessageFeedback) error

	Ping(ctx context.Context) error
}

// ClarifyResult is the Clarifier's verdict on a raw user intent.
type ClarifyResult struct {
	Vague        bool   `json:"vague"`
	FollowUp     string `json:"follow_up,omitempty"`
	RealQuestion string `json:"real_question,omitempty"`
}

// Clarifier decides whether a user's intent is specific enough to plan
// against, or needs one follow-up question first.
type Clarifier interface {
	Clarify(ctx context.Context, intent string) (ClarifyResult, error)
}

// QueryPlanner translates a (query_type, real_question) pair into a
// SearchSpec.
type QueryPlanner interface {
	Plan(ctx context.Context, queryType types.QueryType, realQuestion string) (types.SearchSpec, error)
}

// PageProgress is reported by the Retriever after each result page is
// collected, so the Orchestrator can update running counters without
// waiting for the whole search to finish.
type PageProgress struct {
	Page         int
	RowsThisPage int
	TotalSoFar   int
}

// ProgressFunc receives retrieval progress; implementations must
// return quickly since it is called from the retrieval loop.
type ProgressFunc func(PageProgress)

// Retriever drives the headless browser session against the upstream
// search UI and yields normalized message records.
type Retriever interface {
	Retrieve(ctx context.Context, spec types.SearchSpec, onProgress ProgressFunc) ([]RetrievedMessage, error)
}

// RetrievedMessage is one row the Retriever collected, carrying the
// position/page the Store needs for SearchResult plus the Message
// payload itself.
type RetrievedMessage struct {
	Message  types.Message
	Position int
	Page     int
}

// ScoreVerdict is the Scorer's per-message output.
type ScoreVerdict struct {
	IsRelevant bool
	Confidence float64
	Reasoning  string
	ModelID    string
	TokensUsed int
	Cost       float64
}

// Scorer judges one message against the REAL question.
type Scorer interface {
	Score(ctx context.Context, realQuestion string, queryType types.QueryType, msg types.Message) (ScoreVerdict, error)
	UsageStats() UsageStats
}

// UsageStats is the Scorer's cumulative cost accounting.
type UsageStats struct {
	TotalTokens  int
	TotalCostUSD float64
	Model        string
}

// SynthesisInput is one relevant message plus its Analysis, the unit
// the Synthesizer aggregates over.
type SynthesisInput struct {
	Message  types.Message
	Analysis types.Analysis
}

// Synthesizer aggregates all relevant messages for a named subject
// into a (score, evaluation, reasoning) verdict.
// Only invoked for evaluation-mode and AME/QME query types with >= 3 relevant
// messages; callers below that threshold persist insufficient_data
// directly without calling Synthesize.
type Synthesizer interface {
	Synthesize(ctx context.Context, queryType types.QueryType, realQuestion string, inputs []SynthesisInput) (types.SynthesisResult, error)
}
