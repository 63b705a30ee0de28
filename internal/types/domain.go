package types

import "time"

// Search represents one user request and its lifecycle through the
// pipeline. Immutable once Status reaches a terminal state (completed
// or failed).
type Search struct {
	ID            string       `json:"id"`
	SearchNumber  int64        `json:"search_number"`
	Spec          SearchSpec   `json:"spec"`
	RealQuestion  string       `json:"real_question"`
	QueryType     QueryType    `json:"query_type"`
	Status        SearchStatus `json:"status"`
	MessagesFound int          `json:"messages_found"`
	Analyzed      int          `json:"analyzed"`
	Relevant      int          `json:"relevant"`
	CreatedAt     time.Time    `json:"created_at"`
	StartedAt     *time.Time   `json:"started_at,omitempty"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
}

// Message is one archive message, globally deduplicated by UpstreamID.
type Message struct {
	ID            string    `json:"id"`
	UpstreamID    string    `json:"upstream_id"`
	PostedAt      time.Time `json:"posted_at"`
	FromDisplay   string    `json:"from_display"`
	FromEmail     string    `json:"from_email"`
	Listserv      Listserv  `json:"listserv"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	BodyLength    int       `json:"body_length"`
	HasAttachment bool      `json:"has_attachment"`
}

// SearchResult links a Search to a Message at the rank and page the
// Retriever observed it at. Unique on (SearchID, MessageID).
type SearchResult struct {
	SearchID  string `json:"search_id"`
	MessageID string `json:"message_id"`
	Position  int    `json:"position"`
	Page      int    `json:"page"`
}

// Analysis is the Scorer's per-(search, message) verdict. Unique on
// (SearchID, MessageID); writes are upsert-idempotent.
type Analysis struct {
	ID         string    `json:"id"`
	SearchID   string    `json:"search_id"`
	MessageID  string    `json:"message_id"`
	IsRelevant bool      `json:"is_relevant"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
	ModelID    string    `json:"model_id"`
	TokensUsed int       `json:"tokens_used"`
	Cost       float64   `json:"cost"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// SynthesisResult is the Synthesizer's per-search verdict, present only
// for evaluation-mode and AME/QME searches in the completed state.
// Unique per search.
type SynthesisResult struct {
	SearchID   string     `json:"search_id"`
	Score      float64    `json:"score"`
	Evaluation Evaluation `json:"evaluation"`
	Reasoning  string     `json:"reasoning"`
}

// DoctorRanking is one entry of an AME/QME recommendation synthesis.
type DoctorRanking struct {
	Name             string   `json:"name"`
	PositiveMentions int      `json:"positive_mentions"`
	NegativeMentions int      `json:"negative_mentions"`
	NetScore         int      `json:"net_score"`
	SampleQuotes     []string `json:"sample_quotes,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

// AMEQMESynthesis is the structured payload for query_type=ame_qme_search,
// serialized into SynthesisResult.Reasoning's backing JSON by the
// Synthesizer; kept as its own type so ranking logic has something
// concrete to sort.
type AMEQMESynthesis struct {
	Doctors       []DoctorRanking `json:"doctors"`
	TotalMentions int             `json:"total_mentions"`
	Reasoning     string          `json:"reasoning"`
}

// SynthesisFeedback is an append-only quality signal on a SynthesisResult.
type SynthesisFeedback struct {
	ID         string    `json:"id"`
	SearchID   string    `json:"search_id"`
	IsPositive bool      `json:"is_positive"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// MessageFeedback is an append-only quality signal on a single Analysis.
type MessageFeedback struct {
	ID         string    `json:"id"`
	SearchID   string    `json:"search_id"`
	MessageID  string    `json:"message_id"`
	IsPositive bool      `json:"is_positive"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SearchStats summarizes the analyses recorded for a search, per
// Store.search_stats.
type SearchStats struct {
	TotalResults  int     `json:"total_results"`
	Analyzed      int     `json:"analyzed"`
	Relevant      int     `json:"relevant"`
	AvgConfidence float64 `json:"avg_confidence"`
}
