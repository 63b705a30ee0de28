// Package store persists searches, messages, analyses, synthesis
// results and feedback on top of gorm/postgres.
package store

import (
	"encoding/json"
	"time"

	"github.com/caaa-research/engine/internal/types"
)

// searchRow is the gorm model for the searches table.
type searchRow struct {
	ID            string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SearchNumber  int64      `gorm:"autoIncrement;not null"`
	Spec          string     `gorm:"type:jsonb;not null"`
	RealQuestion  string     `gorm:"not null"`
	QueryType     string     `gorm:"type:text;not null"`
	Status        string     `gorm:"type:text;not null;default:pending"`
	MessagesFound int        `gorm:"not null;default:0"`
	Analyzed      int        `gorm:"not null;default:0"`
	Relevant      int        `gorm:"not null;default:0"`
	CreatedAt     time.Time  `gorm:"not null;autoCreateTime"`
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

func (searchRow) TableName() string { return "searches" }

func (r searchRow) toDomain() (types.Search, error) {
	var spec types.SearchSpec
	if err := json.Unmarshal([]byte(r.Spec), &spec); err != nil {
		return types.Search{}, err
	}
	return types.Search{
		ID:            r.ID,
		SearchNumber:  r.SearchNumber,
		Spec:          spec,
		RealQuestion:  r.RealQuestion,
		QueryType:     types.QueryType(r.QueryType),
		Status:        types.SearchStatus(r.Status),
		MessagesFound: r.MessagesFound,
		Analyzed:      r.Analyzed,
		Relevant:      r.Relevant,
		CreatedAt:     r.CreatedAt,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
	}, nil
}

// messageRow is the gorm model for the messages table. Deduplicated
// globally by UpstreamID.
type messageRow struct {
	ID            string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UpstreamID    string `gorm:"uniqueIndex;not null"`
	PostedAt      time.Time
	FromDisplay   string
	FromEmail     string
	Listserv      string `gorm:"type:text"`
	Subject       string
	Body          string `gorm:"type:text"`
	BodyLength    int
	HasAttachment bool
}

func (messageRow) TableName() string { return "messages" }

func (r messageRow) toDomain() types.Message {
	return types.Message{
		ID:            r.ID,
		UpstreamID:    r.UpstreamID,
		PostedAt:      r.PostedAt,
		FromDisplay:   r.FromDisplay,
		FromEmail:     r.FromEmail,
		Listserv:      types.Listserv(r.Listserv),
		Subject:       r.Subject,
		Body:          r.Body,
		BodyLength:    r.BodyLength,
		HasAttachment: r.HasAttachment,
	}
}

func messageRowFrom(m types.Message) messageRow {
	return messageRow{
		UpstreamID:    m.UpstreamID,
		PostedAt:      m.PostedAt,
		FromDisplay:   m.FromDisplay,
		FromEmail:     m.FromEmail,
		Listserv:      string(m.Listserv),
		Subject:       m.Subject,
		Body:          m.Body,
		BodyLength:    len(m.Body),
		HasAttachment: m.HasAttachment,
	}
}

// searchResultRow links a search to a message (unique on search+message).
type searchResultRow struct {
	SearchID  string `gorm:"primaryKey"`
	MessageID string `gorm:"primaryKey"`
	Position  int
	Page      int
}

func (searchResultRow) TableName() string { return "search_results" }

// analysisRow is the Scorer's per-(search, message) verdict. Upsert-idempotent.
type analysisRow struct {
	ID         string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SearchID   string `gorm:"uniqueIndex:idx_analyses_search_message;not null"`
	MessageID  string `gorm:"uniqueIndex:idx_analyses_search_message;not null"`
	IsRelevant bool
	Confidence float64
	Reasoning  string `gorm:"type:text"`
	ModelID    string
	TokensUsed int
	Cost       float64
	AnalyzedAt time.Time
}

func (analysisRow) TableName() string { return "analyses" }

func (r analysisRow) toDomain() types.Analysis {
	return types.Analysis{
		ID:         r.ID,
		SearchID:   r.SearchID,
		MessageID:  r.MessageID,
		IsRelevant: r.IsRelevant,
		Confidence: r.Confidence,
		Reasoning:  r.Reasoning,
		ModelID:    r.ModelID,
		TokensUsed: r.TokensUsed,
		Cost:       r.Cost,
		AnalyzedAt: r.AnalyzedAt,
	}
}

// synthesisResultRow is the Synthesizer's per-search verdict, present
// only for evaluation-mode and AME/QME searches.
type synthesisResultRow struct {
	SearchID   string `gorm:"primaryKey"`
	Score      float64
	Evaluation string `gorm:"type:text"`
	Reasoning  string `gorm:"type:text"`
}

func (synthesisResultRow) TableName() string { return "synthesis_results" }

type synthesisFeedbackRow struct {
	ID         string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SearchID   string    `gorm:"not null"`
	IsPositive bool
	Comment    string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (synthesisFeedbackRow) TableName() string { return "synthesis_feedback" }

type messageFeedbackRow struct {
	ID         string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SearchID   string    `gorm:"not null"`
	MessageID  string    `gorm:"not null"`
	IsPositive bool
	Comment    string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (messageFeedbackRow) TableName() string { return "message_feedback" }
