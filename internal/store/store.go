package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/caaa-research/engine/internal/types"
	"github.com/caaa-research/engine/internal/types/interfaces"
	"gorm.io/gorm"
)

// ErrSearchNotFound is returned when a search id has no matching row.
var ErrSearchNotFound = errors.New("search not found")

// gormStore implements interfaces.Store over a *gorm.DB: one struct
// wrapping the handle, each method a short WithContext call.
type gormStore struct {
	db *gorm.DB
}

// New wires a Store over an already-connected *gorm.DB.
func New(db *gorm.DB) interfaces.Store {
	return &gormStore{db: db}
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *gormStore) CreateSearch(ctx context.Context, spec types.SearchSpec, realQuestion string, queryType types.QueryType) (string, error) {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("marshaling search spec: %w", err)
	}
	row := searchRow{
		Spec:         string(specJSON),
		RealQuestion: realQuestion,
		QueryType:    string(queryType),
		Status:       string(types.SearchStatusPending),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("creating search: %w", err)
	}
	return row.ID, nil
}

func (s *gormStore) UpdateSearchStatus(ctx context.Context, searchID string, status types.SearchStatus) error {
	updates := map[string]interface{}{"status": string(status)}
	switch status {
	case types.SearchStatusRunning:
		updates["started_at"] = gorm.Expr("now()")
	case types.SearchStatusCompleted, types.SearchStatusFailed:
		updates["completed_at"] = gorm.Expr("now()")
	}
	res := s.db.WithContext(ctx).Model(&searchRow{}).Where("id = ?", searchID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("updating search status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSearchNotFound
	}
	return nil
}

// UpdateSearchCounters records running progress between retrieval,
// scoring and synthesis without forcing a status change.
func (s *gormStore) UpdateSearchCounters(ctx context.Context, searchID string, messagesFound, analyzed, relevant *int) error {
	updates := map[string]interface{}{}
	if messagesFound != nil {
		updates["messages_found"] = *messagesFound
	}
	if analyzed != nil {
		updates["analyzed"] = *analyzed
	}
	if relevant != nil {
		updates["relevant"] = *relevant
	}
	if len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&searchRow{}).Where("id = ?", searchID).Updates(updates).Error
}

func (s *gormStore) GetSearch(ctx context.Context, searchID string) (*types.Search, error) {
	var row searchRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", searchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSearchNotFound
		}
		return nil, err
	}
	search, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &search, nil
}

func (s *gormStore) RecentSearches(ctx context.Context, limit int) ([]types.Search, error) {
	var rows []searchRow
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Search, 0, len(rows))
	for _, row := range rows {
		search, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, search)
	}
	return out, nil
}

// UpsertMessage dedupes by UpstreamID and merges body length: a
// re-fetch only overwrites the stored body when the new body is
// longer, or the previous value was placeholder-short.
func (s *gormStore) UpsertMessage(ctx context.Context, msg types.Message) (string, error) {
	var existing messageRow
	err := s.db.WithContext(ctx).Where("upstream_id = ?", msg.UpstreamID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := messageRowFrom(msg)
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return "", fmt.Errorf("creating message: %w", err)
		}
		return row.ID, nil
	case err != nil:
		return "", fmt.Errorf("looking up message: %w", err)
	}

	if shouldRefineBody(existing.BodyLength, len(msg.Body)) {
		existing.Body = msg.Body
		existing.BodyLength = len(msg.Body)
		existing.HasAttachment = existing.HasAttachment || msg.HasAttachment
		if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return "", fmt.Errorf("refining message body: %w", err)
		}
	}
	return existing.ID, nil
}

// placeholderBodyThreshold is the body length below which a
// previously stored body is considered a placeholder and always
// replaced on re-fetch.
const placeholderBodyThreshold = 10

// shouldRefineBody reports whether a message body is overwritten: when
// the new body is longer, or the stored body was placeholder-short.
func shouldRefineBody(existingLen, newLen int) bool {
	return newLen > existingLen || existingLen < placeholderBodyThreshold
}

func (s *gormStore) LinkResult(ctx context.Context, searchID, messageID string, position, page int) error {
	row := searchResultRow{SearchID: searchID, MessageID: messageID, Position: position, Page: page}
	return s.db.WithContext(ctx).
		Where("search_id = ? AND message_id = ?", searchID, messageID).
		FirstOrCreate(&row).Error
}

// SaveAnalysis upserts on (search_id, message_id).
func (s *gormStore) SaveAnalysis(ctx context.Context, analysis types.Analysis) error {
	var existing analysisRow
	err := s.db.WithContext(ctx).
		Where("search_id = ? AND message_id = ?", analysis.SearchID, analysis.MessageID).
		First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := analysisRow{
			SearchID:   analysis.SearchID,
			MessageID:  analysis.MessageID,
			IsRelevant: analysis.IsRelevant,
			Confidence: analysis.Confidence,
			Reasoning:  analysis.Reasoning,
			ModelID:    analysis.ModelID,
			TokensUsed: analysis.TokensUsed,
			Cost:       analysis.Cost,
			AnalyzedAt: analysis.AnalyzedAt,
		}
		return s.db.WithContext(ctx).Create(&row).Error
	case err != nil:
		return err
	}
	existing.IsRelevant = analysis.IsRelevant
	existing.Confidence = analysis.Confidence
	existing.Reasoning = analysis.Reasoning
	existing.ModelID = analysis.ModelID
	existing.TokensUsed = analysis.TokensUsed
	existing.Cost = analysis.Cost
	existing.AnalyzedAt = analysis.AnalyzedAt
	return s.db.WithContext(ctx).Save(&existing).Error
}

func (s *gormStore) AnalysisExists(ctx context.Context, searchID, messageID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&analysisRow{}).
		Where("search_id = ? AND message_id = ?", searchID, messageID).
		Count(&count).Error
	return count > 0, err
}

// SaveSynthesis writes at most one SynthesisResult per search; callers
// only invoke it for evaluation-mode and AME/QME searches.
func (s *gormStore) SaveSynthesis(ctx context.Context, searchID string, synthesis types.SynthesisResult) error {
	row := synthesisResultRow{
		SearchID:   searchID,
		Score:      synthesis.Score,
		Evaluation: string(synthesis.Evaluation),
		Reasoning:  synthesis.Reasoning,
	}
	return s.db.WithContext(ctx).
		Where("search_id = ?", searchID).
		Assign(row).
		FirstOrCreate(&row).Error
}

// relevantResultRow flattens the search_results/messages/analyses join
// with explicit column aliases: messages and analyses both have an
// "id" column, so "m.*, a.*" would collide on scan if selected
// unaliased.
type relevantResultRow struct {
	MessageID     string    `gorm:"column:message_id"`
	UpstreamID    string    `gorm:"column:upstream_id"`
	PostedAt      time.Time `gorm:"column:posted_at"`
	FromDisplay   string    `gorm:"column:from_display"`
	FromEmail     string    `gorm:"column:from_email"`
	Listserv      string    `gorm:"column:listserv"`
	Subject       string    `gorm:"column:subject"`
	Body          string    `gorm:"column:body"`
	BodyLength    int       `gorm:"column:body_length"`
	HasAttachment bool      `gorm:"column:has_attachment"`
	AnalysisID    string    `gorm:"column:analysis_id"`
	IsRelevant    bool      `gorm:"column:is_relevant"`
	Confidence    float64   `gorm:"column:confidence"`
	Reasoning     string    `gorm:"column:reasoning"`
	ModelID       string    `gorm:"column:model_id"`
	TokensUsed    int       `gorm:"column:tokens_used"`
	Cost          float64   `gorm:"column:cost"`
	AnalyzedAt    time.Time `gorm:"column:analyzed_at"`
}

// RelevantResults returns every Message with an Analysis for the
// search, preserving upstream result-position order.
func (s *gormStore) RelevantResults(ctx context.Context, searchID string) ([]types.Message, []types.Analysis, error) {
	var rows []relevantResultRow
	err := s.db.WithContext(ctx).
		Table("search_results sr").
		Select(`m.id AS message_id, m.upstream_id, m.posted_at, m.from_display, m.from_email,
			m.listserv, m.subject, m.body, m.body_length, m.has_attachment,
			a.id AS analysis_id, a.is_relevant, a.confidence, a.reasoning, a.model_id, a.tokens_used, a.cost, a.analyzed_at`).
		Joins("JOIN messages m ON sr.message_id = m.id").
		Joins("JOIN analyses a ON sr.search_id = a.search_id AND sr.message_id = a.message_id").
		Where("sr.search_id = ?", searchID).
		Order("sr.position").
		Scan(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	messages := make([]types.Message, 0, len(rows))
	analyses := make([]types.Analysis, 0, len(rows))
	for _, r := range rows {
		messages = append(messages, types.Message{
			ID:            r.MessageID,
			UpstreamID:    r.UpstreamID,
			PostedAt:      r.PostedAt,
			FromDisplay:   r.FromDisplay,
			FromEmail:     r.FromEmail,
			Listserv:      types.Listserv(r.Listserv),
			Subject:       r.Subject,
			Body:          r.Body,
			BodyLength:    r.BodyLength,
			HasAttachment: r.HasAttachment,
		})
		analyses = append(analyses, types.Analysis{
			ID:         r.AnalysisID,
			SearchID:   searchID,
			MessageID:  r.MessageID,
			IsRelevant: r.IsRelevant,
			Confidence: r.Confidence,
			Reasoning:  r.Reasoning,
			ModelID:    r.ModelID,
			TokensUsed: r.TokensUsed,
			Cost:       r.Cost,
			AnalyzedAt: r.AnalyzedAt,
		})
	}
	return messages, analyses, nil
}

func (s *gormStore) SearchStats(ctx context.Context, searchID string) (types.SearchStats, error) {
	var stats types.SearchStats
	row := s.db.WithContext(ctx).
		Table("search_results sr").
		Joins("LEFT JOIN analyses a ON sr.search_id = a.search_id AND sr.message_id = a.message_id").
		Where("sr.search_id = ?", searchID).
		Select(`
			COUNT(DISTINCT sr.message_id) AS total_results,
			COUNT(DISTINCT a.id) AS analyzed,
			COUNT(DISTINCT a.id) FILTER (WHERE a.is_relevant) AS relevant,
			COALESCE(AVG(a.confidence) FILTER (WHERE a.is_relevant), 0) AS avg_confidence
		`).
		Row()
	if err := row.Scan(&stats.TotalResults, &stats.Analyzed, &stats.Relevant, &stats.AvgConfidence); err != nil {
		return types.SearchStats{}, err
	}
	return stats, nil
}

func (s *gormStore) SaveSynthesisFeedback(ctx context.Context, feedback types.SynthesisFeedback) error {
	row := synthesisFeedbackRow{
		SearchID:   feedback.SearchID,
		IsPositive: feedback.IsPositive,
		Comment:    feedback.Comment,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *gormStore) SaveMessageFeedback(ctx context.Context, feedback types.MessageFeedback) error {
	row := messageFeedbackRow{
		SearchID:   feedback.SearchID,
		MessageID:  feedback.MessageID,
		IsPositive: feedback.IsPositive,
		Comment:    feedback.Comment,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}
