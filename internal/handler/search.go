package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	appErrors "github.com/caaa-research/engine/internal/errors"
	"github.com/caaa-research/engine/internal/logger"
	"github.com/caaa-research/engine/internal/orchestrator"
	"github.com/caaa-research/engine/internal/types"
	"github.com/caaa-research/engine/internal/types/interfaces"
)

// SearchHandler is the thin HTTP surface over the pipeline: clarify,
// submit, poll status, and leave feedback. It never runs retrieval,
// scoring, or synthesis itself; every search is handed to the worker
// process via an enqueued asynq task.
type SearchHandler struct {
	store     interfaces.Store
	clarifier interfaces.Clarifier
	planner   interfaces.QueryPlanner
	tasks     *asynq.Client
}

// NewSearchHandler wires a SearchHandler over its collaborators.
func NewSearchHandler(store interfaces.Store, clarifier interfaces.Clarifier, planner interfaces.QueryPlanner, tasks *asynq.Client) *SearchHandler {
	return &SearchHandler{store: store, clarifier: clarifier, planner: planner, tasks: tasks}
}

// ClarifyRequest is the raw user intent to check for vagueness.
type ClarifyRequest struct {
	Intent string `json:"intent" binding:"required"`
}

// Clarify godoc
// @Summary      Check a user intent for vagueness
// @Description  Returns either a follow-up question or the resolved REAL question
// @Accept       json
// @Produce      json
// @Success      200  {object}  interfaces.ClarifyResult
// @Failure      400  {object}  errors.AppError
// @Router       /api/v1/clarify [post]
func (h *SearchHandler) Clarify(c *gin.Context) {
	ctx := logger.CloneContext(c.Request.Context())

	var req ClarifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(appErrors.NewBadRequestError(err.Error()))
		return
	}

	result, err := h.clarifier.Clarify(ctx, req.Intent)
	if err != nil {
		c.Error(appErrors.NewInternalServerError(err.Error()))
		return
	}
	respondOK(c, result)
}

// SubmitSearchRequest creates a new search. RealQuestion must already
// be the clarified, specific question (the client resolves vagueness
// via Clarify first); QueryType selects the planning/scoring/synthesis
// strategy.
type SubmitSearchRequest struct {
	RealQuestion string          `json:"real_question" binding:"required"`
	QueryType    types.QueryType `json:"query_type" binding:"required"`
}

// SubmitSearchResponse is returned immediately; the search runs
// asynchronously on the worker and is polled via GetSearchStatus.
type SubmitSearchResponse struct {
	SearchID string             `json:"search_id"`
	Status   types.SearchStatus `json:"status"`
}

// SubmitSearch godoc
// @Summary      Submit a new search
// @Description  Plans a SearchSpec from the REAL question and enqueues the search for the worker
// @Accept       json
// @Produce      json
// @Success      201  {object}  SubmitSearchResponse
// @Failure      400  {object}  errors.AppError
// @Router       /api/v1/searches [post]
func (h *SearchHandler) SubmitSearch(c *gin.Context) {
	ctx := logger.CloneContext(c.Request.Context())

	var req SubmitSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(appErrors.NewBadRequestError(err.Error()))
		return
	}

	spec, err := h.planner.Plan(ctx, req.QueryType, req.RealQuestion)
	if err != nil {
		logger.Warn(ctx, "planner failed, degrading to unscoped search", "error", err.Error())
	}

	searchID, err := h.store.CreateSearch(ctx, spec, req.RealQuestion, req.QueryType)
	if err != nil {
		c.Error(appErrors.NewInternalServerError(err.Error()))
		return
	}

	task, err := orchestrator.NewRunSearchTask(orchestrator.TaskPayload{
		SearchID:     searchID,
		RealQuestion: req.RealQuestion,
		QueryType:    req.QueryType,
	})
	if err != nil {
		c.Error(appErrors.NewInternalServerError(err.Error()))
		return
	}
	if _, err := h.tasks.EnqueueContext(ctx, task); err != nil {
		c.Error(appErrors.NewInternalServerError(err.Error()))
		return
	}

	created(c, SubmitSearchResponse{SearchID: searchID, Status: types.SearchStatusPending})
}

// GetSearchStatus godoc
// @Summary      Poll a search's status and running counters
// @Produce      json
// @Success      200  {object}  types.Search
// @Failure      404  {object}  errors.AppError
// @Router       /api/v1/searches/{id} [get]
func (h *SearchHandler) GetSearchStatus(c *gin.Context) {
	ctx := logger.CloneContext(c.Request.Context())

	searchID, ok := h.parseSearchID(c)
	if !ok {
		return
	}

	search, err := h.store.GetSearch(ctx, searchID)
	if err != nil {
		c.Error(appErrors.NewNotFoundError("search not found"))
		return
	}
	respondOK(c, search)
}

// SearchResultsResponse pairs the relevant messages with their
// analyses and the search's aggregate stats, for results polling.
type SearchResultsResponse struct {
	Messages []types.Message   `json:"messages"`
	Analyses []types.Analysis  `json:"analyses"`
	Stats    types.SearchStats `json:"stats"`
}

// GetSearchResults godoc
// @Summary      Fetch the relevant messages and stats for a completed search
// @Produce      json
// @Success      200  {object}  SearchResultsResponse
// @Failure      404  {object}  errors.AppError
// @Router       /api/v1/searches/{id}/results [get]
func (h *SearchHandler) GetSearchResults(c *gin.Context) {
	ctx := logger.CloneContext(c.Request.Context())

	searchID, ok := h.parseSearchID(c)
	if !ok {
		return
	}

	messages, analyses, err := h.store.RelevantResults(ctx, searchID)
	if err != nil {
		c.Error(appErrors.NewInternalServerError(err.Error()))
		return
	}
	stats, err := h.store.SearchStats(ctx, searchID)
	if err != nil {
		c.Error(appErrors.NewInternalServerError(err.Error()))
		return
	}
	respondOK(c, SearchResultsResponse{Messages: messages, Analyses: analyses, Stats: stats})
}

// SynthesisFeedbackRequest records whether the search's synthesized
// verdict was useful.
type SynthesisFeedbackRequest struct {
	IsPositive bool   `json:"is_positive"`
	Comment    string `json:"comment,omitempty"`
}

// SubmitSynthesisFeedback godoc
// @Summary      Leave feedback on a search's synthesized verdict
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Failure      400  {object}  errors.AppError
// @Router       /api/v1/searches/{id}/feedback [post]
func (h *SearchHandler) SubmitSynthesisFeedback(c *gin.Context) {
	ctx := logger.CloneContext(c.Request.Context())

	searchID, ok := h.parseSearchID(c)
	if !ok {
		return
	}

	var req SynthesisFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(appErrors.NewBadRequestError(err.Error()))
		return
	}

	if err := h.store.SaveSynthesisFeedback(ctx, types.SynthesisFeedback{
		SearchID:   searchID,
		IsPositive: req.IsPositive,
		Comment:    req.Comment,
	}); err != nil {
		c.Error(appErrors.NewInternalServerError(err.Error()))
		return
	}
	respondOK(c, gin.H{"recorded": true})
}

// MessageFeedbackRequest records whether a single message's relevance
// verdict was correct.
type MessageFeedbackRequest struct {
	MessageID  string `json:"message_id" binding:"required"`
	IsPositive bool   `json:"is_positive"`
	Comment    string `json:"comment,omitempty"`
}

// SubmitMessageFeedback godoc
// @Summary      Leave feedback on one message's relevance verdict
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Failure      400  {object}  errors.AppError
// @Router       /api/v1/searches/{id}/messages/feedback [post]
func (h *SearchHandler) SubmitMessageFeedback(c *gin.Context) {
	ctx := logger.CloneContext(c.Request.Context())

	searchID, ok := h.parseSearchID(c)
	if !ok {
		return
	}

	var req MessageFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(appErrors.NewBadRequestError(err.Error()))
		return
	}
	if _, err := uuid.Parse(req.MessageID); err != nil {
		c.Error(appErrors.NewBadRequestError("message_id must be a uuid"))
		return
	}

	if err := h.store.SaveMessageFeedback(ctx, types.MessageFeedback{
		SearchID:   searchID,
		MessageID:  req.MessageID,
		IsPositive: req.IsPositive,
		Comment:    req.Comment,
	}); err != nil {
		c.Error(appErrors.NewInternalServerError(err.Error()))
		return
	}
	respondOK(c, gin.H{"recorded": true})
}

// RecentSearches godoc
// @Summary      List the most recently submitted searches
// @Produce      json
// @Success      200  {object}  []types.Search
// @Router       /api/v1/searches [get]
func (h *SearchHandler) RecentSearches(c *gin.Context) {
	ctx := logger.CloneContext(c.Request.Context())
	searches, err := h.store.RecentSearches(ctx, 50)
	if err != nil {
		c.Error(appErrors.NewInternalServerError(err.Error()))
		return
	}
	respondOK(c, searches)
}

func (h *SearchHandler) parseSearchID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.Error(appErrors.NewBadRequestError("search id must be a uuid"))
		return "", false
	}
	return id, true
}
