package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/caaa-research/engine/internal/common"
)

// TaskTypeRunSearch is the asynq task type name the server enqueues
// and the worker registers against.
const TaskTypeRunSearch = "search:run"

// NewRunSearchTask builds the asynq.Task the HTTP layer enqueues right
// after Store.CreateSearch returns a pending search id.
func NewRunSearchTask(payload TaskPayload) (*asynq.Task, error) {
	b, err := MarshalTaskPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling task payload: %w", err)
	}
	return asynq.NewTask(TaskTypeRunSearch, b), nil
}

// Handler adapts an Orchestrator to interfaces.TaskHandler so it can be
// registered on an asynq.ServeMux under TaskTypeRunSearch.
type Handler struct {
	orchestrator *Orchestrator
}

// NewHandler wraps an Orchestrator for asynq dispatch.
func NewHandler(o *Orchestrator) *Handler {
	return &Handler{orchestrator: o}
}

// Handle implements interfaces.TaskHandler. A returned error tells
// asynq to retry the task per the server's configured retry policy.
// Cancellation is not supported: a retried run simply drives the
// pipeline again, upserting messages and skipping analyses that
// already exist, so a retry never duplicates persisted state even
// though it does redo retrieval and scoring.
func (h *Handler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshaling %s payload: %w", TaskTypeRunSearch, err)
	}

	common.PipelineInfo(ctx, stage, "task_received", map[string]interface{}{
		"search_id": payload.SearchID, "query_type": string(payload.QueryType),
	})
	return h.orchestrator.Run(ctx, payload.SearchID)
}
