// Package orchestrator implements the per-search worker: it owns one
// search's state machine and the lifetime of one Retriever attachment,
// driving Retriever -> Scorer -> (optional) Synthesizer and persisting
// every transition to the Store.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sirupsen/logrus"

	"github.com/caaa-research/engine/internal/common"
	appErrors "github.com/caaa-research/engine/internal/errors"
	"github.com/caaa-research/engine/internal/logger"
	"github.com/caaa-research/engine/internal/scorer"
	"github.com/caaa-research/engine/internal/types"
	"github.com/caaa-research/engine/internal/types/interfaces"
)

const stage = "orchestrate"

// minRelevantForSynthesis is the insufficient-data threshold: below
// this many relevant messages, the Synthesizer is bypassed entirely.
const minRelevantForSynthesis = 3

var tracer = otel.Tracer("caaa-research/engine/orchestrator")

// Orchestrator drives one search end to end. It is constructed once
// at startup and reused across every task the worker process handles;
// there is no package-level instance.
type Orchestrator struct {
	store       interfaces.Store
	retriever   interfaces.Retriever
	scorer      interfaces.Scorer
	synthesizer interfaces.Synthesizer
}

// New wires an Orchestrator over its four collaborators.
func New(store interfaces.Store, retriever interfaces.Retriever, scorer interfaces.Scorer, synthesizer interfaces.Synthesizer) *Orchestrator {
	return &Orchestrator{store: store, retriever: retriever, scorer: scorer, synthesizer: synthesizer}
}

// Run executes the full pipeline for one search:
//
//	pending -> running -> running(scored) -> [synthesized | completed]
//	any state -> failed, on an unrecoverable error
//
// The SearchSpec is reloaded from the Store (the authoritative
// source) rather than threaded through the task payload, so a retried
// task always sees the persisted spec.
func (o *Orchestrator) Run(ctx context.Context, searchID string) error {
	ctx, span := tracer.Start(ctx, "orchestrator.Run")
	defer span.End()
	ctx = logger.With(ctx, logrus.Fields{"search_id": searchID})

	search, err := o.store.GetSearch(ctx, searchID)
	if err != nil {
		return fmt.Errorf("loading search %s: %w", searchID, err)
	}

	if err := o.store.UpdateSearchStatus(ctx, searchID, types.SearchStatusRunning); err != nil {
		return fmt.Errorf("starting search %s: %w", searchID, err)
	}

	messages, err := o.retrieve(ctx, searchID, search.Spec)
	if err != nil {
		return o.fail(ctx, searchID, "retrieval", err)
	}

	relevantCount, err := o.score(ctx, searchID, search.RealQuestion, search.QueryType, messages)
	if err != nil {
		return o.fail(ctx, searchID, "scoring", err)
	}

	if search.QueryType.IsEvaluationMode() || search.QueryType == types.QueryTypeAMEQMESearch {
		if err := o.synthesize(ctx, searchID, search.QueryType, search.RealQuestion, relevantCount); err != nil {
			return o.fail(ctx, searchID, "synthesis", err)
		}
	}

	if err := o.store.UpdateSearchStatus(ctx, searchID, types.SearchStatusCompleted); err != nil {
		return fmt.Errorf("completing search %s: %w", searchID, err)
	}
	common.PipelineInfo(ctx, stage, "completed", map[string]interface{}{
		"messages_found": len(messages), "relevant": relevantCount,
	})
	return nil
}

// retrieve drives the Retriever, reporting running progress, and once
// it returns persists every message plus its search-result link.
func (o *Orchestrator) retrieve(ctx context.Context, searchID string, spec types.SearchSpec) ([]interfaces.RetrievedMessage, error) {
	ctx, span := tracer.Start(ctx, "retrieve")
	defer span.End()

	var found int
	onProgress := func(p interfaces.PageProgress) {
		found = p.TotalSoFar
		if err := o.store.UpdateSearchCounters(ctx, searchID, &found, nil, nil); err != nil {
			common.PipelineWarn(ctx, stage, "progress_write_failed", map[string]interface{}{"error": err.Error()})
		}
	}

	messages, err := o.retriever.Retrieve(ctx, spec, onProgress)
	if err != nil {
		if appErrors.Fatal(kindOf(err)) {
			return nil, err
		}
		// Non-fatal retrieval errors abort pagination but keep
		// already-collected records, so persist what came back.
	}

	for i := range messages {
		m := &messages[i]
		messageID, uerr := o.store.UpsertMessage(ctx, m.Message)
		if uerr != nil {
			return nil, fmt.Errorf("upserting message %s: %w", m.Message.UpstreamID, uerr)
		}
		m.Message.ID = messageID
		if lerr := o.store.LinkResult(ctx, searchID, messageID, m.Position, m.Page); lerr != nil {
			return nil, fmt.Errorf("linking result %s: %w", m.Message.UpstreamID, lerr)
		}
	}

	total := len(messages)
	if serr := o.store.UpdateSearchCounters(ctx, searchID, &total, nil, nil); serr != nil {
		return nil, fmt.Errorf("recording messages_found: %w", serr)
	}
	return messages, nil
}

// score scores every retrieved message sequentially — the reasoning
// service is rate-sensitive and sequential scoring keeps ordering
// stable — skipping messages already analyzed so re-runs are no-ops.
func (o *Orchestrator) score(ctx context.Context, searchID, realQuestion string, queryType types.QueryType, messages []interfaces.RetrievedMessage) (int, error) {
	ctx, span := tracer.Start(ctx, "score")
	defer span.End()

	relevant := 0
	analyzed := 0
	for _, m := range messages {
		exists, err := o.store.AnalysisExists(ctx, searchID, m.Message.ID)
		if err != nil {
			return relevant, fmt.Errorf("checking existing analysis: %w", err)
		}
		if exists {
			analyzed++
			continue
		}

		verdict, err := o.scorer.Score(ctx, realQuestion, queryType, m.Message)
		if err != nil {
			common.PipelineWarn(ctx, stage, "scorer_failed_skip", map[string]interface{}{
				"message_id": m.Message.ID, "error": err.Error(),
			})
			continue
		}

		analysis := types.Analysis{
			SearchID:   searchID,
			MessageID:  m.Message.ID,
			IsRelevant: verdict.IsRelevant,
			Confidence: verdict.Confidence,
			Reasoning:  verdict.Reasoning,
			ModelID:    verdict.ModelID,
			TokensUsed: verdict.TokensUsed,
			Cost:       verdict.Cost,
			AnalyzedAt: scorer.AnalyzedAt(),
		}
		if err := o.store.SaveAnalysis(ctx, analysis); err != nil {
			return relevant, fmt.Errorf("saving analysis for %s: %w", m.Message.ID, err)
		}

		analyzed++
		if verdict.IsRelevant {
			relevant++
		}
		if err := o.store.UpdateSearchCounters(ctx, searchID, nil, &analyzed, &relevant); err != nil {
			common.PipelineWarn(ctx, stage, "progress_write_failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return relevant, nil
}

// synthesize produces the per-search verdict. Below
// minRelevantForSynthesis relevant messages, the Synthesizer is
// bypassed and an insufficient_data verdict is persisted directly.
func (o *Orchestrator) synthesize(ctx context.Context, searchID string, queryType types.QueryType, realQuestion string, relevantCount int) error {
	ctx, span := tracer.Start(ctx, "synthesize")
	defer span.End()

	if relevantCount < minRelevantForSynthesis {
		return o.store.SaveSynthesis(ctx, searchID, types.SynthesisResult{
			Score:      0,
			Evaluation: types.EvaluationInsufficientData,
			Reasoning:  fmt.Sprintf("Only %d relevant message(s) found; at least %d are required to synthesize a verdict.", relevantCount, minRelevantForSynthesis),
		})
	}

	messages, analyses, err := o.store.RelevantResults(ctx, searchID)
	if err != nil {
		return fmt.Errorf("loading relevant results: %w", err)
	}

	inputs := make([]interfaces.SynthesisInput, 0, len(messages))
	for i, msg := range messages {
		if i < len(analyses) && analyses[i].IsRelevant {
			inputs = append(inputs, interfaces.SynthesisInput{Message: msg, Analysis: analyses[i]})
		}
	}

	result, err := o.synthesizer.Synthesize(ctx, queryType, realQuestion, inputs)
	if err != nil {
		return fmt.Errorf("synthesizing: %w", err)
	}
	return o.store.SaveSynthesis(ctx, searchID, result)
}

// fail promotes the search to failed: no synthesis is written, and
// completed_at is set by UpdateSearchStatus.
func (o *Orchestrator) fail(ctx context.Context, searchID, step string, cause error) error {
	span := trace.SpanFromContext(ctx)
	span.RecordError(cause)
	span.SetStatus(codes.Error, step)
	common.PipelineError(ctx, stage, "search_failed", map[string]interface{}{"step": step, "error": cause.Error()})
	if err := o.store.UpdateSearchStatus(ctx, searchID, types.SearchStatusFailed); err != nil {
		return fmt.Errorf("marking search failed after %s error (%v): %w", step, cause, err)
	}
	return fmt.Errorf("%s failed: %w", step, cause)
}

func kindOf(err error) appErrors.Kind {
	var pe *appErrors.PipelineError
	if !errors.As(err, &pe) {
		return ""
	}
	return pe.Kind
}

// TaskPayload is the asynq task payload: only the search id, REAL
// question, and query type. Everything else the worker needs is
// reloaded from the Store.
type TaskPayload struct {
	SearchID     string          `json:"search_id"`
	RealQuestion string          `json:"real_question"`
	QueryType    types.QueryType `json:"query_type"`
}

// MarshalTaskPayload encodes a TaskPayload for enqueueing.
func MarshalTaskPayload(p TaskPayload) ([]byte, error) {
	return json.Marshal(p)
}
