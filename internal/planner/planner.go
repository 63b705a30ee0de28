// Package planner translates a (query_type, real_question) pair into
// a SearchSpec, via an LLM for general questions and deterministic
// name-variant rules for the evaluation modes.
package planner

import (
	"context"
	"fmt"

	"github.com/caaa-research/engine/internal/common"
	"github.com/caaa-research/engine/internal/models/chat"
	"github.com/caaa-research/engine/internal/types"
)

const stage = "plan"

// Planner implements interfaces.QueryPlanner, dispatching to the
// general LLM-driven planner or one of the deterministic evaluation
// planners per query type.
type Planner struct {
	backend chat.Chat
}

// New builds a Planner over the given reasoning-service backend.
func New(backend chat.Chat) *Planner {
	return &Planner{backend: backend}
}

// Plan never returns an error: any planning failure (network,
// parsing) falls back to a basic keyword search over the raw question
// text, so callers always get a usable SearchSpec.
func (p *Planner) Plan(ctx context.Context, queryType types.QueryType, realQuestion string) (types.SearchSpec, error) {
	spec, err := p.planAttempt(ctx, queryType, realQuestion)
	if err != nil {
		common.PipelineWarn(ctx, stage, "fallback_to_simple", map[string]interface{}{
			"query_type": queryType, "error": err.Error(),
		})
		spec = types.NewSearchSpec()
		spec.Simple = realQuestion
	}
	spec.Canonicalize()
	return spec, nil
}

func (p *Planner) planAttempt(ctx context.Context, queryType types.QueryType, realQuestion string) (types.SearchSpec, error) {
	switch queryType {
	case types.QueryTypeJudgeEval:
		return planJudgeEval(realQuestion), nil
	case types.QueryTypeDefenseAttorneyEval:
		return planDefenseAttorneyEval(realQuestion), nil
	case types.QueryTypeInsuranceCompanyEval:
		return p.planInsuranceCompanyEval(ctx, realQuestion)
	case types.QueryTypeDoctorEval:
		return p.planGeneral(ctx, fmt.Sprintf("Find all messages mentioning the doctor %s", realQuestion))
	case types.QueryTypeAdjusterEval:
		return p.planGeneral(ctx, fmt.Sprintf("Find all messages mentioning the adjuster %s", realQuestion))
	default:
		return p.planGeneral(ctx, realQuestion)
	}
}
