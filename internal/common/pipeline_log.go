// Package common holds small cross-cutting helpers shared by every
// pipeline stage (clarify, plan, retrieve, score, synthesize, orchestrate).
package common

import (
	"context"

	"github.com/caaa-research/engine/internal/logger"
)

// PipelineInfo logs an info-level event for a named pipeline stage.
func PipelineInfo(ctx context.Context, stage, action string, fields map[string]interface{}) {
	logger.GetLogger(ctx).WithFields(withStage(stage, action, fields)).Info(action)
}

// PipelineWarn logs a warning-level event for a named pipeline stage.
func PipelineWarn(ctx context.Context, stage, action string, fields map[string]interface{}) {
	logger.GetLogger(ctx).WithFields(withStage(stage, action, fields)).Warn(action)
}

// PipelineError logs an error-level event for a named pipeline stage.
func PipelineError(ctx context.Context, stage, action string, fields map[string]interface{}) {
	logger.GetLogger(ctx).WithFields(withStage(stage, action, fields)).Error(action)
}

func withStage(stage, action string, fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		out[k] = v
	}
	out["stage"] = stage
	out["action"] = action
	return out
}
