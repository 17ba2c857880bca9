// Package context carries run tracing values through a pipeline run
package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextKey int

// Context keys for run tracing
const (
	runIDKey contextKey = iota
	pipelineKey
	stepKey
	startTimeKey
)

const (
	unknownRun      = "unknown-run"
	unknownPipeline = "unknown-pipeline"
	unknownStep     = "unknown-step"
)

// WithRunID adds a run ID to the context
func WithRunID(parent context.Context, runID string) context.Context {
	if runID == "" {
		runID = GenerateRunID()
	}
	return context.WithValue(parent, runIDKey, runID)
}

// GetRunID retrieves the run ID from context
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		return id
	}
	return unknownRun
}

// WithPipeline adds the pipeline name to the context
func WithPipeline(parent context.Context, name string) context.Context {
	return context.WithValue(parent, pipelineKey, name)
}

// GetPipeline retrieves the pipeline name from context
func GetPipeline(ctx context.Context) string {
	if name, ok := ctx.Value(pipelineKey).(string); ok && name != "" {
		return name
	}
	return unknownPipeline
}

// WithStep adds the current step name to the context
func WithStep(parent context.Context, step string) context.Context {
	return context.WithValue(parent, stepKey, step)
}

// GetStep retrieves the current step name from context
func GetStep(ctx context.Context) string {
	if step, ok := ctx.Value(stepKey).(string); ok && step != "" {
		return step
	}
	return unknownStep
}

// WithStartTime adds the operation start time to the context
func WithStartTime(parent context.Context, startTime time.Time) context.Context {
	return context.WithValue(parent, startTimeKey, startTime)
}

// GetStartTime retrieves the operation start time from context
func GetStartTime(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(startTimeKey).(time.Time)
	return t, ok
}

// GetDuration calculates the duration since the start time in context.
// Zero when no start time was recorded.
func GetDuration(ctx context.Context) time.Duration {
	startTime, ok := GetStartTime(ctx)
	if !ok {
		return 0
	}
	return time.Since(startTime)
}

// GenerateRunID creates a new unique run ID
func GenerateRunID() string {
	return "run_" + uuid.New().String()
}

// EnrichContext adds a run ID (if missing) and the start time
func EnrichContext(parent context.Context, pipeline string) context.Context {
	ctx := parent

	if GetRunID(ctx) == unknownRun {
		ctx = WithRunID(ctx, GenerateRunID())
	}
	if pipeline != "" {
		ctx = WithPipeline(ctx, pipeline)
	}

	return WithStartTime(ctx, time.Now())
}

// TracingFields returns common tracing fields for structured logging
func TracingFields(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"run_id":      GetRunID(ctx),
		"pipeline":    GetPipeline(ctx),
		"step":        GetStep(ctx),
		"duration_ms": GetDuration(ctx).Milliseconds(),
	}
}
