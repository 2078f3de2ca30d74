package logging

import (
	"context"
	"log/slog"

	"scenekeeper/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one CLI invocation across all of its log lines.
	FieldRunID = "run_id"
	// FieldJob is the workflow job name (duplicates, matches, trash, ...).
	FieldJob = "job"
	// FieldSceneID is the catalog scene being processed.
	FieldSceneID = "scene_id"
	// FieldStashBox is the stash-box connection being queried.
	FieldStashBox = "stash_box"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType names the decision being logged.
	FieldDecisionType   = "decision_type"
	FieldDecisionResult = "decision_result"
	FieldDecisionReason = "decision_reason"
	// FieldAction is the catalog mutation being applied or skipped.
	FieldAction = "action"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if job, ok := services.JobFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJob, job))
	}
	if id, ok := services.SceneIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldSceneID, id))
	}
	if box, ok := services.StashBoxFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStashBox, box))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
