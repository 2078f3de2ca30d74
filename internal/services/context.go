package services

import "context"

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	jobKey      contextKey = "job"
	sceneIDKey  contextKey = "scene_id"
	stashBoxKey contextKey = "stash_box"
)

// WithRunID annotates context with the identifier of the current CLI run.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithJob annotates context with the workflow job name.
func WithJob(ctx context.Context, job string) context.Context {
	if job == "" {
		return ctx
	}
	return context.WithValue(ctx, jobKey, job)
}

// JobFromContext returns the job name if present.
func JobFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(jobKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithSceneID annotates context with the scene being processed.
func WithSceneID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, sceneIDKey, id)
}

// SceneIDFromContext extracts the scene identifier if present.
func SceneIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(sceneIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithStashBox annotates context with the stash box being queried.
func WithStashBox(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, stashBoxKey, name)
}

// StashBoxFromContext returns the stash box name if present.
func StashBoxFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stashBoxKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
