package workflow

import (
	"context"
	"strings"

	"scenekeeper/internal/logging"
)

// ProcessAll runs the routine maintenance sequence: corrupted scenes, trash,
// matching, then both tag cleanups. The trash job is skipped when no trash
// path is configured. It stops at the first job that fails.
func (r *Runner) ProcessAll(ctx context.Context) ([]Report, error) {
	steps := []struct {
		job string
		fn  func(context.Context) (Report, error)
	}{
		{JobCorrupted, r.ProcessCorrupted},
		{JobTrash, r.ProcessTrash},
		{JobProcessMatches, r.ProcessMatches},
		{JobRemoveMatches, r.RemoveMatches},
		{JobRemoveFalseMatches, r.RemoveFalseMatches},
	}
	var reports []Report
	for _, step := range steps {
		if step.job == JobTrash && strings.TrimSpace(r.cfg.Paths.TrashPath) == "" {
			r.jobLogger(r.jobContext(ctx, step.job)).Info("trash path not configured; job skipped",
				logging.String(logging.FieldEventType, "job_skipped"),
			)
			continue
		}
		report, err := step.fn(ctx)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}
