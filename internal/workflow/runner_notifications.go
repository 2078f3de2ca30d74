package workflow

import (
	"context"
	"errors"

	"scenekeeper/internal/logging"
	"scenekeeper/internal/notifications"
)

func (r *Runner) notifyJobCompleted(ctx context.Context, report *Report) {
	payload := notifications.Payload{
		"job":      report.Job,
		"summary":  report.Summary(),
		"dry_run":  report.DryRun,
		"duration": report.Duration(),
	}
	if report.Duplicates != nil && report.Duplicates.BytesToDelete > 0 {
		payload["bytes"] = report.Duplicates.BytesToDelete
	}
	r.publish(ctx, notifications.EventJobCompleted, payload)
}

func (r *Runner) notifyJobFailed(ctx context.Context, report *Report, jobErr error) {
	r.publish(ctx, notifications.EventJobFailed, notifications.Payload{
		"job":   report.Job,
		"error": jobErr,
	})
}

func (r *Runner) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Publish(ctx, event, payload); err != nil {
		logger := r.jobLogger(ctx)
		if errors.Is(err, context.Canceled) {
			logger.Debug("run cancelled, notification not sent")
			return
		}
		logger.Debug("job notification failed", logging.Error(err))
	}
}
