package workflow

import (
	"context"
	"errors"
	"time"

	"scenekeeper/internal/logging"
	"scenekeeper/internal/retry"
	"scenekeeper/internal/services"
)

// apply performs one catalog mutation unless dry-run is on. It returns true
// when the mutation succeeded or was skipped for dry-run, so callers can
// chain dependent steps the same way in both modes. A fatal failure is kept
// on the report; every later apply of the job is then refused and the job
// returns that error.
func (r *Runner) apply(ctx context.Context, report *Report, action string, fn func(context.Context) error, attrs ...logging.Attr) bool {
	if report.fatal != nil {
		return false
	}
	report.Actions++
	logger := r.jobLogger(ctx)
	attrs = append(attrs, logging.Action(action))

	if r.DryRun() {
		attrs = append(attrs, logging.String(logging.FieldEventType, "dry_run_action"))
		logger.Info("dry run: "+action+" skipped", logging.Args(attrs...)...)
		return true
	}

	if err := r.call(ctx, action, fn); err != nil {
		report.Failed++
		if services.IsFatal(err) {
			report.fatal = err
			if errors.Is(err, context.Canceled) {
				logger.Debug("run cancelled before "+action, logging.Args(attrs...)...)
				return false
			}
			attrs = append(attrs,
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check stash.api_key and the stash endpoint"),
				logging.String(logging.FieldImpact, "remaining mutations of this job skipped"),
			)
			logging.ErrorWithContext(logger, action+" failed; aborting job", "mutation_fatal", attrs...)
			return false
		}
		attrs = append(attrs,
			logging.Error(err),
			logging.String(logging.FieldErrorHint, mutationHint(err)),
		)
		logging.WarnWithContext(logger, action+" failed", "mutation_failed", attrs...)
		return false
	}

	report.Applied++
	attrs = append(attrs, logging.String(logging.FieldEventType, "mutation_applied"))
	logger.Info(action, logging.Args(attrs...)...)
	return true
}

func mutationHint(err error) string {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return "the scene or file was removed from stash after it was listed"
	case errors.Is(err, services.ErrTimeout):
		return "raise stash.timeout_seconds or retry when stash is less busy"
	case retry.IsExhausted(err):
		return "retries exhausted; rerun once stash is reachable"
	default:
		return "check stash logs for the rejected mutation"
	}
}

// call runs fn under the retry policy, logging each retried attempt.
func (r *Runner) call(ctx context.Context, op string, fn func(context.Context) error) error {
	return r.retryPolicy(ctx).Do(ctx, op, fn)
}

func (r *Runner) retryPolicy(ctx context.Context) retry.Policy {
	policy := r.policy
	logger := r.jobLogger(ctx)
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Debug("catalog call failed; retrying",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
	}
	return policy
}
