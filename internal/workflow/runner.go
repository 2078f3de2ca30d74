package workflow

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"scenekeeper/internal/catalog"
	"scenekeeper/internal/config"
	"scenekeeper/internal/logging"
	"scenekeeper/internal/notifications"
	"scenekeeper/internal/retry"
	"scenekeeper/internal/scrape"
	"scenekeeper/internal/services"
)

// Runner executes batch jobs against a catalog.
type Runner struct {
	cfg      *config.Config
	catalog  catalog.Catalog
	logger   *slog.Logger
	notifier notifications.Service
	observer Observer
	policy   retry.Policy
	scraper  *scrape.Orchestrator
	runID    string
	now      func() time.Time

	dryRun atomic.Bool
}

// RunnerOption configures optional Runner behavior.
type RunnerOption func(*Runner)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithNotifier overrides the notifier built from config.
func WithNotifier(notifier notifications.Service) RunnerOption {
	return func(r *Runner) {
		if notifier != nil {
			r.notifier = notifier
		}
	}
}

// WithObserver receives job progress.
func WithObserver(observer Observer) RunnerOption {
	return func(r *Runner) {
		if observer != nil {
			r.observer = observer
		}
	}
}

// WithRetryPolicy overrides the policy built from config. The same policy is
// handed to the scrape orchestrator.
func WithRetryPolicy(policy retry.Policy) RunnerOption {
	return func(r *Runner) { r.policy = policy }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) RunnerOption {
	return func(r *Runner) {
		if id != "" {
			r.runID = id
		}
	}
}

// WithClock overrides the clock used for report timestamps.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner constructs a Runner. Dry-run starts from cfg.Workflow.DryRun.
func NewRunner(cfg *config.Config, cat catalog.Catalog, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:      cfg,
		catalog:  cat,
		logger:   logging.NewNop(),
		notifier: notifications.NewService(cfg),
		observer: nopObserver{},
		policy:   RetryPolicy(cfg.Retry),
		runID:    NewRunID(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "workflow")
	r.scraper = scrape.NewOrchestrator(cat,
		scrape.WithRetryPolicy(r.policy),
		scrape.WithConcurrency(cfg.Workflow.Concurrency),
		scrape.WithLogger(r.logger),
	)
	r.dryRun.Store(cfg.Workflow.DryRun)
	return r
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// RetryPolicy converts retry settings into a policy. Callers set Retryable.
func RetryPolicy(cfg config.Retry) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		Delay:       time.Duration(cfg.DelaySeconds) * time.Second,
		MaxDelay:    time.Duration(cfg.MaxDelaySeconds) * time.Second,
		Backoff:     cfg.Backoff,
	}
}

// RunID returns the identifier stamped on every log line of this run.
func (r *Runner) RunID() string { return r.runID }

// DryRun reports whether mutations are currently suppressed.
func (r *Runner) DryRun() bool { return r.dryRun.Load() }

// SetDryRun switches dry-run on or off. Jobs already running observe the new
// value on their next mutation.
func (r *Runner) SetDryRun(enabled bool) { r.dryRun.Store(enabled) }

func (r *Runner) jobContext(ctx context.Context, job string) context.Context {
	ctx = services.WithRunID(ctx, r.runID)
	return services.WithJob(ctx, job)
}

func (r *Runner) jobLogger(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, r.logger)
}

// begin opens a report for job and announces it.
func (r *Runner) begin(ctx context.Context, job string) (context.Context, *Report) {
	ctx = r.jobContext(ctx, job)
	report := &Report{Job: job, RunID: r.runID, DryRun: r.DryRun(), Started: r.now()}
	r.jobLogger(ctx).Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.Bool("dry_run", report.DryRun),
	)
	return ctx, report
}

// finish stamps the report, logs its totals and publishes the outcome.
func (r *Runner) finish(ctx context.Context, report *Report, err error) {
	report.Finished = r.now()
	logger := r.jobLogger(ctx)
	r.observer.JobFinished(report.Job)
	if err != nil {
		logging.ErrorWithContext(logger, "job failed", "job_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check stash connectivity and the run log"),
			logging.String(logging.FieldImpact, "remaining scenes were not processed"),
			logging.Int("scanned", report.Scanned),
			logging.Int("applied", report.Applied),
		)
		r.notifyJobFailed(ctx, report, err)
		return
	}
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.Int("scanned", report.Scanned),
		logging.Int("actions", report.Actions),
		logging.Int("applied", report.Applied),
		logging.Int("failed", report.Failed),
		logging.Duration("duration", report.Duration()),
	)
	r.notifyJobCompleted(ctx, report)
}
