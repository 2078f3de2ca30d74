// Package scrape queries stash boxes for candidate metadata and settles which
// candidate, if any, describes a local scene.
//
// Resolve is the pure disambiguation step. Orchestrator wraps it with the
// network side: one retried scrape call per stash box, fanned out over a
// bounded worker pool and joined before the caller sees any result. A box that
// keeps failing ends in StateFailed without cancelling its siblings.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"scenekeeper/internal/catalog"
	"scenekeeper/internal/logging"
	"scenekeeper/internal/retry"
	"scenekeeper/internal/services"
)

const defaultConcurrency = 4

// Orchestrator scrapes scenes across stash boxes.
type Orchestrator struct {
	scraper     catalog.Scraper
	policy      retry.Policy
	concurrency int
	logger      *slog.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithRetryPolicy overrides the retry policy wrapped around each scrape call.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(o *Orchestrator) { o.policy = policy }
}

// WithConcurrency bounds how many stash boxes are queried at once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLogger sets the logger used for scrape decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator constructs an orchestrator backed by scraper.
func NewOrchestrator(scraper catalog.Scraper, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		scraper:     scraper,
		policy:      retry.Default(),
		concurrency: defaultConcurrency,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "scrape")
	return o
}

// Scrape fetches candidates for scene from box and resolves them.
func (o *Orchestrator) Scrape(ctx context.Context, scene catalog.Scene, box catalog.StashBox) Result {
	ctx = services.WithStashBox(services.WithSceneID(ctx, scene.ID), box.Name)
	logger := logging.WithContext(ctx, o.logger)

	if len(scene.Files) != 1 {
		result := Resolve(scene, box, nil)
		o.logDecision(logger, result)
		return result
	}

	policy := o.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Debug("scrape attempt failed; retrying",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
	}
	candidates, err := retry.Value(ctx, policy, "scrape scene", func(ctx context.Context) ([]catalog.Candidate, error) {
		return o.scraper.ScrapeScene(ctx, box.Index, scene.ID)
	})
	if err != nil {
		logging.WarnWithContext(logger, "scrape failed; stash box skipped for scene", "scrape_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check stash box connectivity and api key"),
			logging.String(logging.FieldImpact, "scene is not tagged for this stash box"),
		)
		return Result{
			SceneID:     scene.ID,
			Box:         box,
			State:       StateFailed,
			ChosenIndex: -1,
			Reason:      fmt.Sprintf("scrape failed: %v", err),
			Err:         err,
		}
	}

	result := Resolve(scene, box, candidates)
	o.logDecision(logger, result)
	return result
}

func (o *Orchestrator) logDecision(logger *slog.Logger, result Result) {
	attrs := append(logging.DecisionAttrs("scrape_match", string(result.State), result.Reason),
		logging.Int("candidates", len(result.Candidates)),
		logging.Int("phash_distance", result.PHashDistance()),
	)
	if candidate, _, ok := result.Chosen(); ok {
		attrs = append(attrs, logging.String("candidate_title", candidate.Title))
	}
	logger.Info("scrape decision", logging.Args(attrs...)...)
}

// Outcome joins the per-box results for one scene, in box order.
type Outcome struct {
	Scene   catalog.Scene
	Results []Result
}

// AnyAccepted reports whether at least one box accepted a candidate.
func (o Outcome) AnyAccepted() bool {
	for _, r := range o.Results {
		if r.Accepted() {
			return true
		}
	}
	return false
}

// AcceptedResults returns the results that chose a candidate.
func (o Outcome) AcceptedResults() []Result {
	var out []Result
	for _, r := range o.Results {
		if r.Accepted() {
			out = append(out, r)
		}
	}
	return out
}

// AnyRejectedCandidates reports whether some box returned only rejected
// candidates.
func (o Outcome) AnyRejectedCandidates() bool {
	for _, r := range o.Results {
		if r.RejectedCandidates() {
			return true
		}
	}
	return false
}

// AnyAmbiguous reports whether some box returned several plausible matches.
func (o Outcome) AnyAmbiguous() bool {
	for _, r := range o.Results {
		if r.State == StateAmbiguous {
			return true
		}
	}
	return false
}

// AnyFailed reports whether some box could not be scraped.
func (o Outcome) AnyFailed() bool {
	for _, r := range o.Results {
		if r.State == StateFailed {
			return true
		}
	}
	return false
}

// ScrapeAll queries every box concurrently and waits for all of them.
func (o *Orchestrator) ScrapeAll(ctx context.Context, scene catalog.Scene, boxes []catalog.StashBox) Outcome {
	results := make([]Result, len(boxes))
	for i, box := range boxes {
		results[i] = Result{SceneID: scene.ID, Box: box, State: StatePending, ChosenIndex: -1}
	}

	var group errgroup.Group
	group.SetLimit(o.concurrency)
	for i, box := range boxes {
		group.Go(func() error {
			results[i] = o.Scrape(ctx, scene, box)
			return nil
		})
	}
	_ = group.Wait()

	return Outcome{Scene: scene, Results: results}
}
