package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"scenekeeper/internal/config"
	"scenekeeper/internal/logging"
	"scenekeeper/internal/runlock"
	"scenekeeper/internal/services/stash"
	"scenekeeper/internal/workflow"
)

type jobFunc func(context.Context, *workflow.Runner) ([]workflow.Report, error)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	dryRunFlag   *bool
	applyFlag    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, dryRunFlag, applyFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		dryRunFlag:   dryRunFlag,
		applyFlag:    applyFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil {
			if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
				cfg.Logging.Level = level
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// dryRun resolves the effective mode: flags win over workflow.dry_run.
func (c *commandContext) dryRun(cfg *config.Config) bool {
	switch {
	case c.applyFlag != nil && *c.applyFlag:
		return false
	case c.dryRunFlag != nil && *c.dryRunFlag:
		return true
	default:
		return cfg.Workflow.DryRun
	}
}

// runJob wires one run: logging session, run lock, stash client and runner.
// Reports are printed even when the job fails part way.
func (c *commandContext) runJob(cmd *cobra.Command, job jobFunc) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	session, err := logging.NewFromConfig(cfg, time.Now())
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer session.Close()
	logger := session.Logger
	logging.CleanupOldLogs(logger, cfg.Paths.LogDir, logging.RunLogPattern, cfg.Logging.RetentionDays, session.Path)

	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		return err
	}
	defer lock.Release()

	policy := workflow.RetryPolicy(cfg.Retry)
	policy.Retryable = stash.IsRetriable

	runner := workflow.NewRunner(cfg, stash.NewFromConfig(cfg),
		workflow.WithLogger(logger),
		workflow.WithRetryPolicy(policy),
		workflow.WithObserver(newProgressObserver(cmd.ErrOrStderr())),
	)
	runner.SetDryRun(c.dryRun(cfg))
	if runner.DryRun() {
		logger.Info("dry run enabled; pass --apply to mutate the catalog",
			logging.String(logging.FieldEventType, "dry_run_enabled"),
			logging.String(logging.FieldRunID, runner.RunID()),
		)
	}

	reports, err := job(cmd.Context(), runner)
	printReports(cmd.OutOrStdout(), reports)
	return err
}

func single(fn func(*workflow.Runner, context.Context) (workflow.Report, error)) jobFunc {
	return func(ctx context.Context, r *workflow.Runner) ([]workflow.Report, error) {
		report, err := fn(r, ctx)
		return []workflow.Report{report}, err
	}
}

func many(fn func(*workflow.Runner, context.Context) ([]workflow.Report, error)) jobFunc {
	return func(ctx context.Context, r *workflow.Runner) ([]workflow.Report, error) {
		return fn(r, ctx)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
