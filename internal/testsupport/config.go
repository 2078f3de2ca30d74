package testsupport

import (
	"path/filepath"
	"testing"

	"scenekeeper/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Dry-run is off and retries do not wait so jobs can be asserted directly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Stash.Host = "stash.test"
	cfgVal.Stash.APIKey = "test"
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.TrashPath = "/media/trash/"
	cfgVal.Retry.DelaySeconds = 0
	cfgVal.Retry.MaxDelaySeconds = 0
	cfgVal.Workflow.DryRun = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDryRun toggles dry-run on the test config.
func WithDryRun(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.DryRun = enabled
	}
}

// WithTrashPath overrides the trash path fragment.
func WithTrashPath(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.TrashPath = path
	}
}

// WithStashBoxes replaces the configured stash boxes.
func WithStashBoxes(boxes ...config.StashBox) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Matching.StashBoxes = boxes
	}
}

// WithMatchingLimits overrides page size, scene cap and batch size.
func WithMatchingLimits(pageSize, maxScenes, batchSize int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Matching.PageSize = pageSize
		b.cfg.Matching.MaxScenes = maxScenes
		b.cfg.Matching.BatchSize = batchSize
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
