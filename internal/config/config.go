package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Stash contains connection settings for the cataloging service.
type Stash struct {
	Scheme          string `toml:"scheme"`
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	APIKey          string `toml:"api_key"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
}

// Paths contains directory configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
	// TrashPath is matched as a substring of catalog file paths, so it is
	// never expanded against the local filesystem.
	TrashPath string `toml:"trash_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Retry controls how remote calls are retried.
type Retry struct {
	MaxAttempts     int  `toml:"max_attempts"`
	DelaySeconds    int  `toml:"delay_seconds"`
	MaxDelaySeconds int  `toml:"max_delay_seconds"`
	Backoff         bool `toml:"backoff"`
}

// Workflow contains settings shared by every job.
type Workflow struct {
	DryRun      bool `toml:"dry_run"`
	Concurrency int  `toml:"concurrency"`
}

// Duplicates configures duplicate resolution.
type Duplicates struct {
	MinDurationSeconds float64  `toml:"min_duration_seconds"`
	ResolutionAxis     string   `toml:"resolution_axis"`
	Distances          []string `toml:"distances"`
	MaxScenes          int      `toml:"max_scenes"`
}

// StashBox pairs a catalog stash-box connection name with the tag applied to
// scenes it matched.
type StashBox struct {
	Name string `toml:"name"`
	Tag  string `toml:"tag"`
}

// Matching configures the stash-box matching jobs.
type Matching struct {
	PageSize      int        `toml:"page_size"`
	MaxScenes     int        `toml:"max_scenes"`
	BatchSize     int        `toml:"batch_size"`
	FilterTag     string     `toml:"filter_tag"`
	DoneTag       string     `toml:"done_tag"`
	FalseTag      string     `toml:"false_tag"`
	UnknownTag    string     `toml:"unknown_tag"`
	ApplyMetadata bool       `toml:"apply_metadata"`
	StashBoxes    []StashBox `toml:"stash_boxes"`
}

// Cleanup configures the corrupted and trash jobs.
type Cleanup struct {
	MaxScenes int `toml:"max_scenes"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunSummary     bool   `toml:"run_summary"`
	Errors         bool   `toml:"errors"`
}

// Config encapsulates all configuration values for scenekeeper.
//
// Configuration sections by subsystem:
//   - Stash: catalog GraphQL endpoint and credentials
//   - Paths: log, state, and trash locations
//   - Logging: log format, level, and retention
//   - Retry: attempts and delay for remote calls
//   - Workflow: dry-run default and stash-box fan-out
//   - Duplicates: duplicate resolution policy and distances
//   - Matching: stash-box matching tags and paging
//   - Cleanup: corrupted and trash job limits
//   - Notifications: ntfy push notification settings
type Config struct {
	Stash         Stash         `toml:"stash"`
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
	Retry         Retry         `toml:"retry"`
	Workflow      Workflow      `toml:"workflow"`
	Duplicates    Duplicates    `toml:"duplicates"`
	Matching      Matching      `toml:"matching"`
	Cleanup       Cleanup       `toml:"cleanup"`
	Notifications Notifications `toml:"notifications"`
}

const defaultConfigPath = "~/.config/scenekeeper/config.toml"

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// Array tables in the file replace the default stash boxes.
		cfg.Matching.StashBoxes = nil

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scenekeeper.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StashEndpoint returns the GraphQL endpoint URL of the catalog.
func (c *Config) StashEndpoint() string {
	host := c.Stash.Host
	if c.Stash.Port > 0 {
		host = net.JoinHostPort(c.Stash.Host, strconv.Itoa(c.Stash.Port))
	}
	return c.Stash.Scheme + "://" + host + "/graphql"
}

// StashTimeout returns the per-request HTTP timeout.
func (c *Config) StashTimeout() time.Duration {
	return time.Duration(c.Stash.TimeoutSeconds) * time.Second
}

// StashCacheTTL returns how long tag and connection listings stay cached.
func (c *Config) StashCacheTTL() time.Duration {
	return time.Duration(c.Stash.CacheTTLSeconds) * time.Second
}

// LockPath returns the run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "scenekeeper.lock")
}

// MatchTagNames returns every tag the matching jobs manage: one per stash box
// plus the done, false and unknown markers.
func (c *Config) MatchTagNames() []string {
	names := make([]string, 0, len(c.Matching.StashBoxes)+3)
	for _, box := range c.Matching.StashBoxes {
		names = append(names, box.Tag)
	}
	return append(names, c.Matching.DoneTag, c.Matching.FalseTag, c.Matching.UnknownTag)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
