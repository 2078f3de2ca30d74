package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeStash(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeRetry()
	c.normalizeDuplicates()
	c.normalizeMatching()
	if c.Cleanup.MaxScenes < 0 {
		c.Cleanup.MaxScenes = 0
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	return nil
}

func (c *Config) normalizeStash() error {
	if value, ok := os.LookupEnv("STASH_URL"); ok && strings.TrimSpace(value) != "" {
		if err := c.applyStashURL(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("STASH_URL: %w", err)
		}
	}
	if c.Stash.APIKey == "" {
		if value, ok := os.LookupEnv("STASH_API_KEY"); ok {
			c.Stash.APIKey = value
		}
	}
	c.Stash.APIKey = strings.TrimSpace(c.Stash.APIKey)
	c.Stash.Scheme = strings.ToLower(strings.TrimSpace(c.Stash.Scheme))
	if c.Stash.Scheme == "" {
		c.Stash.Scheme = defaultStashScheme
	}
	c.Stash.Host = strings.TrimSpace(c.Stash.Host)
	if c.Stash.TimeoutSeconds <= 0 {
		c.Stash.TimeoutSeconds = defaultStashTimeoutSeconds
	}
	if c.Stash.CacheTTLSeconds < 0 {
		c.Stash.CacheTTLSeconds = 0
	}
	return nil
}

// applyStashURL overrides scheme, host and port from a base URL such as
// http://stash.local:9999.
func (c *Config) applyStashURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme == "" || parsed.Hostname() == "" {
		return fmt.Errorf("expected scheme://host[:port], got %q", raw)
	}
	c.Stash.Scheme = parsed.Scheme
	c.Stash.Host = parsed.Hostname()
	c.Stash.Port = 0
	if port := parsed.Port(); port != "" {
		value, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port %q", port)
		}
		c.Stash.Port = value
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	c.Paths.TrashPath = strings.TrimSpace(c.Paths.TrashPath)
	return nil
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level

	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.DelaySeconds < 0 {
		c.Retry.DelaySeconds = 0
	}
	if c.Retry.MaxDelaySeconds < c.Retry.DelaySeconds {
		c.Retry.MaxDelaySeconds = c.Retry.DelaySeconds
	}
}

func (c *Config) normalizeDuplicates() {
	c.Duplicates.ResolutionAxis = strings.ToLower(strings.TrimSpace(c.Duplicates.ResolutionAxis))
	if c.Duplicates.ResolutionAxis == "" {
		c.Duplicates.ResolutionAxis = defaultResolutionAxis
	}
	if len(c.Duplicates.Distances) == 0 {
		c.Duplicates.Distances = append([]string(nil), defaultDistances...)
	} else {
		distances := make([]string, 0, len(c.Duplicates.Distances))
		seen := make(map[string]struct{}, len(c.Duplicates.Distances))
		for _, distance := range c.Duplicates.Distances {
			normalized := strings.ToLower(strings.TrimSpace(distance))
			if normalized == "" {
				continue
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			distances = append(distances, normalized)
		}
		c.Duplicates.Distances = distances
	}
	if c.Duplicates.MaxScenes < 0 {
		c.Duplicates.MaxScenes = 0
	}
}

func (c *Config) normalizeMatching() {
	if c.Matching.PageSize <= 0 {
		c.Matching.PageSize = defaultMatchingPageSize
	}
	if c.Matching.MaxScenes < 0 {
		c.Matching.MaxScenes = 0
	}
	if c.Matching.BatchSize <= 0 {
		c.Matching.BatchSize = defaultMatchingBatchSize
	}
	c.Matching.FilterTag = strings.TrimSpace(c.Matching.FilterTag)
	c.Matching.DoneTag = strings.TrimSpace(c.Matching.DoneTag)
	c.Matching.FalseTag = strings.TrimSpace(c.Matching.FalseTag)
	c.Matching.UnknownTag = strings.TrimSpace(c.Matching.UnknownTag)
	if len(c.Matching.StashBoxes) == 0 {
		c.Matching.StashBoxes = defaultStashBoxes()
	}
	for i := range c.Matching.StashBoxes {
		c.Matching.StashBoxes[i].Name = strings.TrimSpace(c.Matching.StashBoxes[i].Name)
		c.Matching.StashBoxes[i].Tag = strings.TrimSpace(c.Matching.StashBoxes[i].Tag)
	}
}
