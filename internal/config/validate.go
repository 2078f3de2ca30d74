package config

import (
	"errors"
	"fmt"
	"slices"
)

const maxRetryAttempts = 10

var validDistances = []string{"exact", "high", "medium", "low"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStash(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if c.Workflow.Concurrency < 1 {
		return errors.New("workflow.concurrency must be at least 1")
	}
	if err := c.validateDuplicates(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStash() error {
	if c.Stash.Host == "" {
		return errors.New("stash.host must be set (or STASH_URL)")
	}
	switch c.Stash.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("stash.scheme: unsupported value %q (want http or https)", c.Stash.Scheme)
	}
	if c.Stash.Port < 0 || c.Stash.Port > 65535 {
		return fmt.Errorf("stash.port out of range: %d", c.Stash.Port)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > maxRetryAttempts {
		return fmt.Errorf("retry.max_attempts must be between 1 and %d", maxRetryAttempts)
	}
	return nil
}

func (c *Config) validateDuplicates() error {
	switch c.Duplicates.ResolutionAxis {
	case "width", "height":
	default:
		return fmt.Errorf("duplicates.resolution_axis: unsupported value %q (want width or height)", c.Duplicates.ResolutionAxis)
	}
	if c.Duplicates.MinDurationSeconds < 0 {
		return errors.New("duplicates.min_duration_seconds must be non-negative")
	}
	if len(c.Duplicates.Distances) == 0 {
		return errors.New("duplicates.distances must list at least one distance")
	}
	for _, distance := range c.Duplicates.Distances {
		if !slices.Contains(validDistances, distance) {
			return fmt.Errorf("duplicates.distances: unsupported value %q", distance)
		}
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.DoneTag == "" {
		return errors.New("matching.done_tag must be set")
	}
	if c.Matching.FalseTag == "" {
		return errors.New("matching.false_tag must be set")
	}
	if c.Matching.UnknownTag == "" {
		return errors.New("matching.unknown_tag must be set")
	}
	names := make(map[string]struct{}, len(c.Matching.StashBoxes))
	tags := map[string]struct{}{
		c.Matching.DoneTag:    {},
		c.Matching.FalseTag:   {},
		c.Matching.UnknownTag: {},
	}
	if len(tags) != 3 {
		return errors.New("matching.done_tag, false_tag and unknown_tag must differ")
	}
	for i, box := range c.Matching.StashBoxes {
		if box.Name == "" {
			return fmt.Errorf("matching.stash_boxes[%d].name must be set", i)
		}
		if box.Tag == "" {
			return fmt.Errorf("matching.stash_boxes[%d].tag must be set", i)
		}
		if _, dup := names[box.Name]; dup {
			return fmt.Errorf("matching.stash_boxes: duplicate name %q", box.Name)
		}
		names[box.Name] = struct{}{}
		if _, dup := tags[box.Tag]; dup {
			return fmt.Errorf("matching.stash_boxes: tag %q is used more than once", box.Tag)
		}
		tags[box.Tag] = struct{}{}
	}
	return nil
}
