// Package config loads, normalizes, and validates scenekeeper configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// STASH_API_KEY and STASH_URL. The Config type centralizes every knob the CLI
// jobs need, so catalog credentials, tag names and retry limits are discovered
// in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
