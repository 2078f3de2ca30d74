// Package logging assembles the structured slog loggers used by scenekeeper.
//
// It owns the console and JSON handlers, tees every run into a debug-level
// JSON file under the configured log directory, and prunes old run logs. The
// context helpers tag log lines with the run ID, job, scene and stash box so
// a single scene can be traced through a run with one grep.
package logging
