// Package services defines shared utilities consumed by the workflow jobs and
// the catalog client.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, job names, scene IDs and stash box
//     names for logging.
//   - Structured error markers plus the Wrap helper that let jobs decide
//     whether a failure skips one scene or aborts the run.
//
// Use these helpers when wiring new job logic so operational behaviour (error
// handling, observability, retries) stays uniform across commands.
package services
