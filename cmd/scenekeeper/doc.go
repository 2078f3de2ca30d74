// Package main hosts the scenekeeper CLI entrypoint and command graph.
//
// Each subcommand maps to one maintenance job on the workflow Runner:
// duplicate cleanup, stash-box matching, corrupted and trash cleanup, and
// library scans. The command context resolves configuration once, opens the
// run log, takes the run lock, and builds the stash client so subcommands only
// choose which job to run and how to print its report.
//
// Destructive jobs start in dry-run mode unless the configuration disables it
// or --apply is passed.
package main
