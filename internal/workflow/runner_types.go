package workflow

import (
	"context"
	"fmt"
	"time"

	"scenekeeper/internal/dedupe"
)

// Job names used in logs, notifications and the CLI.
const (
	JobDuplicateScenes    = "duplicate_scenes"
	JobDuplicateFiles     = "duplicate_files"
	JobProcessMatches     = "process_matches"
	JobRemoveMatches      = "remove_matches"
	JobRemoveFalseMatches = "remove_false_matches"
	JobCorrupted          = "corrupted"
	JobTrash              = "trash"
	JobScan               = "scan"
)

// Report summarizes one job run. Actions counts mutations the job decided
// on; Applied counts those that reached the catalog, which stays zero in
// dry-run.
type Report struct {
	Job      string
	RunID    string
	DryRun   bool
	Started  time.Time
	Finished time.Time

	Scanned int
	Actions int
	Applied int
	Failed  int

	Duplicates *dedupe.Summary
	Matches    *MatchTally
	ScanJobID  string

	fatal error
}

// halted returns the error that should stop the job loop: cancellation or
// a fatal mutation failure.
func (r *Report) halted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.fatal
}

// Duration returns how long the job ran.
func (r Report) Duration() time.Duration {
	if r.Finished.Before(r.Started) {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Summary renders a one-line description used by notifications.
func (r Report) Summary() string {
	switch {
	case r.Duplicates != nil:
		return fmt.Sprintf("%d groups, %d resolved, %d scenes and %d files to delete",
			r.Duplicates.Groups, r.Duplicates.Resolved, r.Duplicates.ScenesToDelete, r.Duplicates.FilesToDelete)
	case r.Matches != nil:
		return fmt.Sprintf("%d scenes, %d matched, %d done, %d false, %d unknown",
			r.Matches.Scenes, r.Matches.Matched, r.Matches.Done, r.Matches.False, r.Matches.Unknown)
	case r.ScanJobID != "":
		return "metadata scan job " + r.ScanJobID
	default:
		return fmt.Sprintf("%d scenes, %d actions, %d failed", r.Scanned, r.Actions, r.Failed)
	}
}

// MatchTally counts matching outcomes per scene and per stash box.
type MatchTally struct {
	Scenes    int
	Matched   int
	Done      int
	False     int
	Unknown   int
	Failed    int
	Untouched int
	PerBox    map[string]int
	Created   int
}

func newMatchTally() *MatchTally {
	return &MatchTally{PerBox: make(map[string]int)}
}

// Observer receives progress for long jobs. Calls arrive from the job's
// goroutine.
type Observer interface {
	JobStarted(job string, total int)
	ItemDone(job string)
	JobFinished(job string)
}

type nopObserver struct{}

func (nopObserver) JobStarted(string, int) {}
func (nopObserver) ItemDone(string)        {}
func (nopObserver) JobFinished(string)     {}
