package workflow

import (
	"context"
	"slices"
	"strings"

	"scenekeeper/internal/catalog"
	"scenekeeper/internal/logging"
	"scenekeeper/internal/scrape"
	"scenekeeper/internal/services"
	"scenekeeper/internal/textutil"
)

// markerTags holds the resolved ids of the done, false and unknown tags.
type markerTags struct {
	done          int64
	falsePositive int64
	unknown       int64
}

func (r *Runner) loadMatchingTags(ctx context.Context, job string) (tagSet, markerTags, error) {
	tags, err := r.loadTags(ctx)
	if err != nil {
		return nil, markerTags{}, services.Wrap(services.ErrRemote, job, "find tags", "", err)
	}
	m := r.cfg.Matching
	ids, err := tags.require(job, m.DoneTag, m.FalseTag, m.UnknownTag)
	if err != nil {
		return nil, markerTags{}, err
	}
	return tags, markerTags{done: ids[0], falsePositive: ids[1], unknown: ids[2]}, nil
}

// ProcessMatches scrapes unorganized, unmatched scenes against every usable
// stash box and tags them with the outcome.
func (r *Runner) ProcessMatches(ctx context.Context) (Report, error) {
	return r.run(ctx, JobProcessMatches, func(ctx context.Context, report *Report) error {
		m := r.cfg.Matching
		tags, markers, err := r.loadMatchingTags(ctx, report.Job)
		if err != nil {
			return err
		}
		boxes, err := r.resolveStashBoxes(ctx, report.Job, tags)
		if err != nil {
			return err
		}

		filter := catalog.SceneFilter{
			Organized:   catalog.BoolPtr(false),
			TagModifier: catalog.TagsIncludesAll,
		}
		if m.FilterTag != "" {
			if filter.TagIDs, err = tags.require(report.Job, m.FilterTag); err != nil {
				return err
			}
		}
		for _, box := range boxes {
			filter.ExcludedTagIDs = append(filter.ExcludedTagIDs, box.TagID)
		}
		filter.ExcludedTagIDs = append(filter.ExcludedTagIDs, markers.falsePositive, markers.done)

		scenes, err := r.fetchScenes(ctx, listing{filter: filter, pageSize: m.PageSize, max: m.MaxScenes})
		if err != nil {
			return services.Wrap(services.ErrRemote, report.Job, "find scenes", "list unmatched scenes", err)
		}

		tally := newMatchTally()
		report.Matches = tally
		var names *textutil.NameIndex
		if m.ApplyMetadata {
			names = textutil.NewNameIndex()
		}
		batchSize := m.BatchSize
		if batchSize <= 0 {
			batchSize = len(scenes)
		}
		logger := r.jobLogger(ctx)
		r.observer.JobStarted(report.Job, len(scenes))

		for start := 0; start < len(scenes); start += batchSize {
			end := min(start+batchSize, len(scenes))
			for _, scene := range scenes[start:end] {
				if err := report.halted(ctx); err != nil {
					return err
				}
				r.matchScene(services.WithSceneID(ctx, scene.ID), report, scene, boxes, markers, names)
				r.observer.ItemDone(report.Job)
			}
			logger.Info("match batch finished",
				logging.Int("from", start+1),
				logging.Int("to", end),
				logging.Int("of", len(scenes)),
				logging.Int("matched", tally.Matched),
			)
		}
		return nil
	})
}

func (r *Runner) matchScene(ctx context.Context, report *Report, scene catalog.Scene, boxes []catalog.StashBox, markers markerTags, names *textutil.NameIndex) {
	tally := report.Matches
	report.Scanned++
	tally.Scenes++

	outcome := r.scraper.ScrapeAll(ctx, scene, boxes)
	added, result := outcomeTags(outcome, markers)
	logger := r.jobLogger(ctx)
	logger.Info("match decision", logging.Args(append(
		logging.DecisionAttrs("scene_match", result, matchReason(outcome)),
		logging.Int64s("add_tag_ids", added),
	)...)...)

	switch result {
	case "matched":
		tally.Matched++
		for _, res := range outcome.AcceptedResults() {
			tally.PerBox[res.Box.Name]++
		}
		if names != nil {
			r.copyMetadata(ctx, report, scene, outcome.AcceptedResults()[0], names)
		}
	case "failed":
		tally.Failed++
		return
	default:
		tally.Done++
		if slices.Contains(added, markers.falsePositive) {
			tally.False++
		}
		if slices.Contains(added, markers.unknown) {
			tally.Unknown++
		}
	}

	tagIDs, changed := mergeTagIDs(scene.TagIDs(), added)
	if !changed {
		tally.Untouched++
		return
	}
	r.apply(ctx, report, "update scene tags", func(ctx context.Context) error {
		return r.catalog.UpdateSceneTags(ctx, scene.ID, tagIDs)
	}, logging.Int64s("tag_ids", tagIDs))
}

// outcomeTags derives the tags a scene gains from its scrape outcome. Every
// accepting box contributes its tag. Without an acceptance the scene is
// marked done, plus false when a box rejected real candidates and unknown
// when a box was ambiguous. A scrape failure with no acceptance adds nothing
// so the scene is retried on the next run.
func outcomeTags(outcome scrape.Outcome, markers markerTags) ([]int64, string) {
	if outcome.AnyAccepted() {
		var added []int64
		for _, res := range outcome.AcceptedResults() {
			added = append(added, res.Box.TagID)
		}
		return added, "matched"
	}
	if outcome.AnyFailed() {
		return nil, "failed"
	}
	added := []int64{markers.done}
	if outcome.AnyRejectedCandidates() {
		added = append(added, markers.falsePositive)
	}
	if outcome.AnyAmbiguous() {
		added = append(added, markers.unknown)
	}
	return added, "done"
}

func matchReason(outcome scrape.Outcome) string {
	reasons := make([]string, 0, len(outcome.Results))
	for _, res := range outcome.Results {
		reasons = append(reasons, res.Box.Name+": "+res.Reason)
	}
	return strings.Join(reasons, "; ")
}

// mergeTagIDs appends added ids missing from existing.
func mergeTagIDs(existing, added []int64) ([]int64, bool) {
	out := slices.Clone(existing)
	changed := false
	for _, id := range added {
		if !slices.Contains(out, id) {
			out = append(out, id)
			changed = true
		}
	}
	return out, changed
}

// dropTagIDs removes every id in drop from existing.
func dropTagIDs(existing, drop []int64) ([]int64, bool) {
	out := slices.DeleteFunc(slices.Clone(existing), func(id int64) bool {
		return slices.Contains(drop, id)
	})
	return out, len(out) != len(existing)
}

// RemoveMatches strips every matching tag from organized scenes so a later
// run can match them again.
func (r *Runner) RemoveMatches(ctx context.Context) (Report, error) {
	return r.run(ctx, JobRemoveMatches, func(ctx context.Context, report *Report) error {
		tags, err := r.loadTags(ctx)
		if err != nil {
			return services.Wrap(services.ErrRemote, report.Job, "find tags", "", err)
		}
		drop := tags.ids(r.cfg.MatchTagNames()...)
		if len(drop) == 0 {
			r.jobLogger(ctx).Info("no matching tags exist in stash; nothing to remove")
			return nil
		}
		return r.stripTags(ctx, report, catalog.SceneFilter{
			Organized:   catalog.BoolPtr(true),
			TagIDs:      drop,
			TagModifier: catalog.TagsIncludes,
		}, drop)
	})
}

// RemoveFalseMatches clears the done tag and any stash box tags from
// unorganized scenes flagged both false and done, keeping the false tag.
func (r *Runner) RemoveFalseMatches(ctx context.Context) (Report, error) {
	return r.run(ctx, JobRemoveFalseMatches, func(ctx context.Context, report *Report) error {
		tags, markers, err := r.loadMatchingTags(ctx, report.Job)
		if err != nil {
			return err
		}
		drop := []int64{markers.done}
		for _, box := range r.cfg.Matching.StashBoxes {
			drop = append(drop, tags.ids(box.Tag)...)
		}
		return r.stripTags(ctx, report, catalog.SceneFilter{
			Organized:   catalog.BoolPtr(false),
			TagIDs:      []int64{markers.falsePositive, markers.done},
			TagModifier: catalog.TagsIncludesAll,
		}, drop)
	})
}

func (r *Runner) stripTags(ctx context.Context, report *Report, filter catalog.SceneFilter, drop []int64) error {
	scenes, err := r.fetchScenes(ctx, listing{
		filter:   filter,
		pageSize: r.cfg.Matching.PageSize,
		max:      r.cfg.Matching.MaxScenes,
	})
	if err != nil {
		return services.Wrap(services.ErrRemote, report.Job, "find scenes", "list tagged scenes", err)
	}
	r.observer.JobStarted(report.Job, len(scenes))
	for _, scene := range scenes {
		if err := report.halted(ctx); err != nil {
			return err
		}
		report.Scanned++
		if tagIDs, changed := dropTagIDs(scene.TagIDs(), drop); changed {
			r.apply(services.WithSceneID(ctx, scene.ID), report, "update scene tags", func(ctx context.Context) error {
				return r.catalog.UpdateSceneTags(ctx, scene.ID, tagIDs)
			}, logging.Int64s("tag_ids", tagIDs), logging.Int64s("removed_tag_ids", drop))
		}
		r.observer.ItemDone(report.Job)
	}
	return nil
}
