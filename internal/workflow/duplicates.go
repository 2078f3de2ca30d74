package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"scenekeeper/internal/catalog"
	"scenekeeper/internal/dedupe"
	"scenekeeper/internal/logging"
	"scenekeeper/internal/retry"
	"scenekeeper/internal/services"
)

// run wraps a job body with its report, logging and notification.
func (r *Runner) run(ctx context.Context, job string, body func(context.Context, *Report) error) (Report, error) {
	ctx, report := r.begin(ctx, job)
	err := body(ctx, report)
	if err == nil && report.fatal != nil {
		err = report.fatal
	}
	r.finish(ctx, report, err)
	return *report, err
}

func (r *Runner) dedupePolicy() dedupe.Policy {
	return dedupe.Policy{
		MinDuration: r.cfg.Duplicates.MinDurationSeconds,
		Axis:        dedupe.Axis(r.cfg.Duplicates.ResolutionAxis),
	}
}

// DeleteDuplicates runs the scene-level pass for every configured distance,
// then the file-level pass. It stops at the first job that fails.
func (r *Runner) DeleteDuplicates(ctx context.Context) ([]Report, error) {
	var reports []Report
	for _, name := range r.cfg.Duplicates.Distances {
		distance, err := catalog.ParseDistance(name)
		if err != nil {
			return reports, services.Wrap(services.ErrConfiguration, JobDuplicateScenes, "parse distance", "invalid duplicates.distances entry", err)
		}
		report, err := r.DeleteDuplicateScenes(ctx, distance)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}
	report, err := r.DeleteDuplicateFiles(ctx)
	reports = append(reports, report)
	return reports, err
}

// DeleteDuplicateScenes resolves each duplicate group the catalog reports at
// distance, comparing the primary file of every scene, and destroys the
// scenes that lost along with their files.
func (r *Runner) DeleteDuplicateScenes(ctx context.Context, distance catalog.Distance) (Report, error) {
	return r.run(ctx, JobDuplicateScenes, func(ctx context.Context, report *Report) error {
		logger := r.jobLogger(ctx).With(logging.String("distance", distance.String()))
		groups, err := retry.Value(ctx, r.retryPolicy(ctx), "find duplicate scenes", func(ctx context.Context) ([][]catalog.Scene, error) {
			return r.catalog.FindDuplicateScenes(ctx, distance)
		})
		if err != nil {
			return services.Wrap(services.ErrRemote, JobDuplicateScenes, "find duplicates", fmt.Sprintf("list %s duplicates", distance), err)
		}
		if limit := r.cfg.Duplicates.MaxScenes; limit > 0 && len(groups) > limit {
			logger.Info("duplicate groups capped", logging.Int("groups", len(groups)), logging.Int("max", limit))
			groups = groups[:limit]
		}

		summary := dedupe.NewSummary()
		report.Duplicates = summary
		policy := r.dedupePolicy()
		r.observer.JobStarted(report.Job, len(groups))

		for _, scenes := range groups {
			if err := report.halted(ctx); err != nil {
				return err
			}
			group := primaryFiles(scenes)
			report.Scanned += len(scenes)
			result := dedupe.ResolveWithPolicy(group, policy)
			summary.Add(group, result)
			r.logDuplicateDecision(logger, "duplicate_scenes", group, result)

			for _, sceneID := range result.ToDeleteSceneIDs {
				sceneCtx := services.WithSceneID(ctx, sceneID)
				r.apply(sceneCtx, report, "destroy duplicate scene", func(ctx context.Context) error {
					return r.catalog.DestroyScene(ctx, sceneID, true)
				},
					logging.Int64("keeper_scene_id", result.KeeperSceneID),
					logging.String("reason", result.Reason),
				)
			}
			r.observer.ItemDone(report.Job)
		}
		return nil
	})
}

// DeleteDuplicateFiles resolves organized scenes holding more than one file.
// When the keeper is not the primary file it is promoted first; the other
// files are destroyed only after that succeeds.
func (r *Runner) DeleteDuplicateFiles(ctx context.Context) (Report, error) {
	return r.run(ctx, JobDuplicateFiles, func(ctx context.Context, report *Report) error {
		scenes, err := r.fetchScenes(ctx, listing{
			filter: catalog.SceneFilter{
				Organized:            catalog.BoolPtr(true),
				FileCountGreaterThan: catalog.IntPtr(1),
			},
			pageSize: r.cfg.Matching.PageSize,
			max:      r.cfg.Duplicates.MaxScenes,
		})
		if err != nil {
			return services.Wrap(services.ErrRemote, JobDuplicateFiles, "find scenes", "list multi-file scenes", err)
		}

		summary := dedupe.NewSummary()
		report.Duplicates = summary
		policy := r.dedupePolicy()
		r.observer.JobStarted(report.Job, len(scenes))

		for _, scene := range scenes {
			if err := report.halted(ctx); err != nil {
				return err
			}
			report.Scanned++
			sceneCtx := services.WithSceneID(ctx, scene.ID)
			group := sceneFiles(scene)
			result := dedupe.ResolveWithPolicy(group, policy)
			summary.Add(group, result)
			r.logDuplicateDecision(r.jobLogger(sceneCtx), "duplicate_files", group, result)
			if result.HasKeeper() {
				r.keepFile(sceneCtx, report, scene, result)
			}
			r.observer.ItemDone(report.Job)
		}
		return nil
	})
}

func (r *Runner) keepFile(ctx context.Context, report *Report, scene catalog.Scene, result dedupe.Result) {
	if primary, ok := scene.PrimaryFile(); ok && primary.FileID != result.KeeperFileID {
		promoted := r.apply(ctx, report, "set primary file", func(ctx context.Context) error {
			return r.catalog.SetPrimaryFile(ctx, scene.ID, result.KeeperFileID)
		},
			logging.Int64("file_id", result.KeeperFileID),
			logging.Int64("previous_file_id", primary.FileID),
		)
		if !promoted {
			return
		}
	}
	for _, fileID := range result.ToDeleteFileIDs {
		r.apply(ctx, report, "destroy duplicate file", func(ctx context.Context) error {
			return r.catalog.DestroyFiles(ctx, []int64{fileID})
		},
			logging.Int64("file_id", fileID),
			logging.Int64("keeper_file_id", result.KeeperFileID),
			logging.String("reason", result.Reason),
		)
	}
}

func (r *Runner) logDuplicateDecision(logger *slog.Logger, decision string, group dedupe.Group, result dedupe.Result) {
	outcome := "skip"
	if result.HasKeeper() {
		outcome = "keep"
	}
	attrs := append(logging.DecisionAttrs(decision, outcome, result.Reason),
		logging.Int("files", len(group)),
	)
	if result.HasKeeper() {
		attrs = append(attrs,
			logging.Int64("keeper_scene_id", result.KeeperSceneID),
			logging.Int64("keeper_file_id", result.KeeperFileID),
			logging.Int64s("delete_file_ids", result.ToDeleteFileIDs),
			logging.Size("delete_size", result.ToDeleteBytes),
		)
	}
	logger.Info("duplicate decision", logging.Args(attrs...)...)
}

// primaryFiles builds a scene-level group from the first file of each scene.
// Scenes without files are left out.
func primaryFiles(scenes []catalog.Scene) dedupe.Group {
	group := make(dedupe.Group, 0, len(scenes))
	for _, scene := range scenes {
		file, ok := scene.PrimaryFile()
		if !ok {
			continue
		}
		file.SceneID = scene.ID
		file.Organized = scene.Organized
		group = append(group, file)
	}
	return group
}

// sceneFiles builds a file-level group from every file of one scene.
func sceneFiles(scene catalog.Scene) dedupe.Group {
	group := make(dedupe.Group, 0, len(scene.Files))
	for _, file := range scene.Files {
		file.SceneID = scene.ID
		file.Organized = scene.Organized
		group = append(group, file)
	}
	return group
}
