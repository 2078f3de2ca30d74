package workflow

import (
	"context"
	"strings"

	"scenekeeper/internal/catalog"
	"scenekeeper/internal/logging"
	"scenekeeper/internal/services"
)

// ProcessCorrupted destroys scenes whose files never produced a phash. The
// files stay on disk so a rescan can pick them up again.
func (r *Runner) ProcessCorrupted(ctx context.Context) (Report, error) {
	return r.run(ctx, JobCorrupted, func(ctx context.Context, report *Report) error {
		return r.destroyScenes(ctx, report, catalog.SceneFilter{MissingPHash: true}, false, "destroy corrupted scene")
	})
}

// ProcessTrash destroys scenes with a file under the trash path, deleting
// the files as well.
func (r *Runner) ProcessTrash(ctx context.Context) (Report, error) {
	return r.run(ctx, JobTrash, func(ctx context.Context, report *Report) error {
		trash := strings.TrimSpace(r.cfg.Paths.TrashPath)
		if trash == "" {
			return services.Wrap(services.ErrConfiguration, report.Job, "trash path", "paths.trash_path is not set", nil)
		}
		return r.destroyScenes(ctx, report, catalog.SceneFilter{PathIncludes: trash}, true, "destroy trashed scene")
	})
}

func (r *Runner) destroyScenes(ctx context.Context, report *Report, filter catalog.SceneFilter, deleteFiles bool, action string) error {
	scenes, err := r.fetchScenes(ctx, listing{
		filter:   filter,
		pageSize: r.cfg.Matching.PageSize,
		max:      r.cfg.Cleanup.MaxScenes,
	})
	if err != nil {
		return services.Wrap(services.ErrRemote, report.Job, "find scenes", "list scenes to destroy", err)
	}
	r.observer.JobStarted(report.Job, len(scenes))
	for _, scene := range scenes {
		if err := report.halted(ctx); err != nil {
			return err
		}
		report.Scanned++
		r.apply(services.WithSceneID(ctx, scene.ID), report, action, func(ctx context.Context) error {
			return r.catalog.DestroyScene(ctx, scene.ID, deleteFiles)
		}, logging.Bool("delete_files", deleteFiles), logging.String("title", scene.Title))
		r.observer.ItemDone(report.Job)
	}
	return nil
}

// Scan asks the catalog to rescan its libraries.
func (r *Runner) Scan(ctx context.Context) (Report, error) {
	return r.run(ctx, JobScan, func(ctx context.Context, report *Report) error {
		r.apply(ctx, report, "start metadata scan", func(ctx context.Context) error {
			id, err := r.catalog.MetadataScan(ctx)
			report.ScanJobID = id
			return err
		})
		if report.Failed > 0 {
			return services.Wrap(services.ErrRemote, report.Job, "metadata scan", "stash rejected the scan request", nil)
		}
		return nil
	})
}
