package workflow

import (
	"context"

	"scenekeeper/internal/catalog"
	"scenekeeper/internal/logging"
	"scenekeeper/internal/scrape"
	"scenekeeper/internal/textutil"
)

// copyMetadata writes the accepted candidate's metadata onto scene. Studios
// and performers the catalog does not know yet are created once per run and
// reused by name for later scenes.
func (r *Runner) copyMetadata(ctx context.Context, report *Report, scene catalog.Scene, result scrape.Result, names *textutil.NameIndex) {
	candidate, _, ok := result.Chosen()
	if !ok {
		return
	}

	update := catalog.SceneUpdate{
		Title:        candidate.Title,
		Code:         candidate.Code,
		Details:      candidate.Details,
		Director:     candidate.Director,
		Date:         candidate.Date,
		URLs:         candidate.URLs,
		StashBoxURL:  result.Box.URL,
		RemoteSiteID: candidate.RemoteSiteID,
	}
	if studio := candidate.Studio; studio != nil && studio.Name != "" {
		update.StudioID = r.ensureEntity(ctx, report, names, studio.Name, studio.StoredID, "create studio",
			func(ctx context.Context) (int64, error) { return r.catalog.CreateStudio(ctx, *studio) })
	}
	for _, performer := range candidate.Performers {
		if performer.Name == "" {
			continue
		}
		id := r.ensureEntity(ctx, report, names, performer.Name, performer.StoredID, "create performer",
			func(ctx context.Context) (int64, error) { return r.catalog.CreatePerformer(ctx, performer) })
		if id > 0 {
			update.PerformerIDs = append(update.PerformerIDs, id)
		}
	}

	r.apply(ctx, report, "update scene metadata", func(ctx context.Context) error {
		return r.catalog.UpdateSceneMetadata(ctx, scene.ID, update)
	},
		logging.String(logging.FieldStashBox, result.Box.Name),
		logging.String("title", update.Title),
		logging.Int64("studio_id", update.StudioID),
		logging.Int64s("performer_ids", update.PerformerIDs),
	)
}

// ensureEntity returns the catalog id for a scraped studio or performer,
// creating it when neither the scrape nor this run has seen it. It returns 0
// in dry-run for entities that would be created, and plans each name once.
func (r *Runner) ensureEntity(ctx context.Context, report *Report, names *textutil.NameIndex, name string, stored int64, action string, create func(context.Context) (int64, error)) int64 {
	if stored > 0 {
		names.Remember(name, stored)
		return stored
	}
	if id, ok := names.Lookup(name); ok {
		return id
	}
	if names.Planned(name) {
		return 0
	}
	var id int64
	created := r.apply(ctx, report, action, func(ctx context.Context) error {
		var err error
		id, err = create(ctx)
		return err
	}, logging.String("name", name))
	if !created {
		return 0
	}
	report.Matches.Created++
	if id == 0 {
		names.Plan(name)
		return 0
	}
	names.Remember(name, id)
	return id
}
