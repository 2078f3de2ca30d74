package workflow

import (
	"context"
	"fmt"
	"strings"

	"scenekeeper/internal/catalog"
	"scenekeeper/internal/logging"
	"scenekeeper/internal/retry"
	"scenekeeper/internal/services"
	"scenekeeper/internal/textutil"
)

// tagSet maps catalog tag names to ids for one job.
type tagSet map[string]int64

func (r *Runner) loadTags(ctx context.Context) (tagSet, error) {
	tags, err := retry.Value(ctx, r.retryPolicy(ctx), "find tags", func(ctx context.Context) ([]catalog.Tag, error) {
		return r.catalog.FindTags(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	set := make(tagSet, len(tags))
	for _, tag := range tags {
		set[tag.Name] = tag.ID
	}
	return set, nil
}

// ids returns the ids of the named tags that exist, in name order.
func (s tagSet) ids(names ...string) []int64 {
	out := make([]int64, 0, len(names))
	for _, name := range names {
		if id, ok := s[name]; ok {
			out = append(out, id)
		}
	}
	return out
}

// require returns the id of each named tag, failing on the first missing one.
func (s tagSet) require(job string, names ...string) ([]int64, error) {
	out := make([]int64, 0, len(names))
	for _, name := range names {
		id, ok := s[name]
		if !ok {
			return nil, services.Wrap(services.ErrConfiguration, job, "resolve tags",
				fmt.Sprintf("tag %q does not exist in stash; create it first", name), nil)
		}
		out = append(out, id)
	}
	return out, nil
}

// resolveStashBoxes pairs every configured stash box with its catalog
// connection index and tag id. Boxes whose connection or tag is missing are
// skipped with a warning; an empty result is a configuration error.
func (r *Runner) resolveStashBoxes(ctx context.Context, job string, tags tagSet) ([]catalog.StashBox, error) {
	connections, err := retry.Value(ctx, r.retryPolicy(ctx), "list stash boxes", func(ctx context.Context) ([]catalog.StashBoxConnection, error) {
		return r.catalog.StashBoxConnections(ctx)
	})
	if err != nil {
		return nil, services.Wrap(services.ErrRemote, job, "list stash boxes", "read stash box connections", err)
	}

	logger := r.jobLogger(ctx)
	boxes := make([]catalog.StashBox, 0, len(r.cfg.Matching.StashBoxes))
	for _, configured := range r.cfg.Matching.StashBoxes {
		conn, ok := findConnection(connections, configured.Name)
		if !ok {
			logging.WarnWithContext(logger, "stash box not configured in stash; skipped", "stash_box_missing",
				logging.String(logging.FieldStashBox, configured.Name),
				logging.String(logging.FieldErrorHint, "add the stash box under Settings > Metadata Providers or fix matching.stash_boxes"),
				logging.String(logging.FieldImpact, "scenes are not matched against this stash box"),
			)
			continue
		}
		tagID, ok := tags[configured.Tag]
		if !ok {
			logging.WarnWithContext(logger, "stash box tag missing; skipped", "stash_box_tag_missing",
				logging.String(logging.FieldStashBox, configured.Name),
				logging.String("tag", configured.Tag),
				logging.String(logging.FieldErrorHint, "create the tag in stash"),
				logging.String(logging.FieldImpact, "scenes are not matched against this stash box"),
			)
			continue
		}
		boxes = append(boxes, catalog.StashBox{
			Index:   conn.Index,
			Name:    conn.Name,
			TagName: configured.Tag,
			TagID:   tagID,
			URL:     conn.Endpoint,
		})
	}
	if len(boxes) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, job, "resolve stash boxes", "no configured stash box is usable", nil)
	}
	return boxes, nil
}

// findConnection matches by exact name first, then by folded name.
func findConnection(connections []catalog.StashBoxConnection, name string) (catalog.StashBoxConnection, bool) {
	for _, conn := range connections {
		if conn.Name == name {
			return conn, true
		}
	}
	key := textutil.NameKey(name)
	for _, conn := range connections {
		if key != "" && textutil.NameKey(conn.Name) == key {
			return conn, true
		}
	}
	for _, conn := range connections {
		if strings.Contains(conn.Endpoint, strings.ToLower(name)) {
			return conn, true
		}
	}
	return catalog.StashBoxConnection{}, false
}
