package workflow

import (
	"context"
	"fmt"

	"scenekeeper/internal/catalog"
	"scenekeeper/internal/logging"
	"scenekeeper/internal/retry"
)

const (
	sceneSort       = "id"
	defaultPageSize = 200
)

// listing bounds one paginated scene query. Max of zero means no cap.
type listing struct {
	filter   catalog.SceneFilter
	pageSize int
	max      int
}

// fetchScenes walks pages in id order until a short or empty page, or until
// max scenes are collected. Every request uses the same page size so page
// offsets stay aligned; the last page is truncated to the cap instead.
func (r *Runner) fetchScenes(ctx context.Context, l listing) ([]catalog.Scene, error) {
	size := l.pageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if l.max > 0 && l.max < size {
		size = l.max
	}
	logger := r.jobLogger(ctx)
	policy := r.retryPolicy(ctx)

	var scenes []catalog.Scene
	for number := 1; ; number++ {
		page := catalog.Page{Number: number, Size: size, Sort: sceneSort}
		batch, err := retry.Value(ctx, policy, "find scenes", func(ctx context.Context) ([]catalog.Scene, error) {
			return r.catalog.FindScenes(ctx, l.filter, page)
		})
		if err != nil {
			return scenes, fmt.Errorf("list scenes page %d: %w", number, err)
		}
		scenes = append(scenes, batch...)
		logger.Debug("scene page fetched",
			logging.Int("page", number),
			logging.Int("page_size", size),
			logging.Int("received", len(batch)),
			logging.Int("total", len(scenes)),
		)
		if l.max > 0 && len(scenes) >= l.max {
			return scenes[:l.max], nil
		}
		if len(batch) < size {
			return scenes, nil
		}
	}
}
