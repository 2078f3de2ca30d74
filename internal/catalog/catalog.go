package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Distance is the phash similarity bucket used to group duplicate scenes.
type Distance int

// Bucket values mirror the catalog's phash distance thresholds.
const (
	DistanceExact  Distance = 0
	DistanceHigh   Distance = 4
	DistanceMedium Distance = 8
	DistanceLow    Distance = 10
)

// String returns the lowercase bucket name.
func (d Distance) String() string {
	switch d {
	case DistanceExact:
		return "exact"
	case DistanceHigh:
		return "high"
	case DistanceMedium:
		return "medium"
	case DistanceLow:
		return "low"
	default:
		return fmt.Sprintf("distance(%d)", int(d))
	}
}

// ParseDistance converts a bucket name into a Distance.
func ParseDistance(value string) (Distance, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "exact":
		return DistanceExact, nil
	case "high":
		return DistanceHigh, nil
	case "medium":
		return DistanceMedium, nil
	case "low":
		return DistanceLow, nil
	default:
		return 0, fmt.Errorf("unknown phash distance %q (want exact, high, medium or low)", value)
	}
}

// TagModifier selects how a tag criterion combines its values.
type TagModifier string

const (
	TagsIncludes    TagModifier = "INCLUDES"
	TagsIncludesAll TagModifier = "INCLUDES_ALL"
)

// SceneFilter narrows a scene listing. Nil pointers and empty slices are
// ignored.
type SceneFilter struct {
	Organized            *bool
	TagIDs               []int64
	ExcludedTagIDs       []int64
	TagModifier          TagModifier
	FileCountGreaterThan *int
	PathIncludes         string
	MissingPHash         bool
}

// Page selects one slice of a sorted scene listing. Number is 1-based.
type Page struct {
	Number int
	Size   int
	Sort   string
}

// Catalog is the narrow surface of the media-cataloging service used by the
// workflow jobs.
type Catalog interface {
	FindDuplicateScenes(ctx context.Context, distance Distance) ([][]Scene, error)
	FindScenes(ctx context.Context, filter SceneFilter, page Page) ([]Scene, error)
	FindTags(ctx context.Context) ([]Tag, error)
	StashBoxConnections(ctx context.Context) ([]StashBoxConnection, error)
	ScrapeScene(ctx context.Context, boxIndex int, sceneID int64) ([]Candidate, error)
	UpdateSceneTags(ctx context.Context, sceneID int64, tagIDs []int64) error
	UpdateSceneMetadata(ctx context.Context, sceneID int64, update SceneUpdate) error
	SetPrimaryFile(ctx context.Context, sceneID, fileID int64) error
	DestroyScene(ctx context.Context, sceneID int64, deleteFiles bool) error
	DestroyFiles(ctx context.Context, fileIDs []int64) error
	CreatePerformer(ctx context.Context, performer Performer) (int64, error)
	CreateStudio(ctx context.Context, studio Studio) (int64, error)
	MetadataScan(ctx context.Context) (string, error)
}

// Scraper is the subset of Catalog needed to fetch candidates.
type Scraper interface {
	ScrapeScene(ctx context.Context, boxIndex int, sceneID int64) ([]Candidate, error)
}

// BoolPtr returns a pointer to v for filter fields.
func BoolPtr(v bool) *bool { return &v }

// IntPtr returns a pointer to v for filter fields.
func IntPtr(v int) *int { return &v }
