package stash

import (
	"context"
	"errors"
	"fmt"

	"scenekeeper/internal/catalog"
)

// FindDuplicateScenes returns phash duplicate groups at the given distance.
func (c *Client) FindDuplicateScenes(ctx context.Context, distance catalog.Distance) ([][]catalog.Scene, error) {
	query := `query FindDuplicateScenes($distance: Int) {
  findDuplicateScenes(distance: $distance) {` + sceneFields + `
  }
}`
	var data struct {
		Groups [][]wireScene `json:"findDuplicateScenes"`
	}
	if err := c.do(ctx, "find duplicate scenes", query, map[string]any{"distance": int(distance)}, &data); err != nil {
		return nil, err
	}
	groups := make([][]catalog.Scene, 0, len(data.Groups))
	for _, wireGroup := range data.Groups {
		group := make([]catalog.Scene, 0, len(wireGroup))
		for _, scene := range wireGroup {
			group = append(group, scene.toCatalog())
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// FindScenes returns one page of scenes matching filter.
func (c *Client) FindScenes(ctx context.Context, filter catalog.SceneFilter, page catalog.Page) ([]catalog.Scene, error) {
	query := `query FindScenes($filter: FindFilterType, $scene_filter: SceneFilterType) {
  findScenes(filter: $filter, scene_filter: $scene_filter) {
    scenes {` + sceneFields + `
    }
  }
}`
	findFilter := map[string]any{"per_page": page.Size, "page": page.Number}
	if page.Sort != "" {
		findFilter["sort"] = page.Sort
		findFilter["direction"] = "ASC"
	}
	var data struct {
		FindScenes struct {
			Scenes []wireScene `json:"scenes"`
		} `json:"findScenes"`
	}
	variables := map[string]any{"filter": findFilter, "scene_filter": sceneFilterInput(filter)}
	if err := c.do(ctx, "find scenes", query, variables, &data); err != nil {
		return nil, err
	}
	scenes := make([]catalog.Scene, 0, len(data.FindScenes.Scenes))
	for _, scene := range data.FindScenes.Scenes {
		scenes = append(scenes, scene.toCatalog())
	}
	return scenes, nil
}

// FindTags lists every tag in the catalog.
func (c *Client) FindTags(ctx context.Context) ([]catalog.Tag, error) {
	if c.tags != nil {
		if cached, ok := c.tags.Get(tagsCacheKey); ok {
			return cached, nil
		}
	}
	query := `query FindTags {
  findTags(filter: {per_page: -1}) {
    tags { id name }
  }
}`
	var data struct {
		FindTags struct {
			Tags []wireTag `json:"tags"`
		} `json:"findTags"`
	}
	if err := c.do(ctx, "find tags", query, nil, &data); err != nil {
		return nil, err
	}
	tags := make([]catalog.Tag, 0, len(data.FindTags.Tags))
	for _, tag := range data.FindTags.Tags {
		tags = append(tags, tag.toCatalog())
	}
	if c.tags != nil {
		c.tags.Add(tagsCacheKey, tags)
	}
	return tags, nil
}

// StashBoxConnections lists the stash boxes configured in the catalog in
// connection order; Index is the position scrape requests refer to.
func (c *Client) StashBoxConnections(ctx context.Context) ([]catalog.StashBoxConnection, error) {
	if c.boxes != nil {
		if cached, ok := c.boxes.Get(boxesCacheKey); ok {
			return cached, nil
		}
	}
	query := `query StashBoxes {
  configuration {
    general {
      stashBoxes { name endpoint }
    }
  }
}`
	var data struct {
		Configuration struct {
			General struct {
				StashBoxes []struct {
					Name     string `json:"name"`
					Endpoint string `json:"endpoint"`
				} `json:"stashBoxes"`
			} `json:"general"`
		} `json:"configuration"`
	}
	if err := c.do(ctx, "list stash boxes", query, nil, &data); err != nil {
		return nil, err
	}
	boxes := make([]catalog.StashBoxConnection, 0, len(data.Configuration.General.StashBoxes))
	for i, box := range data.Configuration.General.StashBoxes {
		boxes = append(boxes, catalog.StashBoxConnection{Index: i, Name: box.Name, Endpoint: box.Endpoint})
	}
	if c.boxes != nil {
		c.boxes.Add(boxesCacheKey, boxes)
	}
	return boxes, nil
}

// ScrapeScene asks the stash box at boxIndex for candidates matching a scene.
func (c *Client) ScrapeScene(ctx context.Context, boxIndex int, sceneID int64) ([]catalog.Candidate, error) {
	query := `query ScrapeScene($source: ScraperSourceInput!, $input: ScrapeSingleSceneInput!) {
  scrapeSingleScene(source: $source, input: $input) {` + scrapedSceneFields + `
  }
}`
	variables := map[string]any{
		"source": map[string]any{"stash_box_index": boxIndex},
		"input":  map[string]any{"scene_id": formatID(sceneID)},
	}
	var data struct {
		Scenes []wireScrapedScene `json:"scrapeSingleScene"`
	}
	if err := c.do(ctx, "scrape scene", query, variables, &data); err != nil {
		return nil, err
	}
	candidates := make([]catalog.Candidate, 0, len(data.Scenes))
	for _, scene := range data.Scenes {
		candidates = append(candidates, scene.toCatalog())
	}
	return candidates, nil
}

const sceneUpdateMutation = `mutation SceneUpdate($input: SceneUpdateInput!) {
  sceneUpdate(input: $input) { id }
}`

// UpdateSceneTags replaces the tag set of a scene.
func (c *Client) UpdateSceneTags(ctx context.Context, sceneID int64, tagIDs []int64) error {
	input := map[string]any{"id": formatID(sceneID), "tag_ids": formatIDs(tagIDs)}
	return c.do(ctx, "update scene tags", sceneUpdateMutation, map[string]any{"input": input}, nil)
}

// UpdateSceneMetadata copies scraped metadata onto a scene. Empty fields are
// left untouched.
func (c *Client) UpdateSceneMetadata(ctx context.Context, sceneID int64, update catalog.SceneUpdate) error {
	input := map[string]any{"id": formatID(sceneID)}
	setString(input, "title", update.Title)
	setString(input, "code", update.Code)
	setString(input, "details", update.Details)
	setString(input, "director", update.Director)
	setString(input, "date", update.Date)
	if len(update.URLs) > 0 {
		input["urls"] = update.URLs
	}
	if update.StudioID > 0 {
		input["studio_id"] = formatID(update.StudioID)
	}
	if len(update.PerformerIDs) > 0 {
		input["performer_ids"] = formatIDs(update.PerformerIDs)
	}
	if update.StashBoxURL != "" && update.RemoteSiteID != "" {
		input["stash_ids"] = []map[string]any{{"endpoint": update.StashBoxURL, "stash_id": update.RemoteSiteID}}
	}
	return c.do(ctx, "update scene metadata", sceneUpdateMutation, map[string]any{"input": input}, nil)
}

// SetPrimaryFile makes fileID the primary file of the scene.
func (c *Client) SetPrimaryFile(ctx context.Context, sceneID, fileID int64) error {
	input := map[string]any{"id": formatID(sceneID), "primary_file_id": formatID(fileID)}
	return c.do(ctx, "set primary file", sceneUpdateMutation, map[string]any{"input": input}, nil)
}

// DestroyScene removes a scene, and its files from disk when deleteFiles is set.
func (c *Client) DestroyScene(ctx context.Context, sceneID int64, deleteFiles bool) error {
	query := `mutation SceneDestroy($input: SceneDestroyInput!) {
  sceneDestroy(input: $input)
}`
	input := map[string]any{
		"id":               formatID(sceneID),
		"delete_file":      deleteFiles,
		"delete_generated": true,
	}
	return c.do(ctx, "destroy scene", query, map[string]any{"input": input}, nil)
}

// DestroyFiles deletes files from disk and from the catalog.
func (c *Client) DestroyFiles(ctx context.Context, fileIDs []int64) error {
	if len(fileIDs) == 0 {
		return nil
	}
	query := `mutation DeleteFiles($ids: [ID!]!) {
  deleteFiles(ids: $ids)
}`
	return c.do(ctx, "destroy files", query, map[string]any{"ids": formatIDs(fileIDs)}, nil)
}

// CreatePerformer creates a performer and returns its id.
func (c *Client) CreatePerformer(ctx context.Context, performer catalog.Performer) (int64, error) {
	if performer.Name == "" {
		return 0, errors.New("stash create performer: name is required")
	}
	query := `mutation PerformerCreate($input: PerformerCreateInput!) {
  performerCreate(input: $input) { id }
}`
	var data struct {
		Created struct {
			ID string `json:"id"`
		} `json:"performerCreate"`
	}
	if err := c.do(ctx, "create performer", query, map[string]any{"input": performerInput(performer)}, &data); err != nil {
		return 0, err
	}
	return createdID("create performer", data.Created.ID)
}

// CreateStudio creates a studio and returns its id.
func (c *Client) CreateStudio(ctx context.Context, studio catalog.Studio) (int64, error) {
	if studio.Name == "" {
		return 0, errors.New("stash create studio: name is required")
	}
	query := `mutation StudioCreate($input: StudioCreateInput!) {
  studioCreate(input: $input) { id }
}`
	var data struct {
		Created struct {
			ID string `json:"id"`
		} `json:"studioCreate"`
	}
	if err := c.do(ctx, "create studio", query, map[string]any{"input": studioInput(studio)}, &data); err != nil {
		return 0, err
	}
	return createdID("create studio", data.Created.ID)
}

// MetadataScan starts a library scan and returns the job id.
func (c *Client) MetadataScan(ctx context.Context) (string, error) {
	query := `mutation MetadataScan {
  metadataScan(input: {})
}`
	var data struct {
		JobID string `json:"metadataScan"`
	}
	if err := c.do(ctx, "metadata scan", query, nil, &data); err != nil {
		return "", err
	}
	return data.JobID, nil
}

func createdID(operation, raw string) (int64, error) {
	id := parseID(raw)
	if id == 0 {
		return 0, fmt.Errorf("stash %s: unexpected id %q", operation, raw)
	}
	return id, nil
}
