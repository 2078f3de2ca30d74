package testsupport

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"scenekeeper/internal/catalog"
)

// Call records one mutating request made against a FakeCatalog.
type Call struct {
	Method      string
	SceneID     int64
	FileID      int64
	BoxIndex    int
	IDs         []int64
	DeleteFiles bool
	Update      catalog.SceneUpdate
	Name        string
}

// ScrapeKey addresses scrape results by stash box index and scene.
type ScrapeKey struct {
	BoxIndex int
	SceneID  int64
}

// FakeCatalog is an in-memory catalog.Catalog for workflow tests. Listing
// methods honor filters and pagination over Scenes; mutating methods record a
// Call and update the stored scenes.
type FakeCatalog struct {
	mu sync.Mutex

	Scenes      []catalog.Scene
	Duplicates  map[catalog.Distance][][]catalog.Scene
	Tags        []catalog.Tag
	Connections []catalog.StashBoxConnection
	Candidates  map[ScrapeKey][]catalog.Candidate

	// Errors fails the named method. ScrapeErrors fails individual scrapes.
	Errors       map[string]error
	ScrapeErrors map[ScrapeKey]error
	// FailOnce fails the named method on its first call only.
	FailOnce map[string]error

	calls  []Call
	pages  []catalog.Page
	nextID int64
}

var _ catalog.Catalog = (*FakeCatalog)(nil)

// NewFakeCatalog returns an empty fake catalog.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		Duplicates:   make(map[catalog.Distance][][]catalog.Scene),
		Candidates:   make(map[ScrapeKey][]catalog.Candidate),
		Errors:       make(map[string]error),
		ScrapeErrors: make(map[ScrapeKey]error),
		FailOnce:     make(map[string]error),
		nextID:       1000,
	}
}

// AddTags registers tags by name and returns them with fresh ids.
func (f *FakeCatalog) AddTags(names ...string) []catalog.Tag {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]catalog.Tag, 0, len(names))
	for _, name := range names {
		f.nextID++
		tag := catalog.Tag{ID: f.nextID, Name: name}
		f.Tags = append(f.Tags, tag)
		out = append(out, tag)
	}
	return out
}

// Tag returns the registered tag called name.
func (f *FakeCatalog) Tag(name string) catalog.Tag {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tag := range f.Tags {
		if tag.Name == name {
			return tag
		}
	}
	return catalog.Tag{}
}

// Calls returns recorded mutating calls, optionally narrowed to one method.
func (f *FakeCatalog) Calls(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if method == "" {
		return slices.Clone(f.calls)
	}
	var out []Call
	for _, call := range f.calls {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

// Pages returns the pages requested through FindScenes.
func (f *FakeCatalog) Pages() []catalog.Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.pages)
}

// Scene returns the stored scene with id.
func (f *FakeCatalog) Scene(id int64) (catalog.Scene, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, scene := range f.Scenes {
		if scene.ID == id {
			return scene, true
		}
	}
	return catalog.Scene{}, false
}

func (f *FakeCatalog) failure(method string) error {
	if err, ok := f.FailOnce[method]; ok {
		delete(f.FailOnce, method)
		return err
	}
	return f.Errors[method]
}

func (f *FakeCatalog) FindDuplicateScenes(ctx context.Context, distance catalog.Distance) ([][]catalog.Scene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("FindDuplicateScenes"); err != nil {
		return nil, err
	}
	return f.Duplicates[distance], nil
}

func (f *FakeCatalog) FindScenes(ctx context.Context, filter catalog.SceneFilter, page catalog.Page) ([]catalog.Scene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, page)
	if err := f.failure("FindScenes"); err != nil {
		return nil, err
	}
	if page.Number < 1 || page.Size < 1 {
		return nil, fmt.Errorf("invalid page %+v", page)
	}

	var matched []catalog.Scene
	for _, scene := range f.Scenes {
		if sceneMatches(scene, filter) {
			matched = append(matched, scene)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	start := (page.Number - 1) * page.Size
	if start >= len(matched) {
		return nil, nil
	}
	end := min(start+page.Size, len(matched))
	out := make([]catalog.Scene, 0, end-start)
	for _, scene := range matched[start:end] {
		scene.Tags = slices.Clone(scene.Tags)
		scene.Files = slices.Clone(scene.Files)
		out = append(out, scene)
	}
	return out, nil
}

func sceneMatches(scene catalog.Scene, filter catalog.SceneFilter) bool {
	if filter.Organized != nil && scene.Organized != *filter.Organized {
		return false
	}
	ids := scene.TagIDs()
	for _, id := range filter.ExcludedTagIDs {
		if slices.Contains(ids, id) {
			return false
		}
	}
	if len(filter.TagIDs) > 0 {
		hits := 0
		for _, id := range filter.TagIDs {
			if slices.Contains(ids, id) {
				hits++
			}
		}
		if filter.TagModifier == catalog.TagsIncludesAll && hits != len(filter.TagIDs) {
			return false
		}
		if hits == 0 {
			return false
		}
	}
	if filter.FileCountGreaterThan != nil && len(scene.Files) <= *filter.FileCountGreaterThan {
		return false
	}
	if filter.PathIncludes != "" {
		found := false
		for _, file := range scene.Files {
			if strings.Contains(file.Path, filter.PathIncludes) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.MissingPHash {
		for _, file := range scene.Files {
			if file.PHash != "" {
				return false
			}
		}
	}
	return true
}

func (f *FakeCatalog) FindTags(ctx context.Context) ([]catalog.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("FindTags"); err != nil {
		return nil, err
	}
	return slices.Clone(f.Tags), nil
}

func (f *FakeCatalog) StashBoxConnections(ctx context.Context) ([]catalog.StashBoxConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("StashBoxConnections"); err != nil {
		return nil, err
	}
	return slices.Clone(f.Connections), nil
}

func (f *FakeCatalog) ScrapeScene(ctx context.Context, boxIndex int, sceneID int64) ([]catalog.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := ScrapeKey{BoxIndex: boxIndex, SceneID: sceneID}
	f.calls = append(f.calls, Call{Method: "ScrapeScene", SceneID: sceneID, BoxIndex: boxIndex})
	if err := f.ScrapeErrors[key]; err != nil {
		return nil, err
	}
	return f.Candidates[key], nil
}

func (f *FakeCatalog) UpdateSceneTags(ctx context.Context, sceneID int64, tagIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: "UpdateSceneTags", SceneID: sceneID, IDs: slices.Clone(tagIDs)})
	if err := f.failure("UpdateSceneTags"); err != nil {
		return err
	}
	idx := f.sceneIndex(sceneID)
	if idx < 0 {
		return errNotFound(sceneID)
	}
	tags := make([]catalog.Tag, 0, len(tagIDs))
	for _, id := range tagIDs {
		tag := catalog.Tag{ID: id}
		for _, known := range f.Tags {
			if known.ID == id {
				tag = known
				break
			}
		}
		tags = append(tags, tag)
	}
	f.Scenes[idx].Tags = tags
	return nil
}

func (f *FakeCatalog) UpdateSceneMetadata(ctx context.Context, sceneID int64, update catalog.SceneUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: "UpdateSceneMetadata", SceneID: sceneID, Update: update})
	if err := f.failure("UpdateSceneMetadata"); err != nil {
		return err
	}
	idx := f.sceneIndex(sceneID)
	if idx < 0 {
		return errNotFound(sceneID)
	}
	if update.Title != "" {
		f.Scenes[idx].Title = update.Title
	}
	return nil
}

func (f *FakeCatalog) SetPrimaryFile(ctx context.Context, sceneID, fileID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: "SetPrimaryFile", SceneID: sceneID, FileID: fileID})
	if err := f.failure("SetPrimaryFile"); err != nil {
		return err
	}
	idx := f.sceneIndex(sceneID)
	if idx < 0 {
		return errNotFound(sceneID)
	}
	files := f.Scenes[idx].Files
	for i, file := range files {
		if file.FileID == fileID {
			files[0], files[i] = files[i], files[0]
			return nil
		}
	}
	return fmt.Errorf("file %d not attached to scene %d", fileID, sceneID)
}

func (f *FakeCatalog) DestroyScene(ctx context.Context, sceneID int64, deleteFiles bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: "DestroyScene", SceneID: sceneID, DeleteFiles: deleteFiles})
	if err := f.failure("DestroyScene"); err != nil {
		return err
	}
	idx := f.sceneIndex(sceneID)
	if idx < 0 {
		return errNotFound(sceneID)
	}
	f.Scenes = slices.Delete(f.Scenes, idx, idx+1)
	return nil
}

func (f *FakeCatalog) DestroyFiles(ctx context.Context, fileIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: "DestroyFiles", IDs: slices.Clone(fileIDs)})
	if err := f.failure("DestroyFiles"); err != nil {
		return err
	}
	for i := range f.Scenes {
		f.Scenes[i].Files = slices.DeleteFunc(f.Scenes[i].Files, func(file catalog.FileRecord) bool {
			return slices.Contains(fileIDs, file.FileID)
		})
	}
	return nil
}

func (f *FakeCatalog) CreatePerformer(ctx context.Context, performer catalog.Performer) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: "CreatePerformer", Name: performer.Name})
	if err := f.failure("CreatePerformer"); err != nil {
		return 0, err
	}
	f.nextID++
	return f.nextID, nil
}

func (f *FakeCatalog) CreateStudio(ctx context.Context, studio catalog.Studio) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: "CreateStudio", Name: studio.Name})
	if err := f.failure("CreateStudio"); err != nil {
		return 0, err
	}
	f.nextID++
	return f.nextID, nil
}

func (f *FakeCatalog) MetadataScan(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: "MetadataScan"})
	if err := f.failure("MetadataScan"); err != nil {
		return "", err
	}
	f.nextID++
	return fmt.Sprintf("%d", f.nextID), nil
}

func (f *FakeCatalog) sceneIndex(id int64) int {
	return slices.IndexFunc(f.Scenes, func(scene catalog.Scene) bool { return scene.ID == id })
}

// ErrFake is returned for unknown scenes.
var ErrFake = errors.New("fake catalog")

func errNotFound(id int64) error {
	return fmt.Errorf("%w: scene %d not found", ErrFake, id)
}
