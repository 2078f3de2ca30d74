package stash

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"scenekeeper/internal/catalog"
	"scenekeeper/internal/config"
	"scenekeeper/internal/services"
)

type recordedRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// newTestServer answers every request with respond and records the decoded
// GraphQL payloads.
func newTestServer(t *testing.T, respond func(req recordedRequest) (int, string)) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []recordedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("ApiKey"); got != "secret" {
			t.Errorf("unexpected api key header %q", got)
		}
		var req recordedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()
		status, body := respond(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), requests...)
	}
}

func TestFindScenesSendsFilterAndMapsFiles(t *testing.T) {
	server, requests := newTestServer(t, func(recordedRequest) (int, string) {
		return http.StatusOK, `{"data":{"findScenes":{"scenes":[{
			"id":"12","title":"Scene","organized":true,
			"tags":[{"id":"3","name":"MATCH_DONE"}],
			"files":[{"id":"40","path":"/media/a.mp4","basename":"a.mp4","size":1073741824,
				"duration":1200.5,"video_codec":"hevc","width":1920,"height":1080,"format":"mp4",
				"fingerprints":[{"type":"phash","value":"abcdef0123456789"},{"type":"oshash","value":"0011"}]}]
		}]}}}`
	})

	client := NewClient(server.URL, "secret")
	filter := catalog.SceneFilter{
		Organized:      catalog.BoolPtr(false),
		TagIDs:         []int64{7},
		ExcludedTagIDs: []int64{8, 9},
		TagModifier:    catalog.TagsIncludesAll,
	}
	scenes, err := client.FindScenes(context.Background(), filter, catalog.Page{Number: 2, Size: 50, Sort: "id"})
	if err != nil {
		t.Fatalf("FindScenes: %v", err)
	}

	recorded := requests()
	if len(recorded) != 1 {
		t.Fatalf("expected 1 request, got %d", len(recorded))
	}
	vars := recorded[0].Variables
	findFilter := vars["filter"].(map[string]any)
	if findFilter["page"].(float64) != 2 || findFilter["per_page"].(float64) != 50 || findFilter["sort"] != "id" {
		t.Fatalf("unexpected find filter: %v", findFilter)
	}
	sceneFilter := vars["scene_filter"].(map[string]any)
	if sceneFilter["organized"] != false {
		t.Fatalf("expected organized=false, got %v", sceneFilter)
	}
	tags := sceneFilter["tags"].(map[string]any)
	if tags["modifier"] != "INCLUDES_ALL" {
		t.Fatalf("unexpected tag modifier: %v", tags)
	}
	if excludes := tags["excludes"].([]any); len(excludes) != 2 || excludes[0] != "8" {
		t.Fatalf("unexpected excludes: %v", tags["excludes"])
	}

	if len(scenes) != 1 || len(scenes[0].Files) != 1 {
		t.Fatalf("unexpected scenes: %+v", scenes)
	}
	file := scenes[0].Files[0]
	if file.SceneID != 12 || file.FileID != 40 || !file.Organized {
		t.Fatalf("unexpected file identity: %+v", file)
	}
	if file.PHash != "abcdef0123456789" || file.OSHash != "0011" {
		t.Fatalf("unexpected fingerprints: %+v", file)
	}
	if file.Size != 1<<30 || file.Width != 1920 || file.VideoCodec != "hevc" {
		t.Fatalf("unexpected file fields: %+v", file)
	}
	if !scenes[0].HasTag("MATCH_DONE") {
		t.Fatal("expected scene tag")
	}
}

func TestSceneFilterInputOptionalCriteria(t *testing.T) {
	input := sceneFilterInput(catalog.SceneFilter{
		FileCountGreaterThan: catalog.IntPtr(1),
		PathIncludes:         "/trash/",
		MissingPHash:         true,
	})
	if fc := input["file_count"].(map[string]any); fc["modifier"] != "GREATER_THAN" || fc["value"] != 1 {
		t.Fatalf("unexpected file_count: %v", fc)
	}
	if path := input["path"].(map[string]any); path["value"] != "/trash/" || path["modifier"] != "INCLUDES" {
		t.Fatalf("unexpected path: %v", path)
	}
	if ph := input["phash_distance"].(map[string]any); ph["modifier"] != "IS_NULL" {
		t.Fatalf("unexpected phash_distance: %v", ph)
	}
	if _, ok := input["organized"]; ok {
		t.Fatal("nil organized should be omitted")
	}
	if _, ok := input["tags"]; ok {
		t.Fatal("empty tag criteria should be omitted")
	}
}

func TestFindTagsCachesWithinTTL(t *testing.T) {
	var calls atomic.Int32
	server, _ := newTestServer(t, func(recordedRequest) (int, string) {
		calls.Add(1)
		return http.StatusOK, `{"data":{"findTags":{"tags":[{"id":"1","name":"MATCH_STASHDB"}]}}}`
	})

	cached := NewClient(server.URL, "secret", WithCacheTTL(time.Minute))
	for range 2 {
		tags, err := cached.FindTags(context.Background())
		if err != nil {
			t.Fatalf("FindTags: %v", err)
		}
		if len(tags) != 1 || tags[0].ID != 1 || tags[0].Name != "MATCH_STASHDB" {
			t.Fatalf("unexpected tags: %+v", tags)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected cached second call, got %d requests", calls.Load())
	}

	uncached := NewClient(server.URL, "secret", WithCacheTTL(0))
	for range 2 {
		if _, err := uncached.FindTags(context.Background()); err != nil {
			t.Fatalf("FindTags: %v", err)
		}
	}
	if calls.Load() != 3 {
		t.Fatalf("expected uncached client to query each time, got %d requests", calls.Load())
	}
}

func TestStashBoxConnectionsUseConnectionIndex(t *testing.T) {
	server, _ := newTestServer(t, func(recordedRequest) (int, string) {
		return http.StatusOK, `{"data":{"configuration":{"general":{"stashBoxes":[
			{"name":"stashdb.org","endpoint":"https://stashdb.org/graphql"},
			{"name":"FansDB","endpoint":"https://fansdb.cc/graphql"}]}}}}`
	})

	boxes, err := NewClient(server.URL, "secret").StashBoxConnections(context.Background())
	if err != nil {
		t.Fatalf("StashBoxConnections: %v", err)
	}
	if len(boxes) != 2 || boxes[1].Index != 1 || boxes[1].Name != "FansDB" {
		t.Fatalf("unexpected boxes: %+v", boxes)
	}
}

func TestScrapeSceneMapsCandidates(t *testing.T) {
	server, requests := newTestServer(t, func(recordedRequest) (int, string) {
		return http.StatusOK, `{"data":{"scrapeSingleScene":[{
			"title":"Found","date":"2021-05-06","remote_site_id":"uuid-1","duration":1200,
			"fingerprints":[{"algorithm":"phash","hash":"ff00","duration":1200}],
			"studio":{"stored_id":null,"name":"Studio","url":"https://studio","parent":{"name":"Network"}},
			"performers":[{"stored_id":"5","name":"Known"},{"stored_id":null,"name":"New","height":"170"}]
		}]}}`
	})

	candidates, err := NewClient(server.URL, "secret").ScrapeScene(context.Background(), 2, 99)
	if err != nil {
		t.Fatalf("ScrapeScene: %v", err)
	}
	vars := requests()[0].Variables
	if vars["source"].(map[string]any)["stash_box_index"].(float64) != 2 {
		t.Fatalf("unexpected source: %v", vars["source"])
	}
	if vars["input"].(map[string]any)["scene_id"] != "99" {
		t.Fatalf("unexpected input: %v", vars["input"])
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	c := candidates[0]
	if c.Title != "Found" || c.RemoteSiteID != "uuid-1" || c.Date != "2021-05-06" {
		t.Fatalf("unexpected candidate: %+v", c)
	}
	if len(c.Fingerprints) != 1 || c.Fingerprints[0].Algorithm != catalog.AlgorithmPHash {
		t.Fatalf("expected upper-cased algorithm, got %+v", c.Fingerprints)
	}
	if c.Studio == nil || c.Studio.StoredID != 0 || c.Studio.ParentName != "Network" {
		t.Fatalf("unexpected studio: %+v", c.Studio)
	}
	if len(c.Performers) != 2 || c.Performers[0].StoredID != 5 || c.Performers[1].StoredID != 0 {
		t.Fatalf("unexpected performers: %+v", c.Performers)
	}
}

func TestMutationsSendExpectedInput(t *testing.T) {
	server, requests := newTestServer(t, func(req recordedRequest) (int, string) {
		switch {
		case strings.Contains(req.Query, "performerCreate"):
			return http.StatusOK, `{"data":{"performerCreate":{"id":"31"}}}`
		case strings.Contains(req.Query, "studioCreate"):
			return http.StatusOK, `{"data":{"studioCreate":{"id":"32"}}}`
		case strings.Contains(req.Query, "metadataScan"):
			return http.StatusOK, `{"data":{"metadataScan":"77"}}`
		default:
			return http.StatusOK, `{"data":{}}`
		}
	})
	client := NewClient(server.URL, "secret")
	ctx := context.Background()

	if err := client.UpdateSceneTags(ctx, 5, []int64{1, 2}); err != nil {
		t.Fatalf("UpdateSceneTags: %v", err)
	}
	if err := client.SetPrimaryFile(ctx, 5, 9); err != nil {
		t.Fatalf("SetPrimaryFile: %v", err)
	}
	if err := client.DestroyScene(ctx, 5, true); err != nil {
		t.Fatalf("DestroyScene: %v", err)
	}
	if err := client.DestroyFiles(ctx, []int64{9}); err != nil {
		t.Fatalf("DestroyFiles: %v", err)
	}
	if err := client.UpdateSceneMetadata(ctx, 5, catalog.SceneUpdate{
		Title: "T", StudioID: 32, PerformerIDs: []int64{31},
		StashBoxURL: "https://stashdb.org/graphql", RemoteSiteID: "uuid-1",
	}); err != nil {
		t.Fatalf("UpdateSceneMetadata: %v", err)
	}
	performerID, err := client.CreatePerformer(ctx, catalog.Performer{Name: "New", Gender: "Female", Height: "170cm", Aliases: "A, B"})
	if err != nil || performerID != 31 {
		t.Fatalf("CreatePerformer = %d, %v", performerID, err)
	}
	studioID, err := client.CreateStudio(ctx, catalog.Studio{Name: "Studio"})
	if err != nil || studioID != 32 {
		t.Fatalf("CreateStudio = %d, %v", studioID, err)
	}
	jobID, err := client.MetadataScan(ctx)
	if err != nil || jobID != "77" {
		t.Fatalf("MetadataScan = %q, %v", jobID, err)
	}

	recorded := requests()
	input := func(i int) map[string]any { return recorded[i].Variables["input"].(map[string]any) }
	if tags := input(0)["tag_ids"].([]any); len(tags) != 2 || tags[1] != "2" {
		t.Fatalf("unexpected tag ids: %v", input(0))
	}
	if input(1)["primary_file_id"] != "9" {
		t.Fatalf("unexpected primary file input: %v", input(1))
	}
	if input(2)["delete_file"] != true {
		t.Fatalf("unexpected destroy input: %v", input(2))
	}
	if ids := recorded[3].Variables["ids"].([]any); len(ids) != 1 || ids[0] != "9" {
		t.Fatalf("unexpected delete ids: %v", recorded[3].Variables)
	}
	meta := input(4)
	if meta["title"] != "T" || meta["studio_id"] != "32" {
		t.Fatalf("unexpected metadata input: %v", meta)
	}
	if _, ok := meta["details"]; ok {
		t.Fatal("empty fields should not be sent")
	}
	performer := input(5)
	if performer["gender"] != "FEMALE" || performer["height_cm"].(float64) != 170 {
		t.Fatalf("unexpected performer input: %v", performer)
	}
	if aliases := performer["alias_list"].([]any); len(aliases) != 2 {
		t.Fatalf("unexpected aliases: %v", performer["alias_list"])
	}
}

func TestErrorsAreClassified(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retriable bool
		marker    error
		check     func(error) bool
	}{
		{
			name:   "graphql errors",
			status: http.StatusOK,
			body:   `{"errors":[{"message":"scene not found"}],"data":null}`,
			marker: services.ErrNotFound,
			check: func(err error) bool {
				var gqlErr *GraphQLError
				return errors.As(err, &gqlErr) && gqlErr.Messages[0] == "scene not found"
			},
		},
		{
			name:      "server error",
			status:    http.StatusBadGateway,
			body:      "bad gateway",
			retriable: true,
			marker:    services.ErrTransient,
			check: func(err error) bool {
				var statusErr *HTTPStatusError
				return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadGateway
			},
		},
		{name: "graphql validation", status: http.StatusOK, body: `{"errors":[{"message":"invalid id"}]}`, marker: services.ErrValidation},
		{name: "rate limited", status: http.StatusTooManyRequests, body: "slow down", retriable: true, marker: services.ErrTransient},
		{name: "unauthorized", status: http.StatusUnauthorized, body: "no", marker: services.ErrConfiguration},
		{name: "bad request", status: http.StatusBadRequest, body: "no", marker: services.ErrRemote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newTestServer(t, func(recordedRequest) (int, string) { return tt.status, tt.body })
			_, err := NewClient(server.URL, "secret").FindTags(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if got := IsRetriable(err); got != tt.retriable {
				t.Fatalf("IsRetriable = %v, want %v (%v)", got, tt.retriable, err)
			}
			if tt.marker != nil && !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v marker, got %v", tt.marker, err)
			}
			if tt.check != nil && !tt.check(err) {
				t.Fatalf("unexpected error shape: %v", err)
			}
		})
	}
}

func TestTransportFailureIsRetriable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url, "").FindTags(context.Background())
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	if !IsRetriable(err) {
		t.Fatalf("expected transport failure to be retriable: %v", err)
	}
	if !errors.Is(err, services.ErrTransient) || services.IsFatal(err) {
		t.Fatalf("expected a transient, non-fatal transport failure: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewClient(url, "").FindTags(ctx)
	if err == nil || IsRetriable(err) {
		t.Fatalf("cancelled request must not be retriable: %v", err)
	}
}

func TestNewFromConfigUsesEndpoint(t *testing.T) {
	cfg := config.Default()
	cfg.Stash.Host = "stash.lan"
	cfg.Stash.APIKey = "k"
	client := NewFromConfig(&cfg)
	if client.endpoint != "http://stash.lan:9999/graphql" || client.apiKey != "k" {
		t.Fatalf("unexpected client: endpoint=%q key=%q", client.endpoint, client.apiKey)
	}
	if client.tags == nil {
		t.Fatal("expected caching enabled by default")
	}
}
