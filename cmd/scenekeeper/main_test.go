package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type stashRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type fakeStash struct {
	mu       sync.Mutex
	requests []stashRequest
	respond  func(req stashRequest) string
}

func (f *fakeStash) queries(fragment string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, req := range f.requests {
		if strings.Contains(req.Query, fragment) {
			n++
		}
	}
	return n
}

// setupStash starts a GraphQL stand-in and points STASH_URL at it.
func setupStash(t *testing.T, respond func(req stashRequest) string) *fakeStash {
	t.Helper()
	fake := &fakeStash{respond: respond}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req stashRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fake.mu.Lock()
		fake.requests = append(fake.requests, req)
		fake.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, fake.respond(req))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("STASH_URL", srv.URL)
	t.Setenv("STASH_API_KEY", "")
	return fake
}

func writeTestConfig(t *testing.T, extra string) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[stash]
host = "127.0.0.1"

[paths]
log_dir = %q
state_dir = %q

[retry]
max_attempts = 1
`, filepath.Join(base, "logs"), filepath.Join(base, "state")) + extra
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestRootWithoutSubcommandPrintsHelp(t *testing.T) {
	out, _, err := runCLI(t, nil, writeTestConfig(t, ""))
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	requireContains(t, out, "duplicates")
	requireContains(t, out, "matches")
}

func TestDryRunAndApplyAreExclusive(t *testing.T) {
	setupStash(t, func(stashRequest) string { return `{"data":{"metadataScan":"1"}}` })
	_, _, err := runCLI(t, []string{"--dry-run", "--apply", "scan"}, writeTestConfig(t, ""))
	if err == nil {
		t.Fatal("expected flag conflict")
	}
	requireContains(t, err.Error(), "dry-run")
}

func TestScanPrintsJobID(t *testing.T) {
	fake := setupStash(t, func(stashRequest) string { return `{"data":{"metadataScan":"42"}}` })
	out, _, err := runCLI(t, []string{"--apply", "scan"}, writeTestConfig(t, ""))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "metadata scan job 42")
	if fake.queries("metadataScan") != 1 {
		t.Fatalf("expected one scan request")
	}
}

const duplicateGroup = `{"data":{"findDuplicateScenes":[[
 {"id":"1","title":"a","organized":false,"files":[{"id":"10","path":"/m/a.mp4","basename":"a.mp4","size":500,"duration":1800,"video_codec":"h264","width":1280,"height":720,"fingerprints":[{"type":"phash","value":"a1b2c3d4e5f60718"}]}]},
 {"id":"2","title":"b","organized":false,"files":[{"id":"20","path":"/m/b.mp4","basename":"b.mp4","size":900,"duration":1800,"video_codec":"h264","width":1920,"height":1080,"fingerprints":[{"type":"phash","value":"a1b2c3d4e5f60718"}]}]}
]]}}`

func duplicateResponder(req stashRequest) string {
	switch {
	case strings.Contains(req.Query, "findDuplicateScenes"):
		return duplicateGroup
	case strings.Contains(req.Query, "sceneDestroy"):
		return `{"data":{"sceneDestroy":true}}`
	default:
		return `{"errors":[{"message":"unexpected query"}]}`
	}
}

func TestDuplicateScenesDryRunByDefault(t *testing.T) {
	fake := setupStash(t, duplicateResponder)
	out, _, err := runCLI(t, []string{"duplicates", "scenes", "--distance", "exact"}, writeTestConfig(t, ""))
	if err != nil {
		t.Fatalf("duplicates scenes: %v", err)
	}
	requireContains(t, out, "dry run")
	requireContains(t, out, "Best width")
	if n := fake.queries("sceneDestroy"); n != 0 {
		t.Fatalf("dry run sent %d destroy requests", n)
	}
}

func TestDuplicateScenesApply(t *testing.T) {
	fake := setupStash(t, duplicateResponder)
	out, _, err := runCLI(t, []string{"--apply", "duplicates", "scenes", "--distance", "exact"}, writeTestConfig(t, ""))
	if err != nil {
		t.Fatalf("duplicates scenes: %v", err)
	}
	requireContains(t, out, "apply")
	if n := fake.queries("sceneDestroy"); n != 1 {
		t.Fatalf("expected one destroy request, got %d", n)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	last := fake.requests[len(fake.requests)-1]
	input, _ := last.Variables["input"].(map[string]any)
	if input["id"] != "1" || input["delete_file"] != true {
		t.Fatalf("unexpected destroy input %+v", input)
	}
}

func TestDuplicateScenesRejectsUnknownDistance(t *testing.T) {
	setupStash(t, duplicateResponder)
	_, _, err := runCLI(t, []string{"duplicates", "scenes", "--distance", "fuzzy"}, writeTestConfig(t, ""))
	if err == nil {
		t.Fatal("expected distance error")
	}
	requireContains(t, err.Error(), "fuzzy")
}

func TestTrashWithoutPathFails(t *testing.T) {
	setupStash(t, func(stashRequest) string { return `{"data":{}}` })
	_, _, err := runCLI(t, []string{"cleanup", "trash"}, writeTestConfig(t, ""))
	if err == nil {
		t.Fatal("expected configuration error")
	}
	requireContains(t, err.Error(), "trash")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	out, _, err := runCLI(t, []string{"test-notify"}, writeTestConfig(t, ""))
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications disabled")
}
