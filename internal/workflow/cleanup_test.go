package workflow_test

import (
	"context"
	"errors"
	"testing"

	"scenekeeper/internal/catalog"
	"scenekeeper/internal/notifications"
	"scenekeeper/internal/services"
	"scenekeeper/internal/testsupport"
	"scenekeeper/internal/workflow"
)

func TestProcessCorruptedKeepsFiles(t *testing.T) {
	h := newHarness(t)
	broken := file(2, 20, 1920, 100)
	broken.PHash = ""
	h.fake.Scenes = []catalog.Scene{
		scene(1, false, file(1, 10, 1920, 100)),
		scene(2, false, broken),
	}

	report, err := h.runner.ProcessCorrupted(context.Background())
	if err != nil {
		t.Fatalf("ProcessCorrupted: %v", err)
	}
	calls := h.fake.Calls("DestroyScene")
	if len(calls) != 1 || calls[0].SceneID != 2 || calls[0].DeleteFiles {
		t.Fatalf("expected scene 2 destroyed without files, got %+v", calls)
	}
	if report.Job != workflow.JobCorrupted || report.Scanned != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestProcessTrashDeletesFiles(t *testing.T) {
	h := newHarness(t, testsupport.WithTrashPath("/media/trash/"))
	trashed := file(2, 20, 1920, 100)
	trashed.Path = "/media/trash/old.mp4"
	h.fake.Scenes = []catalog.Scene{
		scene(1, false, file(1, 10, 1920, 100)),
		scene(2, true, trashed),
	}

	if _, err := h.runner.ProcessTrash(context.Background()); err != nil {
		t.Fatalf("ProcessTrash: %v", err)
	}
	calls := h.fake.Calls("DestroyScene")
	if len(calls) != 1 || calls[0].SceneID != 2 || !calls[0].DeleteFiles {
		t.Fatalf("expected scene 2 destroyed with files, got %+v", calls)
	}
}

func TestProcessTrashRequiresPath(t *testing.T) {
	h := newHarness(t, testsupport.WithTrashPath(""))
	_, err := h.runner.ProcessTrash(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCleanupHonoursMaxScenes(t *testing.T) {
	h := newHarness(t)
	h.cfg.Cleanup.MaxScenes = 2
	for id := int64(1); id <= 5; id++ {
		f := file(id, id*10, 1920, 100)
		f.PHash = ""
		h.fake.Scenes = append(h.fake.Scenes, scene(id, false, f))
	}

	report, err := h.runner.ProcessCorrupted(context.Background())
	if err != nil {
		t.Fatalf("ProcessCorrupted: %v", err)
	}
	if report.Scanned != 2 || len(h.fake.Calls("DestroyScene")) != 2 {
		t.Fatalf("expected two scenes processed, got %+v", report)
	}
}

func TestScanRecordsJobID(t *testing.T) {
	h := newHarness(t)
	report, err := h.runner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if report.ScanJobID == "" || report.Summary() != "metadata scan job "+report.ScanJobID {
		t.Fatalf("unexpected scan report %+v", report)
	}

	h.fake.Errors["MetadataScan"] = errors.New("busy")
	if _, err := h.runner.Scan(context.Background()); !errors.Is(err, services.ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
}

func TestProcessAllSkipsTrashWithoutPath(t *testing.T) {
	h := newHarness(t, testsupport.WithTrashPath(""))
	h.fake.AddTags("MATCH_STASHDB", "MATCH_DONE", "MATCH_FALSE", "UNKNOWN")
	h.fake.Connections = []catalog.StashBoxConnection{{Index: 0, Name: "stashdb.org"}}

	reports, err := h.runner.ProcessAll(context.Background())
	if err != nil {
		t.Fatalf("ProcessAll: %v", err)
	}
	var jobs []string
	for _, r := range reports {
		jobs = append(jobs, r.Job)
	}
	want := []string{workflow.JobCorrupted, workflow.JobProcessMatches, workflow.JobRemoveMatches, workflow.JobRemoveFalseMatches}
	if len(jobs) != len(want) {
		t.Fatalf("jobs = %v, want %v", jobs, want)
	}
	for i := range want {
		if jobs[i] != want[i] {
			t.Fatalf("jobs = %v, want %v", jobs, want)
		}
	}
}

func corruptedScenes(n int64) []catalog.Scene {
	var scenes []catalog.Scene
	for id := int64(1); id <= n; id++ {
		f := file(id, id*10, 1920, 100)
		f.PHash = ""
		scenes = append(scenes, scene(id, false, f))
	}
	return scenes
}

func TestConfigurationFailureAbortsJob(t *testing.T) {
	h := newHarness(t)
	h.fake.Scenes = corruptedScenes(3)
	h.fake.Errors["DestroyScene"] = services.Wrap(services.ErrConfiguration, "", "destroy scene", "http 401", nil)

	report, err := h.runner.ProcessCorrupted(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	for _, call := range h.fake.Calls("DestroyScene") {
		if call.SceneID != 1 {
			t.Fatalf("job kept mutating after a fatal failure: %+v", call)
		}
	}
	if report.Failed != 1 || report.Actions != 1 {
		t.Fatalf("unexpected counters %+v", report)
	}
	if h.notifier.last().event != notifications.EventJobFailed {
		t.Fatalf("expected failure notification, got %q", h.notifier.last().event)
	}
}

func TestMissingSceneIsSkipped(t *testing.T) {
	h := newHarness(t)
	h.fake.Scenes = corruptedScenes(2)
	h.fake.Errors["DestroyScene"] = services.Wrap(services.ErrNotFound, "", "destroy scene", "scene not found", nil)

	report, err := h.runner.ProcessCorrupted(context.Background())
	if err != nil {
		t.Fatalf("missing scenes must not abort: %v", err)
	}
	if report.Failed != 2 {
		t.Fatalf("expected both scenes counted as failed, got %+v", report)
	}
}
