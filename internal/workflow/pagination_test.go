package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"scenekeeper/internal/catalog"
	"scenekeeper/internal/retry"
	"scenekeeper/internal/services"
	"scenekeeper/internal/testsupport"
)

func newTestRunner(t *testing.T, fake *testsupport.FakeCatalog) *Runner {
	t.Helper()
	return NewRunner(testsupport.NewConfig(t), fake, WithRetryPolicy(retry.Policy{MaxAttempts: 2}))
}

func seedScenes(fake *testsupport.FakeCatalog, n int) {
	for id := 1; id <= n; id++ {
		fake.Scenes = append(fake.Scenes, catalog.Scene{ID: int64(id)})
	}
}

func TestFetchScenesPaging(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		pageSize  int
		max       int
		wantCount int
		wantPages int
	}{
		{"short last page", 5, 2, 0, 5, 3},
		{"exact multiple needs empty page", 4, 2, 0, 4, 3},
		{"cap truncates", 5, 2, 3, 3, 2},
		{"cap smaller than page", 5, 10, 3, 3, 1},
		{"empty", 0, 2, 0, 0, 1},
		{"default page size", 3, 0, 0, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testsupport.NewFakeCatalog()
			seedScenes(fake, tt.total)
			r := newTestRunner(t, fake)

			scenes, err := r.fetchScenes(context.Background(), listing{pageSize: tt.pageSize, max: tt.max})
			if err != nil {
				t.Fatalf("fetchScenes: %v", err)
			}
			if len(scenes) != tt.wantCount {
				t.Fatalf("got %d scenes, want %d", len(scenes), tt.wantCount)
			}
			for i, s := range scenes {
				if s.ID != int64(i+1) {
					t.Fatalf("scene %d has id %d; pages overlapped or skipped", i, s.ID)
				}
			}
			if pages := fake.Pages(); len(pages) != tt.wantPages {
				t.Fatalf("got %d page requests, want %d: %+v", len(pages), tt.wantPages, pages)
			}
		})
	}
}

func TestFetchScenesRetriesThenFails(t *testing.T) {
	fake := testsupport.NewFakeCatalog()
	seedScenes(fake, 3)
	fake.FailOnce["FindScenes"] = errors.New("flaky")
	r := newTestRunner(t, fake)

	scenes, err := r.fetchScenes(context.Background(), listing{pageSize: 10})
	if err != nil || len(scenes) != 3 {
		t.Fatalf("expected retry to recover, got %d scenes, err %v", len(scenes), err)
	}

	fake.Errors["FindScenes"] = errors.New("down")
	if _, err := r.fetchScenes(context.Background(), listing{pageSize: 10}); !retry.IsExhausted(err) {
		t.Fatalf("expected exhausted retries, got %v", err)
	}
}

func TestMergeAndDropTagIDs(t *testing.T) {
	merged, changed := mergeTagIDs([]int64{1, 2}, []int64{2, 3})
	if !changed || len(merged) != 3 || merged[2] != 3 {
		t.Fatalf("merge = %v, %v", merged, changed)
	}
	if _, changed := mergeTagIDs([]int64{1}, []int64{1}); changed {
		t.Fatal("merging existing ids must not report a change")
	}
	dropped, changed := dropTagIDs([]int64{1, 2, 3}, []int64{2, 9})
	if !changed || len(dropped) != 2 || dropped[1] != 3 {
		t.Fatalf("drop = %v, %v", dropped, changed)
	}
}

func TestReportSummary(t *testing.T) {
	report := Report{Matches: &MatchTally{Scenes: 4, Matched: 1, Done: 3, False: 1}}
	if got := report.Summary(); got != "4 scenes, 1 matched, 3 done, 1 false, 0 unknown" {
		t.Fatalf("Summary = %q", got)
	}
	if got := (Report{Scanned: 2, Actions: 2}).Summary(); got != "2 scenes, 2 actions, 0 failed" {
		t.Fatalf("Summary = %q", got)
	}
}

func TestMutationHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", services.Wrap(services.ErrNotFound, "", "destroy scene", "", nil), "removed from stash"},
		{"timeout", services.Wrap(services.ErrTimeout, "", "destroy scene", "", nil), "timeout_seconds"},
		{"exhausted", &retry.ExhaustedError{Op: "destroy scene", Attempts: 3, Err: errors.New("502")}, "retries exhausted"},
		{"other", errors.New("rejected"), "stash logs"},
	}
	for _, tt := range tests {
		if got := mutationHint(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("%s: hint %q does not mention %q", tt.name, got, tt.want)
		}
	}
}
