package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"scenekeeper/internal/catalog"
	"scenekeeper/internal/config"
	"scenekeeper/internal/notifications"
	"scenekeeper/internal/retry"
	"scenekeeper/internal/testsupport"
	"scenekeeper/internal/workflow"
)

const localPHash = "a1b2c3d4e5f60718"

type published struct {
	event   notifications.Event
	payload notifications.Payload
}

type stubNotifier struct {
	mu     sync.Mutex
	events []published
}

func (s *stubNotifier) Publish(ctx context.Context, event notifications.Event, payload notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, published{event: event, payload: payload})
	return nil
}

func (s *stubNotifier) last() published {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return published{}
	}
	return s.events[len(s.events)-1]
}

type countingObserver struct {
	started  map[string]int
	done     map[string]int
	finished []string
}

func newCountingObserver() *countingObserver {
	return &countingObserver{started: map[string]int{}, done: map[string]int{}}
}

func (o *countingObserver) JobStarted(job string, total int) { o.started[job] = total }
func (o *countingObserver) ItemDone(job string)              { o.done[job]++ }
func (o *countingObserver) JobFinished(job string)           { o.finished = append(o.finished, job) }

type harness struct {
	cfg      *config.Config
	fake     *testsupport.FakeCatalog
	notifier *stubNotifier
	observer *countingObserver
	runner   *workflow.Runner
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	h := &harness{
		cfg:      cfg,
		fake:     testsupport.NewFakeCatalog(),
		notifier: &stubNotifier{},
		observer: newCountingObserver(),
	}
	h.runner = workflow.NewRunner(cfg, h.fake,
		workflow.WithNotifier(h.notifier),
		workflow.WithObserver(h.observer),
		workflow.WithRunID("run-test"),
		workflow.WithRetryPolicy(retry.Policy{
			MaxAttempts: 2,
			Sleep:       func(context.Context, time.Duration) error { return nil },
		}),
	)
	return h
}

func file(sceneID, fileID int64, width int, size int64) catalog.FileRecord {
	return catalog.FileRecord{
		SceneID:    sceneID,
		FileID:     fileID,
		Width:      width,
		Height:     width * 9 / 16,
		VideoCodec: "h264",
		Size:       size,
		Duration:   1800,
		Basename:   "scene.mp4",
		Path:       "/media/library/scene.mp4",
		PHash:      localPHash,
	}
}

func scene(id int64, organized bool, files ...catalog.FileRecord) catalog.Scene {
	return catalog.Scene{ID: id, Title: "scene", Organized: organized, Files: files}
}

func withTags(s catalog.Scene, tags ...catalog.Tag) catalog.Scene {
	s.Tags = append(s.Tags, tags...)
	return s
}

func goodCandidate(title, date string) catalog.Candidate {
	return catalog.Candidate{
		Title:        title,
		Date:         date,
		RemoteSiteID: "remote-" + title,
		Fingerprints: []catalog.CandidateFingerprint{
			{Algorithm: catalog.AlgorithmPHash, Hash: localPHash, Duration: 1800},
		},
	}
}

func badCandidate(title string) catalog.Candidate {
	return catalog.Candidate{
		Title: title,
		Date:  "2001-02-03",
		Fingerprints: []catalog.CandidateFingerprint{
			{Algorithm: catalog.AlgorithmPHash, Hash: "0000000000000000", Duration: 600},
		},
	}
}

func tagIDs(tags ...catalog.Tag) []int64 {
	ids := make([]int64, 0, len(tags))
	for _, tag := range tags {
		ids = append(ids, tag.ID)
	}
	return ids
}
