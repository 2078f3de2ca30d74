package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scenekeeper/internal/config"
	"scenekeeper/internal/logging"
	"scenekeeper/internal/services"
)

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	if !strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestConsoleLoggerLiftsComponentAndQuotes(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "dedupe").Info("group resolved",
		logging.String("reason", "Best width"),
		logging.Int64("scene_id", 7),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO dedupe: group resolved") {
		t.Fatalf("expected component before message, got %q", line)
	}
	if !strings.Contains(line, `reason="Best width"`) {
		t.Fatalf("expected quoted reason, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should not repeat as a field, got %q", line)
	}
}

func TestConsoleLoggerGroupsUseDottedKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.With(logging.String("job", "duplicates")).WithGroup("group").Info("x", logging.Int("files", 3))

	line := buf.String()
	if !strings.Contains(line, "job=duplicates") || !strings.Contains(line, "group.files=3") {
		t.Fatalf("unexpected group rendering: %q", line)
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("json message", logging.String("k", "v"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if record["msg"] != "json message" || record["k"] != "v" || record["level"] != "info" {
		t.Fatalf("unexpected record: %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestSizeAndActionAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("duplicate decision", logging.Action("delete file"), logging.Size("delete_size", 1610612736))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if record[logging.FieldAction] != "delete file" {
		t.Fatalf("unexpected action: %v", record)
	}
	size, ok := record["delete_size"].(map[string]any)
	if !ok || size["bytes"] != float64(1610612736) || size["human"] != "1.5 GiB" {
		t.Fatalf("unexpected size group: %v", record["delete_size"])
	}
}

func TestConsoleLoggerFlattensSize(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("x", logging.Size("delete_size", -5))

	if !strings.Contains(buf.String(), `delete_size.human="0 B"`) {
		t.Fatalf("expected negative size clamped, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "invalid", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("visible")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "visible") {
		t.Fatalf("expected info level filtering, got %q", buf.String())
	}
}

func TestNewFromConfigWritesRunLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "error"

	started := time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local)
	session, err := logging.NewFromConfig(&cfg, started)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	wantPath := filepath.Join(cfg.Paths.LogDir, "scenekeeper-20260304T050607.log")
	if session.Path != wantPath {
		t.Fatalf("unexpected run log path: got %q want %q", session.Path, wantPath)
	}

	session.Logger.Debug("debug detail", logging.String("scene", "1"))
	if err := session.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	content, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"debug detail"`) {
		t.Fatalf("expected debug record in run log regardless of console level, got %q", content)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithJob(ctx, "matches")
	ctx = services.WithSceneID(ctx, 42)
	ctx = services.WithStashBox(ctx, "stashdb.org")

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WithContext(ctx, logger).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	want := map[string]any{
		logging.FieldRunID:    "run-1",
		logging.FieldJob:      "matches",
		logging.FieldSceneID:  float64(42),
		logging.FieldStashBox: "stashdb.org",
	}
	for key, value := range want {
		if record[key] != value {
			t.Fatalf("field %s = %v, want %v", key, record[key], value)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "scrape failed", "scrape_failed",
		logging.Error(errors.New("boom")),
		logging.String(logging.FieldErrorHint, "check stash"),
	)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record[logging.FieldEventType] != "scrape_failed" {
		t.Fatalf("missing event type: %v", record)
	}
	if record[logging.FieldErrorHint] != "check stash" {
		t.Fatalf("explicit hint should win: %v", record)
	}
	if record[logging.FieldImpact] == nil {
		t.Fatalf("expected default impact: %v", record)
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "scenekeeper-20200101T000000.log")
	current := filepath.Join(dir, "scenekeeper-20200102T000000.log")
	fresh := filepath.Join(dir, "scenekeeper-20260101T000000.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, current, fresh, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -40)
	for _, path := range []string{old, current, other} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), dir, logging.RunLogPattern, 30, current)
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, err=%v", err)
	}
	for _, path := range []string{current, fresh, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}

	if got := logging.CleanupOldLogs(nil, dir, logging.RunLogPattern, 0, ""); got != 0 {
		t.Fatalf("retention 0 should disable pruning, removed %d", got)
	}
}
