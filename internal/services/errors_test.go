package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"scenekeeper/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrRemote, "duplicates", "destroy scene", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrRemote) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"duplicates", "destroy scene", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err)
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"configuration", services.Wrap(services.ErrConfiguration, "matches", "resolve tags", "missing", nil), true},
		{"not found", services.Wrap(services.ErrNotFound, "duplicates", "destroy scene", "gone", nil), false},
		{"timeout", services.Wrap(services.ErrTimeout, "matches", "scrape", "slow", nil), false},
		{"validation", services.Wrap(services.ErrValidation, "matches", "update tags", "bad id", nil), false},
		{"cancelled", fmt.Errorf("scrape: %w", context.Canceled), true},
		{"remote", services.Wrap(services.ErrRemote, "matches", "scrape", "500", nil), false},
		{"transient", services.Wrap(services.ErrTransient, "matches", "scrape", "reset", nil), false},
	}
	for _, tt := range tests {
		if got := services.IsFatal(tt.err); got != tt.want {
			t.Errorf("%s: IsFatal = %v, want %v", tt.name, got, tt.want)
		}
	}
}
