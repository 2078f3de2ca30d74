package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Markers classify failures. Catalog client errors satisfy errors.Is against
// them, so jobs can decide between skipping a scene and aborting.
var (
	ErrRemote        = errors.New("remote service error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes job context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, job, operation, message string, err error) error {
	detail := buildDetail(job, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err should abort the whole job instead of skipping
// the current scene. Cancellation and configuration problems (bad api key,
// wrong endpoint) are fatal. Missing scenes, rejected input, timeouts and
// other remote failures only affect the scene at hand.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, ErrConfiguration)
}

func buildDetail(job, operation, message string) string {
	parts := make([]string, 0, 3)
	if job = strings.TrimSpace(job); job != "" {
		parts = append(parts, job)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
