package stash

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"scenekeeper/internal/services"
)

// GraphQLError carries the errors[] array of a GraphQL response.
type GraphQLError struct {
	Operation string
	Messages  []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("stash %s: graphql: %s", e.Operation, strings.Join(e.Messages, "; "))
}

// Is maps stash's "not found" messages to services.ErrNotFound and every
// other rejection to services.ErrValidation.
func (e *GraphQLError) Is(target error) bool {
	switch target {
	case services.ErrNotFound:
		return e.notFound()
	case services.ErrValidation:
		return !e.notFound()
	}
	return false
}

func (e *GraphQLError) notFound() bool {
	for _, msg := range e.Messages {
		if strings.Contains(strings.ToLower(msg), "not found") {
			return true
		}
	}
	return false
}

// HTTPStatusError is returned for non-2xx responses.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("stash %s: http %d: %s", e.Operation, e.StatusCode, body)
}

// Is classifies the status: 401/403 point at the api key, 404 at the
// endpoint path, 408/429/5xx are transient and the rest are remote errors.
func (e *HTTPStatusError) Is(target error) bool {
	switch target {
	case services.ErrConfiguration:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusNotFound
	case services.ErrTransient:
		return e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
	case services.ErrRemote:
		return true
	}
	return false
}

// IsRetriable reports whether err is worth another attempt: transport
// failures, timeouts, 408, 429 and 5xx responses. GraphQL errors are
// deterministic and never retried.
func IsRetriable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, services.ErrTransient) {
		return true
	}
	var statusErr *HTTPStatusError
	var gqlErr *GraphQLError
	if errors.As(err, &statusErr) || errors.As(err, &gqlErr) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// transportError marks failures before a response was received.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }

// Is marks every transport failure transient, and timeouts as ErrTimeout.
func (e *transportError) Is(target error) bool {
	switch target {
	case services.ErrTransient:
		return true
	case services.ErrTimeout:
		var netErr net.Error
		return errors.Is(e.err, context.DeadlineExceeded) || (errors.As(e.err, &netErr) && netErr.Timeout())
	}
	return false
}
