package stash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"scenekeeper/internal/catalog"
	"scenekeeper/internal/config"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	apiKeyHeader       = "ApiKey"
	maxErrorBody       = 4 << 10
	tagsCacheKey       = "tags"
	boxesCacheKey      = "stash_boxes"
)

// HTTPDoer describes the HTTP client used by the stash service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a GraphQL client for the catalog.
type Client struct {
	endpoint string
	apiKey   string
	http     HTTPDoer

	tags  *expirable.LRU[string, []catalog.Tag]
	boxes *expirable.LRU[string, []catalog.StashBoxConnection]
}

var _ catalog.Catalog = (*Client)(nil)

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithCacheTTL caches tag and stash-box listings for ttl. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl <= 0 {
			c.tags, c.boxes = nil, nil
			return
		}
		c.tags = expirable.NewLRU[string, []catalog.Tag](1, nil, ttl)
		c.boxes = expirable.NewLRU[string, []catalog.StashBoxConnection](1, nil, ttl)
	}
}

// NewClient constructs a client for the GraphQL endpoint.
func NewClient(endpoint, apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		http:     &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client from the [stash] section.
func NewFromConfig(cfg *config.Config) *Client {
	return NewClient(cfg.StashEndpoint(), cfg.Stash.APIKey,
		WithHTTPClient(&http.Client{Timeout: cfg.StashTimeout()}),
		WithCacheTTL(cfg.StashCacheTTL()),
	)
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// do posts one GraphQL operation and decodes data into out (which may be nil).
func (c *Client) do(ctx context.Context, operation, query string, variables map[string]any, out any) error {
	encoded, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("stash %s: encode body: %w", operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("stash %s: new request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("stash %s: %w", operation, ctx.Err())
		}
		return fmt.Errorf("stash %s: %w", operation, &transportError{err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPStatusError{Operation: operation, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("stash %s: decode response: %w", operation, &transportError{err: err})
	}
	if len(payload.Errors) > 0 {
		messages := make([]string, 0, len(payload.Errors))
		for _, e := range payload.Errors {
			messages = append(messages, e.Message)
		}
		return &GraphQLError{Operation: operation, Messages: messages}
	}
	if out == nil {
		return nil
	}
	if len(payload.Data) == 0 || string(payload.Data) == "null" {
		return fmt.Errorf("stash %s: empty data", operation)
	}
	if err := json.Unmarshal(payload.Data, out); err != nil {
		return fmt.Errorf("stash %s: decode data: %w", operation, err)
	}
	return nil
}
