// Package platform talks to the benchmark platform API and maintains the
// local question cache.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const userAgent = "credobench/1.0"

// APIError is a typed failure from the platform API. StatusCode is zero
// for transport-level failures (timeouts, connection errors).
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("platform API error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("platform API error: %s", e.Message)
}

// NotFound reports whether the error means the requested resource does
// not exist, as opposed to a transient failure.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Client fetches question sets and version catalogs from the platform.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a platform API client. An empty baseURL falls back to
// the caller's configured default; it is required here.
func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: trimTrailingSlash(baseURL),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// GetQuestions fetches the complete question set for a benchmark version.
// An empty version or "current" fetches the active published version.
func (c *Client) GetQuestions(ctx context.Context, version string) (*QuestionSet, error) {
	params := url.Values{}
	if version != "" && version != "current" {
		params.Set("version", version)
	}

	var set QuestionSet
	if err := c.get(ctx, "/api/runner/questions", params, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// ListVersions fetches the version catalog. Draft and locked versions are
// only included when requested.
func (c *Client) ListVersions(ctx context.Context, includeDrafts bool) (*VersionList, error) {
	params := url.Values{}
	if includeDrafts {
		params.Set("include_drafts", "true")
	}

	var list VersionList
	if err := c.get(ctx, "/api/runner/versions", params, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// UserInfo fetches the account details for the configured API key.
func (c *Client) UserInfo(ctx context.Context) (*UserInfo, error) {
	var info UserInfo
	if err := c.get(ctx, "/api/runner/user-info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &APIError{Message: err.Error()}
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("network error: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("reading response: %v", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &APIError{Message: "invalid or missing API key", StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return &APIError{Message: "resource not found", StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &APIError{Message: "rate limit exceeded, try again later", StatusCode: resp.StatusCode}
	case resp.StatusCode >= 400:
		return &APIError{Message: string(body), StatusCode: resp.StatusCode}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Message: fmt.Sprintf("malformed response: %v", err), StatusCode: resp.StatusCode}
	}
	return nil
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
