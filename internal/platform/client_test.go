package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetQuestions(t *testing.T) {
	var gotReq *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"version": {"semantic_version": "1.2.0", "checksum": "sha256:abc"},
			"questions": [
				{"id": 1, "tier": 1, "category": "task", "content": "Q1"},
				{"id": "q-2", "tier": 2, "content": "Q2"}
			],
			"scoring_config": {"tier1_weight": 0.7, "tier2_weight": 0.2, "tier3_weight": 0.1},
			"judge_prompts": {"tier1": "template"}
		}`))
	}))
	defer srv.Close()

	client := NewClient("secret-key", srv.URL)
	defer client.Close()

	set, err := client.GetQuestions(context.Background(), "1.2.0")
	require.NoError(t, err)

	assert.Equal(t, "/api/runner/questions", gotReq.URL.Path)
	assert.Equal(t, "1.2.0", gotReq.URL.Query().Get("version"))
	assert.Equal(t, "secret-key", gotReq.Header.Get("X-API-Key"))
	assert.Equal(t, "credobench/1.0", gotReq.Header.Get("User-Agent"))

	assert.Equal(t, "1.2.0", set.Version.SemanticVersion)
	assert.Equal(t, "sha256:abc", set.Version.Checksum)
	require.Len(t, set.Questions, 2)
	assert.Equal(t, QuestionID("1"), set.Questions[0].ID)
	assert.Equal(t, QuestionID("q-2"), set.Questions[1].ID)
	require.NotNil(t, set.Scoring)
	assert.Equal(t, 0.7, set.Scoring.Tier1)
	assert.Equal(t, "template", set.Prompts()["tier1"])
}

func TestGetQuestionsCurrentOmitsParam(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"version": "1.0.0", "questions": []}`))
	}))
	defer srv.Close()

	client := NewClient("k", srv.URL)
	defer client.Close()

	for _, version := range []string{"", "current"} {
		set, err := client.GetQuestions(context.Background(), version)
		require.NoError(t, err)
		assert.Empty(t, query)
		assert.Equal(t, "1.0.0", set.Version.SemanticVersion)
	}
}

func TestListVersions(t *testing.T) {
	var gotReq *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		_, _ = w.Write([]byte(`{"versions": [
			{"semantic_version": "1.2.0", "status": "published", "is_current": true},
			{"semantic_version": "1.3.0-draft", "status": "draft"}
		]}`))
	}))
	defer srv.Close()

	client := NewClient("k", srv.URL)
	defer client.Close()

	list, err := client.ListVersions(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, "/api/runner/versions", gotReq.URL.Path)
	assert.Equal(t, "true", gotReq.URL.Query().Get("include_drafts"))
	require.Len(t, list.Versions, 2)
	assert.True(t, list.Versions[0].IsCurrent)

	_, err = client.ListVersions(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, gotReq.URL.Query().Get("include_drafts"))
}

func TestUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/runner/user-info", r.URL.Path)
		_, _ = w.Write([]byte(`{"name": "Test User", "email": "t@example.com", "role": "runner"}`))
	}))
	defer srv.Close()

	client := NewClient("k", srv.URL)
	defer client.Close()

	info, err := client.UserInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Test User", info.Name)
	assert.Equal(t, "runner", info.Role)
}

func TestClientStatusCodes(t *testing.T) {
	cases := []struct {
		status   int
		contains string
	}{
		{http.StatusUnauthorized, "invalid or missing API key"},
		{http.StatusNotFound, "resource not found"},
		{http.StatusTooManyRequests, "rate limit exceeded"},
		{http.StatusInternalServerError, "boom"},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte("boom"))
		}))

		client := NewClient("k", srv.URL)
		_, err := client.GetQuestions(context.Background(), "")

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr, "status %d", tc.status)
		assert.Equal(t, tc.status, apiErr.StatusCode)
		assert.Contains(t, apiErr.Message, tc.contains)
		assert.Equal(t, tc.status == http.StatusNotFound, apiErr.NotFound())

		client.Close()
		srv.Close()
	}
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient("k", srv.URL)
	defer client.Close()

	_, err := client.GetQuestions(context.Background(), "")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.StatusCode)
	assert.False(t, apiErr.NotFound())
}

func TestClientMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	client := NewClient("k", srv.URL)
	defer client.Close()

	_, err := client.GetQuestions(context.Background(), "")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "malformed response")
}

func TestTrimTrailingSlash(t *testing.T) {
	assert.Equal(t, "https://x", trimTrailingSlash("https://x///"))
	assert.Equal(t, "https://x", trimTrailingSlash("https://x"))
	assert.Equal(t, "", trimTrailingSlash(""))
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{Message: "nope", StatusCode: 404}
	assert.Equal(t, "platform API error (404): nope", err.Error())

	err = &APIError{Message: "network down"}
	assert.Equal(t, "platform API error: network down", err.Error())
	assert.True(t, errors.As(error(err), new(*APIError)))
}
