package tracker

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jiraServer serves total issues of project PROJ in pages
func jiraServer(t *testing.T, total int, requests *[]int) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/search", r.URL.Path)
		assert.Equal(t, "project = PROJ", r.URL.Query().Get("jql"))
		assert.Contains(t, r.URL.Query().Get("fields"), "description")

		user, token, ok := r.BasicAuth()
		if !ok || user != "agent@example.com" || token != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
		maxResults, _ := strconv.Atoi(r.URL.Query().Get("maxResults"))
		*requests = append(*requests, startAt)

		var issues []map[string]any
		for i := startAt; i < total && i < startAt+maxResults; i++ {
			issues = append(issues, map[string]any{
				"id":  strconv.Itoa(1000 + i),
				"key": fmt.Sprintf("PROJ-%d", i+1),
				"fields": map[string]any{
					"summary":     fmt.Sprintf("Issue %d", i+1),
					"status":      map[string]any{"name": "Open"},
					"priority":    map[string]any{"name": "High"},
					"issuetype":   map[string]any{"name": "Bug"},
					"assignee":    nil,
					"creator":     map[string]any{"displayName": "Ann"},
					"labels":      []string{"login"},
					"created":     "2024-01-10T12:34:56.789+0000",
					"updated":     "2024-01-11T08:00:00.000+0000",
					"description": map[string]any{"type": "doc", "content": []any{map[string]any{"type": "paragraph", "content": []any{map[string]any{"type": "text", "text": "Cannot log in"}}}}},
				},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"startAt":    startAt,
			"maxResults": maxResults,
			"total":      total,
			"issues":     issues,
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestTracker(t *testing.T, serverURL string, token string) *JiraTracker {
	tracker, err := NewJiraTracker(JiraConfig{
		Domain:   serverURL,
		Email:    "agent@example.com",
		Token:    token,
		PageSize: 2,
	}, helper.NewLogger(io.Discard, slog.LevelDebug))
	require.NoError(t, err)
	return tracker
}

func TestJiraTrackerFetchIssues(t *testing.T) {
	var requests []int
	server := jiraServer(t, 5, &requests)
	tracker := newTestTracker(t, server.URL, "secret")

	t.Run("Parses one page into tickets", func(t *testing.T) {
		page, err := tracker.FetchIssues(t.Context(), "PROJ", 0)
		require.NoError(t, err)
		assert.Equal(t, 5, page.Total)
		assert.Equal(t, 2, page.NextCursor)
		require.Len(t, page.Issues, 2)

		ticket := page.Issues[0]
		assert.Equal(t, "PROJ-1", ticket.Key)
		assert.Equal(t, "1000", ticket.ID)
		assert.Equal(t, "Open", ticket.Status)
		assert.Equal(t, "High", ticket.Priority)
		assert.Equal(t, "Bug", ticket.IssueType)
		assert.Equal(t, "Ann", ticket.Creator)
		assert.Empty(t, ticket.Assignee, "Expected a null assignee to be empty")
		assert.Equal(t, []string{"login"}, ticket.Labels)
		assert.Equal(t, "Cannot log in", ticket.Description)
		assert.Equal(t, time.Date(2024, 1, 10, 12, 34, 56, 789000000, time.UTC), ticket.CreatedAt.UTC())
	})

	t.Run("Fetch all pages until total", func(t *testing.T) {
		requests = nil
		tickets, err := FetchAll(t.Context(), tracker, "PROJ")
		require.NoError(t, err)
		require.Len(t, tickets, 5)
		assert.Equal(t, "PROJ-5", tickets[4].Key)
		assert.Equal(t, []int{0, 2, 4}, requests)
	})

	t.Run("Unauthorized is a fetch error", func(t *testing.T) {
		tracker := newTestTracker(t, server.URL, "wrong")
		_, err := tracker.FetchIssues(t.Context(), "PROJ", 0)

		var fetchErr *model.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, http.StatusUnauthorized, fetchErr.StatusCode)
	})

	t.Run("Rate limited response is a fetch error", func(t *testing.T) {
		limited := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		t.Cleanup(limited.Close)

		_, err := newTestTracker(t, limited.URL, "secret").FetchIssues(t.Context(), "PROJ", 0)

		var fetchErr *model.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, http.StatusTooManyRequests, fetchErr.StatusCode)
	})

	t.Run("Unreachable site is a fetch error", func(t *testing.T) {
		closed := httptest.NewServer(http.NotFoundHandler())
		closed.Close()

		_, err := newTestTracker(t, closed.URL, "secret").FetchIssues(t.Context(), "PROJ", 0)

		var fetchErr *model.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Zero(t, fetchErr.StatusCode)
	})

	t.Run("Empty project", func(t *testing.T) {
		var emptyRequests []int
		empty := jiraServer(t, 0, &emptyRequests)
		tickets, err := FetchAll(t.Context(), newTestTracker(t, empty.URL, "secret"), "PROJ")
		require.NoError(t, err)
		assert.Empty(t, tickets)
		assert.Len(t, emptyRequests, 1)
	})
}

func TestNewJiraTracker(t *testing.T) {
	logger := helper.NewLogger(io.Discard, slog.LevelInfo)

	t.Run("Domain without scheme uses https", func(t *testing.T) {
		tracker, err := NewJiraTracker(JiraConfig{Domain: "example.atlassian.net/"}, logger)
		require.NoError(t, err)
		baseURL := tracker.client.GetBaseURL()
		assert.Equal(t, "https://example.atlassian.net/", baseURL.String())
		assert.Equal(t, 50, tracker.pageSize)
	})

	t.Run("Missing domain", func(t *testing.T) {
		_, err := NewJiraTracker(JiraConfig{}, logger)
		assert.Error(t, err)
	})
}
