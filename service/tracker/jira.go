package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
)

// Fields requested for every issue
var jiraFields = []string{"summary", "status", "assignee", "created", "issuetype", "priority", "creator", "labels", "updated", "description"}

// JiraConfig configures the Jira Cloud tracker
type JiraConfig struct {
	// Domain is the Jira site, e.g. example.atlassian.net. A scheme is optional.
	Domain   string
	Email    string
	Token    string
	PageSize int
	// RequestsPerSecond limits the request rate, 0 disables the limit.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// JiraTracker fetches issues from the Jira Cloud REST API v3. Requests go
// through a go-jira client for authentication and status handling, the v3
// search response is decoded here since go-jira models v2 descriptions only.
type JiraTracker struct {
	client   *jira.Client
	pageSize int
	limiter  *helper.RateLimiter
	log      *slog.Logger
}

type jiraSearchResponse struct {
	StartAt    int         `json:"startAt"`
	MaxResults int         `json:"maxResults"`
	Total      int         `json:"total"`
	Issues     []jiraIssue `json:"issues"`
}

type jiraIssue struct {
	ID     string          `json:"id"`
	Key    string          `json:"key"`
	Fields jiraIssueFields `json:"fields"`
}

type jiraIssueFields struct {
	Summary     string          `json:"summary"`
	Status      *jiraNamed      `json:"status"`
	Assignee    *jiraUser       `json:"assignee"`
	Creator     *jiraUser       `json:"creator"`
	IssueType   *jiraNamed      `json:"issuetype"`
	Priority    *jiraNamed      `json:"priority"`
	Labels      []string        `json:"labels"`
	Created     string          `json:"created"`
	Updated     string          `json:"updated"`
	Description json.RawMessage `json:"description"`
}

type jiraNamed struct {
	Name string `json:"name"`
}

type jiraUser struct {
	DisplayName string `json:"displayName"`
}

// NewJiraTracker creates a tracker for config.Domain
func NewJiraTracker(config JiraConfig, logger *slog.Logger) (*JiraTracker, error) {
	if config.Domain == "" {
		return nil, helper.NewError("jira tracker", fmt.Errorf("domain is required"))
	}

	baseURL := strings.TrimRight(config.Domain, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}
	if config.PageSize <= 0 {
		config.PageSize = 50
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	transport := &jira.BasicAuthTransport{
		Username: config.Email,
		Password: config.Token,
	}
	client, err := jira.NewClient(&http.Client{Timeout: config.Timeout, Transport: transport}, baseURL)
	if err != nil {
		return nil, helper.NewError("jira client", err)
	}

	return &JiraTracker{
		client:   client,
		pageSize: config.PageSize,
		limiter:  helper.NewRateLimiter(config.RequestsPerSecond, 1),
		log:      logger,
	}, nil
}

// FetchIssues fetches one page of the issues of project starting at cursor
func (j *JiraTracker) FetchIssues(ctx context.Context, project string, cursor int) (Page, error) {
	if err := j.limiter.Wait(ctx); err != nil {
		return Page{}, err
	}

	query := url.Values{}
	query.Set("jql", "project = "+project)
	query.Set("fields", strings.Join(jiraFields, ","))
	query.Set("fieldsByKeys", "false")
	query.Set("startAt", strconv.Itoa(cursor))
	query.Set("maxResults", strconv.Itoa(j.pageSize))
	req, err := j.client.NewRequestWithContext(ctx, http.MethodGet, "rest/api/3/search?"+query.Encode(), nil)
	if err != nil {
		return Page{}, helper.NewError("new request", err)
	}
	req.Header.Set("Accept", "application/json")
	endpoint := req.URL.String()

	var body jiraSearchResponse
	resp, err := j.client.Do(req, &body)
	if err != nil {
		if resp == nil {
			return Page{}, &model.FetchError{URL: endpoint, Err: err}
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
			j.limiter.RecordRateLimitError(retryAfter)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return Page{}, &model.FetchError{URL: endpoint, StatusCode: resp.StatusCode, Err: err}
		}
		return Page{}, helper.NewError("decode search response", err)
	}

	page := Page{
		Issues:     make([]*model.Ticket, 0, len(body.Issues)),
		NextCursor: body.StartAt + len(body.Issues),
		Total:      body.Total,
	}
	for _, issue := range body.Issues {
		ticket, err := issue.ticket()
		if err != nil {
			j.log.Warn("Skipping unreadable issue", slog.String("key", issue.Key), slog.Any("error", err))
			continue
		}
		page.Issues = append(page.Issues, ticket)
	}

	j.log.Debug("Fetched issues", slog.String("project", project), slog.Int("start_at", body.StartAt), slog.Int("issues", len(body.Issues)), slog.Int("total", body.Total))

	return page, nil
}

func (i jiraIssue) ticket() (*model.Ticket, error) {
	description, err := DescriptionToMarkdown(i.Fields.Description)
	if err != nil {
		return nil, err
	}

	ticket := &model.Ticket{
		ID:          i.ID,
		Key:         i.Key,
		Summary:     i.Fields.Summary,
		Description: description,
		Labels:      i.Fields.Labels,
		CreatedAt:   parseJiraTime(i.Fields.Created),
		UpdatedAt:   parseJiraTime(i.Fields.Updated),
	}
	if i.Fields.Status != nil {
		ticket.Status = i.Fields.Status.Name
	}
	if i.Fields.Priority != nil {
		ticket.Priority = i.Fields.Priority.Name
	}
	if i.Fields.IssueType != nil {
		ticket.IssueType = i.Fields.IssueType.Name
	}
	if i.Fields.Assignee != nil {
		ticket.Assignee = i.Fields.Assignee.DisplayName
	}
	if i.Fields.Creator != nil {
		ticket.Creator = i.Fields.Creator.DisplayName
	}
	if ticket.Labels == nil {
		ticket.Labels = []string{}
	}
	return ticket, nil
}

// parseJiraTime parses Jira timestamps like 2024-01-10T12:34:56.789+0000.
// Unparsable values yield the zero time.
func parseJiraTime(value string) time.Time {
	for _, layout := range []string{"2006-01-02T15:04:05.000-0700", time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
