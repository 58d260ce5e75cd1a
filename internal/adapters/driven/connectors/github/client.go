package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors"
	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// DefaultAPIBaseURL is the public GitHub API. GitHub Enterprise uses
// https://<hostname>/api/v3 through the base_url setting.
const DefaultAPIBaseURL = "https://api.github.com"

// Client provides GitHub API operations.
type Client struct {
	caller  *connectors.Caller
	baseURL string
}

// NewClient creates a new GitHub API client.
func NewClient(caller *connectors.Caller, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &Client{
		caller:  caller,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Repository represents a GitHub repository.
type Repository struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	Private       bool      `json:"private"`
	Archived      bool      `json:"archived"`
	HTMLURL       string    `json:"html_url"`
	DefaultBranch string    `json:"default_branch"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Issue represents a GitHub issue or pull request.
type Issue struct {
	ID            int64      `json:"id"`
	Number        int        `json:"number"`
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	State         string     `json:"state"`
	HTMLURL       string     `json:"html_url"`
	RepositoryURL string     `json:"repository_url"`
	User          *User      `json:"user"`
	Labels        []Label    `json:"labels"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ClosedAt      *time.Time `json:"closed_at"`
	Comments      int        `json:"comments"`
	PullRequest   *struct{}  `json:"pull_request,omitempty"`
}

// IsPR reports whether the issue is a pull request.
func (i *Issue) IsPR() bool { return i.PullRequest != nil }

// Repo returns owner/name parsed from the repository URL.
func (i *Issue) Repo() string {
	if idx := strings.Index(i.RepositoryURL, "/repos/"); idx >= 0 {
		return i.RepositoryURL[idx+len("/repos/"):]
	}
	return ""
}

// User represents a GitHub user.
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
}

// Label represents a GitHub label.
type Label struct {
	Name string `json:"name"`
}

// CodeResult is one code search hit.
type CodeResult struct {
	Name       string      `json:"name"`
	Path       string      `json:"path"`
	SHA        string      `json:"sha"`
	HTMLURL    string      `json:"html_url"`
	Repository *Repository `json:"repository"`
}

// SearchIssues runs an issue search. repo and state narrow the query.
func (c *Client) SearchIssues(ctx context.Context, creds *domain.Credentials, query, repo, state string, limit int) (int, []*Issue, error) {
	q := query
	if repo != "" {
		q += " repo:" + repo
	}
	if state != "" {
		q += " state:" + state
	}

	var result struct {
		TotalCount int      `json:"total_count"`
		Items      []*Issue `json:"items"`
	}
	err := c.caller.Do(ctx, creds, c.request(http.MethodGet, "/search/issues", url.Values{
		"q":        {strings.TrimSpace(q)},
		"per_page": {strconv.Itoa(limit)},
		"sort":     {"updated"},
	}, nil), &result)
	if err != nil {
		return 0, nil, err
	}
	return result.TotalCount, result.Items, nil
}

// GetIssue gets one issue or pull request by number.
func (c *Client) GetIssue(ctx context.Context, creds *domain.Credentials, owner, repo string, number int) (*Issue, error) {
	var issue Issue
	path := fmt.Sprintf("/repos/%s/%s/issues/%d", url.PathEscape(owner), url.PathEscape(repo), number)
	if err := c.caller.Do(ctx, creds, c.request(http.MethodGet, path, nil, nil), &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// ListRepos lists repositories accessible to the authenticated user.
func (c *Client) ListRepos(ctx context.Context, creds *domain.Credentials, limit int) ([]*Repository, error) {
	var repos []*Repository
	err := c.caller.Do(ctx, creds, c.request(http.MethodGet, "/user/repos", url.Values{
		"per_page":    {strconv.Itoa(limit)},
		"sort":        {"updated"},
		"affiliation": {"owner,collaborator,organization_member"},
	}, nil), &repos)
	if err != nil {
		return nil, err
	}
	return repos, nil
}

// CreateIssue opens an issue.
func (c *Client) CreateIssue(ctx context.Context, creds *domain.Credentials, owner, repo, title, body string) (*Issue, error) {
	var issue Issue
	path := fmt.Sprintf("/repos/%s/%s/issues", url.PathEscape(owner), url.PathEscape(repo))
	payload := map[string]string{"title": title}
	if body != "" {
		payload["body"] = body
	}
	if err := c.caller.Do(ctx, creds, c.request(http.MethodPost, path, nil, payload), &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// SearchCode runs a code search.
func (c *Client) SearchCode(ctx context.Context, creds *domain.Credentials, query, repo string, limit int) (int, []*CodeResult, error) {
	q := query
	if repo != "" {
		q += " repo:" + repo
	}
	var result struct {
		TotalCount int           `json:"total_count"`
		Items      []*CodeResult `json:"items"`
	}
	err := c.caller.Do(ctx, creds, c.request(http.MethodGet, "/search/code", url.Values{
		"q":        {strings.TrimSpace(q)},
		"per_page": {strconv.Itoa(limit)},
	}, nil), &result)
	if err != nil {
		return 0, nil, err
	}
	return result.TotalCount, result.Items, nil
}

// GetUser gets the authenticated user's information.
func (c *Client) GetUser(ctx context.Context, creds *domain.Credentials) (*User, error) {
	var user User
	if err := c.caller.Do(ctx, creds, c.request(http.MethodGet, "/user", nil, nil), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) request(method, path string, query url.Values, body any) connectors.Request {
	return connectors.Request{
		Method: method,
		URL:    c.baseURL + path,
		Query:  query,
		Body:   body,
		Header: http.Header{
			"Accept":               {"application/vnd.github+json"},
			"X-GitHub-Api-Version": {"2022-11-28"},
		},
	}
}
