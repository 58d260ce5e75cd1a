package github

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors"
	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector runs GitHub actions with a PAT or OAuth token.
type Connector struct {
	*connectors.ActionTable
	caller *connectors.Caller
}

// NewConnector creates a GitHub connector.
func NewConnector(cfg connectors.CallerConfig) *Connector {
	c := &Connector{caller: connectors.NewCaller(domain.ConnectorGitHub, cfg)}
	c.ActionTable = connectors.NewActions(domain.ConnectorGitHub).
		Handle(domain.ActionTestConnection, c.testConnection).
		Handle(domain.ActionSearch, c.search).
		Handle(domain.ActionGet, c.get).
		Handle(domain.ActionList, c.list).
		Handle(domain.ActionCreate, c.create).
		Handle(domain.ActionSearchCode, c.searchCode)
	return c
}

func (c *Connector) client(creds *domain.Credentials) *Client {
	return NewClient(c.caller, creds.BaseURL)
}

func (c *Connector) testConnection(ctx context.Context, _ map[string]any, creds *domain.Credentials) (any, error) {
	user, err := c.client(creds).GetUser(ctx, creds)
	if err != nil {
		return nil, err
	}
	return connectors.ConnectionStatus{OK: true, Message: "Connected to GitHub as " + user.Login}, nil
}

func (c *Connector) search(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.IssueSearchParams
	if err := decode(params, &p, "query"); err != nil {
		return nil, err
	}
	if p.Repo != "" {
		if _, _, err := splitRepo(p.Repo); err != nil {
			return nil, err
		}
	}
	total, issues, err := c.client(creds).SearchIssues(ctx, creds, p.Query, p.Repo, p.State, domain.PageSize(p.Limit))
	if err != nil {
		return nil, err
	}
	list := connectors.NewList(issueRecords(issues))
	return map[string]any{"items": list.Items, "count": list.Count, "total": total}, nil
}

func (c *Connector) get(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.IssueGetParams
	if err := decode(params, &p, "repo", "number"); err != nil {
		return nil, err
	}
	owner, repo, err := splitRepo(p.Repo)
	if err != nil {
		return nil, err
	}
	issue, err := c.client(creds).GetIssue(ctx, creds, owner, repo, p.Number)
	if err != nil {
		return nil, err
	}
	rec := issueRecord(issue)
	rec.Description = issue.Body
	return rec, nil
}

func (c *Connector) list(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.RepoListParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	repos, err := c.client(creds).ListRepos(ctx, creds, domain.PageSize(p.Limit))
	if err != nil {
		return nil, err
	}
	items := make([]connectors.Record, 0, len(repos))
	for _, r := range repos {
		state := "active"
		if r.Archived {
			state = "archived"
		}
		items = append(items, connectors.Record{
			ID:          r.FullName,
			Title:       r.FullName,
			Description: r.Description,
			State:       state,
			URL:         r.HTMLURL,
			CreatedAt:   connectors.FormatTime(r.CreatedAt),
			UpdatedAt:   connectors.FormatTime(r.UpdatedAt),
			Extra:       map[string]any{"private": r.Private, "default_branch": r.DefaultBranch},
		})
	}
	return connectors.NewList(items), nil
}

func (c *Connector) create(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.IssueCreateParams
	if err := decode(params, &p, "repo", "title"); err != nil {
		return nil, err
	}
	owner, repo, err := splitRepo(p.Repo)
	if err != nil {
		return nil, err
	}
	issue, err := c.client(creds).CreateIssue(ctx, creds, owner, repo, p.Title, p.Body)
	if err != nil {
		return nil, err
	}
	if issue.Number == 0 {
		return nil, connectors.RequireID(domain.ConnectorGitHub, "")
	}
	rec := issueRecord(issue)
	rec.Extra["repo"] = p.Repo
	return rec, nil
}

func (c *Connector) searchCode(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.CodeSearchParams
	if err := decode(params, &p, "query"); err != nil {
		return nil, err
	}
	total, results, err := c.client(creds).SearchCode(ctx, creds, p.Query, p.Repo, domain.PageSize(p.Limit))
	if err != nil {
		return nil, err
	}
	items := make([]connectors.Record, 0, len(results))
	for _, r := range results {
		repo := ""
		if r.Repository != nil {
			repo = r.Repository.FullName
		}
		items = append(items, connectors.Record{
			ID:    r.SHA,
			Title: r.Path,
			URL:   r.HTMLURL,
			Extra: map[string]any{"repo": repo, "name": r.Name},
		})
	}
	return map[string]any{"items": items, "count": len(items), "total": total}, nil
}

func decode(params map[string]any, out any, required ...string) error {
	if err := connectors.DecodeParams(params, out); err != nil {
		return err
	}
	return connectors.Require(out, required...)
}

func splitRepo(full string) (owner, repo string, err error) {
	parts := strings.Split(strings.Trim(full, "/ "), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: repo must be in owner/name form, got %q", domain.ErrValidation, full)
	}
	return parts[0], parts[1], nil
}

func issueRecords(issues []*Issue) []connectors.Record {
	out := make([]connectors.Record, 0, len(issues))
	for _, i := range issues {
		out = append(out, issueRecord(i))
	}
	return out
}

func issueRecord(i *Issue) connectors.Record {
	kind := "issue"
	if i.IsPR() {
		kind = "pull_request"
	}
	labels := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		labels = append(labels, l.Name)
	}
	extra := map[string]any{"kind": kind, "repo": i.Repo(), "comments": i.Comments, "labels": labels}
	if i.User != nil {
		extra["author"] = i.User.Login
	}
	return connectors.Record{
		ID:        strconv.FormatInt(i.ID, 10),
		Number:    strconv.Itoa(i.Number),
		Title:     i.Title,
		State:     i.State,
		URL:       i.HTMLURL,
		CreatedAt: connectors.FormatTime(i.CreatedAt),
		UpdatedAt: connectors.FormatTime(i.UpdatedAt),
		Extra:     extra,
	}
}
