package confluence

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors"
	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// Page is Confluence content of type page.
type Page struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Space *struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"space"`
	Version *struct {
		Number int       `json:"number"`
		When   time.Time `json:"when"`
		By     struct {
			DisplayName string `json:"displayName"`
		} `json:"by"`
	} `json:"version"`
	History *struct {
		CreatedDate time.Time `json:"createdDate"`
	} `json:"history"`
	Body *struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
	Links struct {
		WebUI string `json:"webui"`
		Base  string `json:"base"`
	} `json:"_links"`
}

// User is the authenticated Confluence user.
type User struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Client provides Confluence REST API operations.
type Client struct {
	caller  *connectors.Caller
	baseURL string
}

// NewClient creates a client for a site base URL. Atlassian Cloud sites
// serve the API under /wiki, which is added when missing.
func NewClient(caller *connectors.Caller, baseURL string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if u, err := url.Parse(baseURL); err == nil && strings.HasSuffix(u.Hostname(), ".atlassian.net") && !strings.HasSuffix(u.Path, "/wiki") {
		baseURL += "/wiki"
	}
	return &Client{caller: caller, baseURL: baseURL}
}

// CurrentUser returns the authenticated user.
func (c *Client) CurrentUser(ctx context.Context, creds *domain.Credentials) (*User, error) {
	var u User
	if err := c.caller.Do(ctx, creds, connectors.Request{URL: c.baseURL + "/rest/api/user/current"}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Search runs a CQL query.
func (c *Client) Search(ctx context.Context, creds *domain.Credentials, cql string, limit int) (int, []*Page, error) {
	var resp struct {
		Results   []*Page `json:"results"`
		TotalSize int     `json:"totalSize"`
		Size      int     `json:"size"`
		Links     struct {
			Base string `json:"base"`
		} `json:"_links"`
	}
	err := c.caller.Do(ctx, creds, connectors.Request{
		URL: c.baseURL + "/rest/api/content/search",
		Query: url.Values{
			"cql":    {cql},
			"limit":  {strconv.Itoa(limit)},
			"expand": {"space,version"},
		},
	}, &resp)
	if err != nil {
		return 0, nil, err
	}
	for _, p := range resp.Results {
		if p.Links.Base == "" {
			p.Links.Base = resp.Links.Base
		}
	}
	total := resp.TotalSize
	if total == 0 {
		total = resp.Size
	}
	return total, resp.Results, nil
}

// GetPage returns a page with its storage-format body.
func (c *Client) GetPage(ctx context.Context, creds *domain.Credentials, id string) (*Page, error) {
	var p Page
	err := c.caller.Do(ctx, creds, connectors.Request{
		URL:     c.baseURL + "/rest/api/content/" + url.PathEscape(id),
		Query:   url.Values{"expand": {"body.storage,space,version,history"}},
		Content: true,
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePage creates a page in space with a storage-format body.
func (c *Client) CreatePage(ctx context.Context, creds *domain.Credentials, space, title, storage, parentID string) (*Page, error) {
	payload := map[string]any{
		"type":  "page",
		"title": title,
		"space": map[string]string{"key": space},
		"body": map[string]any{
			"storage": map[string]string{"value": storage, "representation": "storage"},
		},
	}
	if parentID != "" {
		payload["ancestors"] = []map[string]string{{"id": parentID}}
	}
	var p Page
	err := c.caller.Do(ctx, creds, connectors.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + "/rest/api/content",
		Body:   payload,
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// WebURL returns the browser URL of p.
func (c *Client) WebURL(p *Page) string {
	if p.Links.WebUI == "" {
		return ""
	}
	base := p.Links.Base
	if base == "" {
		base = c.baseURL
	}
	return base + p.Links.WebUI
}
