package confluence

import (
	"context"
	"html"
	"strings"

	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors"
	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector runs Confluence page actions.
type Connector struct {
	*connectors.ActionTable
	caller *connectors.Caller
}

// NewConnector creates a Confluence connector.
func NewConnector(cfg connectors.CallerConfig) *Connector {
	c := &Connector{caller: connectors.NewCaller(domain.ConnectorConfluence, cfg)}
	c.ActionTable = connectors.NewActions(domain.ConnectorConfluence).
		Handle(domain.ActionTestConnection, c.testConnection).
		Handle(domain.ActionSearch, c.search).
		Handle(domain.ActionGet, c.get).
		Handle(domain.ActionCreate, c.create)
	return c
}

func (c *Connector) client(creds *domain.Credentials) (*Client, error) {
	base, err := connectors.RequireBaseURL(creds)
	if err != nil {
		return nil, domain.WithHint(err, "Set the Confluence site URL in the connector settings.")
	}
	return NewClient(c.caller, base), nil
}

func (c *Connector) testConnection(ctx context.Context, _ map[string]any, creds *domain.Credentials) (any, error) {
	client, err := c.client(creds)
	if err != nil {
		return nil, err
	}
	u, err := client.CurrentUser(ctx, creds)
	if err != nil {
		return nil, err
	}
	return connectors.ConnectionStatus{OK: true, Message: "Connected to Confluence as " + u.DisplayName}, nil
}

func (c *Connector) search(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.PageSearchParams
	if err := decode(params, &p, "query"); err != nil {
		return nil, err
	}
	client, err := c.client(creds)
	if err != nil {
		return nil, err
	}
	total, pages, err := client.Search(ctx, creds, SearchCQL(p.Query, p.Space), domain.PageSize(p.Limit))
	if err != nil {
		return nil, err
	}
	items := make([]connectors.Record, 0, len(pages))
	for _, page := range pages {
		items = append(items, pageRecord(client, page))
	}
	return map[string]any{"items": items, "count": len(items), "total": total}, nil
}

func (c *Connector) get(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.PageGetParams
	if err := decode(params, &p, "page_id"); err != nil {
		return nil, err
	}
	client, err := c.client(creds)
	if err != nil {
		return nil, err
	}
	page, err := client.GetPage(ctx, creds, p.PageID)
	if err != nil {
		return nil, err
	}
	rec := pageRecord(client, page)
	if page.Body != nil {
		text := connectors.HTMLToText(page.Body.Storage.Value)
		rec.Description = domain.TruncateContent(text)
		rec.Extra["truncated"] = len(rec.Description) < len(text)
	}
	return rec, nil
}

func (c *Connector) create(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.PageCreateParams
	if err := decode(params, &p, "space", "title", "body"); err != nil {
		return nil, err
	}
	client, err := c.client(creds)
	if err != nil {
		return nil, err
	}
	page, err := client.CreatePage(ctx, creds, strings.TrimSpace(p.Space), p.Title, StorageBody(p.Body), p.ParentID)
	if err != nil {
		return nil, err
	}
	if err := connectors.RequireID(domain.ConnectorConfluence, page.ID); err != nil {
		return nil, err
	}
	return pageRecord(client, page), nil
}

func decode(params map[string]any, out any, required ...string) error {
	if err := connectors.DecodeParams(params, out); err != nil {
		return err
	}
	return connectors.Require(out, required...)
}

// SearchCQL builds the page search query.
func SearchCQL(text, space string) string {
	cql := `type = page AND text ~ ` + cqlString(text)
	if space = strings.TrimSpace(space); space != "" {
		cql += ` AND space = ` + cqlString(space)
	}
	return cql + ` ORDER BY lastmodified DESC`
}

func cqlString(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// StorageBody converts plain text into storage format, one paragraph per
// blank-line separated block.
func StorageBody(text string) string {
	var b strings.Builder
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i, l := range lines {
			lines[i] = html.EscapeString(l)
		}
		b.WriteString("<p>" + strings.Join(lines, "<br/>") + "</p>")
	}
	return b.String()
}

func pageRecord(client *Client, p *Page) connectors.Record {
	rec := connectors.Record{
		ID:    p.ID,
		Title: p.Title,
		URL:   client.WebURL(p),
		Extra: map[string]any{},
	}
	if p.Space != nil {
		rec.Extra["space"] = p.Space.Key
	}
	if p.Version != nil {
		rec.UpdatedAt = connectors.FormatTime(p.Version.When)
		rec.Extra["version"] = p.Version.Number
		rec.Extra["author"] = p.Version.By.DisplayName
	}
	if p.History != nil {
		rec.CreatedAt = connectors.FormatTime(p.History.CreatedDate)
	}
	return rec
}
