package slack

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors"
	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector runs Slack actions with a bot or user token.
type Connector struct {
	*connectors.ActionTable
	caller *connectors.Caller
}

// NewConnector creates a Slack connector.
func NewConnector(cfg connectors.CallerConfig) *Connector {
	c := &Connector{caller: connectors.NewCaller(domain.ConnectorSlack, cfg)}
	c.ActionTable = connectors.NewActions(domain.ConnectorSlack).
		Handle(domain.ActionTestConnection, c.testConnection).
		Handle(domain.ActionSearch, c.search).
		Handle(domain.ActionList, c.list).
		Handle(domain.ActionCreate, c.create)
	return c
}

func (c *Connector) client(creds *domain.Credentials) *Client {
	return NewClient(c.caller, creds.BaseURL)
}

func (c *Connector) testConnection(ctx context.Context, _ map[string]any, creds *domain.Credentials) (any, error) {
	info, err := c.client(creds).AuthTest(ctx, creds)
	if err != nil {
		return nil, err
	}
	return connectors.ConnectionStatus{OK: true, Message: "Connected to Slack workspace " + info.Team + " as " + info.User}, nil
}

func (c *Connector) search(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.MessageSearchParams
	if err := decode(params, &p, "query"); err != nil {
		return nil, err
	}
	query := p.Query
	if ch := channelName(p.Channel); ch != "" {
		query += " in:#" + ch
	}
	total, matches, err := c.client(creds).SearchMessages(ctx, creds, query, domain.PageSize(p.Limit))
	if err != nil {
		return nil, err
	}
	items := make([]connectors.Record, 0, len(matches))
	for _, m := range matches {
		author := m.Username
		if author == "" {
			author = m.User
		}
		items = append(items, connectors.Record{
			ID:          m.Channel.ID + ":" + m.TS,
			Title:       connectors.Truncate(firstLine(m.Text), 120),
			Description: m.Text,
			URL:         m.Permalink,
			CreatedAt:   tsTime(m.TS),
			Extra:       map[string]any{"channel": m.Channel.Name, "author": author},
		})
	}
	return map[string]any{"items": items, "count": len(items), "total": total}, nil
}

func (c *Connector) list(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.ChannelListParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	channels, err := c.client(creds).ListChannels(ctx, creds, domain.PageSize(p.Limit))
	if err != nil {
		return nil, err
	}
	items := make([]connectors.Record, 0, len(channels))
	for _, ch := range channels {
		state := "public"
		if ch.IsPrivate {
			state = "private"
		}
		desc := ch.Purpose.Value
		if desc == "" {
			desc = ch.Topic.Value
		}
		items = append(items, connectors.Record{
			ID:          ch.ID,
			Title:       "#" + ch.Name,
			Description: desc,
			State:       state,
			CreatedAt:   connectors.FormatTime(unix(ch.Created)),
			Extra:       map[string]any{"members": ch.NumMembers},
		})
	}
	return connectors.NewList(items), nil
}

func (c *Connector) create(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.PostMessageParams
	if err := decode(params, &p, "channel", "text"); err != nil {
		return nil, err
	}
	client := c.client(creds)
	msg, err := client.PostMessage(ctx, creds, channelName(p.Channel), p.Text)
	if err != nil {
		return nil, err
	}
	if err := connectors.RequireID(domain.ConnectorSlack, msg.TS); err != nil {
		return nil, err
	}
	return connectors.Record{
		ID:        msg.Channel + ":" + msg.TS,
		Title:     connectors.Truncate(firstLine(p.Text), 120),
		URL:       client.Permalink(ctx, creds, msg.Channel, msg.TS),
		CreatedAt: tsTime(msg.TS),
		Extra:     map[string]any{"channel": msg.Channel, "ts": msg.TS},
	}, nil
}

func decode(params map[string]any, out any, required ...string) error {
	if err := connectors.DecodeParams(params, out); err != nil {
		return err
	}
	return connectors.Require(out, required...)
}

func channelName(ch string) string {
	return strings.TrimPrefix(strings.TrimSpace(ch), "#")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// tsTime converts a Slack message timestamp ("1700000000.000100") to RFC 3339.
func tsTime(ts string) string {
	secs, _, _ := strings.Cut(ts, ".")
	n, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return ""
	}
	return connectors.FormatTime(unix(n))
}

func unix(secs int64) time.Time {
	if secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}
