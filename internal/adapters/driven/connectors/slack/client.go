package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors"
	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// DefaultAPIBaseURL is the Slack Web API.
const DefaultAPIBaseURL = "https://slack.com/api"

// authCodes are Slack error codes meaning the token cannot be used.
var authCodes = map[string]bool{
	"invalid_auth":           true,
	"not_authed":             true,
	"token_revoked":          true,
	"token_expired":          true,
	"account_inactive":       true,
	"missing_scope":          true,
	"not_allowed_token_type": true,
	"no_permission":          true,
}

// Client calls Slack Web API methods.
type Client struct {
	caller  *connectors.Caller
	baseURL string
}

// NewClient creates a Slack client.
func NewClient(caller *connectors.Caller, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &Client{caller: caller, baseURL: strings.TrimRight(baseURL, "/")}
}

// AuthInfo is the auth.test response.
type AuthInfo struct {
	Team   string `json:"team"`
	User   string `json:"user"`
	URL    string `json:"url"`
	UserID string `json:"user_id"`
}

// Match is one search.messages hit.
type Match struct {
	IID       string `json:"iid"`
	TS        string `json:"ts"`
	Text      string `json:"text"`
	Permalink string `json:"permalink"`
	Username  string `json:"username"`
	User      string `json:"user"`
	Channel   struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"channel"`
}

// Channel is one conversations.list entry.
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPrivate  bool   `json:"is_private"`
	IsArchived bool   `json:"is_archived"`
	NumMembers int    `json:"num_members"`
	Created    int64  `json:"created"`
	Topic      struct {
		Value string `json:"value"`
	} `json:"topic"`
	Purpose struct {
		Value string `json:"value"`
	} `json:"purpose"`
}

// PostedMessage is the chat.postMessage response.
type PostedMessage struct {
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

// AuthTest verifies the token.
func (c *Client) AuthTest(ctx context.Context, creds *domain.Credentials) (*AuthInfo, error) {
	var info AuthInfo
	if err := c.call(ctx, creds, http.MethodPost, "auth.test", nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SearchMessages runs search.messages.
func (c *Client) SearchMessages(ctx context.Context, creds *domain.Credentials, query string, limit int) (int, []Match, error) {
	var resp struct {
		Messages struct {
			Total   int     `json:"total"`
			Matches []Match `json:"matches"`
		} `json:"messages"`
	}
	err := c.call(ctx, creds, http.MethodGet, "search.messages", url.Values{
		"query": {query},
		"count": {strconv.Itoa(limit)},
		"sort":  {"timestamp"},
	}, nil, &resp)
	if err != nil {
		return 0, nil, err
	}
	return resp.Messages.Total, resp.Messages.Matches, nil
}

// ListChannels runs conversations.list.
func (c *Client) ListChannels(ctx context.Context, creds *domain.Credentials, limit int) ([]Channel, error) {
	var resp struct {
		Channels []Channel `json:"channels"`
	}
	err := c.call(ctx, creds, http.MethodGet, "conversations.list", url.Values{
		"limit":            {strconv.Itoa(limit)},
		"types":            {"public_channel,private_channel"},
		"exclude_archived": {"true"},
	}, nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Channels, nil
}

// PostMessage runs chat.postMessage.
func (c *Client) PostMessage(ctx context.Context, creds *domain.Credentials, channel, text string) (*PostedMessage, error) {
	var msg PostedMessage
	body := map[string]string{"channel": channel, "text": text}
	if err := c.call(ctx, creds, http.MethodPost, "chat.postMessage", nil, body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Permalink runs chat.getPermalink. Failures yield "".
func (c *Client) Permalink(ctx context.Context, creds *domain.Credentials, channel, ts string) string {
	var resp struct {
		Permalink string `json:"permalink"`
	}
	if err := c.call(ctx, creds, http.MethodGet, "chat.getPermalink", url.Values{
		"channel":    {channel},
		"message_ts": {ts},
	}, nil, &resp); err != nil {
		return ""
	}
	return resp.Permalink
}

// call invokes a Web API method. Slack reports most failures as HTTP 200
// with {"ok": false, "error": code}.
func (c *Client) call(ctx context.Context, creds *domain.Credentials, method, apiMethod string, query url.Values, body any, out any) error {
	raw, err := c.caller.Raw(ctx, creds, connectors.Request{
		Method: method,
		URL:    c.baseURL + "/" + apiMethod,
		Query:  query,
		Body:   body,
	})
	if err != nil {
		return err
	}

	var env struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: Slack returned an unreadable response: %v", domain.ErrUpstreamAPI, err)
	}
	if !env.OK {
		return codeError(apiMethod, env.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: Slack returned an unreadable %s response: %v", domain.ErrUpstreamAPI, apiMethod, err)
	}
	return nil
}

func codeError(apiMethod, code string) error {
	if code == "" {
		code = "unknown_error"
	}
	switch {
	case authCodes[code]:
		return connectors.AuthError(domain.ConnectorSlack, fmt.Sprintf("Slack %s failed: %s", apiMethod, code))
	case code == "ratelimited":
		return domain.WithHint(
			fmt.Errorf("%w: Slack %s failed: %s", domain.ErrUpstreamRateLimit, apiMethod, code),
			"Wait a minute and try again.",
		)
	}
	return fmt.Errorf("%w: Slack %s failed: %s", domain.ErrUpstreamAPI, apiMethod, code)
}
