package servicenow

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

// Tables used by the adapter.
const (
	TableIncident  = "incident"
	TableKnowledge = "kb_knowledge"
)

// incidentFields limits Table API responses to what the adapter maps.
var incidentFields = []string{
	"sys_id", "number", "short_description", "description", "state", "priority",
	"urgency", "impact", "assigned_to", "caller_id", "sys_created_on", "sys_updated_on",
}

var knowledgeFields = []string{
	"sys_id", "number", "short_description", "text", "workflow_state", "kb_category", "sys_updated_on",
}

// Row is one Table API record with display_value wrappers flattened.
type Row map[string]string

// Client provides ServiceNow Table and Aggregate API operations.
type Client struct {
	caller  *connectors.Caller
	baseURL string
}

// NewClient creates a client for one instance base URL.
func NewClient(caller *connectors.Caller, baseURL string) *Client {
	return &Client{caller: caller, baseURL: strings.TrimRight(baseURL, "/")}
}

// Query runs a Table API query.
func (c *Client) Query(ctx context.Context, creds *domain.Credentials, table, query string, fields []string, limit int) ([]Row, error) {
	params := url.Values{
		"sysparm_display_value":          {"all"},
		"sysparm_exclude_reference_link": {"true"},
		"sysparm_limit":                  {strconv.Itoa(limit)},
	}
	if query != "" {
		params.Set("sysparm_query", query)
	}
	if len(fields) > 0 {
		params.Set("sysparm_fields", strings.Join(fields, ","))
	}

	var resp struct {
		Result []map[string]json.RawMessage `json:"result"`
	}
	if err := c.caller.Do(ctx, creds, connectors.Request{
		URL:   c.tableURL(table),
		Query: params,
	}, &resp); err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(resp.Result))
	for _, r := range resp.Result {
		rows = append(rows, flatten(r))
	}
	return rows, nil
}

// Get fetches one record by sys_id.
func (c *Client) Get(ctx context.Context, creds *domain.Credentials, table, sysID string, fields []string) (Row, error) {
	params := url.Values{
		"sysparm_display_value":          {"all"},
		"sysparm_exclude_reference_link": {"true"},
	}
	if len(fields) > 0 {
		params.Set("sysparm_fields", strings.Join(fields, ","))
	}
	var resp struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := c.caller.Do(ctx, creds, connectors.Request{
		URL:   c.tableURL(table) + "/" + url.PathEscape(sysID),
		Query: params,
	}, &resp); err != nil {
		return nil, err
	}
	return flatten(resp.Result), nil
}

// Count returns the number of records matching query via the Aggregate API.
func (c *Client) Count(ctx context.Context, creds *domain.Credentials, table, query string) (int, error) {
	params := url.Values{"sysparm_count": {"true"}}
	if query != "" {
		params.Set("sysparm_query", query)
	}
	var resp struct {
		Result struct {
			Stats struct {
				Count json.RawMessage `json:"count"`
			} `json:"stats"`
		} `json:"result"`
	}
	if err := c.caller.Do(ctx, creds, connectors.Request{
		URL:   c.baseURL + "/api/now/stats/" + url.PathEscape(table),
		Query: params,
	}, &resp); err != nil {
		return 0, err
	}

	// The count arrives as a string on most releases and a number on some.
	raw := strings.Trim(string(resp.Result.Stats.Count), `"`)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: ServiceNow returned an unreadable count %q", domain.ErrUpstreamAPI, raw)
	}
	return n, nil
}

// Insert creates a record and returns it.
func (c *Client) Insert(ctx context.Context, creds *domain.Credentials, table string, fields map[string]string) (Row, error) {
	return c.write(ctx, creds, http.MethodPost, c.tableURL(table), fields)
}

// Update patches the record with sysID and returns it.
func (c *Client) Update(ctx context.Context, creds *domain.Credentials, table, sysID string, fields map[string]string) (Row, error) {
	return c.write(ctx, creds, http.MethodPatch, c.tableURL(table)+"/"+url.PathEscape(sysID), fields)
}

func (c *Client) write(ctx context.Context, creds *domain.Credentials, method, target string, fields map[string]string) (Row, error) {
	var resp struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := c.caller.Do(ctx, creds, connectors.Request{
		Method: method,
		URL:    target,
		Query: url.Values{
			"sysparm_display_value":          {"all"},
			"sysparm_exclude_reference_link": {"true"},
		},
		Body: fields,
	}, &resp); err != nil {
		return nil, err
	}
	return flatten(resp.Result), nil
}

func (c *Client) tableURL(table string) string {
	return c.baseURL + "/api/now/table/" + url.PathEscape(table)
}

// flatten reduces {"display_value": ..., "value": ...} wrappers to their
// display value, falling back to the raw value.
func flatten(raw map[string]json.RawMessage) Row {
	row := make(Row, len(raw))
	for k, v := range raw {
		var wrapped struct {
			DisplayValue *string `json:"display_value"`
			Value        *string `json:"value"`
		}
		if err := json.Unmarshal(v, &wrapped); err == nil && (wrapped.DisplayValue != nil || wrapped.Value != nil) {
			switch {
			case wrapped.DisplayValue != nil && *wrapped.DisplayValue != "":
				row[k] = *wrapped.DisplayValue
			case wrapped.Value != nil:
				row[k] = *wrapped.Value
			default:
				row[k] = ""
			}
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			row[k] = s
			continue
		}
		row[k] = strings.Trim(string(v), `"`)
	}
	return row
}

// Like builds an encoded-query clause matching text in any of fields.
// Caret characters are removed because they separate encoded-query terms.
func Like(text string, fields ...string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "^", " "))
	if text == "" {
		return ""
	}
	clauses := make([]string, 0, len(fields))
	for _, f := range fields {
		clauses = append(clauses, f+"LIKE"+text)
	}
	return strings.Join(clauses, "^OR")
}

// And joins non-empty encoded-query clauses.
func And(clauses ...string) string {
	var parts []string
	for _, c := range clauses {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "^")
}
