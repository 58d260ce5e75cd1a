package servicenow

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors"
	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// incidentStates maps state names to the incident table's choice values.
var incidentStates = map[string]string{
	"new":         "1",
	"in_progress": "2",
	"on_hold":     "3",
	"resolved":    "6",
	"closed":      "7",
}

var sysIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Connector runs ServiceNow incident and knowledge actions.
type Connector struct {
	*connectors.ActionTable
	caller *connectors.Caller
}

// NewConnector creates a ServiceNow connector.
func NewConnector(cfg connectors.CallerConfig) *Connector {
	c := &Connector{caller: connectors.NewCaller(domain.ConnectorServiceNow, cfg)}
	c.ActionTable = connectors.NewActions(domain.ConnectorServiceNow).
		Handle(domain.ActionTestConnection, c.testConnection).
		Handle(domain.ActionSearch, c.search).
		Handle(domain.ActionGet, c.get).
		Handle(domain.ActionCount, c.count).
		Handle(domain.ActionCreate, c.create).
		Handle(domain.ActionUpdate, c.update).
		Handle(domain.ActionSearchKnowledge, c.searchKnowledge)
	return c
}

func (c *Connector) client(creds *domain.Credentials) (*Client, error) {
	base, err := connectors.RequireBaseURL(creds)
	if err != nil {
		return nil, domain.WithHint(err, "Set the ServiceNow instance URL in the connector settings.")
	}
	return NewClient(c.caller, base), nil
}

func (c *Connector) testConnection(ctx context.Context, _ map[string]any, creds *domain.Credentials) (any, error) {
	client, err := c.client(creds)
	if err != nil {
		return nil, err
	}
	if _, err := client.Query(ctx, creds, TableIncident, "", []string{"sys_id"}, 1); err != nil {
		return nil, err
	}
	return connectors.ConnectionStatus{OK: true, Message: "Connected to ServiceNow at " + client.baseURL}, nil
}

func (c *Connector) search(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.IncidentSearchParams
	if err := connectors.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	state, err := stateFilter(p.State)
	if err != nil {
		return nil, err
	}
	client, err := c.client(creds)
	if err != nil {
		return nil, err
	}
	query := And(Like(p.Query, "short_description", "description"), state, "ORDERBYDESCsys_updated_on")
	rows, err := client.Query(ctx, creds, TableIncident, query, incidentFields, domain.PageSize(p.Limit))
	if err != nil {
		return nil, err
	}
	return connectors.NewList(incidentRecords(client.baseURL, rows)), nil
}

func (c *Connector) get(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.IncidentGetParams
	if err := decode(params, &p, "number"); err != nil {
		return nil, err
	}
	client, err := c.client(creds)
	if err != nil {
		return nil, err
	}
	row, err := c.lookup(ctx, client, creds, p.Number)
	if err != nil {
		return nil, err
	}
	return incidentRecord(client.baseURL, row), nil
}

// lookup finds one incident by number or sys_id.
func (c *Connector) lookup(ctx context.Context, client *Client, creds *domain.Credentials, ref string) (Row, error) {
	ref = strings.TrimSpace(ref)
	if sysIDPattern.MatchString(ref) {
		return client.Get(ctx, creds, TableIncident, ref, incidentFields)
	}
	rows, err := client.Query(ctx, creds, TableIncident, "number="+strings.ToUpper(strings.ReplaceAll(ref, "^", "")), incidentFields, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: ServiceNow incident %s not found", domain.ErrUpstreamAPI, ref)
	}
	return rows[0], nil
}

func (c *Connector) count(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.IncidentCountParams
	if err := connectors.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	state, err := stateFilter(p.State)
	if err != nil {
		return nil, err
	}
	active := ""
	if p.Active {
		active = "active=true"
	}
	client, err := c.client(creds)
	if err != nil {
		return nil, err
	}
	n, err := client.Count(ctx, creds, TableIncident, And(Like(p.Query, "short_description", "description"), state, active))
	if err != nil {
		return nil, err
	}
	return map[string]int{"count": n}, nil
}

func (c *Connector) create(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.IncidentCreateParams
	if err := decode(params, &p, "short_description"); err != nil {
		return nil, err
	}
	client, err := c.client(creds)
	if err != nil {
		return nil, err
	}
	fields := map[string]string{"short_description": p.ShortDescription}
	setIf(fields, "description", p.Description)
	setIf(fields, "urgency", p.Urgency)
	setIf(fields, "impact", p.Impact)

	row, err := client.Insert(ctx, creds, TableIncident, fields)
	if err != nil {
		return nil, err
	}
	if err := connectors.RequireID(domain.ConnectorServiceNow, row["number"]); err != nil {
		return nil, err
	}
	return incidentRecord(client.baseURL, row), nil
}

func (c *Connector) update(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.IncidentUpdateParams
	if err := decode(params, &p, "number"); err != nil {
		return nil, err
	}
	fields := map[string]string{}
	if p.State != "" {
		v, ok := incidentStates[strings.ToLower(p.State)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown incident state %q", domain.ErrValidation, p.State)
		}
		fields["state"] = v
	}
	setIf(fields, "short_description", p.ShortDescription)
	setIf(fields, "work_notes", p.WorkNotes)
	setIf(fields, "comments", p.Comments)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}

	client, err := c.client(creds)
	if err != nil {
		return nil, err
	}
	existing, err := c.lookup(ctx, client, creds, p.Number)
	if err != nil {
		return nil, err
	}
	if err := connectors.RequireID(domain.ConnectorServiceNow, existing["sys_id"]); err != nil {
		return nil, err
	}
	row, err := client.Update(ctx, creds, TableIncident, existing["sys_id"], fields)
	if err != nil {
		return nil, err
	}
	if err := connectors.RequireID(domain.ConnectorServiceNow, row["number"]); err != nil {
		return nil, err
	}
	return incidentRecord(client.baseURL, row), nil
}

func (c *Connector) searchKnowledge(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.KnowledgeSearchParams
	if err := decode(params, &p, "query"); err != nil {
		return nil, err
	}
	client, err := c.client(creds)
	if err != nil {
		return nil, err
	}
	query := And(Like(p.Query, "short_description", "text"), "workflow_state=published", "ORDERBYDESCsys_updated_on")
	rows, err := client.Query(ctx, creds, TableKnowledge, query, knowledgeFields, domain.PageSize(p.Limit))
	if err != nil {
		return nil, err
	}
	items := make([]connectors.Record, 0, len(rows))
	for _, r := range rows {
		items = append(items, connectors.Record{
			ID:          r["sys_id"],
			Number:      r["number"],
			Title:       r["short_description"],
			Description: connectors.Truncate(connectors.HTMLToText(r["text"]), 1000),
			State:       r["workflow_state"],
			URL:         fmt.Sprintf("%s/kb_view.do?sysparm_article=%s", client.baseURL, r["number"]),
			UpdatedAt:   r["sys_updated_on"],
			Extra:       map[string]any{"category": r["kb_category"]},
		})
	}
	return connectors.NewList(items), nil
}

func stateFilter(state string) (string, error) {
	if state == "" {
		return "", nil
	}
	v, ok := incidentStates[strings.ToLower(state)]
	if !ok {
		return "", fmt.Errorf("%w: unknown incident state %q", domain.ErrValidation, state)
	}
	return "state=" + v, nil
}

func decode(params map[string]any, out any, required ...string) error {
	if err := connectors.DecodeParams(params, out); err != nil {
		return err
	}
	return connectors.Require(out, required...)
}

func setIf(m map[string]string, key, value string) {
	if strings.TrimSpace(value) != "" {
		m[key] = value
	}
}

func incidentRecords(base string, rows []Row) []connectors.Record {
	out := make([]connectors.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, incidentRecord(base, r))
	}
	return out
}

func incidentRecord(base string, r Row) connectors.Record {
	return connectors.Record{
		ID:          r["sys_id"],
		Number:      r["number"],
		Title:       r["short_description"],
		Description: r["description"],
		State:       r["state"],
		URL:         fmt.Sprintf("%s/nav_to.do?uri=incident.do?sys_id=%s", base, r["sys_id"]),
		CreatedAt:   r["sys_created_on"],
		UpdatedAt:   r["sys_updated_on"],
		Extra: map[string]any{
			"priority":    r["priority"],
			"urgency":     r["urgency"],
			"impact":      r["impact"],
			"assigned_to": r["assigned_to"],
			"caller":      r["caller_id"],
		},
	}
}
