package servicenow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors"
	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

func newTestConnector(t *testing.T, handler http.HandlerFunc) (*Connector, *domain.Credentials) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewConnector(connectors.CallerConfig{}), &domain.Credentials{
		ConnectorType: domain.ConnectorServiceNow,
		AuthMethod:    domain.AuthMethodBasic,
		Username:      "agent",
		Password:      "secret",
		BaseURL:       srv.URL,
	}
}

const incidentJSON = `{
	"sys_id": {"display_value": "0a1b2c3d4e5f60718293a4b5c6d7e8f9", "value": "0a1b2c3d4e5f60718293a4b5c6d7e8f9"},
	"number": {"display_value": "INC0010001", "value": "INC0010001"},
	"short_description": {"display_value": "VPN down", "value": "VPN down"},
	"state": {"display_value": "In Progress", "value": "2"},
	"assigned_to": {"display_value": "", "value": "abc"},
	"sys_created_on": {"display_value": "2026-01-05 10:00:00", "value": "2026-01-05 10:00:00"}
}`

func TestConnector_Actions(t *testing.T) {
	c := NewConnector(connectors.CallerConfig{})
	assert.Equal(t, []string{"testConnection", "search", "get", "count", "create", "update", "search_knowledge"}, c.Actions())
}

func TestConnector_SearchFlattensDisplayValues(t *testing.T) {
	c, creds := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/now/table/incident", r.URL.Path)
		assert.Equal(t, "short_descriptionLIKEvpn^ORdescriptionLIKEvpn^state=2^ORDERBYDESCsys_updated_on", r.URL.Query().Get("sysparm_query"))
		assert.Equal(t, "all", r.URL.Query().Get("sysparm_display_value"))
		assert.Equal(t, "50", r.URL.Query().Get("sysparm_limit"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "agent", user)
		assert.Equal(t, "secret", pass)
		_, _ = w.Write([]byte(`{"result":[` + incidentJSON + `]}`))
	})

	res := c.Execute(context.Background(), domain.ActionSearch, map[string]any{
		"query": "vpn", "state": "in_progress", "limit": 500,
	}, creds)

	require.True(t, res.Success, res.Error)
	list := res.Data.(connectors.List)
	require.Equal(t, 1, list.Count)
	rec := list.Items[0]
	assert.Equal(t, "INC0010001", rec.Number)
	assert.Equal(t, "In Progress", rec.State)
	assert.Equal(t, "abc", rec.Extra["assigned_to"], "empty display value falls back to value")
}

func TestConnector_CountUsesAggregateAPI(t *testing.T) {
	c, creds := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/now/stats/incident", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("sysparm_count"))
		assert.Equal(t, "active=true", r.URL.Query().Get("sysparm_query"))
		_, _ = w.Write([]byte(`{"result":{"stats":{"count":"42"}}}`))
	})

	res := c.Execute(context.Background(), domain.ActionCount, map[string]any{"active": true}, creds)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, map[string]int{"count": 42}, res.Data)
	assert.JSONEq(t, `{"count":42}`, res.ToolContent())
}

func TestConnector_GetByNumberAndSysID(t *testing.T) {
	var paths []string
	c, creds := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path+"?"+r.URL.Query().Get("sysparm_query"))
		if r.URL.Path == "/api/now/table/incident" {
			_, _ = w.Write([]byte(`{"result":[` + incidentJSON + `]}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":` + incidentJSON + `}`))
	})

	res := c.Execute(context.Background(), domain.ActionGet, map[string]any{"number": "inc0010001"}, creds)
	require.True(t, res.Success, res.Error)
	res = c.Execute(context.Background(), domain.ActionGet, map[string]any{"number": "0a1b2c3d4e5f60718293a4b5c6d7e8f9"}, creds)
	require.True(t, res.Success, res.Error)

	assert.Equal(t, []string{
		"/api/now/table/incident?number=INC0010001",
		"/api/now/table/incident/0a1b2c3d4e5f60718293a4b5c6d7e8f9?",
	}, paths)
}

func TestConnector_GetMissingIncident(t *testing.T) {
	c, creds := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":[]}`))
	})

	res := c.Execute(context.Background(), domain.ActionGet, map[string]any{"number": "INC0000000"}, creds)

	assert.False(t, res.Success)
	assert.Equal(t, domain.ErrorKindUpstream, res.Kind)
	assert.Contains(t, res.Error, "not found")
}

func TestConnector_Create(t *testing.T) {
	c, creds := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"short_description": "VPN down", "urgency": "1"}, body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":` + incidentJSON + `}`))
	})

	res := c.Execute(context.Background(), domain.ActionCreate, map[string]any{"short_description": "VPN down", "urgency": 1}, creds)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "INC0010001", res.Data.(connectors.Record).Number)
}

func TestConnector_CreateWithoutNumberFails(t *testing.T) {
	c, creds := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{}}`))
	})

	res := c.Execute(context.Background(), domain.ActionCreate, map[string]any{"short_description": "x"}, creds)

	assert.False(t, res.Success)
	assert.Equal(t, domain.ErrorKindUpstream, res.Kind)
}

func TestConnector_UpdateLooksUpSysID(t *testing.T) {
	var patched map[string]string
	c, creds := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"result":[` + incidentJSON + `]}`))
		case http.MethodPatch:
			assert.Equal(t, "/api/now/table/incident/0a1b2c3d4e5f60718293a4b5c6d7e8f9", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
			_, _ = w.Write([]byte(`{"result":` + incidentJSON + `}`))
		}
	})

	res := c.Execute(context.Background(), domain.ActionUpdate, map[string]any{
		"number": "INC0010001", "state": "resolved", "work_notes": "Rebooted the concentrator",
	}, creds)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, map[string]string{"state": "6", "work_notes": "Rebooted the concentrator"}, patched)
}

func TestConnector_ValidationBeforeNetwork(t *testing.T) {
	c, creds := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})

	tests := []struct {
		name   string
		action string
		params map[string]any
	}{
		{"get without number", domain.ActionGet, map[string]any{}},
		{"create without summary", domain.ActionCreate, map[string]any{"description": "x"}},
		{"update with nothing", domain.ActionUpdate, map[string]any{"number": "INC0010001"}},
		{"update bad state", domain.ActionUpdate, map[string]any{"number": "INC0010001", "state": "done"}},
		{"search bad state", domain.ActionSearch, map[string]any{"state": "open"}},
		{"knowledge without query", domain.ActionSearchKnowledge, map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Execute(context.Background(), tt.action, tt.params, creds)
			assert.False(t, res.Success)
			assert.Equal(t, domain.ErrorKindValidation, res.Kind)
		})
	}
}

func TestConnector_MissingBaseURL(t *testing.T) {
	c := NewConnector(connectors.CallerConfig{})
	res := c.Execute(context.Background(), domain.ActionCount, nil, &domain.Credentials{AuthMethod: domain.AuthMethodBasic})

	assert.False(t, res.Success)
	assert.Equal(t, domain.ErrorKindConfiguration, res.Kind)
	assert.Contains(t, res.Hint, "instance URL")
}

func TestConnector_SearchKnowledge(t *testing.T) {
	c, creds := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/now/table/kb_knowledge", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("sysparm_query"), "workflow_state=published")
		_, _ = w.Write([]byte(`{"result":[{
			"sys_id": {"display_value": "k1", "value": "k1"},
			"number": {"display_value": "KB0001", "value": "KB0001"},
			"short_description": {"display_value": "Reset VPN", "value": "Reset VPN"},
			"text": {"display_value": "<p>Open the client.</p><ul><li>Click reset</li></ul>", "value": ""}
		}]}`))
	})

	res := c.Execute(context.Background(), domain.ActionSearchKnowledge, map[string]any{"query": "vpn"}, creds)

	require.True(t, res.Success, res.Error)
	rec := res.Data.(connectors.List).Items[0]
	assert.Equal(t, "KB0001", rec.Number)
	assert.Equal(t, "Open the client.\n- Click reset", rec.Description)
	assert.Contains(t, rec.URL, "sysparm_article=KB0001")
}

func TestLikeStripsCarets(t *testing.T) {
	assert.Equal(t, "short_descriptionLIKEa b", Like("a^b", "short_description"))
	assert.Equal(t, "", Like("  ", "short_description"))
	assert.Equal(t, "a^b", And("a", "", "b"))
}
