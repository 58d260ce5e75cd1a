package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
)

func newConnectorFixture(t *testing.T) (driving.ConnectorService, *mocks.MockConnector, *mocks.MockUserConnectorStore) {
	t.Helper()
	sn := mocks.NewMockConnector(domain.ConnectorServiceNow, domain.ActionTestConnection, domain.ActionCount)
	store := mocks.NewMockUserConnectorStore()
	resolver := NewCredentialResolver(CredentialResolverConfig{Store: store})
	svc := NewConnectorService(ConnectorServiceConfig{
		Registry: mocks.NewMockConnectorRegistry(sn),
		Resolver: resolver,
		Store:    store,
	})
	return svc, sn, store
}

func TestConnectorService_RequestConfigFirst(t *testing.T) {
	svc, sn, store := newConnectorFixture(t)
	require.NoError(t, store.Save(context.Background(), &domain.UserConnector{
		UserID:      "user-1",
		ConnectorID: domain.ConnectorServiceNow,
		Config: map[string]string{
			domain.ConfigBaseURL:  "https://stored.service-now.com",
			domain.ConfigUsername: "stored",
			domain.ConfigPassword: "stored-pw",
		},
		Status: domain.ConnectorStatusConnected,
	}))

	res := svc.Execute(context.Background(), "user-1", driving.ExecuteRequest{
		Connector: "servicenow",
		Action:    domain.ActionTestConnection,
		Config: map[string]string{
			domain.ConfigBaseURL:  "https://override.service-now.com/",
			domain.ConfigUsername: "admin",
			domain.ConfigPassword: "secret",
		},
	})
	require.True(t, res.Success, res.Error)

	calls := sn.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "https://override.service-now.com", calls[0].Creds.BaseURL)
	assert.Equal(t, "admin", calls[0].Creds.Username)
	assert.NotNil(t, calls[0].Params)
}

func TestConnectorService_Errors(t *testing.T) {
	svc, sn, _ := newConnectorFixture(t)

	tests := []struct {
		name string
		req  driving.ExecuteRequest
		kind domain.ErrorKind
	}{
		{"unknown connector", driving.ExecuteRequest{Connector: "jira", Action: "search"}, domain.ErrorKindUnknownTool},
		{"unregistered connector", driving.ExecuteRequest{Connector: "slack", Action: "search"}, domain.ErrorKindUnknownTool},
		{"unknown action", driving.ExecuteRequest{Connector: "servicenow", Action: "drop_table"}, domain.ErrorKindUnknownAction},
		{"not configured", driving.ExecuteRequest{Connector: "servicenow", Action: domain.ActionCount}, domain.ErrorKindConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.Execute(context.Background(), "", tt.req)
			assert.False(t, res.Success)
			assert.Equal(t, tt.kind, res.Kind)
		})
	}
	assert.Empty(t, sn.Calls(), "no adapter call for rejected requests")
}

func TestConnectorService_ConnectionsStripSecrets(t *testing.T) {
	svc, _, store := newConnectorFixture(t)
	require.NoError(t, store.Save(context.Background(), &domain.UserConnector{
		UserID:      "user-1",
		ConnectorID: domain.ConnectorConfluence,
		Config:      map[string]string{domain.ConfigBaseURL: "https://acme.atlassian.net", domain.ConfigAPIToken: "tok"},
		OAuthTokens: &domain.OAuthTokenSet{AccessToken: "a"},
		Status:      domain.ConnectorStatusConnected,
	}))

	rows, err := svc.Connections(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://acme.atlassian.net", rows[0].Config[domain.ConfigBaseURL])
	assert.NotContains(t, rows[0].Config, domain.ConfigAPIToken)
	assert.Nil(t, rows[0].OAuthTokens)

	_, err = svc.Connections(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
