package domain

import (
	"strings"
	"time"
)

// ConnectorType identifies an external system the dispatcher can call
type ConnectorType string

const (
	// Ticketing and knowledge base
	ConnectorServiceNow ConnectorType = "servicenow"

	// Source control
	ConnectorGitHub ConnectorType = "github"

	// Messaging
	ConnectorSlack ConnectorType = "slack"

	// File storage
	ConnectorGoogleDrive ConnectorType = "google_drive"

	// Document store
	ConnectorConfluence ConnectorType = "confluence"

	// ConnectorDocuments is the internal index of uploaded documents.
	// It needs no credentials and is always available.
	ConnectorDocuments ConnectorType = "documents"
)

// AllConnectors returns every connector type in catalog order.
func AllConnectors() []ConnectorType {
	return []ConnectorType{
		ConnectorServiceNow,
		ConnectorGitHub,
		ConnectorSlack,
		ConnectorGoogleDrive,
		ConnectorConfluence,
		ConnectorDocuments,
	}
}

// ParseConnectorType normalizes a connector name from a request.
// Returns false for names that are not known connectors.
func ParseConnectorType(s string) (ConnectorType, bool) {
	ct := ConnectorType(strings.ToLower(strings.TrimSpace(s)))
	switch ct {
	case "gdrive", "googledrive":
		ct = ConnectorGoogleDrive
	case "service_now":
		ct = ConnectorServiceNow
	}
	for _, known := range AllConnectors() {
		if ct == known {
			return ct, true
		}
	}
	return "", false
}

// Internal reports whether the connector is served in-process.
func (c ConnectorType) Internal() bool {
	return c == ConnectorDocuments
}

// DisplayName returns a human readable name for messages like "please connect X".
func (c ConnectorType) DisplayName() string {
	switch c {
	case ConnectorServiceNow:
		return "ServiceNow"
	case ConnectorGitHub:
		return "GitHub"
	case ConnectorSlack:
		return "Slack"
	case ConnectorGoogleDrive:
		return "Google Drive"
	case ConnectorConfluence:
		return "Confluence"
	case ConnectorDocuments:
		return "Uploaded documents"
	}
	return string(c)
}

// ConnectedSource is one user's link to one external system, as sent with a
// request. Config holds non-secret settings; for OAuth sources the access
// token is merged in at read time under "access_token".
type ConnectedSource struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Type   ConnectorType     `json:"type"`
	Config map[string]string `json:"config,omitempty"`
}

// ConnectorStatus is the lifecycle state of a stored user connector
type ConnectorStatus string

const (
	ConnectorStatusConnected    ConnectorStatus = "connected"
	ConnectorStatusError        ConnectorStatus = "error"
	ConnectorStatusDisconnected ConnectorStatus = "disconnected"
)

// Config keys understood by the credential resolver.
const (
	ConfigBaseURL     = "base_url"
	ConfigUsername    = "username"
	ConfigPassword    = "password"
	ConfigEmail       = "email"
	ConfigAPIToken    = "api_token"
	ConfigAccessToken = "access_token"
)

// secretConfigKeys are config values that are encrypted at rest.
var secretConfigKeys = map[string]bool{
	ConfigPassword:    true,
	ConfigAPIToken:    true,
	ConfigAccessToken: true,
	"api_key":         true,
	"client_secret":   true,
}

// IsSecretConfigKey reports whether a config key must never be stored in clear text.
func IsSecretConfigKey(key string) bool {
	return secretConfigKeys[strings.ToLower(key)]
}

// UserConnector is the persisted row for (user, connector).
// At most one exists per pair.
type UserConnector struct {
	UserID       string            `json:"user_id"`
	ConnectorID  ConnectorType     `json:"connector_id"`
	Config       map[string]string `json:"config,omitempty"`
	OAuthTokens  *OAuthTokenSet    `json:"-"`
	Status       ConnectorStatus   `json:"status"`
	LastSyncedAt *time.Time        `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ToConnectedSource returns the request view of the row with the OAuth
// access token merged into config.
func (u *UserConnector) ToConnectedSource() ConnectedSource {
	cfg := make(map[string]string, len(u.Config)+1)
	for k, v := range u.Config {
		cfg[k] = v
	}
	if u.OAuthTokens != nil && u.OAuthTokens.AccessToken != "" {
		cfg[ConfigAccessToken] = u.OAuthTokens.AccessToken
	}
	return ConnectedSource{
		ID:     u.UserID + ":" + string(u.ConnectorID),
		Name:   u.ConnectorID.DisplayName(),
		Type:   u.ConnectorID,
		Config: cfg,
	}
}

// SplitSecrets separates a config map into public and secret parts.
func SplitSecrets(config map[string]string) (public, secret map[string]string) {
	public = make(map[string]string)
	secret = make(map[string]string)
	for k, v := range config {
		if IsSecretConfigKey(k) {
			secret[k] = v
		} else {
			public[k] = v
		}
	}
	return public, secret
}
