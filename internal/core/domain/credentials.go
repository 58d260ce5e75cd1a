package domain

import (
	"strings"
	"time"
)

// RefreshWindow is how close to expiry an OAuth access token is refreshed.
const RefreshWindow = 5 * time.Minute

// AuthMethod defines how to authenticate with a connector
type AuthMethod string

const (
	AuthMethodOAuth2   AuthMethod = "oauth2"
	AuthMethodAPIKey   AuthMethod = "api_key"
	AuthMethodBasic    AuthMethod = "basic"
	AuthMethodPAT      AuthMethod = "pat" // Personal Access Token
	AuthMethodInternal AuthMethod = "internal"
)

// CredentialOrigin records where resolved credentials came from
type CredentialOrigin string

const (
	// OriginUser is a stored per-user connector row
	OriginUser CredentialOrigin = "user"
	// OriginRequest is config supplied with the request
	OriginRequest CredentialOrigin = "request"
	// OriginEnvironment is a server-wide fallback secret
	OriginEnvironment CredentialOrigin = "environment"
	// OriginInternal is an in-process connector
	OriginInternal CredentialOrigin = "internal"
)

// OAuthTokenSet is the token material stored with an OAuth connector.
type OAuthTokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// IsExpired checks if the access token has expired.
// A zero ExpiresAt means the token does not expire.
func (t *OAuthTokenSet) IsExpired() bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(t.ExpiresAt)
}

// NeedsRefresh returns true if within RefreshWindow of expiry (or past it).
func (t *OAuthTokenSet) NeedsRefresh() bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Until(t.ExpiresAt) < RefreshWindow
}

// CanRefresh returns true if a refresh is both needed and possible.
func (t *OAuthTokenSet) CanRefresh() bool {
	return t.RefreshToken != "" && t.NeedsRefresh()
}

// Credentials are resolved, ready-to-use credentials for one connector call.
type Credentials struct {
	ConnectorType ConnectorType    `json:"connector_type"`
	AuthMethod    AuthMethod       `json:"auth_method"`
	Origin        CredentialOrigin `json:"origin"`

	// OAuth2 / bearer
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenExpiry  *time.Time `json:"token_expiry,omitempty"`

	// API Key / PAT
	APIKey string `json:"-"`

	// Basic Auth
	Username string `json:"-"`
	Password string `json:"-"`

	// Non-secret settings
	BaseURL string            `json:"base_url,omitempty"`
	Email   string            `json:"email,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`

	// UserID owns the stored row when Origin is OriginUser
	UserID string `json:"user_id,omitempty"`
}

// BearerToken returns the token to send as "Authorization: Bearer".
func (c *Credentials) BearerToken() string {
	if c.AccessToken != "" {
		return c.AccessToken
	}
	return c.APIKey
}

// HasSecret reports whether the credentials carry anything usable for auth.
func (c *Credentials) HasSecret() bool {
	switch c.AuthMethod {
	case AuthMethodInternal:
		return true
	case AuthMethodBasic:
		return c.Username != "" && c.Password != ""
	default:
		return c.BearerToken() != ""
	}
}

// TokenSet returns the OAuth material of the credentials.
func (c *Credentials) TokenSet() *OAuthTokenSet {
	ts := &OAuthTokenSet{AccessToken: c.AccessToken, RefreshToken: c.RefreshToken}
	if c.TokenExpiry != nil {
		ts.ExpiresAt = *c.TokenExpiry
	}
	return ts
}

// Setting returns a non-secret extra setting.
func (c *Credentials) Setting(key string) string {
	if c.Extra == nil {
		return ""
	}
	return c.Extra[key]
}

// CredentialsFromConfig builds credentials from a connector config map and
// an optional stored token set. The auth method follows from which keys are
// present; a stored token set wins over config keys.
func CredentialsFromConfig(t ConnectorType, cfg map[string]string, tokens *OAuthTokenSet, origin CredentialOrigin) *Credentials {
	c := &Credentials{
		ConnectorType: t,
		Origin:        origin,
		BaseURL:       strings.TrimRight(cfg[ConfigBaseURL], "/"),
		Email:         cfg[ConfigEmail],
		Extra:         make(map[string]string),
	}
	for k, v := range cfg {
		switch k {
		case ConfigBaseURL, ConfigEmail, ConfigUsername, ConfigPassword, ConfigAPIToken, ConfigAccessToken, "api_key":
		default:
			c.Extra[k] = v
		}
	}

	apiToken := cfg[ConfigAPIToken]
	if apiToken == "" {
		apiToken = cfg["api_key"]
	}

	switch {
	case tokens != nil && tokens.AccessToken != "":
		c.AuthMethod = AuthMethodOAuth2
		c.AccessToken = tokens.AccessToken
		c.RefreshToken = tokens.RefreshToken
		if !tokens.ExpiresAt.IsZero() {
			exp := tokens.ExpiresAt
			c.TokenExpiry = &exp
		}
	case cfg[ConfigAccessToken] != "":
		c.AuthMethod = AuthMethodOAuth2
		c.AccessToken = cfg[ConfigAccessToken]
	case cfg[ConfigUsername] != "" && cfg[ConfigPassword] != "":
		c.AuthMethod = AuthMethodBasic
		c.Username = cfg[ConfigUsername]
		c.Password = cfg[ConfigPassword]
	case apiToken != "" && c.Email != "":
		c.AuthMethod = AuthMethodBasic
		c.Username = c.Email
		c.Password = apiToken
	case apiToken != "":
		c.AuthMethod = AuthMethodAPIKey
		if t == ConnectorGitHub {
			c.AuthMethod = AuthMethodPAT
		}
		c.APIKey = apiToken
	}
	return c
}

// InternalCredentials are the credentials of in-process connectors.
func InternalCredentials(t ConnectorType, userID string) *Credentials {
	return &Credentials{ConnectorType: t, AuthMethod: AuthMethodInternal, Origin: OriginInternal, UserID: userID}
}
