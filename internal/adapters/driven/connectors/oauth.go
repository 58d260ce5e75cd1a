package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Ensure Refresher implements the interface.
var _ driven.OAuthRefresher = (*Refresher)(nil)

// Default token endpoints per provider.
var defaultTokenURLs = map[domain.ConnectorType]string{
	domain.ConnectorGitHub:      "https://github.com/login/oauth/access_token",
	domain.ConnectorSlack:       "https://slack.com/api/oauth.v2.access",
	domain.ConnectorGoogleDrive: "https://oauth2.googleapis.com/token",
	domain.ConnectorConfluence:  "https://auth.atlassian.com/oauth/token",
}

// OAuthClient is the registered OAuth application of one provider.
type OAuthClient struct {
	ClientID     string
	ClientSecret string

	// TokenURL overrides the provider default. ServiceNow has no default;
	// its endpoint is <instance>/oauth_token.do.
	TokenURL string
}

// Refresher performs the refresh_token grant against provider token URLs.
type Refresher struct {
	clients    map[domain.ConnectorType]OAuthClient
	httpClient *http.Client
}

// NewRefresher creates a refresher for the configured OAuth applications.
// Providers without a client ID are not supported.
func NewRefresher(clients map[domain.ConnectorType]OAuthClient) *Refresher {
	cs := make(map[domain.ConnectorType]OAuthClient, len(clients))
	for t, c := range clients {
		if c.ClientID != "" {
			cs[t] = c
		}
	}
	return &Refresher{
		clients:    cs,
		httpClient: &http.Client{Timeout: MetadataTimeout},
	}
}

// Supports reports whether an OAuth application is configured for t.
func (r *Refresher) Supports(t domain.ConnectorType) bool {
	_, ok := r.clients[t]
	return ok
}

// Refresh exchanges creds.RefreshToken for a new access token.
func (r *Refresher) Refresh(ctx context.Context, creds *domain.Credentials) (*driven.OAuthToken, error) {
	client, ok := r.clients[creds.ConnectorType]
	if !ok {
		return nil, fmt.Errorf("%w: no OAuth application for %s", domain.ErrUnsupportedProvider, creds.ConnectorType)
	}
	if creds.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", domain.ErrAuth)
	}
	tokenURL, err := r.tokenURL(creds, client)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"client_id":     {client.ClientID},
		"client_secret": {client.ClientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {creds.RefreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: token endpoint: %v", domain.ErrUpstreamAPI, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var tokenResp struct {
		OK           *bool  `json:"ok"`
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		Scope        string `json:"scope"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Error        string `json:"error"`
		ErrorDesc    string `json:"error_description"`
	}
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		_ = json.Unmarshal(body, &tokenResp)
		return nil, fmt.Errorf("%w: token refresh rejected: %s", domain.ErrAuth, orBody(tokenResp.Error, body))
	}
	if err := StatusError(creds.ConnectorType, resp.StatusCode, body); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("%w: decode token response: %v", domain.ErrUpstreamAPI, err)
	}
	// Slack and GitHub report grant errors with a 200 status.
	if tokenResp.Error != "" || (tokenResp.OK != nil && !*tokenResp.OK) {
		return nil, fmt.Errorf("%w: oauth error: %s %s", domain.ErrAuth, tokenResp.Error, tokenResp.ErrorDesc)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response has no access_token", domain.ErrUpstreamAPI)
	}

	return &driven.OAuthToken{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		Scope:        tokenResp.Scope,
		ExpiresIn:    tokenResp.ExpiresIn,
	}, nil
}

func (r *Refresher) tokenURL(creds *domain.Credentials, client OAuthClient) (string, error) {
	if client.TokenURL != "" {
		return client.TokenURL, nil
	}
	if u, ok := defaultTokenURLs[creds.ConnectorType]; ok {
		return u, nil
	}
	if creds.ConnectorType == domain.ConnectorServiceNow {
		base, err := RequireBaseURL(creds)
		if err != nil {
			return "", err
		}
		return base + "/oauth_token.do", nil
	}
	return "", fmt.Errorf("%w: no token URL for %s", domain.ErrNotConfigured, creds.ConnectorType)
}

func orBody(msg string, body []byte) string {
	if msg != "" {
		return msg
	}
	return Truncate(string(body), maxErrorBody)
}
