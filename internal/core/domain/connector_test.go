package domain

import (
	"testing"
)

func TestConnectorTypeConstants(t *testing.T) {
	tests := []struct {
		connector ConnectorType
		expected  string
	}{
		{ConnectorServiceNow, "servicenow"},
		{ConnectorGitHub, "github"},
		{ConnectorSlack, "slack"},
		{ConnectorGoogleDrive, "google_drive"},
		{ConnectorConfluence, "confluence"},
		{ConnectorDocuments, "documents"},
	}

	for _, tt := range tests {
		t.Run(string(tt.connector), func(t *testing.T) {
			if string(tt.connector) != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, string(tt.connector))
			}
		})
	}
}

func TestParseConnectorType(t *testing.T) {
	tests := []struct {
		in   string
		want ConnectorType
		ok   bool
	}{
		{"github", ConnectorGitHub, true},
		{" GitHub ", ConnectorGitHub, true},
		{"gdrive", ConnectorGoogleDrive, true},
		{"service_now", ConnectorServiceNow, true},
		{"jira", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseConnectorType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseConnectorType(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestConnectorType_Internal(t *testing.T) {
	if !ConnectorDocuments.Internal() {
		t.Error("documents connector should be internal")
	}
	for _, c := range []ConnectorType{ConnectorGitHub, ConnectorServiceNow, ConnectorSlack} {
		if c.Internal() {
			t.Errorf("%s should not be internal", c)
		}
	}
}

func TestUserConnector_ToConnectedSource(t *testing.T) {
	uc := &UserConnector{
		UserID:      "user-1",
		ConnectorID: ConnectorGoogleDrive,
		Config:      map[string]string{"folder": "root"},
		OAuthTokens: &OAuthTokenSet{AccessToken: "ya29.token"},
	}

	src := uc.ToConnectedSource()
	if src.Type != ConnectorGoogleDrive {
		t.Errorf("expected type google_drive, got %s", src.Type)
	}
	if src.Config[ConfigAccessToken] != "ya29.token" {
		t.Errorf("expected access token merged into config, got %q", src.Config[ConfigAccessToken])
	}
	if _, ok := uc.Config[ConfigAccessToken]; ok {
		t.Error("merging must not mutate the stored config")
	}
}

func TestSplitSecrets(t *testing.T) {
	public, secret := SplitSecrets(map[string]string{
		"base_url":  "https://acme.service-now.com",
		"username":  "admin",
		"password":  "hunter2",
		"api_token": "tok",
	})

	if len(public) != 2 || public["base_url"] == "" || public["username"] == "" {
		t.Errorf("unexpected public config: %v", public)
	}
	if len(secret) != 2 || secret["password"] != "hunter2" || secret["api_token"] != "tok" {
		t.Errorf("unexpected secret config: %v", secret)
	}
}
