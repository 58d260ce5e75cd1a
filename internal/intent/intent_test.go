package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

func TestParse_Count(t *testing.T) {
	in := Parse("how many incidents are there")

	assert.Equal(t, KindCount, in.Kind)
	assert.Equal(t, "incidents", in.Subject)
	assert.Equal(t, domain.ConnectorServiceNow, in.Connector)
	assert.Equal(t, []string{"incidents"}, in.Keywords)
	assert.Empty(t, in.References)
}

func TestParse_Kinds(t *testing.T) {
	tests := []struct {
		text string
		kind Kind
	}{
		{"What is the number of open tickets?", KindCount},
		{"count of bugs in acme/api", KindCount},
		{"create an incident for the VPN outage", KindCreate},
		{"please file a bug about the login page", KindCreate},
		{"post to #ops that deploy is done", KindCreate},
		{"resolve INC0010001", KindUpdate},
		{"update acme/api#42 with the fix", KindUpdate},
		{"list my repositories", KindList},
		{"show me all channels", KindList},
		{"what's going on with INC0010001", KindGet},
		{"open the budget file", KindSearch},
		{"printer on floor 3 not working", KindSearch},
		{"", KindSearch},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.kind, Parse(tt.text).Kind)
		})
	}
}

func TestParse_References(t *testing.T) {
	in := Parse("compare INC0010001 and chg0030002 with acme/api#42, see #ops-alerts and JIRA-77")

	byKind := make(map[RefKind]Reference)
	for _, r := range in.References {
		byKind[r.Kind] = r
	}

	assert.Equal(t, "INC0010001", byKind[RefIncident].Value)
	assert.Equal(t, "CHG0030002", byKind[RefChange].Value)

	gh := byKind[RefGitHubIssue]
	assert.Equal(t, "acme/api", gh.Repo)
	assert.Equal(t, 42, gh.Number)
	_, hasRepo := byKind[RefGitHubRepo]
	assert.False(t, hasRepo, "issue repo is not reported twice")

	assert.Equal(t, "ops-alerts", byKind[RefSlackChannel].Value)
	assert.Equal(t, "JIRA-77", byKind[RefIssueKey].Value)
	assert.Equal(t, domain.ConnectorServiceNow, in.Connector)
}

func TestParse_RepoLookalikes(t *testing.T) {
	in := Parse("check docs/readme.md and/or the kubernetes/kubernetes repo")

	require.Len(t, in.References, 1)
	assert.Equal(t, RefGitHubRepo, in.References[0].Kind)
	assert.Equal(t, "kubernetes/kubernetes", in.References[0].Value)
	assert.Equal(t, domain.ConnectorGitHub, in.Connector)
}

func TestParse_ChannelIgnoresNumbers(t *testing.T) {
	in := Parse("what happened in #123")
	for _, r := range in.References {
		assert.NotEqual(t, RefSlackChannel, r.Kind)
	}
}

func TestParse_KeywordsAndPhrase(t *testing.T) {
	in := Parse(`Find documents about the "quarterly revenue" forecast`)

	assert.Equal(t, KindSearch, in.Kind)
	assert.Equal(t, "quarterly revenue", in.Phrase)
	assert.Equal(t, "quarterly revenue", in.Query())
	assert.Equal(t, domain.ConnectorDocuments, in.Connector)

	in = Parse("Is there anything about VPN timeouts on the wiki?")
	assert.Equal(t, []string{"anything", "vpn", "timeouts", "wiki"}, in.Keywords)
	assert.Equal(t, "anything vpn timeouts wiki", in.Query())
	assert.Equal(t, domain.ConnectorConfluence, in.Connector)
}

func TestParse_KeywordsDropReferenceTokensAndVerb(t *testing.T) {
	in := Parse("create a ticket for printer jam")
	assert.Equal(t, KindCreate, in.Kind)
	assert.Equal(t, []string{"ticket", "printer", "jam"}, in.Keywords)

	in = Parse("summarize INC0010001")
	assert.Equal(t, []string{"summarize"}, in.Keywords)
}
