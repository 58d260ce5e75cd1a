// Package intent extracts search hints from a user message.
//
// The grammar is heuristic and intentionally small:
//
//	incident      INC0012345 (INC + 7 digits), also CHG, RITM, REQ, KB records
//	issue key     ABC-123
//	github issue  owner/repo#123
//	github repo   owner/repo
//	channel       #channel-name
//	count         "how many", "count of", "number of", "total"
//	create        create, post, write, or open/file/raise/log/submit + a/an/new
//	update        update, close, resolve, reopen, assign, change
//	list          list, show all, show me all
//	get           a single record reference without another verb
//
// Anything else is a search. Keywords are the message words minus stopwords;
// a quoted phrase replaces the keywords.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// Kind is what the user wants to do
type Kind string

const (
	KindSearch Kind = "search"
	KindCount  Kind = "count"
	KindGet    Kind = "get"
	KindList   Kind = "list"
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
)

// RefKind is the type of a record reference found in the text
type RefKind string

const (
	RefIncident     RefKind = "incident"
	RefChange       RefKind = "change"
	RefRequestItem  RefKind = "request_item"
	RefRequest      RefKind = "request"
	RefKnowledge    RefKind = "knowledge"
	RefIssueKey     RefKind = "issue_key"
	RefGitHubIssue  RefKind = "github_issue"
	RefGitHubRepo   RefKind = "github_repo"
	RefSlackChannel RefKind = "slack_channel"
)

// Reference is a record identifier found in the text.
type Reference struct {
	Kind   RefKind `json:"kind"`
	Value  string  `json:"value"`
	Repo   string  `json:"repo,omitempty"`
	Number int     `json:"number,omitempty"`
}

// Intent is the parse of one message.
type Intent struct {
	Kind       Kind                 `json:"kind"`
	Subject    string               `json:"subject,omitempty"`
	Keywords   []string             `json:"keywords,omitempty"`
	Phrase     string               `json:"phrase,omitempty"`
	References []Reference          `json:"references,omitempty"`
	Connector  domain.ConnectorType `json:"connector,omitempty"`
}

// Query returns the search text: the quoted phrase if any, else the keywords.
func (i Intent) Query() string {
	if i.Phrase != "" {
		return i.Phrase
	}
	return strings.Join(i.Keywords, " ")
}

var (
	recordRe      = regexp.MustCompile(`(?i)\b(INC|CHG|RITM|REQ|KB)(\d{7})\b`)
	githubIssueRe = regexp.MustCompile(`\b([A-Za-z0-9][A-Za-z0-9-]*)/([A-Za-z0-9._-]+)#(\d+)\b`)
	githubRepoRe  = regexp.MustCompile(`\b([A-Za-z0-9][A-Za-z0-9-]*)/([A-Za-z0-9._-]*[A-Za-z0-9_])\b`)
	issueKeyRe    = regexp.MustCompile(`\b([A-Z][A-Z0-9]{1,9})-(\d+)\b`)
	channelRe     = regexp.MustCompile(`(?:^|\s)#([a-z0-9][a-z0-9_-]{0,79})\b`)
	quotedRe      = regexp.MustCompile(`"([^"]+)"|“([^”]+)”`)
	countRe       = regexp.MustCompile(`(?i)\b(how many|count of|number of|total(?: number)?(?: of)?)\b`)
	createRe      = regexp.MustCompile(`(?i)\b(create|post|write|(?:open|file|raise|log|submit)\s+(?:a|an|new))\b`)
	updateRe      = regexp.MustCompile(`(?i)\b(update|close|resolve|reopen|assign|change the|set the)\b`)
	listRe        = regexp.MustCompile(`(?i)\b(list|show (?:me )?all|what are (?:my|the|all)|which)\b`)
	wordRe        = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}._-]*`)
)

var recordPrefixes = map[string]RefKind{
	"INC":  RefIncident,
	"CHG":  RefChange,
	"RITM": RefRequestItem,
	"REQ":  RefRequest,
	"KB":   RefKnowledge,
}

// subjects maps nouns to a subject and its connector, in priority order.
var subjects = []struct {
	words     []string
	subject   string
	connector domain.ConnectorType
}{
	{[]string{"incident", "incidents", "ticket", "tickets", "outage", "outages"}, "incidents", domain.ConnectorServiceNow},
	{[]string{"knowledge", "kb", "article", "articles"}, "knowledge articles", domain.ConnectorServiceNow},
	{[]string{"pr", "prs", "pull", "issue", "issues", "bug", "bugs"}, "issues", domain.ConnectorGitHub},
	{[]string{"repo", "repos", "repository", "repositories", "code", "commit", "commits"}, "repositories", domain.ConnectorGitHub},
	{[]string{"slack", "channel", "channels", "message", "messages", "thread"}, "messages", domain.ConnectorSlack},
	{[]string{"drive", "file", "files", "spreadsheet", "sheet", "slides"}, "files", domain.ConnectorGoogleDrive},
	{[]string{"confluence", "wiki", "page", "pages", "space"}, "pages", domain.ConnectorConfluence},
	{[]string{"document", "documents", "upload", "uploaded", "pdf"}, "documents", domain.ConnectorDocuments},
}

var stopwords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`a about above after all also am an and any are as at be been being
		but by can could did do does doing for from get give had has have having he her here hers how
		i if in into is it its me more most my no nor not of off on once only or other our out over
		please same she should show so some such tell than that the their them then there these they
		this those to too under until up us very was we were what when where which while who whom why
		will with would you your find search look looking for about any many much number count total
		there know need want let lets see`) {
		stopwords[w] = true
	}
}

// Parse extracts the intent of a message. It never fails; an empty message
// yields a search with no keywords.
func Parse(text string) Intent {
	in := Intent{Kind: KindSearch}
	text = strings.TrimSpace(text)
	if text == "" {
		return in
	}

	in.References = references(text)

	if m := quotedRe.FindStringSubmatch(text); m != nil {
		in.Phrase = strings.TrimSpace(m[1] + m[2])
	}

	lower := strings.ToLower(text)
	in.Subject, in.Connector = subject(lower)
	if in.Connector == "" && len(in.References) > 0 {
		in.Connector = referenceConnector(in.References[0].Kind)
	}

	var verb string
	switch {
	case countRe.MatchString(text):
		in.Kind = KindCount
	case createRe.MatchString(text) && !hasRecordRef(in.References):
		in.Kind = KindCreate
		verb = createRe.FindString(text)
	case updateRe.MatchString(text) && hasRecordRef(in.References):
		in.Kind = KindUpdate
		verb = updateRe.FindString(text)
	case listRe.MatchString(text) && !hasRecordRef(in.References):
		in.Kind = KindList
		verb = listRe.FindString(text)
	case hasRecordRef(in.References):
		in.Kind = KindGet
	}

	in.Keywords = keywords(text, in.References, verb)
	return in
}

func references(text string) []Reference {
	var refs []Reference
	seen := make(map[string]bool)
	add := func(r Reference) {
		key := string(r.Kind) + ":" + r.Value
		if !seen[key] {
			seen[key] = true
			refs = append(refs, r)
		}
	}

	for _, m := range recordRe.FindAllStringSubmatch(text, -1) {
		prefix := strings.ToUpper(m[1])
		add(Reference{Kind: recordPrefixes[prefix], Value: prefix + m[2]})
	}

	issueSpans := githubIssueRe.FindAllStringSubmatchIndex(text, -1)
	for _, loc := range issueSpans {
		owner, repo := text[loc[2]:loc[3]], text[loc[4]:loc[5]]
		n, _ := strconv.Atoi(text[loc[6]:loc[7]])
		add(Reference{Kind: RefGitHubIssue, Value: owner + "/" + repo + "#" + strconv.Itoa(n), Repo: owner + "/" + repo, Number: n})
	}
	for _, m := range githubRepoRe.FindAllStringSubmatch(text, -1) {
		if notRepo(m[1], m[2]) {
			continue
		}
		repo := m[1] + "/" + m[2]
		if !isIssueRepo(refs, repo) {
			add(Reference{Kind: RefGitHubRepo, Value: repo, Repo: repo})
		}
	}

	for _, m := range issueKeyRe.FindAllStringSubmatch(text, -1) {
		if _, isRecord := recordPrefixes[m[1]]; isRecord {
			continue
		}
		add(Reference{Kind: RefIssueKey, Value: m[0]})
	}

	for _, m := range channelRe.FindAllStringSubmatch(text, -1) {
		if _, err := strconv.Atoi(m[1]); err == nil {
			continue // "#123" is an issue number, not a channel
		}
		add(Reference{Kind: RefSlackChannel, Value: m[1]})
	}
	return refs
}

func isIssueRepo(refs []Reference, repo string) bool {
	for _, r := range refs {
		if r.Kind == RefGitHubIssue && r.Repo == repo {
			return true
		}
	}
	return false
}

var fileExtensions = map[string]bool{
	"md": true, "txt": true, "pdf": true, "json": true, "yaml": true, "yml": true,
	"html": true, "csv": true, "doc": true, "docx": true, "png": true,
}

// notRepo rejects owner/name lookalikes such as "and/or" and "docs/readme.md".
func notRepo(owner, name string) bool {
	if stopwords[strings.ToLower(owner)] || stopwords[strings.ToLower(name)] {
		return true
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		return fileExtensions[strings.ToLower(name[i+1:])]
	}
	return false
}

func hasRecordRef(refs []Reference) bool {
	for _, r := range refs {
		switch r.Kind {
		case RefIncident, RefChange, RefRequestItem, RefRequest, RefKnowledge, RefIssueKey, RefGitHubIssue:
			return true
		}
	}
	return false
}

func subject(lower string) (string, domain.ConnectorType) {
	words := make(map[string]bool)
	for _, w := range wordRe.FindAllString(lower, -1) {
		words[w] = true
	}
	for _, s := range subjects {
		for _, w := range s.words {
			if words[w] {
				return s.subject, s.connector
			}
		}
	}
	return "", ""
}

func referenceConnector(k RefKind) domain.ConnectorType {
	switch k {
	case RefIncident, RefChange, RefRequestItem, RefRequest, RefKnowledge:
		return domain.ConnectorServiceNow
	case RefGitHubIssue, RefGitHubRepo:
		return domain.ConnectorGitHub
	case RefSlackChannel:
		return domain.ConnectorSlack
	}
	return ""
}

// keywords returns non-stopword tokens in order, without reference tokens
// and the verb that selected the kind.
func keywords(text string, refs []Reference, verb string) []string {
	skip := make(map[string]bool)
	for _, r := range refs {
		for _, part := range wordRe.FindAllString(strings.ToLower(r.Value), -1) {
			skip[part] = true
		}
	}
	for _, v := range wordRe.FindAllString(strings.ToLower(verb), -1) {
		skip[v] = true
	}

	var out []string
	seen := make(map[string]bool)
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		w = strings.Trim(w, "._-")
		if len(w) < 2 || stopwords[w] || skip[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
