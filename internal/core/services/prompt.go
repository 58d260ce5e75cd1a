package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/intent"
)

const basePrompt = `You are a workplace assistant. You answer questions by calling the tools of the user's connected sources.
Only state facts, numbers and identifiers that appear in tool results or in the conversation. Never invent them.
When a tool result contains an "error" field, explain the problem in plain words and suggest what the user can try next.
Keep answers short and cite record numbers or titles when you use them.`

// promptBuilder renders the system prompt for each model pass.
type promptBuilder struct {
	now func() time.Time
}

// firstPass includes the explicit instructions derived from the user's
// last message.
func (p promptBuilder) firstPass(tools []domain.ToolDescriptor, in intent.Intent) string {
	var b strings.Builder
	p.writeBase(&b, tools)

	nudges := p.nudges(tools, in)
	if len(nudges) > 0 {
		b.WriteString("\n\nInstructions for this request:\n")
		for _, n := range nudges {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// followUp is sent on tool-enabled passes after the first round. Like
// finalPass it carries no instructions.
func (p promptBuilder) followUp(tools []domain.ToolDescriptor) string {
	var b strings.Builder
	p.writeBase(&b, tools)
	b.WriteString("\n\nTool results so far are in the conversation. Call another tool only if they are not enough to answer.")
	return b.String()
}

// finalPass omits the instructions: tool results are already present.
func (p promptBuilder) finalPass(tools []domain.ToolDescriptor) string {
	var b strings.Builder
	p.writeBase(&b, tools)
	b.WriteString("\n\nTool results for this request are in the conversation. Answer from them. Do not request more tools.")
	return b.String()
}

func (p promptBuilder) writeBase(b *strings.Builder, tools []domain.ToolDescriptor) {
	b.WriteString(basePrompt)
	fmt.Fprintf(b, "\nCurrent time: %s.", p.now().UTC().Format(time.RFC3339))

	sources := connectorNames(tools)
	if len(sources) == 0 {
		b.WriteString("\nNo sources are connected. If the user asks about external data, tell them to connect a source in settings.")
		return
	}
	fmt.Fprintf(b, "\nConnected sources: %s.", strings.Join(sources, ", "))
}

func (p promptBuilder) nudges(tools []domain.ToolDescriptor, in intent.Intent) []string {
	var out []string

	switch in.Kind {
	case intent.KindCount:
		if tool := findTool(tools, in.Connector, domain.ActionCount); tool != "" {
			out = append(out, fmt.Sprintf("The user asks for a count of %s. Call %s and report exactly the number it returns.", orDefault(in.Subject, "records"), tool))
		} else {
			out = append(out, "The user asks for a count. Report a number only if a tool returned it.")
		}
	case intent.KindCreate:
		out = append(out, "The user wants to create a record. Ask for any required field that is missing instead of guessing it. Report the identifier the tool returns.")
	case intent.KindUpdate:
		out = append(out, "The user wants to change an existing record. Confirm which record and what to change if it is unclear.")
	case intent.KindList:
		if tool := findTool(tools, in.Connector, domain.ActionList); tool != "" {
			out = append(out, fmt.Sprintf("Call %s to list %s.", tool, orDefault(in.Subject, "items")))
		}
	}

	for _, ref := range in.References {
		switch ref.Kind {
		case intent.RefIncident, intent.RefChange, intent.RefRequest, intent.RefRequestItem, intent.RefKnowledge:
			if tool := findTool(tools, domain.ConnectorServiceNow, domain.ActionGet); tool != "" {
				out = append(out, fmt.Sprintf("The user referenced %s. Fetch it with %s before answering.", ref.Value, tool))
			}
		case intent.RefGitHubIssue:
			if tool := findTool(tools, domain.ConnectorGitHub, domain.ActionGet); tool != "" {
				out = append(out, fmt.Sprintf("The user referenced issue %d in %s. Fetch it with %s.", ref.Number, ref.Repo, tool))
			}
		case intent.RefGitHubRepo:
			out = append(out, fmt.Sprintf("Restrict GitHub searches to the repository %s.", ref.Repo))
		case intent.RefSlackChannel:
			out = append(out, fmt.Sprintf("Restrict Slack searches to the channel %s.", ref.Value))
		}
	}

	if in.Kind == intent.KindSearch {
		if q := in.Query(); q != "" {
			if tool := findTool(tools, in.Connector, domain.ActionSearch); tool != "" {
				out = append(out, fmt.Sprintf("Search with %s using the keywords: %s.", tool, q))
			} else if len(tools) > 0 {
				out = append(out, fmt.Sprintf("If a search is needed, use the keywords: %s.", q))
			}
		}
	}
	return out
}

// findTool returns the first tool for connector and action. An empty
// connector matches any connector.
func findTool(tools []domain.ToolDescriptor, connector domain.ConnectorType, action string) string {
	for _, t := range tools {
		if t.Action == action && (connector == "" || t.Connector == connector) {
			return t.Name
		}
	}
	return ""
}

func connectorNames(tools []domain.ToolDescriptor) []string {
	seen := make(map[domain.ConnectorType]bool)
	var names []string
	for _, t := range tools {
		if !seen[t.Connector] {
			seen[t.Connector] = true
			names = append(names, t.Connector.DisplayName())
		}
	}
	sort.Strings(names)
	return names
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
