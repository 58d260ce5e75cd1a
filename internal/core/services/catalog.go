package services

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// toolSpec is one catalog entry before schema reflection.
type toolSpec struct {
	name        string
	description string
	connector   domain.ConnectorType
	action      string
	params      any
}

// toolSpecs is the static catalog in display order. Each name maps to
// exactly one (connector, action) pair.
var toolSpecs = []toolSpec{
	{"servicenow_search_incidents", "Search ServiceNow incidents by keywords and state.", domain.ConnectorServiceNow, domain.ActionSearch, domain.IncidentSearchParams{}},
	{"servicenow_get_incident", "Get one ServiceNow incident by number or sys_id.", domain.ConnectorServiceNow, domain.ActionGet, domain.IncidentGetParams{}},
	{"servicenow_count_incidents", "Count ServiceNow incidents. Use this for questions like how many incidents there are.", domain.ConnectorServiceNow, domain.ActionCount, domain.IncidentCountParams{}},
	{"servicenow_create_incident", "Create a ServiceNow incident. Returns the new incident number.", domain.ConnectorServiceNow, domain.ActionCreate, domain.IncidentCreateParams{}},
	{"servicenow_update_incident", "Update the state of a ServiceNow incident or add notes.", domain.ConnectorServiceNow, domain.ActionUpdate, domain.IncidentUpdateParams{}},
	{"servicenow_search_knowledge", "Search ServiceNow knowledge base articles.", domain.ConnectorServiceNow, domain.ActionSearchKnowledge, domain.KnowledgeSearchParams{}},

	{"github_search_issues", "Search GitHub issues and pull requests.", domain.ConnectorGitHub, domain.ActionSearch, domain.IssueSearchParams{}},
	{"github_get_issue", "Get one GitHub issue or pull request.", domain.ConnectorGitHub, domain.ActionGet, domain.IssueGetParams{}},
	{"github_list_repositories", "List repositories the user can access.", domain.ConnectorGitHub, domain.ActionList, domain.RepoListParams{}},
	{"github_create_issue", "Open a GitHub issue. Returns the new issue number.", domain.ConnectorGitHub, domain.ActionCreate, domain.IssueCreateParams{}},
	{"github_search_code", "Search code in GitHub repositories.", domain.ConnectorGitHub, domain.ActionSearchCode, domain.CodeSearchParams{}},

	{"slack_search_messages", "Search Slack messages.", domain.ConnectorSlack, domain.ActionSearch, domain.MessageSearchParams{}},
	{"slack_list_channels", "List Slack channels.", domain.ConnectorSlack, domain.ActionList, domain.ChannelListParams{}},
	{"slack_post_message", "Post a message to a Slack channel.", domain.ConnectorSlack, domain.ActionCreate, domain.PostMessageParams{}},

	{"gdrive_search_files", "Search Google Drive files by name and content.", domain.ConnectorGoogleDrive, domain.ActionSearch, domain.FileSearchParams{}},
	{"gdrive_list_files", "List recent Google Drive files or the files of a folder.", domain.ConnectorGoogleDrive, domain.ActionList, domain.FileListParams{}},
	{"gdrive_get_file", "Get Google Drive file metadata and optionally its text.", domain.ConnectorGoogleDrive, domain.ActionGet, domain.FileGetParams{}},

	{"confluence_search_pages", "Search Confluence pages.", domain.ConnectorConfluence, domain.ActionSearch, domain.PageSearchParams{}},
	{"confluence_get_page", "Get a Confluence page with its text.", domain.ConnectorConfluence, domain.ActionGet, domain.PageGetParams{}},
	{"confluence_create_page", "Create a Confluence page. Returns the new page id.", domain.ConnectorConfluence, domain.ActionCreate, domain.PageCreateParams{}},

	{"documents_search", "Search uploaded documents by keywords. Returns snippets.", domain.ConnectorDocuments, domain.ActionSearch, domain.DocumentSearchParams{}},
	{"documents_get", "Get the full content of an uploaded document.", domain.ConnectorDocuments, domain.ActionGet, domain.DocumentGetParams{}},
}

// catalogEntry is a built tool with its compiled argument validator.
type catalogEntry struct {
	descriptor domain.ToolDescriptor
	validator  *gojsonschema.Schema
}

// Catalog is the immutable tool catalog built once at startup.
type Catalog struct {
	entries []*catalogEntry
	byName  map[string]*catalogEntry
}

// NewCatalog reflects every parameter struct into a JSON schema and compiles
// its validator. A duplicate name or invalid schema is a programming error.
func NewCatalog() (*Catalog, error) {
	return buildCatalog(toolSpecs)
}

func buildCatalog(specs []toolSpec) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]*catalogEntry, len(specs))}
	for _, spec := range specs {
		if _, dup := c.byName[spec.name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", spec.name)
		}
		schema, err := reflectSchema(spec.params)
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", spec.name, err)
		}
		validator, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", spec.name, err)
		}
		entry := &catalogEntry{
			descriptor: domain.ToolDescriptor{
				Name:        spec.name,
				Description: spec.description,
				Parameters:  schema,
				Connector:   spec.connector,
				Action:      spec.action,
			},
			validator: validator,
		}
		c.entries = append(c.entries, entry)
		c.byName[spec.name] = entry
	}
	return c, nil
}

// Descriptors returns all tools in catalog order.
func (c *Catalog) Descriptors() []domain.ToolDescriptor {
	out := make([]domain.ToolDescriptor, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.descriptor
	}
	return out
}

// Lookup returns the tool registered under name.
func (c *Catalog) Lookup(name string) (domain.ToolDescriptor, bool) {
	e, ok := c.byName[name]
	if !ok {
		return domain.ToolDescriptor{}, false
	}
	return e.descriptor, true
}

// Validate checks arguments against the tool's schema.
func (c *Catalog) Validate(name string, args map[string]any) error {
	e, ok := c.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownTool, name)
	}
	result, err := e.validator.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if !result.Valid() {
		msg := ""
		for i, desc := range result.Errors() {
			if i > 0 {
				msg += "; "
			}
			msg += desc.String()
		}
		return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	}
	return nil
}

// reflectSchema turns a parameter struct into a plain JSON schema object.
func reflectSchema(params any) (map[string]any, error) {
	r := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := r.Reflect(params)

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	out := map[string]any{"type": "object", "properties": map[string]any{}}
	if props, ok := m["properties"].(map[string]any); ok {
		out["properties"] = props
	}
	if req, ok := m["required"].([]any); ok && len(req) > 0 {
		out["required"] = req
	}
	return out, nil
}
