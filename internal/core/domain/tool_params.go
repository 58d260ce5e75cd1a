package domain

// Parameter types for each tool. The json/jsonschema tags produce the schema
// sent to the model; the mapstructure tags decode the model's arguments.

// ServiceNow

type IncidentSearchParams struct {
	Query string `json:"query,omitempty" mapstructure:"query" jsonschema:"description=Keywords matched against the incident short description"`
	State string `json:"state,omitempty" mapstructure:"state" jsonschema:"description=Incident state filter,enum=new,enum=in_progress,enum=on_hold,enum=resolved,enum=closed"`
	Limit int    `json:"limit,omitempty" mapstructure:"limit" jsonschema:"description=Maximum incidents to return,minimum=1,maximum=50"`
}

type IncidentGetParams struct {
	Number string `json:"number" mapstructure:"number" jsonschema:"required,description=Incident number such as INC0010001 or its sys_id"`
}

type IncidentCountParams struct {
	Query  string `json:"query,omitempty" mapstructure:"query" jsonschema:"description=Optional keywords to narrow the count"`
	State  string `json:"state,omitempty" mapstructure:"state" jsonschema:"description=Optional state filter,enum=new,enum=in_progress,enum=on_hold,enum=resolved,enum=closed"`
	Active bool   `json:"active,omitempty" mapstructure:"active" jsonschema:"description=Count only active incidents"`
}

type IncidentCreateParams struct {
	ShortDescription string `json:"short_description" mapstructure:"short_description" jsonschema:"required,description=One line summary of the problem"`
	Description      string `json:"description,omitempty" mapstructure:"description" jsonschema:"description=Full problem description"`
	Urgency          string `json:"urgency,omitempty" mapstructure:"urgency" jsonschema:"description=1 is high and 3 is low,enum=1,enum=2,enum=3"`
	Impact           string `json:"impact,omitempty" mapstructure:"impact" jsonschema:"description=1 is high and 3 is low,enum=1,enum=2,enum=3"`
}

type IncidentUpdateParams struct {
	Number           string `json:"number" mapstructure:"number" jsonschema:"required,description=Incident number to update"`
	State            string `json:"state,omitempty" mapstructure:"state" jsonschema:"description=New state,enum=new,enum=in_progress,enum=on_hold,enum=resolved,enum=closed"`
	ShortDescription string `json:"short_description,omitempty" mapstructure:"short_description" jsonschema:"description=Replacement summary"`
	WorkNotes        string `json:"work_notes,omitempty" mapstructure:"work_notes" jsonschema:"description=Internal work note to append"`
	Comments         string `json:"comments,omitempty" mapstructure:"comments" jsonschema:"description=Customer visible comment to append"`
}

type KnowledgeSearchParams struct {
	Query string `json:"query" mapstructure:"query" jsonschema:"required,description=Keywords to search knowledge articles for"`
	Limit int    `json:"limit,omitempty" mapstructure:"limit" jsonschema:"minimum=1,maximum=50"`
}

// GitHub

type IssueSearchParams struct {
	Query string `json:"query" mapstructure:"query" jsonschema:"required,description=GitHub issue search keywords"`
	Repo  string `json:"repo,omitempty" mapstructure:"repo" jsonschema:"description=Restrict to a repository in owner/name form"`
	State string `json:"state,omitempty" mapstructure:"state" jsonschema:"enum=open,enum=closed"`
	Limit int    `json:"limit,omitempty" mapstructure:"limit" jsonschema:"minimum=1,maximum=50"`
}

type IssueGetParams struct {
	Repo   string `json:"repo" mapstructure:"repo" jsonschema:"required,description=Repository in owner/name form"`
	Number int    `json:"number" mapstructure:"number" jsonschema:"required,description=Issue or pull request number,minimum=1"`
}

type RepoListParams struct {
	Limit int `json:"limit,omitempty" mapstructure:"limit" jsonschema:"minimum=1,maximum=50"`
}

type IssueCreateParams struct {
	Repo  string `json:"repo" mapstructure:"repo" jsonschema:"required,description=Repository in owner/name form"`
	Title string `json:"title" mapstructure:"title" jsonschema:"required"`
	Body  string `json:"body,omitempty" mapstructure:"body"`
}

type CodeSearchParams struct {
	Query string `json:"query" mapstructure:"query" jsonschema:"required,description=Code search keywords"`
	Repo  string `json:"repo,omitempty" mapstructure:"repo" jsonschema:"description=Restrict to a repository in owner/name form"`
	Limit int    `json:"limit,omitempty" mapstructure:"limit" jsonschema:"minimum=1,maximum=50"`
}

// Slack

type MessageSearchParams struct {
	Query   string `json:"query" mapstructure:"query" jsonschema:"required,description=Slack message search keywords"`
	Channel string `json:"channel,omitempty" mapstructure:"channel" jsonschema:"description=Restrict to a channel name without the leading #"`
	Limit   int    `json:"limit,omitempty" mapstructure:"limit" jsonschema:"minimum=1,maximum=50"`
}

type ChannelListParams struct {
	Limit int `json:"limit,omitempty" mapstructure:"limit" jsonschema:"minimum=1,maximum=50"`
}

type PostMessageParams struct {
	Channel string `json:"channel" mapstructure:"channel" jsonschema:"required,description=Channel ID or name"`
	Text    string `json:"text" mapstructure:"text" jsonschema:"required"`
}

// Google Drive

type FileSearchParams struct {
	Query string `json:"query" mapstructure:"query" jsonschema:"required,description=Text to search file names and contents for"`
	Limit int    `json:"limit,omitempty" mapstructure:"limit" jsonschema:"minimum=1,maximum=50"`
}

type FileListParams struct {
	FolderID string `json:"folder_id,omitempty" mapstructure:"folder_id" jsonschema:"description=Folder to list; defaults to recent files"`
	Limit    int    `json:"limit,omitempty" mapstructure:"limit" jsonschema:"minimum=1,maximum=50"`
}

type FileGetParams struct {
	FileID         string `json:"file_id" mapstructure:"file_id" jsonschema:"required"`
	IncludeContent bool   `json:"include_content,omitempty" mapstructure:"include_content" jsonschema:"description=Export the file text as well as its metadata"`
}

// Confluence

type PageSearchParams struct {
	Query string `json:"query" mapstructure:"query" jsonschema:"required,description=Text to search pages for"`
	Space string `json:"space,omitempty" mapstructure:"space" jsonschema:"description=Restrict to a space key"`
	Limit int    `json:"limit,omitempty" mapstructure:"limit" jsonschema:"minimum=1,maximum=50"`
}

type PageGetParams struct {
	PageID string `json:"page_id" mapstructure:"page_id" jsonschema:"required"`
}

type PageCreateParams struct {
	Space    string `json:"space" mapstructure:"space" jsonschema:"required,description=Space key"`
	Title    string `json:"title" mapstructure:"title" jsonschema:"required"`
	Body     string `json:"body" mapstructure:"body" jsonschema:"required,description=Page text"`
	ParentID string `json:"parent_id,omitempty" mapstructure:"parent_id"`
}

// Uploaded documents

type DocumentSearchParams struct {
	Query       string `json:"query" mapstructure:"query" jsonschema:"required,description=Keywords to search uploaded documents for"`
	ConnectorID string `json:"connector_id,omitempty" mapstructure:"connector_id" jsonschema:"description=Restrict to documents indexed under this connector"`
	Limit       int    `json:"limit,omitempty" mapstructure:"limit" jsonschema:"minimum=1,maximum=20"`
}

type DocumentGetParams struct {
	ID string `json:"id" mapstructure:"id" jsonschema:"required,description=Document ID from a previous search"`
}
