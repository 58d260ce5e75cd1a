package gdrive

import (
	"context"
	"strings"

	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors"
	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector runs Google Drive actions with an OAuth token.
type Connector struct {
	*connectors.ActionTable
	caller *connectors.Caller
}

// NewConnector creates a Google Drive connector.
func NewConnector(cfg connectors.CallerConfig) *Connector {
	c := &Connector{caller: connectors.NewCaller(domain.ConnectorGoogleDrive, cfg)}
	c.ActionTable = connectors.NewActions(domain.ConnectorGoogleDrive).
		Handle(domain.ActionTestConnection, c.testConnection).
		Handle(domain.ActionSearch, c.search).
		Handle(domain.ActionList, c.list).
		Handle(domain.ActionGet, c.get)
	return c
}

func (c *Connector) client(creds *domain.Credentials) *Client {
	return NewClient(c.caller, creds.BaseURL)
}

func (c *Connector) testConnection(ctx context.Context, _ map[string]any, creds *domain.Credentials) (any, error) {
	about, err := c.client(creds).About(ctx, creds)
	if err != nil {
		return nil, err
	}
	return connectors.ConnectionStatus{OK: true, Message: "Connected to Google Drive as " + about.User.EmailAddress}, nil
}

func (c *Connector) search(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.FileSearchParams
	if err := decode(params, &p, "query"); err != nil {
		return nil, err
	}
	text := Quote(strings.TrimSpace(p.Query))
	q := "(name contains " + text + " or fullText contains " + text + ") and trashed = false"

	// Drive rejects orderBy together with fullText.
	files, err := c.client(creds).ListFiles(ctx, creds, q, "", domain.PageSize(p.Limit))
	if err != nil {
		return nil, err
	}
	return connectors.NewList(fileRecords(files)), nil
}

func (c *Connector) list(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.FileListParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	q := "trashed = false"
	if p.FolderID != "" {
		q = Quote(p.FolderID) + " in parents and " + q
	}
	files, err := c.client(creds).ListFiles(ctx, creds, q, "modifiedTime desc", domain.PageSize(p.Limit))
	if err != nil {
		return nil, err
	}
	return connectors.NewList(fileRecords(files)), nil
}

func (c *Connector) get(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error) {
	var p domain.FileGetParams
	if err := decode(params, &p, "file_id"); err != nil {
		return nil, err
	}
	client := c.client(creds)
	f, err := client.GetFile(ctx, creds, p.FileID)
	if err != nil {
		return nil, err
	}
	rec := fileRecord(f)
	if !p.IncludeContent {
		return rec, nil
	}

	text, ok, err := client.Content(ctx, creds, f)
	if err != nil {
		return nil, err
	}
	if !ok {
		rec.Extra["content_note"] = "No text export is available for " + f.MimeType
		return rec, nil
	}
	capped := domain.TruncateContent(text)
	rec.Extra["content"] = capped
	rec.Extra["truncated"] = len(capped) < len(text)
	return rec, nil
}

func decode(params map[string]any, out any, required ...string) error {
	if err := connectors.DecodeParams(params, out); err != nil {
		return err
	}
	return connectors.Require(out, required...)
}

func fileRecords(files []*File) []connectors.Record {
	out := make([]connectors.Record, 0, len(files))
	for _, f := range files {
		out = append(out, fileRecord(f))
	}
	return out
}

func fileRecord(f *File) connectors.Record {
	extra := map[string]any{"mime_type": f.MimeType}
	if f.Size != "" {
		extra["size"] = f.Size
	}
	if len(f.Owners) > 0 {
		extra["owner"] = f.Owners[0].DisplayName
	}
	if f.MimeType == MimeFolder {
		extra["folder"] = true
	}
	return connectors.Record{
		ID:          f.ID,
		Title:       f.Name,
		Description: f.Description,
		URL:         f.WebViewLink,
		CreatedAt:   connectors.FormatTime(f.CreatedTime),
		UpdatedAt:   connectors.FormatTime(f.ModifiedTime),
		Extra:       extra,
	}
}
