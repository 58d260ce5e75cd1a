package gdrive

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors"
	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// DefaultAPIBaseURL is the Drive v3 API.
const DefaultAPIBaseURL = "https://www.googleapis.com/drive/v3"

// Google Workspace MIME types with a text export.
const (
	MimeDocument     = "application/vnd.google-apps.document"
	MimeSpreadsheet  = "application/vnd.google-apps.spreadsheet"
	MimePresentation = "application/vnd.google-apps.presentation"
	MimeFolder       = "application/vnd.google-apps.folder"
)

// exportTypes maps Workspace types to the export format read as text.
var exportTypes = map[string]string{
	MimeDocument:     "text/plain",
	MimeSpreadsheet:  "text/csv",
	MimePresentation: "text/plain",
}

const fileFields = "id,name,mimeType,description,webViewLink,createdTime,modifiedTime,size,owners(displayName,emailAddress)"

// File is Drive file metadata.
type File struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	Description  string    `json:"description"`
	WebViewLink  string    `json:"webViewLink"`
	CreatedTime  time.Time `json:"createdTime"`
	ModifiedTime time.Time `json:"modifiedTime"`
	Size         string    `json:"size"`
	Owners       []struct {
		DisplayName  string `json:"displayName"`
		EmailAddress string `json:"emailAddress"`
	} `json:"owners"`
}

// About is the authenticated Drive user.
type About struct {
	User struct {
		DisplayName  string `json:"displayName"`
		EmailAddress string `json:"emailAddress"`
	} `json:"user"`
}

// Client provides Drive API operations.
type Client struct {
	caller  *connectors.Caller
	baseURL string
}

// NewClient creates a Drive client.
func NewClient(caller *connectors.Caller, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &Client{caller: caller, baseURL: strings.TrimRight(baseURL, "/")}
}

// About returns the authenticated user.
func (c *Client) About(ctx context.Context, creds *domain.Credentials) (*About, error) {
	var about About
	err := c.caller.Do(ctx, creds, connectors.Request{
		URL:   c.baseURL + "/about",
		Query: url.Values{"fields": {"user(displayName,emailAddress)"}},
	}, &about)
	if err != nil {
		return nil, err
	}
	return &about, nil
}

// ListFiles runs a files.list query. orderBy may be empty.
func (c *Client) ListFiles(ctx context.Context, creds *domain.Credentials, q, orderBy string, limit int) ([]*File, error) {
	params := url.Values{
		"q":                         {q},
		"pageSize":                  {strconv.Itoa(limit)},
		"fields":                    {"files(" + fileFields + ")"},
		"supportsAllDrives":         {"true"},
		"includeItemsFromAllDrives": {"true"},
	}
	if orderBy != "" {
		params.Set("orderBy", orderBy)
	}
	var resp struct {
		Files []*File `json:"files"`
	}
	if err := c.caller.Do(ctx, creds, connectors.Request{URL: c.baseURL + "/files", Query: params}, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// GetFile returns file metadata.
func (c *Client) GetFile(ctx context.Context, creds *domain.Credentials, id string) (*File, error) {
	var f File
	err := c.caller.Do(ctx, creds, connectors.Request{
		URL:   c.baseURL + "/files/" + url.PathEscape(id),
		Query: url.Values{"fields": {fileFields}, "supportsAllDrives": {"true"}},
	}, &f)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Content returns the text of f, exporting Workspace files. ok is false
// when the file type has no text form.
func (c *Client) Content(ctx context.Context, creds *domain.Credentials, f *File) (text string, ok bool, err error) {
	req := connectors.Request{Content: true}
	switch {
	case exportTypes[f.MimeType] != "":
		req.URL = c.baseURL + "/files/" + url.PathEscape(f.ID) + "/export"
		req.Query = url.Values{"mimeType": {exportTypes[f.MimeType]}}
	case isText(f.MimeType):
		req.URL = c.baseURL + "/files/" + url.PathEscape(f.ID)
		req.Query = url.Values{"alt": {"media"}, "supportsAllDrives": {"true"}}
	default:
		return "", false, nil
	}
	body, err := c.caller.Raw(ctx, creds, req)
	if err != nil {
		return "", false, err
	}
	return string(body), true, nil
}

func isText(mimeType string) bool {
	switch {
	case strings.HasPrefix(mimeType, "text/"):
		return true
	case mimeType == "application/json", mimeType == "application/xml":
		return true
	}
	return false
}

// Quote renders s as a Drive query string literal.
func Quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
