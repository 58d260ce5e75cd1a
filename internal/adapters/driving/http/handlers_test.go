package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/custodia-labs/sercha-dispatch/docs"
	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
)

// Mock services for testing

type mockAuthService struct {
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	return nil, domain.ErrTokenInvalid
}

func (m *mockAuthService) IssueToken(ctx context.Context, userID, email string) (string, error) {
	return "token-" + userID, nil
}

type mockConnectorService struct {
	executeFn func(userID string, req driving.ExecuteRequest) *domain.Result
	rows      []*domain.UserConnector
}

func (m *mockConnectorService) Execute(ctx context.Context, userID string, req driving.ExecuteRequest) *domain.Result {
	if m.executeFn != nil {
		return m.executeFn(userID, req)
	}
	return domain.OK(nil)
}

func (m *mockConnectorService) Connections(ctx context.Context, userID string) ([]*domain.UserConnector, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	return m.rows, nil
}

type mockOAuthService struct {
	lastUser string
	lastReq  driving.OAuthRequest
	err      error
}

func (m *mockOAuthService) Handle(ctx context.Context, userID string, req driving.OAuthRequest) (*driving.OAuthResponse, error) {
	m.lastUser, m.lastReq = userID, req
	if m.err != nil {
		return nil, m.err
	}
	return &driving.OAuthResponse{Success: true, ConnectorID: domain.ConnectorType(req.ConnectorID), Status: domain.ConnectorStatusConnected}, nil
}

type mockToolService struct {
	lastSources []domain.ConnectedSource
}

func (m *mockToolService) Catalog() []domain.ToolDescriptor { return nil }

func (m *mockToolService) Available(sources []domain.ConnectedSource) []domain.ToolDescriptor {
	m.lastSources = sources
	var out []domain.ToolDescriptor
	for _, s := range sources {
		out = append(out, domain.ToolDescriptor{Name: string(s.Type) + "_search", Connector: s.Type, Action: domain.ActionSearch})
	}
	return out
}

func (m *mockToolService) Dispatch(ctx context.Context, user domain.UserContext, call domain.ToolCall) *domain.Result {
	return domain.OK(nil)
}

type mockChatReply struct {
	events   []string
	relayErr error
	closed   bool
}

func (r *mockChatReply) ConversationID() string { return "conv-1" }

func (r *mockChatReply) ToolResults() []domain.ToolResult { return nil }

func (r *mockChatReply) Relay(emit func(raw []byte) error) error {
	for _, ev := range r.events {
		if err := emit([]byte(ev)); err != nil {
			return err
		}
	}
	return r.relayErr
}

func (r *mockChatReply) Close() error {
	r.closed = true
	return nil
}

type mockChatService struct {
	startErr error
	reply    *mockChatReply
	lastUser domain.UserContext
	history  map[string][]domain.Message
}

func (m *mockChatService) Start(ctx context.Context, user domain.UserContext, req driving.ChatRequest) (driving.ChatReply, error) {
	m.lastUser = user
	if m.startErr != nil {
		return nil, m.startErr
	}
	return m.reply, nil
}

func (m *mockChatService) History(ctx context.Context, userID, conversationID string) ([]domain.Message, error) {
	msgs, ok := m.history[userID+"/"+conversationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return msgs, nil
}

type mockDocumentService struct {
	lastUpload driving.UploadRequest
	docs       map[string]*domain.Document
}

func (m *mockDocumentService) Ingest(ctx context.Context, userID string, items []domain.IngestItem) (*domain.IngestReport, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no documents to ingest", domain.ErrInvalidInput)
	}
	return &domain.IngestReport{Inserted: len(items)}, nil
}

func (m *mockDocumentService) Upload(ctx context.Context, userID string, req driving.UploadRequest) (*domain.IngestReport, error) {
	m.lastUpload = req
	return &domain.IngestReport{Inserted: 1, IDs: []string{"doc-1"}}, nil
}

func (m *mockDocumentService) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	return &domain.SearchResult{Query: q.Query, Mode: domain.SearchModeFullText}, nil
}

func (m *mockDocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	if d, ok := m.docs[id]; ok {
		return d, nil
	}
	return nil, domain.ErrNotFound
}

type mockFeedbackService struct{}

func (mockFeedbackService) Record(ctx context.Context, userID string, req driving.FeedbackRequest) (*domain.Feedback, error) {
	if req.Rating != domain.RatingUp && req.Rating != domain.RatingDown {
		return nil, fmt.Errorf("%w: rating must be up or down", domain.ErrInvalidInput)
	}
	return &domain.Feedback{ID: "fb-1", UserID: userID, Rating: req.Rating}, nil
}

func (mockFeedbackService) Summary(ctx context.Context, userID string) (*domain.FeedbackSummary, error) {
	return &domain.FeedbackSummary{Up: 2, Down: 1}, nil
}

type mockSpeechService struct {
	err error
}

func (m mockSpeechService) Synthesize(ctx context.Context, userID string, req driving.SpeechRequest) (*driven.SpeechAudio, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &driven.SpeechAudio{Body: io.NopCloser(strings.NewReader("ID3audio")), ContentType: "audio/mpeg"}, nil
}

type failingPinger struct{ err error }

func (p failingPinger) Ping(ctx context.Context) error { return p.err }

type testDeps struct {
	connectors *mockConnectorService
	oauth      *mockOAuthService
	tools      *mockToolService
	chat       *mockChatService
	documents  *mockDocumentService
}

func newTestServer(pingers map[string]Pinger) (*Server, *testDeps) {
	deps := &testDeps{
		connectors: &mockConnectorService{},
		oauth:      &mockOAuthService{},
		tools:      &mockToolService{},
		chat:       &mockChatService{reply: &mockChatReply{}},
		documents:  &mockDocumentService{docs: map[string]*domain.Document{}},
	}
	cfg := DefaultConfig()
	cfg.Version = "1.2.3"
	s := NewServer(cfg, Services{
		Auth:       tokenAuth(),
		Chat:       deps.chat,
		Connectors: deps.connectors,
		OAuth:      deps.oauth,
		Tools:      deps.tools,
		Documents:  deps.documents,
		Feedback:   mockFeedbackService{},
		Speech:     mockSpeechService{},
	}, pingers)
	return s, deps
}

func do(s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

// Health endpoint tests

func TestHandleSwaggerDoc(t *testing.T) {
	s, _ := newTestServer(nil)
	rr := do(s, http.MethodGet, "/swagger/doc.json", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	doc := decode[map[string]any](t, rr)
	paths, ok := doc["paths"].(map[string]any)
	if !ok {
		t.Fatalf("expected paths object, got %v", doc["paths"])
	}
	if _, ok := paths["/api/v1/chat"]; !ok {
		t.Error("expected /api/v1/chat in the document")
	}
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(nil)
	rr := do(s, "GET", "/health", "", "")

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if resp := decode[StatusResponse](t, rr); resp.Status != "ok" {
		t.Errorf("expected status 'ok', got %q", resp.Status)
	}
}

func TestHandleReady(t *testing.T) {
	s, _ := newTestServer(map[string]Pinger{"postgres": failingPinger{}, "redis": nil})
	if rr := do(s, "GET", "/ready", "", ""); rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	s, _ = newTestServer(map[string]Pinger{"postgres": failingPinger{err: errors.New("connection refused")}})
	rr := do(s, "GET", "/ready", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
	resp := decode[ReadyResponse](t, rr)
	if resp.Checks["postgres"] != "unavailable" {
		t.Errorf("expected postgres unavailable, got %v", resp.Checks)
	}
}

func TestHandleVersion(t *testing.T) {
	s, _ := newTestServer(nil)
	rr := do(s, "GET", "/version", "", "")
	if resp := decode[VersionResponse](t, rr); resp.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", resp.Version)
	}
}

func TestUnregisteredRoutesForNilServices(t *testing.T) {
	s := NewServer(DefaultConfig(), Services{}, nil)
	if rr := do(s, "POST", "/api/v1/chat", `{}`, ""); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

// Connector endpoint tests

func TestHandleExecute(t *testing.T) {
	s, deps := newTestServer(nil)
	deps.connectors.executeFn = func(userID string, req driving.ExecuteRequest) *domain.Result {
		switch req.Action {
		case "testConnection":
			return domain.OK(map[string]string{"user": userID})
		case "missing":
			return domain.Fail(fmt.Errorf("%w: servicenow does not support %q", domain.ErrUnknownAction, req.Action))
		case "limited":
			return domain.Fail(domain.ErrUpstreamRateLimit)
		}
		return domain.Fail(domain.WithHint(fmt.Errorf("%w: ServiceNow is not connected", domain.ErrNotConfigured), "Please connect ServiceNow in settings."))
	}

	tests := []struct {
		name   string
		body   string
		token  string
		status int
		check  func(t *testing.T, res domain.Result)
	}{
		{
			name:   "success with user",
			body:   `{"connector":"servicenow","action":"testConnection"}`,
			token:  "good",
			status: http.StatusOK,
			check: func(t *testing.T, res domain.Result) {
				if !res.Success {
					t.Errorf("expected success, got %+v", res)
				}
				if data, _ := res.Data.(map[string]any); data["user"] != "user-1" {
					t.Errorf("expected user-1, got %v", res.Data)
				}
			},
		},
		{
			name:   "unknown action",
			body:   `{"connector":"servicenow","action":"missing"}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, res domain.Result) {
				if res.Kind != domain.ErrorKindUnknownAction {
					t.Errorf("expected unknown_action, got %q", res.Kind)
				}
			},
		},
		{
			name:   "rate limited",
			body:   `{"connector":"servicenow","action":"limited"}`,
			status: http.StatusTooManyRequests,
		},
		{
			name:   "not configured carries hint",
			body:   `{"connector":"servicenow","action":"getIncidents"}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, res domain.Result) {
				if res.Hint == "" {
					t.Error("expected a hint")
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(s, "POST", "/api/v1/connectors/execute", tt.body, tt.token)
			if rr.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			if tt.check != nil {
				tt.check(t, decode[domain.Result](t, rr))
			}
		})
	}
}

func TestHandleExecute_BadRequests(t *testing.T) {
	s, _ := newTestServer(nil)

	for name, body := range map[string]string{
		"invalid json":   `{"connector":`,
		"missing action": `{"connector":"github"}`,
	} {
		t.Run(name, func(t *testing.T) {
			if rr := do(s, "POST", "/api/v1/connectors/execute", body, ""); rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestHandleListConnections(t *testing.T) {
	s, deps := newTestServer(nil)
	deps.connectors.rows = []*domain.UserConnector{{UserID: "user-1", ConnectorID: domain.ConnectorGitHub, Status: domain.ConnectorStatusConnected}}

	if rr := do(s, "GET", "/api/v1/connectors", "", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}

	rr := do(s, "GET", "/api/v1/connectors", "", "good")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if resp := decode[ConnectionsResponse](t, rr); len(resp.Connectors) != 1 {
		t.Errorf("expected 1 connector, got %d", len(resp.Connectors))
	}
}

func TestHandleOAuth(t *testing.T) {
	s, deps := newTestServer(nil)

	if rr := do(s, "POST", "/api/v1/oauth", `{"action":"get-token","connectorId":"github"}`, ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rr.Code)
	}

	rr := do(s, "POST", "/api/v1/oauth", `{"action":"save-tokens","connectorId":"google_drive","accessToken":"ya29"}`, "good")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if deps.oauth.lastUser != "user-1" || deps.oauth.lastReq.AccessToken != "ya29" {
		t.Errorf("unexpected call user=%q req=%+v", deps.oauth.lastUser, deps.oauth.lastReq)
	}

	deps.oauth.err = fmt.Errorf("%w: google_drive is not connected", domain.ErrNotFound)
	if rr := do(s, "POST", "/api/v1/oauth", `{"action":"get-token","connectorId":"google_drive"}`, "good"); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestHandleTools_MergesStoredConnectors(t *testing.T) {
	s, deps := newTestServer(nil)
	deps.connectors.rows = []*domain.UserConnector{
		{UserID: "user-1", ConnectorID: domain.ConnectorGitHub, Status: domain.ConnectorStatusConnected},
		{UserID: "user-1", ConnectorID: domain.ConnectorSlack, Status: domain.ConnectorStatusDisconnected},
		{UserID: "user-1", ConnectorID: domain.ConnectorServiceNow, Status: domain.ConnectorStatusConnected},
	}
	body := `{"connectedSources":[{"id":"s1","name":"ServiceNow","type":"servicenow","config":{"base_url":"https://x.service-now.com"}}]}`

	rr := do(s, "POST", "/api/v1/tools", body, "good")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decode[ToolsResponse](t, rr)
	if len(resp.Tools) != 2 {
		t.Fatalf("expected 2 tools, got %+v", resp.Tools)
	}
	if deps.tools.lastSources[0].Config["base_url"] != "https://x.service-now.com" {
		t.Error("request source should win over the stored row")
	}

	rr = do(s, "POST", "/api/v1/tools", "", "")
	if resp := decode[ToolsResponse](t, rr); resp.Tools == nil || len(resp.Tools) != 0 {
		t.Errorf("expected empty tool list, got %v", resp.Tools)
	}
}

// Chat endpoint tests

func TestHandleChat_Streams(t *testing.T) {
	s, deps := newTestServer(nil)
	deps.chat.reply = &mockChatReply{events: []string{`data: {"choices":[{"delta":{"content":"Hi"}}]}`, "data: [DONE]"}}

	rr := do(s, "POST", "/api/v1/chat", `{"messages":[{"role":"user","content":"hello"}]}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected event stream, got %q", ct)
	}
	if id := rr.Header().Get("X-Conversation-Id"); id != "conv-1" {
		t.Errorf("expected conversation id header, got %q", id)
	}
	want := "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\ndata: [DONE]\n\n"
	if rr.Body.String() != want {
		t.Errorf("unexpected stream %q", rr.Body.String())
	}
	if !deps.chat.reply.closed {
		t.Error("reply was not closed")
	}
}

func TestHandleChat_ErrorsBeforeStreaming(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", fmt.Errorf("%w: messages are required", domain.ErrInvalidInput), http.StatusBadRequest, "invalid input: messages are required"},
		{"rate limit", domain.ErrUpstreamRateLimit, http.StatusTooManyRequests, domain.ErrUpstreamRateLimit.Error()},
		{"quota", domain.ErrUpstreamQuota, http.StatusPaymentRequired, domain.ErrUpstreamQuota.Error()},
		{"internal", errors.New("database exploded"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, deps := newTestServer(nil)
			deps.chat.startErr = tt.err

			rr := do(s, "POST", "/api/v1/chat", `{"messages":[{"role":"user","content":"hello"}]}`, "")
			if rr.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON error, got %q", ct)
			}
			if resp := decode[ErrorResponse](t, rr); resp.Error != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, resp.Error)
			}
		})
	}
}

func TestHandleChat_StreamFailureEmitsErrorEvent(t *testing.T) {
	s, deps := newTestServer(nil)
	deps.chat.reply = &mockChatReply{events: []string{"data: {}"}, relayErr: errors.New("read stream: unexpected EOF")}

	rr := do(s, "POST", "/api/v1/chat", `{"messages":[{"role":"user","content":"hello"}]}`, "")
	if !strings.Contains(rr.Body.String(), "event: error\ndata: {\"error\":\"stream interrupted\"}") {
		t.Errorf("missing error event in %q", rr.Body.String())
	}
}

func TestHandleChat_UsesStoredConnectors(t *testing.T) {
	s, deps := newTestServer(nil)
	deps.connectors.rows = []*domain.UserConnector{{UserID: "user-1", ConnectorID: domain.ConnectorConfluence, Status: domain.ConnectorStatusConnected}}

	do(s, "POST", "/api/v1/chat", `{"messages":[{"role":"user","content":"find the wiki page"}]}`, "good")

	if deps.chat.lastUser.UserID != "user-1" {
		t.Errorf("expected user-1, got %q", deps.chat.lastUser.UserID)
	}
	if _, ok := deps.chat.lastUser.Source(domain.ConnectorConfluence); !ok {
		t.Error("stored connector missing from user context")
	}
}

func TestHandleConversationMessages(t *testing.T) {
	s, deps := newTestServer(nil)
	deps.chat.history = map[string][]domain.Message{
		"user-1/conv-1": {{Role: domain.RoleUser, Content: "hi"}, {Role: domain.RoleAssistant, Content: "hello"}},
	}

	if rr := do(s, "GET", "/api/v1/conversations/conv-1/messages", "", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}

	rr := do(s, "GET", "/api/v1/conversations/conv-1/messages", "", "good")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if resp := decode[MessagesResponse](t, rr); len(resp.Messages) != 2 || resp.ConversationID != "conv-1" {
		t.Errorf("unexpected response %+v", resp)
	}

	if rr := do(s, "GET", "/api/v1/conversations/other/messages", "", "good"); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

// Document endpoint tests

func TestHandleIngestDocuments(t *testing.T) {
	s, _ := newTestServer(nil)

	rr := do(s, "POST", "/api/v1/documents", `{"documents":[{"connector_id":"documents","source_id":"a","title":"A","content":"a"}]}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if report := decode[domain.IngestReport](t, rr); report.Inserted != 1 {
		t.Errorf("expected 1 inserted, got %d", report.Inserted)
	}

	if rr := do(s, "POST", "/api/v1/documents", `{"documents":[]}`, ""); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestHandleUploadDocument(t *testing.T) {
	s, deps := newTestServer(nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.md")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("# Notes\nbody"))
	mw.WriteField("connectorId", "documents")
	mw.WriteField("metadata", `{"team":"it"}`)
	mw.Close()

	req := httptest.NewRequest("POST", "/api/v1/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	got := deps.documents.lastUpload
	if got.Filename != "notes.md" || string(got.Data) != "# Notes\nbody" || got.Metadata["team"] != "it" {
		t.Errorf("unexpected upload %+v", got)
	}
}

func TestHandleUploadDocument_MissingFile(t *testing.T) {
	s, _ := newTestServer(nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("connectorId", "documents")
	mw.Close()

	req := httptest.NewRequest("POST", "/api/v1/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestHandleSearchAndGetDocument(t *testing.T) {
	s, deps := newTestServer(nil)
	deps.documents.docs["doc-1"] = &domain.Document{ID: "doc-1", Title: "VPN guide"}

	rr := do(s, "POST", "/api/v1/documents/search", `{"query":"vpn"}`, "")
	if res := decode[domain.SearchResult](t, rr); res.Query != "vpn" {
		t.Errorf("unexpected search result %+v", res)
	}

	rr = do(s, "GET", "/api/v1/documents/doc-1", "", "")
	if doc := decode[domain.Document](t, rr); doc.Title != "VPN guide" {
		t.Errorf("unexpected document %+v", doc)
	}

	if rr := do(s, "GET", "/api/v1/documents/missing", "", ""); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

// Feedback and speech endpoint tests

func TestHandleFeedback(t *testing.T) {
	s, _ := newTestServer(nil)

	if rr := do(s, "POST", "/api/v1/feedback", `{"rating":"up"}`, ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}

	rr := do(s, "POST", "/api/v1/feedback", `{"rating":"up","messageId":"m1"}`, "good")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if fb := decode[domain.Feedback](t, rr); fb.UserID != "user-1" {
		t.Errorf("expected user-1, got %q", fb.UserID)
	}

	if rr := do(s, "POST", "/api/v1/feedback", `{"rating":"meh"}`, "good"); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}

	rr = do(s, "GET", "/api/v1/feedback/summary", "", "good")
	if sum := decode[domain.FeedbackSummary](t, rr); sum.Up != 2 || sum.Down != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}
}

func TestHandleSpeech(t *testing.T) {
	s, _ := newTestServer(nil)

	rr := do(s, "POST", "/api/v1/speech", `{"text":"hello"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("expected audio/mpeg, got %q", ct)
	}
	if rr.Body.String() != "ID3audio" {
		t.Errorf("unexpected body %q", rr.Body.String())
	}

	s = NewServer(DefaultConfig(), Services{Speech: mockSpeechService{err: domain.ErrUpstreamQuota}}, nil)
	if rr := do(s, "POST", "/api/v1/speech", `{"text":"hello"}`, ""); rr.Code != http.StatusPaymentRequired {
		t.Errorf("expected 402, got %d", rr.Code)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.ErrValidation, http.StatusBadRequest},
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrNotConfigured, http.StatusBadRequest},
		{domain.ErrAuth, http.StatusBadRequest},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrTokenExpired, http.StatusUnauthorized},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrUnknownTool, http.StatusNotFound},
		{domain.ErrUpstreamRateLimit, http.StatusTooManyRequests},
		{domain.ErrUpstreamQuota, http.StatusPaymentRequired},
		{domain.ErrUpstreamAPI, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("load: %w", domain.ErrNotFound), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusForError(tt.err); got != tt.status {
				t.Errorf("expected %d, got %d", tt.status, got)
			}
		})
	}
}
