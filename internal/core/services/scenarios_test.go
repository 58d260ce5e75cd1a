package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
)

// world is the per-scenario state of the feature suite.
type world struct {
	store      *mocks.MockUserConnectorStore
	docs       *mocks.MockDocumentStore
	connectors map[domain.ConnectorType]*mocks.MockConnector
	router     *Router
	llm        *mocks.MockLLMService
	documents  driving.DocumentService

	result  *domain.Result
	uploads []*domain.IngestReport
}

func newWorld() (*world, error) {
	catalog, err := NewCatalog()
	if err != nil {
		return nil, err
	}
	w := &world{
		store:      mocks.NewMockUserConnectorStore(),
		docs:       mocks.NewMockDocumentStore(),
		connectors: make(map[domain.ConnectorType]*mocks.MockConnector),
	}
	registry := mocks.NewMockConnectorRegistry()
	for _, ct := range domain.AllConnectors() {
		c := mocks.NewMockConnector(ct)
		w.connectors[ct] = c
		registry.Register(c)
	}
	resolver := NewCredentialResolver(CredentialResolverConfig{Store: w.store})
	w.router = NewRouter(RouterConfig{Catalog: catalog, Registry: registry, Resolver: resolver})
	w.documents = NewDocumentService(DocumentServiceConfig{DocumentStore: w.docs, ConnectorStore: w.store})

	// The model calls the first count tool offered, then answers.
	w.llm = mocks.NewMockLLMService("There are 42 incidents.")
	w.llm.CompleteFn = func(req driven.ChatRequest) (*driven.ChatCompletion, error) {
		for _, tool := range req.Tools {
			if tool.Action == domain.ActionCount {
				return mocks.ToolCallCompletion(domain.ToolCall{ID: "call-1", Name: tool.Name, Arguments: "{}"}), nil
			}
		}
		return mocks.TextCompletion("I cannot count that."), nil
	}
	return w, nil
}

func (w *world) hasConnectedServiceNow(user string) error {
	return w.store.Save(context.Background(), &domain.UserConnector{
		UserID:      user,
		ConnectorID: domain.ConnectorServiceNow,
		Config: map[string]string{
			domain.ConfigBaseURL:  "https://acme.service-now.com",
			domain.ConfigUsername: "agent",
			domain.ConfigPassword: "secret",
		},
		Status: domain.ConnectorStatusConnected,
	})
}

func (w *world) serviceNowReports(n int) error {
	w.connectors[domain.ConnectorServiceNow].ExecuteFn = func(ctx context.Context, action string, params map[string]any, creds *domain.Credentials) *domain.Result {
		if action != domain.ActionCount {
			return domain.Fail(fmt.Errorf("%w: %s", domain.ErrUnknownAction, action))
		}
		return domain.OK(map[string]int{"count": n})
	}
	return nil
}

func (w *world) asks(user, text string) error {
	svc := NewConversationService(ConversationServiceConfig{LLM: w.llm, Tools: w.router})
	rows, err := w.store.List(context.Background(), user)
	if err != nil {
		return err
	}
	uc := domain.UserContext{UserID: user}
	for _, row := range rows {
		uc.Sources = append(uc.Sources, row.ToConnectedSource())
	}

	reply, err := svc.Start(context.Background(), uc, driving.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: text}},
	})
	if err != nil {
		return err
	}
	defer reply.Close()
	return reply.Relay(func([]byte) error { return nil })
}

func (w *world) toolCalledTimes(name string, n int) error {
	desc, ok := mustCatalog().Lookup(name)
	if !ok {
		return fmt.Errorf("no tool %q", name)
	}
	calls := 0
	for _, c := range w.connectors[desc.Connector].Calls() {
		if c.Action == desc.Action {
			calls++
		}
	}
	if calls != n {
		return fmt.Errorf("expected %d calls to %s, got %d", n, name, calls)
	}
	return nil
}

func (w *world) finalAnswerFromToolResult(want string) error {
	if len(w.llm.StreamRequests) != 1 {
		return fmt.Errorf("expected one final pass, got %d", len(w.llm.StreamRequests))
	}
	for _, m := range w.llm.StreamRequests[0].Messages {
		if m.Role == domain.RoleTool && strings.Contains(m.Content, want) {
			return nil
		}
	}
	return fmt.Errorf("no tool message containing %q", want)
}

func (w *world) finalPassOffersNoTools() error {
	if n := len(w.llm.StreamRequests[0].Tools); n != 0 {
		return fmt.Errorf("final pass offered %d tools", n)
	}
	return nil
}

func (w *world) hasNoConnectors(user string) error {
	rows, err := w.store.List(context.Background(), user)
	if err != nil {
		return err
	}
	if len(rows) != 0 {
		return fmt.Errorf("expected no connectors, got %d", len(rows))
	}
	return nil
}

func (w *world) callsTool(user, name, args string) error {
	w.result = w.router.Dispatch(context.Background(), domain.UserContext{UserID: user}, domain.ToolCall{
		ID: "call-1", Name: name, Arguments: args,
	})
	return nil
}

func (w *world) resultIsError(kind string) error {
	if w.result.Success {
		return fmt.Errorf("expected failure, got success")
	}
	if string(w.result.Kind) != kind {
		return fmt.Errorf("expected %s error, got %s (%s)", kind, w.result.Kind, w.result.Error)
	}
	return nil
}

func (w *world) hintMentions(text string) error {
	if !strings.Contains(w.result.Hint, text) {
		return fmt.Errorf("hint %q does not mention %q", w.result.Hint, text)
	}
	return nil
}

func (w *world) githubNotCalled() error {
	if n := len(w.connectors[domain.ConnectorGitHub].Calls()); n != 0 {
		return fmt.Errorf("expected no GitHub calls, got %d", n)
	}
	return nil
}

func (w *world) upload(user, filename, content string) error {
	report, err := w.documents.Upload(context.Background(), user, driving.UploadRequest{
		Filename: filename,
		Data:     []byte(content),
	})
	if err != nil {
		return err
	}
	w.uploads = append(w.uploads, report)
	return nil
}

func (w *world) uploadInserted(i, n int) error {
	if got := w.uploads[i-1].Inserted; got != n {
		return fmt.Errorf("upload %d inserted %d, want %d", i, got, n)
	}
	return nil
}

func (w *world) uploadSkipped(i, n int) error {
	if got := w.uploads[i-1].Skipped; got != n {
		return fmt.Errorf("upload %d skipped %d, want %d", i, got, n)
	}
	return nil
}

func (w *world) indexHolds(n int) error {
	got, err := w.docs.Count(context.Background(), "")
	if err != nil {
		return err
	}
	if got != n {
		return fmt.Errorf("index holds %d documents, want %d", got, n)
	}
	return nil
}

func mustCatalog() *Catalog {
	c, err := NewCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

func initializeScenario(sc *godog.ScenarioContext) {
	var w *world
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		var err error
		w, err = newWorld()
		return ctx, err
	})

	sc.Step(`^"([^"]*)" has connected ServiceNow$`, func(user string) error { return w.hasConnectedServiceNow(user) })
	sc.Step(`^ServiceNow reports (\d+) incidents$`, func(n int) error { return w.serviceNowReports(n) })
	sc.Step(`^"([^"]*)" asks "([^"]*)"$`, func(user, text string) error { return w.asks(user, text) })
	sc.Step(`^the tool "([^"]*)" is called (\d+) times?$`, func(name string, n int) error { return w.toolCalledTimes(name, n) })
	sc.Step(`^the final answer is written from a tool result containing "([^"]*)"$`, func(s string) error { return w.finalAnswerFromToolResult(s) })
	sc.Step(`^the final pass offers no tools$`, func() error { return w.finalPassOffersNoTools() })

	sc.Step(`^"([^"]*)" has no connectors$`, func(user string) error { return w.hasNoConnectors(user) })
	sc.Step(`^"([^"]*)" calls the tool "([^"]*)" with arguments '([^']*)'$`, func(user, name, args string) error { return w.callsTool(user, name, args) })
	sc.Step(`^the result is a "([^"]*)" error$`, func(kind string) error { return w.resultIsError(kind) })
	sc.Step(`^the hint mentions "([^"]*)"$`, func(s string) error { return w.hintMentions(s) })
	sc.Step(`^the GitHub adapter was not called$`, func() error { return w.githubNotCalled() })

	sc.Step(`^"([^"]*)" uploads "([^"]*)" containing "([^"]*)"$`, func(user, file, content string) error { return w.upload(user, file, content) })
	sc.Step(`^upload (\d+) inserted (\d+) documents?$`, func(i, n int) error { return w.uploadInserted(i, n) })
	sc.Step(`^upload (\d+) skipped (\d+) documents?$`, func(i, n int) error { return w.uploadSkipped(i, n) })
	sc.Step(`^the index holds (\d+) documents?$`, func(n int) error { return w.indexHolds(n) })
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "dispatch",
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"testdata/features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("feature scenarios failed")
	}
}
