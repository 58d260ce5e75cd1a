package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Config{BaseURL: srv.URL, APIKey: "sk-test", Model: "test-model"})
	c.backoff = time.Millisecond
	return c
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})
	if c.baseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %s", c.baseURL)
	}
	if c.Model() != DefaultModel {
		t.Errorf("expected default model, got %s", c.Model())
	}
	if c.completeTimeout != 60*time.Second || c.streamTimeout != 300*time.Second {
		t.Errorf("unexpected timeouts %s/%s", c.completeTimeout, c.streamTimeout)
	}
	if c.maxRetries != DefaultMaxRetries {
		t.Errorf("expected %d retries, got %d", DefaultMaxRetries, c.maxRetries)
	}
	if New(Config{MaxRetries: -1}).maxRetries != 0 {
		t.Error("negative MaxRetries should disable retries")
	}
}

func TestComplete_WireFormat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected authorization %q", got)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req["model"] != "test-model" || req["tool_choice"] != "auto" {
			t.Errorf("unexpected model or tool_choice: %v %v", req["model"], req["tool_choice"])
		}
		if _, ok := req["stream"]; ok {
			t.Error("non-streaming request must not set stream")
		}
		msgs := req["messages"].([]any)
		assistant := msgs[1].(map[string]any)
		if assistant["content"] != nil {
			t.Errorf("tool-call-only assistant content should be null, got %v", assistant["content"])
		}
		call := assistant["tool_calls"].([]any)[0].(map[string]any)
		if call["type"] != "function" || call["function"].(map[string]any)["name"] != "github_search_issues" {
			t.Errorf("unexpected tool call %v", call)
		}
		tool := msgs[2].(map[string]any)
		if tool["tool_call_id"] != "call_1" {
			t.Errorf("unexpected tool_call_id %v", tool["tool_call_id"])
		}
		fn := req["tools"].([]any)[0].(map[string]any)["function"].(map[string]any)
		if fn["name"] != "servicenow_count_incidents" {
			t.Errorf("unexpected tool %v", fn["name"])
		}

		_, _ = w.Write([]byte(`{"model":"test-model-2026","choices":[{"finish_reason":"tool_calls","message":{"role":"assistant","content":null,
			"tool_calls":[{"id":"call_2","type":"function","function":{"name":"servicenow_count_incidents","arguments":"{}"}}]}}]}`))
	})

	got, err := c.Complete(context.Background(), driven.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "issues?"},
			{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{{ID: "call_1", Name: "github_search_issues", Arguments: `{"query":"x"}`}}},
			{Role: domain.RoleTool, ToolCallID: "call_1", Content: `{"count":0}`},
		},
		Tools: []domain.ToolDescriptor{{Name: "servicenow_count_incidents", Parameters: map[string]any{"type": "object"}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FinishReason != "tool_calls" || got.Model != "test-model-2026" {
		t.Errorf("unexpected completion %+v", got)
	}
	if len(got.Message.ToolCalls) != 1 || got.Message.ToolCalls[0].Name != "servicenow_count_incidents" {
		t.Errorf("unexpected tool calls %+v", got.Message.ToolCalls)
	}
}

func TestComplete_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","code":"rate_limit_exceeded"}}`, domain.ErrUpstreamRateLimit},
		{"quota via 429", http.StatusTooManyRequests, `{"error":{"message":"You exceeded your quota","code":"insufficient_quota"}}`, domain.ErrUpstreamQuota},
		{"payment required", http.StatusPaymentRequired, `{}`, domain.ErrUpstreamQuota},
		{"unauthorized", http.StatusUnauthorized, `{}`, domain.ErrAuth},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"bad tool schema"}}`, domain.ErrUpstreamAPI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Complete(context.Background(), driven.ChatRequest{})
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v, got %v", tt.sentinel, err)
			}
			if n := atomic.LoadInt32(&calls); n != 1 {
				t.Errorf("4xx must not be retried, got %d calls", n)
			}
		})
	}
}

func TestComplete_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}]}`))
	})

	got, err := c.Complete(context.Background(), driven.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Message.Content != "hi" {
		t.Errorf("unexpected content %q", got.Message.Content)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("expected 3 calls, got %d", n)
	}
}

func TestComplete_GivesUpAfterRetries(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Complete(context.Background(), driven.ChatRequest{})
	if !errors.Is(err, domain.ErrUpstreamAPI) {
		t.Errorf("expected upstream error, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != int32(DefaultMaxRetries+1) {
		t.Errorf("expected %d calls, got %d", DefaultMaxRetries+1, n)
	}
}

func TestStream_RelaysEventsVerbatim(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["stream"] != true {
			t.Error("expected stream=true")
		}
		if _, ok := req["tools"]; ok {
			t.Error("no tools were offered")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, ": keep-alive\n\n"+
			"data: {\"choices\":[{\"delta\":{\"content\":\"There are \"}}]}\n\n"+
			"data: {\"choices\":[{\"delta\":{\"content\":\"42.\"}}]}\r\n\r\n"+
			"data: [DONE]\n\n"+
			"data: {\"choices\":[{\"delta\":{\"content\":\"ignored\"}}]}\n\n")
	})

	stream, err := c.Stream(context.Background(), driven.ChatRequest{Messages: []domain.Message{{Role: domain.RoleUser, Content: "count"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	var raws []string
	var text strings.Builder
	for {
		ev, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		raws = append(raws, string(ev.Raw))
		text.WriteString(ev.Delta)
	}

	if text.String() != "There are 42." {
		t.Errorf("unexpected text %q", text.String())
	}
	if len(raws) != 4 {
		t.Fatalf("expected 4 events, got %d: %q", len(raws), raws)
	}
	if raws[0] != ": keep-alive" {
		t.Errorf("comment events are relayed unchanged, got %q", raws[0])
	}
	if raws[3] != "data: [DONE]" {
		t.Errorf("unexpected last event %q", raws[3])
	}
}

func TestStream_ErrorsBeforeStreaming(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Stream(context.Background(), driven.ChatRequest{})
	if !errors.Is(err, domain.ErrUpstreamAPI) {
		t.Errorf("expected upstream error, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("streams are never retried, got %d calls", n)
	}
}

func TestSpeech(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req speechRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != DefaultSpeechModel || req.Voice != "nova" || req.Input != "hello" {
			t.Errorf("unexpected request %+v", req)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3audio"))
	})

	audio, err := c.Speech(context.Background(), driven.SpeechRequest{Text: "hello", Voice: "nova", Format: "mp3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer audio.Body.Close()
	data, _ := io.ReadAll(audio.Body)
	if string(data) != "ID3audio" || audio.ContentType != "audio/mpeg" {
		t.Errorf("unexpected audio %q %s", data, audio.ContentType)
	}
}

func TestPing(t *testing.T) {
	tests := []struct {
		status  int
		wantErr bool
	}{
		{http.StatusOK, false},
		{http.StatusNotFound, false},
		{http.StatusUnauthorized, true},
		{http.StatusBadGateway, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			if err := c.Ping(context.Background()); (err != nil) != tt.wantErr {
				t.Errorf("status %d: unexpected error %v", tt.status, err)
			}
		})
	}
}
