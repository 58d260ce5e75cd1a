package mocks

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

var _ driven.LLMService = (*MockLLMService)(nil)

// MockLLMService is a scripted LLMService for testing.
// Completions are returned in order; when exhausted the last one repeats.
type MockLLMService struct {
	mu          sync.Mutex
	Completions []*driven.ChatCompletion
	StreamText  string

	CompleteFn func(req driven.ChatRequest) (*driven.ChatCompletion, error)
	StreamFn   func(req driven.ChatRequest) (driven.ChatStream, error)
	SpeechFn   func(ctx context.Context, req driven.SpeechRequest) (*driven.SpeechAudio, error)

	CompleteRequests []driven.ChatRequest
	StreamRequests   []driven.ChatRequest
}

// NewMockLLMService creates a mock gateway that streams text on the final pass.
func NewMockLLMService(streamText string, completions ...*driven.ChatCompletion) *MockLLMService {
	return &MockLLMService{Completions: completions, StreamText: streamText}
}

func (m *MockLLMService) Complete(ctx context.Context, req driven.ChatRequest) (*driven.ChatCompletion, error) {
	m.mu.Lock()
	idx := len(m.CompleteRequests)
	m.CompleteRequests = append(m.CompleteRequests, req)
	m.mu.Unlock()

	if m.CompleteFn != nil {
		return m.CompleteFn(req)
	}
	if len(m.Completions) == 0 {
		return &driven.ChatCompletion{Message: domain.Message{Role: domain.RoleAssistant}}, nil
	}
	if idx >= len(m.Completions) {
		idx = len(m.Completions) - 1
	}
	return m.Completions[idx], nil
}

func (m *MockLLMService) Stream(ctx context.Context, req driven.ChatRequest) (driven.ChatStream, error) {
	m.mu.Lock()
	m.StreamRequests = append(m.StreamRequests, req)
	m.mu.Unlock()

	if m.StreamFn != nil {
		return m.StreamFn(req)
	}
	return NewScriptedStream(strings.Fields(m.StreamText)...), nil
}

func (m *MockLLMService) Speech(ctx context.Context, req driven.SpeechRequest) (*driven.SpeechAudio, error) {
	if m.SpeechFn != nil {
		return m.SpeechFn(ctx, req)
	}
	return &driven.SpeechAudio{
		Body:        io.NopCloser(strings.NewReader("audio:" + req.Text)),
		ContentType: "audio/mpeg",
	}, nil
}

func (m *MockLLMService) Model() string { return "mock-model" }

func (m *MockLLMService) Ping(ctx context.Context) error { return nil }

// ToolCallCompletion builds a completion that requests the given tool calls.
func ToolCallCompletion(calls ...domain.ToolCall) *driven.ChatCompletion {
	return &driven.ChatCompletion{
		Message:      domain.Message{Role: domain.RoleAssistant, ToolCalls: calls},
		FinishReason: "tool_calls",
	}
}

// TextCompletion builds a completion with plain text and no tool calls.
func TextCompletion(text string) *driven.ChatCompletion {
	return &driven.ChatCompletion{
		Message:      domain.Message{Role: domain.RoleAssistant, Content: text},
		FinishReason: "stop",
	}
}

// ScriptedStream replays OpenAI-style chunk events followed by [DONE].
type ScriptedStream struct {
	events []driven.StreamEvent
	pos    int
	closed bool
}

// NewScriptedStream creates a stream emitting one chunk per word.
func NewScriptedStream(words ...string) *ScriptedStream {
	s := &ScriptedStream{}
	for i, w := range words {
		delta := w
		if i < len(words)-1 {
			delta += " "
		}
		chunk := map[string]any{
			"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": delta}}},
		}
		b, _ := json.Marshal(chunk)
		s.events = append(s.events, driven.StreamEvent{Raw: append([]byte("data: "), b...), Delta: delta})
	}
	s.events = append(s.events, driven.StreamEvent{Raw: []byte("data: [DONE]"), Done: true})
	return s
}

func (s *ScriptedStream) Next() (driven.StreamEvent, error) {
	if s.closed || s.pos >= len(s.events) {
		return driven.StreamEvent{}, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

func (s *ScriptedStream) Close() error {
	s.closed = true
	return nil
}
