package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// ChatRequest is one call to the model gateway.
type ChatRequest struct {
	Messages []domain.Message
	// Tools offered to the model. Empty means the model cannot request tools.
	Tools       []domain.ToolDescriptor
	Temperature *float64
}

// ChatCompletion is a non-streaming model reply.
type ChatCompletion struct {
	Message      domain.Message
	FinishReason string
	Model        string
}

// StreamEvent is one server-sent event from the gateway.
// Raw is the event exactly as received, without the trailing blank line.
type StreamEvent struct {
	Raw   []byte
	Delta string
	Done  bool
}

// ChatStream iterates a streamed reply. Next returns io.EOF after the last event.
type ChatStream interface {
	Next() (StreamEvent, error)
	Close() error
}

// SpeechRequest asks the gateway for synthesized audio.
type SpeechRequest struct {
	Text   string
	Voice  string
	Format string
}

// SpeechAudio is a synthesized audio body. The caller closes Body.
type SpeechAudio struct {
	Body        io.ReadCloser
	ContentType string
}

// LLMService is the language model gateway. It decides which tools to call;
// the dispatcher only executes them.
type LLMService interface {
	// Complete returns the full reply in one response.
	Complete(ctx context.Context, req ChatRequest) (*ChatCompletion, error)

	// Stream returns the reply as server-sent events.
	Stream(ctx context.Context, req ChatRequest) (ChatStream, error)

	// Speech synthesizes text to audio.
	Speech(ctx context.Context, req SpeechRequest) (*SpeechAudio, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the gateway is reachable
	Ping(ctx context.Context) error
}
