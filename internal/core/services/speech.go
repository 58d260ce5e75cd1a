package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
)

// Ensure speechService implements SpeechService
var _ driving.SpeechService = (*speechService)(nil)

const (
	// MaxSpeechChars caps text sent for synthesis.
	MaxSpeechChars = 4096

	defaultVoice = "alloy"
)

type speechService struct {
	llm        driven.LLMService
	superseder *Superseder
}

// NewSpeechService creates a SpeechService. A nil superseder gets a
// private one.
func NewSpeechService(llm driven.LLMService, superseder *Superseder) driving.SpeechService {
	if superseder == nil {
		superseder = NewSuperseder()
	}
	return &speechService{llm: llm, superseder: superseder}
}

// Synthesize returns the audio stream. The request stays tracked until the
// returned body is closed.
func (s *speechService) Synthesize(ctx context.Context, userID string, req driving.SpeechRequest) (*driven.SpeechAudio, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrInvalidInput)
	}
	if runes := []rune(text); len(runes) > MaxSpeechChars {
		text = string(runes[:MaxSpeechChars])
	}
	voice := req.Voice
	if voice == "" {
		voice = defaultVoice
	}

	ctx, done := s.superseder.Begin(ctx, KindSpeech, userID)
	audio, err := s.llm.Speech(ctx, driven.SpeechRequest{Text: text, Voice: voice, Format: "mp3"})
	if err != nil {
		done()
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	audio.Body = &doneReadCloser{ReadCloser: audio.Body, done: done}
	return audio, nil
}

// doneReadCloser releases the superseder slot on Close.
type doneReadCloser struct {
	io.ReadCloser
	done func()
	once sync.Once
}

func (r *doneReadCloser) Close() error {
	err := r.ReadCloser.Close()
	r.once.Do(r.done)
	return err
}
