package driving

import (
	"context"

	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// SpeechService synthesizes assistant replies to audio.
// A newer request from the same user cancels the older one.
type SpeechService interface {
	Synthesize(ctx context.Context, userID string, req SpeechRequest) (*driven.SpeechAudio, error)
}

// SpeechRequest is text to synthesize.
// @Description Text to speech request
type SpeechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty" example:"alloy"`
}
