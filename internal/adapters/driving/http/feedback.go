package http

import (
	"io"
	"net/http"

	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
)

// handleRecordFeedback godoc
// @Summary      Rate an answer
// @Tags         Feedback
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.FeedbackRequest  true  "Rating"
// @Success      201      {object}  domain.Feedback
// @Failure      400      {object}  ErrorResponse
// @Failure      401      {object}  ErrorResponse
// @Router       /api/v1/feedback [post]
func (s *Server) handleRecordFeedback(w http.ResponseWriter, r *http.Request) {
	var req driving.FeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fb, err := s.services.Feedback.Record(r.Context(), userID(r), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}

// handleFeedbackSummary godoc
// @Summary      Feedback summary
// @Description  Counts of the caller's ratings plus the most recent entries
// @Tags         Feedback
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.FeedbackSummary
// @Failure      401  {object}  ErrorResponse
// @Router       /api/v1/feedback/summary [get]
func (s *Server) handleFeedbackSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.services.Feedback.Summary(r.Context(), userID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleSpeech godoc
// @Summary      Synthesize speech
// @Description  Converts text to audio through the model gateway. A newer request from the same user cancels the previous one.
// @Tags         Speech
// @Accept       json
// @Produce      audio/mpeg
// @Security     BearerAuth
// @Param        request  body      driving.SpeechRequest  true  "Text"
// @Success      200      {file}    binary
// @Failure      400      {object}  ErrorResponse
// @Failure      429      {object}  ErrorResponse
// @Router       /api/v1/speech [post]
func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req driving.SpeechRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	audio, err := s.services.Speech.Synthesize(r.Context(), userID(r), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer audio.Body.Close()

	contentType := audio.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, audio.Body); err != nil {
		s.logger.Warn("write speech audio", "error", err)
	}
}
