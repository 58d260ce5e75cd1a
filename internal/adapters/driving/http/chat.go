package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
)

// MessagesResponse is a stored conversation transcript
// @Description Conversation messages
type MessagesResponse struct {
	ConversationID string           `json:"conversationId"`
	Messages       []domain.Message `json:"messages"`
}

// handleChat godoc
// @Summary      Chat with tool access
// @Description  Runs the tool-calling pass, executes the requested tools and streams the final answer as server-sent events. Errors before streaming are returned as JSON.
// @Tags         Chat
// @Accept       json
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        request  body      driving.ChatRequest  true  "Conversation"
// @Success      200      {string}  string  "SSE stream, terminated by data: [DONE]"
// @Failure      400      {object}  ErrorResponse
// @Failure      402      {object}  ErrorResponse
// @Failure      429      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /api/v1/chat [post]
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req driving.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	user := s.userContext(r, req.ConnectedSources)
	reply, err := s.services.Chat.Start(r.Context(), user, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer reply.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	if id := reply.ConversationID(); id != "" {
		h.Set("X-Conversation-Id", id)
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	err = reply.Relay(func(raw []byte) error {
		if _, err := w.Write(raw); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\n\n")); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		s.logger.Info("chat stream cancelled", "user_id", user.UserID)
		return
	}

	s.logger.Warn("chat stream failed", "user_id", user.UserID, "error", err)
	payload, _ := json.Marshal(ErrorResponse{Error: "stream interrupted"})
	_, _ = w.Write([]byte("event: error\ndata: "))
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n\n"))
	flusher.Flush()
}

// handleConversationMessages godoc
// @Summary      Get conversation messages
// @Description  Returns the stored transcript of one of the caller's conversations
// @Tags         Chat
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Conversation ID"
// @Success      200  {object}  MessagesResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/conversations/{id}/messages [get]
func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	msgs, err := s.services.Chat.History(r.Context(), userID(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, MessagesResponse{ConversationID: id, Messages: msgs})
}
