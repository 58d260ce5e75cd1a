package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 4 << 20

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
	Hint  string `json:"hint,omitempty" example:"Please connect ServiceNow in settings."`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports each dependency checked by /ready
// @Description Readiness response
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleSwaggerDoc serves the registered OpenAPI document. It returns 404
// when the binary was built without the docs package.
func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not available")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc)
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the database and Redis when they are configured
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(s.pingers))}
	status := http.StatusOK
	for name, p := range s.pingers {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "dependency", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// Helper functions

// decodeJSON reads a size-capped JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "request body is empty")
		default:
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return false
	}
	return true
}

// statusForError maps the error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	}
	return statusForKind(domain.KindOf(err))
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrorKindValidation,
		domain.ErrorKindConfiguration,
		domain.ErrorKindUnknownAction,
		domain.ErrorKindAuth:
		return http.StatusBadRequest
	case domain.ErrorKindUnknownTool:
		return http.StatusNotFound
	case domain.ErrorKindRateLimit:
		return http.StatusTooManyRequests
	case domain.ErrorKindQuota:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders err with its mapped status. Internal errors are
// logged and replaced by a generic message.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError && domain.KindOf(err) != domain.ErrorKindUpstream {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal server error")
		return
	}

	resp := ErrorResponse{Error: err.Error()}
	var hinted *domain.HintedError
	if errors.As(err, &hinted) {
		resp.Hint = hinted.Hint
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
