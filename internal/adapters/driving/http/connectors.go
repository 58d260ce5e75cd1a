package http

import (
	"net/http"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
)

// ToolsResponse lists the tools visible for the supplied sources
// @Description Visible tool catalog
type ToolsResponse struct {
	Tools []domain.ToolDescriptor `json:"tools"`
}

// ConnectionsResponse lists the user's stored connectors without secrets
// @Description Stored connectors
type ConnectionsResponse struct {
	Connectors []*domain.UserConnector `json:"connectors"`
}

// handleExecute godoc
// @Summary      Execute a connector action
// @Description  Runs one action against a connector. Request config takes precedence over stored credentials, then server credentials.
// @Tags         Connectors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.ExecuteRequest  true  "Connector action"
// @Success      200      {object}  domain.Result
// @Failure      400      {object}  domain.Result
// @Failure      404      {object}  domain.Result
// @Failure      429      {object}  domain.Result
// @Failure      500      {object}  domain.Result
// @Router       /api/v1/connectors/execute [post]
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req driving.ExecuteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Connector == "" || req.Action == "" {
		writeError(w, http.StatusBadRequest, "connector and action are required")
		return
	}

	res := s.services.Connectors.Execute(r.Context(), userID(r), req)
	status := http.StatusOK
	if !res.Success {
		status = statusForKind(res.Kind)
	}
	writeJSON(w, status, res)
}

// handleListConnections godoc
// @Summary      List connected sources
// @Description  Returns the authenticated user's stored connectors. Secrets are never returned.
// @Tags         Connectors
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ConnectionsResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /api/v1/connectors [get]
func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	rows, err := s.services.Connectors.Connections(r.Context(), userID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ConnectionsResponse{Connectors: rows})
}

// handleOAuth godoc
// @Summary      Manage connector OAuth tokens
// @Description  Actions: save-tokens, get-token, refresh-token, revoke. Only the caller's own connector row is touched.
// @Tags         OAuth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.OAuthRequest  true  "OAuth action"
// @Success      200      {object}  driving.OAuthResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      401      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /api/v1/oauth [post]
func (s *Server) handleOAuth(w http.ResponseWriter, r *http.Request) {
	var req driving.OAuthRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.services.OAuth.Handle(r.Context(), userID(r), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTools godoc
// @Summary      List visible tools
// @Description  Returns the tool catalog filtered to the connected sources. Authenticated users also see tools of their stored connectors.
// @Tags         Tools
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.ToolsRequest  false  "Connected sources"
// @Success      200      {object}  ToolsResponse
// @Router       /api/v1/tools [post]
func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	var req driving.ToolsRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	user := s.userContext(r, req.ConnectedSources)
	tools := s.services.Tools.Available(user.Sources)
	if tools == nil {
		tools = []domain.ToolDescriptor{}
	}
	writeJSON(w, http.StatusOK, ToolsResponse{Tools: tools})
}

// userContext combines request sources with the authenticated user's
// stored connectors. Request sources win for a connector type.
func (s *Server) userContext(r *http.Request, sources []domain.ConnectedSource) domain.UserContext {
	user := domain.UserContext{UserID: userID(r), Sources: sources}
	if user.UserID == "" || s.services.Connectors == nil {
		return user
	}

	rows, err := s.services.Connectors.Connections(r.Context(), user.UserID)
	if err != nil {
		s.logger.Warn("load stored connectors", "user_id", user.UserID, "error", err)
		return user
	}
	for _, row := range rows {
		if row.Status == domain.ConnectorStatusDisconnected {
			continue
		}
		if _, ok := user.Source(row.ConnectorID); ok {
			continue
		}
		user.Sources = append(user.Sources, row.ToConnectedSource())
	}
	return user
}
