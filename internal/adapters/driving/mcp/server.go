// Package mcp exposes the tool catalog over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
)

// Config configures the MCP server.
type Config struct {
	Name    string
	Version string

	// UserID owns every call. Empty means server credentials only.
	UserID string

	Logger *slog.Logger
}

// Server serves catalog tools to MCP clients.
type Server struct {
	tools  driving.ToolService
	user   domain.UserContext
	mcp    *server.MCPServer
	logger *slog.Logger
}

// NewServer registers every catalog tool on a new MCP server.
func NewServer(tools driving.ToolService, cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Name
	if name == "" {
		name = "sercha-dispatch"
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		tools:  tools,
		user:   domain.UserContext{UserID: cfg.UserID},
		logger: logger.With("component", "mcp"),
	}
	s.mcp = server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Tools for ticketing, source control, chat, file storage, wiki and indexed documents."),
		server.WithRecovery(),
	)

	for _, d := range tools.Catalog() {
		schema, err := json.Marshal(d.Parameters)
		if err != nil {
			return nil, fmt.Errorf("encode schema for %s: %w", d.Name, err)
		}
		s.mcp.AddTool(mcp.NewToolWithRawSchema(d.Name, d.Description, schema), s.handler(d.Name))
	}
	return s, nil
}

// MCPServer returns the underlying server, for in-process transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves until ctx is cancelled or the input closes.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	s.logger.Info("MCP server started (stdio transport)", "user_id", s.user.UserID)
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return toolError(fmt.Sprintf("encode arguments: %v", err)), nil
		}

		res := s.tools.Dispatch(ctx, s.user, domain.ToolCall{
			ID:        uuid.NewString(),
			Name:      name,
			Arguments: string(args),
		})
		if !res.Success {
			s.logger.Info("mcp tool failed", "tool", name, "kind", res.Kind, "error", res.Error)
			return toolError(res.ToolContent()), nil
		}
		return toolText(res.ToolContent()), nil
	}
}

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
