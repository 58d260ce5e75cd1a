package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// Ping calls f(ctx).
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Services are the driving ports the API exposes. Nil services leave
// their routes unregistered.
type Services struct {
	Auth       driving.AuthService
	Chat       driving.ChatService
	Connectors driving.ConnectorService
	OAuth      driving.OAuthService
	Tools      driving.ToolService
	Documents  driving.DocumentService
	Feedback   driving.FeedbackService
	Speech     driving.SpeechService
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	services Services

	// Infrastructure checked by /ready, keyed by name
	pingers map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server. pingers may be nil.
func NewServer(cfg Config, services Services, pingers map[string]Pinger) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:   http.NewServeMux(),
		version:  cfg.Version,
		logger:   logger.With("component", "http"),
		services: services,
		pingers:  pingers,
	}

	s.setupRoutes()

	handler := NewRecoveryMiddleware(logger).Handler(
		NewLoggingMiddleware(logger).Handler(
			NewCORSMiddleware(cfg.AllowedOrigins).Handler(s.router)))

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// Chat streams may run for the full gateway stream timeout.
		WriteTimeout: 330 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.services.Auth)
	optional := func(h http.HandlerFunc) http.Handler { return authMiddleware.Optional(h) }
	required := func(h http.HandlerFunc) http.Handler { return authMiddleware.Authenticate(h) }

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	if s.services.Connectors != nil {
		s.router.Handle("POST /api/v1/connectors/execute", optional(s.handleExecute))
		s.router.Handle("GET /api/v1/connectors", required(s.handleListConnections))
	}
	if s.services.OAuth != nil {
		s.router.Handle("POST /api/v1/oauth", required(s.handleOAuth))
	}
	if s.services.Tools != nil {
		s.router.Handle("POST /api/v1/tools", optional(s.handleTools))
	}
	if s.services.Chat != nil {
		s.router.Handle("POST /api/v1/chat", optional(s.handleChat))
		s.router.Handle("GET /api/v1/conversations/{id}/messages", required(s.handleConversationMessages))
	}
	if s.services.Documents != nil {
		s.router.Handle("POST /api/v1/documents", optional(s.handleIngestDocuments))
		s.router.Handle("POST /api/v1/documents/upload", optional(s.handleUploadDocument))
		s.router.Handle("POST /api/v1/documents/search", optional(s.handleSearchDocuments))
		s.router.Handle("GET /api/v1/documents/{id}", optional(s.handleGetDocument))
	}
	if s.services.Feedback != nil {
		s.router.Handle("POST /api/v1/feedback", required(s.handleRecordFeedback))
		s.router.Handle("GET /api/v1/feedback/summary", required(s.handleFeedbackSummary))
	}
	if s.services.Speech != nil {
		s.router.Handle("POST /api/v1/speech", optional(s.handleSpeech))
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
