package main

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors"
	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors/confluence"
	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors/documents"
	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors/gdrive"
	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors/github"
	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors/servicenow"
	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors/slack"
	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/extract"
	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/gateway"
	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/memory"
	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-dispatch/internal/config"
	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dispatch/internal/core/services"
)

// app is the wired process: infrastructure, driven adapters and services.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db    *postgres.DB
	redis *goredis.Client

	router   *services.Router
	services http.Services
}

// newApp connects to PostgreSQL (and Redis when configured) and wires
// every service.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	// ===== Initialize PostgreSQL =====
	logger.Info("connecting to PostgreSQL")
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.DB.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, err
	}
	a.db = db
	if err := db.InitSchema(ctx); err != nil {
		a.Close()
		return nil, err
	}

	// ===== Initialize Redis (optional) =====
	if cfg.RedisURL != "" {
		logger.Info("connecting to Redis")
		client, err := redisadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
	}

	// ===== Stores =====
	var encryptor *postgres.SecretEncryptor
	if cfg.EncryptionKey != "" {
		encryptor, err = postgres.DeriveSecretEncryptor(cfg.EncryptionKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("credential encryption: %w", err)
		}
	} else {
		logger.Warn("CREDENTIAL_ENCRYPTION_KEY is not set; connectors with secrets cannot be saved")
	}
	connectorStore := postgres.NewUserConnectorStore(db, encryptor)
	documentStore := postgres.NewDocumentStore(db)
	conversationStore := postgres.NewConversationStore(db)

	var (
		tokenCache    driven.TokenCache
		lock          driven.RefreshLock
		feedbackStore driven.FeedbackStore
	)
	switch {
	case a.redis != nil:
		tokenCache = redisadapter.NewTokenCache(a.redis, logger)
		lock = redisadapter.NewLock(a.redis)
		feedbackStore = redisadapter.NewFeedbackStore(a.redis)
		logger.Info("using Redis token cache, lock and feedback store")
	case cfg.LockBackend == "memory":
		tokenCache = memory.NewTokenCache()
		lock = memory.NewLock()
		feedbackStore = memory.NewFeedbackStore()
		logger.Info("using in-process token cache, lock and feedback store")
	default:
		tokenCache = memory.NewTokenCache()
		lock = postgres.NewAdvisoryLock(db)
		feedbackStore = memory.NewFeedbackStore()
		logger.Info("using PostgreSQL advisory lock with in-process token cache")
	}

	// ===== Credentials =====
	fallback := memory.NewFallbackCredentials(cfg.Fallback)
	for _, t := range fallback.Types() {
		logger.Info("server credentials configured", "connector", t)
	}

	oauthClients := make(map[domain.ConnectorType]connectors.OAuthClient, len(cfg.OAuthApps))
	for t, oa := range cfg.OAuthApps {
		oauthClients[t] = connectors.OAuthClient{
			ClientID:     oa.ClientID,
			ClientSecret: oa.ClientSecret,
			TokenURL:     oa.TokenURL,
		}
	}

	resolver := services.NewCredentialResolver(services.CredentialResolverConfig{
		Store:     connectorStore,
		Fallback:  fallback,
		Refresher: connectors.NewRefresher(oauthClients),
		Cache:     tokenCache,
		Lock:      lock,
		Logger:    logger,
	})

	// ===== Documents =====
	documentService := services.NewDocumentService(services.DocumentServiceConfig{
		DocumentStore:  documentStore,
		ConnectorStore: connectorStore,
		Extractor:      extract.New(0),
		Logger:         logger,
	})

	// ===== Connectors and tools =====
	callerCfg := connectors.CallerConfig{UserAgent: "sercha-dispatch/" + version}
	registry := connectors.NewRegistry(
		servicenow.NewConnector(callerCfg),
		github.NewConnector(callerCfg),
		slack.NewConnector(callerCfg),
		gdrive.NewConnector(callerCfg),
		confluence.NewConnector(callerCfg),
		documents.NewConnector(documentService),
	)

	catalog, err := services.NewCatalog()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build tool catalog: %w", err)
	}
	a.router = services.NewRouter(services.RouterConfig{
		Catalog:  catalog,
		Registry: registry,
		Resolver: resolver,
		Logger:   logger,
	})

	// ===== Model gateway =====
	llm := gateway.New(gateway.Config{
		BaseURL:         cfg.Gateway.URL,
		APIKey:          cfg.Gateway.APIKey,
		Model:           cfg.Gateway.Model,
		SpeechModel:     cfg.Gateway.SpeechModel,
		CompleteTimeout: cfg.Gateway.CompleteTimeout,
		StreamTimeout:   cfg.Gateway.StreamTimeout,
		Logger:          logger,
	})

	// ===== Services =====
	superseder := services.NewSuperseder()

	a.services = http.Services{
		Auth: services.NewAuthService(newAuthAdapter(cfg), cfg.TokenTTL),
		Chat: services.NewConversationService(services.ConversationServiceConfig{
			LLM:           llm,
			Tools:         a.router,
			Store:         conversationStore,
			Superseder:    superseder,
			MaxToolRounds: cfg.MaxToolRounds,
			ParallelTools: cfg.ParallelTools,
			Logger:        logger,
		}),
		Connectors: services.NewConnectorService(services.ConnectorServiceConfig{
			Registry: registry,
			Resolver: resolver,
			Store:    connectorStore,
			Logger:   logger,
		}),
		OAuth: services.NewOAuthService(services.OAuthServiceConfig{
			Store:    connectorStore,
			Resolver: resolver,
			Logger:   logger,
		}),
		Tools:     a.router,
		Documents: documentService,
		Feedback:  services.NewFeedbackService(feedbackStore),
		Speech:    services.NewSpeechService(llm, superseder),
	}

	return a, nil
}

func newAuthAdapter(cfg *config.Config) *auth.Adapter {
	var opts []auth.Option
	if cfg.JWTIssuer != "" {
		opts = append(opts, auth.WithIssuer(cfg.JWTIssuer))
	}
	return auth.NewAdapter(cfg.JWTSecret, opts...)
}

// pingers returns the dependencies checked by /ready.
func (a *app) pingers() map[string]http.Pinger {
	p := map[string]http.Pinger{"postgres": a.db}
	if a.redis != nil {
		client := a.redis
		p["redis"] = http.PingerFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
	return p
}

// Close releases connections.
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", "error", err)
		}
	}
}
