package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/postgres"
	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driving/mcp"
	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-dispatch/internal/core/services"
)

// --- serve ---

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Info("sercha-dispatch starting", "version", version)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := http.NewServer(http.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        version,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	}, a.services, a.pingers())

	return server.Start(ctx)
}

// --- migrate ---

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := postgres.Connect(cmd.Context(), postgres.Config{
				URL:             cfg.DatabaseURL,
				MaxOpenConns:    1,
				MaxIdleConns:    1,
				ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
				ConnMaxIdleTime: cfg.DB.ConnMaxIdleTime,
			})
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.InitSchema(cmd.Context()); err != nil {
				return err
			}
			logger.Info("schema is up to date")
			return nil
		},
	}
}

// --- tools ---

func newToolsCmd() *cobra.Command {
	var connected []string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog as JSON",
		Long: `Print the tool catalog as JSON.

Examples:
  sercha-dispatch tools
  sercha-dispatch tools --connected servicenow,github`,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := services.NewCatalog()
			if err != nil {
				return err
			}

			tools := catalog.Descriptors()
			if len(connected) > 0 {
				visible := make(map[domain.ConnectorType]bool, len(connected))
				for _, c := range connected {
					t, ok := domain.ParseConnectorType(c)
					if !ok {
						return fmt.Errorf("unknown connector %q", c)
					}
					visible[t] = true
				}
				filtered := tools[:0]
				for _, d := range tools {
					if visible[d.Connector] || d.Connector.Internal() {
						filtered = append(filtered, d)
					}
				}
				tools = filtered
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tools)
		},
	}
	cmd.Flags().StringSliceVar(&connected, "connected", nil, "only tools of these connectors (plus internal ones)")
	return cmd
}

// --- ingest ---

func newIngestCmd() *cobra.Command {
	var (
		userID      string
		connectorID string
	)
	cmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Index local files into the document store",
		Long: `Index local files into the document store. Files already indexed are skipped.

Examples:
  sercha-dispatch ingest ./runbooks/*.md
  sercha-dispatch ingest --user u-123 ./handbook.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			total := domain.IngestReport{}
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				report, err := a.services.Documents.Upload(cmd.Context(), userID, driving.UploadRequest{
					ConnectorID: connectorID,
					Filename:    filepath.Base(path),
					ContentType: mime.TypeByExtension(filepath.Ext(path)),
					Data:        data,
					Metadata:    map[string]any{"path": path},
				})
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					total.Errored++
					continue
				}
				total.Inserted += report.Inserted
				total.Skipped += report.Skipped
				total.Errored += report.Errored
			}

			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d, skipped %d, errored %d\n", total.Inserted, total.Skipped, total.Errored)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user whose connector last-sync time is updated")
	cmd.Flags().StringVar(&connectorID, "connector", string(domain.ConnectorDocuments), "owning connector id")
	return cmd
}

// --- mcp ---

func newMCPCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tool catalog over MCP (stdio)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if userID == "" {
				userID = cfg.MCPUserID
			}

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := mcp.NewServer(a.router, mcp.Config{
				Name:    "sercha-dispatch",
				Version: version,
				UserID:  userID,
				Logger:  logger,
			})
			if err != nil {
				return err
			}
			return srv.ServeStdio(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user whose stored connectors are used (default MCP_USER_ID)")
	return cmd
}

// --- token ---

func newTokenCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer token for a user (development)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			authService := services.NewAuthService(newAuthAdapter(cfg), cfg.TokenTTL)
			token, err := authService.IssueToken(cmd.Context(), args[0], email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	return cmd
}
