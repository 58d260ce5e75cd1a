package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.UserConnectorStore = (*UserConnectorStore)(nil)

// Encrypted columns, used as part of the associated data.
const (
	columnSecretConfig = "secret_config"
	columnOAuthTokens  = "oauth_tokens"
)

// UserConnectorStore implements driven.UserConnectorStore using PostgreSQL.
// Secret config values and OAuth tokens are encrypted at rest; only the
// names of secret keys are stored in clear.
type UserConnectorStore struct {
	db        *DB
	encryptor *SecretEncryptor
}

// NewUserConnectorStore creates a store. A nil encryptor rejects rows that
// carry secrets.
func NewUserConnectorStore(db *DB, encryptor *SecretEncryptor) *UserConnectorStore {
	return &UserConnectorStore{db: db, encryptor: encryptor}
}

const selectUserConnector = `
	SELECT user_id, connector_id, config, secret_keys, secret_blob, oauth_blob,
	       status, last_synced_at, created_at, updated_at
	FROM user_connectors
`

// Get returns the row, or domain.ErrNotFound.
func (s *UserConnectorStore) Get(ctx context.Context, userID string, connectorID domain.ConnectorType) (*domain.UserConnector, error) {
	row := s.db.QueryRowContext(ctx, selectUserConnector+` WHERE user_id = $1 AND connector_id = $2`, userID, string(connectorID))
	uc, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user connector: %w", err)
	}
	return uc, nil
}

// List returns all rows of a user ordered by connector.
func (s *UserConnectorStore) List(ctx context.Context, userID string) ([]*domain.UserConnector, error) {
	rows, err := s.db.QueryContext(ctx, selectUserConnector+` WHERE user_id = $1 ORDER BY connector_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user connectors: %w", err)
	}
	defer rows.Close()

	var out []*domain.UserConnector
	for rows.Next() {
		uc, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user connector: %w", err)
		}
		out = append(out, uc)
	}
	return out, rows.Err()
}

// Save upserts the row keyed by (user_id, connector_id).
func (s *UserConnectorStore) Save(ctx context.Context, uc *domain.UserConnector) error {
	public, secret := domain.SplitSecrets(uc.Config)
	configJSON, err := json.Marshal(public)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	secretKeys := make([]string, 0, len(secret))
	for k := range secret {
		secretKeys = append(secretKeys, k)
	}
	sort.Strings(secretKeys)

	var secretBlob, oauthBlob []byte
	var expiresAt *time.Time
	if len(secret) > 0 {
		if secretBlob, err = s.seal(secret, uc.UserID, uc.ConnectorID, columnSecretConfig); err != nil {
			return err
		}
	}
	if uc.OAuthTokens != nil {
		if oauthBlob, err = s.seal(uc.OAuthTokens, uc.UserID, uc.ConnectorID, columnOAuthTokens); err != nil {
			return err
		}
		expiresAt = &uc.OAuthTokens.ExpiresAt
	}

	now := time.Now().UTC()
	if uc.CreatedAt.IsZero() {
		uc.CreatedAt = now
	}
	uc.UpdatedAt = now
	if uc.Status == "" {
		uc.Status = domain.ConnectorStatusConnected
	}

	query := `
		INSERT INTO user_connectors (
			user_id, connector_id, config, secret_keys, secret_blob, oauth_blob,
			oauth_expires_at, status, last_synced_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, connector_id) DO UPDATE SET
			config = EXCLUDED.config,
			secret_keys = EXCLUDED.secret_keys,
			secret_blob = EXCLUDED.secret_blob,
			oauth_blob = EXCLUDED.oauth_blob,
			oauth_expires_at = EXCLUDED.oauth_expires_at,
			status = EXCLUDED.status,
			last_synced_at = COALESCE(EXCLUDED.last_synced_at, user_connectors.last_synced_at),
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		uc.UserID,
		string(uc.ConnectorID),
		configJSON,
		pq.Array(secretKeys),
		secretBlob,
		oauthBlob,
		nullTime(expiresAt),
		string(uc.Status),
		nullTime(uc.LastSyncedAt),
		uc.CreatedAt,
		uc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save user connector: %w", err)
	}
	return nil
}

// UpdateTokens replaces the OAuth token set of an existing row.
func (s *UserConnectorStore) UpdateTokens(ctx context.Context, userID string, connectorID domain.ConnectorType, tokens *domain.OAuthTokenSet) error {
	blob, err := s.seal(tokens, userID, connectorID, columnOAuthTokens)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_connectors
		SET oauth_blob = $3, oauth_expires_at = $4, status = $5, updated_at = now()
		WHERE user_id = $1 AND connector_id = $2
	`, userID, string(connectorID), blob, nullTime(&tokens.ExpiresAt), string(domain.ConnectorStatusConnected))
	if err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	return requireRow(res)
}

// Delete removes the row. Deleting a missing row is not an error.
func (s *UserConnectorStore) Delete(ctx context.Context, userID string, connectorID domain.ConnectorType) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_connectors WHERE user_id = $1 AND connector_id = $2`, userID, string(connectorID))
	if err != nil {
		return fmt.Errorf("delete user connector: %w", err)
	}
	return nil
}

// TouchSynced sets last_synced_at of an existing row.
func (s *UserConnectorStore) TouchSynced(ctx context.Context, userID string, connectorID domain.ConnectorType, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_connectors SET last_synced_at = $3
		WHERE user_id = $1 AND connector_id = $2
	`, userID, string(connectorID), at)
	if err != nil {
		return fmt.Errorf("touch last synced: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *UserConnectorStore) scan(row scanner) (*domain.UserConnector, error) {
	var (
		uc                    domain.UserConnector
		connectorID, status   string
		configJSON            []byte
		secretKeys            []string
		secretBlob, oauthBlob []byte
		lastSynced            sql.NullTime
	)
	err := row.Scan(
		&uc.UserID,
		&connectorID,
		&configJSON,
		pq.Array(&secretKeys),
		&secretBlob,
		&oauthBlob,
		&status,
		&lastSynced,
		&uc.CreatedAt,
		&uc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	uc.ConnectorID = domain.ConnectorType(connectorID)
	uc.Status = domain.ConnectorStatus(status)
	uc.LastSyncedAt = timePtr(lastSynced)

	uc.Config = make(map[string]string)
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &uc.Config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if len(secretBlob) > 0 {
		secret := make(map[string]string, len(secretKeys))
		if err := s.open(secretBlob, uc.UserID, uc.ConnectorID, columnSecretConfig, &secret); err != nil {
			return nil, err
		}
		for k, v := range secret {
			uc.Config[k] = v
		}
	}
	if len(oauthBlob) > 0 {
		var tokens domain.OAuthTokenSet
		if err := s.open(oauthBlob, uc.UserID, uc.ConnectorID, columnOAuthTokens, &tokens); err != nil {
			return nil, err
		}
		uc.OAuthTokens = &tokens
	}
	return &uc, nil
}

func (s *UserConnectorStore) seal(v any, userID string, connectorID domain.ConnectorType, column string) ([]byte, error) {
	if s.encryptor == nil {
		return nil, fmt.Errorf("%w: credential encryption key is not set", domain.ErrNotConfigured)
	}
	blob, err := s.encryptor.Seal(v, rowAAD(userID, string(connectorID), column))
	if err != nil {
		return nil, fmt.Errorf("encrypt %s: %w", column, err)
	}
	return blob, nil
}

func (s *UserConnectorStore) open(blob []byte, userID string, connectorID domain.ConnectorType, column string, v any) error {
	if s.encryptor == nil {
		return fmt.Errorf("%w: credential encryption key is not set", domain.ErrNotConfigured)
	}
	if err := s.encryptor.Open(blob, rowAAD(userID, string(connectorID), column), v); err != nil {
		return fmt.Errorf("decrypt %s: %w", column, err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
