package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

const (
	// refreshLockTTL bounds how long one instance may hold a refresh lock.
	refreshLockTTL = 30 * time.Second

	// refreshWait is how long a caller waits for another instance's refresh.
	refreshWait = 5 * time.Second

	// defaultTokenLifetime is assumed when a provider omits expires_in.
	defaultTokenLifetime = time.Hour
)

// CredentialResolver turns a (connector type, user) pair into usable
// credentials. Per-user configuration wins over server fallback credentials.
// It is the only component that writes refreshed OAuth tokens.
type CredentialResolver struct {
	store     driven.UserConnectorStore
	fallback  driven.FallbackCredentials
	refresher driven.OAuthRefresher
	cache     driven.TokenCache
	lock      driven.RefreshLock
	logger    *slog.Logger
	now       func() time.Time
}

// CredentialResolverConfig holds dependencies for CredentialResolver.
// Every dependency is optional.
type CredentialResolverConfig struct {
	Store     driven.UserConnectorStore
	Fallback  driven.FallbackCredentials
	Refresher driven.OAuthRefresher
	Cache     driven.TokenCache
	Lock      driven.RefreshLock
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewCredentialResolver creates a new credential resolver.
func NewCredentialResolver(cfg CredentialResolverConfig) *CredentialResolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &CredentialResolver{
		store:     cfg.Store,
		fallback:  cfg.Fallback,
		refresher: cfg.Refresher,
		cache:     cfg.Cache,
		lock:      cfg.Lock,
		logger:    logger.With("component", "credential_resolver"),
		now:       now,
	}
}

// HasFallback reports whether server-wide credentials exist for a connector.
func (r *CredentialResolver) HasFallback(t domain.ConnectorType) bool {
	if r.fallback == nil {
		return false
	}
	_, ok := r.fallback.Lookup(t)
	return ok
}

// Resolve returns credentials for one connector call.
//
// Order: the user's stored row overlaid with request-supplied config, then
// server fallback credentials, then ErrNotConfigured. A failed OAuth refresh
// is logged and the existing token returned.
func (r *CredentialResolver) Resolve(ctx context.Context, t domain.ConnectorType, user domain.UserContext) (*domain.Credentials, error) {
	if t.Internal() {
		return domain.InternalCredentials(t, user.UserID), nil
	}

	row, err := r.loadRow(ctx, user.UserID, t)
	if err != nil {
		return nil, err
	}

	cfg := make(map[string]string)
	var tokens *domain.OAuthTokenSet
	origin := domain.OriginRequest
	if row != nil {
		for k, v := range row.Config {
			cfg[k] = v
		}
		tokens = row.OAuthTokens
		origin = domain.OriginUser
	}
	if src, ok := user.Source(t); ok {
		for k, v := range src.Config {
			if v != "" {
				cfg[k] = v
			}
		}
		// A differing request token replaces a stored set only when that set
		// cannot be refreshed; otherwise the stored set wins and is refreshed.
		if tok := src.Config[domain.ConfigAccessToken]; tok != "" && tokens != nil && tok != tokens.AccessToken && tokens.RefreshToken == "" {
			tokens = nil
		}
	}

	if len(cfg) > 0 || tokens != nil {
		creds := domain.CredentialsFromConfig(t, cfg, tokens, origin)
		creds.UserID = user.UserID
		if creds.HasSecret() {
			if row != nil && tokens != nil {
				creds = r.refreshIfNeeded(ctx, creds)
			}
			return creds, nil
		}
	}

	if r.fallback != nil {
		if creds, ok := r.fallback.Lookup(t); ok {
			creds.Origin = domain.OriginEnvironment
			creds.UserID = user.UserID
			return creds, nil
		}
	}

	return nil, NotConnectedError(t)
}

// NotConnectedError is the configuration error rendered as "please connect X".
func NotConnectedError(t domain.ConnectorType) error {
	return domain.WithHint(
		fmt.Errorf("%w: %s is not connected", domain.ErrNotConfigured, t.DisplayName()),
		fmt.Sprintf("Please connect %s in settings.", t.DisplayName()),
	)
}

// ForceRefresh refreshes the user's stored OAuth token regardless of expiry.
// Unlike Resolve, a refresh failure is returned.
func (r *CredentialResolver) ForceRefresh(ctx context.Context, userID string, t domain.ConnectorType) (*domain.OAuthTokenSet, error) {
	row, err := r.loadRow(ctx, userID, t)
	if err != nil {
		return nil, err
	}
	if row == nil || row.OAuthTokens == nil {
		return nil, NotConnectedError(t)
	}
	if row.OAuthTokens.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %s has no refresh token", domain.ErrInvalidInput, t.DisplayName())
	}
	creds := domain.CredentialsFromConfig(t, row.Config, row.OAuthTokens, domain.OriginUser)
	creds.UserID = userID
	return r.refresh(ctx, creds)
}

func (r *CredentialResolver) loadRow(ctx context.Context, userID string, t domain.ConnectorType) (*domain.UserConnector, error) {
	if r.store == nil || userID == "" {
		return nil, nil
	}
	row, err := r.store.Get(ctx, userID, t)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s connector: %w", t, err)
	}
	if row.Status == domain.ConnectorStatusDisconnected {
		return nil, nil
	}
	return row, nil
}

// refreshIfNeeded refreshes tokens inside the safety window. Failures keep
// the existing token; the adapter surfaces an auth error if it is unusable.
func (r *CredentialResolver) refreshIfNeeded(ctx context.Context, creds *domain.Credentials) *domain.Credentials {
	ts := creds.TokenSet()
	if ts.RefreshToken == "" || !r.needsRefresh(ts) || r.refresher == nil || !r.refresher.Supports(creds.ConnectorType) {
		return creds
	}

	fresh, err := r.refresh(ctx, creds)
	if err != nil {
		r.logger.Warn("oauth refresh failed, using existing token",
			"connector", creds.ConnectorType,
			"user_id", creds.UserID,
			"error", err,
		)
		return creds
	}
	return applyTokens(creds, fresh)
}

// refresh exchanges the refresh token once per fingerprint. Concurrent
// callers for the same row wait for the lock holder's result.
func (r *CredentialResolver) refresh(ctx context.Context, creds *domain.Credentials) (*domain.OAuthTokenSet, error) {
	if r.refresher == nil || !r.refresher.Supports(creds.ConnectorType) {
		return nil, fmt.Errorf("%w: token refresh for %s", domain.ErrUnsupportedProvider, creds.ConnectorType)
	}

	key := TokenCacheKey(creds.ConnectorType, creds.RefreshToken)
	if cached := r.cached(ctx, key); cached != nil {
		return cached, nil
	}

	if r.lock != nil {
		name := fmt.Sprintf("refresh:%s:%s", creds.UserID, creds.ConnectorType)
		acquired, err := r.lock.Acquire(ctx, name, refreshLockTTL)
		if err != nil {
			r.logger.Warn("refresh lock unavailable, refreshing without it", "lock", name, "error", err)
		} else if !acquired {
			if ts := r.awaitRefresh(ctx, key, creds); ts != nil {
				return ts, nil
			}
		} else {
			defer func() {
				if err := r.lock.Release(context.WithoutCancel(ctx), name); err != nil {
					r.logger.Debug("release refresh lock", "lock", name, "error", err)
				}
			}()
		}
	}

	tok, err := r.refresher.Refresh(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("refresh %s token: %w", creds.ConnectorType, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("refresh %s token: %w: empty access token", creds.ConnectorType, domain.ErrAuth)
	}

	lifetime := time.Duration(tok.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}
	fresh := &domain.OAuthTokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    r.now().Add(lifetime),
	}
	// Providers that do not rotate refresh tokens omit them.
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = creds.RefreshToken
	}

	if r.store != nil && creds.Origin == domain.OriginUser && creds.UserID != "" {
		if err := r.store.UpdateTokens(ctx, creds.UserID, creds.ConnectorType, fresh); err != nil {
			// Non-fatal: the token is usable for this request and cached.
			r.logger.Warn("persist refreshed token", "connector", creds.ConnectorType, "user_id", creds.UserID, "error", err)
		}
	}
	if r.cache != nil {
		if err := r.cache.Put(ctx, key, fresh); err != nil {
			r.logger.Debug("cache refreshed token", "error", err)
		}
	}

	r.logger.Info("oauth token refreshed",
		"connector", creds.ConnectorType,
		"user_id", creds.UserID,
		"expires_at", fresh.ExpiresAt,
	)
	return fresh, nil
}

// awaitRefresh polls the cache and the store while another instance refreshes.
func (r *CredentialResolver) awaitRefresh(ctx context.Context, key string, creds *domain.Credentials) *domain.OAuthTokenSet {
	deadline := time.NewTimer(refreshWait)
	defer deadline.Stop()
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline.C:
			return nil
		case <-tick.C:
			if ts := r.cached(ctx, key); ts != nil {
				return ts
			}
			if r.store == nil {
				continue
			}
			row, err := r.store.Get(ctx, creds.UserID, creds.ConnectorType)
			if err == nil && row.OAuthTokens != nil &&
				row.OAuthTokens.AccessToken != creds.AccessToken && !r.needsRefresh(row.OAuthTokens) {
				return row.OAuthTokens
			}
		}
	}
}

func (r *CredentialResolver) cached(ctx context.Context, key string) *domain.OAuthTokenSet {
	if r.cache == nil {
		return nil
	}
	ts, ok := r.cache.Get(ctx, key)
	if !ok || r.needsRefresh(ts) {
		return nil
	}
	return ts
}

func (r *CredentialResolver) needsRefresh(ts *domain.OAuthTokenSet) bool {
	if ts.ExpiresAt.IsZero() {
		return false
	}
	return ts.ExpiresAt.Sub(r.now()) < domain.RefreshWindow
}

func applyTokens(creds *domain.Credentials, ts *domain.OAuthTokenSet) *domain.Credentials {
	out := *creds
	out.AccessToken = ts.AccessToken
	out.RefreshToken = ts.RefreshToken
	exp := ts.ExpiresAt
	out.TokenExpiry = &exp
	return &out
}

// TokenCacheKey fingerprints a refresh token. The raw token never becomes a key.
func TokenCacheKey(t domain.ConnectorType, refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return string(t) + ":" + hex.EncodeToString(sum[:])[:16]
}
