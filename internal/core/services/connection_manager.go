package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
	"github.com/custodia-labs/inlet/internal/core/ports/driving"
	"github.com/custodia-labs/inlet/internal/logger"
)

// Ensure ConnectionManager implements the interface.
var _ driving.ConnectionService = (*ConnectionManager)(nil)

// accountCacheTTL bounds how long a provider account lookup is reused.
const accountCacheTTL = 15 * time.Minute

// ConnectionManager owns the connection lifecycle: establishing sessions,
// keeping tokens fresh, and revoking them. It is the only writer of the
// connection store. Refresh is proactive: a token inside the refresh
// margin is renewed before it is handed out, so a borrowed connection
// never starts a sync with a token about to expire.
type ConnectionManager struct {
	store   driven.ConnectionStore
	factory driven.ConnectorFactory
	apps    map[domain.Provider]domain.OAuthApp

	locks    *keyMutex
	accounts *ttlCache
	now      func() time.Time
}

// NewConnectionManager creates a connection manager. The apps map carries
// the OAuth application credentials per provider.
func NewConnectionManager(
	store driven.ConnectionStore,
	factory driven.ConnectorFactory,
	apps map[domain.Provider]domain.OAuthApp,
) *ConnectionManager {
	now := time.Now
	return &ConnectionManager{
		store:    store,
		factory:  factory,
		apps:     apps,
		locks:    newKeyMutex(),
		accounts: newTTLCache(accountCacheTTL, now),
		now:      now,
	}
}

// SetClock overrides the clock for tests.
func (m *ConnectionManager) SetClock(now func() time.Time) {
	m.now = now
	m.accounts = newTTLCache(accountCacheTTL, now)
}

// Connect exchanges an OAuth authorization code and persists the
// resulting connection. Reconnecting an existing (user, provider) keeps
// its ID and provider config.
func (m *ConnectionManager) Connect(
	ctx context.Context,
	key domain.ConnectionKey,
	code, redirectURI string,
) (*domain.Connection, error) {
	if !key.Provider.Valid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, key.Provider)
	}
	if key.UserID == "" || code == "" {
		return nil, domain.ErrInvalidInput
	}

	app, ok := m.apps[key.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: no OAuth app configured for %s", domain.ErrInvalidInput, key.Provider)
	}

	unlock := m.locks.Lock(key.String())
	defer unlock()

	token, err := m.factory.ExchangeCode(ctx, key.Provider, app, code, redirectURI)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	account, err := m.accountIdentifier(ctx, key.Provider, token.AccessToken)
	if err != nil {
		// The token works; the userinfo lookup is cosmetic.
		logger.Warn("Account lookup failed for %s: %v", key, err)
	}

	conn := domain.Connection{
		ID:                uuid.NewString(),
		UserID:            key.UserID,
		Provider:          key.Provider,
		AccountIdentifier: account,
		Token:             *token,
		Scopes:            app.Scopes,
		CreatedAt:         m.now(),
		UpdatedAt:         m.now(),
	}

	if existing, err := m.store.Load(ctx, key); err == nil {
		conn.ID = existing.ID
		conn.Config = existing.Config
		conn.CreatedAt = existing.CreatedAt
	}

	if err := m.store.Save(ctx, conn); err != nil {
		return nil, fmt.Errorf("save connection: %w", err)
	}

	logger.Info("Connected %s as %s", key, account)
	return &conn, nil
}

// AuthURL builds the provider authorization URL for an interactive
// connect flow.
func (m *ConnectionManager) AuthURL(provider domain.Provider, redirectURI, state string) (string, error) {
	if !provider.Valid() {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, provider)
	}
	app, ok := m.apps[provider]
	if !ok {
		return "", fmt.Errorf("%w: no OAuth app configured for %s", domain.ErrInvalidInput, provider)
	}
	return m.factory.BuildAuthURL(provider, app, redirectURI, state)
}

// Get returns the stored connection for (user, provider).
func (m *ConnectionManager) Get(ctx context.Context, key domain.ConnectionKey) (*domain.Connection, error) {
	conn, err := m.store.Load(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotConnected, key)
	}
	return conn, err
}

// List returns all stored connections.
func (m *ConnectionManager) List(ctx context.Context) ([]domain.Connection, error) {
	return m.store.List(ctx)
}

// Borrow hands out a connection with a token guaranteed to outlive the
// refresh margin. Concurrent borrows of the same key serialize so a
// refresh happens once, not per caller.
func (m *ConnectionManager) Borrow(ctx context.Context, key domain.ConnectionKey) (*domain.Connection, error) {
	unlock := m.locks.Lock(key.String())
	defer unlock()

	conn, err := m.store.Load(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotConnected, key)
	}
	if err != nil {
		return nil, fmt.Errorf("load connection: %w", err)
	}
	if !conn.IsAuthenticated() {
		return nil, fmt.Errorf("%w: %s", domain.ErrReauthRequired, key)
	}

	if conn.NeedsRefresh() {
		if err := m.refresh(ctx, conn); err != nil {
			return nil, err
		}
	} else if conn.Token.IsExpired() {
		// Expired with no refresh token: nothing to renew with.
		return nil, fmt.Errorf("%w: %s", domain.ErrReauthRequired, key)
	}

	return conn, nil
}

// refresh renews the access token and persists the result. The caller
// holds the key lock.
func (m *ConnectionManager) refresh(ctx context.Context, conn *domain.Connection) error {
	app, ok := m.apps[conn.Provider]
	if !ok {
		return fmt.Errorf("%w: no OAuth app configured for %s", domain.ErrReauthRequired, conn.Provider)
	}

	token, err := m.factory.RefreshToken(ctx, conn.Provider, app, conn.Token.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrReauthRequired) {
			return fmt.Errorf("%w: %s", domain.ErrReauthRequired, conn.Key())
		}
		return fmt.Errorf("refresh token: %w", err)
	}

	conn.Token = *token
	conn.UpdatedAt = m.now()
	if err := m.store.Save(ctx, *conn); err != nil {
		return fmt.Errorf("save refreshed connection: %w", err)
	}

	logger.Debug("Refreshed token for %s, expires %s", conn.Key(), token.Expiry.Format(time.RFC3339))
	return nil
}

// RefreshExpiring renews every stored token inside the refresh margin.
// Run periodically by the scheduler so long-idle connections stay warm.
// Returns how many tokens were refreshed.
func (m *ConnectionManager) RefreshExpiring(ctx context.Context) (int, error) {
	conns, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list connections: %w", err)
	}

	refreshed := 0
	var errs []error
	for i := range conns {
		conn := conns[i]
		if !conn.NeedsRefresh() {
			continue
		}

		unlock := m.locks.Lock(conn.Key().String())
		// Reload under the lock; a borrow may have refreshed it already.
		current, err := m.store.Load(ctx, conn.Key())
		if err == nil && current.NeedsRefresh() {
			if err := m.refresh(ctx, current); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", conn.Key(), err))
			} else {
				refreshed++
			}
		}
		unlock()
	}

	return refreshed, errors.Join(errs...)
}

// Revoke revokes the provider token and removes the connection. When the
// provider rejects the revocation because the token is already dead, the
// local record is removed anyway.
func (m *ConnectionManager) Revoke(ctx context.Context, key domain.ConnectionKey) error {
	unlock := m.locks.Lock(key.String())
	defer unlock()

	conn, err := m.store.Load(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrNotConnected, key)
	}
	if err != nil {
		return fmt.Errorf("load connection: %w", err)
	}

	if err := m.revokeProvider(ctx, *conn); err != nil {
		return err
	}

	if err := m.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}

	m.accounts.Delete(conn.Token.AccessToken)
	logger.Info("Revoked %s", key)
	return nil
}

// RevokeMany revokes connections by ID. Each ID is attempted
// independently; failures are reported per ID and never abort the batch.
func (m *ConnectionManager) RevokeMany(ctx context.Context, ids []string) *driving.BulkDeleteResult {
	result := &driving.BulkDeleteResult{
		Deleted: make([]string, 0, len(ids)),
		Errors:  make([]driving.BulkDeleteError, 0),
	}

	for _, id := range ids {
		if err := m.revokeByID(ctx, id); err != nil {
			result.Errors = append(result.Errors, driving.BulkDeleteError{
				ID:    id,
				Error: sanitizeError(err),
			})
			continue
		}
		result.Deleted = append(result.Deleted, id)
	}

	return result
}

func (m *ConnectionManager) revokeByID(ctx context.Context, id string) error {
	conn, err := m.store.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load connection: %w", err)
	}

	unlock := m.locks.Lock(conn.Key().String())
	defer unlock()

	if err := m.revokeProvider(ctx, *conn); err != nil {
		return err
	}

	if err := m.store.Delete(ctx, conn.Key()); err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}

	m.accounts.Delete(conn.Token.AccessToken)
	logger.Info("Revoked %s", conn.Key())
	return nil
}

// revokeProvider performs the provider-side revocation when the connector
// supports one. Dead tokens pass through: a token the provider already
// rejects is as revoked as it gets.
func (m *ConnectionManager) revokeProvider(ctx context.Context, conn domain.Connection) error {
	connector, err := m.factory.Create(conn, "")
	if err != nil {
		return fmt.Errorf("create connector: %w", err)
	}
	defer connector.Close()

	if !connector.Capabilities().SupportsRevoke {
		return nil
	}

	err = connector.Revoke(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrAuthExpired) || errors.Is(err, domain.ErrReauthRequired) {
		logger.Debug("Token for %s already invalid at provider", conn.Key())
		return nil
	}
	return fmt.Errorf("revoke at provider: %w", err)
}

// accountIdentifier resolves the provider-side account name, memoized per
// access token.
func (m *ConnectionManager) accountIdentifier(ctx context.Context, provider domain.Provider, accessToken string) (string, error) {
	if account, ok := m.accounts.Get(accessToken); ok {
		return account, nil
	}
	account, err := m.factory.AccountIdentifier(ctx, provider, accessToken)
	if err != nil {
		return "", err
	}
	m.accounts.Set(accessToken, account)
	return account, nil
}
