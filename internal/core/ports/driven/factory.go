package driven

import (
	"context"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// ConnectorBuilder creates a Connector bound to a borrowed connection and
// a sync scope.
type ConnectorBuilder func(conn domain.Connection, scope string) (Connector, error)

// OAuthEndpoints provides the OAuth endpoints and default scopes for a
// provider. TenantID substitutes into Microsoft endpoints when set.
type OAuthEndpoints struct {
	// AuthURL is the authorization endpoint.
	AuthURL string

	// TokenURL is the token exchange endpoint.
	TokenURL string

	// Scopes are the default OAuth scopes to request.
	Scopes []string
}

// ConnectorFactory creates connectors and performs provider-specific OAuth
// operations. It maintains a registry of providers and their builders.
type ConnectorFactory interface {
	// Create returns a Connector bound to the given connection and scope.
	// Returns domain.ErrUnsupportedProvider for unknown providers.
	Create(conn domain.Connection, scope string) (Connector, error)

	// Register adds a connector builder for a provider.
	Register(provider domain.Provider, builder ConnectorBuilder)

	// SupportedProviders returns all registered provider tags.
	SupportedProviders() []domain.Provider

	// Endpoints returns the OAuth endpoints for a provider, or nil for
	// unknown providers.
	Endpoints(provider domain.Provider) *OAuthEndpoints

	// BuildAuthURL constructs the provider authorization URL.
	BuildAuthURL(provider domain.Provider, app domain.OAuthApp, redirectURI, state string) (string, error)

	// ExchangeCode exchanges an authorization code for tokens.
	ExchangeCode(ctx context.Context, provider domain.Provider, app domain.OAuthApp, code, redirectURI string) (*domain.OAuthToken, error)

	// RefreshToken mints a new access token from a refresh token.
	// Returns domain.ErrReauthRequired when the refresh token itself is
	// expired or revoked.
	RefreshToken(ctx context.Context, provider domain.Provider, app domain.OAuthApp, refreshToken string) (*domain.OAuthToken, error)

	// AccountIdentifier fetches the provider-side account name (email or
	// username) for an access token.
	AccountIdentifier(ctx context.Context, provider domain.Provider, accessToken string) (string, error)
}
