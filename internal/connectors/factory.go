// Package connectors provides implementations of the Connector interface
// for the supported storage providers, and the factory that builds them
// from a borrowed connection.
//
// Connectors are registered with the Factory at startup.
package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/inlet/internal/connectors/dropboxconn"
	"github.com/custodia-labs/inlet/internal/connectors/googledrive"
	"github.com/custodia-labs/inlet/internal/connectors/oauth"
	"github.com/custodia-labs/inlet/internal/connectors/onedrive"
	"github.com/custodia-labs/inlet/internal/connectors/sharepoint"
	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ConnectorFactory = (*Factory)(nil)

// Factory builds connectors and performs provider-specific OAuth
// operations.
type Factory struct {
	mu       sync.RWMutex
	builders map[domain.Provider]driven.ConnectorBuilder
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{builders: make(map[domain.Provider]driven.ConnectorBuilder)}
}

// NewDefaultFactory creates a factory with all built-in connectors
// registered.
func NewDefaultFactory() *Factory {
	f := NewFactory()
	f.Register(domain.ProviderGoogleDrive, func(conn domain.Connection, scope string) (driven.Connector, error) {
		return googledrive.New(conn, scope)
	})
	f.Register(domain.ProviderOneDrive, func(conn domain.Connection, scope string) (driven.Connector, error) {
		return onedrive.New(conn, scope)
	})
	f.Register(domain.ProviderSharePoint, func(conn domain.Connection, scope string) (driven.Connector, error) {
		return sharepoint.New(conn, scope)
	})
	f.Register(domain.ProviderDropbox, func(conn domain.Connection, scope string) (driven.Connector, error) {
		return dropboxconn.New(conn, scope)
	})
	return f
}

// Register adds a connector builder for a provider.
func (f *Factory) Register(provider domain.Provider, builder driven.ConnectorBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[provider] = builder
}

// Create returns a connector bound to the given connection and scope.
func (f *Factory) Create(conn domain.Connection, scope string) (driven.Connector, error) {
	f.mu.RLock()
	builder, ok := f.builders[conn.Provider]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, conn.Provider)
	}
	return builder(conn, scope)
}

// SupportedProviders returns all registered provider tags.
func (f *Factory) SupportedProviders() []domain.Provider {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]domain.Provider, 0, len(f.builders))
	for p := range f.builders {
		out = append(out, p)
	}
	return out
}

// Endpoints returns the OAuth endpoints for a provider. Microsoft
// endpoints carry a {tenant} placeholder substituted at call time.
func (f *Factory) Endpoints(provider domain.Provider) *driven.OAuthEndpoints {
	switch provider {
	case domain.ProviderGoogleDrive:
		return &driven.OAuthEndpoints{
			AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
			Scopes: []string{
				"https://www.googleapis.com/auth/drive.readonly",
				"https://www.googleapis.com/auth/userinfo.email",
			},
		}
	case domain.ProviderOneDrive:
		return &driven.OAuthEndpoints{
			AuthURL:  "https://login.microsoftonline.com/{tenant}/oauth2/v2.0/authorize",
			TokenURL: "https://login.microsoftonline.com/{tenant}/oauth2/v2.0/token",
			Scopes:   []string{"offline_access", "User.Read", "Files.Read.All"},
		}
	case domain.ProviderSharePoint:
		return &driven.OAuthEndpoints{
			AuthURL:  "https://login.microsoftonline.com/{tenant}/oauth2/v2.0/authorize",
			TokenURL: "https://login.microsoftonline.com/{tenant}/oauth2/v2.0/token",
			Scopes:   []string{"offline_access", "User.Read", "Sites.Read.All"},
		}
	case domain.ProviderDropbox:
		return &driven.OAuthEndpoints{
			AuthURL:  "https://www.dropbox.com/oauth2/authorize",
			TokenURL: "https://api.dropboxapi.com/oauth2/token",
			Scopes:   []string{"account_info.read", "files.content.read"},
		}
	default:
		return nil
	}
}

// BuildAuthURL constructs the provider authorization URL.
func (f *Factory) BuildAuthURL(provider domain.Provider, app domain.OAuthApp, redirectURI, state string) (string, error) {
	endpoints := f.Endpoints(provider)
	if endpoints == nil {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, provider)
	}

	authURL := app.AuthURL
	if authURL == "" {
		authURL = substituteTenant(endpoints.AuthURL, app.TenantID)
	}
	if len(app.Scopes) == 0 {
		app.Scopes = endpoints.Scopes
	}

	extra := url.Values{}
	switch provider {
	case domain.ProviderGoogleDrive:
		// Google only returns a refresh token with offline access and an
		// explicit consent prompt.
		extra.Set("access_type", "offline")
		extra.Set("prompt", "consent")
	case domain.ProviderDropbox:
		extra.Set("token_access_type", "offline")
	}

	return oauth.BuildAuthURL(authURL, app, redirectURI, state, extra), nil
}

// ExchangeCode exchanges an authorization code for tokens.
func (f *Factory) ExchangeCode(
	ctx context.Context,
	provider domain.Provider, app domain.OAuthApp, code, redirectURI string,
) (*domain.OAuthToken, error) {
	tokenURL, err := f.tokenURL(provider, app)
	if err != nil {
		return nil, err
	}
	if len(app.Scopes) == 0 {
		app.Scopes = f.Endpoints(provider).Scopes
	}

	resp, err := oauth.ExchangeCode(ctx, tokenURL, app, code, redirectURI)
	if err != nil {
		return nil, err
	}
	return resp.Token(""), nil
}

// RefreshToken mints a new access token from a refresh token.
func (f *Factory) RefreshToken(
	ctx context.Context,
	provider domain.Provider, app domain.OAuthApp, refreshToken string,
) (*domain.OAuthToken, error) {
	tokenURL, err := f.tokenURL(provider, app)
	if err != nil {
		return nil, err
	}
	if len(app.Scopes) == 0 {
		app.Scopes = f.Endpoints(provider).Scopes
	}

	resp, err := oauth.Refresh(ctx, tokenURL, app, refreshToken)
	if err != nil {
		return nil, err
	}
	return resp.Token(refreshToken), nil
}

// AccountIdentifier fetches the provider-side account name for a token.
func (f *Factory) AccountIdentifier(ctx context.Context, provider domain.Provider, accessToken string) (string, error) {
	switch provider {
	case domain.ProviderGoogleDrive:
		var info struct {
			Email string `json:"email"`
		}
		err := userinfo(ctx, http.MethodGet, "https://www.googleapis.com/oauth2/v2/userinfo", accessToken, &info)
		return info.Email, err

	case domain.ProviderOneDrive, domain.ProviderSharePoint:
		var info struct {
			UserPrincipalName string `json:"userPrincipalName"`
			Mail              string `json:"mail"`
		}
		err := userinfo(ctx, http.MethodGet, "https://graph.microsoft.com/v1.0/me", accessToken, &info)
		if info.Mail != "" {
			return info.Mail, err
		}
		return info.UserPrincipalName, err

	case domain.ProviderDropbox:
		var info struct {
			Email string `json:"email"`
		}
		err := userinfo(ctx, http.MethodPost, "https://api.dropboxapi.com/2/users/get_current_account", accessToken, &info)
		return info.Email, err

	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, provider)
	}
}

func (f *Factory) tokenURL(provider domain.Provider, app domain.OAuthApp) (string, error) {
	if app.TokenURL != "" {
		return app.TokenURL, nil
	}
	endpoints := f.Endpoints(provider)
	if endpoints == nil {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, provider)
	}
	return substituteTenant(endpoints.TokenURL, app.TenantID), nil
}

// substituteTenant fills the Microsoft tenant placeholder. Single-tenant
// apps pass their directory ID; everything else uses the common endpoint.
func substituteTenant(endpoint, tenantID string) string {
	if tenantID == "" {
		tenantID = "common"
	}
	return strings.ReplaceAll(endpoint, "{tenant}", tenantID)
}

// userinfo performs an authenticated request and decodes the JSON reply.
func userinfo(ctx context.Context, method, endpoint, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(out)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.ErrAuthExpired
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: userinfo status %d", domain.ErrTransient, resp.StatusCode)
	default:
		return fmt.Errorf("userinfo failed with status %d", resp.StatusCode)
	}
}
