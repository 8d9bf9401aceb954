package domain

import "time"

// RefreshMargin is how close to expiry a token may get before the
// connection manager refreshes it proactively. Refreshing before use avoids
// burning an expensive provider call on a 401.
const RefreshMargin = 60 * time.Second

// OAuthToken holds the live token material for a connection.
type OAuthToken struct {
	// AccessToken is the short-lived bearer token for API access.
	AccessToken string `json:"access_token"`

	// RefreshToken is the long-lived token used to mint new access tokens.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`

	// Expiry is when the access token expires. Zero means non-expiring.
	Expiry time.Time `json:"expiry,omitempty"`
}

// IsExpired returns true if the access token has expired.
func (t *OAuthToken) IsExpired() bool {
	if t.Expiry.IsZero() {
		return false
	}
	return time.Now().After(t.Expiry)
}

// ExpiresWithin returns true if the token expires within d.
func (t *OAuthToken) ExpiresWithin(d time.Duration) bool {
	if t.Expiry.IsZero() {
		return false
	}
	return time.Now().Add(d).After(t.Expiry)
}

// Connection is an authenticated session for one (user, provider) pair.
// The connection manager owns its lifecycle; a connector borrows it for one
// sync job and must not retain it afterwards.
type Connection struct {
	// ID is the unique identifier (UUID).
	ID string `json:"id"`

	// UserID identifies the owning user.
	UserID string `json:"user_id"`

	// Provider is the external provider this connection authenticates to.
	Provider Provider `json:"provider"`

	// AccountIdentifier is the provider-side account (email or username),
	// fetched from the provider's userinfo endpoint after authentication.
	AccountIdentifier string `json:"account_identifier,omitempty"`

	// Token holds the OAuth token material.
	Token OAuthToken `json:"token"`

	// Scopes are the OAuth scopes granted to this connection.
	Scopes []string `json:"scopes,omitempty"`

	// Config carries provider-specific settings (tenant_id, site_id,
	// folder filters). Additive across providers.
	Config map[string]string `json:"config,omitempty"`

	// CreatedAt is when the connection was established.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the connection was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the (user, provider) identity of the connection.
func (c *Connection) Key() ConnectionKey {
	return ConnectionKey{UserID: c.UserID, Provider: c.Provider}
}

// IsAuthenticated returns true if the connection holds a usable token.
func (c *Connection) IsAuthenticated() bool {
	return c.Token.AccessToken != ""
}

// NeedsRefresh returns true if the access token is inside the refresh
// margin and a refresh token is available.
func (c *Connection) NeedsRefresh() bool {
	return c.Token.ExpiresWithin(RefreshMargin) && c.Token.RefreshToken != ""
}

// ConnectionKey identifies a connection by (user, provider).
type ConnectionKey struct {
	UserID   string
	Provider Provider
}

// String renders the key for lock maps and log lines.
func (k ConnectionKey) String() string {
	return k.UserID + "/" + string(k.Provider)
}

// OAuthApp holds the OAuth application credentials a connector is
// constructed from. Client credentials are shared across user connections.
type OAuthApp struct {
	// ClientID is the OAuth client ID from the provider console.
	ClientID string `json:"client_id"`

	// ClientSecret is the OAuth client secret.
	ClientSecret string `json:"client_secret"`

	// Scopes are the OAuth scopes to request.
	Scopes []string `json:"scopes,omitempty"`

	// AuthURL overrides the authorization endpoint (optional).
	AuthURL string `json:"auth_url,omitempty"`

	// TokenURL overrides the token exchange endpoint (optional).
	TokenURL string `json:"token_url,omitempty"`

	// TenantID scopes Microsoft endpoints to a directory tenant.
	// Ignored by providers without tenancy.
	TenantID string `json:"tenant_id,omitempty"`
}
