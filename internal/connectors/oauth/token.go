// Package oauth provides OAuth code exchange and token refresh against
// external providers.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// invalidGrantError is the RFC 6749 error code for an expired or revoked
// refresh token.
const invalidGrantError = "invalid_grant"

// TokenResponse holds the response from a token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// Token converts the response into a domain token. When the provider
// omits the refresh token on refresh, prior keeps the existing one.
func (r *TokenResponse) Token(prior string) *domain.OAuthToken {
	tok := &domain.OAuthToken{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = prior
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}
	if r.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return tok
}

// ExchangeCode exchanges an authorization code for tokens.
func ExchangeCode(
	ctx context.Context,
	tokenURL string, app domain.OAuthApp, code, redirectURI string,
) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("client_id", app.ClientID)
	data.Set("client_secret", app.ClientSecret)
	data.Set("code", code)
	data.Set("redirect_uri", redirectURI)

	return post(ctx, tokenURL, data)
}

// Refresh mints a new access token from a refresh token.
// Returns domain.ErrReauthRequired when the provider reports the refresh
// token itself as invalid (invalid_grant).
func Refresh(
	ctx context.Context,
	tokenURL string, app domain.OAuthApp, refreshToken string,
) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("client_id", app.ClientID)
	data.Set("client_secret", app.ClientSecret)
	data.Set("refresh_token", refreshToken)
	if len(app.Scopes) > 0 {
		data.Set("scope", strings.Join(app.Scopes, " "))
	}

	return post(ctx, tokenURL, data)
}

func post(ctx context.Context, tokenURL string, data url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			if errResp.Error == invalidGrantError {
				return nil, fmt.Errorf("%w: %s", domain.ErrReauthRequired, errResp.Description)
			}
			return nil, fmt.Errorf("token error: %s - %s", errResp.Error, errResp.Description)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: token endpoint status %d", domain.ErrTransient, resp.StatusCode)
		}
		return nil, fmt.Errorf("token request failed with status %d", resp.StatusCode)
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	return &tokenResp, nil
}

// BuildAuthURL constructs an authorization URL with the standard
// parameters. Extra holds provider-specific additions such as
// access_type=offline for Google.
func BuildAuthURL(authURL string, app domain.OAuthApp, redirectURI, state string, extra url.Values) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", app.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	if len(app.Scopes) > 0 {
		q.Set("scope", strings.Join(app.Scopes, " "))
	}
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return authURL + "?" + q.Encode()
}
