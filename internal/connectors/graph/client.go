// Package graph provides a minimal Microsoft Graph REST client shared by
// the OneDrive and SharePoint connectors.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/inlet/internal/connectors/ratelimit"
)

// BaseURL is the Microsoft Graph v1.0 endpoint.
const BaseURL = "https://graph.microsoft.com/v1.0"

// Client is an authenticated Graph client bound to one access token.
type Client struct {
	http    *http.Client
	token   string
	base    string
	limiter *ratelimit.Limiter
}

// NewClient creates a Graph client for an access token.
func NewClient(token string, limiter *ratelimit.Limiter) *Client {
	return &Client{
		http:    &http.Client{Timeout: 60 * time.Second},
		token:   token,
		base:    BaseURL,
		limiter: limiter,
	}
}

// SetBaseURL overrides the Graph endpoint. Used by tests.
func (c *Client) SetBaseURL(base string) {
	c.base = strings.TrimRight(base, "/")
}

// GetJSON issues a GET and decodes the JSON response into out.
// The url may be a path relative to the Graph base or an absolute
// continuation link (@odata.nextLink / @odata.deltaLink).
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}
	return nil
}

// Get issues a GET and returns the raw body. The caller closes it.
func (c *Client) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	return c.get(ctx, url)
}

func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if !strings.HasPrefix(url, "http") {
		url = c.base + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, wrapTransportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		err := wrapStatusError(resp)
		if c.limiter != nil {
			recordThrottle(c.limiter, err)
		}
		return nil, err
	}

	return resp.Body, nil
}
