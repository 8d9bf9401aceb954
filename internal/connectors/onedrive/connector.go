// Package onedrive syncs files from Microsoft OneDrive using the Graph
// delta API. The first delta walk enumerates the whole tree and ends with
// a delta link; later syncs replay only changes, deletions included.
package onedrive

import (
	"context"
	"io"
	"net/url"
	"sync"

	"github.com/custodia-labs/inlet/internal/connectors/graph"
	"github.com/custodia-labs/inlet/internal/connectors/ratelimit"
	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector fetches changes from OneDrive.
type Connector struct {
	conn   domain.Connection
	scope  string
	client *graph.Client

	mu     sync.Mutex
	closed bool
}

// New creates a OneDrive connector bound to a borrowed connection.
// Scope is a folder item ID; empty syncs the drive root.
func New(conn domain.Connection, scope string) (*Connector, error) {
	limiter := ratelimit.New(string(domain.ProviderOneDrive))
	return &Connector{
		conn:   conn,
		scope:  scope,
		client: graph.NewClient(conn.Token.AccessToken, limiter),
	}, nil
}

// Client exposes the Graph client for endpoint override in tests.
func (c *Connector) Client() *graph.Client {
	return c.client
}

// Provider returns the provider tag.
func (c *Connector) Provider() domain.Provider {
	return domain.ProviderOneDrive
}

// Capabilities returns what this connector supports.
func (c *Connector) Capabilities() driven.Capabilities {
	// Graph has no self-serve token revocation endpoint; revoke is a
	// local forget and the token ages out.
	return driven.Capabilities{
		SupportsDelta:  true,
		SupportsRevoke: false,
	}
}

// Authenticate verifies the bound token with a profile call.
func (c *Connector) Authenticate(ctx context.Context) error {
	var user graph.User
	return c.client.GetJSON(ctx, "/me", &user)
}

// ListChanges returns one page of the delta listing at cursor.
func (c *Connector) ListChanges(ctx context.Context, cursor string) (*driven.Page, error) {
	cur, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	link := cur.Link
	if link == "" {
		link = c.initialDeltaURL()
	}

	var page graph.ItemPage
	if err := c.client.GetJSON(ctx, link, &page); err != nil {
		return nil, err
	}

	items := make([]domain.RemoteItem, 0, len(page.Value))
	for _, di := range page.Value {
		if item, ok := toRemoteItem(di); ok {
			items = append(items, item)
		}
	}

	next := *cur
	if page.NextLink != "" {
		next.Link = page.NextLink
		return &driven.Page{Items: items, NextCursor: next.Encode(), HasMore: true}, nil
	}

	next.Link = page.DeltaLink
	return &driven.Page{Items: items, NextCursor: next.Encode(), HasMore: false}, nil
}

// FetchContent opens the content stream for a drive item.
func (c *Connector) FetchContent(ctx context.Context, itemID string) (io.ReadCloser, error) {
	return c.client.Get(ctx, "/me/drive/items/"+url.PathEscape(itemID)+"/content")
}

// Revoke forgets the borrowed token. No provider-side call exists.
func (c *Connector) Revoke(_ context.Context) error {
	return nil
}

// Close releases resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// initialDeltaURL is the first delta request for the configured scope.
func (c *Connector) initialDeltaURL() string {
	if c.scope != "" {
		return "/me/drive/items/" + url.PathEscape(c.scope) + "/delta"
	}
	return "/me/drive/root/delta"
}

// toRemoteItem maps a Graph drive item onto the normalized item view.
// Folders are dropped; delta deletion entries surface as deleted items.
func toRemoteItem(di graph.DriveItem) (domain.RemoteItem, bool) {
	if di.IsDeleted() {
		return domain.RemoteItem{ID: di.ID, Deleted: true}, di.ID != ""
	}
	if di.IsFolder() {
		return domain.RemoteItem{}, false
	}

	mime := ""
	if di.File != nil {
		mime = di.File.MimeType
	}

	parent := ""
	path := "/" + di.Name
	if di.ParentReference != nil {
		parent = di.ParentReference.ID
		if di.ParentReference.Path != "" {
			path = di.ParentReference.Path + "/" + di.Name
		}
	}

	// cTag changes on content updates only; fall back to eTag.
	version := di.CTag
	if version == "" {
		version = di.ETag
	}

	return domain.RemoteItem{
		ID:           di.ID,
		Name:         di.Name,
		Path:         path,
		MIMEType:     mime,
		Size:         di.Size,
		ModifiedTime: di.LastModifiedDateTime,
		Version:      version,
		ParentID:     parent,
		WebURL:       di.WebURL,
	}, true
}
