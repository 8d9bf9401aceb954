// Package sharepoint syncs documents from SharePoint site libraries via
// Microsoft Graph. Site libraries carry no stable delta token in this
// API surface, so the connector enumerates the full tree every sync and
// relies on the orchestrator's version-map diff for change and deletion
// detection.
package sharepoint

import (
	"context"
	"fmt"
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

// Connector enumerates documents from a SharePoint site drive.
type Connector struct {
	conn   domain.Connection
	siteID string
	scope  string
	client *graph.Client

	mu     sync.Mutex
	closed bool
}

// New creates a SharePoint connector bound to a borrowed connection.
// The connection config must carry site_id; tenant_id rides on the OAuth
// app. Scope is a folder item ID; empty walks the library root.
func New(conn domain.Connection, scope string) (*Connector, error) {
	siteID := conn.Config["site_id"]
	if siteID == "" {
		return nil, fmt.Errorf("%w: sharepoint requires site_id", domain.ErrInvalidInput)
	}

	limiter := ratelimit.New(string(domain.ProviderSharePoint))
	return &Connector{
		conn:   conn,
		siteID: siteID,
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
	return domain.ProviderSharePoint
}

// Capabilities returns what this connector supports.
func (c *Connector) Capabilities() driven.Capabilities {
	return driven.Capabilities{
		SupportsDelta:  false,
		SupportsRevoke: false,
	}
}

// Authenticate verifies the token can reach the configured site.
func (c *Connector) Authenticate(ctx context.Context) error {
	var site struct {
		ID string `json:"id"`
	}
	return c.client.GetJSON(ctx, "/sites/"+url.PathEscape(c.siteID), &site)
}

// ListChanges serves one page of the full enumeration walk. Folders
// discovered on a page queue behind it; the walk is complete when no
// continuation link and no pending folders remain.
func (c *Connector) ListChanges(ctx context.Context, cursor string) (*driven.Page, error) {
	cur, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	link := cur.Link
	pending := append([]string(nil), cur.Pending...)

	if link == "" && cur.IsEmpty() {
		link = c.childrenURL(c.scope)
	}
	if link == "" {
		// Continue with the next queued folder.
		link = c.childrenURL(pending[0])
		pending = pending[1:]
	}

	var page graph.ItemPage
	if err := c.client.GetJSON(ctx, link, &page); err != nil {
		return nil, err
	}

	items := make([]domain.RemoteItem, 0, len(page.Value))
	for _, di := range page.Value {
		if di.IsFolder() {
			pending = append(pending, di.ID)
			continue
		}
		items = append(items, toRemoteItem(di))
	}

	next := Cursor{Version: CursorVersion, Link: page.NextLink, Pending: pending}
	if next.Link == "" && len(next.Pending) == 0 {
		// Walk complete. Full enumerations carry no resume token; the
		// next sync starts over and the version map does the diffing.
		return &driven.Page{Items: items, NextCursor: "", HasMore: false}, nil
	}
	return &driven.Page{Items: items, NextCursor: next.Encode(), HasMore: true}, nil
}

// FetchContent opens the content stream for a library item.
func (c *Connector) FetchContent(ctx context.Context, itemID string) (io.ReadCloser, error) {
	return c.client.Get(ctx, c.drivePath()+"/items/"+url.PathEscape(itemID)+"/content")
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

func (c *Connector) drivePath() string {
	return "/sites/" + url.PathEscape(c.siteID) + "/drive"
}

// childrenURL lists the children of a folder, or the library root when
// folderID is empty.
func (c *Connector) childrenURL(folderID string) string {
	if folderID == "" {
		return c.drivePath() + "/root/children"
	}
	return c.drivePath() + "/items/" + url.PathEscape(folderID) + "/children"
}

// toRemoteItem maps a Graph drive item onto the normalized item view.
func toRemoteItem(di graph.DriveItem) domain.RemoteItem {
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
	}
}
