// Package dropboxconn syncs files from Dropbox. The Dropbox
// list_folder/continue API is cursor-native: every response carries an
// opaque cursor and a has_more flag, and deletions arrive as explicit
// entries, so the cursor maps straight onto the connector contract.
package dropboxconn

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	dbauth "github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/auth"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/users"

	"github.com/custodia-labs/inlet/internal/connectors/ratelimit"
	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector fetches changes from Dropbox.
type Connector struct {
	conn    domain.Connection
	scope   string
	client  files.Client
	user    users.Client
	authCl  dbauth.Client
	limiter *ratelimit.Limiter

	mu     sync.Mutex
	closed bool
}

// New creates a Dropbox connector bound to a borrowed connection.
// Scope is a folder path like "/reports"; empty syncs the whole account.
func New(conn domain.Connection, scope string) (*Connector, error) {
	cfg := dropbox.Config{Token: conn.Token.AccessToken}
	if scope != "" && !strings.HasPrefix(scope, "/") {
		scope = "/" + scope
	}
	return &Connector{
		conn:    conn,
		scope:   scope,
		client:  files.New(cfg),
		user:    users.New(cfg),
		authCl:  dbauth.New(cfg),
		limiter: ratelimit.New(string(domain.ProviderDropbox)),
	}, nil
}

// Provider returns the provider tag.
func (c *Connector) Provider() domain.Provider {
	return domain.ProviderDropbox
}

// Capabilities returns what this connector supports.
func (c *Connector) Capabilities() driven.Capabilities {
	return driven.Capabilities{
		SupportsDelta:  true,
		SupportsRevoke: true,
	}
}

// Authenticate verifies the bound token with an account lookup.
func (c *Connector) Authenticate(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := c.user.GetCurrentAccount(); err != nil {
		return wrapError(err)
	}
	return nil
}

// ListChanges returns one page of the folder listing at cursor. The
// Dropbox cursor is stored as-is; it is already opaque.
func (c *Connector) ListChanges(ctx context.Context, cursor string) (*driven.Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var (
		entries []files.IsMetadata
		next    string
		hasMore bool
		err     error
	)

	if cursor == "" {
		arg := files.NewListFolderArg(c.scope)
		arg.Recursive = true
		arg.IncludeDeleted = true
		var res *files.ListFolderResult
		res, err = c.client.ListFolder(arg)
		if err == nil {
			entries, next, hasMore = res.Entries, res.Cursor, res.HasMore
		}
	} else {
		var res *files.ListFolderResult
		res, err = c.client.ListFolderContinue(files.NewListFolderContinueArg(cursor))
		if err == nil {
			entries, next, hasMore = res.Entries, res.Cursor, res.HasMore
		}
	}
	if err != nil {
		return nil, wrapError(err)
	}

	items := make([]domain.RemoteItem, 0, len(entries))
	for _, entry := range entries {
		if item, ok := toRemoteItem(entry); ok {
			items = append(items, item)
		}
	}

	return &driven.Page{Items: items, NextCursor: next, HasMore: hasMore}, nil
}

// FetchContent opens the content stream for a file path.
func (c *Connector) FetchContent(ctx context.Context, itemID string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	_, content, err := c.client.Download(files.NewDownloadArg(itemID))
	if err != nil {
		return nil, wrapError(err)
	}
	return content, nil
}

// Revoke invalidates the borrowed token at Dropbox.
func (c *Connector) Revoke(_ context.Context) error {
	if err := c.authCl.TokenRevoke(); err != nil {
		return wrapError(err)
	}
	return nil
}

// Close releases resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// toRemoteItem maps a Dropbox metadata entry onto the normalized item
// view. Deleted entries carry no ID, so the lowercased path is the item
// identity for this provider.
func toRemoteItem(entry files.IsMetadata) (domain.RemoteItem, bool) {
	switch md := entry.(type) {
	case *files.FileMetadata:
		return domain.RemoteItem{
			ID:           md.PathLower,
			Name:         md.Name,
			Path:         md.PathDisplay,
			Size:         int64(md.Size),
			ModifiedTime: md.ServerModified,
			Version:      md.Rev,
		}, true
	case *files.DeletedMetadata:
		return domain.RemoteItem{
			ID:      md.PathLower,
			Name:    md.Name,
			Deleted: true,
		}, true
	default:
		// Folders carry no content.
		return domain.RemoteItem{}, false
	}
}

// wrapError converts Dropbox SDK errors into the domain taxonomy.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var rle dbauth.RateLimitAPIError
	if errors.As(err, &rle) {
		retry := time.Duration(0)
		if rle.RateLimitError != nil {
			retry = time.Duration(rle.RateLimitError.RetryAfter) * time.Second
		}
		return &domain.RateLimitError{RetryAfter: retry}
	}

	var authErr dbauth.AuthAPIError
	if errors.As(err, &authErr) {
		return domain.ErrAuthExpired
	}

	var contErr files.ListFolderContinueAPIError
	if errors.As(err, &contErr) {
		if contErr.EndpointError != nil && contErr.EndpointError.Tag == files.ListFolderContinueErrorReset {
			return domain.ErrInvalidCursor
		}
	}

	var dlErr files.DownloadAPIError
	if errors.As(err, &dlErr) {
		if dlErr.EndpointError != nil && dlErr.EndpointError.Path != nil &&
			dlErr.EndpointError.Path.Tag == files.LookupErrorNotFound {
			return domain.ErrNotFound
		}
	}

	return errors.Join(domain.ErrTransient, err)
}
