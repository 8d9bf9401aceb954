package googledrive

import (
	"strconv"
	"strings"
)

// Config holds Google Drive connector configuration parsed from the
// connection's provider-specific settings.
type Config struct {
	// FolderID limits syncing to one folder subtree (the sync scope).
	// Empty syncs the whole drive.
	FolderID string

	// MimeTypeFilter limits syncing to specific MIME types (optional).
	MimeTypeFilter []string

	// PageSize is the page size for API requests.
	PageSize int64
}

// DefaultPageSize is the files.list / changes.list page size.
const DefaultPageSize = 100

// ParseConfig extracts configuration from connection config and scope.
func ParseConfig(cfg map[string]string, scope string) *Config {
	out := &Config{
		FolderID: scope,
		PageSize: DefaultPageSize,
	}

	if val := cfg["mime_types"]; val != "" {
		out.MimeTypeFilter = strings.Split(val, ",")
		for i := range out.MimeTypeFilter {
			out.MimeTypeFilter[i] = strings.TrimSpace(out.MimeTypeFilter[i])
		}
	}

	if val := cfg["page_size"]; val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil && n > 0 {
			out.PageSize = n
		}
	}

	return out
}

// WantsMIME checks whether a MIME type passes the configured filter.
func (c *Config) WantsMIME(mimeType string) bool {
	if len(c.MimeTypeFilter) == 0 {
		return true
	}
	for _, m := range c.MimeTypeFilter {
		if m == mimeType {
			return true
		}
	}
	return false
}
