package googledrive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg := ParseConfig(nil, "")
	assert.Empty(t, cfg.FolderID)
	assert.Empty(t, cfg.MimeTypeFilter)
	assert.Equal(t, int64(DefaultPageSize), cfg.PageSize)
}

func TestParseConfig_ScopeAndOverrides(t *testing.T) {
	cfg := ParseConfig(map[string]string{
		"mime_types": "application/pdf, text/plain",
		"page_size":  "250",
	}, "folder-1")

	assert.Equal(t, "folder-1", cfg.FolderID)
	assert.Equal(t, []string{"application/pdf", "text/plain"}, cfg.MimeTypeFilter)
	assert.Equal(t, int64(250), cfg.PageSize)
}

func TestParseConfig_BadPageSizeKeepsDefault(t *testing.T) {
	cfg := ParseConfig(map[string]string{"page_size": "-5"}, "")
	assert.Equal(t, int64(DefaultPageSize), cfg.PageSize)
}

func TestWantsMIME(t *testing.T) {
	open := ParseConfig(nil, "")
	assert.True(t, open.WantsMIME("image/png"))

	filtered := ParseConfig(map[string]string{"mime_types": "application/pdf"}, "")
	assert.True(t, filtered.WantsMIME("application/pdf"))
	assert.False(t, filtered.WantsMIME("image/png"))
}
