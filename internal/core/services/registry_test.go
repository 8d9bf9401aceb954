package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

func TestProviderRegistry_ListIsSorted(t *testing.T) {
	r := NewProviderRegistry()

	types := r.List()
	require.Len(t, types, 4)

	tags := make([]string, len(types))
	for i, ct := range types {
		tags[i] = string(ct.Provider)
	}
	assert.Equal(t, []string{"dropbox", "google_drive", "onedrive", "sharepoint"}, tags)
}

func TestProviderRegistry_Get(t *testing.T) {
	r := NewProviderRegistry()

	ct, err := r.Get(domain.ProviderGoogleDrive)
	require.NoError(t, err)
	assert.Equal(t, "Google Drive", ct.Name)
	assert.True(t, ct.SupportsDelta)

	ct, err = r.Get(domain.ProviderSharePoint)
	require.NoError(t, err)
	assert.False(t, ct.SupportsDelta)

	_, err = r.Get("ftp")
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
}

func TestProviderRegistry_ValidateConfig(t *testing.T) {
	r := NewProviderRegistry()

	err := r.ValidateConfig(domain.ProviderGoogleDrive, map[string]string{"scope": "folder-1"})
	assert.NoError(t, err)

	err = r.ValidateConfig(domain.ProviderGoogleDrive, nil)
	assert.NoError(t, err)
}

func TestProviderRegistry_ValidateConfig_UnknownKey(t *testing.T) {
	r := NewProviderRegistry()

	err := r.ValidateConfig(domain.ProviderGoogleDrive, map[string]string{"folder": "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "folder")
}

func TestProviderRegistry_ValidateConfig_RequiredKey(t *testing.T) {
	r := NewProviderRegistry()

	err := r.ValidateConfig(domain.ProviderSharePoint, map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site_id")

	err = r.ValidateConfig(domain.ProviderSharePoint, map[string]string{"site_id": "site-1"})
	assert.NoError(t, err)
}

func TestProviderRegistry_ValidateConfig_ValueTooLong(t *testing.T) {
	r := NewProviderRegistry()

	err := r.ValidateConfig(domain.ProviderGoogleDrive, map[string]string{
		"scope": strings.Repeat("x", 2000),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
