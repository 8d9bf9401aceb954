package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8487", cfg.Server.Listen)
	assert.Equal(t, 4, cfg.Sync.MaxPerTenant)
	assert.Equal(t, 100, cfg.Sync.BatchSize)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Empty(t, cfg.Providers)
}

func TestLoad_ParsesProvidersAndOverrides(t *testing.T) {
	path := writeConfig(t, `
data_dir = "/var/lib/inlet"
verbose = true

[server]
listen = "0.0.0.0:9000"

[emitter]
endpoint = "https://ingest.example.com/batches"
inline_content = true

[sync]
max_per_tenant = 8
batch_size = 50

[providers.google_drive]
client_id = "gd-client"
client_secret = "gd-secret"
scopes = ["https://www.googleapis.com/auth/drive.readonly"]

[providers.sharepoint]
client_id = "sp-client"
tenant_id = "contoso"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/inlet", cfg.DataDir)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Listen)
	assert.Equal(t, "https://ingest.example.com/batches", cfg.Emitter.Endpoint)
	assert.True(t, cfg.Emitter.InlineContent)
	assert.Equal(t, 8, cfg.Sync.MaxPerTenant)
	assert.Equal(t, 50, cfg.Sync.BatchSize)

	apps := cfg.OAuthApps()
	require.Contains(t, apps, domain.ProviderGoogleDrive)
	assert.Equal(t, "gd-client", apps[domain.ProviderGoogleDrive].ClientID)
	assert.Equal(t, "contoso", apps[domain.ProviderSharePoint].TenantID)
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := writeConfig(t, `server = `)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestValidate_BadListenAddress(t *testing.T) {
	cfg := Default()
	cfg.Server.Listen = "not a dial string"

	err := cfg.Validate()
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "server.listen")
}

func TestValidate_BadEmitterEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Emitter.Endpoint = "://nope"

	err := cfg.Validate()
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "emitter.endpoint")
}

func TestValidate_SyncBounds(t *testing.T) {
	cfg := Default()
	cfg.Sync.MaxPerTenant = 0
	assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidInput)

	cfg = Default()
	cfg.Sync.BatchSize = 5000
	assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidInput)
}

func TestValidate_UnknownProviderTag(t *testing.T) {
	cfg := Default()
	cfg.Providers["ftp"] = ProviderAppCfg{ClientID: "x"}

	err := cfg.Validate()
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "ftp")
}

func TestValidate_ProviderMissingClientID(t *testing.T) {
	cfg := Default()
	cfg.Providers["dropbox"] = ProviderAppCfg{ClientSecret: "s"}

	err := cfg.Validate()
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "client_id")
}

func TestDomainSchedulerConfig(t *testing.T) {
	cfg := Default()
	cfg.Scheduler.SyncAllEvery = 30 * time.Minute

	dc := cfg.DomainSchedulerConfig()
	assert.True(t, dc.Enabled)
	assert.Equal(t, 30*time.Minute, dc.TaskConfigs[domain.TaskIDSyncAll].Interval)
	assert.Equal(t, 45*time.Minute, dc.TaskConfigs[domain.TaskIDTokenRefresh].Interval)
}
