// Package file loads the daemon configuration from a TOML file.
package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// Config is the daemon configuration.
type Config struct {
	// DataDir is where the SQLite database lives.
	// Defaults to ~/.inlet/data.
	DataDir string `toml:"data_dir"`

	// Verbose enables debug logging.
	Verbose bool `toml:"verbose"`

	Server    ServerConfig              `toml:"server"`
	Emitter   EmitterConfig             `toml:"emitter"`
	Sync      SyncConfig                `toml:"sync"`
	Scheduler SchedulerConfig           `toml:"scheduler"`
	Providers map[string]ProviderAppCfg `toml:"providers"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Listen is the bind address, host:port.
	Listen string `toml:"listen"`
}

// EmitterConfig configures batch delivery to the ingestion pipeline.
type EmitterConfig struct {
	// Endpoint is the ingestion URL. Empty selects the in-memory
	// emitter (dry-run).
	Endpoint string `toml:"endpoint"`

	// InlineContent enables content hydration on emitted records.
	InlineContent bool `toml:"inline_content"`
}

// SyncConfig bounds the orchestrator.
type SyncConfig struct {
	// MaxPerTenant bounds concurrent jobs per user.
	MaxPerTenant int `toml:"max_per_tenant"`

	// BatchSize bounds records per emitter call.
	BatchSize int `toml:"batch_size"`
}

// SchedulerConfig configures the background tasks.
type SchedulerConfig struct {
	Enabled           bool          `toml:"enabled"`
	TokenRefreshEvery time.Duration `toml:"token_refresh_every"`
	SyncAllEvery      time.Duration `toml:"sync_all_every"`
}

// ProviderAppCfg holds the OAuth application credentials for one
// provider, keyed by provider tag in the [providers] table.
type ProviderAppCfg struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	TenantID     string   `toml:"tenant_id"`
	Scopes       []string `toml:"scopes"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{Listen: "127.0.0.1:8487"},
		Sync: SyncConfig{
			MaxPerTenant: 4,
			BatchSize:    100,
		},
		Scheduler: SchedulerConfig{
			Enabled:           true,
			TokenRefreshEvery: 45 * time.Minute,
			SyncAllEvery:      time.Hour,
		},
		Providers: make(map[string]ProviderAppCfg),
	}
}

// Load reads the config file at path, or ~/.inlet/config.toml when path
// is empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".inlet", "config.toml")
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	err := validation.Errors{
		"server.listen": validation.Validate(c.Server.Listen, validation.Required, is.DialString),
		"emitter.endpoint": validation.Validate(c.Emitter.Endpoint,
			validation.When(c.Emitter.Endpoint != "", is.URL)),
		"sync.max_per_tenant": validation.Validate(c.Sync.MaxPerTenant, validation.Min(1), validation.Max(64)),
		"sync.batch_size":     validation.Validate(c.Sync.BatchSize, validation.Min(1), validation.Max(1000)),
	}.Filter()
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}

	for tag, app := range c.Providers {
		if !domain.Provider(tag).Valid() {
			return fmt.Errorf("%w: unknown provider %q in config", domain.ErrInvalidInput, tag)
		}
		if app.ClientID == "" {
			return fmt.Errorf("%w: provider %q missing client_id", domain.ErrInvalidInput, tag)
		}
	}

	return nil
}

// OAuthApps converts the provider table into domain OAuth apps.
func (c *Config) OAuthApps() map[domain.Provider]domain.OAuthApp {
	apps := make(map[domain.Provider]domain.OAuthApp, len(c.Providers))
	for tag, app := range c.Providers {
		apps[domain.Provider(tag)] = domain.OAuthApp{
			ClientID:     app.ClientID,
			ClientSecret: app.ClientSecret,
			TenantID:     app.TenantID,
			Scopes:       app.Scopes,
		}
	}
	return apps
}

// DomainSchedulerConfig converts the scheduler section into the domain
// shape.
func (c *Config) DomainSchedulerConfig() domain.SchedulerConfig {
	return domain.SchedulerConfig{
		Enabled: c.Scheduler.Enabled,
		TaskConfigs: map[string]domain.TaskConfig{
			domain.TaskIDTokenRefresh: {
				Enabled:  c.Scheduler.Enabled,
				Interval: c.Scheduler.TokenRefreshEvery,
			},
			domain.TaskIDSyncAll: {
				Enabled:  c.Scheduler.Enabled,
				Interval: c.Scheduler.SyncAllEvery,
			},
		},
	}
}
