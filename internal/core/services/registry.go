package services

import (
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// ProviderRegistry describes the built-in connector types and validates
// per-connection provider config against their declared keys.
type ProviderRegistry struct {
	types map[domain.Provider]domain.ConnectorType
}

// NewProviderRegistry creates a registry with the built-in connectors.
func NewProviderRegistry() *ProviderRegistry {
	r := &ProviderRegistry{types: make(map[domain.Provider]domain.ConnectorType)}
	r.registerGoogleDrive()
	r.registerOneDrive()
	r.registerSharePoint()
	r.registerDropbox()
	return r
}

func (r *ProviderRegistry) registerGoogleDrive() {
	r.types[domain.ProviderGoogleDrive] = domain.ConnectorType{
		Provider:      domain.ProviderGoogleDrive,
		Name:          "Google Drive",
		Description:   "Sync documents from Google Drive via the Changes API",
		SupportsDelta: true,
		ConfigKeys: []domain.ConfigKey{
			{
				Key:         "scope",
				Label:       "Folder ID",
				Description: "Folder ID to sync (empty for the whole drive)",
			},
			{
				Key:         "mime_types",
				Label:       "MIME Types",
				Description: "Comma-separated MIME type filter (optional)",
			},
		},
	}
}

func (r *ProviderRegistry) registerOneDrive() {
	r.types[domain.ProviderOneDrive] = domain.ConnectorType{
		Provider:      domain.ProviderOneDrive,
		Name:          "OneDrive",
		Description:   "Sync files from OneDrive via the Graph delta API",
		SupportsDelta: true,
		ConfigKeys: []domain.ConfigKey{
			{
				Key:         "scope",
				Label:       "Folder ID",
				Description: "Folder item ID to sync (empty for the drive root)",
			},
		},
	}
}

func (r *ProviderRegistry) registerSharePoint() {
	r.types[domain.ProviderSharePoint] = domain.ConnectorType{
		Provider:      domain.ProviderSharePoint,
		Name:          "SharePoint",
		Description:   "Sync a SharePoint site document library",
		SupportsDelta: false,
		ConfigKeys: []domain.ConfigKey{
			{
				Key:         "site_id",
				Label:       "Site ID",
				Description: "Graph site identifier of the library to sync",
				Required:    true,
			},
			{
				Key:         "tenant_id",
				Label:       "Tenant ID",
				Description: "Directory tenant (defaults to the OAuth app tenant)",
			},
			{
				Key:         "scope",
				Label:       "Folder ID",
				Description: "Folder item ID to sync (empty for the library root)",
			},
		},
	}
}

func (r *ProviderRegistry) registerDropbox() {
	r.types[domain.ProviderDropbox] = domain.ConnectorType{
		Provider:      domain.ProviderDropbox,
		Name:          "Dropbox",
		Description:   "Sync files from Dropbox via list_folder cursors",
		SupportsDelta: true,
		ConfigKeys: []domain.ConfigKey{
			{
				Key:         "scope",
				Label:       "Folder Path",
				Description: "Folder path to sync (empty for the whole account)",
			},
		},
	}
}

// List returns all connector types, ordered by provider tag.
func (r *ProviderRegistry) List() []domain.ConnectorType {
	out := make([]domain.ConnectorType, 0, len(r.types))
	for _, ct := range r.types {
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

// Get returns the connector type for a provider.
func (r *ProviderRegistry) Get(provider domain.Provider) (*domain.ConnectorType, error) {
	ct, ok := r.types[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, provider)
	}
	return &ct, nil
}

// ValidateConfig checks a connection's provider config against the
// declared keys. Unknown keys are rejected so typos surface at connect
// time instead of silently doing nothing.
func (r *ProviderRegistry) ValidateConfig(provider domain.Provider, config map[string]string) error {
	ct, err := r.Get(provider)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(ct.ConfigKeys))
	errs := validation.Errors{}

	for _, key := range ct.ConfigKeys {
		known[key.Key] = true

		rules := []validation.Rule{validation.Length(0, 1024)}
		if key.Required {
			rules = append(rules, validation.Required.Error("is required"))
		}
		if verr := validation.Validate(config[key.Key], rules...); verr != nil {
			errs[key.Key] = verr
		}
	}

	for key := range config {
		if !known[key] {
			errs[key] = fmt.Errorf("unknown key")
		}
	}

	if ferr := errs.Filter(); ferr != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, ferr)
	}
	return nil
}
