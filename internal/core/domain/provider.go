package domain

// Provider identifies an external storage provider.
type Provider string

const (
	// ProviderGoogleDrive is the Google Drive provider.
	ProviderGoogleDrive Provider = "google_drive"

	// ProviderOneDrive is the Microsoft OneDrive provider.
	ProviderOneDrive Provider = "onedrive"

	// ProviderSharePoint is the Microsoft SharePoint provider.
	ProviderSharePoint Provider = "sharepoint"

	// ProviderDropbox is the Dropbox provider.
	ProviderDropbox Provider = "dropbox"
)

// Valid returns true if the provider tag is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderGoogleDrive, ProviderOneDrive, ProviderSharePoint, ProviderDropbox:
		return true
	default:
		return false
	}
}

// ConfigKey describes a single connector configuration key.
type ConfigKey struct {
	// Key is the configuration key name.
	Key string

	// Label is a human-readable name for the key.
	Label string

	// Description explains what the key controls.
	Description string

	// Default is the default value, if any.
	Default string

	// Required indicates the key must be present and non-empty.
	Required bool
}

// ConnectorType describes an available connector type.
// Provider-specific keys (tenant_id for SharePoint, root namespace for
// Dropbox) are additive: every connector shares the OAuth client keys.
type ConnectorType struct {
	// Provider is the provider tag this connector serves.
	Provider Provider

	// Name is the human-readable connector name.
	Name string

	// Description explains what the connector syncs.
	Description string

	// SupportsDelta indicates the provider issues stable delta cursors.
	// Providers without delta support fall back to full enumeration with
	// version-map diffing.
	SupportsDelta bool

	// ConfigKeys lists provider-specific configuration keys.
	ConfigKeys []ConfigKey
}
