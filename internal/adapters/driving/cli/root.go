// Package cli implements the inlet command line interface using cobra.
// Commands operate on services wired in by the main package; a command
// invoked before wiring reports itself as not configured.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/inlet/internal/core/ports/driving"
	"github.com/custodia-labs/inlet/internal/core/services"
	"github.com/custodia-labs/inlet/internal/logger"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// Services wired in by the main package.
var (
	syncService       driving.SyncService
	connectionService driving.ConnectionService
	connectionManager *services.ConnectionManager
	providerRegistry  *services.ProviderRegistry
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "inlet",
	Short: "Inlet synchronises cloud storage into a searchable corpus",
	Long: `Inlet ingests documents from cloud storage providers (Google Drive,
OneDrive, SharePoint, Dropbox) and emits change records into an
ingestion pipeline.

Connections are established once per (user, provider) via OAuth; sync
jobs then walk each provider's change feed incrementally and keep the
corpus converged with the source.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Wire injects the service implementations the commands run against.
func Wire(
	sync driving.SyncService,
	manager *services.ConnectionManager,
	registry *services.ProviderRegistry,
) {
	syncService = sync
	connectionManager = manager
	connectionService = manager
	providerRegistry = registry
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
