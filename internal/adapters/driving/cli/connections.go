package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

var connectionsCmd = &cobra.Command{
	Use:   "connections",
	Short: "Manage provider connections",
	Long: `Add, list, and remove provider connections.

A connection holds the OAuth tokens for one (user, provider) pair. Sync
jobs borrow the connection; tokens are refreshed automatically before
they expire.

Examples:
  # Connect Google Drive interactively (opens a browser)
  inlet connections add --user alice --provider google_drive

  # Connect non-interactively with a code obtained elsewhere
  inlet connections add --user alice --provider dropbox \
    --code "xxx" --redirect-uri "http://localhost:8400/callback"

  # List connections
  inlet connections list

  # Remove connections by ID
  inlet connections remove 4f1c... 9a2e...`,
}

var connectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored connections",
	RunE:  runConnectionsList,
}

var connectionsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Connect a provider account",
	Long: `Connect a provider account via OAuth.

Without --code this runs the interactive flow: a loopback callback
server is started, the browser opens the provider's consent page, and
the redirect delivers the authorization code. With --code the exchange
happens directly.`,
	RunE: runConnectionsAdd,
}

var connectionsRemoveCmd = &cobra.Command{
	Use:   "remove [connection-id]...",
	Short: "Revoke and remove connections by ID",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runConnectionsRemove,
}

// Flags for connections add.
var (
	connAddUser        string
	connAddProvider    string
	connAddCode        string
	connAddRedirectURI string
)

func init() {
	connectionsAddCmd.Flags().StringVar(
		&connAddUser, "user", "", "User ID owning the connection")
	connectionsAddCmd.Flags().StringVar(
		&connAddProvider, "provider", "", "Provider (google_drive, onedrive, sharepoint, dropbox)")
	connectionsAddCmd.Flags().StringVar(
		&connAddCode, "code", "", "OAuth authorization code (for non-interactive mode)")
	connectionsAddCmd.Flags().StringVar(
		&connAddRedirectURI, "redirect-uri", "", "Redirect URI the code was issued for (with --code)")

	connectionsCmd.AddCommand(connectionsListCmd)
	connectionsCmd.AddCommand(connectionsAddCmd)
	connectionsCmd.AddCommand(connectionsRemoveCmd)
	rootCmd.AddCommand(connectionsCmd)
}

func runConnectionsList(cmd *cobra.Command, _ []string) error {
	if connectionService == nil {
		return errors.New("connection service not configured")
	}

	conns, err := connectionService.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list connections: %w", err)
	}
	if len(conns) == 0 {
		cmd.Println("No connections configured.")
		return nil
	}

	for i := range conns {
		c := &conns[i]
		state := "connected"
		if !c.IsAuthenticated() {
			state = "reauth required"
		}
		cmd.Printf("%s  %s/%s", c.ID, c.UserID, c.Provider)
		if c.AccountIdentifier != "" {
			cmd.Printf("  (%s)", c.AccountIdentifier)
		}
		cmd.Printf("  [%s]\n", state)
	}
	return nil
}

func runConnectionsAdd(cmd *cobra.Command, _ []string) error {
	if connectionManager == nil {
		return errors.New("connection service not configured")
	}
	if connAddUser == "" || connAddProvider == "" {
		return errors.New("--user and --provider are required")
	}

	ctx := context.Background()
	key := domain.ConnectionKey{
		UserID:   connAddUser,
		Provider: domain.Provider(connAddProvider),
	}

	code, redirectURI := connAddCode, connAddRedirectURI
	if code == "" {
		var err error
		code, redirectURI, err = interactiveAuthorize(cmd, key.Provider)
		if err != nil {
			return err
		}
	}

	conn, err := connectionManager.Connect(ctx, key, code, redirectURI)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	cmd.Printf("Connected %s/%s", conn.UserID, conn.Provider)
	if conn.AccountIdentifier != "" {
		cmd.Printf(" as %s", conn.AccountIdentifier)
	}
	cmd.Printf(" (connection %s)\n", conn.ID)
	return nil
}

// interactiveAuthorize runs the loopback OAuth flow and returns the
// authorization code and the redirect URI it was issued for.
func interactiveAuthorize(cmd *cobra.Command, provider domain.Provider) (code, redirectURI string, err error) {
	state, err := generateState()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}

	port, err := findAvailablePort(8400, 8420)
	if err != nil {
		return "", "", err
	}

	callback := newOAuthCallbackServer(port, state)
	if err := callback.Start(); err != nil {
		return "", "", err
	}
	defer func() { _ = callback.Stop() }()

	redirectURI = callback.RedirectURI()
	authURL, err := connectionManager.AuthURL(provider, redirectURI, state)
	if err != nil {
		return "", "", err
	}

	cmd.Println("Opening browser for authorization...")
	if err := openBrowser(authURL); err != nil {
		cmd.Printf("Could not open browser. Visit:\n\n  %s\n\n", authURL)
	}

	code, err = callback.WaitForCode(5 * time.Minute)
	if err != nil {
		return "", "", fmt.Errorf("authorization failed: %w", err)
	}
	return code, redirectURI, nil
}

func runConnectionsRemove(cmd *cobra.Command, args []string) error {
	if connectionService == nil {
		return errors.New("connection service not configured")
	}

	result := connectionService.RevokeMany(context.Background(), args)

	for _, id := range result.Deleted {
		cmd.Printf("Removed %s\n", id)
	}
	for _, e := range result.Errors {
		cmd.Printf("Failed %s: %s\n", e.ID, e.Error)
	}
	if !result.AllSucceeded() {
		return fmt.Errorf("%d of %d deletions failed", len(result.Errors), len(args))
	}
	return nil
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List supported providers",
	RunE:  runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, _ []string) error {
	if providerRegistry == nil {
		return errors.New("provider registry not configured")
	}

	for _, ct := range providerRegistry.List() {
		mode := "full enumeration"
		if ct.SupportsDelta {
			mode = "delta"
		}
		cmd.Printf("%-14s %s (%s)\n", ct.Provider, ct.Name, mode)
	}
	return nil
}
