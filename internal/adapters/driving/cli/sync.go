package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driving"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise documents from connected providers",
	Long: `Triggers document synchronisation from connected providers.
With --user and --provider, only that connection is synchronised.
Otherwise every stored connection is synchronised in turn.`,
	RunE: runSync,
}

// Flags for sync.
var (
	syncUser     string
	syncProvider string
	syncScope    string
)

func init() {
	syncCmd.Flags().StringVar(&syncUser, "user", "", "User ID to sync")
	syncCmd.Flags().StringVar(&syncProvider, "provider", "", "Provider to sync (google_drive, onedrive, sharepoint, dropbox)")
	syncCmd.Flags().StringVar(&syncScope, "scope", "", "Sync scope (drive ID, site ID, or folder path)")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if syncService == nil {
		return errors.New("sync service not configured")
	}

	ctx := context.Background()

	if syncUser == "" && syncProvider == "" {
		cmd.Println("Synchronising all connections...")

		reports, err := syncService.SyncAll(ctx)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		for i := range reports {
			printReport(cmd, &reports[i])
		}
		return nil
	}

	key := domain.SyncKey{
		UserID:   syncUser,
		Provider: domain.Provider(syncProvider),
		Scope:    syncScope,
	}
	cmd.Printf("Synchronising %s...\n", key)

	report, err := syncWithProgress(ctx, cmd, key)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	printReport(cmd, report)

	if report.State != domain.JobSucceeded {
		return fmt.Errorf("sync ended in %s: %s", report.State, report.Err)
	}
	return nil
}

// syncWithProgress runs one sync job while displaying progress updates.
func syncWithProgress(ctx context.Context, cmd *cobra.Command, key domain.SyncKey) (*domain.JobReport, error) {
	type result struct {
		report *domain.JobReport
		err    error
	}
	resCh := make(chan result, 1)
	go func() {
		report, err := syncService.Sync(ctx, key)
		resCh <- result{report, err}
	}()

	// Poll status every 500ms.
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case res := <-resCh:
			if lastCount > 0 {
				cmd.Println()
			}
			return res.report, res.err
		case <-ticker.C:
			// Best effort; a status error is not worth aborting over.
			status, err := syncService.Status(ctx, key)
			if err == nil && status.RecordsEmitted > lastCount {
				cmd.Printf("\rEmitted %d records over %d pages", status.RecordsEmitted, status.PagesCommitted)
				lastCount = status.RecordsEmitted
			}
		}
	}
}

func printReport(cmd *cobra.Command, r *domain.JobReport) {
	cmd.Printf("%s: %s (%d pages, %d records", r.Key, r.State, r.PagesCommitted, r.RecordsEmitted)
	if r.ResyncRequired {
		cmd.Printf(", full resync")
	}
	if r.Err != "" {
		cmd.Printf(", error: %s", r.Err)
	}
	cmd.Println(")")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the live status of a sync job",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&syncUser, "user", "", "User ID")
	statusCmd.Flags().StringVar(&syncProvider, "provider", "", "Provider")
	statusCmd.Flags().StringVar(&syncScope, "scope", "", "Sync scope")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if syncService == nil {
		return errors.New("sync service not configured")
	}

	key := domain.SyncKey{
		UserID:   syncUser,
		Provider: domain.Provider(syncProvider),
		Scope:    syncScope,
	}
	status, err := syncService.Status(context.Background(), key)
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	printStatus(cmd, status)
	return nil
}

func printStatus(cmd *cobra.Command, s *driving.SyncStatus) {
	state := string(s.State)
	if state == "" {
		state = "idle"
	}
	cmd.Printf("%s: %s", s.Key, state)
	if s.JobID != "" {
		cmd.Printf(" (job %s, %d pages, %d records)", s.JobID, s.PagesCommitted, s.RecordsEmitted)
	}
	cmd.Println()
}
