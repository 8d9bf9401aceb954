package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/inlet/internal/core/services"
	"github.com/custodia-labs/inlet/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync daemon",
	Long: `Runs the HTTP API and the background scheduler until interrupted.

The scheduler keeps tokens fresh and periodically synchronises every
connection; the API triggers jobs and manages connections on demand.`,
	RunE: runServe,
}

// Wired in by the main package alongside the services.
var (
	serveHandler   http.Handler
	serveListen    string
	serveScheduler *services.Scheduler
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

// WireServer injects the HTTP handler, bind address, and scheduler used
// by the serve command. A nil scheduler disables background tasks.
func WireServer(handler http.Handler, listen string, scheduler *services.Scheduler) {
	serveHandler = handler
	serveListen = listen
	serveScheduler = scheduler
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveHandler == nil {
		return errors.New("server not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveScheduler != nil {
		// Start blocks in the scheduler loop until Stop.
		go func() {
			if err := serveScheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("Scheduler exited: %v", err)
			}
		}()
		defer func() {
			if err := serveScheduler.Stop(); err != nil {
				logger.Warn("Scheduler stop: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         serveListen,
		Handler:      serveHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		cmd.Printf("Listening on %s\n", serveListen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	cmd.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
