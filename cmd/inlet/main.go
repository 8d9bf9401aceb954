// Command inlet is the connector sync daemon and its CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/custodia-labs/inlet/internal/adapters/driven/config/file"
	"github.com/custodia-labs/inlet/internal/adapters/driven/emitter"
	"github.com/custodia-labs/inlet/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/inlet/internal/adapters/driving/cli"
	"github.com/custodia-labs/inlet/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/inlet/internal/connectors"
	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
	"github.com/custodia-labs/inlet/internal/core/services"
	"github.com/custodia-labs/inlet/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "inlet: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := file.Load(os.Getenv("INLET_CONFIG"))
	if err != nil {
		return err
	}
	logger.SetVerbose(cfg.Verbose)

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	factory := connectors.NewDefaultFactory()
	registry := services.NewProviderRegistry()
	manager := services.NewConnectionManager(store.ConnectionStore(), factory, cfg.OAuthApps())

	em := buildEmitter(cfg, manager, factory)

	orch := services.NewSyncOrchestrator(manager, store.SyncStateStore(), factory, em)
	orch.SetMaxPerTenant(cfg.Sync.MaxPerTenant)
	orch.SetBatchSize(cfg.Sync.BatchSize)

	var scheduler *services.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = services.NewScheduler(cfg.DomainSchedulerConfig(), store.SchedulerStore(), orch, manager)
	}

	router := httpapi.NewRouter(orch, manager, registry)

	cli.Wire(orch, manager, registry)
	cli.WireServer(router, cfg.Server.Listen, scheduler)
	return cli.Execute()
}

// buildEmitter selects the change emitter. An empty endpoint keeps
// batches in memory, which makes dry runs cheap.
func buildEmitter(cfg *file.Config, manager *services.ConnectionManager, factory driven.ConnectorFactory) driven.ChangeEmitter {
	if cfg.Emitter.Endpoint == "" {
		logger.Info("No emitter endpoint configured, using in-memory emitter")
		return emitter.NewMemoryEmitter()
	}

	e := emitter.NewHTTPEmitter(cfg.Emitter.Endpoint)
	if cfg.Emitter.InlineContent {
		e.SetContentFetcher(newContentFetcher(manager, factory))
	}
	return e
}

// newContentFetcher resolves a content ref of the form
// "<provider>://items/<id>" through the first authenticated connection
// for that provider.
func newContentFetcher(manager *services.ConnectionManager, factory driven.ConnectorFactory) emitter.ContentFetcher {
	return func(ctx context.Context, contentRef string) (io.ReadCloser, error) {
		provider, itemID, ok := strings.Cut(contentRef, "://items/")
		if !ok {
			return nil, fmt.Errorf("%w: malformed content ref %q", domain.ErrInvalidInput, contentRef)
		}

		conns, err := manager.List(ctx)
		if err != nil {
			return nil, err
		}
		for i := range conns {
			if conns[i].Provider != domain.Provider(provider) || !conns[i].IsAuthenticated() {
				continue
			}
			conn, err := manager.Borrow(ctx, domain.ConnectionKey{UserID: conns[i].UserID, Provider: conns[i].Provider})
			if err != nil {
				continue
			}
			connector, err := factory.Create(*conn, "")
			if err != nil {
				return nil, err
			}
			rc, err := connector.FetchContent(ctx, itemID)
			if err != nil {
				connector.Close()
				return nil, err
			}
			return &connectorReadCloser{ReadCloser: rc, connector: connector}, nil
		}
		return nil, fmt.Errorf("%w: no usable connection for %s", domain.ErrNotConnected, provider)
	}
}

// connectorReadCloser ties a content stream's lifetime to its connector.
type connectorReadCloser struct {
	io.ReadCloser
	connector driven.Connector
}

func (c *connectorReadCloser) Close() error {
	err := c.ReadCloser.Close()
	if cerr := c.connector.Close(); err == nil {
		err = cerr
	}
	return err
}
