// Package main implements the HTTP server for the single-store inventory manager.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "net/http/pprof"

	"golang.org/x/sync/errgroup"

	"github.com/tiendatech/inventory/internal/app"
	"github.com/tiendatech/inventory/internal/config"
	"github.com/tiendatech/inventory/internal/store"
	"github.com/tiendatech/inventory/pkg/bootstrap"
	pconfig "github.com/tiendatech/inventory/pkg/config"
	"github.com/tiendatech/inventory/pkg/config/configloader"
	"github.com/tiendatech/inventory/pkg/messaging"
	pkgnats "github.com/tiendatech/inventory/pkg/nats"
)

const serviceName = "inventory"

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run initializes the application, connects the store gateway, ensures the
// bootstrap account, and starts the HTTP and pprof servers.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	gateway, closeGateway, err := newGateway(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeGateway()

	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	deps := app.SetupDependencies(gateway, publisher, cfg.Store.LowStockThreshold, logger)

	// Ensure an operator account exists before the first login.
	if err := deps.UserService.Bootstrap(ctx); err != nil {
		return fmt.Errorf("failed to bootstrap user store: %w", err)
	}

	httpServer := app.SetupHttpServer(deps, cfg)
	pprofServer := &http.Server{
		Addr: cfg.PProf.Addr,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// newGateway selects the store gateway from the configured mode.
func newGateway(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Gateway, func(), error) {
	switch cfg.Store.Mode {
	case pconfig.StoreModeMongo:
		client, err := bootstrap.NewMongoClient(ctx, cfg.Mongo.URI, cfg.Mongo.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to the store: %w", err)
		}
		logger.Info("Successfully connected to MongoDB", "database", cfg.Mongo.Database)
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Error("Failed to disconnect from MongoDB", "error", err)
			}
		}
		return store.NewMongoGateway(client, cfg.Mongo.Database), closeFn, nil
	case pconfig.StoreModeMemory:
		logger.Info("Using in-memory store gateway")
		return store.NewInMemoryGateway(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store mode: %q", cfg.Store.Mode)
	}
}

// newPublisher creates the JetStream publisher, or a nil publisher when NATS
// is disabled.
func newPublisher(cfg *config.Config, logger *slog.Logger) (messaging.Publisher, func(), error) {
	if !cfg.Nats.Enabled {
		logger.Info("NATS publishing is disabled")
		return nil, func() {}, nil
	}
	nc, err := pkgnats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := pkgnats.NewJetStreamContext(nc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	logger.Info("Successfully connected to NATS", "url", cfg.Nats.Url)
	return pkgnats.NewNatsPublisher(js), nc.Close, nil
}
