package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirasaad/eventoolkit/infra/initializer"
	"github.com/amirasaad/eventoolkit/infra/transport"
	"github.com/amirasaad/eventoolkit/pkg/config"
	"github.com/amirasaad/eventoolkit/webapi"
	log "github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	deps, cleanup, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer cleanup()
	defer deps.Observer.Stop()
	logger := deps.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources, closeSources, err := initializer.Sources(ctx, deps)
	if err != nil {
		return fmt.Errorf("failed to initialize transports: %w", err)
	}
	defer closeSources()

	app := webapi.NewApp(*deps)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Starting server",
		"env", cfg.Env,
		"address", addr,
		"scheme", cfg.Server.Scheme,
		"sources", len(sources),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(addr)
	})
	g.Go(func() error {
		return transport.RunAll(ctx, logger, sources...)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
