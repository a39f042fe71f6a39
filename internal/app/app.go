// Package app provides the top-level application lifecycle management for the
// portfolio tracker. It wires together all dependencies (stores, caches, the
// market-data client, blob storage, services, and handlers), starts the HTTP
// server, and runs the optional archival loop.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pvaldes/stockfolio/internal/config"
	"github.com/pvaldes/stockfolio/internal/server"
	"github.com/pvaldes/stockfolio/internal/server/handler"
	"github.com/pvaldes/stockfolio/internal/service"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// process receives a termination signal.
const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the HTTP
// server and the optional archival loop, and blocks until the context is
// cancelled. On return it runs all registered cleanup functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.Int("port", a.cfg.Server.Port),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	trades := service.NewTradeService(
		deps.TxManager, deps.Accounts, deps.Positions, deps.Transactions, a.logger,
	)
	portfolios := service.NewPortfolioService(
		deps.TxManager, deps.Accounts, deps.Positions, deps.Transactions, deps.Prices, a.logger,
	)

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
		},
		server.Handlers{
			Health:    handler.NewHealthHandler(),
			Trades:    handler.NewTradeHandler(trades, a.logger),
			Portfolio: handler.NewPortfolioHandler(portfolios, a.logger),
			Stocks:    handler.NewStockHandler(deps.Prices, a.logger),
		},
		deps.Accounts,
		a.logger,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	if deps.Archiver != nil {
		go a.runArchiveLoop(ctx, deps)
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("app: server: %w", err)
		}
		return nil
	}
}

// runArchiveLoop periodically exports the transaction log to object storage.
// The log is append-only so re-running an export is harmless; each run simply
// rewrites the affected monthly objects.
func (a *App) runArchiveLoop(ctx context.Context, deps *Dependencies) {
	interval := a.cfg.Archive.Interval.Duration
	a.logger.InfoContext(ctx, "archive loop started",
		slog.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := deps.Archiver.ArchiveTransactions(ctx, time.Now().UTC())
			if err != nil {
				a.logger.ErrorContext(ctx, "archive run failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			a.logger.InfoContext(ctx, "archive run complete",
				slog.Int64("records", n),
			)
		}
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
