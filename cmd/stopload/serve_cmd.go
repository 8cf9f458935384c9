package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/stopload/internal/config"
	"github.com/JonMunkholm/stopload/internal/core"
	"github.com/JonMunkholm/stopload/internal/metrics"
	"github.com/JonMunkholm/stopload/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stop lookups over HTTP",
		Args: func(cmd *cobra.Command, args []string) error {
			return withCode(exitUsage, cobra.NoArgs(cmd, args))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.cfg)
		},
	}

	opts.bind(cmd, "SERVER_PORT", "port", "Listen port (overrides SERVER_PORT)")
	opts.bind(cmd, "SERVER_HOST", "host", "Listen host (overrides SERVER_HOST)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	pool, err := openPool(ctx, cfg.Database)
	if err != nil {
		return withCode(codeForKind(err), err)
	}
	defer pool.Close()

	predictions := core.NewPredictionClient(cfg.Predictions.FeedURL, cfg.Predictions.Agency, cfg.Predictions.Timeout)
	serverOpts := []web.Option{web.WithPredictions(predictions)}
	slog.Info("arrival predictions enabled", "agency", cfg.Predictions.Agency)

	if cfg.Metrics.Enabled {
		m := metrics.New()
		m.RegisterPool(pool)
		serverOpts = append(serverOpts, web.WithMetrics(m, cfg.Metrics.Path))
		slog.Info("metrics enabled", "path", cfg.Metrics.Path)
	}

	server := web.NewServer(core.NewStore(pool), pool, cfg.Server, serverOpts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case sig := <-sigCh:
		slog.Info("shutting down...", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// openPool builds the pgx pool from config and verifies it with a ping.
func openPool(ctx context.Context, dbCfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbCfg.URL)
	if err != nil {
		return nil, core.NewError(core.KindConfiguration, "parse database URL", err)
	}

	poolConfig.MaxConns = int32(dbCfg.MaxConns)
	poolConfig.MinConns = int32(dbCfg.MinConns)
	poolConfig.MaxConnLifetime = dbCfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = dbCfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, core.NewError(core.KindConnection, "connect", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, core.NewError(core.KindConnection, "ping", err)
	}

	if u, err := url.Parse(dbCfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
