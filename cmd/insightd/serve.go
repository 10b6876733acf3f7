package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/insightd/internal/config"
	"github.com/fyrsmithlabs/insightd/internal/engine"
	"github.com/fyrsmithlabs/insightd/internal/httpapi"
	"github.com/fyrsmithlabs/insightd/internal/logging"
	"github.com/fyrsmithlabs/insightd/internal/storage"
	"github.com/fyrsmithlabs/insightd/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the insightd daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// runServe wires config, logging, telemetry, storage, engine, and the HTTP
// server, then blocks until SIGINT/SIGTERM.
func runServe() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		// Telemetry degrades gracefully, never fatal.
		logger.Warn("telemetry init failed, continuing without", zap.Error(err))
	}

	eng := engine.New(cfg.Engine, logger)

	var store *storage.Store
	if cfg.Storage.Enabled {
		store, err = storage.Open(cfg.Storage.DataDir, logger)
		if err != nil {
			return fmt.Errorf("opening snapshot store: %w", err)
		}
		defer store.Close()

		if snap, ok := store.LoadSnapshot(); ok {
			eng.RestoreSnapshot(snap)
			logger.Info("snapshot restored")
		}
	}

	server, err := httpapi.NewServer(eng, logger, &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if store != nil {
		g.Go(func() error {
			return snapshotLoop(gctx, eng, store, cfg.Storage.SnapshotInterval.Duration(), logger)
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown failed", zap.Error(err))
		}
		if store != nil {
			if err := store.SaveSnapshot(eng.Snapshot()); err != nil {
				logger.Warn("final snapshot failed", zap.Error(err))
			}
		}
		if tel != nil {
			if err := tel.Shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown failed", zap.Error(err))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// snapshotLoop saves the engine state periodically until the context ends.
func snapshotLoop(ctx context.Context, eng *engine.Engine, store *storage.Store, interval time.Duration, logger *zap.Logger) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := store.SaveSnapshot(eng.Snapshot()); err != nil {
				logger.Warn("periodic snapshot failed", zap.Error(err))
			}
		}
	}
}
