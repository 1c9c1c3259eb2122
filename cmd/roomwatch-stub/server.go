package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/roomwatch/roomwatch/internal/backup"
	"github.com/roomwatch/roomwatch/internal/catalog"
	"github.com/roomwatch/roomwatch/internal/duckdb"
	"github.com/roomwatch/roomwatch/internal/httpserver"
	"github.com/roomwatch/roomwatch/internal/logging"
)

func runServer(cfg appConfig) error {
	logger, cleanup, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	defer cleanup()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize DuckDB: %w", err)
	}
	defer store.Close()

	retentionCleaner := duckdb.NewRetentionCleaner(store, duckdb.RetentionConfig{
		Interval: cfg.RetentionInterval,
		Logger:   logger,
	})
	defer retentionCleaner.Stop()

	backups, err := backup.NewManager(store, backup.Config{
		Enabled:   cfg.Backup.Enabled,
		Interval:  cfg.Backup.Interval,
		Dir:       cfg.Backup.Dir,
		KeepLast:  cfg.Backup.KeepLast,
		BucketURL: cfg.Backup.BucketURL,
		Endpoint:  cfg.Backup.Endpoint,
		Region:    cfg.Backup.Region,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if backups != nil {
		defer backups.Stop()
	}

	gin.SetMode(gin.ReleaseMode)
	srv := httpserver.NewServer(httpserver.Config{
		Addr:        cfg.Addr,
		Cooldown:    cfg.Cooldown,
		CacheExpiry: cfg.CacheExpiry,
		Location:    loc,
		Logger:      logger,
	}, store, cat, &httpserver.SyntheticSource{Catalog: cat, Location: loc, Seed: cfg.Seed})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.WarmOnStart {
		if _, err := srv.Warm(ctx); err != nil {
			logger.Error("wake refresh failed", "err", err)
		}
	}

	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	logger.Info("roomwatch-stub started",
		"addr", srv.Addr(),
		"db_path", cfg.DBPath,
		"cooldown", cfg.Cooldown,
		"cache_expiry", cfg.CacheExpiry,
		"timezone", cfg.Timezone,
		"version", version,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return srv.Stop()
	})

	if err := g.Wait(); err != nil {
		logger.Error("shutdown error", "err", err)
		return err
	}
	return nil
}
