package duckdb

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roomwatch/roomwatch/internal/clock"
)

// RetentionConfig holds configuration for the retention cleaner.
type RetentionConfig struct {
	Interval time.Duration
	Clock    clock.Clock
	Logger   *slog.Logger
}

// RetentionCleaner periodically deletes expired snapshots and refreshes.
type RetentionCleaner struct {
	store    *Store
	interval time.Duration
	clk      clock.Clock
	log      *slog.Logger
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRetentionCleaner starts a cleaner that sweeps once immediately and
// then every Interval (default one hour).
func NewRetentionCleaner(store *Store, conf ...RetentionConfig) *RetentionCleaner {
	var c RetentionConfig
	if len(conf) > 0 {
		c = conf[0]
	}
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	rc := &RetentionCleaner{
		store:    store,
		interval: c.Interval,
		clk:      c.Clock,
		log:      c.Logger.With("component", "retention"),
		done:     make(chan struct{}),
	}

	// Startup cleanup to catch up after downtime.
	rc.cleanup()

	rc.wg.Add(1)
	go rc.tickLoop()

	return rc
}

func (rc *RetentionCleaner) tickLoop() {
	defer rc.wg.Done()
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.cleanup()
		case <-rc.done:
			return
		}
	}
}

func (rc *RetentionCleaner) cleanup() {
	rows, err := rc.store.DeleteExpired(context.Background(), rc.clk.Now())
	if err != nil {
		rc.log.Error("retention cleanup failed", "err", err)
		return
	}
	if rows > 0 {
		rc.log.Info("retention cleanup", "deleted", rows)
	}
}

// Stop signals the cleaner to stop and waits for it to finish.
func (rc *RetentionCleaner) Stop() {
	rc.stopOnce.Do(func() {
		close(rc.done)
		rc.wg.Wait()
	})
}
